// Package memstore keeps users and products in process memory.
// It backs STORE_DRIVER=memory and the handler and service tests.
package memstore

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds both collections behind one lock so that joins see a consistent view.
type Store struct {
	mu           sync.RWMutex
	users        map[string]*userRecord
	products     map[string]*productRecord
	userOrder    []string
	productOrder []string
	now          func() time.Time
}

func New() *Store {
	return &Store{
		users:    make(map[string]*userRecord),
		products: make(map[string]*productRecord),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Users returns the identity store view.
func (s *Store) Users() *UserStore {
	return &UserStore{s: s}
}

// Products returns the product store view.
func (s *Store) Products() *ProductStore {
	return &ProductStore{s: s}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func removeID(order []string, id string) []string {
	for i, v := range order {
		if v == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
