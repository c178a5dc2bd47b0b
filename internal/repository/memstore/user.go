package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/catalog/catalog-go/internal/model"
	"github.com/catalog/catalog-go/internal/repository"
)

type userRecord struct {
	user model.User
}

// UserStore implements repository.IdentityStore.
type UserStore struct {
	s *Store
}

func (u *UserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, repository.Unavailable(err)
	}

	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	for _, id := range u.s.userOrder {
		rec := u.s.users[id]
		if rec.user.Email == email {
			user := rec.user
			return &user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (u *UserStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, repository.Unavailable(err)
	}
	if !validID(id) {
		return nil, repository.ErrInvalidID
	}

	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	rec, ok := u.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	user := rec.user
	return &user, nil
}

func (u *UserStore) List(ctx context.Context) ([]model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, repository.Unavailable(err)
	}

	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	users := make([]model.User, 0, len(u.s.userOrder))
	for _, id := range u.s.userOrder {
		users = append(users, u.s.users[id].user)
	}
	return users, nil
}

func (u *UserStore) Insert(ctx context.Context, user *model.User) error {
	if err := ctx.Err(); err != nil {
		return repository.Unavailable(err)
	}

	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	if u.emailTakenLocked(user.Email, "") {
		return repository.ErrDuplicateEmail
	}

	now := u.s.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	u.s.users[user.ID] = &userRecord{user: *user}
	u.s.userOrder = append(u.s.userOrder, user.ID)
	return nil
}

func (u *UserStore) Update(ctx context.Context, id string, fields model.UserUpdate) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, repository.Unavailable(err)
	}
	if !validID(id) {
		return nil, repository.ErrInvalidID
	}

	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	rec, ok := u.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	if u.emailTakenLocked(fields.Email, id) {
		return nil, repository.ErrDuplicateEmail
	}

	rec.user.Name = fields.Name
	rec.user.Email = fields.Email
	rec.user.UpdatedAt = u.s.now()

	user := rec.user
	return &user, nil
}

func (u *UserStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return repository.Unavailable(err)
	}
	if !validID(id) {
		return repository.ErrInvalidID
	}

	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	if _, ok := u.s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(u.s.users, id)
	u.s.userOrder = removeID(u.s.userOrder, id)
	return nil
}

func (u *UserStore) emailTakenLocked(email, exceptID string) bool {
	for id, rec := range u.s.users {
		if id != exceptID && rec.user.Email == email {
			return true
		}
	}
	return false
}
