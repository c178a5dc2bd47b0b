package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/catalog/catalog-go/internal/model"
	"github.com/catalog/catalog-go/internal/repository"
)

type productRecord struct {
	product model.Product
}

// ProductStore implements repository.ProductStore.
type ProductStore struct {
	s *Store
}

func (p *ProductStore) Insert(ctx context.Context, product *model.Product) error {
	if err := ctx.Err(); err != nil {
		return repository.Unavailable(err)
	}

	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	now := p.s.now()
	product.ID = uuid.NewString()
	product.CreatedAt = now
	product.UpdatedAt = now

	p.s.products[product.ID] = &productRecord{product: copyProduct(*product)}
	p.s.productOrder = append(p.s.productOrder, product.ID)
	return nil
}

func (p *ProductStore) FindByID(ctx context.Context, id string) (*model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, repository.Unavailable(err)
	}
	if !validID(id) {
		return nil, repository.ErrInvalidID
	}

	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	rec, ok := p.s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	product := copyProduct(rec.product)
	return &product, nil
}

func (p *ProductStore) List(ctx context.Context) ([]model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, repository.Unavailable(err)
	}

	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	products := make([]model.Product, 0, len(p.s.productOrder))
	for _, id := range p.s.productOrder {
		products = append(products, copyProduct(p.s.products[id].product))
	}
	return products, nil
}

func (p *ProductStore) Update(ctx context.Context, product *model.Product) error {
	if err := ctx.Err(); err != nil {
		return repository.Unavailable(err)
	}
	if !validID(product.ID) {
		return repository.ErrInvalidID
	}

	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	rec, ok := p.s.products[product.ID]
	if !ok {
		return repository.ErrProductNotFound
	}

	product.CreatedAt = rec.product.CreatedAt
	product.UpdatedAt = p.s.now()
	rec.product = copyProduct(*product)
	return nil
}

func (p *ProductStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return repository.Unavailable(err)
	}
	if !validID(id) {
		return repository.ErrInvalidID
	}

	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	if _, ok := p.s.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(p.s.products, id)
	p.s.productOrder = removeID(p.s.productOrder, id)
	return nil
}

func (p *ProductStore) ListWithCreator(ctx context.Context) ([]model.ProductWithCreator, error) {
	if err := ctx.Err(); err != nil {
		return nil, repository.Unavailable(err)
	}

	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	result := make([]model.ProductWithCreator, 0, len(p.s.productOrder))
	for _, id := range p.s.productOrder {
		product := p.s.products[id].product
		creator, ok := p.s.users[product.CreatorID]
		if !ok {
			continue
		}
		result = append(result, model.ProductWithCreator{
			Product: copyProduct(product),
			Creator: creator.user,
		})
	}
	return result, nil
}

func copyProduct(p model.Product) model.Product {
	if p.Description != nil {
		d := *p.Description
		p.Description = &d
	}
	return p
}
