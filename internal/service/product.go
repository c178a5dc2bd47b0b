package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/catalog/catalog-go/internal/cache"
	"github.com/catalog/catalog-go/internal/model"
	"github.com/catalog/catalog-go/internal/repository"
)

const (
	// ListingCacheKey holds the products-with-creators listing.
	ListingCacheKey = "all_products"
	ListingCacheTTL = 60 * time.Second
)

// ProductService handles product operations and the cached creator listing.
type ProductService struct {
	products repository.ProductStore
	users    repository.IdentityStore
	lookup   *cache.Lookup
}

// NewProductService creates a new ProductService. lookup may be nil to disable caching.
func NewProductService(products repository.ProductStore, users repository.IdentityStore, lookup *cache.Lookup) *ProductService {
	return &ProductService{products: products, users: users, lookup: lookup}
}

// Create stores a new product after checking that its creator exists.
func (s *ProductService) Create(ctx context.Context, req model.ProductRequest) (*model.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}
	if err := s.checkCreator(ctx, req.CreatorID); err != nil {
		return nil, err
	}

	product := &model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		CreatorID:   req.CreatorID,
	}
	if err := s.products.Insert(ctx, product); err != nil {
		return nil, storeError(err)
	}
	return product, nil
}

func (s *ProductService) List(ctx context.Context) ([]model.Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*model.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, productError(err)
	}
	return product, nil
}

// Update replaces a product. The creator is checked again only when it changes.
func (s *ProductService) Update(ctx context.Context, id string, req model.ProductRequest) (*model.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, productError(err)
	}

	if product.CreatorID != req.CreatorID {
		if err := s.checkCreator(ctx, req.CreatorID); err != nil {
			return nil, err
		}
	}

	product.Name = req.Name
	product.Description = req.Description
	product.Price = req.Price
	product.Category = req.Category
	product.CreatorID = req.CreatorID

	if err := s.products.Update(ctx, product); err != nil {
		return nil, productError(err)
	}
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return productError(err)
	}
	return nil
}

// ListWithCreators returns every product joined with its creator, served from
// the cache for up to ListingCacheTTL. Products without an existing creator are omitted.
func (s *ProductService) ListWithCreators(ctx context.Context) ([]model.ProductWithCreator, error) {
	listing, err := cache.GetOrCompute(ctx, s.lookup, ListingCacheKey, ListingCacheTTL,
		func(ctx context.Context) ([]model.ProductWithCreator, error) {
			listing, err := s.products.ListWithCreator(ctx)
			if err != nil {
				return nil, storeError(err)
			}
			return listing, nil
		})
	if err != nil {
		return nil, err
	}
	if listing == nil {
		listing = []model.ProductWithCreator{}
	}
	return listing, nil
}

func (s *ProductService) checkCreator(ctx context.Context, creatorID string) error {
	_, err := s.users.FindByID(ctx, creatorID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrUserNotFound), errors.Is(err, repository.ErrInvalidID):
		return ErrCreatorNotFound
	default:
		return storeError(err)
	}
}

func validateProduct(req model.ProductRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return invalid("name", "name is required")
	}
	if req.Price <= 0 {
		return invalid("price", "price must be greater than zero")
	}
	if strings.TrimSpace(req.Category) == "" {
		return invalid("category", "category is required")
	}
	if req.CreatorID == "" {
		return invalid("creator_id", "creator_id is required")
	}
	return nil
}

func productError(err error) error {
	if errors.Is(err, repository.ErrProductNotFound) {
		return ErrProductNotFound
	}
	return storeError(err)
}
