package repository

import (
	"context"

	"github.com/catalog/catalog-go/internal/model"
)

// IdentityStore persists users. Email is unique across users.
type IdentityStore interface {
	// FindByEmail returns ErrUserNotFound when no user has the email.
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByID returns ErrUserNotFound when the user does not exist
	// and ErrInvalidID when id is not a well-formed identifier.
	FindByID(ctx context.Context, id string) (*model.User, error)

	List(ctx context.Context) ([]model.User, error)

	// Insert stores the user and sets its generated ID and timestamps.
	// Returns ErrDuplicateEmail if the email is taken.
	Insert(ctx context.Context, user *model.User) error

	// Update replaces the profile fields and returns the stored user.
	Update(ctx context.Context, id string, fields model.UserUpdate) (*model.User, error)

	Delete(ctx context.Context, id string) error
}

// ProductStore persists products.
type ProductStore interface {
	Insert(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context) ([]model.Product, error)

	// Update replaces all mutable fields of the product identified by product.ID.
	Update(ctx context.Context, product *model.Product) error

	Delete(ctx context.Context, id string) error

	// ListWithCreator joins every product with its creator.
	// Products whose creator does not exist are left out.
	ListWithCreator(ctx context.Context) ([]model.ProductWithCreator, error)
}
