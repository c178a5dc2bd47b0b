package service

import (
	"context"
	"errors"

	"github.com/catalog/catalog-go/internal/model"
	"github.com/catalog/catalog-go/internal/repository"
)

// UserService handles user profile operations.
type UserService struct {
	users repository.IdentityStore
}

func NewUserService(users repository.IdentityStore) *UserService {
	return &UserService{users: users}
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, userError(err)
	}
	return user, nil
}

// Update replaces the user's name and email.
func (s *UserService) Update(ctx context.Context, id string, req model.UserUpdate) (*model.User, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	if err := validateEmail(req.Email); err != nil {
		return nil, err
	}

	user, err := s.users.Update(ctx, id, req)
	if err != nil {
		return nil, userError(err)
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return userError(err)
	}
	return nil
}

func userError(err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrDuplicateEmail):
		return ErrEmailTaken
	default:
		return storeError(err)
	}
}
