package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/catalog/catalog-go/internal/crypto"
	"github.com/catalog/catalog-go/internal/metrics"
	"github.com/catalog/catalog-go/internal/model"
	"github.com/catalog/catalog-go/internal/repository"
)

// Notifier sends the welcome message after registration.
type Notifier interface {
	SendWelcome(ctx context.Context, email, name string) error
}

// AuthService handles registration, login and bearer token verification.
type AuthService struct {
	users    repository.IdentityStore
	codec    *crypto.TokenCodec
	notifier Notifier
	metrics  metrics.Recorder
	logger   *slog.Logger

	// verifyPassword is crypto.VerifyPassword outside tests.
	verifyPassword func(password, encodedHash string) (bool, error)

	background sync.WaitGroup
}

// dummyHash stands in for the stored hash when the login email is unknown.
var dummyHash = sync.OnceValue(func() string {
	hash, err := crypto.HashPassword("catalog-dummy-password")
	if err != nil {
		panic(err)
	}
	return hash
})

// NewAuthService creates a new AuthService.
func NewAuthService(users repository.IdentityStore, codec *crypto.TokenCodec, notifier Notifier, m metrics.Recorder, logger *slog.Logger) *AuthService {
	if m == nil {
		m = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:    users,
		codec:    codec,
		notifier: notifier,
		metrics:  m,
		logger:   logger,

		verifyPassword: crypto.VerifyPassword,
	}
}

// Register creates a new user account and schedules the welcome email.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	if err := validateEmail(req.Email); err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, invalid("password", "password is required")
	}
	if len(req.Password) > crypto.MaxPasswordBytes {
		return nil, invalid("password", "password must be at most 72 bytes")
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:           req.Name,
		Email:          req.Email,
		HashedPassword: hash,
	}

	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, storeError(err)
	}

	s.notifyWelcome(context.WithoutCancel(ctx), user.Email, user.Name)

	return user, nil
}

func (s *AuthService) notifyWelcome(ctx context.Context, email, name string) {
	if s.notifier == nil {
		return
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if err := s.notifier.SendWelcome(ctx, email, name); err != nil {
			s.logger.Error("failed to send welcome email", "email", email, "error", err)
		}
	}()
}

// Wait blocks until pending welcome emails have been attempted.
func (s *AuthService) Wait() {
	s.background.Wait()
}

// Login checks the email and password and issues an access token.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.TokenResponse, error) {
	user, err := s.users.FindByEmail(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_, _ = s.verifyPassword(req.Password, dummyHash())
			return model.TokenResponse{}, ErrInvalidCredentials
		}
		return model.TokenResponse{}, storeError(err)
	}

	match, err := s.verifyPassword(req.Password, user.HashedPassword)
	if err != nil {
		return model.TokenResponse{}, err
	}
	if !match {
		return model.TokenResponse{}, ErrInvalidCredentials
	}

	token, err := s.codec.Encode(user.Email)
	if err != nil {
		return model.TokenResponse{}, err
	}

	return model.TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// Verify resolves a bearer token to the user it was issued to.
// Every rejection matches ErrUnauthorized. A store outage is reported as
// ErrUpstreamUnavailable and never as a rejection.
func (s *AuthService) Verify(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		if errors.Is(err, crypto.ErrTokenExpired) {
			s.metrics.RecordAuthFailure("expired")
			return nil, ErrTokenExpired
		}
		s.metrics.RecordAuthFailure("invalid")
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		s.metrics.RecordAuthFailure("invalid")
		return nil, ErrInvalidToken
	}

	user, err := s.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.RecordAuthFailure("unknown_subject")
			return nil, ErrUnknownSubject
		}
		return nil, storeError(err)
	}

	return user, nil
}
