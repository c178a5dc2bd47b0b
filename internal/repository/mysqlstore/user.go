package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/catalog/catalog-go/internal/model"
	"github.com/catalog/catalog-go/internal/repository"
)

const userColumns = `id, name, email, hashed_password, created_at, updated_at`

// UserStore implements repository.IdentityStore on the users table.
type UserStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewUserStore creates a new UserStore.
func NewUserStore(db *sql.DB, timeout time.Duration) *UserStore {
	return &UserStore{db: db, timeout: timeout}
}

// FindByEmail retrieves a user by their email address.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// FindByID retrieves a user by their ID.
func (s *UserStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	if !validID(id) {
		return nil, repository.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *UserStore) List(ctx context.Context) ([]model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.HashedPassword, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, classify(err)
		}
		users = append(users, u)
	}

	return users, classify(rows.Err())
}

// Insert stores a new user and sets the generated ID on the user struct.
func (s *UserStore) Insert(ctx context.Context, user *model.User) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		id, user.Name, user.Email, user.HashedPassword, now, now,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEmail
		}
		return classify(err)
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (s *UserStore) Update(ctx context.Context, id string, fields model.UserUpdate) (*model.User, error) {
	if !validID(id) {
		return nil, repository.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?`,
		fields.Name, fields.Email, now, id,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return nil, repository.ErrDuplicateEmail
		}
		return nil, classify(err)
	}

	// The driver reports matched rows only with clientFoundRows, so read back instead.
	return s.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return repository.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return classify(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if rowsAffected == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) queryOne(ctx context.Context, query string, args ...any) (*model.User, error) {
	user := &model.User{}
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Name, &user.Email, &user.HashedPassword, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, classify(err)
	}
	return user, nil
}
