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

const productColumns = `id, name, description, price, category, creator_id, created_at, updated_at`

// withCreatorQuery is an inner join: products without a matching user are not returned.
const withCreatorQuery = `
	SELECT p.id, p.name, p.description, p.price, p.category, p.creator_id, p.created_at, p.updated_at,
		u.id, u.name, u.email, u.hashed_password, u.created_at, u.updated_at
	FROM products p
	INNER JOIN users u ON u.id = p.creator_id`

// ProductStore implements repository.ProductStore on the products table.
type ProductStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewProductStore creates a new ProductStore.
func NewProductStore(db *sql.DB, timeout time.Duration) *ProductStore {
	return &ProductStore{db: db, timeout: timeout}
}

func (s *ProductStore) Insert(ctx context.Context, product *model.Product) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, product.Name, product.Description, product.Price, product.Category, product.CreatorID, now, now,
	)
	if err != nil {
		return classify(err)
	}

	product.ID = id
	product.CreatedAt = now
	product.UpdatedAt = now
	return nil
}

func (s *ProductStore) FindByID(ctx context.Context, id string) (*model.Product, error) {
	if !validID(id) {
		return nil, repository.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	product, err := scanProduct(s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrProductNotFound
		}
		return nil, classify(err)
	}
	return product, nil
}

func (s *ProductStore) List(ctx context.Context) ([]model.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, classify(err)
		}
		products = append(products, *p)
	}

	return products, classify(rows.Err())
}

func (s *ProductStore) Update(ctx context.Context, product *model.Product) error {
	if !validID(product.ID) {
		return repository.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	result, err := s.db.ExecContext(ctx,
		`UPDATE products SET name = ?, description = ?, price = ?, category = ?, creator_id = ?, updated_at = ?
		WHERE id = ?`,
		product.Name, product.Description, product.Price, product.Category, product.CreatorID, now, product.ID,
	)
	if err != nil {
		return classify(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if rowsAffected == 0 {
		// Zero also means an identical write within the same millisecond.
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = ?`, product.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrProductNotFound
		}
		if err != nil {
			return classify(err)
		}
	}

	product.UpdatedAt = now
	return nil
}

func (s *ProductStore) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return repository.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return classify(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if rowsAffected == 0 {
		return repository.ErrProductNotFound
	}
	return nil
}

func (s *ProductStore) ListWithCreator(ctx context.Context) ([]model.ProductWithCreator, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, withCreatorQuery)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var result []model.ProductWithCreator
	for rows.Next() {
		var (
			pc          model.ProductWithCreator
			description sql.NullString
		)
		if err := rows.Scan(
			&pc.ID, &pc.Name, &description, &pc.Price, &pc.Category, &pc.CreatorID, &pc.CreatedAt, &pc.UpdatedAt,
			&pc.Creator.ID, &pc.Creator.Name, &pc.Creator.Email, &pc.Creator.HashedPassword,
			&pc.Creator.CreatedAt, &pc.Creator.UpdatedAt,
		); err != nil {
			return nil, classify(err)
		}
		if description.Valid {
			pc.Description = &description.String
		}
		result = append(result, pc)
	}

	return result, classify(rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var (
		p           model.Product
		description sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &description, &p.Price, &p.Category, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if description.Valid {
		p.Description = &description.String
	}
	return &p, nil
}
