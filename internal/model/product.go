package model

import "time"

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	CreatorID   string    `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductRequest is the body accepted when creating or replacing a product.
type ProductRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	CreatorID   string  `json:"creator_id"`
}

// ProductWithCreator is a product with its creator embedded.
// It serializes as the product fields plus a "creator" object.
type ProductWithCreator struct {
	Product
	Creator User `json:"creator"`
}
