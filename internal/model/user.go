package model

import "time"

// User is an identity that can authenticate and own products.
// Email is unique across users and is the subject of issued tokens.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserUpdate holds the profile fields a user update may change.
type UserUpdate struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest carries the OAuth2 password-flow form fields.
// Username holds the user's email.
type LoginRequest struct {
	Username string
	Password string
}

// TokenResponse is returned by the token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
