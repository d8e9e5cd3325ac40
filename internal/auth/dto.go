package auth

import "github.com/rmoralesdev/tradecart-backend/internal/users"

// RegisterInput is the normalized signup payload.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// LoginInput carries raw credentials.
type LoginInput struct {
	Email    string
	Password string
}

// Session is the issued token plus the account it belongs to.
type Session struct {
	AccessToken string        `json:"access_token"`
	User        users.UserDTO `json:"user"`
}
