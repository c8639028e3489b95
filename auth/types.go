package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the identity record returned by the profile and register endpoints
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Tokens is the opaque bearer credential pair. Both values always change together.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// LoginCredentials is the payload posted to the token endpoint
type LoginCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterCredentials is the payload posted to the register endpoint
type RegisterCredentials struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// LoginResult is what a successful login yields
type LoginResult struct {
	User   User
	Tokens Tokens
}

// loginResponse mirrors the token endpoint's JSON body
type loginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user"`
}

// Claims is the subset of the access token payload shown by `status`.
// The signature is never verified client-side.
type Claims struct {
	UserID    any    `json:"user_id,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

// Expiry returns the token expiry, if the token carries one
func (c *Claims) Expiry() (time.Time, bool) {
	if c.ExpiresAt == nil {
		return time.Time{}, false
	}
	return c.ExpiresAt.Time, true
}

// Expired reports whether the token expiry lies before now
func (c *Claims) Expired(now time.Time) bool {
	exp, ok := c.Expiry()
	return ok && exp.Before(now)
}
