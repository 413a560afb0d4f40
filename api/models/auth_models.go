// api/models/auth_models.go
package models

import "github.com/golang-jwt/jwt/v5"

// --- Auth Request/Response Structs ---

// SignupRequest defines the structure for the signup request body
type SignupRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest defines the structure for the login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse defines the structure for the login response body
type LoginResponse struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    UserProfile `json:"user"`
}

// UserProfile is the user view returned by the API; the password hash
// never leaves the storage layer.
type UserProfile struct {
	Username      string `json:"username"`
	Credits       int    `json:"credits"`
	IsAdmin       bool   `json:"is_admin"`
	TotalRequests int    `json:"total_requests"`
}

// --- JWT Claims ---

// CustomClaims includes standard claims and our custom username/admin claims
type CustomClaims struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}
