// api/handlers/auth_handler.go
package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pharmap/pharmap-backend/api/models"
	"github.com/pharmap/pharmap-backend/config"
	"github.com/pharmap/pharmap-backend/internal/auth"
	"github.com/pharmap/pharmap-backend/internal/core"
	"github.com/pharmap/pharmap-backend/internal/domain"
	"github.com/pharmap/pharmap-backend/internal/logger"
	"github.com/pharmap/pharmap-backend/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

// AuthHandler holds dependencies for authentication handlers.
type AuthHandler struct {
	DB  *sql.DB
	Cfg *config.Config
}

// NewAuthHandler creates a new AuthHandler with dependencies.
func NewAuthHandler(db *sql.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		DB:  db,
		Cfg: cfg,
	}
}

func profileOf(user *domain.User) models.UserProfile {
	return models.UserProfile{
		Username:      user.Username,
		Credits:       user.Credits,
		IsAdmin:       user.IsAdmin,
		TotalRequests: user.TotalRequests,
	}
}

// Signup handles user registration requests. New accounts start with the
// configured number of search credits.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Signup binding error: %v", err)
		_ = c.Error(err)
		return
	}

	if !core.IsValidUsername(req.Username) {
		_ = c.Error(errors.New("invalid username format"))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid username. Use only alphanumeric characters and underscores (a-z, A-Z, 0-9, _), 3-64 characters."})
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		customLog.Warnf("Failed to hash password during signup for %s: %v", req.Username, err)
		_ = c.Error(err)
		return
	}

	err = storage.CreateUser(c.Request.Context(), h.DB, req.Username, hashedPassword, h.Cfg.SignupCredits, false)
	if err != nil {
		customLog.Warnf("Failed to create user %s: %v", req.Username, err)
		_ = c.Error(err) // Attach storage error (e.g., ErrUsernameExists)
		return           // Let middleware handle response
	}

	customLog.Printf("Successfully registered user %s with %d credits", req.Username, h.Cfg.SignupCredits)
	c.JSON(http.StatusCreated, gin.H{"username": req.Username, "credits": h.Cfg.SignupCredits, "message": "User registered successfully"})
}

// Login handles user login requests and issues JWT on success.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Login binding error: %v", err)
		_ = c.Error(err)
		return
	}

	user, err := storage.FindUserByUsername(c.Request.Context(), h.DB, req.Username)
	if err != nil {
		customLog.Warnf("Login failed for %s: %v", req.Username, err)
		if errors.Is(err, storage.ErrUserNotFound) {
			// Do not reveal which of username/password was wrong
			_ = c.Error(storage.ErrInvalidCredentials)
		} else {
			_ = c.Error(err)
		}
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		customLog.Warnf("Login attempt failed for %s: invalid password", user.Username)
		_ = c.Error(storage.ErrInvalidCredentials)
		return
	}

	tokenString, err := auth.GenerateJWT(user.Username, user.IsAdmin, h.Cfg.JWTSecret, h.Cfg.JWTExpiration)
	if err != nil {
		customLog.Warnf("Failed to generate JWT for user %s: %v", user.Username, err)
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{Message: "Logged in successfully", Token: tokenString, User: profileOf(user)})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	username := c.MustGet("username").(string)

	user, err := storage.FindUserByUsername(c.Request.Context(), h.DB, username)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, profileOf(user))
}
