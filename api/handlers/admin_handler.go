// api/handlers/admin_handler.go
package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pharmap/pharmap-backend/api/models"
	"github.com/pharmap/pharmap-backend/config"
	"github.com/pharmap/pharmap-backend/internal/storage"
)

// AdminHandler holds dependencies for administrator endpoints.
type AdminHandler struct {
	DB  *sql.DB
	Cfg *config.Config
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db *sql.DB, cfg *config.Config) *AdminHandler {
	return &AdminHandler{
		DB:  db,
		Cfg: cfg,
	}
}

// ListUsers returns all accounts with their balances and request counts.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := storage.ListUsers(c.Request.Context(), h.DB)
	if err != nil {
		_ = c.Error(err)
		return
	}

	profiles := make([]models.UserProfile, 0, len(users))
	for i := range users {
		profiles = append(profiles, profileOf(&users[i]))
	}
	c.JSON(http.StatusOK, gin.H{"users": profiles, "count": len(profiles)})
}

// DeleteUser removes an account together with its search history.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	username := c.Param("username")
	if username == c.MustGet("username").(string) {
		_ = c.Error(errors.New("cannot delete own account"))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Administrators cannot delete their own account."})
		return
	}

	if err := storage.DeleteUser(c.Request.Context(), h.DB, username); err != nil {
		_ = c.Error(err)
		return
	}
	customLog.Printf("Admin %s deleted user %s", c.MustGet("username"), username)
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// AdjustCredits changes a user's credit balance, either by a delta or
// to an absolute value.
func (h *AdminHandler) AdjustCredits(c *gin.Context) {
	username := c.Param("username")

	var req models.AdjustCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}
	if (req.Delta == nil) == (req.Set == nil) {
		_ = c.Error(errors.New("exactly one of delta or set must be provided"))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Provide exactly one of 'delta' or 'set'."})
		return
	}

	var err error
	if req.Delta != nil {
		err = storage.AdjustCredits(c.Request.Context(), h.DB, username, *req.Delta)
	} else {
		if *req.Set < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Credits cannot be negative."})
			return
		}
		err = storage.SetCredits(c.Request.Context(), h.DB, username, *req.Set)
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	user, err := storage.FindUserByUsername(c.Request.Context(), h.DB, username)
	if err != nil {
		_ = c.Error(err)
		return
	}
	customLog.Printf("Admin %s set credits of %s to %d", c.MustGet("username"), username, user.Credits)
	c.JSON(http.StatusOK, profileOf(user))
}

// ListActiveIPs returns the client addresses whose activity window has
// not yet expired.
func (h *AdminHandler) ListActiveIPs(c *gin.Context) {
	ips, err := storage.ListActiveIPs(c.Request.Context(), h.DB, time.Now().UTC())
	if err != nil {
		_ = c.Error(err)
		return
	}

	type activeIPView struct {
		IPAddress string    `json:"ip_address"`
		AddedAt   time.Time `json:"added_at"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	views := make([]activeIPView, 0, len(ips))
	for _, ip := range ips {
		views = append(views, activeIPView{IPAddress: ip.IPAddress, AddedAt: ip.AddedAt, ExpiresAt: ip.ExpiresAt})
	}
	c.JSON(http.StatusOK, gin.H{"active_ips": views, "count": len(views)})
}
