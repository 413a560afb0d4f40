// api/middleware/active_ip.go
package middleware

import (
	"database/sql"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pharmap/pharmap-backend/internal/core"
	"github.com/pharmap/pharmap-backend/internal/storage"
)

// ActiveIPTracker persists each client address as active for the
// configured TTL. Repeated requests slide the window forward (the
// storage upsert replaces the existing row). Tracking failures never
// block the request.
func ActiveIPTracker(db *sql.DB, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := getIP(c)
		if core.IsValidIP(ip) {
			now := time.Now().UTC()
			if err := storage.UpsertActiveIP(c.Request.Context(), db, ip, now, now.Add(ttl)); err != nil {
				customLog.Warnf("ActiveIPTracker: failed to record %s: %v", ip, err)
			}
		}
		c.Next()
	}
}
