// api/middleware/error_handler.go
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10" // Import validator for binding errors

	"github.com/pharmap/pharmap-backend/internal/auth"
	"github.com/pharmap/pharmap-backend/internal/storage"
)

// ErrorHandler creates a Gin middleware for centralized error handling.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request using subsequent handlers
		c.Next()

		// Check if any errors were attached during handler execution
		if len(c.Errors) == 0 {
			return // No errors, nothing to do
		}

		// We only handle the last error for the response.
		err := c.Errors.Last().Err
		customLog.Printf("[ErrorHandler] Detected error: %v | Type: %T", err, err)

		// --- Map error to HTTP status code and user message ---
		var statusCode int
		var userMessage string

		switch {
		case errors.Is(err, storage.ErrUserNotFound),
			errors.Is(err, storage.ErrSearchNotFound),
			errors.Is(err, storage.ErrPharmacyNotFound),
			errors.Is(err, storage.ErrLinkTargetNotFound):
			statusCode = http.StatusNotFound
			userMessage = err.Error()
		case errors.Is(err, storage.ErrUsernameExists),
			errors.Is(err, storage.ErrSearchNameTaken),
			errors.Is(err, storage.ErrAlreadyLinked):
			statusCode = http.StatusConflict
			userMessage = err.Error()
		case errors.Is(err, storage.ErrInvalidCredentials):
			statusCode = http.StatusUnauthorized
			userMessage = err.Error()
		case errors.Is(err, storage.ErrInsufficientCredits):
			statusCode = http.StatusPaymentRequired
			userMessage = err.Error()
		case errors.Is(err, auth.ErrTokenMalformed),
			errors.Is(err, auth.ErrTokenInvalid),
			errors.Is(err, auth.ErrTokenClaimsInvalid),
			errors.Is(err, auth.ErrUnexpectedSigningMethod):
			statusCode = http.StatusUnauthorized
			userMessage = "Invalid or malformed authentication token."
		case errors.Is(err, auth.ErrTokenExpired):
			statusCode = http.StatusUnauthorized
			userMessage = "Authentication token has expired."
		case errors.Is(err, auth.ErrAdminRequired):
			statusCode = http.StatusForbidden
			userMessage = err.Error()
		default:
			if validationErrs, ok := err.(validator.ValidationErrors); ok {
				// Handle validation errors from c.ShouldBindJSON
				statusCode = http.StatusBadRequest
				userMessage = "Validation failed. Please check your input."
				for _, fe := range validationErrs {
					customLog.Printf("Validation Error: Field %s failed on %s", fe.Field(), fe.Tag())
				}
				break
			}
			// Assume internal server error for unexpected types
			statusCode = http.StatusInternalServerError
			userMessage = "An unexpected internal server error occurred."
			customLog.Printf("Unhandled error type: %T, Error: %v", err, err)
		}

		// Abort execution and send JSON response
		if !c.Writer.Written() {
			c.AbortWithStatusJSON(statusCode, gin.H{"error": userMessage})
		} else {
			customLog.Printf("[ErrorHandler] Warning: Response already written before handling error.")
		}
	}
}
