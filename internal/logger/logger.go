// internal/logger/logger.go
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a logrus logger configured for the application.
// Handlers and middleware keep a package-level instance (customLog).
func NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	if os.Getenv("APP_ENV") == "production" {
		log.SetLevel(logrus.InfoLevel)
	} else {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}
