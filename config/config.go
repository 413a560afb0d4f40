package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/pharmap/pharmap-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// Config holds application configuration values
type Config struct {
	ServerPort    string
	JWTSecret     string
	JWTExpiration time.Duration

	DatabaseDir  string
	DatabaseFile string

	// Google Places (New) credentials and endpoint. PlacesBaseURL is
	// overridable so tests can point the client at a fake server.
	PlacesAPIKey  string
	PlacesBaseURL string

	SignupCredits      int
	ActiveIPTTL        time.Duration
	MaxAreaKm2         float64
	RateLimitPerMinute int
}

// LoadConfig loads configuration from environment variables.
// It uses a .env file for local development if present (ignores it for production).
func LoadConfig() (*Config, error) {
	customLog.Println("Loading configuration from environment variables...")

	// Attempt to load .env file if in development environment (skip in production)
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			customLog.Warnf("Warning: Error loading .env file: %v", err)
		}
	}

	port := getEnv("SERVER_PORT", "8080")
	jwtSecret := os.Getenv("JWT_SECRET") // No sensible default for secret!
	jwtExpHoursStr := getEnv("JWT_EXPIRATION_HOURS", "24")
	dbDir := getEnv("DATABASE_DIRECTORY", "data")
	dbFile := getEnv("DATABASE_FILE", "pharmacy.db")
	placesKey := os.Getenv("PLACES_API_KEY")
	placesURL := getEnv("PLACES_BASE_URL", "https://places.googleapis.com/v1/places:searchNearby")
	signupCreditsStr := getEnv("SIGNUP_CREDITS", "10")
	ipTTLHoursStr := getEnv("ACTIVE_IP_TTL_HOURS", "24")
	maxAreaStr := getEnv("MAX_AREA_KM2", "4.0")
	rateLimitStr := getEnv("RATE_LIMIT_PER_MINUTE", "60")

	// Critical: Ensure JWT Secret is set
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable must be set")
	}
	if jwtSecret == "!!replace_this_with_a_real_secret_key!!" {
		customLog.Warnln("WARNING: JWT_SECRET is set to the default placeholder!")
	}

	jwtExpHours, err := strconv.Atoi(jwtExpHoursStr)
	if err != nil || jwtExpHours <= 0 {
		customLog.Warnf("Invalid JWT_EXPIRATION_HOURS '%s'. Using default 24h. Error: %v", jwtExpHoursStr, err)
		jwtExpHours = 24
	}

	signupCredits, err := strconv.Atoi(signupCreditsStr)
	if err != nil || signupCredits < 0 {
		customLog.Warnf("Invalid SIGNUP_CREDITS '%s'. Using default 10. Error: %v", signupCreditsStr, err)
		signupCredits = 10
	}

	ipTTLHours, err := strconv.Atoi(ipTTLHoursStr)
	if err != nil || ipTTLHours <= 0 {
		customLog.Warnf("Invalid ACTIVE_IP_TTL_HOURS '%s'. Using default 24h. Error: %v", ipTTLHoursStr, err)
		ipTTLHours = 24
	}

	maxArea, err := strconv.ParseFloat(maxAreaStr, 64)
	if err != nil || maxArea <= 0 {
		customLog.Warnf("Invalid MAX_AREA_KM2 '%s'. Using default 4.0. Error: %v", maxAreaStr, err)
		maxArea = 4.0
	}

	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil || rateLimit <= 0 {
		customLog.Warnf("Invalid RATE_LIMIT_PER_MINUTE '%s'. Using default 60. Error: %v", rateLimitStr, err)
		rateLimit = 60
	}

	cfg := &Config{
		ServerPort:         port,
		JWTSecret:          jwtSecret,
		JWTExpiration:      time.Hour * time.Duration(jwtExpHours),
		DatabaseDir:        dbDir,
		DatabaseFile:       dbFile,
		PlacesAPIKey:       placesKey,
		PlacesBaseURL:      placesURL,
		SignupCredits:      signupCredits,
		ActiveIPTTL:        time.Hour * time.Duration(ipTTLHours),
		MaxAreaKm2:         maxArea,
		RateLimitPerMinute: rateLimit,
	}

	customLog.Printf("Configuration loaded successfully. Port: %s, JWT Exp: %v, IP TTL: %v",
		cfg.ServerPort, cfg.JWTExpiration, cfg.ActiveIPTTL)
	return cfg, nil
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
