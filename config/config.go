package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Document store backends.
const (
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendMemory    = "memory"
)

// Config is the runtime configuration read from the environment.
type Config struct {
	Port              string
	Backend           string
	DatabaseURL       string
	FirebaseProjectID string
	Credentials       string
	FrontendURL       string
	DashboardURL      string
	LogLevel          string
	LogFile           string
}

func LoadEnv() error {
	// .env is optional; deployed environments set variables directly.
	if err := godotenv.Load(); err != nil {
		return nil
	}
	return nil
}

// Load reads the configuration from the environment, applying defaults.
func Load() Config {
	return Config{
		Port:              GetEnv("PORT", "8080"),
		Backend:           strings.ToLower(GetEnv("DOCSTORE_BACKEND", BackendFirestore)),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		FirebaseProjectID: os.Getenv("FIREBASE_PROJECT_ID"),
		Credentials:       os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		FrontendURL:       os.Getenv("FRONTEND_URL"),
		DashboardURL:      os.Getenv("DASHBOARD_URL"),
		LogLevel:          GetEnv("LOG_LEVEL", "info"),
		LogFile:           os.Getenv("LOG_FILE"),
	}
}

// ValidateEnv checks that critical environment variables are set for the
// selected backend. Returns an error if any critical variable is missing.
func ValidateEnv() error {
	cfg := Load()
	var missing []string

	if os.Getenv("JWT_SECRET") == "" {
		missing = append(missing, "JWT_SECRET")
	}
	switch cfg.Backend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case BackendFirestore:
		if cfg.FirebaseProjectID == "" {
			missing = append(missing, "FIREBASE_PROJECT_ID")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown DOCSTORE_BACKEND %q", cfg.Backend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("critical environment variables not set: %v", missing)
	}

	// Non-critical variables - log warnings but don't fail
	if cfg.Backend == BackendFirestore && cfg.Credentials == "" {
		logrus.Warn("GOOGLE_APPLICATION_CREDENTIALS not set - falling back to application default credentials")
	}
	if cfg.Backend == BackendMemory {
		logrus.Warn("DOCSTORE_BACKEND=memory - data is lost on restart")
	}
	if cfg.FrontendURL == "" {
		logrus.Warn("FRONTEND_URL not set - CORS may not work correctly")
	}
	if cfg.DashboardURL == "" {
		logrus.Warn("DASHBOARD_URL not set")
	}

	return nil
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
