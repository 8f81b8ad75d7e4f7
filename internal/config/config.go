package config

import (
	"os"
	"strings"
)

// Config holds everything the server reads from the environment.
type Config struct {
	HTTPAddr    string
	DSN         string
	JWTSecret   string
	CORSOrigins []string
}

// Load reads the configuration from environment variables, falling back to
// local development defaults. The DSN must carry parseTime=true (we scan
// DATETIME columns into time.Time) and multiStatements=true (the migration
// files contain more than one statement).
func Load() Config {
	cfg := Config{
		HTTPAddr:  getenv("HTTP_ADDR", ":8080"),
		DSN:       getenv("DB_DSN", "root:@tcp(127.0.0.1:3306)/farmdirect?parseTime=true&multiStatements=true"),
		JWTSecret: getenv("JWT_SECRET", "dev-only-insecure-secret"),
	}

	origins := getenv("CORS_ORIGINS", "http://localhost:5173")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
