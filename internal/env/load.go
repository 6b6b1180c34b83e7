package env

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Load reads a .env file if one is present. Production deployments set
// variables directly.
func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set directly.")
	}
}

// MustGet returns the value of a required environment variable, exiting if it
// is unset.
func MustGet(key string) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		log.Fatalf("Environment variable %s not set", key)
	}
	return val
}

// Get returns the value of an environment variable, or fallback if unset or
// empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// GetDuration parses an environment variable as a duration, falling back when
// unset or unparseable.
func GetDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		log.Printf("Invalid duration in %s: %q, using %s", key, val, fallback)
		return fallback
	}
	return d
}
