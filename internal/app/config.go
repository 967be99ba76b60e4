package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr              string
	UpstreamBaseURL       string
	ListingTimeoutSeconds int64
	StreamTimeoutSeconds  int64
	LogLevel              string
	LogFormat             string
	CORSAllowedOrigins    []string
	OpenAPIPath           string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		UpstreamBaseURL:       strings.TrimSpace(getEnv("UPSTREAM_BASE_URL", "")),
		ListingTimeoutSeconds: getEnvInt64("LISTING_TIMEOUT_SECONDS", 10),
		StreamTimeoutSeconds:  getEnvInt64("STREAM_TIMEOUT_SECONDS", 30),
		LogLevel:              strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:             strings.ToLower(getEnv("LOG_FORMAT", "text")),
		CORSAllowedOrigins:    parseCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
		OpenAPIPath:           getEnv("OPENAPI_PATH", ""),
	}
}

// Validate rejects configurations the proxy cannot start with. The upstream
// base URL is the only setting without a usable default.
func (c Config) Validate() error {
	if c.UpstreamBaseURL == "" {
		return errors.New("UPSTREAM_BASE_URL is required")
	}
	u, err := url.Parse(c.UpstreamBaseURL)
	if err != nil {
		return fmt.Errorf("UPSTREAM_BASE_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("UPSTREAM_BASE_URL: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("UPSTREAM_BASE_URL: host is required")
	}
	return nil
}

// parseCSV splits a comma-separated value, trimming whitespace and dropping
// empty entries. Returns nil for an empty input.
func parseCSV(raw string) []string {
	var values []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		values = append(values, part)
	}
	return values
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}
