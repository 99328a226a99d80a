package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Auth   AuthConfig
	Search SearchConfig
	CORS   CORSConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// StoreConfig holds the CSV record store configuration.
type StoreConfig struct {
	DataDir      string
	ListingsFile string
	UsersFile    string
}

// AuthConfig holds login token configuration.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// SearchConfig holds semantic search configuration.
type SearchConfig struct {
	TopK int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// ListingsPath returns the full path of the listings table.
func (s StoreConfig) ListingsPath() string {
	return filepath.Join(s.DataDir, s.ListingsFile)
}

// UsersPath returns the full path of the users table.
func (s StoreConfig) UsersPath() string {
	return filepath.Join(s.DataDir, s.UsersFile)
}

// Load reads configuration from environment variables.
// It uses viper to read values and provides sensible defaults for development.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("LISTINGS_FILE", "listings.csv")
	v.SetDefault("USERS_FILE", "users.csv")
	v.SetDefault("JWT_SECRET", "dev-secret-change-me")
	v.SetDefault("JWT_TTL_HOURS", 24)
	v.SetDefault("SEARCH_TOP_K", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5000")

	// Bind environment variables
	v.AutomaticEnv()

	// Build configuration
	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Store: StoreConfig{
			DataDir:      v.GetString("DATA_DIR"),
			ListingsFile: v.GetString("LISTINGS_FILE"),
			UsersFile:    v.GetString("USERS_FILE"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			TokenTTL:  time.Duration(v.GetInt("JWT_TTL_HOURS")) * time.Hour,
		},
		Search: SearchConfig{
			TopK: v.GetInt("SEARCH_TOP_K"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Store.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.Store.ListingsFile == "" {
		return fmt.Errorf("LISTINGS_FILE is required")
	}
	if c.Store.UsersFile == "" {
		return fmt.Errorf("USERS_FILE is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL_HOURS must be positive")
	}

	if c.Search.TopK < 1 {
		return fmt.Errorf("SEARCH_TOP_K must be at least 1")
	}

	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
