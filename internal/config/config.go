package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type DatabaseType string

const (
	MongoDB DatabaseType = "mongodb"
	SQLite  DatabaseType = "sqlite"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	defaultPort          = "3000"
	defaultSessionMaxAge = 86400 * 30 // 30 days
	minSessionSecretLen  = 32
)

type Config struct {
	DatabaseType DatabaseType
	DatabaseName string
	// MongoDB config
	MongoURI string
	// SQLite config
	SQLitePath string
	// Session config
	SessionSecret []byte
	SessionMaxAge int
	CookieSecure  bool
	// Common configs
	Env  string
	Port string
}

// IsDevelopment reports whether verbose error pages may be shown
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// LoadConfig reads the .env file (if any) and the process environment
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only
func FromEnv() (*Config, error) {
	databaseName := os.Getenv("DATABASE_NAME")
	if databaseName == "" {
		return nil, fmt.Errorf("DATABASE_NAME is not set in .env file")
	}

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is not set in .env file")
	}
	if len(sessionSecret) < minSessionSecretLen {
		return nil, fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLen)
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = EnvDevelopment
	}
	if env != EnvDevelopment && env != EnvProduction {
		return nil, fmt.Errorf("unsupported APP_ENV: %s", env)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	maxAge := defaultSessionMaxAge
	if v := os.Getenv("SESSION_MAX_AGE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid SESSION_MAX_AGE: %s", v)
		}
		maxAge = n
	}

	cookieSecure := env == EnvProduction
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid COOKIE_SECURE: %s", v)
		}
		cookieSecure = b
	}

	// Determine database type
	dbType := os.Getenv("DATABASE_TYPE")
	if dbType == "" {
		dbType = string(SQLite) // Default to SQLite
	}

	config := &Config{
		DatabaseType:  DatabaseType(dbType),
		DatabaseName:  databaseName,
		SessionSecret: []byte(sessionSecret),
		SessionMaxAge: maxAge,
		CookieSecure:  cookieSecure,
		Env:           env,
		Port:          port,
	}

	// Configure based on database type
	switch config.DatabaseType {
	case MongoDB:
		mongoURI := os.Getenv("MONGODB_URI")
		if mongoURI == "" {
			return nil, fmt.Errorf("MONGODB_URI is not set in .env file")
		}
		config.MongoURI = mongoURI
	case SQLite:
		sqlitePath := os.Getenv("SQLITE_PATH")
		if sqlitePath == "" {
			// Default to a data directory in the current directory
			sqlitePath = filepath.Join("data", fmt.Sprintf("%s.db", databaseName))
		}
		config.SQLitePath = sqlitePath
	default:
		return nil, fmt.Errorf("unsupported DATABASE_TYPE: %s", dbType)
	}

	return config, nil
}
