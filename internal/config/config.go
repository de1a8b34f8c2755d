package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"FILEHOST_SERVER_"`
	Database  DatabaseConfig  `yaml:"database" envPrefix:"FILEHOST_DB_"`
	Storage   StorageConfig   `yaml:"storage" envPrefix:"FILEHOST_STORAGE_"`
	Upload    UploadConfig    `yaml:"upload" envPrefix:"FILEHOST_UPLOAD_"`
	Auth      AuthConfig      `yaml:"auth" envPrefix:"FILEHOST_AUTH_"`
	Cleanup   CleanupConfig   `yaml:"cleanup" envPrefix:"FILEHOST_CLEANUP_"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envPrefix:"FILEHOST_RATE_LIMIT_"`
	Log       LogConfig       `yaml:"log" envPrefix:"FILEHOST_LOG_"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" env:"PORT"`
	Host         string        `yaml:"host" env:"HOST"`
	PublicURL    string        `yaml:"public_url" env:"PUBLIC_URL"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `yaml:"driver" env:"DRIVER"` // postgres or memory
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	DBName   string `yaml:"dbname" env:"NAME"`
	SSLMode  string `yaml:"sslmode" env:"SSLMODE"`
	MaxConns int32  `yaml:"max_conns" env:"MAX_CONNS"`
}

// StorageConfig selects and configures the binary content backend
type StorageConfig struct {
	Driver   string      `yaml:"driver" env:"DRIVER"`
	LocalDir string      `yaml:"local_dir" env:"LOCAL_DIR"`
	AWS      AWSConfig   `yaml:"aws" envPrefix:"AWS_"`
	Minio    MinioConfig `yaml:"minio" envPrefix:"MINIO_"`
}

// AWSConfig holds AWS configuration
type AWSConfig struct {
	Region    string `yaml:"region" env:"REGION"`
	S3Bucket  string `yaml:"s3_bucket" env:"BUCKET"`
	AccessKey string `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
	Endpoint  string `yaml:"endpoint" env:"ENDPOINT"` // S3-compatible providers (R2 and friends)
	PathStyle bool   `yaml:"path_style" env:"PATH_STYLE"`
}

// MinioConfig holds MinIO configuration
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint" env:"ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"BUCKET"`
	UseSSL    bool   `yaml:"use_ssl" env:"USE_SSL"`
}

// UploadConfig limits what tenants may upload
type UploadConfig struct {
	MaxSize           string   `yaml:"max_size" env:"MAX_SIZE"`
	AllowedImageTypes []string `yaml:"allowed_image_types" env:"ALLOWED_IMAGE_TYPES" envSeparator:","`
	AllowedFileTypes  []string `yaml:"allowed_file_types" env:"ALLOWED_FILE_TYPES" envSeparator:","`

	maxBytes int64
}

// MaxBytes returns the parsed upload limit.
func (u *UploadConfig) MaxBytes() int64 {
	return u.maxBytes
}

// AuthConfig holds the admin key and the share-token signing secret
type AuthConfig struct {
	AdminKey    string `yaml:"admin_key" env:"ADMIN_KEY"`
	ShareSecret string `yaml:"share_secret" env:"SHARE_SECRET"`
}

// CleanupConfig schedules the expired share token sweep
type CleanupConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	At       string `yaml:"at" env:"AT"`
	Timezone string `yaml:"timezone" env:"TIMEZONE"`
}

// RateLimitConfig holds per-tenant request limits
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" env:"REQUESTS_PER_MINUTE"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Default returns the configuration used when no file or environment overrides are present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			PublicURL:    "http://localhost:8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			DBName:   "filehost",
			SSLMode:  "disable",
			MaxConns: 10,
		},
		Storage: StorageConfig{
			Driver:   "local",
			LocalDir: "./data/uploads",
			AWS:      AWSConfig{Region: "us-east-1"},
		},
		Upload: UploadConfig{
			MaxSize:           "10MB",
			AllowedImageTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		},
		Cleanup: CleanupConfig{
			Enabled:  true,
			At:       "03:00",
			Timezone: "UTC",
		},
		RateLimit: RateLimitConfig{RequestsPerMinute: 120},
		Log:       LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads configuration from a YAML file, then .env, then the process environment.
// A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and derives parsed values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: invalid port %d", c.Server.Port)
	}
	c.Server.PublicURL = strings.TrimRight(c.Server.PublicURL, "/")

	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("database.driver: unknown driver %q", c.Database.Driver)
	}

	switch c.Storage.Driver {
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir: required for local driver")
		}
	case "s3":
		if c.Storage.AWS.S3Bucket == "" {
			return fmt.Errorf("storage.aws.s3_bucket: required for s3 driver")
		}
	case "minio":
		if c.Storage.Minio.Endpoint == "" || c.Storage.Minio.Bucket == "" {
			return fmt.Errorf("storage.minio: endpoint and bucket are required for minio driver")
		}
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}

	size, err := humanize.ParseBytes(c.Upload.MaxSize)
	if err != nil {
		return fmt.Errorf("upload.max_size: %w", err)
	}
	if size == 0 {
		return fmt.Errorf("upload.max_size: must be greater than zero")
	}
	c.Upload.maxBytes = int64(size)

	if c.Cleanup.Enabled {
		if _, err := time.Parse("15:04", c.Cleanup.At); err != nil {
			return fmt.Errorf("cleanup.at: expected HH:MM, got %q", c.Cleanup.At)
		}
		if _, err := time.LoadLocation(c.Cleanup.Timezone); err != nil {
			return fmt.Errorf("cleanup.timezone: %w", err)
		}
	}

	if c.Auth.ShareSecret == "" {
		return fmt.Errorf("auth.share_secret: required")
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("rate_limit.requests_per_minute: must not be negative")
	}
	return nil
}

// CleanupLocation returns the timezone the sweep schedule is expressed in.
func (c *CleanupConfig) CleanupLocation() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
