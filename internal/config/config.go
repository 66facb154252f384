package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port         int               `yaml:"port" validate:"min=1,max=65535"`
		ReadTimeout  time.Duration     `yaml:"readTimeout"`
		WriteTimeout time.Duration     `yaml:"writeTimeout"`
		CORSOrigins  []string          `yaml:"corsOrigins"`
		APIKeys      map[string]string `yaml:"apiKeys" validate:"dive,required"` // tenant -> key
		RateLimit    struct {
			RPS   float64 `yaml:"rps" validate:"gte=0"`
			Burst int     `yaml:"burst" validate:"gte=0"`
		} `yaml:"rateLimit"`
		MaxBodyBytes int64 `yaml:"maxBodyBytes" validate:"gte=0"`
	} `yaml:"server"`

	Log struct {
		Mode string `yaml:"mode" validate:"omitempty,oneof=dev development prod production"`
	} `yaml:"log"`

	Database struct {
		Driver   string `yaml:"driver" validate:"oneof=mysql postgres sqlite"`
		Host     string `yaml:"host" validate:"required_unless=Driver sqlite"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name" validate:"required_unless=Driver sqlite"`
		Path     string `yaml:"path" validate:"required_if=Driver sqlite"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint      string        `yaml:"endpoint"` // empty disables uploads and object keys
		AccessKey     string        `yaml:"accessKey"`
		SecretKey     string        `yaml:"secretKey"`
		BucketName    string        `yaml:"bucketName" validate:"required_with=Endpoint"`
		Region        string        `yaml:"region"`
		UseSSL        bool          `yaml:"useSSL"`
		PresignExpiry time.Duration `yaml:"presignExpiry"`
	} `yaml:"minio"`

	AI struct {
		APIKey      string `yaml:"apiKey"`
		Model       string `yaml:"model"`
		BaseURL     string `yaml:"baseURL" validate:"omitempty,url"`
		MaxTokens   int    `yaml:"maxTokens" validate:"gte=0"`
		MaxAttempts int    `yaml:"maxAttempts" validate:"gte=1,lte=10"`
	} `yaml:"ai"`

	Pipeline struct {
		PreviewLimit   int      `yaml:"previewLimit" validate:"gte=0"`
		DeepRepair     bool     `yaml:"deepRepair"`
		FallbackTokens []string `yaml:"fallbackTokens" validate:"omitempty,max=7,dive,required"`
	} `yaml:"pipeline"`
}

// Load baca .env (kalau ada) lalu file config.yaml
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML config, applies env overrides and defaults, then validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&c.AI.APIKey, "OPENAI_API_KEY")
	override(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	override(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	override(&c.Database.Password, "DB_PASSWORD")
	override(&c.Log.Mode, "LOG_MODE")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// model calls with retries run inside the request
		c.Server.WriteTimeout = 120 * time.Second
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Port == 0 {
		switch c.Database.Driver {
		case "mysql":
			c.Database.Port = 3306
		case "postgres":
			c.Database.Port = 5432
		}
	}
	if c.Minio.PresignExpiry == 0 {
		c.Minio.PresignExpiry = 15 * time.Minute
	}
	if c.AI.Model == "" {
		c.AI.Model = "gpt-4o-mini"
	}
	if c.AI.MaxTokens == 0 {
		c.AI.MaxTokens = 2048
	}
	if c.AI.MaxAttempts == 0 {
		c.AI.MaxAttempts = 2
	}
}

// DSN builds the connection string for the configured driver.
func (c *Config) DSN() string {
	switch c.Database.Driver {
	case "postgres":
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.Database.User, c.Database.Password),
			Host:   fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
			Path:   "/" + c.Database.Name,
		}
		sslMode := c.Database.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		u.RawQuery = "sslmode=" + url.QueryEscape(sslMode)
		return u.String()
	case "sqlite":
		return "file:" + c.Database.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	default:
		return c.MySQLDSN()
	}
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}
