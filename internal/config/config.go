package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port     int    `yaml:"port"`
		Env      string `yaml:"env"`
		TimeZone string `yaml:"timeZone"`
	} `yaml:"server"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Auth struct {
		JWTSecret string        `yaml:"jwtSecret"`
		TokenTTL  time.Duration `yaml:"tokenTTL"`
		Issuer    string        `yaml:"issuer"`
	} `yaml:"auth"`

	AI struct {
		// Provider is "mock" or "openai".
		Provider string `yaml:"provider"`
		APIKey   string `yaml:"apiKey"`
		Model    string `yaml:"model"`
	} `yaml:"ai"`

	Realtime struct {
		// Driver is "memory", "postgres" or "redis".
		Driver  string `yaml:"driver"`
		Channel string `yaml:"channel"`
	} `yaml:"realtime"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Processing struct {
		Delay       time.Duration `yaml:"delay"`
		FailureRate float64       `yaml:"failureRate"`
	} `yaml:"processing"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"`
	} `yaml:"rateLimit"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Web struct {
		Root           string   `yaml:"root"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"web"`
}

// Load baca file config.yaml, lalu override dari env (.env kalau ada)
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// .env is optional
	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	str := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	num := func(dst *int, key string) {
		if v, ok := os.LookupEnv(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	num(&c.Server.Port, "PORT")
	str(&c.Server.Env, "APP_ENV")
	str(&c.Server.TimeZone, "APP_TIMEZONE")
	str(&c.Database.Host, "DB_HOST")
	num(&c.Database.Port, "DB_PORT")
	str(&c.Database.User, "DB_USER")
	str(&c.Database.Password, "DB_PASSWORD")
	str(&c.Database.Name, "DB_NAME")
	str(&c.Minio.Endpoint, "MINIO_ENDPOINT")
	str(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	str(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	str(&c.Auth.JWTSecret, "JWT_SECRET")
	str(&c.AI.Provider, "AI_PROVIDER")
	str(&c.AI.APIKey, "OPENAI_API_KEY")
	str(&c.AI.Model, "OPENAI_MODEL")
	str(&c.Realtime.Driver, "REALTIME_DRIVER")
	str(&c.Redis.Addr, "REDIS_ADDR")
	str(&c.Redis.Password, "REDIS_PASSWORD")
	str(&c.Log.Level, "LOG_LEVEL")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.Server.TimeZone == "" {
		c.Server.TimeZone = "UTC"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Minio.BucketName == "" {
		c.Minio.BucketName = "documents"
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = time.Hour
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "balancesheet-gpt"
	}
	if c.AI.Provider == "" {
		c.AI.Provider = "mock"
	}
	if c.Realtime.Driver == "" {
		c.Realtime.Driver = "memory"
	}
	if c.Realtime.Channel == "" {
		c.Realtime.Channel = "table_changes"
	}
	if c.Processing.Delay == 0 {
		c.Processing.Delay = 2 * time.Second
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = 100
	}
	if c.RateLimit.RefillRate == 0 {
		c.RateLimit.RefillRate = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwtSecret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwtSecret must be at least 32 characters")
	}
	switch c.AI.Provider {
	case "mock":
	case "openai":
		if c.AI.APIKey == "" {
			return fmt.Errorf("ai.apiKey is required for the openai provider")
		}
	default:
		return fmt.Errorf("unknown ai.provider %q", c.AI.Provider)
	}
	if _, err := time.LoadLocation(c.Server.TimeZone); err != nil {
		return fmt.Errorf("invalid server.timeZone %q: %w", c.Server.TimeZone, err)
	}
	if c.Processing.FailureRate < 0 || c.Processing.FailureRate > 1 {
		return fmt.Errorf("processing.failureRate must be between 0 and 1")
	}
	switch c.Realtime.Driver {
	case "memory", "postgres":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis realtime driver")
		}
	default:
		return fmt.Errorf("unknown realtime.driver %q", c.Realtime.Driver)
	}
	return nil
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool { return c.Server.Env == "production" }

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}
