package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cart     CartConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Catalog  CatalogConfig
	Line     LineConfig
	Checkout CheckoutConfig
	S3       S3Config
}

type ServerConfig struct {
	Port          string
	GinMode       string
	Environment   string
	PublicBaseURL string // 매직 링크, 리다이렉트 생성에 사용
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// CartStore selects the Cart Store driver.
type CartStore string

const (
	CartStorePostgres CartStore = "postgres"
	CartStoreRedis    CartStore = "redis"
)

type CartConfig struct {
	Store CartStore
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type CatalogConfig struct {
	BaseURL        string
	Timeout        time.Duration
	BreakerTimeout time.Duration
}

type LineConfig struct {
	ChannelID     string
	ChannelSecret string
	RedirectURL   string
}

type CheckoutConfig struct {
	SessionTTL time.Duration
	SweepSpec  string // cron 표현식
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:          getEnv("SERVER_PORT", "8080"),
			GinMode:       getEnv("GIN_MODE", "debug"),
			Environment:   getEnv("ENVIRONMENT", "development"),
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "kikichoice"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		Cart: CartConfig{
			Store: CartStore(getEnv("CART_STORE", string(CartStorePostgres))),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry:  parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m")),
			RefreshTokenExpiry: parseDuration(getEnv("JWT_REFRESH_TOKEN_EXPIRY", "168h")),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Catalog: CatalogConfig{
			BaseURL:        strings.TrimRight(getEnv("API_URL", "http://localhost:8000"), "/"),
			Timeout:        parseDuration(getEnv("CATALOG_TIMEOUT", "10s")),
			BreakerTimeout: parseDuration(getEnv("CATALOG_BREAKER_TIMEOUT", "30s")),
		},
		Line: LineConfig{
			ChannelID:     getEnv("LINE_CHANNEL_ID", ""),
			ChannelSecret: getEnv("LINE_CHANNEL_SECRET", ""),
			RedirectURL:   getEnv("LINE_REDIRECT_URL", "http://localhost:8080/api/v1/auth/line/callback"),
		},
		Checkout: CheckoutConfig{
			SessionTTL: parseDuration(getEnv("CHECKOUT_SESSION_TTL", "2h")),
			SweepSpec:  getEnv("CHECKOUT_SWEEP_SPEC", "*/10 * * * *"),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "ap-northeast-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", "kikichoice-uploads"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Cart.Store {
	case CartStorePostgres, CartStoreRedis:
	default:
		return fmt.Errorf("invalid CART_STORE %q: must be %q or %q", c.Cart.Store, CartStorePostgres, CartStoreRedis)
	}
	if c.Environment() == "production" && c.JWT.Secret == "your-secret-key" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

func (c *Config) Environment() string {
	return c.Server.Environment
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Enabled reports whether LINE login credentials are configured.
func (c *LineConfig) Enabled() bool {
	return c.ChannelID != "" && c.ChannelSecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default 15m", s)
		return 15 * time.Minute
	}
	return duration
}

func parseInt(s string, defaultValue int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, defaultValue)
		return defaultValue
	}
	return v
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
