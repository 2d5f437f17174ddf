package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

type Config struct {
	Env         string   `yaml:"env"`
	Port        string   `yaml:"port"`
	BindAddress string   `yaml:"bind_address"`
	APIPrefix   string   `yaml:"api_prefix"`
	LogLevel    string   `yaml:"log_level"`
	CORSOrigins []string `yaml:"cors_origins"`

	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Email    EmailConfig    `yaml:"email"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

type DatabaseConfig struct {
	Driver     string `yaml:"driver"` // postgres or sqlite
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Name       string `yaml:"name"`
	SQLitePath string `yaml:"sqlite_path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"`
	AccessTTL      time.Duration `yaml:"access_ttl"`
	EmailTokenTTL  time.Duration `yaml:"email_token_ttl"`
	GoogleClientID string        `yaml:"google_client_id"`
}

type EmailConfig struct {
	Provider       string `yaml:"provider"` // log or ses
	Sender         string `yaml:"sender"`
	Region         string `yaml:"region"`
	DevelopmentURL string `yaml:"development_url"`
	ProductionURL  string `yaml:"production_url"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"` // stdout or otlp
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
	ServiceName string  `yaml:"service_name"`
}

func defaults() *Config {
	return &Config{
		Env:         "development",
		Port:        "8080",
		BindAddress: "",
		APIPrefix:   "/api/v1",
		LogLevel:    "info",
		CORSOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		Database: DatabaseConfig{
			Driver:     "postgres",
			Host:       "localhost",
			Port:       "5432",
			User:       "quicklearner",
			Password:   "quicklearner",
			Name:       "quicklearner",
			SQLitePath: "quicklearner.db",
		},
		Redis: RedisConfig{
			Enabled: true,
			Host:    "localhost",
			Port:    "6379",
		},
		Auth: AuthConfig{
			JWTSecret:     defaultJWTSecret,
			AccessTTL:     7 * 24 * time.Hour,
			EmailTokenTTL: 24 * time.Hour,
		},
		Email: EmailConfig{
			Provider:       "log",
			Region:         "ap-southeast-2",
			DevelopmentURL: "http://localhost:3000",
		},
		Tracing: TracingConfig{
			Exporter:    "stdout",
			SampleRatio: 0.1,
			ServiceName: "quicklearner",
		},
	}
}

// Load builds the configuration once at startup: defaults, then the YAML file
// named by CONFIG_FILE (if any), then environment variables. A .env file in
// the working directory is loaded into the environment first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Env = getEnv("APP_ENV", c.Env)
	c.Port = getEnv("PORT", c.Port)
	c.BindAddress = getEnv("BIND_ADDRESS", c.BindAddress)
	c.APIPrefix = getEnv("API_PREFIX", c.APIPrefix)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.CORSOrigins = getEnvList("CORS_ORIGINS", c.CORSOrigins)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.SQLitePath = getEnv("SQLITE_PATH", c.Database.SQLitePath)

	c.Redis.Enabled = getEnvBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnv("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.AccessTTL = getEnvDuration("ACCESS_TOKEN_TTL", c.Auth.AccessTTL)
	c.Auth.EmailTokenTTL = getEnvDuration("EMAIL_TOKEN_TTL", c.Auth.EmailTokenTTL)
	c.Auth.GoogleClientID = getEnv("GOOGLE_CLIENT_ID", c.Auth.GoogleClientID)

	c.Email.Provider = getEnv("EMAIL_PROVIDER", c.Email.Provider)
	c.Email.Sender = getEnv("SENDER_EMAIL_ADDRESS", c.Email.Sender)
	c.Email.Region = getEnv("SES_REGION", c.Email.Region)
	c.Email.DevelopmentURL = getEnv("DEVELOPMENT_URL", c.Email.DevelopmentURL)
	c.Email.ProductionURL = getEnv("PRODUCTION_URL", c.Email.ProductionURL)

	c.Tracing.Enabled = getEnvBool("OTEL_ENABLED", c.Tracing.Enabled)
	c.Tracing.Exporter = getEnv("OTEL_EXPORTER", c.Tracing.Exporter)
	c.Tracing.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Tracing.Endpoint)
	c.Tracing.SampleRatio = getEnvFloat("OTEL_SAMPLER_RATIO", c.Tracing.SampleRatio)
	c.Tracing.ServiceName = getEnv("OTEL_SERVICE_NAME", c.Tracing.ServiceName)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.IsProduction() && c.Auth.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Email.Provider {
	case "log", "ses":
	default:
		return fmt.Errorf("unsupported EMAIL_PROVIDER %q", c.Email.Provider)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// FrontendURL is the base used for links in outgoing emails.
func (c *Config) FrontendURL() string {
	if c.IsProduction() {
		return c.Email.ProductionURL
	}
	return c.Email.DevelopmentURL
}

func (c *Config) Addr() string {
	return c.BindAddress + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.SQLitePath)
	default:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Port)
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
		NowFunc:        UTCNow,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// UTCNow stamps rows in UTC so sqlite's text timestamps compare correctly.
func UTCNow() time.Time {
	return time.Now().UTC()
}

// InitRedis returns nil when redis is disabled.
func InitRedis(cfg *Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
