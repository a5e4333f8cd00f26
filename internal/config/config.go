package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	JWT      JWTConfig
	S3       S3Config
	Log      LogConfig
	CORS     CORSConfig
	Queue    QueueConfig
	Pipeline PipelineConfig
	Email    EmailConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
	AdminAPIKey  string        `mapstructure:"admin_api_key"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds JWT signing and expiry settings.
type JWTConfig struct {
	Secret            string        `mapstructure:"secret"`
	AccessTokenExpiry time.Duration `mapstructure:"access_expiry"`
	Issuer            string        `mapstructure:"issuer"`
}

// S3Config holds AWS S3 settings for raw payload archival.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// QueueConfig holds ingest worker settings.
type QueueConfig struct {
	PollIntervalSecs int `mapstructure:"poll_interval_secs"`
	MaxRetries       int `mapstructure:"max_retries"`
	Concurrency      int `mapstructure:"concurrency"`
	BatchSize        int `mapstructure:"batch_size"`
}

// PipelineConfig holds the global extraction and finalization policy.
// Tenants may override each value individually.
type PipelineConfig struct {
	MinConfidence         float64 `mapstructure:"min_confidence"`
	RequiredFields        string  `mapstructure:"required_fields"`
	MaxExtractionAttempts int     `mapstructure:"max_extraction_attempts"`
}

// RequiredFieldsList splits the comma-separated required-fields setting.
func (p *PipelineConfig) RequiredFieldsList() []string {
	var out []string
	for _, f := range strings.Split(p.RequiredFields, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// EmailConfig holds email delivery settings.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
	NotifyTo    string `mapstructure:"notify_to"`
}

// Load reads configuration from environment variables with the NOTAFLOW_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NOTAFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.admin_api_key", "")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "notaflow")
	v.SetDefault("db.password", "notaflow_secret")
	v.SetDefault("db.name", "notaflow_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.access_expiry", "1h")
	v.SetDefault("jwt.issuer", "notaflow")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "notaflow-uploads")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.max_file_size_mb", 50)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Queue defaults
	v.SetDefault("queue.poll_interval_secs", 10)
	v.SetDefault("queue.max_retries", 5)
	v.SetDefault("queue.concurrency", 5)
	v.SetDefault("queue.batch_size", 10)

	// Pipeline defaults
	v.SetDefault("pipeline.min_confidence", 0.75)
	v.SetDefault("pipeline.required_fields", "emission_date,issuer_tax_id,gross_total")
	v.SetDefault("pipeline.max_extraction_attempts", 2)

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.from_address", "noreply@notaflow.io")
	v.SetDefault("email.from_name", "NOTAFLOW")
	v.SetDefault("email.notify_to", "")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                      "NOTAFLOW_SERVER_PORT",
		"server.read_timeout":              "NOTAFLOW_SERVER_READ_TIMEOUT",
		"server.write_timeout":             "NOTAFLOW_SERVER_WRITE_TIMEOUT",
		"server.environment":               "NOTAFLOW_SERVER_ENVIRONMENT",
		"server.admin_api_key":             "NOTAFLOW_SERVER_ADMIN_API_KEY",
		"db.host":                          "NOTAFLOW_DB_HOST",
		"db.port":                          "NOTAFLOW_DB_PORT",
		"db.user":                          "NOTAFLOW_DB_USER",
		"db.password":                      "NOTAFLOW_DB_PASSWORD",
		"db.name":                          "NOTAFLOW_DB_NAME",
		"db.sslmode":                       "NOTAFLOW_DB_SSLMODE",
		"db.max_open":                      "NOTAFLOW_DB_MAX_OPEN",
		"db.max_idle":                      "NOTAFLOW_DB_MAX_IDLE",
		"jwt.secret":                       "NOTAFLOW_JWT_SECRET",
		"jwt.access_expiry":                "NOTAFLOW_JWT_ACCESS_EXPIRY",
		"jwt.issuer":                       "NOTAFLOW_JWT_ISSUER",
		"s3.region":                        "NOTAFLOW_S3_REGION",
		"s3.bucket":                        "NOTAFLOW_S3_BUCKET",
		"s3.endpoint":                      "NOTAFLOW_S3_ENDPOINT",
		"s3.access_key":                    "NOTAFLOW_S3_ACCESS_KEY",
		"s3.secret_key":                    "NOTAFLOW_S3_SECRET_KEY",
		"s3.max_file_size_mb":              "NOTAFLOW_S3_MAX_FILE_SIZE_MB",
		"log.level":                        "NOTAFLOW_LOG_LEVEL",
		"log.format":                       "NOTAFLOW_LOG_FORMAT",
		"cors.allowed_origins":             "NOTAFLOW_CORS_ALLOWED_ORIGINS",
		"queue.poll_interval_secs":         "NOTAFLOW_QUEUE_POLL_INTERVAL_SECS",
		"queue.max_retries":                "NOTAFLOW_QUEUE_MAX_RETRIES",
		"queue.concurrency":                "NOTAFLOW_QUEUE_CONCURRENCY",
		"queue.batch_size":                 "NOTAFLOW_QUEUE_BATCH_SIZE",
		"pipeline.min_confidence":          "NOTAFLOW_PIPELINE_MIN_CONFIDENCE",
		"pipeline.required_fields":         "NOTAFLOW_PIPELINE_REQUIRED_FIELDS",
		"pipeline.max_extraction_attempts": "NOTAFLOW_PIPELINE_MAX_EXTRACTION_ATTEMPTS",
		"email.provider":                   "NOTAFLOW_EMAIL_PROVIDER",
		"email.region":                     "NOTAFLOW_EMAIL_REGION",
		"email.from_address":               "NOTAFLOW_EMAIL_FROM_ADDRESS",
		"email.from_name":                  "NOTAFLOW_EMAIL_FROM_NAME",
		"email.notify_to":                  "NOTAFLOW_EMAIL_NOTIFY_TO",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if NOTAFLOW_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("NOTAFLOW_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
		AdminAPIKey:  v.GetString("server.admin_api_key"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.JWT = JWTConfig{
		Secret:            v.GetString("jwt.secret"),
		AccessTokenExpiry: v.GetDuration("jwt.access_expiry"),
		Issuer:            v.GetString("jwt.issuer"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.Queue = QueueConfig{
		PollIntervalSecs: v.GetInt("queue.poll_interval_secs"),
		MaxRetries:       v.GetInt("queue.max_retries"),
		Concurrency:      v.GetInt("queue.concurrency"),
		BatchSize:        v.GetInt("queue.batch_size"),
	}

	cfg.Pipeline = PipelineConfig{
		MinConfidence:         v.GetFloat64("pipeline.min_confidence"),
		RequiredFields:        v.GetString("pipeline.required_fields"),
		MaxExtractionAttempts: v.GetInt("pipeline.max_extraction_attempts"),
	}

	cfg.Email = EmailConfig{
		Provider:    v.GetString("email.provider"),
		Region:      v.GetString("email.region"),
		FromAddress: v.GetString("email.from_address"),
		FromName:    v.GetString("email.from_name"),
		NotifyTo:    v.GetString("email.notify_to"),
	}

	return cfg, nil
}
