// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	OTP       OTPConfig       `koanf:"otp"`
	Auth      AuthConfig      `koanf:"auth"`
	Email     EmailConfig     `koanf:"email"`
	Storage   StorageConfig   `koanf:"storage"`
	ImageGen  ImageGenConfig  `koanf:"imagegen"`
	Redesign  RedesignConfig  `koanf:"redesign"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type JWTConfig struct {
	PrivateKeyPath     string        `koanf:"private_key_path"`
	PublicKeyPath      string        `koanf:"public_key_path"`
	AccessTokenExpire  time.Duration `koanf:"access_token_expire"`
	RefreshTokenExpire time.Duration `koanf:"refresh_token_expire"`
	Issuer             string        `koanf:"issuer"`
	Audience           string        `koanf:"audience"`
}

type RateLimitConfig struct {
	Requests           int `koanf:"requests"`
	Burst              int `koanf:"burst"`
	AuthRequests       int `koanf:"auth_requests"`
	AuthBurst          int `koanf:"auth_burst"`
	GenerationRequests int `koanf:"generation_requests"`
	GenerationBurst    int `koanf:"generation_burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

type OTPConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

type AuthConfig struct {
	// ForgotPasswordMinDuration pads forgot-password responses so that
	// existing and unknown accounts take the same time to answer.
	ForgotPasswordMinDuration time.Duration `koanf:"forgot_password_min_duration"`
}

type EmailConfig struct {
	SMTPHost      string        `koanf:"smtp_host"`
	SMTPPort      int           `koanf:"smtp_port"`
	SMTPUsername  string        `koanf:"smtp_username"`
	SMTPPassword  string        `koanf:"smtp_password"`
	From          string        `koanf:"from"`
	SendTimeout   time.Duration `koanf:"send_timeout"`
	MaxConcurrent int           `koanf:"max_concurrent"`
}

type StorageConfig struct {
	Driver         string             `koanf:"driver"`
	MaxUploadBytes int64              `koanf:"max_upload_bytes"`
	Local          LocalStorageConfig `koanf:"local"`
	S3             S3StorageConfig    `koanf:"s3"`
}

type LocalStorageConfig struct {
	Root    string `koanf:"root"`
	BaseURL string `koanf:"base_url"`
}

type S3StorageConfig struct {
	Bucket          string        `koanf:"bucket"`
	Region          string        `koanf:"region"`
	Endpoint        string        `koanf:"endpoint"`
	AccessKeyID     string        `koanf:"access_key_id"`
	SecretAccessKey string        `koanf:"secret_access_key"`
	PublicBaseURL   string        `koanf:"public_base_url"`
	PresignExpire   time.Duration `koanf:"presign_expire"`
	UsePathStyle    bool          `koanf:"use_path_style"`
}

type ImageGenConfig struct {
	BaseURL    string        `koanf:"base_url"`
	APIKey     string        `koanf:"api_key"`
	Model      string        `koanf:"model"`
	Size       string        `koanf:"size"`
	Timeout    time.Duration `koanf:"timeout"`
	MaxRetries int           `koanf:"max_retries"`
}

type RedesignConfig struct {
	StaleAfter time.Duration `koanf:"stale_after"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		cfg, loadErr = load(configPath)
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "roomcraft",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "180s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.auto_migrate":       true,

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"jwt.access_token_expire":  "15m",
		"jwt.refresh_token_expire": "168h",
		"jwt.issuer":               "roomcraft",
		"jwt.audience":             "roomcraft-api",
		"jwt.private_key_path":     "keys/private.pem",
		"jwt.public_key_path":      "keys/public.pem",

		"rate_limit.requests":            100,
		"rate_limit.burst":               20,
		"rate_limit.auth_requests":       10,
		"rate_limit.auth_burst":          5,
		"rate_limit.generation_requests": 6,
		"rate_limit.generation_burst":    2,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "roomcraft",

		"otp.ttl": "5m",

		"auth.forgot_password_min_duration": "400ms",

		"email.smtp_port":      587,
		"email.from":           "no-reply@roomcraft.local",
		"email.send_timeout":   "30s",
		"email.max_concurrent": 4,

		"storage.driver":            "local",
		"storage.max_upload_bytes":  10 << 20,
		"storage.local.root":        "./media",
		"storage.local.base_url":    "http://localhost:8080/media",
		"storage.s3.region":         "us-east-1",
		"storage.s3.presign_expire": "15m",

		"imagegen.base_url":    "https://api.openai.com/v1",
		"imagegen.model":       "gpt-image-1",
		"imagegen.size":        "1024x1024",
		"imagegen.timeout":     "120s",
		"imagegen.max_retries": 2,

		"redesign.stale_after": "15m",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                 "database.url",
	"DATABASE_AUTO_MIGRATE":        "database.auto_migrate",
	"REDIS_URL":                    "redis.url",
	"ENVIRONMENT":                  "app.environment",
	"HOST":                         "server.host",
	"PORT":                         "server.port",
	"LOG_LEVEL":                    "log.level",
	"LOG_FORMAT":                   "log.format",
	"JWT_PRIVATE_KEY_PATH":         "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":          "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":      "jwt.access_token_expire",
	"JWT_REFRESH_TOKEN_EXPIRE":     "jwt.refresh_token_expire",
	"JWT_ISSUER":                   "jwt.issuer",
	"JWT_AUDIENCE":                 "jwt.audience",
	"RATE_LIMIT_REQUESTS":          "rate_limit.requests",
	"RATE_LIMIT_BURST":             "rate_limit.burst",
	"OTEL_ENDPOINT":                "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT":  "otel.endpoint",
	"OTEL_SERVICE_NAME":            "otel.service_name",
	"OTEL_ENABLED":                 "otel.enabled",
	"OTEL_INSECURE":                "otel.insecure",
	"OTEL_SAMPLE_RATE":             "otel.sample_rate",
	"OTP_TTL":                      "otp.ttl",
	"SMTP_HOST":                    "email.smtp_host",
	"SMTP_PORT":                    "email.smtp_port",
	"SMTP_USERNAME":                "email.smtp_username",
	"SMTP_PASSWORD":                "email.smtp_password",
	"DEFAULT_FROM_EMAIL":           "email.from",
	"EMAIL_MAX_CONCURRENT":         "email.max_concurrent",
	"STORAGE_DRIVER":               "storage.driver",
	"STORAGE_MAX_UPLOAD_BYTES":     "storage.max_upload_bytes",
	"MEDIA_ROOT":                   "storage.local.root",
	"MEDIA_BASE_URL":               "storage.local.base_url",
	"S3_BUCKET":                    "storage.s3.bucket",
	"S3_REGION":                    "storage.s3.region",
	"S3_ENDPOINT":                  "storage.s3.endpoint",
	"S3_ACCESS_KEY_ID":             "storage.s3.access_key_id",
	"S3_SECRET_ACCESS_KEY":         "storage.s3.secret_access_key",
	"S3_PUBLIC_BASE_URL":           "storage.s3.public_base_url",
	"S3_USE_PATH_STYLE":            "storage.s3.use_path_style",
	"OPENAI_API_KEY":               "imagegen.api_key",
	"OPENAI_BASE_URL":              "imagegen.base_url",
	"IMAGEGEN_MODEL":               "imagegen.model",
	"IMAGEGEN_TIMEOUT":             "imagegen.timeout",
	"IMAGEGEN_MAX_RETRIES":         "imagegen.max_retries",
	"REDESIGN_STALE_AFTER":         "redesign.stale_after",
	"FORGOT_PASSWORD_MIN_DURATION": "auth.forgot_password_min_duration",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.JWT.PrivateKeyPath == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH is required")
	}

	if c.JWT.PublicKeyPath == "" {
		return fmt.Errorf("JWT_PUBLIC_KEY_PATH is required")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
		if c.ImageGen.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	if c.OTP.TTL <= 0 {
		return fmt.Errorf("otp.ttl must be positive")
	}

	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("storage.max_upload_bytes must be positive")
	}

	switch c.Storage.Driver {
	case "local":
		if c.Storage.Local.Root == "" {
			return fmt.Errorf("storage.local.root is required")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 storage driver")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
