package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"audite/internal/model"
)

// Config is the process configuration, read once at startup
type Config struct {
	Mongo    MongoConfig
	Redis    RedisConfig
	HTTP     HTTPConfig
	Auth     AuthConfig
	Policy   PolicyConfig
	Sessions SessionConfig
	Log      LogConfig
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Addr string
}

type HTTPConfig struct {
	Port               string
	CORSAllowedOrigins []string
}

type AuthConfig struct {
	JWTSecret     string
	AdminUsername string
	AdminPassword string
	TokenTTL      time.Duration
}

// PolicyConfig selects how malformed configuration degrades at runtime
type PolicyConfig struct {
	Condition model.Policy // unknown condition operators
	Category  model.Policy // categories without a sector catalog
}

type SessionConfig struct {
	DraftTTL  time.Duration
	ResultTTL time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

// Load reads an optional .env file, then defaults, an optional audite.yaml
// in the working directory or /etc/audite, and environment variables, in
// increasing precedence.
func Load() (Config, error) {
	v, err := read()
	if err != nil {
		return Config{}, err
	}
	return fromViper(v)
}

// LoadMongo reads only the storage settings, for tools that never serve
// requests and so need no secrets
func LoadMongo() (MongoConfig, error) {
	v, err := read()
	if err != nil {
		return MongoConfig{}, err
	}
	return MongoConfig{
		URI:      v.GetString("MONGO_URI"),
		Database: v.GetString("MONGO_DB"),
	}, nil
}

func read() (*viper.Viper, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("audite")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/audite")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	v.AutomaticEnv()
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "audite")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("TOKEN_TTL", "12h")
	v.SetDefault("CONDITION_POLICY", string(model.PolicyFailOpen))
	v.SetDefault("CATEGORY_POLICY", string(model.PolicyFailOpen))
	v.SetDefault("DRAFT_TTL", "72h")
	v.SetDefault("RESULT_TTL", "720h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Mongo: MongoConfig{
			URI:      v.GetString("MONGO_URI"),
			Database: v.GetString("MONGO_DB"),
		},
		Redis: RedisConfig{
			Addr: strings.TrimPrefix(v.GetString("REDIS_ADDR"), "redis://"),
		},
		HTTP: HTTPConfig{
			Port:               v.GetString("HTTP_PORT"),
			CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Auth: AuthConfig{
			JWTSecret:     v.GetString("JWT_SECRET"),
			AdminUsername: v.GetString("ADMIN_USERNAME"),
			AdminPassword: v.GetString("ADMIN_PASSWORD"),
			TokenTTL:      v.GetDuration("TOKEN_TTL"),
		},
		Policy: PolicyConfig{
			Condition: model.ParsePolicy(v.GetString("CONDITION_POLICY")),
			Category:  model.ParsePolicy(v.GetString("CATEGORY_POLICY")),
		},
		Sessions: SessionConfig{
			DraftTTL:  v.GetDuration("DRAFT_TTL"),
			ResultTTL: v.GetDuration("RESULT_TTL"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without
func (c Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.AdminPassword == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD is required"))
	}
	if c.Sessions.DraftTTL <= 0 {
		errs = append(errs, errors.New("DRAFT_TTL must be positive"))
	}
	if c.Sessions.ResultTTL <= 0 {
		errs = append(errs, errors.New("RESULT_TTL must be positive"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
