package config

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audite/internal/model"
)

func testViper(overrides map[string]string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := fromViper(testViper(map[string]string{
		"JWT_SECRET":     "s3cret",
		"ADMIN_PASSWORD": "pw",
	}))
	require.NoError(t, err)

	assert.Equal(t, "audite", cfg.Mongo.Database)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSAllowedOrigins)
	assert.Equal(t, model.PolicyFailOpen, cfg.Policy.Condition)
	assert.Equal(t, model.PolicyFailOpen, cfg.Policy.Category)
	assert.Equal(t, 72*time.Hour, cfg.Sessions.DraftTTL)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
}

func TestOverrides(t *testing.T) {
	cfg, err := fromViper(testViper(map[string]string{
		"JWT_SECRET":           "s3cret",
		"ADMIN_PASSWORD":       "pw",
		"REDIS_ADDR":           "redis://cache:6379",
		"CONDITION_POLICY":     "fail_closed",
		"CATEGORY_POLICY":      "FAIL_CLOSED",
		"CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example,",
		"DRAFT_TTL":            "30m",
	}))
	require.NoError(t, err)

	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, model.PolicyFailClosed, cfg.Policy.Condition)
	assert.Equal(t, model.PolicyFailClosed, cfg.Policy.Category)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSAllowedOrigins)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.DraftTTL)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	_, err := fromViper(testViper(map[string]string{"DRAFT_TTL": "0s"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "ADMIN_PASSWORD")
	assert.Contains(t, err.Error(), "DRAFT_TTL")
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("ADMIN_PASSWORD", "pw")
	t.Setenv("MONGO_DB", "audite_test")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "audite_test", cfg.Mongo.Database)
}

func TestLoadMongoNeedsNoSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Chdir(t.TempDir())

	cfg, err := LoadMongo()
	require.NoError(t, err)
	assert.Equal(t, "mongodb://db:27017", cfg.URI)
	assert.Equal(t, "audite", cfg.Database)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "text"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, "msg=shown"))
	assert.Contains(t, out, "k=v")
}
