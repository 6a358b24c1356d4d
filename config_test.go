package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-service/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("INTERNAL_API_KEY", "env-key")
	t.Setenv("S3_BUCKET", "media")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "")
	t.Setenv("NODE_ENV", "")
	t.Setenv("AWS_ENDPOINT", "http://localstack:4566")
	t.Setenv("S3_ENDPOINT", "")
	for _, key := range []string{"PORT", "STORE_BACKEND", "UPLOAD_MAX_FILES", "UPLOAD_MAX_BYTES", "UPLOAD_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "8085", cfg.Port)
	assert.False(t, cfg.Production)
	assert.Equal(t, BackendMongo, cfg.StoreBackend)
	assert.Equal(t, "http://localstack:4566", cfg.S3Endpoint)
	assert.Equal(t, 5, cfg.UploadMaxFiles)
	assert.Equal(t, int64(10<<20), cfg.UploadMaxBytes)
	assert.Equal(t, 15*time.Second, cfg.UploadTimeout)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("STORE_BACKEND", "DynamoDB")
	t.Setenv("S3_ENDPOINT", "https://cdn.example.com")
	t.Setenv("UPLOAD_MAX_FILES", "3")
	t.Setenv("UPLOAD_TIMEOUT", "2s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.Production)
	assert.Equal(t, BackendDynamoDB, cfg.StoreBackend)
	assert.Equal(t, "https://cdn.example.com", cfg.S3Endpoint)
	assert.Equal(t, 3, cfg.UploadMaxFiles)
	assert.Equal(t, 2*time.Second, cfg.UploadTimeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}

func TestLoadConfig_BadNumbers(t *testing.T) {
	setRequired(t)
	t.Setenv("UPLOAD_MAX_FILES", "many")

	_, err := LoadConfig()
	assert.Equal(t, apperrors.KindConfiguration, apperrors.KindOf(err))
}

func TestValidate_MissingRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("INTERNAL_API_KEY", "")
	t.Setenv("S3_BUCKET", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConfiguration, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "INTERNAL_API_KEY")
	assert.Contains(t, err.Error(), "S3_BUCKET")
}

func TestValidate_UnknownBackend(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_BACKEND", "redis")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

type fakeSecrets map[string]string

func (f fakeSecrets) GetSecret(_ context.Context, name string) (string, error) {
	v, ok := f[name]
	if !ok {
		return "", errors.New("secret not found")
	}
	return v, nil
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{JWTSecret: "env-secret", InternalAPIKey: "env-key"}

	cfg.ApplySecrets(context.Background(), fakeSecrets{secretJWT: "sm-secret"})

	assert.Equal(t, "sm-secret", cfg.JWTSecret)
	assert.Equal(t, "env-key", cfg.InternalAPIKey, "unreadable secret keeps the env value")
}
