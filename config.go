package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"storefront-service/apperrors"
	aws_pkg "storefront-service/pkg/aws"
	"storefront-service/services"

	"go.uber.org/zap"
)

// Store backends
const (
	BackendMongo    = "mongo"
	BackendDynamoDB = "dynamodb"
)

// Secret names read when AWS_USE_SECRETS=true
const (
	secretJWT         = "storefront/JWT_SECRET"
	secretInternalKey = "storefront/INTERNAL_API_KEY"
)

// Config holds all environment variables for the storefront service.
type Config struct {
	Port       string
	Env        string
	Production bool

	JWTSecret      string
	InternalAPIKey string

	StoreBackend string
	MongoURL     string
	MongoDBName  string
	DynamoTable  string

	AWS        aws_pkg.Options
	S3Endpoint string // public URL base, defaults to AWS endpoint
	S3Bucket   string

	UploadMaxFiles int
	UploadMaxBytes int64
	UploadTimeout  time.Duration

	SNSTopicArn       string
	CloudWatchEnabled bool
	UseSecrets        bool

	AllowedOrigins  []string
	RateLimitPerMin int
	RateLimitBurst  int
}

type secretGetter interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// LoadConfig loads environment variables into Config and validates them.
func LoadConfig() (*Config, error) {
	env := firstNonEmpty(os.Getenv("APP_ENV"), os.Getenv("NODE_ENV"), "development")

	cfg := &Config{
		Port:           getEnv("PORT", "8085"),
		Env:            env,
		Production:     env == "production",
		JWTSecret:      os.Getenv("JWT_SECRET"),
		InternalAPIKey: os.Getenv("INTERNAL_API_KEY"),
		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", BackendMongo)),
		MongoURL:       getEnv("MONGO_DB_URL", "mongodb://localhost:27017"),
		MongoDBName:    getEnv("MONGO_DB_NAME", "storefront"),
		DynamoTable:    getEnv("DDB_TABLE_PRODUCTS", "Products"),
		AWS: aws_pkg.Options{
			Region:    getEnv("AWS_REGION", "us-east-1"),
			Endpoint:  os.Getenv("AWS_ENDPOINT"),
			AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
		S3Bucket:          os.Getenv("S3_BUCKET"),
		SNSTopicArn:       os.Getenv("SNS_CATALOG_TOPIC_ARN"),
		CloudWatchEnabled: os.Getenv("CLOUDWATCH_ENABLED") == "true",
		UseSecrets:        os.Getenv("AWS_USE_SECRETS") == "true",
		AllowedOrigins:    splitList(os.Getenv("ALLOWED_ORIGINS")),
	}
	cfg.S3Endpoint = firstNonEmpty(os.Getenv("S3_ENDPOINT"), cfg.AWS.Endpoint)

	var err error
	if cfg.UploadMaxFiles, err = intEnv("UPLOAD_MAX_FILES", services.DefaultMaxFiles); err != nil {
		return nil, err
	}
	maxBytes, err := intEnv("UPLOAD_MAX_BYTES", services.DefaultMaxFileBytes)
	if err != nil {
		return nil, err
	}
	cfg.UploadMaxBytes = int64(maxBytes)
	if cfg.UploadTimeout, err = durationEnv("UPLOAD_TIMEOUT", services.DefaultStoreTimeout); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMin, err = intEnv("RATE_LIMIT_PER_MINUTE", 60); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = intEnv("RATE_LIMIT_BURST", 20); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplySecrets overrides the signing secret and internal key from Secrets
// Manager. A secret that cannot be read keeps the env value.
func (cfg *Config) ApplySecrets(ctx context.Context, sm secretGetter) {
	if v, err := sm.GetSecret(ctx, secretJWT); err == nil && v != "" {
		cfg.JWTSecret = v
	} else if err != nil {
		zap.L().Warn("Falling back to JWT_SECRET from env", zap.Error(err))
	}
	if v, err := sm.GetSecret(ctx, secretInternalKey); err == nil && v != "" {
		cfg.InternalAPIKey = v
	} else if err != nil {
		zap.L().Warn("Falling back to INTERNAL_API_KEY from env", zap.Error(err))
	}
}

// Validate reports missing required settings as a configuration error.
func (cfg *Config) Validate() error {
	var missing []string
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.InternalAPIKey == "" {
		missing = append(missing, "INTERNAL_API_KEY")
	}
	if cfg.S3Bucket == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if len(missing) > 0 {
		return apperrors.New(apperrors.KindConfiguration,
			fmt.Sprintf("missing required configuration: %s", strings.Join(missing, ", ")), nil)
	}
	if cfg.StoreBackend != BackendMongo && cfg.StoreBackend != BackendDynamoDB {
		return apperrors.New(apperrors.KindConfiguration,
			fmt.Sprintf("unknown STORE_BACKEND %q", cfg.StoreBackend), nil)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, apperrors.New(apperrors.KindConfiguration, fmt.Sprintf("%s must be a positive integer", key), err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, apperrors.New(apperrors.KindConfiguration, fmt.Sprintf("%s must be a positive duration", key), err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
