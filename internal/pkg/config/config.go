package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/s3ui/bucketgate/internal/core/domain"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	StaticDir string `env:"STATIC_DIR, default=./web/build"`

	CORSAllowOrigins []string `env:"CORS_ALLOW_ORIGINS, default=*"`

	Auth    AuthConfig
	Buckets BucketSecrets `env:"AWS_SECRETS, required"`
	Mongo   MongoConfig
	Redis   RedisConfig
}

type AuthConfig struct {
	// JWTSecret signs every bearer token. It has no default and must be
	// provisioned out of band.
	JWTSecret       string        `env:"JWT_SECRET, required"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL,  default=1h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL, default=720h"`
	// TokenRevocation rejects tokens issued before a user's last password
	// change. Requires Redis.
	TokenRevocation bool `env:"TOKEN_REVOCATION, default=false"`
}

type MongoConfig struct {
	URI             string `env:"MONGO_URI,              default=mongodb://localhost:27017"`
	Database        string `env:"MONGO_DB,               default=s3_ui"`
	UsersCollection string `env:"MONGO_USERS_COLLECTION, default=users"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// BucketSecret is one entry of the AWS_SECRETS JSON map.
type BucketSecret struct {
	Region          string `json:"S3_REGION"`
	AccessKeyID     string `json:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `json:"AWS_SECRET_ACCESS_KEY"`
	ZipFunction     string `json:"ZIP_LAMBDA_FUNCTION_NAME"`
	ProgressTable   string `json:"ZIP_PROGRESS_TABLE,omitempty"`
	Endpoint        string `json:"S3_ENDPOINT,omitempty"`
}

// BucketSecrets maps bucket name to its settings. It decodes from a JSON
// object in a single environment variable.
type BucketSecrets map[string]BucketSecret

// EnvDecode implements envconfig.Decoder.
func (b *BucketSecrets) EnvDecode(val string) error {
	m := make(map[string]BucketSecret)
	if err := json.Unmarshal([]byte(val), &m); err != nil {
		return fmt.Errorf("AWS_SECRETS: %w", err)
	}
	*b = m
	return nil
}

// Registry converts the bucket settings into the read-only registry.
func (c *Config) Registry() *domain.BucketRegistry {
	buckets := make([]domain.Bucket, 0, len(c.Buckets))
	for name, s := range c.Buckets {
		buckets = append(buckets, domain.Bucket{
			Name:            name,
			Region:          s.Region,
			AccessKeyID:     s.AccessKeyID,
			SecretAccessKey: s.SecretAccessKey,
			Endpoint:        s.Endpoint,
			ZipFunction:     s.ZipFunction,
			ProgressTable:   s.ProgressTable,
		})
	}
	return domain.NewBucketRegistry(buckets)
}

// IsDevelopment reports whether the process runs with ENV=development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks invariants envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	if len(c.Buckets) == 0 {
		errs = append(errs, errors.New("AWS_SECRETS must name at least one bucket"))
	}
	for name, s := range c.Buckets {
		if s.Region == "" {
			errs = append(errs, fmt.Errorf("bucket %s: S3_REGION is required", name))
		}
		if (s.AccessKeyID == "") != (s.SecretAccessKey == "") {
			errs = append(errs, fmt.Errorf("bucket %s: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together", name))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	return errors.Join(errs...)
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration through l, then validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
