package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	StorageBadger   = "badger"
	StoragePostgres = "postgres"

	BlobLocal = "local"
	BlobS3    = "s3"

	minSecretLength = 16
)

// Config holds the server settings. Values come from defaults, then an
// optional YAML file, then the environment.
type Config struct {
	Env            string        `yaml:"env"`
	Addr           string        `yaml:"addr"`
	DataDir        string        `yaml:"data_dir"`
	StorageDriver  string        `yaml:"storage_driver"`
	DatabaseURL    string        `yaml:"database_url"`
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	BlobDriver     string        `yaml:"blob_driver"`
	MediaDir       string        `yaml:"media_dir"`
	PublicURL      string        `yaml:"public_url"`
	S3Bucket       string        `yaml:"s3_bucket"`
	S3Region       string        `yaml:"s3_region"`
	S3Endpoint     string        `yaml:"s3_endpoint"`
	FirebaseCreds  string        `yaml:"firebase_credentials"`
	StaticDir      string        `yaml:"static_dir"`
	MaxAvatarBytes int64         `yaml:"max_avatar_bytes"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Env:            "development",
		Addr:           ":8080",
		DataDir:        "data/badger",
		StorageDriver:  StorageBadger,
		TokenTTL:       72 * time.Hour,
		BlobDriver:     BlobLocal,
		MediaDir:       "data/media",
		PublicURL:      "http://localhost:8080",
		MaxAvatarBytes: 5 << 20,
	}
}

// Load builds the configuration. A missing .env or YAML file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] ignoring .env: %v", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			log.Printf("[config] %s not found, using defaults", path)
		case err != nil:
			return nil, errors.Wrapf(err, "failed to read config %s", path)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "failed to parse config %s", path)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" && !cfg.IsProduction() {
		cfg.JWTSecret = randomSecret()
		log.Println("[config] FORUM_JWT_SECRET not set, using a random development secret")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"FORUM_ENV":                 &c.Env,
		"FORUM_ADDR":                &c.Addr,
		"FORUM_DATA_DIR":            &c.DataDir,
		"FORUM_STORAGE_DRIVER":      &c.StorageDriver,
		"DATABASE_URL":              &c.DatabaseURL,
		"FORUM_JWT_SECRET":          &c.JWTSecret,
		"FORUM_BLOB_DRIVER":         &c.BlobDriver,
		"FORUM_MEDIA_DIR":           &c.MediaDir,
		"FORUM_PUBLIC_URL":          &c.PublicURL,
		"FORUM_S3_BUCKET":           &c.S3Bucket,
		"FORUM_S3_REGION":           &c.S3Region,
		"FORUM_S3_ENDPOINT":         &c.S3Endpoint,
		"FIREBASE_CREDENTIALS_PATH": &c.FirebaseCreds,
		"FORUM_STATIC_DIR":          &c.StaticDir,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("FORUM_TOKEN_TTL"); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, "invalid FORUM_TOKEN_TTL")
		}
		c.TokenTTL = ttl
	}
	if v, ok := os.LookupEnv("FORUM_MAX_AVATAR_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.Wrap(err, "invalid FORUM_MAX_AVATAR_BYTES")
		}
		c.MaxAvatarBytes = n
	}
	return nil
}

// IsProduction reports whether the server runs with production settings
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the selected drivers have what they need
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageBadger:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("postgres storage requires DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown storage driver %q", c.StorageDriver)
	}

	switch c.BlobDriver {
	case BlobLocal:
	case BlobS3:
		if c.S3Bucket == "" || c.S3Region == "" {
			return errors.New("s3 blob storage requires a bucket and a region")
		}
	default:
		return errors.Errorf("unknown blob driver %q", c.BlobDriver)
	}

	if len(c.JWTSecret) < minSecretLength {
		return errors.Errorf("jwt secret must be at least %d bytes", minSecretLength)
	}
	if c.TokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	if c.MaxAvatarBytes <= 0 {
		return errors.New("max avatar size must be positive")
	}
	return nil
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("[config] failed to generate secret: %v", err)
	}
	return hex.EncodeToString(b)
}
