package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// ConfigEnvKey names the environment variable pointing at the configuration file
const ConfigEnvKey = "FACTORIOTECH_CONFIG"

// DefaultConfigFile is read when ConfigEnvKey is unset
const DefaultConfigFile = "./config.toml"

// Config parametrizes the rendering service.
type Config struct {
	HTTP      HTTPConfig
	Rendering RenderingConfig
	S3        S3Config
	Postgres  PostgresConfig
	Log       LogConfig
}

// HTTPConfig parametrizes the HTTP API.
type HTTPConfig struct {
	Addr            string `validate:"required"`
	ShutdownTimeout string
	AllowedOrigins  []string
}

// RenderingConfig parametrizes where renderings are read from and how long
// a request waits for a rendering that does not exist yet.
type RenderingConfig struct {
	Backend      string `validate:"required,oneof=s3 local"`
	LocalRoot    string `validate:"required_if=Backend local"`
	KeyPrefix    string
	PollInterval string
	PollTimeout  string
}

// S3Config parametrizes the configuration for S3 storage.
type S3Config struct {
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3UseSSL          bool
	S3BucketName      string
	S3Region          string
}

// PostgresConfig parametrizes the configuration for PostgreSQL.
// An empty ConnectionString disables the payload index.
type PostgresConfig struct {
	ConnectionString string
}

// LogConfig parametrizes logging
type LogConfig struct {
	Level       string `validate:"omitempty,oneof=debug info warn error"`
	Development bool
}

// Enabled reports whether a payload index is configured
func (p PostgresConfig) Enabled() bool {
	return p.ConnectionString != ""
}

// Default returns the configuration used for keys missing from the file
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: "35s",
		},
		Rendering: RenderingConfig{
			Backend:      "s3",
			KeyPrefix:    "renderings",
			PollInterval: "2s",
			PollTimeout:  "30s",
		},
		S3: S3Config{
			S3BucketName: "factoriotech",
			S3Region:     "us-east-1",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads the file named by FACTORIOTECH_CONFIG (or ./config.toml)
// and decodes it over Default.
// Errors might be returned due to IO, invalid TOML or failed validation.
func LoadConfig() (Config, error) {
	configFile := os.Getenv(ConfigEnvKey)

	if configFile == "" {
		configFile = DefaultConfigFile
	}

	blob, err := os.ReadFile(configFile)

	if err != nil {
		return Config{}, fmt.Errorf("Error loading configuration file: %w", err)
	}

	return Parse(blob)
}

// Parse decodes TOML contents over Default and validates the result
func Parse(blob []byte) (Config, error) {
	conf := Default()

	metadata, err := toml.Decode(string(blob), &conf)
	if err != nil {
		return Config{}, fmt.Errorf("Error decoding configuration file: %w", err)
	}

	if undecoded := metadata.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("Unknown configuration keys: %v", undecoded)
	}

	if err := conf.Validate(); err != nil {
		return Config{}, err
	}

	return conf, nil
}

// Validate checks the struct tags and the cross-section requirements
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("Invalid configuration: %w", err)
	}

	if c.Rendering.Backend == "s3" && (c.S3.S3Endpoint == "" || c.S3.S3BucketName == "") {
		return errors.New("Invalid configuration: the s3 rendering backend requires S3.S3Endpoint and S3.S3BucketName")
	}

	return nil
}
