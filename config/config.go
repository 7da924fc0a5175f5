package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "MASKSWAP"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Model   ModelConfig   `mapstructure:"model"`
	Segment SegmentConfig `mapstructure:"segment"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Output  OutputConfig  `mapstructure:"output"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port" validate:"required"`
	Mode         string        `mapstructure:"mode" validate:"oneof=debug release test"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
}

// ModelConfig points at the SAM2 inference service. Weights is the only
// model identifier the service needs.
type ModelConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Endpoint string        `mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Weights  string        `mapstructure:"weights" validate:"required"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxSide  int           `mapstructure:"max_side" validate:"gte=64"`
}

type SegmentConfig struct {
	MaxConcurrent int           `mapstructure:"max_concurrent" validate:"gte=1"`
	QueueTimeout  time.Duration `mapstructure:"queue_timeout" validate:"gt=0"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

type UploadConfig struct {
	MaxSize      int64         `mapstructure:"max_size" validate:"gt=0"`
	SpoolDir     string        `mapstructure:"spool_dir" validate:"required"`
	AllowedTypes []string      `mapstructure:"allowed_types" validate:"min=1"`
	Retention    time.Duration `mapstructure:"retention" validate:"gt=0"`
	CleanupSpec  string        `mapstructure:"cleanup_spec" validate:"required"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size" validate:"gte=0"`
	MaxAge     int    `mapstructure:"max_age" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
}

// Load reads configPath (YAML) on top of the defaults. A missing file is not
// an error. Environment variables prefixed with MASKSWAP_ override file
// values, e.g. MASKSWAP_MODEL_ENDPOINT; a .env file in the working
// directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)

	v.SetDefault("model.enabled", true)
	v.SetDefault("model.endpoint", "http://localhost:8188")
	v.SetDefault("model.weights", "sam2.1_t.pt")
	v.SetDefault("model.timeout", 90*time.Second)
	v.SetDefault("model.max_side", 1024)

	v.SetDefault("segment.max_concurrent", 2)
	v.SetDefault("segment.queue_timeout", 30*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("upload.max_size", 20*1024*1024)
	v.SetDefault("upload.spool_dir", "./uploads")
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/jpg", "image/webp"})
	v.SetDefault("upload.retention", time.Hour)
	v.SetDefault("upload.cleanup_spec", "@every 10m")

	v.SetDefault("output.dir", "./output")

	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_age", 7)
	v.SetDefault("log.max_backups", 3)
}
