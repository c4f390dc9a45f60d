package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	RedisURL    string `mapstructure:"REDIS_URL"`
	AuthIssuer  string `mapstructure:"AUTH_ISSUER"`
	AuthSecret  string `mapstructure:"AUTH_SECRET"`
	BlobDir     string `mapstructure:"BLOB_DIR"`
	TimelineTTL int    `mapstructure:"TIMELINE_CACHE_TTL_SECONDS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("BLOB_DIR", "./blobs")
	v.SetDefault("TIMELINE_CACHE_TTL_SECONDS", 300)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("REDIS_URL")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_SECRET")
	v.BindEnv("BLOB_DIR")
	v.BindEnv("TIMELINE_CACHE_TTL_SECONDS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside development
// mode a signing secret must be set so that real JWT authentication is
// enforced.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSecret == "" {
		return fmt.Errorf("AUTH_SECRET must be set when ENV=%q; refusing to start without authentication", c.Env)
	}
	if c.TimelineTTL < 0 {
		return fmt.Errorf("TIMELINE_CACHE_TTL_SECONDS must not be negative, got %d", c.TimelineTTL)
	}
	return nil
}
