package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

// JWTConfig holds the signing material and lifetimes for issued tokens.
type JWTConfig struct {
	SecretKey               string        `mapstructure:"secretKey"`
	RefreshSecretKey        string        `mapstructure:"refreshSecretKey"`
	AccessTokenTTL          time.Duration `mapstructure:"accessTokenTTL"`
	RefreshTokenTTL         time.Duration `mapstructure:"refreshTokenTTL"`
	RefreshTokenExtendedTTL time.Duration `mapstructure:"refreshTokenExtendedTTL"`
	Issuer                  string        `mapstructure:"issuer"`
	Audience                string        `mapstructure:"audience"`
}

// AuthConfig holds the account-security policy knobs.
type AuthConfig struct {
	MaxFailedLogins  int           `mapstructure:"maxFailedLogins"`
	LockoutDuration  time.Duration `mapstructure:"lockoutDuration"`
	ResetTokenTTL    time.Duration `mapstructure:"resetTokenTTL"`
	BcryptCost       int           `mapstructure:"bcryptCost"`
	MinPasswordChars int           `mapstructure:"minPasswordChars"`
}

type Config struct {
	Mode     string `mapstructure:"mode"`
	Dotenv   string `mapstructure:"dotenv"`
	Handlers struct {
		Pprof struct {
			Port      string `mapstructure:"port"`
			CertFile  string `mapstructure:"certFile"`
			KeyFile   string `mapstructure:"keyFile"`
			EnableTLS bool   `mapstructure:"enableTLS"`
		} `mapstructure:"pprof"`
		Prometheus struct {
			Port      string `mapstructure:"port"`
			CertFile  string `mapstructure:"certFile"`
			KeyFile   string `mapstructure:"keyFile"`
			EnableTLS bool   `mapstructure:"enableTLS"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	JWT  JWTConfig  `mapstructure:"jwt"`
	Auth AuthConfig `mapstructure:"auth"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Secrets come from the environment, never from the checked-in file.
	v.SetEnvPrefix("AUTHAPI")
	v.AutomaticEnv()
	_ = v.BindEnv("jwt.secretKey", "AUTHAPI_JWT_SECRET")
	_ = v.BindEnv("jwt.refreshSecretKey", "AUTHAPI_JWT_REFRESH_SECRET")
	_ = v.BindEnv("repositories.postgres.password", "AUTHAPI_POSTGRES_PASSWORD")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}

	applyDefaults(&config)
	return config, nil
}

// applyDefaults fills policy values a deployment is unlikely to override.
func applyDefaults(cfg *Config) {
	if cfg.JWT.AccessTokenTTL == 0 {
		cfg.JWT.AccessTokenTTL = time.Hour
	}
	if cfg.JWT.RefreshTokenTTL == 0 {
		cfg.JWT.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if cfg.JWT.RefreshTokenExtendedTTL == 0 {
		cfg.JWT.RefreshTokenExtendedTTL = 30 * 24 * time.Hour
	}
	if cfg.Auth.MaxFailedLogins == 0 {
		cfg.Auth.MaxFailedLogins = 5
	}
	if cfg.Auth.LockoutDuration == 0 {
		cfg.Auth.LockoutDuration = 30 * time.Minute
	}
	if cfg.Auth.ResetTokenTTL == 0 {
		cfg.Auth.ResetTokenTTL = 24 * time.Hour
	}
	if cfg.Auth.MinPasswordChars == 0 {
		cfg.Auth.MinPasswordChars = 8
	}
}
