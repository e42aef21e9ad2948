// Package config loads service configuration from an optional YAML file
// and TRUSTTAG_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvProduction = "production"

type Config struct {
	Server  ServerConfig
	Auth    AuthConfig
	Siwe    SiweConfig
	Redis   RedisConfig
	WorldID WorldIDConfig
	Log     LogConfig
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type AuthConfig struct {
	CookieName          string        `mapstructure:"cookie_name"`
	NonceTTL            time.Duration `mapstructure:"nonce_ttl"`
	SessionTTL          time.Duration `mapstructure:"session_ttl"`
	SigningKeyFile      string        `mapstructure:"signing_key_file"`
	Issuer              string        `mapstructure:"issuer"`
	ClearNonceOnFailure bool          `mapstructure:"clear_nonce_on_failure"`
}

type SiweConfig struct {
	Domains []string `mapstructure:"domains"`
	ChainID int64    `mapstructure:"chain_id"`
	RPCURL  string   `mapstructure:"rpc_url"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// WorldIDConfig enables proof-of-personhood checks when AppID is set
type WorldIDConfig struct {
	AppID   string `mapstructure:"app_id"`
	BaseURL string `mapstructure:"base_url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// IsProduction reports whether cookies must be marked Secure
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, EnvProduction)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("auth.cookie_name", "siwe")
	v.SetDefault("auth.nonce_ttl", 5*time.Minute)
	v.SetDefault("auth.session_ttl", time.Hour)
	v.SetDefault("auth.signing_key_file", "")
	v.SetDefault("auth.issuer", "trusttag")
	v.SetDefault("auth.clear_nonce_on_failure", true)

	v.SetDefault("siwe.domains", []string{})
	v.SetDefault("siwe.chain_id", 0)
	v.SetDefault("siwe.rpc_url", "")

	v.SetDefault("redis.url", "")

	v.SetDefault("worldid.app_id", "")
	v.SetDefault("worldid.base_url", "https://developer.worldcoin.org")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration. An explicit path must exist; otherwise
// trusttag.yaml is looked up in the working directory and ./config.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TRUSTTAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("trusttag")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *Config) validate() error {
	if c.Auth.CookieName == "" {
		return errors.New("auth.cookie_name must not be empty")
	}
	if c.Auth.NonceTTL <= 0 {
		return errors.New("auth.nonce_ttl must be positive")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("auth.session_ttl must be positive")
	}
	if c.Siwe.ChainID < 0 {
		return errors.New("siwe.chain_id must not be negative")
	}
	return nil
}
