// Package config defines the top-level configuration for the quoting agent
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MEXCQUOTER_* environment
// variables.
type Config struct {
	Mexc     MexcConfig   `toml:"mexc"`
	Quoter   QuoterConfig `toml:"quoter"`
	Redis    RedisConfig  `toml:"redis"`
	Server   ServerConfig `toml:"server"`
	LogLevel string       `toml:"log_level"`
}

// MexcConfig holds venue endpoints and API credentials. The secret may be
// given in plaintext (secret_key) or as an encrypted key file; see
// crypto.LoadSecret for the resolution order.
type MexcConfig struct {
	BaseURL             string `toml:"base_url"`
	WsURL               string `toml:"ws_url"`
	ApiKey              string `toml:"api_key"`
	SecretKey           string `toml:"secret_key"`
	EncryptedSecretPath string `toml:"encrypted_secret_path"`
	SecretPassword      string `toml:"secret_password"`
}

// QuoterConfig holds the quoting parameters used when autostart is enabled,
// plus defaults applied to start requests that omit optional fields.
type QuoterConfig struct {
	Autostart             bool    `toml:"autostart"`
	Symbol                string  `toml:"symbol"`
	BuyQuantity           float64 `toml:"buy_quantity"`
	SellQuantity          float64 `toml:"sell_quantity"`
	BuyPriceMin           float64 `toml:"buy_price_min"`
	BuyPriceMax           float64 `toml:"buy_price_max"`
	SellPriceMin          float64 `toml:"sell_price_min"`
	SellPriceMax          float64 `toml:"sell_price_max"`
	MinCompetitorSizeUSDT float64 `toml:"min_competitor_size_usdt"`
}

// RedisConfig holds connection parameters for the optional live book mirror.
// The mirror is disabled when Addr is empty.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds the HTTP control-plane configuration.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"` // if empty, authentication is disabled
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the static application configuration. Per-run quoting
// parameters are validated separately (domain.RunParams.Validate) so that a
// bad start request never reaches the network.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Mexc.BaseURL == "" {
		errs = append(errs, "mexc: base_url must not be empty")
	}
	if c.Mexc.WsURL == "" {
		errs = append(errs, "mexc: ws_url must not be empty")
	}
	if c.Mexc.EncryptedSecretPath != "" && c.Mexc.SecretPassword == "" {
		errs = append(errs, "mexc: secret_password is required when encrypted_secret_path is set")
	}

	if c.Quoter.Autostart {
		if c.Mexc.ApiKey == "" {
			errs = append(errs, "mexc: api_key is required for autostart")
		}
		if c.Mexc.SecretKey == "" && c.Mexc.EncryptedSecretPath == "" {
			errs = append(errs, "mexc: either secret_key or encrypted_secret_path must be set for autostart")
		}
		if c.Quoter.Symbol == "" {
			errs = append(errs, "quoter: symbol is required for autostart")
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port %d out of range", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
