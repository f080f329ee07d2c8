package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MEXCQUOTER_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// Defaults returns the built-in configuration defaults.
func Defaults() Config {
	return Config{
		Mexc: MexcConfig{
			BaseURL: "https://api.mexc.com",
			WsURL:   "wss://wbs.mexc.com/ws",
		},
		Quoter: QuoterConfig{
			MinCompetitorSizeUSDT: 10.0,
		},
		Redis: RedisConfig{
			PoolSize:   10,
			MaxRetries: 3,
		},
		Server: ServerConfig{
			Port: 8000,
		},
		LogLevel: "info",
	}
}

// applyEnvOverrides reads well-known MEXCQUOTER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// MEXC
	setStr(&cfg.Mexc.BaseURL, "MEXCQUOTER_MEXC_BASE_URL")
	setStr(&cfg.Mexc.WsURL, "MEXCQUOTER_MEXC_WS_URL")
	setStr(&cfg.Mexc.ApiKey, "MEXCQUOTER_MEXC_API_KEY")
	setStr(&cfg.Mexc.SecretKey, "MEXCQUOTER_MEXC_SECRET_KEY")
	setStr(&cfg.Mexc.EncryptedSecretPath, "MEXCQUOTER_MEXC_ENCRYPTED_SECRET_PATH")
	setStr(&cfg.Mexc.SecretPassword, "MEXCQUOTER_MEXC_SECRET_PASSWORD")

	// Quoter
	setBool(&cfg.Quoter.Autostart, "MEXCQUOTER_QUOTER_AUTOSTART")
	setStr(&cfg.Quoter.Symbol, "MEXCQUOTER_QUOTER_SYMBOL")
	setFloat64(&cfg.Quoter.BuyQuantity, "MEXCQUOTER_QUOTER_BUY_QUANTITY")
	setFloat64(&cfg.Quoter.SellQuantity, "MEXCQUOTER_QUOTER_SELL_QUANTITY")
	setFloat64(&cfg.Quoter.BuyPriceMin, "MEXCQUOTER_QUOTER_BUY_PRICE_MIN")
	setFloat64(&cfg.Quoter.BuyPriceMax, "MEXCQUOTER_QUOTER_BUY_PRICE_MAX")
	setFloat64(&cfg.Quoter.SellPriceMin, "MEXCQUOTER_QUOTER_SELL_PRICE_MIN")
	setFloat64(&cfg.Quoter.SellPriceMax, "MEXCQUOTER_QUOTER_SELL_PRICE_MAX")
	setFloat64(&cfg.Quoter.MinCompetitorSizeUSDT, "MEXCQUOTER_QUOTER_MIN_COMPETITOR_SIZE_USDT")

	// Redis
	setStr(&cfg.Redis.Addr, "MEXCQUOTER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MEXCQUOTER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MEXCQUOTER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MEXCQUOTER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MEXCQUOTER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MEXCQUOTER_REDIS_TLS_ENABLED")

	// Server
	setInt(&cfg.Server.Port, "MEXCQUOTER_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "MEXCQUOTER_SERVER_API_KEY")
	if v := os.Getenv("MEXCQUOTER_SERVER_CORS_ORIGINS"); v != "" {
		parts := strings.Split(v, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				origins = append(origins, p)
			}
		}
		cfg.Server.CORSOrigins = origins
	}

	// Top-level
	setStr(&cfg.LogLevel, "MEXCQUOTER_LOG_LEVEL")
}

func setStr(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, env string) {
	if v := os.Getenv(env); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, env string) {
	if v := os.Getenv(env); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
