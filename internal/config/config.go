package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Bot      BotConfig
	Payment  PaymentConfig
}

type ServerConfig struct {
	Port int
	Env  string // "development", "production"
}

type DatabaseConfig struct {
	Path string
}

type RedisConfig struct {
	Addr string
	Pass string
	DB   int
}

type BotConfig struct {
	Token     string
	ChannelID int64
	// KnownUserIDs seeds non-admin members during the startup sync.
	KnownUserIDs []int64
}

type PaymentConfig struct {
	ZarinPal ZarinPalConfig
}

type ZarinPalConfig struct {
	Merchant    string
	Sandbox     bool
	Amount      int
	CallbackURL string
}

// Load reads configuration from .env file and environment variables.
// Absence of any required option prevents startup.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("APP_PORT", 8001)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("DB_PATH", "members.db")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("ZARINPAL_SANDBOX", false)

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		Database: DatabaseConfig{
			Path: viper.GetString("DB_PATH"),
		},
		Redis: RedisConfig{
			Addr: viper.GetString("REDIS_ADDR"),
			Pass: viper.GetString("REDIS_PASS"),
			DB:   viper.GetInt("REDIS_DB"),
		},
		Bot: BotConfig{
			Token:        viper.GetString("BOT_TOKEN"),
			ChannelID:    viper.GetInt64("CHANNEL_ID"),
			KnownUserIDs: parseIDList(viper.GetString("KNOWN_USER_IDS")),
		},
		Payment: PaymentConfig{
			ZarinPal: ZarinPalConfig{
				Merchant:    viper.GetString("ZARINPAL_MERCHANT"),
				Sandbox:     viper.GetBool("ZARINPAL_SANDBOX"),
				Amount:      viper.GetInt("PRICE"),
				CallbackURL: viper.GetString("CALLBACK_URL"),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.Bot.Token == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if c.Bot.ChannelID == 0 {
		missing = append(missing, "CHANNEL_ID")
	}
	if c.Payment.ZarinPal.Merchant == "" {
		missing = append(missing, "ZARINPAL_MERCHANT")
	}
	if c.Payment.ZarinPal.Amount <= 0 {
		missing = append(missing, "PRICE")
	}
	if c.Payment.ZarinPal.CallbackURL == "" {
		missing = append(missing, "CALLBACK_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// parseIDList parses a comma-separated list of Telegram user IDs.
// Malformed entries are skipped.
func parseIDList(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
