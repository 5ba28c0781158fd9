package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Ledger   Ledger   `mapstructure:"ledger"`
	Feeds    Feeds    `mapstructure:"feeds"`
	Venue    Venue    `mapstructure:"venue"`
	Swapper  Swapper  `mapstructure:"swapper"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Server holds the ports for the service API and the audit UI.
type Server struct {
	ApiPort   int `mapstructure:"api_port"`
	AuditPort int `mapstructure:"audit_port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Ledger holds the configuration for the fungible-asset ledger API.
type Ledger struct {
	BaseURL        string  `mapstructure:"base_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Feeds holds the configuration for the two price-feed APIs.
type Feeds struct {
	InputURL        string  `mapstructure:"input_url"`
	OutputURL       string  `mapstructure:"output_url"`
	RateLimit       float64 `mapstructure:"rate_limit"`
	RateLimitBurst  int     `mapstructure:"rate_limit_burst"`
	DecimalsTTLSecs int     `mapstructure:"decimals_ttl_seconds"`
}

// Venue holds the configuration for the exchange-venue router API.
type Venue struct {
	BaseURL        string  `mapstructure:"base_url"`
	FeeTier        uint32  `mapstructure:"fee_tier"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Swapper holds the conversion parameters. Validation of these fields
// lives in the swapper package, next to the setters that re-validate them.
type Swapper struct {
	InputAsset          string `mapstructure:"input_asset"`
	OutputAsset         string `mapstructure:"output_asset"`
	Account             string `mapstructure:"account"`
	Admin               string `mapstructure:"admin"`
	FeeRecipient        string `mapstructure:"fee_recipient"`
	TokenRecipient      string `mapstructure:"token_recipient"`
	SwapFeeBps          uint32 `mapstructure:"swap_fee_bps"`
	DepositFeeBps       uint32 `mapstructure:"deposit_fee_bps"`
	MinExpectedSwapBps  uint32 `mapstructure:"min_expected_swap_bps"`
	WithdrawalDelaySecs int64  `mapstructure:"withdrawal_delay_seconds"`
	Paused              bool   `mapstructure:"paused"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("ledger.rate_limit", 20) // requests per second
	viper.SetDefault("ledger.rate_limit_burst", 5)
	viper.SetDefault("feeds.rate_limit", 10)
	viper.SetDefault("feeds.rate_limit_burst", 2)
	viper.SetDefault("feeds.decimals_ttl_seconds", 3600)
	viper.SetDefault("venue.rate_limit", 10)
	viper.SetDefault("venue.rate_limit_burst", 2)
	viper.SetDefault("venue.fee_tier", 3000)
	viper.SetDefault("swapper.min_expected_swap_bps", 9900)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
