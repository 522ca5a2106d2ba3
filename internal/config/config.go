package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/rewired-gh/votestudy/internal/report"
)

// DefaultBaseURL is the public Clawbr API root.
const DefaultBaseURL = "https://moltxbetter.vercel.app/api/v1"

// Config represents the complete application configuration
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Report   ReportConfig   `mapstructure:"report"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// APIConfig holds debate API access configuration
type APIConfig struct {
	BaseURL      string        `mapstructure:"base_url" validate:"required,url"`
	PageSize     int           `mapstructure:"page_size" validate:"min=1,max=1000"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"min=1s"`
	RequestDelay time.Duration `mapstructure:"request_delay" validate:"min=0s"`
	Concurrency  int           `mapstructure:"concurrency" validate:"min=1,max=16"`
}

// ReportConfig holds the thresholds used when deriving report extremes and voter groups
type ReportConfig struct {
	MinCategoryTotal int `mapstructure:"min_category_total" validate:"min=1"`
	ActiveVoterMin   int `mapstructure:"active_voter_min" validate:"min=1"`
	HighBiasPct      int `mapstructure:"high_bias_pct" validate:"min=0,max=100"`
	BalancedLow      int `mapstructure:"balanced_low" validate:"min=0,max=100"`
	BalancedHigh     int `mapstructure:"balanced_high" validate:"min=0,max=100"`
}

// Thresholds converts the section into report thresholds.
func (r ReportConfig) Thresholds() report.Thresholds {
	return report.Thresholds{
		MinCategoryTotal: r.MinCategoryTotal,
		ActiveVoterMin:   r.ActiveVoterMin,
		HighBiasPct:      r.HighBiasPct,
		BalancedLow:      r.BalancedLow,
		BalancedHigh:     r.BalancedHigh,
	}
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	MaxRetries     int           `mapstructure:"max_retries" validate:"min=1,max=10"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base" validate:"min=0s"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// envKeyReplacer maps nested keys to env names: api.base_url -> VOTE_STUDY_API_BASE_URL.
var envKeyReplacer = strings.NewReplacer(".", "_")

// Load builds the configuration from defaults, an optional file and VOTE_STUDY_* environment
// variables. An empty path or a path that does not exist yields defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("VOTE_STUDY")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.page_size", 200)
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.request_delay", "50ms")
	v.SetDefault("api.concurrency", 1)

	// Report defaults
	th := report.DefaultThresholds()
	v.SetDefault("report.min_category_total", th.MinCategoryTotal)
	v.SetDefault("report.active_voter_min", th.ActiveVoterMin)
	v.SetDefault("report.high_bias_pct", th.HighBiasPct)
	v.SetDefault("report.balanced_low", th.BalancedLow)
	v.SetDefault("report.balanced_high", th.BalancedHigh)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %q validation (value: %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Report.BalancedLow > c.Report.BalancedHigh {
		return fmt.Errorf("report.balanced_low must not exceed report.balanced_high")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	return nil
}
