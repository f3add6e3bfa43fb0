package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"PowerPosition/internal/calculator"
	"PowerPosition/internal/model"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Report struct {
		Schedule   string `yaml:"schedule" default:"*/15 * * * *" validate:"required"`
		TimeZone   string `yaml:"time_zone" default:"Europe/London" validate:"required"`
		ExportDir  string `yaml:"export_dir" default:"reports" validate:"required"`
		RunOnStart bool   `yaml:"run_on_start" default:"true"`
	} `yaml:"report"`
	Retry struct {
		MaxRetries int           `yaml:"max_retries" default:"3" validate:"gte=0,lte=10"`
		BaseDelay  time.Duration `yaml:"base_delay" default:"1s" validate:"gte=0"`
	} `yaml:"retry"`
	DataSource struct {
		BaseURL     string  `yaml:"base_url" validate:"omitempty,url"`
		APIKey      string  `yaml:"api_key"`
		FailureRate float64 `yaml:"failure_rate" default:"0.1" validate:"gte=0,lte=1"`
	} `yaml:"data_source"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	HTTP struct {
		Addr    string `yaml:"addr" default:":9090"`
		Enabled bool   `yaml:"enabled" default:"true"`
	} `yaml:"http"`
	Proxy string `yaml:"proxy"`
}

// Path returns CONFIG_PATH or DefaultPath.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads config from a YAML file, then applies .env and environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse config: %v", model.ErrConfiguration, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := map[string]*string{
		"REPORT_SCHEDULE":       &c.Report.Schedule,
		"REPORT_TIME_ZONE":      &c.Report.TimeZone,
		"REPORT_EXPORT_DIR":     &c.Report.ExportDir,
		"POWER_SERVICE_URL":     &c.DataSource.BaseURL,
		"POWER_SERVICE_API_KEY": &c.DataSource.APIKey,
		"TELEGRAM_BOT_TOKEN":    &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":      &c.Telegram.ChatID,
		"SQLITE_PATH":           &c.Database.SQLitePath,
		"LOG_LEVEL":             &c.Log.Level,
		"HTTP_ADDR":             &c.HTTP.Addr,
		"HTTPS_PROXY":           &c.Proxy,
	}
	for key, dst := range setString {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("RUN_ON_START"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: RUN_ON_START=%q: %v", model.ErrConfiguration, v, err)
		}
		c.Report.RunOnStart = b
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints, that the schedule parses and that the zone resolves.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	if _, err := cron.ParseStandard(c.Report.Schedule); err != nil {
		return fmt.Errorf("%w: report.schedule %q: %v", model.ErrConfiguration, c.Report.Schedule, err)
	}
	if _, err := calculator.LoadZone(c.Report.TimeZone); err != nil {
		return err
	}
	return nil
}
