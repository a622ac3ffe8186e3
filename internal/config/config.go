// Package config loads pairchat settings from ~/.pairchat/config.toml and
// PAIRCHAT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "PAIRCHAT"
	configDir  = ".pairchat"
	configName = "config"
	configType = "toml"
)

const (
	KeyAccountsPath  = "accounts.path"
	KeyLedgerPath    = "ledger.path"
	KeyCatalogPath   = "catalog.path"
	KeyCatalogWatch  = "catalog.watch"
	KeyDefaultLimit  = "quota.default_limit"
	KeyQuotaPeriod   = "quota.period"
	KeyModelBaseURL  = "model.base_url"
	KeyModelName     = "model.name"
	KeyModelAPIKey   = "model.api_key"
	KeyModelTimeout  = "model.timeout"
	KeyServerListen  = "server.listen"
	KeyLogLevel      = "log.level"
	KeyLogJSON       = "log.json"
	DefaultModelName = "gpt-4o-mini"
	DefaultListen    = "127.0.0.1:8740"
	DefaultLimit     = 200_000
)

type Config struct {
	Accounts AccountsConfig
	Ledger   LedgerConfig
	Catalog  CatalogConfig
	Quota    QuotaConfig
	Model    ModelConfig
	Server   ServerConfig
	Log      LogConfig
}

type AccountsConfig struct {
	Path string
}

type LedgerConfig struct {
	Path string
}

type CatalogConfig struct {
	// Path is empty when the built-in layer catalog is used.
	Path  string
	Watch bool
}

type QuotaConfig struct {
	DefaultLimit int64
	Period       domain.Window
}

type ModelConfig struct {
	BaseURL string
	Name    string
	APIKey  string
	Timeout time.Duration
}

type ServerConfig struct {
	Listen string
}

type LogConfig struct {
	Level string
	JSON  bool
}

// Load builds a viper instance with defaults, environment overrides and the
// config file. A missing config file is not an error.
func Load(configFile string) (*viper.Viper, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	v := viper.New()
	setDefaults(v, filepath.Join(homeDir, configDir))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType(configType)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(filepath.Join(homeDir, configDir))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(configFile != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return v, nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault(KeyAccountsPath, filepath.Join(dir, "accounts.toml"))
	v.SetDefault(KeyLedgerPath, filepath.Join(dir, "ledger.db"))
	v.SetDefault(KeyCatalogPath, "")
	v.SetDefault(KeyCatalogWatch, false)
	v.SetDefault(KeyDefaultLimit, DefaultLimit)
	v.SetDefault(KeyQuotaPeriod, string(domain.WindowMonth))
	v.SetDefault(KeyModelBaseURL, "")
	v.SetDefault(KeyModelName, DefaultModelName)
	v.SetDefault(KeyModelAPIKey, "")
	v.SetDefault(KeyModelTimeout, 60*time.Second)
	v.SetDefault(KeyServerListen, DefaultListen)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogJSON, false)
}

// Decode reads typed settings out of v and validates them.
func Decode(v *viper.Viper) (Config, error) {
	cfg := Config{
		Accounts: AccountsConfig{Path: v.GetString(KeyAccountsPath)},
		Ledger:   LedgerConfig{Path: v.GetString(KeyLedgerPath)},
		Catalog: CatalogConfig{
			Path:  strings.TrimSpace(v.GetString(KeyCatalogPath)),
			Watch: v.GetBool(KeyCatalogWatch),
		},
		Quota: QuotaConfig{
			DefaultLimit: v.GetInt64(KeyDefaultLimit),
			Period:       domain.Window(strings.ToLower(strings.TrimSpace(v.GetString(KeyQuotaPeriod)))),
		},
		Model: ModelConfig{
			BaseURL: strings.TrimSpace(v.GetString(KeyModelBaseURL)),
			Name:    strings.TrimSpace(v.GetString(KeyModelName)),
			APIKey:  strings.TrimSpace(v.GetString(KeyModelAPIKey)),
			Timeout: v.GetDuration(KeyModelTimeout),
		},
		Server: ServerConfig{Listen: strings.TrimSpace(v.GetString(KeyServerListen))},
		Log: LogConfig{
			Level: strings.TrimSpace(v.GetString(KeyLogLevel)),
			JSON:  v.GetBool(KeyLogJSON),
		},
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Accounts.Path == "" {
		errs = append(errs, errors.New("accounts.path is empty"))
	}
	if c.Ledger.Path == "" {
		errs = append(errs, errors.New("ledger.path is empty"))
	}
	if c.Quota.DefaultLimit < 0 {
		errs = append(errs, fmt.Errorf("quota.default_limit must not be negative, got %d", c.Quota.DefaultLimit))
	}
	if !c.Quota.Period.Valid() {
		errs = append(errs, fmt.Errorf("quota.period %q must be one of day, week, month", c.Quota.Period))
	}
	if c.Model.Name == "" {
		errs = append(errs, errors.New("model.name is empty"))
	}
	if c.Model.Timeout < 0 {
		errs = append(errs, errors.New("model.timeout must not be negative"))
	}
	if c.Catalog.Watch && c.Catalog.Path == "" {
		errs = append(errs, errors.New("catalog.watch requires catalog.path"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
