package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ChargeConfig tunes the charge engine at runtime.
type ChargeConfig struct {
	GroupWorkers int              `mapstructure:"groupWorkers"`
	Currencies   map[string]int32 `mapstructure:"currencies"`
}

func DefaultChargeConfig() ChargeConfig {
	return ChargeConfig{
		GroupWorkers: 0,
		Currencies:   map[string]int32{},
	}
}

type ChargeConfigHolder struct {
	current atomic.Value // holds ChargeConfig
}

// NewChargeConfigHolder reads charges.yml and keeps it current when the file changes.
// A missing file is not an error: defaults, seeded from env, are used instead.
func NewChargeConfigHolder(cfg Config, log *zap.Logger) (*ChargeConfigHolder, error) {
	log = log.Named("config.charges")
	v := viper.New()

	v.SetConfigName("charges")
	v.SetConfigType("yml")
	if cfg.ChargeConfigPath != "" {
		v.AddConfigPath(cfg.ChargeConfigPath)
	}
	v.AddConfigPath("/etc/chargeengine")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CHARGEENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultChargeConfig()
	defaults.GroupWorkers = cfg.GroupWorkers
	v.SetDefault("charges.groupWorkers", defaults.GroupWorkers)
	v.SetDefault("charges.currencies", defaults.Currencies)

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		found = false
	}

	current, err := decodeChargeConfig(v)
	if err != nil {
		return nil, err
	}

	holder := &ChargeConfigHolder{}
	holder.current.Store(current)

	if !found {
		log.Info("charges.yml not found, using defaults", zap.Int("group_workers", current.GroupWorkers))
		return holder, nil
	}

	log.Info("charge config loaded", zap.String("file", v.ConfigFileUsed()))
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeChargeConfig(v)
		if err != nil {
			log.Warn("charge config reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("charge config reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

// NewStaticChargeConfigHolder returns a holder that never reloads.
func NewStaticChargeConfigHolder(cfg ChargeConfig) *ChargeConfigHolder {
	holder := &ChargeConfigHolder{}
	holder.current.Store(normalizeChargeConfig(cfg))
	return holder
}

func (h *ChargeConfigHolder) Get() ChargeConfig {
	return h.current.Load().(ChargeConfig)
}

func decodeChargeConfig(v *viper.Viper) (ChargeConfig, error) {
	var cfg ChargeConfig
	if err := v.UnmarshalKey("charges", &cfg); err != nil {
		return ChargeConfig{}, err
	}
	cfg = normalizeChargeConfig(cfg)
	if err := validateChargeConfig(cfg); err != nil {
		return ChargeConfig{}, err
	}
	return cfg, nil
}

// normalizeChargeConfig upper-cases currency codes, viper lower-cases map keys.
func normalizeChargeConfig(cfg ChargeConfig) ChargeConfig {
	currencies := make(map[string]int32, len(cfg.Currencies))
	for code, exp := range cfg.Currencies {
		currencies[strings.ToUpper(strings.TrimSpace(code))] = exp
	}
	cfg.Currencies = currencies
	return cfg
}

func validateChargeConfig(cfg ChargeConfig) error {
	if cfg.GroupWorkers < 0 {
		return errors.New("charges.groupWorkers cannot be negative")
	}
	for code, exp := range cfg.Currencies {
		if len(code) != 3 {
			return fmt.Errorf("charges.currencies: invalid code %q", code)
		}
		if exp < 0 || exp > 4 {
			return fmt.Errorf("charges.currencies.%s: exponent must be between 0 and 4", code)
		}
	}
	return nil
}
