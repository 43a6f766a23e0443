package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// StorefrontConfig holds runtime tunables for the employee-facing flows.
type StorefrontConfig struct {
	DefaultEmployeePoints int64         `mapstructure:"defaultEmployeePoints"`
	MaxBalance            int64         `mapstructure:"maxBalance"`
	MaxCASAttempts        int           `mapstructure:"maxCasAttempts"`
	CheckoutRetries       int           `mapstructure:"checkoutRetries"`
	CheckoutRate          float64       `mapstructure:"checkoutRate"`
	CheckoutBurst         int           `mapstructure:"checkoutBurst"`
	CheckoutLockTTL       time.Duration `mapstructure:"checkoutLockTtl"`
	LowStockThreshold     int64         `mapstructure:"lowStockThreshold"`
}

func DefaultStorefrontConfig() StorefrontConfig {
	return StorefrontConfig{
		DefaultEmployeePoints: 100,
		MaxBalance:            1_000_000_000,
		MaxCASAttempts:        5,
		CheckoutRetries:       1,
		CheckoutRate:          1,
		CheckoutBurst:         5,
		CheckoutLockTTL:       10 * time.Second,
		LowStockThreshold:     5,
	}
}

type StorefrontConfigHolder struct {
	current atomic.Value // holds StorefrontConfig
}

// NewStaticStorefrontConfigHolder pins cfg without watching any file.
func NewStaticStorefrontConfigHolder(cfg StorefrontConfig) *StorefrontConfigHolder {
	holder := &StorefrontConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewStorefrontConfigHolder() (*StorefrontConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("storefront")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/giftflow")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GIFTFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultStorefrontConfig()
	v.SetDefault("storefront.defaultEmployeePoints", defaults.DefaultEmployeePoints)
	v.SetDefault("storefront.maxBalance", defaults.MaxBalance)
	v.SetDefault("storefront.maxCasAttempts", defaults.MaxCASAttempts)
	v.SetDefault("storefront.checkoutRetries", defaults.CheckoutRetries)
	v.SetDefault("storefront.checkoutRate", defaults.CheckoutRate)
	v.SetDefault("storefront.checkoutBurst", defaults.CheckoutBurst)
	v.SetDefault("storefront.checkoutLockTtl", defaults.CheckoutLockTTL)
	v.SetDefault("storefront.lowStockThreshold", defaults.LowStockThreshold)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		watch = false
	}

	var cfg StorefrontConfig
	if err := v.UnmarshalKey("storefront", &cfg); err != nil {
		return nil, err
	}
	if err := validateStorefrontConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticStorefrontConfigHolder(cfg)
	if !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated StorefrontConfig
		if err := v.UnmarshalKey("storefront", &updated); err != nil {
			log.Printf("[storefront-config] reload failed: %v", err)
			return
		}
		if err := validateStorefrontConfig(updated); err != nil {
			log.Printf("[storefront-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[storefront-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *StorefrontConfigHolder) Get() StorefrontConfig {
	if h == nil {
		return DefaultStorefrontConfig()
	}
	return h.current.Load().(StorefrontConfig)
}

func validateStorefrontConfig(cfg StorefrontConfig) error {
	if cfg.DefaultEmployeePoints < 0 {
		return errors.New("storefront.defaultEmployeePoints cannot be negative")
	}
	if cfg.MaxBalance <= 0 {
		return errors.New("storefront.maxBalance must be positive")
	}
	if cfg.MaxCASAttempts < 1 {
		return errors.New("storefront.maxCasAttempts must be at least 1")
	}
	if cfg.CheckoutRetries < 0 {
		return errors.New("storefront.checkoutRetries cannot be negative")
	}
	if cfg.CheckoutRate <= 0 || cfg.CheckoutBurst <= 0 {
		return errors.New("storefront checkout rate limit must be positive")
	}
	return nil
}
