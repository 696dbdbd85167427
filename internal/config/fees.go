package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	feedomain "github.com/smallbiznis/shelfwise/internal/fee/domain"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// FeeSettingsHolder keeps the last valid fee settings and swaps them on file change.
type FeeSettingsHolder struct {
	current atomic.Value // holds feedomain.Settings
	source  string
}

func NewFeeSettingsHolder(cfg Config, log *zap.Logger) (*FeeSettingsHolder, error) {
	log = log.Named("config.fees")
	v := viper.New()

	if cfg.FeesConfigPath != "" {
		v.SetConfigFile(cfg.FeesConfigPath)
	} else {
		v.SetConfigName("fees")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/shelfwise")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SHELFWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &FeeSettingsHolder{}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfg.FeesConfigPath != "" {
			return nil, fmt.Errorf("%w: read fee settings: %v", feedomain.ErrInvalidSettings, err)
		}
		defaults := feedomain.DefaultSettings()
		if err := defaults.Validate(); err != nil {
			return nil, err
		}
		holder.current.Store(defaults)
		holder.source = "defaults"
		log.Warn("fees config file not found, using defaults")
		return holder, nil
	}

	settings, err := decodeFeeSettings(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(settings)
	holder.source = v.ConfigFileUsed()
	log.Info("fee settings loaded", zap.String("file", holder.source))

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeFeeSettings(v)
		if err != nil {
			log.Error("fee settings reload rejected, keeping previous", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("fee settings reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func decodeFeeSettings(v *viper.Viper) (feedomain.Settings, error) {
	if !v.IsSet("fees") {
		return feedomain.Settings{}, fmt.Errorf("%w: missing top-level fees key", feedomain.ErrInvalidSettings)
	}
	var settings feedomain.Settings
	if err := v.UnmarshalKey("fees", &settings); err != nil {
		return feedomain.Settings{}, fmt.Errorf("%w: %v", feedomain.ErrInvalidSettings, err)
	}
	if err := settings.Validate(); err != nil {
		return feedomain.Settings{}, err
	}
	return settings, nil
}

func (h *FeeSettingsHolder) Get() feedomain.Settings {
	return h.current.Load().(feedomain.Settings)
}

// Source is the file the settings came from, or "defaults".
func (h *FeeSettingsHolder) Source() string {
	return h.source
}
