package config

import (
	feedomain "github.com/smallbiznis/shelfwise/internal/fee/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewFeeSettingsHolder),
	fx.Provide(func(h *FeeSettingsHolder) feedomain.SettingsProvider { return h }),
)
