package notice

import "go.uber.org/fx"

var Module = fx.Module("notice",
	fx.Provide(New),
)
