package events

import "go.uber.org/fx"

var Module = fx.Module("events",
	fx.Provide(
		asHandler(NewAuditHandler),
		asHandler(NewMetricsHandler),
		asHandler(NewLogHandler),
		NewDispatcher,
	),
)

func asHandler(f any) any {
	return fx.Annotate(f, fx.As(new(Handler)), fx.ResultTags(`group:"event_handlers"`))
}
