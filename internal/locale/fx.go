package locale

import "go.uber.org/fx"

var Module = fx.Module("locale",
	fx.Provide(NewNegotiator, NewCookieManager),
)
