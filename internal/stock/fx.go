package stock

import (
	"github.com/smallbiznis/shelfwise/internal/stock/repository"
	"github.com/smallbiznis/shelfwise/internal/stock/service"
	"go.uber.org/fx"
)

var Module = fx.Module("stock.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
