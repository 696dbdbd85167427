package circulation

import (
	"github.com/smallbiznis/shelfwise/internal/circulation/repository"
	"github.com/smallbiznis/shelfwise/internal/circulation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("circulation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
