package providers

import (
	"github.com/smallbiznis/shelfwise/internal/providers/email"
	"github.com/smallbiznis/shelfwise/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
