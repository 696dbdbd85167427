package events

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Handler interface {
	Name() string
	Handle(ctx context.Context, evt Event) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Handlers []Handler `group:"event_handlers"`
}

type Dispatcher struct {
	log      *zap.Logger
	handlers []Handler
}

func NewDispatcher(p Params) *Dispatcher {
	return &Dispatcher{
		log:      p.Log.Named("events.dispatcher"),
		handlers: p.Handlers,
	}
}

// Dispatch hands every event to every handler in order. A failing handler
// does not stop the others; failures are logged and returned joined.
func (d *Dispatcher) Dispatch(ctx context.Context, evts ...Event) error {
	if d == nil {
		return nil
	}
	var errs []error
	for _, evt := range evts {
		for _, h := range d.handlers {
			if err := h.Handle(ctx, evt); err != nil {
				d.log.Warn("event handler failed",
					zap.String("handler", h.Name()),
					zap.String("event", string(evt.Type)),
					zap.Error(err),
				)
				errs = append(errs, fmt.Errorf("%s: %s: %w", h.Name(), evt.Type, err))
			}
		}
	}
	return errors.Join(errs...)
}
