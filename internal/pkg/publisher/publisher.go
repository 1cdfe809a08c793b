package publisher

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/danwue/elekter/internal/pkg/model"
)

var errAlreadyRegistered = errors.New("publisher already registered")

// registration happens during startup, before any runner ticks.
var registered = make(map[string]Publisher)

// Publisher receives device state changes for one external sink.
type Publisher interface {
	WriteTransition(ctx context.Context, tr model.Transition) error
	RegisterDevice(ctx context.Context, name, slug string) error
}

func Register(name string, p Publisher) error {
	if _, ok := registered[name]; ok {
		return errAlreadyRegistered
	}
	registered[name] = p
	return nil
}

// PublishTransition fans a state change out to every registered sink.
// A failing sink is logged and skipped; it never blocks scheduling or
// the other sinks.
func PublishTransition(ctx context.Context, tr model.Transition) {
	for name, p := range registered {
		if err := p.WriteTransition(ctx, tr); err != nil {
			zap.L().Error("failed to publish transition",
				zap.Error(err),
				zap.String("publisher", name),
				zap.String("device", tr.Device))
			continue
		}
		zap.L().Debug("published transition",
			zap.String("publisher", name),
			zap.String("device", tr.Device),
			zap.String("state", model.StateString(tr.On)))
	}
}

// RegisterDevice announces a device to every sink before its first
// transition.
func RegisterDevice(ctx context.Context, name, slug string) {
	for pname, p := range registered {
		if err := p.RegisterDevice(ctx, name, slug); err != nil {
			zap.L().Error("failed to register device",
				zap.Error(err),
				zap.String("publisher", pname),
				zap.String("device", name))
			continue
		}
		zap.L().Debug("registered device",
			zap.String("publisher", pname),
			zap.String("device", name))
	}
}
