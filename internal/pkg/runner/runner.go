package runner

import (
	"context"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/danwue/elekter/internal/pkg/config"
	"github.com/danwue/elekter/internal/pkg/model"
)

// Dispatcher executes one device command.
type Dispatcher interface {
	Dispatch(ctx context.Context, argv []string) error
}

// Runner drives one device's plan across the day, one tick per slot
// boundary. lastIntended is owned exclusively by this runner and
// survives across days; only the plan is replaced.
type Runner struct {
	name         string
	slug         string
	dev          config.Device
	dispatcher   Dispatcher
	logger       *zap.Logger
	simulate     bool
	now          func() time.Time
	onTransition func(model.Transition)

	lastIntended *bool
}

func WithSimulate(simulate bool) func(*Runner) {
	return func(r *Runner) {
		r.simulate = simulate
	}
}

func WithClock(now func() time.Time) func(*Runner) {
	return func(r *Runner) {
		r.now = now
	}
}

// OnTransition registers a callback invoked after every successful
// dispatch.
func OnTransition(f func(model.Transition)) func(*Runner) {
	return func(r *Runner) {
		r.onTransition = f
	}
}

func New(name string, dev config.Device, dispatcher Dispatcher, opts ...func(*Runner)) *Runner {
	r := &Runner{
		name:       name,
		slug:       slug.Make(name),
		dev:        dev,
		dispatcher: dispatcher,
		logger:     zap.L(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Slug returns the URL/topic-safe identifier derived from the device
// name.
func (r *Runner) Slug() string {
	return r.slug
}

// Tick applies the plan's target for one slot. Nothing is dispatched
// when the target matches the last successfully dispatched state. On
// dispatch failure lastIntended is left unchanged, so the same
// transition is attempted again at the next opportunity.
func (r *Runner) Tick(ctx context.Context, slot int, target bool, price model.Price) error {
	if r.lastIntended != nil && *r.lastIntended == target {
		r.logger.Debug("state unchanged",
			zap.String("device", r.name),
			zap.Int("slot", slot),
			zap.String("state", model.StateString(target)))
		return nil
	}

	argv := r.dev.CmdOff
	if target {
		argv = r.dev.CmdOn
	}
	if err := r.dispatcher.Dispatch(ctx, argv); err != nil {
		r.logger.Error("dispatch failed, transition will be retried",
			zap.String("device", r.name),
			zap.Int("slot", slot),
			zap.String("state", model.StateString(target)),
			zap.Error(err))
		return err
	}

	intended := target
	r.lastIntended = &intended
	r.logger.Info("device switched",
		zap.String("device", r.name),
		zap.Int("slot", slot),
		zap.String("state", model.StateString(target)),
		zap.Float64("price", price.Value))

	if r.onTransition != nil {
		r.onTransition(model.Transition{
			Device: r.name,
			Slug:   r.slug,
			Slot:   slot,
			On:     target,
			At:     r.now(),
			Price:  price.Value,
		})
	}
	return nil
}

// RunDay walks the table in slot order. Live mode sleeps until each slot
// boundary and skips slots that already ended, so a delayed process acts
// on the current slot directly instead of replaying missed transitions.
// Simulate mode processes every slot immediately. A dispatch failure
// never aborts the day; the failed transition retries when a later slot
// still demands it.
func (r *Runner) RunDay(ctx context.Context, table model.PriceTable, plan model.Plan) error {
	slotLen := table.SlotDuration()
	for slot, price := range table {
		if !r.simulate {
			if price.StartTime.Add(slotLen).Before(r.now()) {
				continue
			}
			if err := r.waitUntil(ctx, price.StartTime); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		_ = r.Tick(ctx, slot, plan[slot], price)
	}
	return nil
}

func (r *Runner) waitUntil(ctx context.Context, t time.Time) error {
	wait := t.Sub(r.now())
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
