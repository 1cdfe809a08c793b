package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jackc/pgx/v5"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danwue/elekter/internal/pkg/config"
	"github.com/danwue/elekter/internal/pkg/contxt"
	"github.com/danwue/elekter/internal/pkg/database"
	"github.com/danwue/elekter/internal/pkg/database/migration"
	"github.com/danwue/elekter/internal/pkg/dispatch"
	"github.com/danwue/elekter/internal/pkg/elering"
	"github.com/danwue/elekter/internal/pkg/model"
	"github.com/danwue/elekter/internal/pkg/mqtt"
	"github.com/danwue/elekter/internal/pkg/planner"
	"github.com/danwue/elekter/internal/pkg/publisher"
	"github.com/danwue/elekter/internal/pkg/runner"
	"github.com/danwue/elekter/internal/pkg/server"
)

func ElekterCommand(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("usage: elekter [-n|--dry-run] <config-file>")
	}
	cfg, err := config.Load(ctx.Args().First())
	if err != nil {
		return err
	}
	app := &config.App{
		DryRun:      ctx.Bool("dry-run"),
		LogLevel:    ctx.String("log-level"),
		DatabaseURL: ctx.String("database-url"),
		Mqtt: &config.MQTTConfig{
			Host:     ctx.String("mqtt-host"),
			Username: ctx.String("mqtt-user"),
			Password: ctx.String("mqtt-pass"),
		},
	}
	return run(ctx.Context, cfg, app)
}

func run(ctx context.Context, cfg *config.Config, app *config.App) error {
	var err error
	logCfg := zap.NewProductionConfig()

	logCfg.Level, err = zap.ParseAtomicLevel(app.LogLevel)
	if err != nil {
		return err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	logger := zap.Must(logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)))
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	rt, err := config.RuntimeFromEnv()
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(rt.Timezone)
	if err != nil {
		return err
	}

	prices := elering.New(rt.PriceURL)

	if app.DryRun {
		return simulateDay(ctx, cfg, prices, loc)
	}

	errorChan := make(chan error, 1000)
	eg, ctx := errgroup.WithContext(ctx)

	status := server.NewStatus()
	if err := publisher.Register("status", status); err != nil {
		return err
	}

	if app.DatabaseURL != "" {
		if err := migration.Migrate(app.DatabaseURL); err != nil {
			return err
		}
		conn, err := pgx.Connect(ctx, app.DatabaseURL)
		if err != nil {
			return err
		}
		db := database.New(conn)
		defer func() {
			_ = db.Close(context.Background())
		}()
		if err := publisher.Register("postgres", db); err != nil {
			return err
		}
		eg.Go(func() error {
			return cronCleanup(db, errorChan, loc)
		})
	}

	if app.Mqtt != nil && app.Mqtt.Host != "" {
		opts := paho_mqtt.NewClientOptions().
			AddBroker(app.Mqtt.Host).
			SetUsername(app.Mqtt.Username).
			SetPassword(app.Mqtt.Password).
			SetClientID("elekter")
		m := mqtt.New(paho_mqtt.NewClient(opts))
		if err := m.Connect(); err != nil {
			return err
		}
		if err := publisher.Register("mqtt", m); err != nil {
			return err
		}
	}

	runners := newRunners(ctx, cfg, dispatch.NewExec(0))

	eg.Go(func() error {
		srv := &http.Server{
			Handler:      server.New(status),
			Addr:         rt.ListenAddr,
			WriteTimeout: 15 * time.Second,
			ReadTimeout:  15 * time.Second,
		}
		return srv.ListenAndServe()
	})

	eg.Go(func() error {
		return scheduleDays(ctx, cfg, prices, loc, runners, status)
	})

	eg.Go(func() error {
		// handle any async errors from the cron job
		for {
			select {
			case err := <-errorChan:
				if errors.Is(err, errCron) {
					logger.Error("cron error", zap.Error(err))
					return err
				}
			case <-ctx.Done():
				logger.Info("context done")
				return ctx.Err()
			}
		}
	})

	return eg.Wait()
}

// newRunners builds one runner per configured device. Each runner owns
// its own intended-state tracking; transitions fan out through the
// publisher registry.
func newRunners(ctx context.Context, cfg *config.Config, d runner.Dispatcher) map[string]*runner.Runner {
	runners := make(map[string]*runner.Runner, len(cfg.Devices))
	for _, name := range cfg.DeviceNames() {
		r := runner.New(name, cfg.Devices[name], d, runner.OnTransition(func(tr model.Transition) {
			publisher.PublishTransition(context.Background(), tr)
		}))
		publisher.RegisterDevice(ctx, name, r.Slug())
		runners[name] = r
	}
	return runners
}

// scheduleDays fetches prices, plans and executes one day at a time,
// forever. Runner state carries across days; only the plan is
// recomputed. A price-source failure is fatal for the run so that the
// planner never sees a partial table.
func scheduleDays(ctx context.Context, cfg *config.Config, prices priceSource, loc *time.Location, runners map[string]*runner.Runner, status *server.Status) error {
	for day := midnight(time.Now().In(loc)); ; day = day.AddDate(0, 0, 1) {
		table, err := prices.DayPrices(ctx, day, loc)
		if err != nil {
			return err
		}
		consumer := elering.ApplyPackageRates(table, cfg.Package, loc)

		plans := make(map[string]model.Plan, len(cfg.Devices))
		for name, dev := range cfg.Devices {
			plans[name] = planner.Plan(consumer, dev)
			zap.L().Info("planned day",
				zap.String("day", day.Format(time.DateOnly)),
				zap.String("device", name),
				zap.Int("hours_on", lo.Count(plans[name], true)))
		}
		if status != nil {
			status.SetDay(day, consumer, plans)
		}

		deg, dctx := errgroup.WithContext(ctx)
		for name, r := range runners {
			name, r := name, r
			deg.Go(func() error {
				return r.RunDay(dctx, consumer, plans[name])
			})
		}
		if err := deg.Wait(); err != nil {
			return err
		}
	}
}

// simulateDay plans the current day and walks it with the dry-run
// dispatcher: no commands execute, no sinks are registered, but the
// logged transition sequence matches what live mode would do.
func simulateDay(ctx context.Context, cfg *config.Config, prices priceSource, loc *time.Location) error {
	day := midnight(time.Now().In(loc))
	table, err := prices.DayPrices(ctx, day, loc)
	if err != nil {
		return err
	}
	consumer := elering.ApplyPackageRates(table, cfg.Package, loc)

	d := dispatch.NewDryRun()
	for _, name := range cfg.DeviceNames() {
		dev := cfg.Devices[name]
		plan := planner.Plan(consumer, dev)
		zap.L().Info("planned day",
			zap.String("day", day.Format(time.DateOnly)),
			zap.String("device", name),
			zap.Int("hours_on", lo.Count(plan, true)))

		r := runner.New(name, dev, d, runner.WithSimulate(true))
		if err := r.RunDay(ctx, consumer, plan); err != nil {
			return err
		}
	}
	return nil
}

var errCron = errors.New("cron error")

func cronCleanup(db *database.Database, errChan chan error, loc *time.Location) error {
	if err := db.Cleanup(contxt.NewContext(time.Minute)); err != nil {
		return err
	}

	// CRON automation
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc("0 3 * * *", func() {
		if err := db.Cleanup(contxt.NewContext(time.Minute)); err != nil {
			zap.L().Error("error cleaning up transition history", zap.Error(err))
			errChan <- errCron
			return
		}
		zap.L().Info("pruned old transition history")
	}); err != nil {
		return err
	}

	c.Run()
	return nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
