package cmd

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/danwue/elekter/internal/pkg/config"
	"github.com/danwue/elekter/internal/pkg/model"
	"github.com/danwue/elekter/internal/pkg/runner"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	calls [][]string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, argv []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, argv)
	return nil
}

func (d *recordingDispatcher) Calls() [][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func useTestLogger(t *testing.T) {
	t.Helper()
	original := zap.L()
	zap.ReplaceGlobals(zaptest.NewLogger(t))
	t.Cleanup(func() {
		zap.ReplaceGlobals(original)
	})
}

func testConfig() *config.Config {
	threshold := 25.0
	return &config.Config{
		Package: config.PackageRates{Day: 10.0, Night: 5.0},
		Devices: map[string]config.Device{
			"boiler": {
				Threshold: &threshold,
				CmdOn:     []string{"on"},
				CmdOff:    []string{"off"},
			},
		},
	}
}

func tableForToday(loc *time.Location, prices ...float64) model.PriceTable {
	day := midnight(time.Now().In(loc))
	table := make(model.PriceTable, 0, len(prices))
	for i, p := range prices {
		table = append(table, model.Price{StartTime: day.Add(time.Duration(i) * time.Hour), Value: p})
	}
	return table
}

func TestScheduleDaysPropagatesPriceFailure(t *testing.T) {
	useTestLogger(t)
	errPrices := errors.New("prices down")
	src := &MockPriceSource{
		DayPricesFunc: func(context.Context, time.Time, *time.Location) (model.PriceTable, error) {
			return nil, errPrices
		},
	}

	err := scheduleDays(context.Background(), testConfig(), src, time.UTC, nil, nil)
	assert.ErrorIs(t, err, errPrices)
}

func TestScheduleDaysPlansAndRuns(t *testing.T) {
	useTestLogger(t)
	cfg := testConfig()
	errDone := errors.New("no more days")

	days := 0
	src := &MockPriceSource{
		DayPricesFunc: func(_ context.Context, _ time.Time, loc *time.Location) (model.PriceTable, error) {
			days++
			if days > 1 {
				return nil, errDone
			}
			// Night rate 5.0 applies at midnight: consumer prices become
			// 15, 55, 15 against threshold 25.
			return tableForToday(loc, 10, 50, 10), nil
		},
	}

	d := &recordingDispatcher{}
	r := runner.New("boiler", cfg.Devices["boiler"], d, runner.WithSimulate(true))

	err := scheduleDays(context.Background(), cfg, src, time.UTC, map[string]*runner.Runner{"boiler": r}, nil)
	assert.ErrorIs(t, err, errDone)

	assert.Equal(t, [][]string{{"on"}, {"off"}, {"on"}}, d.Calls())
}

func TestSimulateDay(t *testing.T) {
	useTestLogger(t)
	src := &MockPriceSource{
		DayPricesFunc: func(_ context.Context, _ time.Time, loc *time.Location) (model.PriceTable, error) {
			return tableForToday(loc, 10, 50), nil
		},
	}

	require.NoError(t, simulateDay(context.Background(), testConfig(), src, time.UTC))
}

func TestSimulateDayPriceFailure(t *testing.T) {
	useTestLogger(t)
	err := simulateDay(context.Background(), testConfig(), &MockPriceSource{}, time.UTC)
	assert.Error(t, err)
}

func TestMidnight(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Tallinn")
	require.NoError(t, err)

	ts := time.Date(2026, 8, 31, 17, 45, 12, 999, loc)
	got := midnight(ts)

	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, loc), got)
	assert.Equal(t, loc, got.Location())
}
