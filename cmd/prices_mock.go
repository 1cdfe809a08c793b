package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/danwue/elekter/internal/pkg/model"
)

// MockPriceSource is a scriptable priceSource implementation for tests.
type MockPriceSource struct {
	DayPricesFunc func(ctx context.Context, day time.Time, loc *time.Location) (model.PriceTable, error)
}

func (m *MockPriceSource) DayPrices(ctx context.Context, day time.Time, loc *time.Location) (model.PriceTable, error) {
	if m.DayPricesFunc != nil {
		return m.DayPricesFunc(ctx, day, loc)
	}
	return nil, errors.New("no prices scripted")
}
