package cmd

import (
	"context"
	"time"

	"github.com/danwue/elekter/internal/pkg/model"
)

type priceSource interface {
	DayPrices(ctx context.Context, day time.Time, loc *time.Location) (model.PriceTable, error)
}
