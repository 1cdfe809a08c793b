package elering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/danwue/elekter/internal/pkg/config"
	"github.com/danwue/elekter/internal/pkg/model"
)

// ErrPricesUnavailable is returned whenever a complete table for the
// requested day cannot be produced. The planner must never run on a
// partial table.
var ErrPricesUnavailable = errors.New("elering: prices unavailable")

// Client fetches Nord Pool day-ahead spot prices from the Elering
// dashboard API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

func New(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		logger:     zap.L(),
	}
}

type priceResponse struct {
	Success bool `json:"success"`
	Data    struct {
		EE []priceEntry `json:"ee"`
	} `json:"data"`
}

type priceEntry struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

// DayPrices returns the hourly spot prices covering one calendar day in
// loc, sorted by start time. DST transition days yield 23 or 25 slots.
func (c *Client) DayPrices(ctx context.Context, day time.Time, loc *time.Location) (model.PriceTable, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1).Add(-time.Second)

	query := url.Values{}
	query.Set("start", start.Format(time.RFC3339))
	query.Set("end", end.Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPricesUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrPricesUnavailable, resp.StatusCode)
	}

	var pr priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPricesUnavailable, err)
	}
	if !pr.Success {
		return nil, fmt.Errorf("%w: response not successful", ErrPricesUnavailable)
	}
	if len(pr.Data.EE) == 0 {
		return nil, fmt.Errorf("%w: no prices for %s", ErrPricesUnavailable, start.Format(time.DateOnly))
	}

	table := lo.Map(pr.Data.EE, func(e priceEntry, _ int) model.Price {
		return model.Price{StartTime: time.Unix(e.Timestamp, 0).In(loc), Value: e.Price}
	})
	slices.SortFunc(table, func(a, b model.Price) int {
		return a.StartTime.Compare(b.StartTime)
	})

	c.logger.Info("fetched day-ahead prices",
		zap.String("day", start.Format(time.DateOnly)),
		zap.Int("slots", len(table)))
	return table, nil
}

// ApplyPackageRates adds the grid operator's transmission rate to every
// slot: the day rate Mon-Fri between 07:00 and 22:00 local time, the
// night rate otherwise.
func ApplyPackageRates(table model.PriceTable, rates config.PackageRates, loc *time.Location) model.PriceTable {
	return lo.Map(table, func(p model.Price, _ int) model.Price {
		local := p.StartTime.In(loc)
		rate := rates.Night
		if wd := local.Weekday(); wd >= time.Monday && wd <= time.Friday && local.Hour() >= 7 && local.Hour() < 22 {
			rate = rates.Day
		}
		p.Value += rate
		return p
	})
}
