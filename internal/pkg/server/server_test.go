package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danwue/elekter/internal/pkg/model"
)

func testStatus(t *testing.T) (*Status, time.Time) {
	t.Helper()
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	table := model.PriceTable{
		{StartTime: day, Value: 10},
		{StartTime: day.Add(time.Hour), Value: 20},
		{StartTime: day.Add(2 * time.Hour), Value: 30},
	}

	status := NewStatus()
	require.NoError(t, status.RegisterDevice(context.Background(), "boiler", "boiler"))
	require.NoError(t, status.RegisterDevice(context.Background(), "heater", "heater"))
	status.SetDay(day, table, map[string]model.Plan{
		"boiler": {true, false, true},
		"heater": {false, false, false},
	})
	require.NoError(t, status.WriteTransition(context.Background(), model.Transition{Device: "boiler", On: true, Slot: 0}))
	return status, day
}

func TestGetStatus(t *testing.T) {
	status, day := testStatus(t)
	handler := New(status, WithClock(func() time.Time { return day.Add(90 * time.Minute) }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Date        string `json:"date"`
		CurrentSlot *int   `json:"current_slot"`
		Devices     map[string]struct {
			State string `json:"state"`
			Plan  []bool `json:"plan"`
		} `json:"devices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "2026-08-31", resp.Date)
	require.NotNil(t, resp.CurrentSlot)
	assert.Equal(t, 1, *resp.CurrentSlot)
	assert.Equal(t, "on", resp.Devices["boiler"].State)
	assert.Equal(t, []bool{true, false, true}, resp.Devices["boiler"].Plan)
	assert.Equal(t, "unknown", resp.Devices["heater"].State)
}

func TestGetPrices(t *testing.T) {
	status, _ := testStatus(t)
	handler := New(status)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/prices", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var prices []struct {
		Price float64 `json:"price"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prices))
	require.Len(t, prices, 3)
	assert.Equal(t, 10.0, prices[0].Price)
}

func TestMethodNotAllowed(t *testing.T) {
	status, _ := testStatus(t)
	handler := New(status)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
