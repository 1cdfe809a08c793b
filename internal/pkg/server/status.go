package server

import (
	"context"
	"sync"
	"time"

	"github.com/danwue/elekter/internal/pkg/model"
)

// Status is the read-side view shared with the HTTP API. Runners feed it
// through the publisher registry; the planner output is installed once
// per day.
type Status struct {
	mu     sync.RWMutex
	day    time.Time
	table  model.PriceTable
	plans  map[string]model.Plan
	states map[string]*bool
}

func NewStatus() *Status {
	return &Status{
		plans:  map[string]model.Plan{},
		states: map[string]*bool{},
	}
}

// SetDay installs a new day's price table and per-device plans. Device
// states carry over.
func (s *Status) SetDay(day time.Time, table model.PriceTable, plans map[string]model.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.day = day
	s.table = table
	s.plans = plans
}

// WriteTransition implements the publisher sink interface.
func (s *Status) WriteTransition(_ context.Context, tr model.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	on := tr.On
	s.states[tr.Device] = &on
	return nil
}

func (s *Status) RegisterDevice(_ context.Context, name, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[name]; !ok {
		s.states[name] = nil // state unknown until the first dispatch
	}
	return nil
}

type deviceStatus struct {
	State string     `json:"state"`
	Plan  model.Plan `json:"plan"`
}

type statusResponse struct {
	Date        string                  `json:"date"`
	CurrentSlot *int                    `json:"current_slot"`
	Devices     map[string]deviceStatus `json:"devices"`
}

func (s *Status) snapshot(now time.Time) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := statusResponse{
		Date:    s.day.Format(time.DateOnly),
		Devices: make(map[string]deviceStatus, len(s.states)),
	}
	if slot, ok := s.table.SlotAt(now); ok {
		resp.CurrentSlot = &slot
	}
	for name, state := range s.states {
		ds := deviceStatus{State: "unknown", Plan: s.plans[name]}
		if state != nil {
			ds.State = model.StateString(*state)
		}
		resp.Devices[name] = ds
	}
	return resp
}

func (s *Status) prices() model.PriceTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}
