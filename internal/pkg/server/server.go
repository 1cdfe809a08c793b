package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type server struct {
	status *Status
	logger *zap.Logger
	now    func() time.Time
}

// New builds the status API handler.
func New(status *Status, opts ...func(*server)) http.Handler {
	s := &server{status: status, logger: zap.L(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.Use(LoggingMiddleware)
	r.HandleFunc("/api/status", s.getStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/prices", s.getPrices).Methods(http.MethodGet)
	return r
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) func(*server) {
	return func(s *server) {
		s.now = now
	}
}

func (s *server) getStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.status.snapshot(s.now()))
}

func (s *server) getPrices(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.status.prices())
}

func (s *server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}
