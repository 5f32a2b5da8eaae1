// Package httpapi serves the station's status, last frame and reading journal.
package httpapi

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"cloudpico-display/internal/journal"
	"cloudpico-display/internal/station"
)

// SnapshotSource is satisfied by *station.Station.
type SnapshotSource interface {
	Snapshot() *station.Snapshot
}

// ReadingStore is satisfied by *journal.Repository.
type ReadingStore interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Deps wires the handlers. Readings and DB are nil when the journal is off.
type Deps struct {
	Source    SnapshotSource
	Readings  ReadingStore
	DB        *sql.DB
	StationID string
	Logger    *slog.Logger
}

func NewMux(deps Deps) *http.ServeMux {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	api := &api{deps: deps}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", api.handleDashboard)
	mux.HandleFunc("GET /healthz", api.handleHealthz)
	mux.HandleFunc("GET /api/v1/state", api.handleState)
	mux.HandleFunc("GET /preview.png", api.handlePreview)
	mux.HandleFunc("GET /api/v1/readings", api.handleReadings)
	return mux
}

func NewServer(addr string, mux *http.ServeMux, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &http.Server{
		Addr:              addr,
		Handler:           requestLogger(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
