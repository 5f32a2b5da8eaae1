package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"cloudpico-display/internal/display"
	"cloudpico-display/internal/journal"
)

type api struct {
	deps Deps
}

type readingResponse struct {
	Time         time.Time `json:"time"`
	TemperatureC float64   `json:"temperature_c"`
	HumidityPct  float64   `json:"humidity_pct"`
	PressureHPa  float64   `json:"pressure_hpa,omitempty"`
}

type stateResponse struct {
	StationID    string           `json:"stationId"`
	View         string           `json:"view"`
	Display      display.State    `json:"display"`
	LastReading  *readingResponse `json:"lastReading"`
	LastFetchAt  any              `json:"lastFetchAt"`
	NextFetchAt  any              `json:"nextFetchAt"`
	FrameAt      any              `json:"frameAt"`
	RefreshCount int              `json:"refreshCount"`
	ErrorCount   int              `json:"errorCount"`
	LastError    string           `json:"lastError,omitempty"`
	LastErrorAt  any              `json:"lastErrorAt"`
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if a.deps.DB != nil {
		var ok int
		if err := a.deps.DB.QueryRowContext(r.Context(), `SELECT 1`).Scan(&ok); err != nil {
			a.deps.Logger.Error("failed to check database connectivity", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to check database connectivity")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleState(w http.ResponseWriter, r *http.Request) {
	snap := a.deps.Source.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "station not started")
		return
	}
	resp := stateResponse{
		StationID:    a.deps.StationID,
		View:         snap.State.View.String(),
		Display:      snap.State,
		LastFetchAt:  zeroAsNullTime(snap.LastFetchAt),
		NextFetchAt:  zeroAsNullTime(snap.NextFetchAt),
		FrameAt:      zeroAsNullTime(snap.FrameAt),
		RefreshCount: snap.RefreshCount,
		ErrorCount:   snap.ErrorCount,
		LastError:    snap.LastError,
		LastErrorAt:  zeroAsNullTime(snap.LastErrorAt),
	}
	if rd := snap.LastReading; rd != nil {
		resp.LastReading = &readingResponse{
			Time:         rd.Time,
			TemperatureC: rd.TemperatureC,
			HumidityPct:  rd.HumidityPct,
			PressureHPa:  rd.PressureHPa,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) handlePreview(w http.ResponseWriter, r *http.Request) {
	snap := a.deps.Source.Snapshot()
	if snap == nil || len(snap.Frame) == 0 {
		writeError(w, http.StatusServiceUnavailable, "no frame rendered yet")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(snap.Frame)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(snap.Frame); err != nil {
		a.deps.Logger.Debug("write preview failed", "error", err)
	}
}

func (a *api) handleReadings(w http.ResponseWriter, r *http.Request) {
	if a.deps.Readings == nil {
		writeError(w, http.StatusNotFound, "reading journal is disabled")
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := a.deps.Readings.Recent(r.Context(), limit)
	if err != nil {
		a.deps.Logger.Error("failed to load readings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stationId": a.deps.StationID,
		"limit":     limit,
		"items":     items,
	})
}

func parseLimit(r *http.Request) (int, error) {
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, errors.New("invalid 'limit' (expected integer)")
		}
		if n <= 0 {
			return 0, errors.New("'limit' must be > 0")
		}
		if n > journal.MaxRecent {
			return 0, errors.New("'limit' must be <= " + strconv.Itoa(journal.MaxRecent))
		}
		limit = n
	}
	return limit, nil
}

func zeroAsNullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error":   http.StatusText(status),
		"message": msg,
	})
}
