package httpapi

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"cloudpico-display/internal/display"
	"cloudpico-display/internal/journal"
)

//go:embed templates/*.html
var viewsFS embed.FS

const dashboardReadings = 20

var dashboardTmpl = template.Must(parseTemplates(viewsFS, "templates"))

func parseTemplates(fsys fs.FS, dir string) (*template.Template, error) {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return nil, err
	}
	return template.ParseFS(sub, "*.html")
}

type dashboardData struct {
	StationID    string
	View         string
	State        display.State
	HasFrame     bool
	RefreshCount int
	LastError    string
	LastErrorAt  string
	Readings     []journal.Entry
}

func renderDashboard(w io.Writer, data *dashboardData) error {
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}

func (a *api) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	snap := a.deps.Source.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "station not started")
		return
	}
	data := &dashboardData{
		StationID:    a.deps.StationID,
		View:         snap.State.View.String(),
		State:        snap.State,
		HasFrame:     len(snap.Frame) > 0,
		RefreshCount: snap.RefreshCount,
		LastError:    snap.LastError,
	}
	if !snap.LastErrorAt.IsZero() {
		data.LastErrorAt = snap.LastErrorAt.Format("2006-01-02 15:04:05")
	}
	if a.deps.Readings != nil {
		readings, err := a.deps.Readings.Recent(r.Context(), dashboardReadings)
		if err != nil {
			a.deps.Logger.Warn("dashboard: load readings failed", "error", err)
		}
		data.Readings = readings
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderDashboard(w, data); err != nil {
		a.deps.Logger.Error("dashboard template render failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render page")
	}
}
