package station

import (
	"time"

	"cloudpico-display/internal/display"
	"cloudpico-display/internal/sensor"
)

// Snapshot is an immutable copy of what the loop last showed. It is safe to
// share between goroutines.
type Snapshot struct {
	State        display.State
	Frame        []byte // PNG of the last refreshed frame, nil before the first refresh
	FrameAt      time.Time
	LastFetchAt  time.Time
	NextFetchAt  time.Time
	LastReading  *sensor.Reading
	LastError    string
	LastErrorAt  time.Time
	ErrorCount   int
	RefreshCount int
}

func (s *Station) publish() {
	snap := &Snapshot{
		State:        s.state,
		Frame:        s.lastFrame,
		FrameAt:      s.lastFrameAt,
		LastFetchAt:  s.lastFetchAt,
		NextFetchAt:  s.weather.Next(),
		ErrorCount:   s.errorCount,
		RefreshCount: s.refreshCount,
		LastErrorAt:  s.lastErrAt,
	}
	if s.lastReading != nil {
		r := *s.lastReading
		snap.LastReading = &r
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	s.snapshot.Store(snap)
}

// Snapshot returns the latest published snapshot. Never nil after New.
func (s *Station) Snapshot() *Snapshot {
	return s.snapshot.Load()
}
