package station

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"testing"
	"time"

	"cloudpico-display/internal/display"
	"cloudpico-display/internal/forecast"
	"cloudpico-display/internal/format"
	"cloudpico-display/internal/raster"
	"cloudpico-display/internal/sensor"
)

var t0 = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

// fakeClock only moves when something sleeps or a fake advances it.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return nil
}

type fakePanel struct {
	ttr       time.Duration
	refreshes int
	err       error
}

func (p *fakePanel) Refresh(ctx context.Context, frame image.Image) error {
	if p.err != nil {
		return p.err
	}
	p.refreshes++
	return nil
}
func (p *fakePanel) TimeToRefresh() time.Duration { return p.ttr }
func (p *fakePanel) Close() error                 { return nil }

type fakeForecaster struct {
	clock *fakeClock
	cost  time.Duration
	errs  []error
	calls []time.Time
}

func (f *fakeForecaster) Fetch(ctx context.Context) (*forecast.Response, error) {
	f.calls = append(f.calls, f.clock.now)
	f.clock.now = f.clock.now.Add(f.cost)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return mockForecast(), nil
}

type fakeSensor struct {
	reads int
	err   error
}

func (s *fakeSensor) Read(ctx context.Context) (sensor.Reading, error) {
	s.reads++
	if s.err != nil {
		return sensor.Reading{}, s.err
	}
	return sensor.Reading{TemperatureC: 22, HumidityPct: 41.52}, nil
}
func (s *fakeSensor) Close() error { return nil }

// fakeButtons replays a press script, then reports no presses.
type fakeButtons struct {
	script []bool
	err    error
}

func (b *fakeButtons) AnyPressed() (bool, error) {
	if b.err != nil {
		return false, b.err
	}
	if len(b.script) == 0 {
		return false, nil
	}
	p := b.script[0]
	b.script = b.script[1:]
	return p, nil
}

type fakeSink struct {
	got []sensor.Reading
	err error
}

func (s *fakeSink) Name() string { return "fake" }
func (s *fakeSink) Record(ctx context.Context, r sensor.Reading) error {
	s.got = append(s.got, r)
	return s.err
}

// mockForecast is 2026-10-19 08:00 local (UTC-4), rain, 20C.
func mockForecast() *forecast.Response {
	const midnight = 1792382400
	r := &forecast.Response{
		UTCOffsetSeconds: -14400,
		Current: forecast.Current{
			Time:          1792411200,
			Temperature2m: 20,
			WeatherCode:   61,
		},
		Daily: forecast.Daily{
			WeatherCode:      []int{61, 0, 1, 2, 3, 45},
			Temperature2mMax: []float64{22, 23, 24, 25, 26, 27},
			Temperature2mMin: []float64{10, 11, 12, 13, 14, 15},
		},
	}
	for i := 0; i < 6; i++ {
		day := int64(midnight + 86400*i)
		r.Daily.Time = append(r.Daily.Time, day)
		r.Daily.Sunrise = append(r.Daily.Sunrise, day+7*3600)
		r.Daily.Sunset = append(r.Daily.Sunset, day+18*3600)
	}
	for h := 0; h < 24; h++ {
		r.Hourly.DewPoint2m = append(r.Hourly.DewPoint2m, 10)
	}
	return r
}

type harness struct {
	st      *Station
	clock   *fakeClock
	panel   *fakePanel
	fc      *fakeForecaster
	sensor  *fakeSensor
	buttons *fakeButtons
	sink    *fakeSink
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	clock := &fakeClock{now: t0}
	h := &harness{
		clock:   clock,
		panel:   &fakePanel{},
		fc:      &fakeForecaster{clock: clock},
		sensor:  &fakeSensor{},
		buttons: &fakeButtons{},
		sink:    &fakeSink{},
	}
	cfg := DefaultConfig()
	cfg.Location = "NEW YORK"
	if mutate != nil {
		mutate(&cfg)
	}
	st, err := New(cfg, Deps{
		Forecaster: h.fc,
		Sensor:     h.sensor,
		Buttons:    h.buttons,
		Panel:      h.panel,
		Drawer:     raster.New(),
		Sinks:      []Sink{h.sink},
		Clock:      clock,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.st = st
	return h
}

func (h *harness) step(t *testing.T) {
	t.Helper()
	if err := h.st.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
}

func TestDeadline_drift(t *testing.T) {
	d := NewDeadline(t0, 15*time.Minute)
	if d.Due(t0.Add(15*time.Minute - time.Nanosecond)) {
		t.Error("due before one interval elapsed")
	}
	if !d.Due(t0.Add(15 * time.Minute)) {
		t.Error("not due at exactly one interval")
	}
	// Advancing late still moves the mark by one interval from the old mark.
	d.Advance()
	if got, want := d.Next(), t0.Add(30*time.Minute); !got.Equal(want) {
		t.Errorf("Next = %v; want %v", got, want)
	}
}

func TestStep_firstRunFetchesAndRefreshes(t *testing.T) {
	h := newHarness(t, nil)
	h.step(t)

	if len(h.fc.calls) != 1 {
		t.Fatalf("fetches = %d; want 1", len(h.fc.calls))
	}
	if h.panel.refreshes != 1 {
		t.Errorf("refreshes = %d; want 1", h.panel.refreshes)
	}
	st := h.st.State()
	if st.Today.Icon != 4 || st.Today.Now != "68F" {
		t.Errorf("today icon=%d now=%q; want 4, 68F", st.Today.Icon, st.Today.Now)
	}
	// ttr(0) + 1s settle on both sides of the refresh.
	if want := []time.Duration{time.Second, time.Second}; fmt.Sprint(h.clock.sleeps) != fmt.Sprint(want) {
		t.Errorf("sleeps = %v; want %v", h.clock.sleeps, want)
	}
}

func TestStep_refreshWaitsForPanel(t *testing.T) {
	h := newHarness(t, nil)
	h.panel.ttr = 3 * time.Second
	h.step(t)
	for _, d := range h.clock.sleeps {
		if d != 4*time.Second {
			t.Errorf("sleep = %v; want ttr+1s = 4s", d)
		}
	}
}

func TestStep_weatherScheduleDoesNotDrift(t *testing.T) {
	h := newHarness(t, nil)
	h.fc.cost = 40 * time.Second

	const fetches = 20
	for len(h.fc.calls) < fetches {
		h.step(t)
		_ = h.clock.Sleep(context.Background(), time.Second)
	}

	// The first fetch happens immediately and advances the mark to t0+15m,
	// so fetch k (k >= 1) is due at t0 + (k+1)*15m.
	for k := 1; k < fetches; k++ {
		due := t0.Add(time.Duration(k+1) * 15 * time.Minute)
		late := h.fc.calls[k].Sub(due)
		if late < 0 {
			t.Fatalf("fetch %d at %v ran before its deadline %v", k, h.fc.calls[k], due)
		}
		if late > time.Minute {
			t.Fatalf("fetch %d is %v late; schedule drifted", k, late)
		}
	}
}

func TestStep_sensorScheduleDoesNotDrift(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.WeatherInterval = 24 * time.Hour })
	h.step(t) // first-run fetch
	start := h.clock.now

	var polls []time.Time
	for len(polls) < 50 {
		before := h.sensor.reads
		h.step(t)
		if h.sensor.reads > before {
			polls = append(polls, h.clock.now)
		}
		_ = h.clock.Sleep(context.Background(), 1500*time.Millisecond)
	}
	elapsed := polls[len(polls)-1].Sub(start)
	// Rescheduling from "now" would take 4 steps (6s) per poll.
	if limit := 50*5*time.Second + 5*time.Second; elapsed > limit {
		t.Errorf("50 polls took %v; want at most %v", elapsed, limit)
	}
}

func TestStep_buttonParity(t *testing.T) {
	for presses := 1; presses <= 6; presses++ {
		t.Run(fmt.Sprintf("%d presses", presses), func(t *testing.T) {
			h := newHarness(t, nil)
			h.step(t)
			for i := 0; i < presses; i++ {
				h.buttons.script = []bool{true}
				h.step(t)
			}
			want := display.ViewForecast
			if presses%2 == 1 {
				want = display.ViewSensor
			}
			if got := h.st.State().View; got != want {
				t.Errorf("View = %v; want %v", got, want)
			}
			if h.panel.refreshes != 1+presses {
				t.Errorf("refreshes = %d; want %d", h.panel.refreshes, 1+presses)
			}
		})
	}
}

func TestStep_sensorViewThrottlesRefresh(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.WeatherInterval = 24 * time.Hour })
	h.step(t)
	h.buttons.script = []bool{true}
	h.step(t)
	base := h.panel.refreshes

	polls := 0
	for polls < 125 {
		before := h.sensor.reads
		h.step(t)
		if h.sensor.reads > before {
			polls++
		}
		_ = h.clock.Sleep(context.Background(), 5*time.Second)
	}
	// Polls counted from the toggle; every 60th refreshes.
	if got := h.panel.refreshes - base; got != 2 {
		t.Errorf("sensor-view refreshes after %d polls = %d; want 2", polls, got)
	}
}

func TestStep_forecastViewNeverRefreshesOnSensor(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.WeatherInterval = 24 * time.Hour })
	h.step(t)
	for i := 0; i < 200; i++ {
		h.step(t)
		_ = h.clock.Sleep(context.Background(), 5*time.Second)
	}
	if h.panel.refreshes != 1 {
		t.Errorf("refreshes = %d; want 1", h.panel.refreshes)
	}
	if h.sensor.reads == 0 {
		t.Fatal("sensor never read")
	}
}

func TestStep_sensorCalibrationAndSinks(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.Units = format.Imperial })
	h.step(t)
	_ = h.clock.Sleep(context.Background(), 5*time.Second)
	h.step(t)

	// 22C - 2C = 20C = 68F
	if got := h.st.State().Sensor.Temperature; got != "68.0°F" {
		t.Errorf("sensor temperature = %q; want 68.0°F", got)
	}
	if got := h.st.State().Sensor.Humidity; got != "41.5%" {
		t.Errorf("sensor humidity = %q; want 41.5%%", got)
	}
	if len(h.sink.got) == 0 || h.sink.got[0].TemperatureC != 20 {
		t.Errorf("sink readings = %+v; want calibrated 20C", h.sink.got)
	}
}

func TestStep_sinkFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, nil)
	h.sink.err = errors.New("broker down")
	h.step(t)
	_ = h.clock.Sleep(context.Background(), 5*time.Second)
	h.step(t)
	if len(h.sink.got) == 0 {
		t.Error("sink not called")
	}
}

func TestStep_disabledSensorIsSkipped(t *testing.T) {
	h := newHarness(t, nil)
	h.sensor.err = sensor.ErrDisabled
	h.step(t)
	_ = h.clock.Sleep(context.Background(), 5*time.Second)
	h.step(t)
	if got := h.st.State().Sensor.Temperature; got != "--" {
		t.Errorf("sensor temperature = %q; want placeholder", got)
	}
}

func TestStep_phaseErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
		want  Phase
	}{
		{"fetch", func(h *harness) {
			h.fc.errs = []error{fmt.Errorf("%w: dial tcp: refused", forecast.ErrFetch)}
		}, PhaseFetch},
		{"api", func(h *harness) {
			h.fc.errs = []error{&forecast.APIError{StatusCode: 502}}
		}, PhaseFetch},
		{"decode", func(h *harness) {
			h.fc.errs = []error{errors.Join(forecast.ErrDecode, errors.New("unexpected EOF"))}
		}, PhaseDecode},
		{"refresh", func(h *harness) { h.panel.err = errors.New("busy pin stuck") }, PhaseRefresh},
		{"buttons", func(h *harness) { h.buttons.err = errors.New("gpio gone") }, PhaseButtons},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			tt.setup(h)
			err := h.st.Step(context.Background())
			var pe *PhaseError
			if !errors.As(err, &pe) {
				t.Fatalf("Step err = %v; want *PhaseError", err)
			}
			if pe.Phase != tt.want {
				t.Errorf("phase = %q; want %q", pe.Phase, tt.want)
			}
		})
	}
}

type unknownCodeForecaster struct{}

func (unknownCodeForecaster) Fetch(context.Context) (*forecast.Response, error) {
	r := mockForecast()
	r.Daily.WeatherCode[3] = 999
	return r, nil
}

func TestStep_formatErrorKeepsState(t *testing.T) {
	h := newHarness(t, nil)
	h.st.deps.Forecaster = unknownCodeForecaster{}
	before := h.st.State()

	err := h.st.Step(context.Background())
	if PhaseOf(err) != PhaseFormat {
		t.Fatalf("phase = %q (err %v); want format", PhaseOf(err), err)
	}
	if !errors.Is(err, format.ErrUnknownWeatherCode) {
		t.Errorf("err = %v; want ErrUnknownWeatherCode in chain", err)
	}
	if h.st.State() != before {
		t.Error("state changed after a format error")
	}
}

func TestStep_sensorError(t *testing.T) {
	h := newHarness(t, nil)
	h.step(t)
	h.sensor.err = errors.New("i2c nack")
	_ = h.clock.Sleep(context.Background(), 5*time.Second)
	if got := PhaseOf(h.st.Step(context.Background())); got != PhaseSensor {
		t.Errorf("phase = %q; want sensor", got)
	}
}

func TestRun_backoffAndRetry(t *testing.T) {
	h := newHarness(t, nil)
	h.fc.errs = []error{fmt.Errorf("%w: timeout", forecast.ErrFetch)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := &stopAfterFetches{Forecaster: h.fc, n: 2, cancel: cancel}
	h.st.deps.Forecaster = stop

	if err := h.st.Run(ctx); err != nil {
		t.Fatalf("Run err = %v; want nil after cancel", err)
	}
	if len(h.fc.calls) != 2 {
		t.Fatalf("fetches = %d; want 2 (failure then retry)", len(h.fc.calls))
	}
	if h.clock.sleeps[0] != 2*time.Second {
		t.Errorf("first sleep = %v; want 2s backoff", h.clock.sleeps[0])
	}
	snap := h.st.Snapshot()
	if snap.ErrorCount != 1 || snap.LastError == "" {
		t.Errorf("snapshot errors = %d %q; want 1 recorded", snap.ErrorCount, snap.LastError)
	}
}

// stopAfterFetches cancels the run once n fetches have been attempted.
type stopAfterFetches struct {
	Forecaster
	n      int
	seen   int
	cancel context.CancelFunc
}

func (s *stopAfterFetches) Fetch(ctx context.Context) (*forecast.Response, error) {
	s.seen++
	if s.seen >= s.n {
		defer s.cancel()
	}
	return s.Forecaster.Fetch(ctx)
}

func TestRun_resetOnError(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.ResetOnError = true })
	h.fc.errs = []error{fmt.Errorf("%w: timeout", forecast.ErrFetch)}

	err := h.st.Run(context.Background())
	if PhaseOf(err) != PhaseFetch {
		t.Fatalf("Run err = %v; want fetch PhaseError", err)
	}
	if !errors.Is(err, forecast.ErrFetch) {
		t.Errorf("err chain lost ErrFetch: %v", err)
	}
}

func TestRun_canceledContext(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.st.Run(ctx); err != nil {
		t.Errorf("Run err = %v; want nil", err)
	}
	if len(h.fc.calls) != 0 {
		t.Errorf("fetches = %d; want 0", len(h.fc.calls))
	}
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t, nil)
	if snap := h.st.Snapshot(); snap == nil || snap.Frame != nil {
		t.Fatalf("initial snapshot = %+v; want non-nil without frame", snap)
	}
	h.step(t)

	snap := h.st.Snapshot()
	if snap.State.Today.Now != "68F" {
		t.Errorf("snapshot now = %q; want 68F", snap.State.Today.Now)
	}
	img, err := png.Decode(bytes.NewReader(snap.Frame))
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if img.Bounds().Dx() != display.Width || img.Bounds().Dy() != display.Height {
		t.Errorf("frame bounds = %v", img.Bounds())
	}
	if !snap.NextFetchAt.Equal(t0.Add(30 * time.Minute)) {
		t.Errorf("NextFetchAt = %v; want t0+30m", snap.NextFetchAt)
	}
	if snap.RefreshCount != 1 {
		t.Errorf("RefreshCount = %d; want 1", snap.RefreshCount)
	}
}

func TestSnapshot_tracksNextFetchWithSensorDisabled(t *testing.T) {
	h := newHarness(t, nil)
	h.sensor.err = sensor.ErrDisabled

	fetches := 0
	for i := 0; i < 200; i++ {
		h.step(t)
		if n := len(h.fc.calls); n != fetches {
			fetches = n
			snap := h.st.Snapshot()
			if want := h.st.weather.Next(); !snap.NextFetchAt.Equal(want) {
				t.Fatalf("step %d: NextFetchAt = %v; want %v", i, snap.NextFetchAt, want)
			}
		}
		h.clock.now = h.clock.now.Add(10 * time.Second)
	}
	if fetches < 2 {
		t.Fatalf("fetches = %d; want at least 2", fetches)
	}
	if got, want := h.st.Snapshot().NextFetchAt, h.st.weather.Next(); !got.Equal(want) {
		t.Errorf("final NextFetchAt = %v; want %v", got, want)
	}
}

func TestNew_requiresDeps(t *testing.T) {
	if _, err := New(DefaultConfig(), Deps{}); err == nil {
		t.Error("New with no deps: err = nil")
	}
}
