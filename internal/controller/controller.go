// Package controller owns the radar: it polls the sensor driver, keeps the
// reading history and statistics, fires the camera for fast targets and
// serves all of it to other goroutines.
//
// Lock order: Controller.mu, then the driver's own mutex. Nothing acquires
// Controller.mu while holding the driver lock, and no method takes
// Controller.mu twice.
package controller

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/speed.report/internal/history"
	"github.com/banshee-data/speed.report/internal/kld7"
	"github.com/banshee-data/speed.report/internal/monitoring"
	"github.com/banshee-data/speed.report/internal/stats"
	"github.com/banshee-data/speed.report/internal/timeutil"
	"github.com/banshee-data/speed.report/internal/units"
)

const (
	DefaultPollInterval   = 33 * time.Millisecond
	DefaultHistorySize    = 10
	DefaultSpeedThreshold = 15.0

	// heartbeatEvery is the number of consecutive empty polls between
	// "still polling" log lines.
	heartbeatEvery = 200

	subscriberBuffer = 16
)

// Sensor is the part of the K-LD7 driver the controller uses.
type Sensor interface {
	GetDetection() (kld7.Detection, bool, error)
	GetParameters() (kld7.Status, error)
	SetParameter(name string, value int) (kld7.Status, error)
	SetParameterLabel(name, label string) (kld7.Status, error)
	RestoreFactorySettings() (kld7.Status, error)
	Disconnect() (kld7.Status, error)
	Parameters() []kld7.Parameter
	State() kld7.State
	InitTime() time.Time
}

// Camera captures a still of a target. Failures are logged and never stop
// the poll loop.
type Camera interface {
	Capture(speed float64, distanceCM uint16) error
}

// Reading is a detection converted for display.
type Reading struct {
	Time   time.Time `json:"time"`
	Millis int64     `json:"millis"`
	// Speed is the whole-number magnitude in the controller's display units.
	Speed float64 `json:"speed"`
	// SpeedKPH keeps the sensor's signed value; negative is receding.
	SpeedKPH   float64 `json:"speed_kph"`
	DistanceCM uint16  `json:"distance_cm"`
	Angle      float64 `json:"angle_rad"`
	Magnitude  uint16  `json:"magnitude"`
}

// Options configures a Controller. Zero values select the defaults.
type Options struct {
	Units          string
	SpeedThreshold *float64
	PollInterval   time.Duration
	HistorySize    int
	SpeedLadder    []float64
	Location       *time.Location
	Clock          timeutil.Clock
	Camera         Camera
}

// Status is the controller's summary for the status endpoint.
type Status struct {
	State          string    `json:"state"`
	Units          string    `json:"units"`
	SpeedThreshold float64   `json:"speed_threshold"`
	InitTime       time.Time `json:"init_time"`
	LastTracked    time.Time `json:"last_tracked"`
	Uptime         string    `json:"uptime"`
	SinceTracked   string    `json:"since_tracked"`
	Readings       int       `json:"readings"`
	CameraEnabled  bool      `json:"camera_enabled"`
}

// Controller serialises all access to a Sensor between the poll loop and
// callers on other goroutines.
type Controller struct {
	mu          sync.Mutex
	sensor      Sensor
	threshold   float64
	lastTracked time.Time
	history     *history.Ring[Reading]
	agg         *stats.Aggregator

	camera       Camera
	clock        timeutil.Clock
	units        string
	pollInterval time.Duration

	stopped   atomic.Bool
	capturing atomic.Bool
	captures  sync.WaitGroup

	subMu sync.Mutex
	subs  map[string]chan Reading
}

// New returns a controller over an already connected sensor.
func New(sensor Sensor, opts Options) *Controller {
	c := &Controller{
		sensor:       sensor,
		threshold:    DefaultSpeedThreshold,
		history:      history.New[Reading](DefaultHistorySize),
		agg:          stats.NewAggregator(opts.SpeedLadder, opts.Location),
		camera:       opts.Camera,
		clock:        opts.Clock,
		units:        opts.Units,
		pollInterval: opts.PollInterval,
		subs:         make(map[string]chan Reading),
	}
	if opts.SpeedThreshold != nil {
		c.threshold = *opts.SpeedThreshold
	}
	if opts.HistorySize > 0 {
		c.history = history.New[Reading](opts.HistorySize)
	}
	if c.clock == nil {
		c.clock = timeutil.RealClock{}
	}
	if c.units == "" {
		c.units = units.MPH
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	return c
}

// Units returns the display units of Reading.Speed.
func (c *Controller) Units() string { return c.units }

func (c *Controller) toReading(d kld7.Detection) Reading {
	return Reading{
		Time:       d.Time,
		Millis:     d.Millis(),
		Speed:      math.Trunc(math.Abs(units.ConvertFromKPH(d.Speed, c.units))),
		SpeedKPH:   d.Speed,
		DistanceCM: d.DistanceCM,
		Angle:      d.Angle,
		Magnitude:  d.Magnitude,
	}
}

// PollOnce performs one detection poll. It reports whether a reading was
// accepted. Errors come only from the transport, framing or an
// uninitialised sensor.
func (c *Controller) PollOnce() (bool, error) {
	c.mu.Lock()
	det, ok, err := c.sensor.GetDetection()
	if err != nil || !ok {
		c.mu.Unlock()
		return false, err
	}
	r := c.toReading(det)
	c.history.Push(r)
	c.agg.Record(stats.Observation{
		Time:       r.Time,
		Speed:      r.Speed,
		DistanceCM: float64(r.DistanceCM),
		Angle:      r.Angle,
		Magnitude:  float64(r.Magnitude),
	})
	c.lastTracked = r.Time
	threshold := c.threshold
	c.mu.Unlock()

	monitoring.Logf("tracked %.0f%s at %dcm", r.Speed, c.units, r.DistanceCM)
	c.publish(r)

	if c.camera != nil && r.Speed > threshold {
		c.trigger(r)
	}
	return true, nil
}

// trigger starts a capture unless one is already running.
func (c *Controller) trigger(r Reading) {
	if !c.capturing.CompareAndSwap(false, true) {
		return
	}
	c.captures.Add(1)
	go func() {
		defer c.captures.Done()
		defer c.capturing.Store(false)
		if err := c.camera.Capture(r.Speed, r.DistanceCM); err != nil {
			monitoring.Logf("camera capture failed: %v", err)
		}
	}()
}

// WaitCaptures blocks until in-flight camera captures finish.
func (c *Controller) WaitCaptures() { c.captures.Wait() }

// Run polls until Stop is called or ctx is cancelled. A poll error ends the
// loop: the sensor is disconnected and the error returned.
func (c *Controller) Run(ctx context.Context) error {
	ticker := c.clock.NewTicker(c.pollInterval)
	defer ticker.Stop()

	monitoring.Logf("radar loop starting, polling every %v", c.pollInterval)
	empty := 0
	for !c.stopped.Load() {
		ok, err := c.PollOnce()
		if err != nil {
			monitoring.Logf("radar loop stopping on error: %v", err)
			c.disconnect()
			return fmt.Errorf("poll sensor: %w", err)
		}
		if ok {
			empty = 0
		} else if empty++; empty%heartbeatEvery == 0 {
			monitoring.Logf("radar loop alive, %d polls without a target", empty)
		}

		select {
		case <-ctx.Done():
			monitoring.Logf("radar loop cancelled")
			return nil
		case <-ticker.C():
		}
	}
	monitoring.Logf("radar loop stopped")
	return nil
}

// Stop asks Run to return before its next poll.
func (c *Controller) Stop() { c.stopped.Store(true) }

// Close disconnects the sensor, waits for pending captures and closes all
// subscriber channels.
func (c *Controller) Close() error {
	c.Stop()
	_, err := c.disconnectLocked()
	c.captures.Wait()

	c.subMu.Lock()
	defer c.subMu.Unlock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	return err
}

func (c *Controller) disconnect() {
	if _, err := c.disconnectLocked(); err != nil {
		monitoring.Logf("disconnect after error: %v", err)
	}
}

func (c *Controller) disconnectLocked() (kld7.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sensor.Disconnect()
}

// SetParameter writes a raw value to the sensor.
func (c *Controller) SetParameter(name string, value int) (kld7.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sensor.SetParameter(name, value)
}

// SetParameterLabel writes an enumerated parameter by label.
func (c *Controller) SetParameterLabel(name, label string) (kld7.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sensor.SetParameterLabel(name, label)
}

// RestoreFactorySettings resets the sensor to its factory parameters.
func (c *Controller) RestoreFactorySettings() (kld7.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sensor.RestoreFactorySettings()
}

// RefreshParameters re-reads the parameter table from the sensor.
func (c *Controller) RefreshParameters() (kld7.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sensor.GetParameters()
}

// GetParameters returns the cached parameter table.
func (c *Controller) GetParameters() []kld7.Parameter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sensor.Parameters()
}

// GetLastReadings returns the history, newest first.
func (c *Controller) GetLastReadings() []Reading {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.RecentFirst()
}

// GetStats returns a copy of the running statistics.
func (c *Controller) GetStats() stats.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.agg.Snapshot()
}

// RecentSummary summarises the speeds currently in the history.
func (c *Controller) RecentSummary() stats.Summary {
	readings := c.GetLastReadings()
	speeds := make([]float64, len(readings))
	for i, r := range readings {
		speeds[i] = r.Speed
	}
	return stats.Summarize(speeds)
}

// ErrInvalidThreshold is returned for negative or non-finite thresholds.
var ErrInvalidThreshold = errors.New("speed threshold must be a non-negative number")

// SetSpeedThreshold sets the camera trigger speed in display units.
func (c *Controller) SetSpeedThreshold(speed float64) error {
	if speed < 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return ErrInvalidThreshold
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	monitoring.Logf("speed threshold %.1f -> %.1f %s", c.threshold, speed, c.units)
	c.threshold = speed
	return nil
}

// SpeedThreshold returns the camera trigger speed.
func (c *Controller) SpeedThreshold() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.threshold
}

// LastTracked returns the time of the last accepted reading.
func (c *Controller) LastTracked() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTracked
}

// Status reports the sensor state, uptime and time since the last reading.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		State:          c.sensor.State().String(),
		Units:          c.units,
		SpeedThreshold: c.threshold,
		InitTime:       c.sensor.InitTime(),
		LastTracked:    c.lastTracked,
		Readings:       c.agg.Snapshot().Count,
		CameraEnabled:  c.camera != nil,
	}
	if !s.InitTime.IsZero() {
		s.Uptime = c.clock.Since(s.InitTime).Round(time.Second).String()
	}
	if !s.LastTracked.IsZero() {
		s.SinceTracked = c.clock.Since(s.LastTracked).Round(time.Second).String()
	}
	return s
}

// Subscribe returns a channel receiving every accepted reading. Readings
// are dropped for subscribers that fall behind.
func (c *Controller) Subscribe() (string, <-chan Reading) {
	id := uuid.NewString()
	ch := make(chan Reading, subscriberBuffer)
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subs[id] = ch
	return id, ch
}

// Unsubscribe closes and removes a subscription.
func (c *Controller) Unsubscribe(id string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if ch, ok := c.subs[id]; ok {
		close(ch)
		delete(c.subs, id)
	}
}

func (c *Controller) publish(r Reading) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- r:
		default:
		}
	}
}
