// Package stats keeps running statistics over accepted radar readings: the
// value range of every measured field, an hour-of-day histogram and a speed
// histogram over a fixed threshold ladder.
package stats

import (
	"math"
	"slices"
	"time"
)

// DefaultSpeedLadder holds the speed bucket thresholds, in display units.
var DefaultSpeedLadder = []float64{1, 5, 10, 15, 20, 25, 30, 35, 40, 45, 50}

// Observation is one accepted reading as seen by the aggregator.
type Observation struct {
	Time       time.Time
	Speed      float64
	DistanceCM float64
	Angle      float64
	Magnitude  float64
}

// Range is the running minimum and maximum of one field. Before the first
// observation Min is above and Max below every representable value.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func emptyRange() Range { return Range{Min: math.MaxFloat64, Max: -math.MaxFloat64} }

// Seen reports whether at least one value has been recorded.
func (r Range) Seen() bool { return r.Min <= r.Max }

func (r *Range) add(v float64) {
	if v < r.Min {
		r.Min = v
	}
	if v > r.Max {
		r.Max = v
	}
}

// Bucket counts readings whose speed exceeded Threshold but no higher rung.
type Bucket struct {
	Threshold float64 `json:"threshold"`
	Count     int     `json:"count"`
}

// Stats is a point-in-time copy of the aggregator's state.
type Stats struct {
	Count        int      `json:"count"`
	Speed        Range    `json:"speed"`
	Distance     Range    `json:"distance"`
	Angle        Range    `json:"angle"`
	Magnitude    Range    `json:"magnitude"`
	Hourly       []int    `json:"hourly"`
	SpeedBuckets []Bucket `json:"speed_buckets"`
}

// Aggregator accumulates Stats. It is not safe for concurrent use; the
// controller serialises access.
type Aggregator struct {
	loc   *time.Location
	stats Stats
}

// NewAggregator returns an empty aggregator. A nil ladder selects
// DefaultSpeedLadder; a nil location selects time.Local.
func NewAggregator(ladder []float64, loc *time.Location) *Aggregator {
	if ladder == nil {
		ladder = DefaultSpeedLadder
	}
	if loc == nil {
		loc = time.Local
	}
	rungs := slices.Clone(ladder)
	slices.Sort(rungs)
	rungs = slices.Compact(rungs)

	buckets := make([]Bucket, len(rungs))
	for i, t := range rungs {
		buckets[i].Threshold = t
	}
	return &Aggregator{
		loc: loc,
		stats: Stats{
			Speed:        emptyRange(),
			Distance:     emptyRange(),
			Angle:        emptyRange(),
			Magnitude:    emptyRange(),
			Hourly:       make([]int, 24),
			SpeedBuckets: buckets,
		},
	}
}

// Record folds o into the statistics. At most one speed bucket is
// incremented: the highest threshold strictly below o.Speed.
func (a *Aggregator) Record(o Observation) {
	s := &a.stats
	s.Count++
	s.Speed.add(o.Speed)
	s.Distance.add(o.DistanceCM)
	s.Angle.add(o.Angle)
	s.Magnitude.add(o.Magnitude)
	s.Hourly[o.Time.In(a.loc).Hour()]++

	for i := len(s.SpeedBuckets) - 1; i >= 0; i-- {
		if o.Speed > s.SpeedBuckets[i].Threshold {
			s.SpeedBuckets[i].Count++
			break
		}
	}
}

// Snapshot returns a copy that shares no memory with the aggregator.
func (a *Aggregator) Snapshot() Stats {
	out := a.stats
	out.Hourly = slices.Clone(a.stats.Hourly)
	out.SpeedBuckets = slices.Clone(a.stats.SpeedBuckets)
	return out
}

// Ladder returns the bucket thresholds in ascending order.
func (a *Aggregator) Ladder() []float64 {
	out := make([]float64, len(a.stats.SpeedBuckets))
	for i, b := range a.stats.SpeedBuckets {
		out[i] = b.Threshold
	}
	return out
}
