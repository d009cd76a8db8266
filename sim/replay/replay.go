// Package replay serves recorded sample streams as a repeating synthetic
// waveform: any wall-clock query window maps onto a position in the finite
// recorded sequence and wraps around it.
package replay

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cookiefactory/line-sim/sim/record"
)

var (
	ErrEmptyDataset    = errors.New("no records loaded")
	ErrUnknownEntity   = errors.New("unknown entity")
	ErrUnknownProperty = errors.New("unknown property")
	ErrInvalidRange    = errors.New("invalid query range")
)

// Component names reported on returned rows.
const (
	ComponentOEE       = "OEEComponent"
	ComponentTelemetry = "TelemetryComponent"
)

// TimestampLayout is the ISO-8601 layout of Row.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Row limits per selected property. Requests without MaxRows get
// DefaultMaxRows; requests above MaxRowsLimit are rejected.
const (
	DefaultMaxRows = 100
	MaxRowsLimit   = 10000
)

// Request selects properties of one entity over a wall-clock window.
type Request struct {
	EntityID           string    `json:"entityId" binding:"required"`
	SelectedProperties []string  `json:"selectedProperties" binding:"required,min=1"`
	Start              time.Time `json:"startTime" binding:"required"`
	End                time.Time `json:"endTime" binding:"required"`
	MaxRows            int       `json:"maxRows"` // <= 0 selects DefaultMaxRows
}

// Row is one replayed value.
type Row struct {
	EntityID      string    `json:"entityId"`
	ComponentName string    `json:"componentName"`
	PropertyName  string    `json:"propertyName"`
	Time          time.Time `json:"-"`
	Timestamp     string    `json:"time"`
	Value         any       `json:"value"`
}

// Dataset is one recorded stream indexed by entity, with samples spaced
// Interval apart in replay time.
type Dataset struct {
	Component string
	Interval  time.Duration
	series    map[string][]map[string]any
}

// NewOEEDataset indexes an OEE stream.
func NewOEEDataset(interval time.Duration, recs []record.OEE) *Dataset {
	d := newDataset(ComponentOEE, interval)
	for _, r := range recs {
		d.add(r.EntityID, map[string]any{
			"OEE":          r.OEE,
			"Availability": r.Availability,
			"Performance":  r.Performance,
			"Quality":      r.Quality,
			"Time":         r.Time,
		})
	}
	return d
}

// NewTelemetryDataset indexes a telemetry stream.
func NewTelemetryDataset(interval time.Duration, recs []record.Telemetry) *Dataset {
	d := newDataset(ComponentTelemetry, interval)
	for _, r := range recs {
		var msg any
		if r.AlarmMessage != nil {
			msg = *r.AlarmMessage
		}
		d.add(r.EntityID, map[string]any{
			"Speed":         r.Speed,
			"Temperature":   r.Temperature,
			"AlarmSeverity": r.AlarmSeverity,
			"AlarmMessage":  msg,
			"Alarming":      r.Alarming,
			"Time":          r.Time,
		})
	}
	return d
}

func newDataset(component string, interval time.Duration) *Dataset {
	return &Dataset{Component: component, Interval: interval, series: make(map[string][]map[string]any)}
}

func (d *Dataset) add(entity string, props map[string]any) {
	d.series[entity] = append(d.series[entity], props)
}

// Len returns the number of samples recorded for entity.
func (d *Dataset) Len(entity string) int { return len(d.series[entity]) }

// HasEntity reports whether any sample was recorded for entity.
func (d *Dataset) HasEntity(entity string) bool { return len(d.series[entity]) > 0 }

// Entities returns the number of distinct entities in the dataset.
func (d *Dataset) Entities() int { return len(d.series) }

// Query replays the selected properties. For each property the start time
// is mapped to a bin of the recorded window (len(samples) * Interval), the
// row count is the window length in intervals capped at MaxRows, and the
// sample index wraps modulo the number of samples.
func (d *Dataset) Query(req Request) ([]Row, error) {
	if d.Interval <= 0 {
		return nil, fmt.Errorf("replay interval must be positive, got %v", d.Interval)
	}
	if len(d.series) == 0 {
		return nil, ErrEmptyDataset
	}
	if req.End.Before(req.Start) {
		return nil, ErrInvalidRange
	}
	maxRows := req.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	if maxRows > MaxRowsLimit {
		return nil, fmt.Errorf("%w: maxRows %d exceeds %d", ErrInvalidRange, maxRows, MaxRowsLimit)
	}
	samples, ok := d.series[req.EntityID]
	if !ok || len(samples) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, req.EntityID)
	}
	for _, prop := range req.SelectedProperties {
		if _, ok := samples[0][prop]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProperty, prop)
		}
	}

	interval := d.Interval.Seconds()
	startSec := unixSeconds(req.Start)
	window := float64(len(samples)) * interval
	startIndex := int(math.Mod(math.Mod(startSec, window)+window, window) / interval)
	count := int(min((unixSeconds(req.End)-startSec)/interval, float64(maxRows)))
	firstSec := math.Floor(startSec/interval) * interval
	whole := math.Floor(firstSec)
	first := time.Unix(int64(whole), int64(math.Round((firstSec-whole)*float64(time.Second)))).UTC()

	rows := make([]Row, 0, count*len(req.SelectedProperties))
	for _, prop := range req.SelectedProperties {
		ts, idx := first, startIndex
		for i := 0; i < count; i++ {
			rows = append(rows, Row{
				EntityID:      req.EntityID,
				ComponentName: d.Component,
				PropertyName:  prop,
				Time:          ts,
				Timestamp:     ts.Format(TimestampLayout),
				Value:         samples[idx][prop],
			})
			ts = ts.Add(d.Interval)
			idx = (idx + 1) % len(samples)
		}
	}
	return rows, nil
}

// unixSeconds avoids UnixNano, which overflows outside 1678-2262.
func unixSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}
