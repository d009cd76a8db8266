// Package record defines the two sample streams produced by a line
// simulation and the sinks that persist them.
// This package has no dependencies on sim/; it stores pure data types.
package record

import (
	"errors"
	"time"
)

// Stream file names used when no explicit paths are configured.
const (
	DefaultTelemetryFile = "demoTelemetryData.json"
	DefaultOEEFile       = "OEEmetrics.json"
)

// Telemetry is one per-unit snapshot taken by the telemetry sampler.
// AlarmMessage is null when the unit is not alarming.
type Telemetry struct {
	Speed         float64 `json:"Speed"`
	Temperature   float64 `json:"Temperature"`
	AlarmSeverity string  `json:"AlarmSeverity"`
	AlarmMessage  *string `json:"AlarmMessage"`
	Time          string  `json:"Time"`
	Alarming      bool    `json:"Alarming"`
	EntityID      string  `json:"entityId"`
}

// OEE is one line-level efficiency sample.
type OEE struct {
	OEE          float64 `json:"OEE"`
	Availability float64 `json:"Availability"`
	Performance  float64 `json:"Performance"`
	Quality      float64 `json:"Quality"`
	Time         string  `json:"Time"`
	EntityID     string  `json:"entityId"`
}

// Sink receives records as they are sampled. Writes happen from the single
// simulation goroutine, in sampling order.
type Sink interface {
	WriteTelemetry(rec Telemetry) error
	WriteOEE(rec OEE) error
	Close() error
}

// FormatClock renders a sampling clock offset as HH:MM:SS, wrapping at 24h.
func FormatClock(d time.Duration) string {
	return time.Time{}.Add(d).Format(time.TimeOnly)
}

// Discard is a Sink that drops every record.
var Discard Sink = discard{}

type discard struct{}

func (discard) WriteTelemetry(Telemetry) error { return nil }
func (discard) WriteOEE(OEE) error             { return nil }
func (discard) Close() error                   { return nil }

// Tee fans every record out to all sinks, stopping at the first failure.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

type tee []Sink

func (t tee) WriteTelemetry(rec Telemetry) error {
	for _, s := range t {
		if err := s.WriteTelemetry(rec); err != nil {
			return err
		}
	}
	return nil
}

func (t tee) WriteOEE(rec OEE) error {
	for _, s := range t {
		if err := s.WriteOEE(rec); err != nil {
			return err
		}
	}
	return nil
}

func (t tee) Close() error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
