package record

import (
	"fmt"
	"io"
	"sort"
)

// MemorySink collects records in memory.
type MemorySink struct {
	Telemetry []Telemetry
	OEE       []OEE
}

// NewMemorySink creates a MemorySink ready for recording.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		Telemetry: make([]Telemetry, 0),
		OEE:       make([]OEE, 0),
	}
}

// WriteTelemetry appends a telemetry record.
func (m *MemorySink) WriteTelemetry(rec Telemetry) error {
	m.Telemetry = append(m.Telemetry, rec)
	return nil
}

// WriteOEE appends an OEE record.
func (m *MemorySink) WriteOEE(rec OEE) error {
	m.OEE = append(m.OEE, rec)
	return nil
}

func (m *MemorySink) Close() error { return nil }

// Summary aggregates statistics from recorded streams.
type Summary struct {
	TelemetrySamples int
	OEESamples       int
	AlarmSamples     map[string]int // severity → number of alarming telemetry samples
	AlarmingEntities int            // entities seen alarming at least once
	MeanOEE          float64
	MinOEE           float64
	LastOEE          *OEE
}

// Summarize computes aggregate statistics from a MemorySink.
// Safe for nil or empty sinks (returns zero-value fields).
func Summarize(m *MemorySink) *Summary {
	summary := &Summary{
		AlarmSamples: make(map[string]int),
	}
	if m == nil {
		return summary
	}

	summary.TelemetrySamples = len(m.Telemetry)
	alarming := make(map[string]bool)
	for _, t := range m.Telemetry {
		if t.Alarming {
			summary.AlarmSamples[t.AlarmSeverity]++
			alarming[t.EntityID] = true
		}
	}
	summary.AlarmingEntities = len(alarming)

	summary.OEESamples = len(m.OEE)
	if len(m.OEE) > 0 {
		total := 0.0
		summary.MinOEE = m.OEE[0].OEE
		for _, o := range m.OEE {
			total += o.OEE
			if o.OEE < summary.MinOEE {
				summary.MinOEE = o.OEE
			}
		}
		summary.MeanOEE = total / float64(len(m.OEE))
		last := m.OEE[len(m.OEE)-1]
		summary.LastOEE = &last
	}
	return summary
}

// Print writes the recorded-stream statistics. Severities are listed in
// name order.
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Recorded Streams ===")
	fmt.Fprintf(w, "Telemetry Samples    : %d\n", s.TelemetrySamples)
	fmt.Fprintf(w, "OEE Samples          : %d\n", s.OEESamples)
	fmt.Fprintf(w, "Alarming Entities    : %d\n", s.AlarmingEntities)
	severities := make([]string, 0, len(s.AlarmSamples))
	for sev := range s.AlarmSamples {
		severities = append(severities, sev)
	}
	sort.Strings(severities)
	for _, sev := range severities {
		fmt.Fprintf(w, "  %-18s %d alarming samples\n", sev, s.AlarmSamples[sev])
	}
	if s.LastOEE == nil {
		return
	}
	fmt.Fprintf(w, "Mean OEE             : %.4f\n", s.MeanOEE)
	fmt.Fprintf(w, "Min OEE              : %.4f\n", s.MinOEE)
	fmt.Fprintf(w, "Last OEE             : %.4f\n", s.LastOEE.OEE)
}
