package record

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func sampleTelemetry() []Telemetry {
	return []Telemetry{
		{Speed: 6, Temperature: 30, AlarmSeverity: "Normal", Time: "00:00:00", EntityID: "former"},
		{Speed: 2, Temperature: 39, AlarmSeverity: "Low", Alarming: true,
			AlarmMessage: strPtr(`{"subject":"Abnormal speed reduction","body":"[Warning] Speed slowed abnormally on former"}`),
			Time:         "00:00:10", EntityID: "former"},
		{Speed: 6, Temperature: -20, AlarmSeverity: "Medium", Alarming: true,
			AlarmMessage: strPtr(`{"subject":"Scheduled repair","body":"[Warning] freezer is blocked for repairs"}`),
			Time:         "00:00:10", EntityID: "freezer"},
	}
}

func sampleOEE() []OEE {
	return []OEE{
		{OEE: 0.9, Availability: 1, Performance: 0.9, Quality: 1, Time: "00:00:30", EntityID: "line"},
		{OEE: 0.6, Availability: 0.75, Performance: 0.8, Quality: 1, Time: "00:01:00", EntityID: "line"},
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatClock(0))
	assert.Equal(t, "00:00:10", FormatClock(10*time.Second))
	assert.Equal(t, "01:02:03", FormatClock(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "00:00:05", FormatClock(24*time.Hour+5*time.Second), "wraps at midnight")
}

type errSink struct{ MemorySink }

func (errSink) WriteOEE(OEE) error { return errors.New("boom") }
func (errSink) Close() error       { return errors.New("close failed") }

func TestTee_FansOutAndJoinsCloseErrors(t *testing.T) {
	// GIVEN a tee over two memory sinks and a failing sink
	a, b := NewMemorySink(), NewMemorySink()
	bad := &errSink{}
	sink := Tee(a, b, bad)

	// WHEN telemetry is written
	require.NoError(t, sink.WriteTelemetry(sampleTelemetry()[0]))

	// THEN every sink received it
	assert.Len(t, a.Telemetry, 1)
	assert.Len(t, b.Telemetry, 1)
	assert.Len(t, bad.Telemetry, 1)

	// AND write and close errors surface
	assert.EqualError(t, sink.WriteOEE(sampleOEE()[0]), "boom")
	assert.Len(t, a.OEE, 1, "sinks before the failure were written")
	assert.EqualError(t, sink.Close(), "close failed")
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard.WriteTelemetry(Telemetry{}))
	assert.NoError(t, Discard.WriteOEE(OEE{}))
	assert.NoError(t, Discard.Close())
}

func TestSummarize(t *testing.T) {
	// GIVEN recorded streams with two alarming samples
	m := NewMemorySink()
	for _, rec := range sampleTelemetry() {
		require.NoError(t, m.WriteTelemetry(rec))
	}
	for _, rec := range sampleOEE() {
		require.NoError(t, m.WriteOEE(rec))
	}

	// WHEN summarized
	s := Summarize(m)

	// THEN counts and OEE aggregates are reported
	assert.Equal(t, 3, s.TelemetrySamples)
	assert.Equal(t, 2, s.OEESamples)
	assert.Equal(t, map[string]int{"Low": 1, "Medium": 1}, s.AlarmSamples)
	assert.Equal(t, 2, s.AlarmingEntities)
	assert.InDelta(t, 0.75, s.MeanOEE, 1e-12)
	assert.Equal(t, 0.6, s.MinOEE)
	require.NotNil(t, s.LastOEE)
	assert.Equal(t, "00:01:00", s.LastOEE.Time)
}

func TestSummarize_NilSink(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.TelemetrySamples)
	assert.Nil(t, s.LastOEE)
	assert.NotNil(t, s.AlarmSamples)
}

func TestSummary_Print(t *testing.T) {
	// GIVEN a summary of recorded streams
	m := NewMemorySink()
	for _, rec := range sampleTelemetry() {
		require.NoError(t, m.WriteTelemetry(rec))
	}
	for _, rec := range sampleOEE() {
		require.NoError(t, m.WriteOEE(rec))
	}

	// WHEN printed
	var buf bytes.Buffer
	Summarize(m).Print(&buf)
	out := buf.String()

	// THEN sample counts, alarm counts and OEE aggregates appear
	assert.Contains(t, out, "Telemetry Samples    : 3")
	assert.Contains(t, out, "OEE Samples          : 2")
	assert.Contains(t, out, "Alarming Entities    : 2")
	assert.Contains(t, out, "Mean OEE             : 0.7500")
	assert.Contains(t, out, "Min OEE              : 0.6000")
	// AND severities are listed in name order
	low := strings.Index(out, "Low ")
	medium := strings.Index(out, "Medium ")
	require.GreaterOrEqual(t, low, 0)
	assert.Greater(t, medium, low)
}

func TestSummary_PrintWithoutOEE(t *testing.T) {
	var buf bytes.Buffer
	Summarize(nil).Print(&buf)
	assert.Contains(t, buf.String(), "Telemetry Samples    : 0")
	assert.NotContains(t, buf.String(), "Mean OEE")
}
