package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cookiefactory/line-sim/sim/internal/testutil"
	"github.com/cookiefactory/line-sim/sim/record"
)

func runDefaultLine(t *testing.T, seed int64) (*Line, *record.MemorySink) {
	t.Helper()
	cfg := DefaultLineConfig()
	cfg.Seed = seed
	sink := record.NewMemorySink()
	l, err := NewLine(cfg, sink)
	require.NoError(t, err)
	require.NoError(t, l.Run())
	return l, sink
}

func TestLine_SameSeedIsDeterministic(t *testing.T) {
	// GIVEN two runs with the same seed
	l1, sink1 := runDefaultLine(t, 10)
	l2, sink2 := runDefaultLine(t, 10)

	// THEN the recorded streams and counters are identical
	assert.Equal(t, sink1.Telemetry, sink2.Telemetry)
	assert.Equal(t, sink1.OEE, sink2.OEE)
	assert.Equal(t, l1.Summary(), l2.Summary())
}

func TestLine_DifferentSeedsDiverge(t *testing.T) {
	_, sink1 := runDefaultLine(t, 10)
	_, sink2 := runDefaultLine(t, 11)
	assert.NotEqual(t, sink1.Telemetry, sink2.Telemetry)
}

func TestLine_SamplingCadence(t *testing.T) {
	// GIVEN the default line run to its 4.05 horizon
	l, sink := runDefaultLine(t, 10)

	// THEN telemetry covers ticks 0..24, one record per unit
	require.Len(t, sink.Telemetry, 25*len(l.Units))
	assert.Equal(t, "00:00:00", sink.Telemetry[0].Time)
	assert.Equal(t, CookieFormerID, sink.Telemetry[0].EntityID)
	assert.Equal(t, "00:00:10", sink.Telemetry[len(l.Units)].Time)
	assert.Equal(t, "00:04:00", sink.Telemetry[len(sink.Telemetry)-1].Time)

	// AND OEE is sampled every 0.501 starting one period in, on the shared clock
	require.Len(t, sink.OEE, 8)
	assert.Equal(t, "00:00:30", sink.OEE[0].Time)
	for _, rec := range sink.OEE {
		assert.Equal(t, CookieLineID, rec.EntityID)
	}
}

func TestLine_CountersAreConsistent(t *testing.T) {
	l, sink := runDefaultLine(t, 10)

	assert.Equal(t, l.Unit(LabelingBeltID).BatchesProcessed, l.TotalBatchesProduced,
		"line output is the terminal unit's output")
	assert.LessOrEqual(t, l.BadBatchesOutput, l.TotalBatchesProduced)
	assert.GreaterOrEqual(t, l.DownTime, 0.0)
	assert.LessOrEqual(t, l.DownTime, l.Now())
	assert.Equal(t, 4.05, l.Now())

	for _, rec := range sink.OEE {
		testutil.AssertInUnitInterval(t, "Availability", rec.Availability)
		testutil.AssertInUnitInterval(t, "Quality", rec.Quality)
		assert.GreaterOrEqual(t, rec.Performance, 0.0)
		testutil.AssertFloat64Equal(t, "OEE", rec.Availability*rec.Performance*rec.Quality, rec.OEE, 1e-12)
	}
}

func TestLine_Summary(t *testing.T) {
	l := newQuietLine(t)
	require.NoError(t, l.RunUntil(1.0))

	s := l.Summary()
	assert.Equal(t, CookieLineID, s.LineID)
	assert.Equal(t, 4, s.TotalBatchesProduced)
	assert.Len(t, s.UnitBatches, 10)
	assert.Equal(t, 1.0, s.OEE.Availability)
	assert.Equal(t, CookieFormerID, l.UnitIDs()[0])
}

type failingSink struct {
	record.MemorySink
	failAfter int
}

func (f *failingSink) WriteTelemetry(rec record.Telemetry) error {
	if len(f.Telemetry) >= f.failAfter {
		return errors.New("disk full")
	}
	return f.MemorySink.WriteTelemetry(rec)
}

func TestLine_SinkErrorStopsRecording(t *testing.T) {
	// GIVEN a sink that fails after 15 telemetry records
	sink := &failingSink{failAfter: 15}
	l, err := NewLine(quietLineConfig(), sink)
	require.NoError(t, err)

	// WHEN the line runs
	err = l.Run()

	// THEN the first error is returned and nothing more is written
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, sink.Telemetry, 15)
	assert.Empty(t, sink.OEE)
	assert.Equal(t, err, l.Err())

	// AND the simulation itself still reached the horizon
	assert.Equal(t, 4.05, l.Now())
	assert.Greater(t, l.TotalBatchesProduced, 0)
}

func TestNewLine_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultLineConfig()
	cfg.Units[0].Downstream = "nowhere"
	_, err := NewLine(cfg, nil)
	assert.Error(t, err)
}
