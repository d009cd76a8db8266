package record

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordSQLiteRun(t *testing.T, path string, tel []Telemetry, oee []OEE) string {
	t.Helper()
	sink, err := NewSQLiteSink(context.Background(), path, "line")
	require.NoError(t, err)
	for _, rec := range tel {
		require.NoError(t, sink.WriteTelemetry(rec))
	}
	for _, rec := range oee {
		require.NoError(t, sink.WriteOEE(rec))
	}
	require.NoError(t, sink.Close())
	return sink.RunID()
}

func TestSQLiteSink_RoundTrip(t *testing.T) {
	// GIVEN a run recorded into SQLite
	path := filepath.Join(t.TempDir(), "runs.db")
	runID := recordSQLiteRun(t, path, sampleTelemetry(), sampleOEE())
	require.NotEmpty(t, runID)

	// WHEN it is read back by id
	mem, err := ReadSQLite(context.Background(), path, runID)
	require.NoError(t, err)

	// THEN both streams match in order, including null alarm messages
	assert.Equal(t, sampleTelemetry(), mem.Telemetry)
	assert.Equal(t, sampleOEE(), mem.OEE)
	assert.Nil(t, mem.Telemetry[0].AlarmMessage)
}

func TestReadSQLite_DefaultsToLatestRun(t *testing.T) {
	// GIVEN two runs in the same database
	path := filepath.Join(t.TempDir(), "runs.db")
	first := recordSQLiteRun(t, path, sampleTelemetry(), sampleOEE())
	second := recordSQLiteRun(t, path, sampleTelemetry()[:1], sampleOEE()[:1])
	assert.NotEqual(t, first, second)

	// WHEN no run id is given
	mem, err := ReadSQLite(context.Background(), path, "")
	require.NoError(t, err)

	// THEN the most recent run is returned
	assert.Len(t, mem.Telemetry, 1)
	assert.Len(t, mem.OEE, 1)

	// AND earlier runs stay addressable
	mem, err = ReadSQLite(context.Background(), path, first)
	require.NoError(t, err)
	assert.Len(t, mem.Telemetry, 3)
}

func TestReadSQLite_EmptyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	sink, err := NewSQLiteSink(context.Background(), path, "line")
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	mem, err := ReadSQLite(context.Background(), path, "no-such-run")
	require.NoError(t, err)
	assert.Empty(t, mem.Telemetry)
	assert.Empty(t, mem.OEE)
}

func TestNewSQLiteSink_RequiresPath(t *testing.T) {
	_, err := NewSQLiteSink(context.Background(), "", "line")
	assert.Error(t, err)
}
