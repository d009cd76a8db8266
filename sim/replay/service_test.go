package replay

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_RoutesByEntity(t *testing.T) {
	// GIVEN a service over the OEE and telemetry datasets
	svc := NewService(nil,
		NewOEEDataset(30*time.Second, oeeRecords()),
		NewTelemetryDataset(10*time.Second, telemetryRecords()))

	// WHEN querying a unit and the line
	unitRows, err := svc.Query(Request{EntityID: "former", SelectedProperties: []string{"Speed"}, Start: midnight, End: midnight.Add(10 * time.Second)})
	require.NoError(t, err)
	lineRows, err := svc.Query(Request{EntityID: "line", SelectedProperties: []string{"OEE"}, Start: midnight, End: midnight.Add(30 * time.Second)})
	require.NoError(t, err)

	// THEN each is answered by the dataset that recorded it
	require.Len(t, unitRows, 1)
	assert.Equal(t, ComponentTelemetry, unitRows[0].ComponentName)
	assert.Equal(t, 6.0, unitRows[0].Value)
	require.Len(t, lineRows, 1)
	assert.Equal(t, ComponentOEE, lineRows[0].ComponentName)
}

func TestService_Errors(t *testing.T) {
	_, err := NewService(nil).Query(Request{EntityID: "line"})
	assert.ErrorIs(t, err, ErrEmptyDataset)
	assert.False(t, IsClientError(err))

	svc := NewService(nil, NewOEEDataset(30*time.Second, oeeRecords()))
	_, err = svc.Query(Request{EntityID: "nobody", SelectedProperties: []string{"OEE"}, Start: midnight, End: midnight})
	assert.ErrorIs(t, err, ErrUnknownEntity)
	assert.True(t, IsClientError(err))
}

func TestService_RecordsMetrics(t *testing.T) {
	// GIVEN a service with metrics
	m := NewMetrics("test")
	svc := NewService(m, NewOEEDataset(30*time.Second, oeeRecords()))

	// WHEN one query succeeds and one is rejected
	_, err := svc.Query(Request{EntityID: "line", SelectedProperties: []string{"OEE"}, Start: midnight, End: midnight.Add(time.Minute)})
	require.NoError(t, err)
	_, err = svc.Query(Request{EntityID: "line", SelectedProperties: []string{"Nope"}, Start: midnight, End: midnight.Add(time.Minute)})
	require.Error(t, err)

	// THEN outcomes and rows are counted
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("rejected")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rowsReturned))

	// AND the handler exposes them
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `test_replay_queries_total{outcome="ok"} 1`)
}
