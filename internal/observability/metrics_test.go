package observability

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestMethodLabelBoundsCardinality(t *testing.T) {
	require.Equal(t, http.MethodGet, methodLabel(http.MethodGet))
	require.Equal(t, http.MethodDelete, methodLabel(http.MethodDelete))
	require.Equal(t, "other", methodLabel("BREW"))
	require.Equal(t, "other", methodLabel("get"))
	require.Equal(t, "other", methodLabel(""))
}

func TestObserveRequestFoldsUnknownMethods(t *testing.T) {
	before := sampleCount(t, "other", "4xx")

	ObserveRequest("PROPFIND-X1", http.StatusMethodNotAllowed, 0.002)
	ObserveRequest("PROPFIND-X2", http.StatusMethodNotAllowed, 0.002)

	require.Equal(t, before+2, sampleCount(t, "other", "4xx"))
}

func TestAdjustRosterSizeMovesFromListedValue(t *testing.T) {
	RecordRosterSize("Drama Club", 3)
	AdjustRosterSize("Drama Club", 1)
	AdjustRosterSize("Drama Club", 1)
	AdjustRosterSize("Drama Club", -1)

	var m dto.Metric
	require.NoError(t, rosterSizeGauge.WithLabelValues("Drama Club").Write(&m))
	require.Equal(t, float64(4), m.GetGauge().GetValue())
}

func sampleCount(t *testing.T, method, class string) uint64 {
	t.Helper()
	observer, err := requestDuration.GetMetricWithLabelValues(method, class)
	require.NoError(t, err)
	var m dto.Metric
	require.NoError(t, observer.(prometheus.Metric).Write(&m))
	return m.GetHistogram().GetSampleCount()
}
