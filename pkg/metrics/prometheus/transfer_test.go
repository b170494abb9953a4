package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func gatherFamily(t *testing.T, registry *prometheus.Registry, name string) []float64 {
	t.Helper()

	mfs, err := registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		var values []float64
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values = append(values, m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				values = append(values, m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				values = append(values, float64(m.GetHistogram().GetSampleCount()))
			}
		}
		return values
	}
	return nil
}

func TestNewTransferMetrics_CreatesAllMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newTransferMetricsWith(registry)

	if m == nil {
		t.Fatal("newTransferMetricsWith returned nil")
	}

	if m.requestsTotal == nil {
		t.Error("requestsTotal not initialized")
	}
	if m.requestDuration == nil {
		t.Error("requestDuration not initialized")
	}
	if m.requestsInFlight == nil {
		t.Error("requestsInFlight not initialized")
	}
	if m.bytesReceived == nil {
		t.Error("bytesReceived not initialized")
	}
	if m.filesAccepted == nil {
		t.Error("filesAccepted not initialized")
	}
	if m.filesVerified == nil {
		t.Error("filesVerified not initialized")
	}
	if m.filesRejected == nil {
		t.Error("filesRejected not initialized")
	}
	if m.activeConnections == nil {
		t.Error("activeConnections not initialized")
	}
	if m.connsAccepted == nil {
		t.Error("connsAccepted not initialized")
	}
	if m.connsClosed == nil {
		t.Error("connsClosed not initialized")
	}
	if m.connsForceClosed == nil {
		t.Error("connsForceClosed not initialized")
	}
}

func TestRecordRequest_CountsAndTimes(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newTransferMetricsWith(registry)

	m.RecordRequest("register", "1600", 2*time.Millisecond)
	m.RecordRequest("register", "1601", 1*time.Millisecond)
	m.RecordRequest("send-file", "none", 40*time.Millisecond)

	totals := gatherFamily(t, registry, "cipherdrop_requests_total")
	if len(totals) != 3 {
		t.Fatalf("requests_total has %d series, want 3", len(totals))
	}
	for _, v := range totals {
		if v != 1 {
			t.Errorf("requests_total series value = %v, want 1", v)
		}
	}

	durations := gatherFamily(t, registry, "cipherdrop_request_duration_milliseconds")
	if len(durations) != 2 {
		t.Fatalf("request_duration has %d series, want 2", len(durations))
	}
}

func TestRecordRequestInFlight_TracksGauge(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newTransferMetricsWith(registry)

	m.RecordRequestStart("send-file")
	m.RecordRequestStart("send-file")
	m.RecordRequestEnd("send-file")

	values := gatherFamily(t, registry, "cipherdrop_requests_in_flight")
	if len(values) != 1 || values[0] != 1 {
		t.Errorf("requests_in_flight = %v, want [1]", values)
	}
}

func TestRecordBytesReceived_Accumulates(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newTransferMetricsWith(registry)

	m.RecordBytesReceived("send-file", 1024)
	m.RecordBytesReceived("send-file", 476)

	values := gatherFamily(t, registry, "cipherdrop_bytes_received_total")
	if len(values) != 1 || values[0] != 1500 {
		t.Errorf("bytes_received_total = %v, want [1500]", values)
	}
}

func TestFileOutcomeCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newTransferMetricsWith(registry)

	m.RecordFileAccepted()
	m.RecordFileAccepted()
	m.RecordFileVerified()
	m.RecordFileRejected()

	if v := gatherFamily(t, registry, "cipherdrop_files_accepted_total"); len(v) != 1 || v[0] != 2 {
		t.Errorf("files_accepted_total = %v, want [2]", v)
	}
	if v := gatherFamily(t, registry, "cipherdrop_files_verified_total"); len(v) != 1 || v[0] != 1 {
		t.Errorf("files_verified_total = %v, want [1]", v)
	}
	if v := gatherFamily(t, registry, "cipherdrop_files_rejected_total"); len(v) != 1 || v[0] != 1 {
		t.Errorf("files_rejected_total = %v, want [1]", v)
	}
}

func TestConnectionMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newTransferMetricsWith(registry)

	m.RecordConnectionAccepted()
	m.RecordConnectionAccepted()
	m.SetActiveConnections(2)
	m.RecordConnectionClosed()
	m.SetActiveConnections(1)
	m.RecordConnectionForceClosed()

	if v := gatherFamily(t, registry, "cipherdrop_connections_accepted_total"); len(v) != 1 || v[0] != 2 {
		t.Errorf("connections_accepted_total = %v, want [2]", v)
	}
	if v := gatherFamily(t, registry, "cipherdrop_connections_closed_total"); len(v) != 1 || v[0] != 1 {
		t.Errorf("connections_closed_total = %v, want [1]", v)
	}
	if v := gatherFamily(t, registry, "cipherdrop_connections_force_closed_total"); len(v) != 1 || v[0] != 1 {
		t.Errorf("connections_force_closed_total = %v, want [1]", v)
	}
	if v := gatherFamily(t, registry, "cipherdrop_active_connections"); len(v) != 1 || v[0] != 1 {
		t.Errorf("active_connections = %v, want [1]", v)
	}
}
