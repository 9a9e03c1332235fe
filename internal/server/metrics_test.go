package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// newMetricsTestRegistry builds server metrics on a fresh isolated registry
// so tests do not pollute prometheus.DefaultRegisterer.
func newMetricsTestRegistry(t *testing.T) (*serverMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return newServerMetrics(reg), reg
}

func Test_Metrics_EndpointReturns200(t *testing.T) {
	t.Parallel()
	_, reg := newMetricsTestRegistry(t)

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/metrics", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("want 200, got %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("want text/plain content-type, got %q", ct)
	}
}

func Test_Metrics_ChatCounterIncremented(t *testing.T) {
	t.Parallel()
	m, reg := newMetricsTestRegistry(t)

	m.chatRequestsTotal.WithLabelValues("ok").Inc()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "documind_chat_requests_total" {
			for _, metric := range mf.GetMetric() {
				for _, lp := range metric.GetLabel() {
					if lp.GetName() == "outcome" && lp.GetValue() == "ok" {
						if metric.GetCounter().GetValue() != 1 {
							t.Errorf("want counter=1, got %v", metric.GetCounter().GetValue())
						}
						found = true
					}
				}
			}
		}
	}
	if !found {
		t.Error("documind_chat_requests_total{outcome=\"ok\"} not found in gathered metrics")
	}
}

func Test_Metrics_IngestCounterLabels(t *testing.T) {
	t.Parallel()
	m, reg := newMetricsTestRegistry(t)

	m.ingestsTotal.WithLabelValues("upload", "ok").Inc()
	m.ingestsTotal.WithLabelValues("remove", "error").Inc()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	for _, mf := range mfs {
		if mf.GetName() == "documind_ingest_rebuilds_total" {
			if got := len(mf.GetMetric()); got != 2 {
				t.Errorf("want 2 label combinations, got %d", got)
			}
			return
		}
	}
	t.Error("documind_ingest_rebuilds_total not found in gathered metrics")
}

// Test_Metrics_ChatHandlerRecorded verifies the chat handler increments the
// outcome counter through the full request path.
func Test_Metrics_ChatHandlerRecorded(t *testing.T) {
	t.Parallel()

	s, f := newTestServer(t)
	mustCreateSession(t, f.history, "s1")

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"session_id":"s1","message":"hi"}`))
	s.handleChat(httptest.NewRecorder(), req)

	if got := testCounterValue(t, s.metrics.chatRequestsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("chat ok counter: want 1, got %v", got)
	}
}

// testCounterValue extracts the current value of a counter.
func testCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}
