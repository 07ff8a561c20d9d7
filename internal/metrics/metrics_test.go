package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/kudsight/pkg/observability"
)

// value returns the counter or gauge sample of metric whose labels include
// the given name/value pairs.
func value(t *testing.T, m *Metrics, metric string, labels ...string) float64 {
	t.Helper()
	families, err := m.registry.Gather()
	if err != nil {
		t.Logf("Gather() partial error: %v", err)
	}
	for _, f := range families {
		if f.GetName() != metric {
			continue
		}
	samples:
		for _, s := range f.GetMetric() {
			have := map[string]string{}
			for _, l := range s.GetLabel() {
				have[l.GetName()] = l.GetValue()
			}
			for i := 0; i+1 < len(labels); i += 2 {
				if have[labels[i]] != labels[i+1] {
					continue samples
				}
			}
			if c := s.GetCounter(); c != nil {
				return c.GetValue()
			}
			return s.GetGauge().GetValue()
		}
	}
	t.Fatalf("no sample for %s%v", metric, labels)
	return 0
}

func TestSessionHooks(t *testing.T) {
	ctx := context.Background()
	m := New(prometheus.NewRegistry())
	h := m.Session()

	h.OnLoadStart(ctx, "run.json")
	h.OnLoadComplete(ctx, "run.json", 42, 30*time.Millisecond, nil)
	h.OnLoadComplete(ctx, "bad.json", 0, time.Millisecond, errors.New("boom"))
	h.OnOverlaySkipped(ctx, "run.json", "absent")
	h.OnOverlaySkipped(ctx, "run.json", "fetch failed: connection refused")
	h.OnFlush(ctx, "run.json", 3, nil)

	checks := []struct {
		metric string
		labels []string
		want   float64
	}{
		{"kudsight_session_loads_total", []string{"outcome", "ok"}, 1},
		{"kudsight_session_loads_total", []string{"outcome", "error"}, 1},
		{"kudsight_session_loaded_nodes", nil, 42},
		{"kudsight_session_overlay_skips_total", []string{"reason", "absent"}, 1},
		{"kudsight_session_overlay_skips_total", []string{"reason", "fetch failed"}, 1},
		{"kudsight_session_layout_flushes_total", []string{"outcome", "ok"}, 1},
	}
	for _, c := range checks {
		if got := value(t, m, c.metric, c.labels...); got != c.want {
			t.Errorf("%s%v = %v, want %v", c.metric, c.labels, got, c.want)
		}
	}
}

func TestCacheAndHTTPHooks(t *testing.T) {
	ctx := context.Background()
	m := New(prometheus.NewRegistry())

	m.Cache().OnCacheHit(ctx, "diagram")
	m.Cache().OnCacheMiss(ctx, "diagram")
	m.Cache().OnCacheMiss(ctx, "diagram")
	m.Cache().OnCacheSet(ctx, "pref", 5)

	m.HTTP().OnResponse(ctx, "GET", "localhost:5000", "/list-json", 200, 5*time.Millisecond)
	m.HTTP().OnError(ctx, "GET", "localhost:5000", "/list-json", errors.New("refused"))

	if got := value(t, m, "kudsight_cache_lookups_total", "type", "diagram", "result", "miss"); got != 2 {
		t.Errorf("cache misses = %v, want 2", got)
	}
	if got := value(t, m, "kudsight_cache_written_bytes_total", "type", "pref"); got != 5 {
		t.Errorf("cache bytes = %v, want 5", got)
	}
	if got := value(t, m, "kudsight_http_client_requests_total", "code", "200"); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}
	if got := value(t, m, "kudsight_http_client_errors_total", "method", "GET"); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
}

func TestRegisterInstallsHooks(t *testing.T) {
	t.Cleanup(observability.Reset)
	m := New(prometheus.NewRegistry())
	m.Register()

	observability.Session().OnFlush(context.Background(), "run.json", 1, errors.New("offline"))
	if got := value(t, m, "kudsight_session_layout_flushes_total", "outcome", "error"); got != 1 {
		t.Errorf("flush errors = %v, want 1", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Session().OnLoadComplete(context.Background(), "run.json", 7, time.Millisecond, nil)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{"kudsight_session_loads_total", "kudsight_session_loaded_nodes 7", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
