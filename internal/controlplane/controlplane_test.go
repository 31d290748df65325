package controlplane

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iosl-sustainability/carbon-scheduler/internal/bucket"
	"github.com/iosl-sustainability/carbon-scheduler/internal/catalog"
	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
	"github.com/iosl-sustainability/carbon-scheduler/internal/registry"
)

func seedTestCatalog(t *testing.T, store bucket.Store) *catalog.Catalog {
	t.Helper()
	raw := []byte(`[{"region": "us-east1", "zone_key": "US-MIDA-PJM", "cpu_min_w": 5, "cpu_max_w": 50, "mem_w_per_gib": 0.3, "pue": 1.2, "has_gpu": false, "network_kwh_per_gb": 0.01}]`)
	if err := store.Write(context.Background(), catalog.ObjectName, raw); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	cat, err := catalog.Load(context.Background(), store)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return cat
}

type stubRunner struct {
	summaries []CycleSummary
	err       error
}

func (s *stubRunner) RunCycle(ctx context.Context) ([]CycleSummary, error) {
	return s.summaries, s.err
}

func (s *stubRunner) PlanSubmitted(ctx context.Context, d registry.Descriptor) (CycleSummary, error) {
	if s.err != nil {
		return CycleSummary{}, s.err
	}
	return CycleSummary{FunctionID: d.Metadata.FunctionID, State: model.StateRanked}, nil
}

func TestHealthOKWhenBucketReachableAndConfigured(t *testing.T) {
	runner := &stubRunner{}
	srv := New(bucket.NewMemStore(), nil, runner, true, true)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !contains(rec.Body.String(), `"has_gemini_key":true`) {
		t.Fatalf("expected has_gemini_key true in body: %s", rec.Body.String())
	}
	if !contains(rec.Body.String(), `"bucket_reachable":true`) {
		t.Fatalf("expected bucket_reachable true in body: %s", rec.Body.String())
	}
}

func TestHealthReturns503WhenForecastTokenMissing(t *testing.T) {
	runner := &stubRunner{}
	srv := New(bucket.NewMemStore(), nil, runner, true, false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHealthReturns503WhenStoreNil(t *testing.T) {
	runner := &stubRunner{}
	srv := New(nil, nil, runner, true, true)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHealthReportsLastCycleStatusAfterRun(t *testing.T) {
	runner := &stubRunner{summaries: []CycleSummary{{FunctionID: "f1", State: model.StateWritten}}}
	srv := New(bucket.NewMemStore(), nil, runner, true, true)

	runReq := httptest.NewRequest(http.MethodPost, "/run", nil)
	runRec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(runRec, runReq)
	if runRec.Code != http.StatusOK {
		t.Fatalf("expected /run 200, got %d", runRec.Code)
	}

	healthRec := httptest.NewRecorder()
	healthReq := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.Echo.ServeHTTP(healthRec, healthReq)
	if !contains(healthRec.Body.String(), `"last_cycle_at_utc"`) {
		t.Fatalf("expected last_cycle_at_utc in body: %s", healthRec.Body.String())
	}
}

func TestRunReturnsCycleSummaries(t *testing.T) {
	runner := &stubRunner{summaries: []CycleSummary{{FunctionID: "f1", State: model.StateWritten}}}
	srv := New(bucket.NewMemStore(), nil, runner, false, true)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	srv.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !contains(rec.Body.String(), `"f1"`) {
		t.Fatalf("expected f1 in response: %s", rec.Body.String())
	}
}

func TestSubmitRejectsBodyMissingRequiredFields(t *testing.T) {
	runner := &stubRunner{}
	srv := New(bucket.NewMemStore(), nil, runner, false, true)
	body := []byte(`{"memory_mb": 128}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/submit", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitAcceptsBitExactBody(t *testing.T) {
	runner := &stubRunner{}
	store := bucket.NewMemStore()
	srv := New(store, seedTestCatalog(t, store), runner, false, true)
	deadline := time.Now().UTC().Add(2 * time.Hour).Format(time.RFC3339)
	body := []byte(`{"code": "def handler(event): return event", "deadline_utc": "` + deadline + `", "memory_mb": 256, "requirements": ["numpy"]}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/submit", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
