package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonwraymond/shield/resilience"
)

// breakerAggregator builds an aggregator watching a registry with one
// configured resource, returning both for tests that trip the circuit.
func breakerAggregator(t *testing.T) (*Aggregator, *resilience.Registry) {
	t.Helper()
	reg := resilience.NewRegistry()
	if err := reg.Configure("payments", trippyConfig(time.Minute)); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	agg := NewAggregator()
	agg.RegisterBreakers(reg)
	return agg, reg
}

func tripCircuit(t *testing.T, reg *resilience.Registry, name string) {
	t.Helper()
	res, err := reg.Lookup(name)
	if err != nil {
		t.Fatalf("Lookup(%q) error: %v", name, err)
	}
	res.Breaker().RecordFailure(errors.New("downstream down"))
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "OK")
	}
	if got := rec.Header().Get("Content-Type"); got != "text/plain" {
		t.Errorf("Content-Type = %q, want text/plain", got)
	}
}

func TestReadinessHandler_ClosedCircuits(t *testing.T) {
	agg, _ := breakerAggregator(t)
	handler := ReadinessHandler(agg)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "OK")
	}
}

func TestReadinessHandler_OpenCircuitGoes503(t *testing.T) {
	agg, reg := breakerAggregator(t)
	tripCircuit(t, reg, "payments")
	handler := ReadinessHandler(agg)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if rec.Body.String() != "UNHEALTHY" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "UNHEALTHY")
	}
}

func TestReadinessHandler_DegradedStays200(t *testing.T) {
	agg := NewAggregator()
	agg.Register("memory", NewCheckerFunc("memory", func(ctx context.Context) Result {
		return Degraded("heap usage high")
	}))
	handler := ReadinessHandler(agg)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d for degraded", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "DEGRADED" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "DEGRADED")
	}
}

func TestDetailedHandler_CarriesCircuitDetails(t *testing.T) {
	agg, _ := breakerAggregator(t)
	handler := DetailedHandler(agg)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}

	var response HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if response.Status != "healthy" {
		t.Errorf("response status = %q, want healthy", response.Status)
	}
	if response.Timestamp == "" {
		t.Error("response timestamp is empty")
	}

	check, ok := response.Checks["circuits"]
	if !ok {
		t.Fatal("response missing circuits check")
	}
	if check.Status != "healthy" {
		t.Errorf("circuits status = %q, want healthy", check.Status)
	}
	if _, ok := check.Details["payments"]; !ok {
		t.Error("circuits details missing payments resource")
	}
}

func TestDetailedHandler_OpenCircuitGoes503(t *testing.T) {
	agg, reg := breakerAggregator(t)
	tripCircuit(t, reg, "payments")
	handler := DetailedHandler(agg)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var response HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if response.Status != "unhealthy" {
		t.Errorf("response status = %q, want unhealthy", response.Status)
	}
	if check := response.Checks["circuits"]; check.Error == "" {
		t.Error("circuits check missing error message")
	}
}

func TestSingleCheckHandler(t *testing.T) {
	agg, _ := breakerAggregator(t)
	handler := SingleCheckHandler(agg, "circuits")

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/health/circuits", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var response CheckResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if response.Status != "healthy" {
		t.Errorf("response status = %q, want healthy", response.Status)
	}
}

func TestSingleCheckHandler_NotFound(t *testing.T) {
	handler := SingleCheckHandler(NewAggregator(), "missing")

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/health/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestSingleCheckHandler_OpenCircuitGoes503(t *testing.T) {
	agg, reg := breakerAggregator(t)
	tripCircuit(t, reg, "payments")
	handler := SingleCheckHandler(agg, "circuits")

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/health/circuits", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestRegisterHandlers(t *testing.T) {
	mux := http.NewServeMux()
	agg, _ := breakerAggregator(t)
	RegisterHandlers(mux, agg)

	for _, path := range []string{"/healthz", "/readyz", "/health"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

func TestDetailedHandler_StuckCheckTimesOut(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 50 * time.Millisecond})
	agg.Register("stuck", NewCheckerFunc("stuck", func(ctx context.Context) Result {
		time.Sleep(200 * time.Millisecond)
		return Healthy("ok")
	}))
	handler := DetailedHandler(agg)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d for timed out check", rec.Code, http.StatusServiceUnavailable)
	}

	var response HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if response.Status != "unhealthy" {
		t.Errorf("response status = %q, want unhealthy", response.Status)
	}
}
