package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/shield/resilience"
)

func healthyChecker(name string) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		return Healthy("ok")
	})
}

func TestNewAggregator_Defaults(t *testing.T) {
	agg := NewAggregator()

	if agg.config.Timeout != 10*time.Second {
		t.Errorf("default timeout = %v, want 10s", agg.config.Timeout)
	}
	if !agg.config.Parallel {
		t.Error("default Parallel = false, want true")
	}

	// A zero timeout in an explicit config is defaulted too.
	agg = NewAggregator(AggregatorConfig{Parallel: false})
	if agg.config.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want defaulted 10s", agg.config.Timeout)
	}
	if agg.config.Parallel {
		t.Error("Parallel = true, want false")
	}
}

func TestAggregator_RegisterAndUnregister(t *testing.T) {
	agg := NewAggregator()

	agg.Register("database", healthyChecker("database"))
	agg.Register("queue", healthyChecker("queue"))

	names := agg.CheckerNames()
	if len(names) != 2 || names[0] != "database" || names[1] != "queue" {
		t.Fatalf("CheckerNames() = %v, want [database queue]", names)
	}

	agg.Unregister("database")
	names = agg.CheckerNames()
	if len(names) != 1 || names[0] != "queue" {
		t.Errorf("CheckerNames() after Unregister = %v, want [queue]", names)
	}

	agg.Unregister("never-registered") // no-op
	if got := len(agg.CheckerNames()); got != 1 {
		t.Errorf("checker count = %d, want 1", got)
	}
}

func TestAggregator_RegisterChecker_UsesOwnName(t *testing.T) {
	agg := NewAggregator()
	agg.RegisterChecker(NewBreakerChecker(resilience.NewRegistry()))

	names := agg.CheckerNames()
	if len(names) != 1 || names[0] != "circuits" {
		t.Errorf("CheckerNames() = %v, want [circuits]", names)
	}
}

func TestAggregator_RegisterDuplicateReplaces(t *testing.T) {
	agg := NewAggregator()

	agg.Register("svc", NewCheckerFunc("svc", func(ctx context.Context) Result {
		return Healthy("first")
	}))
	agg.Register("svc", NewCheckerFunc("svc", func(ctx context.Context) Result {
		return Healthy("second")
	}))

	if got := len(agg.CheckerNames()); got != 1 {
		t.Fatalf("checker count after duplicate = %d, want 1", got)
	}
	r, _ := agg.Check(context.Background(), "svc")
	if r.Message != "second" {
		t.Errorf("Message = %q, want %q", r.Message, "second")
	}
}

func TestAggregator_CheckNotFound(t *testing.T) {
	agg := NewAggregator()

	_, err := agg.Check(context.Background(), "missing")
	if !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check() error = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregator_CheckAllWithBreakers(t *testing.T) {
	reg := resilience.NewRegistry()
	if err := reg.Configure("payments", resilience.DefaultConfig()); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}

	agg := NewAggregator()
	agg.RegisterBreakers(reg)
	agg.Register("memory", NewMemoryChecker(MemoryCheckerConfig{}))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results["circuits"].Status != StatusHealthy {
		t.Errorf("circuits status = %v, want healthy", results["circuits"].Status)
	}
	if _, ok := results["circuits"].Details["payments"]; !ok {
		t.Error("circuits details missing payments resource")
	}
}

func TestAggregator_CheckAllReflectsOpenCircuit(t *testing.T) {
	reg := resilience.NewRegistry()
	if err := reg.Configure("payments", trippyConfig(time.Minute)); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	res, err := reg.Lookup("payments")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	res.Breaker().RecordFailure(errors.New("downstream down"))

	agg := NewAggregator()
	agg.RegisterBreakers(reg)
	agg.Register("queue", healthyChecker("queue"))

	results := agg.CheckAll(context.Background())
	if results["circuits"].Status != StatusUnhealthy {
		t.Errorf("circuits status = %v, want unhealthy", results["circuits"].Status)
	}
	if got := agg.OverallStatus(results); got != StatusUnhealthy {
		t.Errorf("OverallStatus() = %v, want unhealthy", got)
	}
}

func TestAggregator_CheckAllEmpty(t *testing.T) {
	agg := NewAggregator()

	if results := agg.CheckAll(context.Background()); len(results) != 0 {
		t.Errorf("results = %d, want 0", len(results))
	}
}

func TestAggregator_CheckAllSequential(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{
		Timeout:  time.Second,
		Parallel: false,
	})
	agg.Register("first", healthyChecker("first"))
	agg.Register("second", healthyChecker("second"))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	for name, r := range results {
		if r.Status != StatusHealthy {
			t.Errorf("%s status = %v, want healthy", name, r.Status)
		}
	}
}

func TestAggregator_CheckAllTimeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 50 * time.Millisecond})

	agg.Register("stuck", NewCheckerFunc("stuck", func(ctx context.Context) Result {
		time.Sleep(200 * time.Millisecond)
		return Healthy("ok")
	}))

	results := agg.CheckAll(context.Background())

	r := results["stuck"]
	if r.Status != StatusUnhealthy {
		t.Errorf("stuck status = %v, want unhealthy", r.Status)
	}
	if !errors.Is(r.Error, ErrCheckTimeout) {
		t.Errorf("stuck error = %v, want ErrCheckTimeout", r.Error)
	}
}

func TestAggregator_OverallStatus(t *testing.T) {
	agg := NewAggregator()

	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{"empty", map[string]Result{}, StatusHealthy},
		{"all healthy", map[string]Result{
			"circuits": Healthy("ok"),
			"memory":   Healthy("ok"),
		}, StatusHealthy},
		{"probing circuit degrades", map[string]Result{
			"circuits": Degraded("circuits probing recovery: payments"),
			"memory":   Healthy("ok"),
		}, StatusDegraded},
		{"open circuit is unhealthy", map[string]Result{
			"circuits": Unhealthy("circuits open: payments", ErrCircuitOpen),
			"memory":   Healthy("ok"),
		}, StatusUnhealthy},
		{"unhealthy beats degraded", map[string]Result{
			"circuits": Unhealthy("circuits open: payments", ErrCircuitOpen),
			"memory":   Degraded("heap usage high"),
		}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := agg.OverallStatus(tt.results); got != tt.want {
				t.Errorf("OverallStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregator_CompositeChecker(t *testing.T) {
	reg := resilience.NewRegistry()
	if err := reg.Configure("payments", resilience.DefaultConfig()); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}

	agg := NewAggregator()
	agg.RegisterBreakers(reg)

	checker := agg.Checker()
	if checker.Name() != "aggregate" {
		t.Errorf("Name() = %q, want %q", checker.Name(), "aggregate")
	}

	r := checker.Check(context.Background())
	if r.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy", r.Status)
	}
	if r.Message != "all checks passed" {
		t.Errorf("Message = %q, want %q", r.Message, "all checks passed")
	}
	if _, ok := r.Details["circuits"]; !ok {
		t.Error("Details missing circuits entry")
	}
}

func TestAggregator_CompositeCheckerUnhealthy(t *testing.T) {
	agg := NewAggregator()
	agg.Register("db", NewCheckerFunc("db", func(ctx context.Context) Result {
		return Unhealthy("connection refused", ErrCheckFailed)
	}))

	r := agg.Checker().Check(context.Background())
	if r.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", r.Status)
	}
	if r.Message != "some checks failed" {
		t.Errorf("Message = %q, want %q", r.Message, "some checks failed")
	}
}
