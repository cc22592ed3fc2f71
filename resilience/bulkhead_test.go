package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewBulkhead_Defaults(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{})

	if b.config.MaxConcurrent != 10 {
		t.Errorf("MaxConcurrent = %d, want 10", b.config.MaxConcurrent)
	}
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 2})
	ctx := context.Background()

	if err := b.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire() = %v", err)
	}
	if err := b.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire() = %v", err)
	}
	if err := b.Acquire(ctx); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("third Acquire() = %v, want ErrBulkheadFull", err)
	}

	b.Release()
	if err := b.Acquire(ctx); err != nil {
		t.Errorf("Acquire() after Release() = %v", err)
	}
}

func TestBulkhead_NeverExceedsMaxConcurrent(t *testing.T) {
	const maxConcurrent = 3
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: maxConcurrent})

	var active, peak, admitted int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := b.Execute(context.Background(), func(ctx context.Context) error {
				n := atomic.AddInt64(&active, 1)
				for {
					p := atomic.LoadInt64(&peak)
					if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt64(&active, -1)
				return nil
			})
			if err == nil {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&peak); got > maxConcurrent {
		t.Errorf("peak concurrency = %d, want <= %d", got, maxConcurrent)
	}
	if admitted == 0 {
		t.Error("no operations were admitted")
	}
}

func TestBulkhead_QueueWithMaxWait(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})
	ctx := context.Background()

	if err := b.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() = %v", err)
	}

	// Queued caller gets the slot once it frees up.
	done := make(chan error, 1)
	go func() {
		done <- b.Acquire(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	b.Release()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("queued Acquire() = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("queued Acquire() did not complete")
	}
}

func TestBulkhead_QueueTimeout(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 20 * time.Millisecond})
	ctx := context.Background()

	if err := b.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() = %v", err)
	}

	start := time.Now()
	err := b.Acquire(ctx)
	if !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("queued Acquire() = %v, want ErrBulkheadFull", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("rejected after %v, want >= MaxWait", elapsed)
	}
}

func TestBulkhead_CancelWhileQueued(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Hour})

	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- b.Acquire(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("cancelled Acquire() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled Acquire() did not return")
	}

	// The cancelled waiter holds no slot.
	b.Release()
	if err := b.Acquire(context.Background()); err != nil {
		t.Errorf("Acquire() after cancel = %v, want nil", err)
	}
}

func TestBulkhead_OnReject(t *testing.T) {
	var rejects int64
	b := NewBulkhead(BulkheadConfig{
		MaxConcurrent: 1,
		OnReject:      func() { atomic.AddInt64(&rejects, 1) },
	})
	ctx := context.Background()

	_ = b.Acquire(ctx)
	_ = b.Acquire(ctx)
	_ = b.Acquire(ctx)

	if got := atomic.LoadInt64(&rejects); got != 2 {
		t.Errorf("OnReject calls = %d, want 2", got)
	}
}

func TestBulkhead_Metrics(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 2})
	ctx := context.Background()

	_ = b.Acquire(ctx)
	_ = b.Acquire(ctx)
	_ = b.Acquire(ctx) // rejected

	m := b.Metrics()
	if m.Active != 2 {
		t.Errorf("Active = %d, want 2", m.Active)
	}
	if m.Available != 0 {
		t.Errorf("Available = %d, want 0", m.Available)
	}
	if m.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", m.Rejected)
	}

	b.Release()
	if got := b.Metrics().Active; got != 1 {
		t.Errorf("Active after Release = %d, want 1", got)
	}
}

func TestBulkhead_ExecuteReleasesOnPanicFreePaths(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	ctx := context.Background()

	boom := errors.New("boom")
	for i := 0; i < 5; i++ {
		err := b.Execute(ctx, func(ctx context.Context) error { return boom })
		if !errors.Is(err, boom) {
			t.Fatalf("Execute() = %v, want %v", err, boom)
		}
	}

	if got := b.Metrics().Active; got != 0 {
		t.Errorf("Active after failing executes = %d, want 0", got)
	}
}
