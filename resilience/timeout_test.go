package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewTimeout_Defaults(t *testing.T) {
	to := NewTimeout(TimeoutConfig{})

	if to.config.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", to.config.Timeout)
	}
}

func TestTimeout_FastOperation(t *testing.T) {
	to := NewTimeout(TimeoutConfig{Timeout: time.Second})

	err := to.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Errorf("Execute() = %v, want nil", err)
	}
}

func TestTimeout_SlowOperationTimesOut(t *testing.T) {
	to := NewTimeout(TimeoutConfig{Timeout: 20 * time.Millisecond})

	start := time.Now()
	err := to.Execute(context.Background(), func(ctx context.Context) error {
		select {
		case <-time.After(time.Hour):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Execute() = %v, want ErrTimeout", err)
	}
	// The caller is unblocked near the deadline, with scheduling slack.
	if elapsed > 500*time.Millisecond {
		t.Errorf("caller unblocked after %v, want near 20ms", elapsed)
	}
}

func TestTimeout_NonCooperativeOperationStillUnblocks(t *testing.T) {
	to := NewTimeout(TimeoutConfig{Timeout: 20 * time.Millisecond})

	release := make(chan struct{})
	defer close(release)

	err := to.Execute(context.Background(), func(ctx context.Context) error {
		// Ignores its context entirely.
		<-release
		return nil
	})

	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Execute() = %v, want ErrTimeout", err)
	}
}

func TestTimeout_OperationErrorPassesThrough(t *testing.T) {
	to := NewTimeout(TimeoutConfig{Timeout: time.Second})

	boom := errors.New("boom")
	err := to.Execute(context.Background(), func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Execute() = %v, want %v", err, boom)
	}
}

func TestTimeout_ParentCancellation(t *testing.T) {
	to := NewTimeout(TimeoutConfig{Timeout: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := to.Execute(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() = %v, want context.Canceled", err)
	}
}

func TestTimeout_OnTimeoutCallback(t *testing.T) {
	fired := false
	to := NewTimeout(TimeoutConfig{
		Timeout:   10 * time.Millisecond,
		OnTimeout: func() { fired = true },
	})

	_ = to.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	if !fired {
		t.Error("OnTimeout was not called")
	}
}

func TestExecuteWithTimeout(t *testing.T) {
	err := ExecuteWithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	if !errors.Is(err, ErrTimeout) {
		t.Errorf("ExecuteWithTimeout() = %v, want ErrTimeout", err)
	}
}
