package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/page-search/pkg/errors"
)

var errBackend = errors.New("backend down")

func TestCircuitBreakerTripsAndRecovers(t *testing.T) {
	var transitions []State
	cb := NewCircuitBreaker("redis", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		OnStateChange: func(_ string, _, to State) {
			transitions = append(transitions, to)
		},
	})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }

	fail := func() error { return errBackend }
	ok := func() error { return nil }

	cb.Execute(fail)
	cb.Execute(fail)
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}
	if err := cb.Execute(ok); !errors.Is(err, ErrCircuitOpen) || !errors.Is(err, apperrors.ErrUnavailable) {
		t.Fatalf("open breaker should reject as unavailable, got %v", err)
	}

	now = now.Add(time.Minute)
	if err := cb.Execute(ok); err != nil {
		t.Fatalf("half-open probe should run, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("state = %v, want closed after successful probe", cb.GetState())
	}

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("pg", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	now := time.Now()
	cb.now = func() time.Time { return now }

	cb.Execute(func() error { return errBackend })
	now = now.Add(time.Second)
	cb.Execute(func() error { return errBackend })
	if cb.GetState() != StateOpen {
		t.Errorf("failed probe should reopen, state = %v", cb.GetState())
	}
	cb.Reset()
	if cb.GetState() != StateClosed {
		t.Errorf("Reset should close, state = %v", cb.GetState())
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "connect", RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
	}, func() error {
		calls++
		if calls < 3 {
			return errBackend
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("err=%v calls=%d", err, calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "connect", RetryConfig{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
	}, func() error {
		calls++
		return errBackend
	})
	if !errors.Is(err, errBackend) || calls != 2 {
		t.Errorf("err=%v calls=%d", err, calls)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "connect", RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Retryable:    func(err error) bool { return !errors.Is(err, errBackend) },
	}, func() error {
		calls++
		return errBackend
	})
	if !errors.Is(err, errBackend) || calls != 1 {
		t.Errorf("err=%v calls=%d", err, calls)
	}
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, "connect", RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour}, func() error {
		return errBackend
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestComputeDelayCapped(t *testing.T) {
	cfg := RetryConfig{InitialDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 10, JitterFraction: 0.1}
	if d := computeDelay(5, cfg); d != 3*time.Second {
		t.Errorf("delay = %v, want capped at 3s", d)
	}
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "snapshot", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) || !errors.Is(err, apperrors.ErrTimeout) {
		t.Errorf("err = %v, want deadline exceeded and ErrTimeout", err)
	}

	err = WithTimeout(context.Background(), time.Second, "snapshot", func(context.Context) error {
		return nil
	})
	if err != nil {
		t.Errorf("err = %v", err)
	}
}

func TestCircuitBreakerIgnoresStaleResults(t *testing.T) {
	cb := NewCircuitBreaker("redis", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})
	slow, err := cb.admit()
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	cb.Execute(func() error { return errBackend })
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}
	cb.record(slow, true)
	if cb.GetState() != StateOpen {
		t.Errorf("a success admitted before the trip must not close the breaker")
	}
}

func TestCallReturnsValue(t *testing.T) {
	n, err := Call(context.Background(), time.Second, "count", func(context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || n != 42 {
		t.Errorf("Call = %d, %v", n, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Call(ctx, time.Second, "count", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, context.Canceled) || errors.Is(err, apperrors.ErrTimeout) {
		t.Errorf("cancelled parent should not read as a timeout, got %v", err)
	}
}
