package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), DefaultPolicy(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	var calls, retries int
	p := fastPolicy(3)
	p.OnRetry = func(int, error) { retries++ }

	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("busy"), 503)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 || retries != 2 {
		t.Errorf("expected 3 calls and 2 retries, got %d and %d", calls, retries)
	}
}

func TestDo_Exhausts(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastPolicy(4), func(context.Context) error {
		calls++
		return NewTransientError(errors.New("down"), 500)
	})
	if err == nil || err.Error() != "down" {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 4 {
		t.Errorf("expected 4 calls, got %d", calls)
	}
}

func TestDo_PermanentErrorStops(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastPolicy(5), func(context.Context) error {
		calls++
		return errors.New("bad request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_CustomRetryable(t *testing.T) {
	var calls int
	p := fastPolicy(3)
	p.Retryable = func(error) bool { return true }
	_ = Do(context.Background(), p, func(context.Context) error {
		calls++
		return errors.New("anything")
	})
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	err := Do(ctx, Policy{Attempts: 5, BaseDelay: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return NewTransientError(errors.New("slow"), 504)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_ReturnsValue(t *testing.T) {
	var calls int
	v, err := DoVal(context.Background(), fastPolicy(3), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", NewTransientError(errors.New("flaky"), 429)
		}
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Fatalf("expected ok, got %q %v", v, err)
	}
}

func TestPolicy_Delay(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Factor: 2}
	if d := p.Delay(0); d != 100*time.Millisecond {
		t.Errorf("delay(0) = %v", d)
	}
	if d := p.Delay(2); d != 400*time.Millisecond {
		t.Errorf("delay(2) = %v", d)
	}
	if d := p.Delay(10); d != time.Second {
		t.Errorf("delay(10) = %v, want cap", d)
	}

	p.Jitter = 0.5
	for i := 0; i < 20; i++ {
		d := p.Delay(0)
		if d < 50*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("jittered delay out of range: %v", d)
		}
	}
}

func TestPolicyFromMillis(t *testing.T) {
	p := PolicyFromMillis(4, 10, 100)
	if p.Attempts != 4 || p.BaseDelay != 10*time.Millisecond || p.MaxDelay != 100*time.Millisecond {
		t.Errorf("unexpected policy: %+v", p)
	}
	d := PolicyFromMillis(0, 0, 0)
	if d.Attempts != DefaultPolicy().Attempts {
		t.Errorf("zero values should keep defaults: %+v", d)
	}
}

func TestLogRetry_DoesNotPanic(t *testing.T) {
	LogRetry("jina", "search")(1, errors.New("x"))
}
