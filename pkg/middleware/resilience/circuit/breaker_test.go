package circuit

import (
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Cooldown:         50 * time.Millisecond,
	}
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := New(testConfig())

	for i := 0; i < 2; i++ {
		if !b.Allow() {
			t.Fatalf("closed breaker should allow call %d", i)
		}
		b.Record(false)
		if b.GetState() != Closed {
			t.Errorf("breaker should stay closed below threshold, state=%s", b.GetState())
		}
	}

	if !b.Allow() {
		t.Fatal("closed breaker should allow the threshold call")
	}
	b.Record(false)

	if b.GetState() != Open {
		t.Errorf("expected OPEN after %d consecutive failures, got %s", 3, b.GetState())
	}
	if b.Allow() {
		t.Error("open breaker must fail fast without contacting the target")
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := New(testConfig())

	b.Allow()
	b.Record(false)
	b.Allow()
	b.Record(false)
	b.Allow()
	b.Record(true) // resets the consecutive failure count
	b.Allow()
	b.Record(false)
	b.Allow()
	b.Record(false)

	if b.GetState() != Closed {
		t.Errorf("non-consecutive failures should not open the circuit, state=%s", b.GetState())
	}
}

func TestBreakerHalfOpenSingleTrial(t *testing.T) {
	b := New(testConfig())

	for i := 0; i < 3; i++ {
		b.Allow()
		b.Record(false)
	}
	if b.GetState() != Open {
		t.Fatalf("expected OPEN, got %s", b.GetState())
	}

	time.Sleep(60 * time.Millisecond)

	// After cooldown, exactly one trial call is permitted.
	if !b.Allow() {
		t.Fatal("expected a trial call after cooldown")
	}
	if b.GetState() != HalfOpen {
		t.Errorf("expected HALF_OPEN during trial, got %s", b.GetState())
	}
	if b.Allow() {
		t.Error("only one trial call may be in flight")
	}

	b.Record(true)
	if b.GetState() != Closed {
		t.Errorf("trial success should close the circuit, got %s", b.GetState())
	}
	if !b.Allow() {
		t.Error("closed breaker should allow calls again")
	}
}

func TestBreakerTrialFailureReopens(t *testing.T) {
	b := New(testConfig())

	for i := 0; i < 3; i++ {
		b.Allow()
		b.Record(false)
	}
	time.Sleep(60 * time.Millisecond)

	if !b.Allow() {
		t.Fatal("expected a trial call after cooldown")
	}
	b.Record(false)

	if b.GetState() != Open {
		t.Errorf("trial failure should reopen the circuit, got %s", b.GetState())
	}
	if b.Allow() {
		t.Error("reopened circuit must restart the cooldown before the next trial")
	}
}

func TestBreakerReset(t *testing.T) {
	b := New(testConfig())

	for i := 0; i < 3; i++ {
		b.Allow()
		b.Record(false)
	}
	b.Reset()

	if b.GetState() != Closed {
		t.Errorf("expected CLOSED after reset, got %s", b.GetState())
	}
	if !b.Allow() {
		t.Error("reset breaker should allow calls")
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Target: "model:claude", State: Open}
	want := "circuit breaker for model:claude is OPEN"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}
