package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cfg := DefaultBreakerConfig("test")
	cfg.ConsecutiveFailures = 2
	cfg.Timeout = time.Minute
	b := NewBreaker(cfg, zerolog.Nop())

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		_, err := Execute(b, func() (int, error) { return 0, boom })
		if !errors.Is(err, boom) {
			t.Fatalf("call %d: expected upstream error, got %v", i, err)
		}
	}

	_, err := Execute(b, func() (int, error) { return 1, nil })
	if !IsOpen(err) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if b.State() != "open" {
		t.Errorf("expected state open, got %s", b.State())
	}
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	errClient := errors.New("401 unauthorized")
	cfg := DefaultBreakerConfig("client")
	cfg.ConsecutiveFailures = 1
	cfg.IsClientError = func(err error) bool { return errors.Is(err, errClient) }
	b := NewBreaker(cfg, zerolog.Nop())

	for i := 0; i < 5; i++ {
		_, err := Execute(b, func() (string, error) { return "", errClient })
		if !errors.Is(err, errClient) {
			t.Fatalf("expected client error to pass through, got %v", err)
		}
	}
	if b.State() != "closed" {
		t.Errorf("client errors must not trip the breaker, state %s", b.State())
	}
}

func TestExecuteNilBreaker(t *testing.T) {
	got, err := Execute[int](nil, func() (int, error) { return 42, nil })
	if err != nil || got != 42 {
		t.Errorf("expected 42, got %d (%v)", got, err)
	}
}
