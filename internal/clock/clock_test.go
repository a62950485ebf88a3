package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNowIsMonotonic(t *testing.T) {
	c := New()
	a := c.Now()
	time.Sleep(2 * time.Millisecond)
	b := c.Now()
	if b < a {
		t.Errorf("clock went backwards: %v then %v", a, b)
	}
}

func TestSleep(t *testing.T) {
	c := New()
	start := c.Now()
	if err := c.Sleep(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	if got := c.Now() - start; got < 20*time.Millisecond {
		t.Errorf("slept only %v", got)
	}
}

func TestSleepCancelled(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := c.Sleep(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled sleep did not return promptly")
	}
}

func TestSleepZero(t *testing.T) {
	if err := New().Sleep(context.Background(), 0); err != nil {
		t.Errorf("zero sleep: %v", err)
	}
}
