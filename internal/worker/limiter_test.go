package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNilLimiterAdmitsEverything(t *testing.T) {
	l := NewLimiter(0, time.Second)
	if l != nil {
		t.Fatalf("expected nil limiter for max 0")
	}
	for i := 0; i < 3; i++ {
		release, err := l.Acquire(context.Background())
		if err != nil {
			t.Fatalf("Acquire error: %v", err)
		}
		release()
	}
}

func TestLimiterBusyAfterWait(t *testing.T) {
	l := NewLimiter(1, 20*time.Millisecond)
	release, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("first Acquire error: %v", err)
	}
	if _, err := l.Acquire(context.Background()); !errors.Is(err, ErrDispatcherBusy) {
		t.Fatalf("expected ErrDispatcherBusy, got %v", err)
	}
	release()
	release2, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after release error: %v", err)
	}
	release2()
}

func TestLimiterWaitsForRelease(t *testing.T) {
	l := NewLimiter(1, time.Second)
	release, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	go func() {
		time.Sleep(10 * time.Millisecond)
		release()
	}()
	release2, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("expected slot after release, got %v", err)
	}
	release2()
}

func TestLimiterHonoursCallerCancel(t *testing.T) {
	l := NewLimiter(1, time.Second)
	release, _ := l.Acquire(context.Background())
	defer release()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
