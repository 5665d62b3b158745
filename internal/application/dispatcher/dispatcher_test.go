package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garyjia/approval-center/internal/domain/event"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func TestDispatch_RunsHandlersInOrder(t *testing.T) {
	d := NewDispatcher(WithLogger(&mockLogger{}))
	var order []string

	d.SubscribeNamed(event.TypeApplicationSubmitted, "first", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "first")
		return nil
	})
	d.SubscribeNamed(event.TypeApplicationSubmitted, "second", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "second")
		return nil
	})

	evt := event.NewEvent(event.TypeApplicationSubmitted, 1, "AP1", nil)
	if err := d.Dispatch(context.Background(), evt); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("unexpected handler order: %v", order)
	}
}

func TestDispatch_StopsAtFirstError(t *testing.T) {
	d := NewDispatcher()
	boom := errors.New("boom")
	called := false

	d.SubscribeNamed(event.TypeApplicationWithdrawn, "failing", func(ctx context.Context, evt *event.Event) error {
		return boom
	})
	d.SubscribeNamed(event.TypeApplicationWithdrawn, "never", func(ctx context.Context, evt *event.Event) error {
		called = true
		return nil
	})

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeApplicationWithdrawn, 1, "", nil))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if called {
		t.Error("second handler should not run after an error")
	}
}

func TestDispatch_RecoversPanics(t *testing.T) {
	d := NewDispatcher()
	d.SubscribeNamed(event.TypeApplicationApproved, "panicky", func(ctx context.Context, evt *event.Event) error {
		panic("nil map")
	})

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeApplicationApproved, 1, "", nil))
	if err == nil {
		t.Fatal("expected error from panicking handler")
	}
}

func TestDispatchAsync_SurvivesCancelledContext(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))
	var calls atomic.Int32

	d.SubscribeNamed(event.TypeApplicationSubmitted, "notify", func(ctx context.Context, evt *event.Event) error {
		time.Sleep(10 * time.Millisecond)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	d.DispatchAsync(ctx, event.NewEvent(event.TypeApplicationSubmitted, 1, "", nil))
	cancel()

	if err := d.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected handler to complete once, got %d", calls.Load())
	}
	if logger.ErrorCount() != 0 {
		t.Errorf("expected no handler errors, got %d", logger.ErrorCount())
	}
}

func TestClose(t *testing.T) {
	d := NewDispatcher()
	if err := d.Close(); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := d.Close(); err == nil {
		t.Error("second close should fail")
	}
	if err := d.Dispatch(context.Background(), event.NewEvent(event.TypeApplicationSubmitted, 1, "", nil)); err == nil {
		t.Error("dispatch after close should fail")
	}
}

func TestHandlers(t *testing.T) {
	d := NewDispatcher()
	noop := func(ctx context.Context, evt *event.Event) error { return nil }
	d.SubscribeNamed(event.TypeApplicationRejected, "lark-notify", noop)

	names := d.Handlers(event.TypeApplicationRejected)
	if len(names) != 1 || names[0] != "lark-notify" {
		t.Errorf("unexpected handlers: %v", names)
	}
	if len(d.Handlers(event.TypeApplicationApproved)) != 0 {
		t.Error("expected no handlers for approved")
	}
}
