package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestShutdownRunsInReverseOrder(t *testing.T) {
	m := New(time.Second)

	var order []string
	m.Register(func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	m.Register(func(ctx context.Context) error {
		order = append(order, "second")
		return nil
	})
	m.Register(func(ctx context.Context) error {
		order = append(order, "third")
		return nil
	})

	m.Shutdown()

	if len(order) != 3 {
		t.Fatalf("Expected 3 shutdown calls, got %d", len(order))
	}
	if order[0] != "third" || order[1] != "second" || order[2] != "first" {
		t.Errorf("Expected LIFO order, got %v", order)
	}
}

func TestShutdownContinuesOnError(t *testing.T) {
	m := New(time.Second)

	secondRan := false
	m.Register(func(ctx context.Context) error {
		secondRan = true
		return nil
	})
	m.Register(func(ctx context.Context) error {
		return errors.New("close failed")
	})

	m.Shutdown()

	if !secondRan {
		t.Error("Shutdown should continue past a failing function")
	}
}

func TestCloseResource(t *testing.T) {
	c := &fakeCloser{}
	fn := CloseResource(c, "snapshot store")

	if err := fn(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !c.closed {
		t.Error("Expected resource to be closed")
	}

	c.err = errors.New("disk gone")
	if err := fn(context.Background()); err == nil {
		t.Error("Expected wrapped close error")
	}
}

type fakeCloser struct {
	closed bool
	err    error
}

func (f *fakeCloser) Close() error {
	f.closed = true
	return f.err
}
