package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/twh-ops/leadportal/internal/portal/domain/lead"
	"github.com/twh-ops/leadportal/internal/portal/storage"
)

// flakyStore fails a configurable number of times before succeeding.
type flakyStore struct {
	failures   int
	calls      int
	reconnects int
	failWith   error
}

func (f *flakyStore) op() error {
	f.calls++
	if f.calls <= f.failures {
		return f.failWith
	}
	return nil
}

func (f *flakyStore) Append(context.Context, string, lead.Lead) (string, error) {
	return "1", f.op()
}
func (f *flakyStore) FindByID(context.Context, string, string) ([]storage.Match, error) {
	return nil, f.op()
}
func (f *flakyStore) Get(context.Context, string, string) (lead.Lead, error) {
	return lead.Lead{}, f.op()
}
func (f *flakyStore) Update(context.Context, string, string, lead.Lead) error { return f.op() }
func (f *flakyStore) UpdateStatus(context.Context, string, string, string) error {
	return f.op()
}
func (f *flakyStore) Delete(context.Context, string, string) error { return f.op() }
func (f *flakyStore) List(context.Context, string) ([]lead.Lead, error) {
	return nil, f.op()
}
func (f *flakyStore) GetUser(context.Context, string) (storage.User, error) {
	return storage.User{}, f.op()
}
func (f *flakyStore) Reconnect(context.Context) error {
	f.reconnects++
	return nil
}

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, Backoff: time.Millisecond}
}

func TestRetriesTransientFailure(t *testing.T) {
	inner := &flakyStore{failures: 2, failWith: storage.ErrUnavailable}
	s := Wrap(inner, inner, fastPolicy(3), nil)

	if _, err := s.Append(context.Background(), "billing", lead.Lead{}); err != nil {
		t.Fatalf("append: %v, want success after retries", err)
	}
	if inner.calls != 3 {
		t.Fatalf("calls = %d, want 3", inner.calls)
	}
	if inner.reconnects != 2 {
		t.Fatalf("reconnects = %d, want one per retry", inner.reconnects)
	}
}

func TestExhaustedRetriesReturnLastError(t *testing.T) {
	inner := &flakyStore{failures: 10, failWith: storage.ErrUnavailable}
	s := Wrap(inner, inner, fastPolicy(3), nil)

	_, err := s.List(context.Background(), "billing")
	if !errors.Is(err, storage.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if inner.calls != 3 {
		t.Fatalf("calls = %d, want attempts bounded at 3", inner.calls)
	}
}

func TestNotFoundIsNotRetried(t *testing.T) {
	inner := &flakyStore{failures: 10, failWith: storage.ErrNotFound}
	s := Wrap(inner, inner, fastPolicy(3), nil)

	_, err := s.Get(context.Background(), "billing", "1")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if inner.calls != 1 {
		t.Fatalf("calls = %d, want no retry on not-found", inner.calls)
	}
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	inner := &flakyStore{failures: 10, failWith: storage.ErrUnavailable}
	s := Wrap(inner, inner, Policy{Attempts: 5, Backoff: time.Minute}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Delete(ctx, "billing", "1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if inner.calls != 1 {
		t.Fatalf("calls = %d, want the backoff wait to observe cancellation", inner.calls)
	}
}
