package notify

import (
	"context"
	"errors"
	"testing"
)

type recordingSink struct {
	events []Event
	err    error
}

func (r *recordingSink) Publish(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func TestFanoutDeliversToAllSinks(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	f := NewFanout(nil, a, b)

	e := NewEvent(EventNewLead, map[string]any{"agent": "Haziq"})
	if err := f.Publish(context.Background(), e); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("deliveries = %d/%d, want 1/1", len(a.events), len(b.events))
	}
	if a.events[0].ID == "" {
		t.Fatalf("event id should be assigned")
	}
}

func TestFanoutSwallowsSinkErrors(t *testing.T) {
	broken := &recordingSink{err: errors.New("sink down")}
	healthy := &recordingSink{}
	f := NewFanout(nil, broken, healthy)

	if err := f.Publish(context.Background(), NewEvent(EventStatusChanged, nil)); err != nil {
		t.Fatalf("publish should never fail, got %v", err)
	}
	if len(healthy.events) != 1 {
		t.Fatalf("a broken sink must not block the others")
	}
}

func TestFanoutSkipsNilSinks(t *testing.T) {
	healthy := &recordingSink{}
	f := NewFanout(nil, nil, healthy, nil)

	if err := f.Publish(context.Background(), NewEvent(EventNewLead, nil)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(healthy.events) != 1 {
		t.Fatalf("nil sinks should be skipped, not break delivery")
	}
}
