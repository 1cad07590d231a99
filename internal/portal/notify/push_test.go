package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPushClientSendsNewLeadNote(t *testing.T) {
	var got map[string]string
	var token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = r.Header.Get("Access-Token")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewPushClient(srv.Client(), srv.URL, "secret", 10, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	e := NewEvent(EventNewLead, map[string]any{
		"agent":  "Haziq",
		"amount": "$120.00",
		"type":   "billing",
	})
	if err := client.Publish(context.Background(), e); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if token != "secret" {
		t.Fatalf("token header = %q", token)
	}
	if got["title"] != "New Billing Lead" {
		t.Fatalf("title = %q", got["title"])
	}
	if got["body"] != "Haziq - $120.00" {
		t.Fatalf("body = %q", got["body"])
	}
}

func TestPushClientIgnoresUnrenderedEvents(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewPushClient(srv.Client(), srv.URL, "", 10, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if err := client.Publish(context.Background(), NewEvent(EventLeadUpdated, nil)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if calls != 0 {
		t.Fatalf("lead-updated events should not produce a note")
	}
}

func TestPushClientRateLimitDropsQuietly(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// Burst of 2: the third note in the same instant is dropped.
	client, err := NewPushClient(srv.Client(), srv.URL, "", 2, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	e := NewEvent(EventNewLead, map[string]any{"agent": "Haziq", "amount": "$1.00", "type": "billing"})
	for i := 0; i < 3; i++ {
		if err := client.Publish(context.Background(), e); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want the burst capped at 2", calls)
	}
}
