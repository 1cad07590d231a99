package confirm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/twh-ops/leadportal/internal/portal/domain/lead"
)

func TestTemplateGeneratorLetter(t *testing.T) {
	gen := NewTemplateGenerator()

	body, err := gen.Generate(context.Background(), lead.Lead{
		ClientName:    "John Doe",
		Provider:      "Spectrum",
		ChargeAmount:  89.99,
		ChargeDisplay: "$89.99",
		LLC:           "Apex Prime Solutions",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	for _, want := range []string{
		"Dear John Doe,",
		"payment of $89.99",
		"your monthly bill will be $104.99",
		"AutoPay through Apex Prime Solutions",
		"authorized Spectrum retailer",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("letter missing %q:\n%s", want, body)
		}
	}
}

func TestTemplateGeneratorFallbacks(t *testing.T) {
	gen := NewTemplateGenerator()

	body, err := gen.Generate(context.Background(), lead.Lead{ChargeAmount: 50})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	for _, want := range []string{
		"Dear Valued Customer,",
		"Service Provider",
		"Visionary Pathways",
		"payment of $50.00",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("letter missing fallback %q:\n%s", want, body)
		}
	}
}

func TestRemoteGeneratorUsesRemoteBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		if in["client_name"] != "John Doe" {
			t.Errorf("client_name = %q", in["client_name"])
		}
		json.NewEncoder(w).Encode(map[string]string{"body": "remote letter"})
	}))
	defer srv.Close()

	gen, err := NewRemoteGenerator(srv.Client(), srv.URL, "key", nil)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	body, err := gen.Generate(context.Background(), lead.Lead{ClientName: "John Doe"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if body != "remote letter" {
		t.Fatalf("body = %q, want remote response", body)
	}
}

func TestRemoteGeneratorFallsBackOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	gen, err := NewRemoteGenerator(srv.Client(), srv.URL, "", nil)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	body, err := gen.Generate(context.Background(), lead.Lead{ClientName: "Jane", ChargeAmount: 10})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(body, "Dear Jane,") {
		t.Fatalf("expected local template fallback, got:\n%s", body)
	}
}
