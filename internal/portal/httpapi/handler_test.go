package httpapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/twh-ops/leadportal/internal/portal/confirm"
	"github.com/twh-ops/leadportal/internal/portal/notify"
	"github.com/twh-ops/leadportal/internal/portal/services/auth"
	"github.com/twh-ops/leadportal/internal/portal/services/leads"
	statssvc "github.com/twh-ops/leadportal/internal/portal/services/stats"
	"github.com/twh-ops/leadportal/internal/portal/storage"
	"github.com/twh-ops/leadportal/internal/portal/storage/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()

	store := memory.New()
	sum := sha256.Sum256([]byte("hunter2"))
	store.PutUser(storage.User{ID: "1001", Password: hex.EncodeToString(sum[:]), Role: "Manager"})

	hub := notify.NewHub(nil)
	leadSvc := leads.New(store, hub, confirm.NewTemplateGenerator(), time.UTC, nil)
	authSvc := auth.New(store, nil)
	statsSvc := statssvc.New(store, time.UTC, nil)

	handler := New(leadSvc, authSvc, statsSvc, hub, nil)
	srv := httptest.NewServer(handler.Router())
	t.Cleanup(srv.Close)
	return srv, store
}

func postForm(t *testing.T, srv *httptest.Server, path string, form url.Values) (int, map[string]any) {
	t.Helper()
	resp, err := srv.Client().PostForm(srv.URL+path, form)
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, body
}

func get(t *testing.T, srv *httptest.Server, path string) (int, map[string]any) {
	t.Helper()
	resp, err := srv.Client().Get(srv.URL + path)
	if err != nil {
		t.Fatalf("get %s: %v", path, err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, body
}

func TestSaveAndFetchLead(t *testing.T) {
	srv, _ := newTestServer(t)

	code, body := postForm(t, srv, "/api/leads", url.Values{
		"type":          {"billing"},
		"agent_name":    {"Haziq"},
		"client_name":   {"John Doe"},
		"charge_amount": {"$120"},
		"order_id":      {"42"},
	})
	if code != http.StatusOK {
		t.Fatalf("status = %d, body = %v", code, body)
	}
	if body["status"] != "success" {
		t.Fatalf("body = %v", body)
	}

	code, body = get(t, srv, "/api/leads?type=billing&id=42")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	data := body["data"].(map[string]any)
	leadObj := data["lead"].(map[string]any)
	if leadObj["client_name"] != "John Doe" {
		t.Fatalf("lead = %v", leadObj)
	}
	if leadObj["status"] != "Pending" {
		t.Fatalf("status = %v, want Pending for new billing lead", leadObj["status"])
	}
}

func TestDuplicateIDConflict(t *testing.T) {
	srv, _ := newTestServer(t)

	form := url.Values{"type": {"billing"}, "order_id": {"42"}}
	if code, _ := postForm(t, srv, "/api/leads", form); code != http.StatusOK {
		t.Fatalf("first save: %d", code)
	}
	code, body := postForm(t, srv, "/api/leads", form)
	if code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body = %v", code, body)
	}
	if body["status"] != "error" {
		t.Fatalf("body = %v", body)
	}
}

func TestGetUnknownLead(t *testing.T) {
	srv, _ := newTestServer(t)

	code, body := get(t, srv, "/api/leads?type=billing&id=absent")
	if code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %v", code, body)
	}
}

func TestUnknownCategoryRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	code, _ := postForm(t, srv, "/api/leads", url.Values{"type": {"crypto"}})
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
}

func TestDeleteLead(t *testing.T) {
	srv, _ := newTestServer(t)

	postForm(t, srv, "/api/leads", url.Values{"type": {"billing"}, "order_id": {"42"}})

	code, _ := postForm(t, srv, "/api/leads/delete", url.Values{"type": {"billing"}, "id": {"42"}})
	if code != http.StatusOK {
		t.Fatalf("delete status = %d", code)
	}
	code, _ = get(t, srv, "/api/leads?type=billing&id=42")
	if code != http.StatusNotFound {
		t.Fatalf("status = %d, want record gone", code)
	}
}

func TestUpdateStatusGeneratesEmail(t *testing.T) {
	srv, _ := newTestServer(t)

	postForm(t, srv, "/api/leads", url.Values{
		"type":             {"billing"},
		"agent_name":       {"Haziq"},
		"client_name":      {"John Doe"},
		"charge_amount":    {"$100"},
		"service_provider": {"Spectrum"},
		"llc":              {"Apex Prime Solutions"},
		"order_id":         {"42"},
	})

	code, body := postForm(t, srv, "/api/manager/update-status", url.Values{
		"type":   {"billing"},
		"id":     {"42"},
		"status": {"Charged"},
	})
	if code != http.StatusOK {
		t.Fatalf("status = %d, body = %v", code, body)
	}
	if body["message"] != "Payment Approved! Email Generated." {
		t.Fatalf("message = %v", body["message"])
	}
	data := body["data"].(map[string]any)
	email, _ := data["email_body"].(string)
	if !strings.Contains(email, "John Doe") {
		t.Fatalf("email body missing client name: %q", email)
	}
}

func TestUpdateStatusRequiresStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	code, _ := postForm(t, srv, "/api/manager/update-status", url.Values{
		"type": {"billing"},
		"id":   {"42"},
	})
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
}

func TestLogin(t *testing.T) {
	srv, _ := newTestServer(t)

	code, body := postForm(t, srv, "/api/manager/login", url.Values{
		"id":       {"1001"},
		"password": {"hunter2"},
	})
	if code != http.StatusOK {
		t.Fatalf("status = %d, body = %v", code, body)
	}
	data := body["data"].(map[string]any)
	if data["role"] != "Manager" {
		t.Fatalf("data = %v", data)
	}

	code, _ = postForm(t, srv, "/api/manager/login", url.Values{
		"id":       {"1001"},
		"password": {"wrong"},
	})
	if code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	code, body := get(t, srv, "/api/stats?type=billing")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	data := body["data"].(map[string]any)
	if _, ok := data["night"]; !ok {
		t.Fatalf("stats payload = %v", data)
	}

	code, body = get(t, srv, "/api/stats")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	all := body["data"].(map[string]any)
	for _, name := range []string{"billing", "insurance", "design", "ebook"} {
		if _, ok := all[name]; !ok {
			t.Fatalf("missing %q in %v", name, all)
		}
	}
}

func TestConfigEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	code, body := get(t, srv, "/api/config")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	data := body["data"].(map[string]any)
	billing := data["billing"].(map[string]any)
	if billing["id_field"] != "order_id" {
		t.Fatalf("billing config = %v", billing)
	}
	if _, ok := billing["agents"]; !ok {
		t.Fatalf("billing roster missing agents: %v", billing)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	code, body := get(t, srv, "/healthz")
	if code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health = %d %v", code, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestDuplicateCandidates(t *testing.T) {
	srv, store := newTestServer(t)

	postForm(t, srv, "/api/leads", url.Values{
		"type": {"billing"}, "order_id": {"42"}, "client_name": {"First"},
	})

	// Second record with the same id seeded directly, as legacy imports do.
	ctx := context.Background()
	leads, err := store.List(ctx, "billing")
	if err != nil || len(leads) != 1 {
		t.Fatalf("seed check: %v %d", err, len(leads))
	}
	dup := leads[0]
	dup.ClientName = "Second"
	if _, err := store.Append(ctx, "billing", dup); err != nil {
		t.Fatalf("seed duplicate: %v", err)
	}

	code, body := get(t, srv, "/api/leads?type=billing&id=42")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["status"] != "multiple" {
		t.Fatalf("status field = %v, want multiple", body["status"])
	}
	candidates := body["candidates"].([]any)
	if len(candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(candidates))
	}
}
