package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/twh-ops/leadportal/internal/portal/domain/lead"
	"github.com/twh-ops/leadportal/internal/portal/storage"
)

func TestAppendAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	handle, err := s.Append(ctx, "billing", lead.Lead{RecordID: "42", Agent: "Haziq"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := s.Get(ctx, "billing", handle)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RecordID != "42" || got.Agent != "Haziq" {
		t.Fatalf("got %+v, want stored lead back", got)
	}
}

func TestGetUnknownHandle(t *testing.T) {
	s := New()

	_, err := s.Get(context.Background(), "billing", "999")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	_, err = s.Get(context.Background(), "billing", "not-a-handle")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for malformed handle", err)
	}
}

func TestFindByIDMatchesCanonicalForm(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.Append(ctx, "billing", lead.Lead{RecordID: "7"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Leading zeros compare equal to the canonical integer form.
	matches, err := s.FindByID(ctx, "billing", "007")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
}

func TestFindByIDDuplicatesMostRecentFirst(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.Append(ctx, "billing", lead.Lead{RecordID: "42", ClientName: "First"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := s.Append(ctx, "billing", lead.Lead{RecordID: "42", ClientName: "Second"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	matches, err := s.FindByID(ctx, "billing", "42")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
	if matches[0].Lead.ClientName != "Second" {
		t.Fatalf("first match = %q, want most recent record first", matches[0].Lead.ClientName)
	}
}

func TestFindByIDScopedToCategory(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.Append(ctx, "billing", lead.Lead{RecordID: "42"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	matches, err := s.FindByID(ctx, "insurance", "42")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("matches = %d, want none in a different category", len(matches))
	}
}

func TestUpdateAndUpdateStatus(t *testing.T) {
	s := New()
	ctx := context.Background()

	handle, _ := s.Append(ctx, "billing", lead.Lead{RecordID: "42", Status: "Pending"})

	if err := s.Update(ctx, "billing", handle, lead.Lead{RecordID: "42", Agent: "Areeb", Status: "Pending"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.UpdateStatus(ctx, "billing", handle, "Charged"); err != nil {
		t.Fatalf("update status: %v", err)
	}

	got, err := s.Get(ctx, "billing", handle)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Agent != "Areeb" || got.Status != "Charged" {
		t.Fatalf("got %+v, want updated agent and status", got)
	}

	if err := s.UpdateStatus(ctx, "billing", "999", "Charged"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	handle, _ := s.Append(ctx, "billing", lead.Lead{RecordID: "42"})
	if err := s.Delete(ctx, "billing", handle); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "billing", handle); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after delete", err)
	}
	if err := s.Delete(ctx, "billing", handle); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestListPreservesInsertionOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		if _, err := s.Append(ctx, "ebook", lead.Lead{ClientName: name}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	leads, err := s.List(ctx, "ebook")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(leads) != 3 || leads[0].ClientName != "a" || leads[2].ClientName != "c" {
		t.Fatalf("list = %+v, want insertion order preserved", leads)
	}
}

func TestUsers(t *testing.T) {
	s := New()
	s.PutUser(storage.User{ID: "1001", Password: "secret", Role: "Manager"})

	u, err := s.GetUser(context.Background(), "1001")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Role != "Manager" {
		t.Fatalf("role = %q, want Manager", u.Role)
	}

	if _, err := s.GetUser(context.Background(), "absent"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
