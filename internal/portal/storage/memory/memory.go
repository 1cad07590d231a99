// Package memory is an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/twh-ops/leadportal/internal/portal/domain/lead"
	"github.com/twh-ops/leadportal/internal/portal/storage"
)

type row struct {
	handle int64
	lead   lead.Lead
}

// Store keeps each category's rows in insertion order. Handles are the
// monotonically increasing row counter rendered as a decimal string.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[string][]row
	users  map[string]storage.User
}

var _ storage.LeadStore = (*Store)(nil)
var _ storage.AuthStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID: 1,
		rows:   make(map[string][]row),
		users:  make(map[string]storage.User),
	}
}

func (s *Store) Append(_ context.Context, category string, l lead.Lead) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.rows[category] = append(s.rows[category], row{handle: id, lead: l})
	return strconv.FormatInt(id, 10), nil
}

func (s *Store) FindByID(_ context.Context, category, id string) ([]storage.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := lead.CanonicalID(id)
	var matches []storage.Match
	for _, r := range s.rows[category] {
		if lead.CanonicalID(r.lead.RecordID) == want {
			matches = append(matches, storage.Match{Lead: r.lead, Handle: strconv.FormatInt(r.handle, 10)})
		}
	}
	// Handles are decimal renderings of a counter; compare numerically.
	sort.Slice(matches, func(i, j int) bool {
		a, _ := strconv.ParseInt(matches[i].Handle, 10, 64)
		b, _ := strconv.ParseInt(matches[j].Handle, 10, 64)
		return a > b
	})
	return matches, nil
}

func (s *Store) Get(_ context.Context, category, handle string) (lead.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.locate(category, handle)
	if !ok {
		return lead.Lead{}, storage.ErrNotFound
	}
	return s.rows[category][idx].lead, nil
}

func (s *Store) Update(_ context.Context, category, handle string, l lead.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.locate(category, handle)
	if !ok {
		return storage.ErrNotFound
	}
	s.rows[category][idx].lead = l
	return nil
}

func (s *Store) UpdateStatus(_ context.Context, category, handle, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.locate(category, handle)
	if !ok {
		return storage.ErrNotFound
	}
	s.rows[category][idx].lead.Status = status
	return nil
}

func (s *Store) Delete(_ context.Context, category, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.locate(category, handle)
	if !ok {
		return storage.ErrNotFound
	}
	s.rows[category] = append(s.rows[category][:idx], s.rows[category][idx+1:]...)
	return nil
}

func (s *Store) List(_ context.Context, category string) ([]lead.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.rows[category]
	out := make([]lead.Lead, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.lead)
	}
	return out, nil
}

// PutUser seeds a manager credential.
func (s *Store) PutUser(u storage.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) GetUser(_ context.Context, id string) (storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) locate(category, handle string) (int, bool) {
	want, err := strconv.ParseInt(handle, 10, 64)
	if err != nil {
		return 0, false
	}
	for i, r := range s.rows[category] {
		if r.handle == want {
			return i, true
		}
	}
	return 0, false
}
