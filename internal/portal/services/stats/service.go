// Package stats serves shift-window figures computed over stored leads.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/twh-ops/leadportal/internal/portal/domain/lead"
	"github.com/twh-ops/leadportal/internal/portal/stats"
	"github.com/twh-ops/leadportal/internal/portal/storage"
	"github.com/twh-ops/leadportal/pkg/logger"
)

// Service computes per-category shift statistics.
type Service struct {
	store storage.LeadStore
	loc   *time.Location
	now   func() time.Time
	log   *logger.Logger
}

// New constructs the service. loc defaults to UTC.
func New(store storage.LeadStore, loc *time.Location, log *logger.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.NewDefault("stats")
	}
	return &Service{store: store, loc: loc, now: time.Now, log: log}
}

// Compute returns the shift figures for one category. Store failures are
// logged and reported as zeroed figures; the dashboard keeps rendering
// when a backend is briefly down.
func (s *Service) Compute(ctx context.Context, category string) (stats.Result, error) {
	cat, ok := lead.LookupCategory(category)
	if !ok {
		return stats.Result{}, fmt.Errorf("unknown category: %s", category)
	}

	records, err := s.store.List(ctx, cat.Name)
	if err != nil {
		s.log.WithError(err).WithField("category", cat.Name).Warn("stats source unavailable")
		return stats.Result{Breakdown: map[string]float64{}}, nil
	}

	return stats.Compute(cat, records, s.now().In(s.loc)), nil
}

// ComputeAll returns figures for every configured category.
func (s *Service) ComputeAll(ctx context.Context) (map[string]stats.Result, error) {
	out := make(map[string]stats.Result)
	for _, cat := range lead.Categories() {
		r, err := s.Compute(ctx, cat.Name)
		if err != nil {
			return nil, err
		}
		out[cat.Name] = r
	}
	return out, nil
}

// CategoryData bundles the raw records of a category with its computed
// figures for the manager console.
type CategoryData struct {
	Records []lead.Lead  `json:"records"`
	Stats   stats.Result `json:"stats"`
}

// ManagerData returns every category's records and figures in one shot.
func (s *Service) ManagerData(ctx context.Context) (map[string]CategoryData, error) {
	out := make(map[string]CategoryData)
	for _, cat := range lead.Categories() {
		records, err := s.store.List(ctx, cat.Name)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", cat.Name, err)
		}
		out[cat.Name] = CategoryData{
			Records: records,
			Stats:   stats.Compute(cat, records, s.now().In(s.loc)),
		}
	}
	return out, nil
}

// WithClock overrides the time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
