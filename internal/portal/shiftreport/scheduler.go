// Package shiftreport publishes an end-of-shift summary for every
// category when the night window closes.
package shiftreport

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/twh-ops/leadportal/internal/portal/domain/lead"
	"github.com/twh-ops/leadportal/internal/portal/notify"
	statssvc "github.com/twh-ops/leadportal/internal/portal/services/stats"
	"github.com/twh-ops/leadportal/pkg/logger"
)

// Scheduler runs the shift-close summary job on a cron schedule.
type Scheduler struct {
	cron      *cron.Cron
	stats     *statssvc.Service
	notifier  notify.Publisher
	loc       *time.Location
	shiftEnds map[string]int
	log       *logger.Logger
}

// New builds the scheduler. One job is registered per distinct shift end
// hour across the configured categories; a job summarizes every category
// whose shift closes at that hour.
func New(stats *statssvc.Service, notifier notify.Publisher, loc *time.Location, log *logger.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.NewDefault("shiftreport")
	}

	ends := make(map[string]int)
	for _, cat := range lead.Categories() {
		ends[cat.Name] = (cat.Shift.StartHour + cat.Shift.DurationHours) % 24
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		stats:     stats,
		notifier:  notifier,
		loc:       loc,
		shiftEnds: ends,
		log:       log,
	}
}

// Name implements system.Service.
func (s *Scheduler) Name() string { return "shiftreport" }

// Start registers the cron entries and launches the scheduler.
func (s *Scheduler) Start(_ context.Context) error {
	hours := make(map[int][]string)
	for name, hour := range s.shiftEnds {
		hours[hour] = append(hours[hour], name)
	}

	for hour, categories := range hours {
		categories := categories
		spec := fmt.Sprintf("0 %d * * *", hour)
		if _, err := s.cron.AddFunc(spec, func() { s.report(categories) }); err != nil {
			return fmt.Errorf("schedule shift summary: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop waits for any running job to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) report(categories []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, name := range categories {
		result, err := s.stats.Compute(ctx, name)
		if err != nil {
			s.log.WithError(err).WithField("category", name).Error("shift summary failed")
			continue
		}

		s.log.WithField("category", name).
			WithField("night_total", result.Night).
			WithField("pending", result.Pending).
			Info("shift closed")

		if s.notifier == nil {
			continue
		}
		event := notify.NewEvent(notify.EventShiftSummary, map[string]any{
			"type":         name,
			"night_total":  result.Night,
			"today_total":  result.Today,
			"pending":      result.Pending,
			"pending_amt":  result.PendingAmount,
			"breakdown":    result.Breakdown,
			"generated_at": time.Now().In(s.loc).Format(lead.TimestampLayout),
		})
		if err := s.notifier.Publish(ctx, event); err != nil {
			s.log.WithError(err).WithField("category", name).Warn("shift summary publish failed")
		}
	}
}
