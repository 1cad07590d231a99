// Package leads orchestrates lead submission, lookup, deletion and
// status updates over the store, with notification side effects.
package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/twh-ops/leadportal/internal/portal/confirm"
	"github.com/twh-ops/leadportal/internal/portal/domain/lead"
	"github.com/twh-ops/leadportal/internal/portal/metrics"
	"github.com/twh-ops/leadportal/internal/portal/notify"
	"github.com/twh-ops/leadportal/internal/portal/storage"
	"github.com/twh-ops/leadportal/pkg/logger"
)

// ErrUnknownCategory rejects category names outside the configured set.
var ErrUnknownCategory = errors.New("unknown category")

// ErrDuplicateID rejects a create whose identifier already exists.
var ErrDuplicateID = errors.New("id already exists")

// ErrAmbiguous marks an operation that matched several records and needs
// a handle to proceed.
var ErrAmbiguous = errors.New("multiple records match")

// Service is the lead orchestration layer.
type Service struct {
	store     storage.LeadStore
	notifier  notify.Publisher
	generator confirm.Generator
	loc       *time.Location
	now       func() time.Time
	log       *logger.Logger
}

// New constructs the service. notifier and generator may be nil; loc
// defaults to UTC.
func New(store storage.LeadStore, notifier notify.Publisher, generator confirm.Generator, loc *time.Location, log *logger.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.NewDefault("leads")
	}
	return &Service{
		store:     store,
		notifier:  notifier,
		generator: generator,
		loc:       loc,
		now:       time.Now,
		log:       log,
	}
}

// SaveRequest carries the raw form fields of a lead submission.
type SaveRequest struct {
	Category string
	IsEdit   bool
	Handle   string

	Agent      string
	ClientName string
	Phone      string
	Address    string
	Email      string
	CardHolder string
	CardNumber string
	ExpDate    string
	CVC        string
	ChargeAmt  string
	LLC        string
	Provider   string
	PinCode    string
	AccountNum string
	Status     string

	OrderID  string
	RecordID string

	TimestampMode     string
	OriginalTimestamp string
}

// SaveResult reports the stored record and its handle. Candidates is set
// when an edit without a handle matched several records.
type SaveResult struct {
	Lead       lead.Lead
	Handle     string
	Created    bool
	Candidates []lead.Candidate
}

// Save creates a new lead or updates an existing one.
func (s *Service) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	cat, ok := lead.LookupCategory(req.Category)
	if !ok {
		return SaveResult{}, fmt.Errorf("%w: %s", ErrUnknownCategory, req.Category)
	}

	amount, display := lead.ParseCharge(req.ChargeAmt)
	createdAt, stamp, date := lead.ResolveTimestamp(lead.TimestampPolicy{
		Edit:     req.IsEdit,
		Keep:     strings.EqualFold(strings.TrimSpace(req.TimestampMode), "keep") || req.TimestampMode == "",
		Original: req.OriginalTimestamp,
	}, s.loc, s.now())

	code := strings.TrimSpace(req.PinCode)
	if code == "" {
		code = strings.TrimSpace(req.AccountNum)
	}

	l := lead.Lead{
		RecordID:      lead.ResolveID(cat, req.OrderID, req.RecordID),
		Category:      cat.Name,
		Agent:         strings.TrimSpace(req.Agent),
		ClientName:    strings.TrimSpace(req.ClientName),
		Phone:         req.Phone,
		Address:       req.Address,
		Email:         req.Email,
		CardHolder:    req.CardHolder,
		CardNumber:    req.CardNumber,
		ExpDate:       req.ExpDate,
		CVC:           req.CVC,
		ChargeAmount:  amount,
		ChargeDisplay: display,
		LLC:           req.LLC,
		Provider:      req.Provider,
		PinCode:       code,
		Status:        lead.ResolveStatus(cat, req.Status, req.IsEdit),
		Date:          date,
		CreatedAt:     createdAt,
		Timestamp:     stamp,
	}

	if req.IsEdit {
		return s.update(ctx, cat, req.Handle, l)
	}
	return s.create(ctx, cat, l)
}

func (s *Service) create(ctx context.Context, cat lead.Category, l lead.Lead) (SaveResult, error) {
	existing, err := s.store.FindByID(ctx, cat.Name, l.RecordID)
	if err != nil {
		return SaveResult{}, err
	}
	if len(existing) > 0 {
		return SaveResult{}, fmt.Errorf("%w: %s", ErrDuplicateID, l.RecordID)
	}

	handle, err := s.store.Append(ctx, cat.Name, l)
	if err != nil {
		return SaveResult{}, err
	}

	metrics.RecordLeadSaved(cat.Name, true)
	s.log.WithField("category", cat.Name).
		WithField("record_id", l.RecordID).
		WithField("agent", l.Agent).
		Info("lead submitted")

	s.publish(ctx, notify.NewEvent(notify.EventNewLead, map[string]any{
		"agent":   l.Agent,
		"amount":  l.ChargeDisplay,
		"type":    cat.Name,
		"message": fmt.Sprintf("New %s lead from %s", cat.Name, l.Agent),
	}))

	return SaveResult{Lead: l, Handle: handle, Created: true}, nil
}

func (s *Service) update(ctx context.Context, cat lead.Category, handle string, l lead.Lead) (SaveResult, error) {
	if handle == "" {
		matches, err := s.store.FindByID(ctx, cat.Name, l.RecordID)
		if err != nil {
			return SaveResult{}, err
		}
		switch len(matches) {
		case 0:
			return SaveResult{}, storage.ErrNotFound
		case 1:
			handle = matches[0].Handle
		default:
			return SaveResult{Candidates: candidates(matches)}, ErrAmbiguous
		}
	}

	if err := s.store.Update(ctx, cat.Name, handle, l); err != nil {
		return SaveResult{}, err
	}

	metrics.RecordLeadSaved(cat.Name, false)
	s.log.WithField("category", cat.Name).
		WithField("record_id", l.RecordID).
		Info("lead updated")

	s.publish(ctx, notify.NewEvent(notify.EventLeadUpdated, map[string]any{
		"agent":     l.Agent,
		"record_id": l.RecordID,
		"type":      cat.Name,
	}))

	return SaveResult{Lead: l, Handle: handle}, nil
}

// GetResult carries a resolved lookup. Exactly one of Lead/Candidates is
// meaningful: Candidates is non-empty when several records share the id.
type GetResult struct {
	Lead       lead.Lead
	Handle     string
	Candidates []lead.Candidate
}

// Get resolves a record by handle, or by identifier with duplicate
// disambiguation.
func (s *Service) Get(ctx context.Context, category, id, handle string) (GetResult, error) {
	cat, ok := lead.LookupCategory(category)
	if !ok {
		return GetResult{}, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	if handle != "" {
		l, err := s.store.Get(ctx, cat.Name, handle)
		if err != nil {
			return GetResult{}, err
		}
		return GetResult{Lead: l, Handle: handle}, nil
	}

	matches, err := s.store.FindByID(ctx, cat.Name, id)
	if err != nil {
		return GetResult{}, err
	}
	switch len(matches) {
	case 0:
		return GetResult{}, storage.ErrNotFound
	case 1:
		return GetResult{Lead: matches[0].Lead, Handle: matches[0].Handle}, nil
	default:
		return GetResult{Candidates: candidates(matches)}, nil
	}
}

// Delete removes a record permanently. Without a handle the most recent
// match wins.
func (s *Service) Delete(ctx context.Context, category, id, handle string) error {
	cat, ok := lead.LookupCategory(category)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	if handle == "" {
		matches, err := s.store.FindByID(ctx, cat.Name, id)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return storage.ErrNotFound
		}
		handle = matches[0].Handle
	}

	if err := s.store.Delete(ctx, cat.Name, handle); err != nil {
		return err
	}
	s.log.WithField("category", cat.Name).
		WithField("record_id", id).
		Info("lead deleted")
	return nil
}

// List returns every record in a category.
func (s *Service) List(ctx context.Context, category string) ([]lead.Lead, error) {
	cat, ok := lead.LookupCategory(category)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	return s.store.List(ctx, cat.Name)
}

// StatusResult reports the identity behind an updated record so callers
// can build notification payloads, plus the generated confirmation letter
// when one applies.
type StatusResult struct {
	Agent        string
	ClientName   string
	Handle       string
	Confirmation string
}

// UpdateStatus writes a new status on a record. Among duplicate
// identifiers a still-Pending record is preferred, then the most recent.
// On a completed billing charge a confirmation letter is generated and
// fanned out to the agent.
func (s *Service) UpdateStatus(ctx context.Context, category, id, handle, status string) (StatusResult, error) {
	cat, ok := lead.LookupCategory(category)
	if !ok {
		return StatusResult{}, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	if handle == "" {
		matches, err := s.store.FindByID(ctx, cat.Name, id)
		if err != nil {
			return StatusResult{}, err
		}
		if len(matches) == 0 {
			return StatusResult{}, storage.ErrNotFound
		}
		handle = matches[0].Handle
		for _, m := range matches {
			if lead.NormalizeStatus(m.Lead.Status) == lead.StatusPending {
				handle = m.Handle
				break
			}
		}
	}

	status = strings.TrimSpace(status)
	if err := s.store.UpdateStatus(ctx, cat.Name, handle, status); err != nil {
		return StatusResult{}, err
	}

	updated, err := s.store.Get(ctx, cat.Name, handle)
	if err != nil {
		return StatusResult{}, err
	}

	metrics.RecordStatusUpdate(cat.Name, lead.NormalizeStatus(status))
	s.log.WithField("category", cat.Name).
		WithField("record_id", updated.RecordID).
		WithField("status", status).
		Info("lead status updated")

	result := StatusResult{
		Agent:      updated.Agent,
		ClientName: updated.ClientName,
		Handle:     handle,
	}

	s.publish(ctx, notify.NewEvent(notify.EventStatusChanged, map[string]any{
		"agent":       updated.Agent,
		"client_name": updated.ClientName,
		"record_id":   updated.RecordID,
		"type":        cat.Name,
		"status":      status,
	}))

	if cat.Name == lead.CategoryBilling && lead.IsCharged(status) && s.generator != nil {
		body, err := s.generator.Generate(ctx, updated)
		if err != nil {
			s.log.WithError(err).Warn("confirmation generation failed")
		} else if body != "" {
			result.Confirmation = body
			s.publish(ctx, notify.NewEvent(notify.EventPaymentConfirmed, map[string]any{
				"agent":       updated.Agent,
				"client_name": updated.ClientName,
				"email_body":  body,
				"message":     "Payment Approved! Email Generated.",
			}))
		}
	}

	return result, nil
}

func (s *Service) publish(ctx context.Context, e notify.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, e); err != nil {
		s.log.WithError(err).WithField("event", e.Name).Warn("event publish failed")
		return
	}
	metrics.RecordEventPublished(e.Name)
}

func candidates(matches []storage.Match) []lead.Candidate {
	out := make([]lead.Candidate, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSpace(m.Lead.ClientName)
		if name == "" {
			name = "Unknown"
		}
		out = append(out, lead.Candidate{
			Handle:    m.Handle,
			Name:      name,
			Charge:    m.Lead.ChargeDisplay,
			Timestamp: m.Lead.Timestamp,
			Status:    m.Lead.Status,
		})
	}
	return out
}

// WithClock overrides the time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
