// Package retry wraps a lead store with a bounded retry policy. Transient
// store failures trigger a reconnect and one or more replays of the same
// logical operation; after the attempts are exhausted the last error
// propagates to the caller.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/twh-ops/leadportal/internal/portal/domain/lead"
	"github.com/twh-ops/leadportal/internal/portal/metrics"
	"github.com/twh-ops/leadportal/internal/portal/storage"
	"github.com/twh-ops/leadportal/pkg/logger"
)

// Policy bounds the retry loop.
type Policy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultPolicy retries twice with a short fixed backoff.
var DefaultPolicy = Policy{Attempts: 3, Backoff: 250 * time.Millisecond}

// Store decorates a LeadStore/AuthStore pair with the retry policy.
type Store struct {
	leads  storage.LeadStore
	auth   storage.AuthStore
	policy Policy
	log    *logger.Logger
}

var _ storage.LeadStore = (*Store)(nil)
var _ storage.AuthStore = (*Store)(nil)

// Wrap builds a retrying store. A nil policy field falls back to the
// default; log may be nil.
func Wrap(leads storage.LeadStore, auth storage.AuthStore, policy Policy, log *logger.Logger) *Store {
	if policy.Attempts <= 0 {
		policy = DefaultPolicy
	}
	if log == nil {
		log = logger.NewDefault("storage.retry")
	}
	return &Store{leads: leads, auth: auth, policy: policy, log: log}
}

func (s *Store) do(ctx context.Context, op func() error) error {
	var err error
	for attempt := 1; attempt <= s.policy.Attempts; attempt++ {
		err = op()
		if err == nil || !retryable(err) {
			return err
		}
		if attempt == s.policy.Attempts {
			break
		}
		metrics.RecordStoreRetry()
		s.log.WithError(err).WithField("attempt", attempt).Warn("store operation failed, retrying")

		select {
		case <-time.After(s.policy.Backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		if rc, ok := s.leads.(storage.Reconnector); ok {
			if rerr := rc.Reconnect(ctx); rerr != nil {
				s.log.WithError(rerr).Warn("store reconnect failed")
			}
		}
	}
	return err
}

// retryable treats not-found as final; everything else is assumed to be a
// connectivity or transient backend failure.
func retryable(err error) bool {
	return !errors.Is(err, storage.ErrNotFound)
}

func (s *Store) Append(ctx context.Context, category string, l lead.Lead) (string, error) {
	var handle string
	err := s.do(ctx, func() error {
		var opErr error
		handle, opErr = s.leads.Append(ctx, category, l)
		return opErr
	})
	return handle, err
}

func (s *Store) FindByID(ctx context.Context, category, id string) ([]storage.Match, error) {
	var matches []storage.Match
	err := s.do(ctx, func() error {
		var opErr error
		matches, opErr = s.leads.FindByID(ctx, category, id)
		return opErr
	})
	return matches, err
}

func (s *Store) Get(ctx context.Context, category, handle string) (lead.Lead, error) {
	var l lead.Lead
	err := s.do(ctx, func() error {
		var opErr error
		l, opErr = s.leads.Get(ctx, category, handle)
		return opErr
	})
	return l, err
}

func (s *Store) Update(ctx context.Context, category, handle string, l lead.Lead) error {
	return s.do(ctx, func() error {
		return s.leads.Update(ctx, category, handle, l)
	})
}

func (s *Store) UpdateStatus(ctx context.Context, category, handle, status string) error {
	return s.do(ctx, func() error {
		return s.leads.UpdateStatus(ctx, category, handle, status)
	})
}

func (s *Store) Delete(ctx context.Context, category, handle string) error {
	return s.do(ctx, func() error {
		return s.leads.Delete(ctx, category, handle)
	})
}

func (s *Store) List(ctx context.Context, category string) ([]lead.Lead, error) {
	var leads []lead.Lead
	err := s.do(ctx, func() error {
		var opErr error
		leads, opErr = s.leads.List(ctx, category)
		return opErr
	})
	return leads, err
}

func (s *Store) GetUser(ctx context.Context, id string) (storage.User, error) {
	var u storage.User
	err := s.do(ctx, func() error {
		var opErr error
		u, opErr = s.auth.GetUser(ctx, id)
		return opErr
	})
	return u, err
}
