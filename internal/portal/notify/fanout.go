package notify

import (
	"context"

	"github.com/twh-ops/leadportal/pkg/logger"
)

// Fanout publishes an event to every configured sink. Sink errors are
// logged and swallowed so a broken channel never fails the operation that
// produced the event.
type Fanout struct {
	sinks []Publisher
	log   *logger.Logger
}

var _ Publisher = (*Fanout)(nil)

// NewFanout builds a fanout over the given sinks. Nil sinks are skipped.
func NewFanout(log *logger.Logger, sinks ...Publisher) *Fanout {
	if log == nil {
		log = logger.NewDefault("notify")
	}
	f := &Fanout{log: log}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Publish delivers to all sinks, best effort.
func (f *Fanout) Publish(ctx context.Context, e Event) error {
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, e); err != nil {
			f.log.WithError(err).WithField("event", e.Name).Warn("event sink failed")
		}
	}
	return nil
}
