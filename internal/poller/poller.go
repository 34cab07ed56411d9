// Package poller retries authority lookups until one succeeds or the
// attempt budget runs out. It exists to survive transient authority
// unavailability, not to wait for a terminal certificate status: the
// first successful fetch wins regardless of what status it reports.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"

	"certsync/internal/models"
)

// Getter fetches the current authority record for an id
type Getter interface {
	Get(ctx context.Context, id string) (*models.Record, error)
}

// ExhaustedError reports a poll whose whole attempt budget failed.
// It wraps the error from the last attempt.
type ExhaustedError struct {
	ID       string
	Attempts int
	LastErr  error
}

// Error implements the error interface
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("polling certificate %s: %d attempts exhausted: %v", e.ID, e.Attempts, e.LastErr)
}

// Unwrap returns the error from the last attempt
func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}

// IsExhausted reports whether err is a poll exhaustion
func IsExhausted(err error) bool {
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}

// Poller repeatedly fetches an authority record with a fixed delay
// between attempts. The delay is deliberately flat: no exponential
// growth, no jitter.
type Poller struct {
	client   Getter
	attempts int
	delay    time.Duration
	clock    clock.Clock
	log      *slog.Logger
}

// New creates a new poller
func New(client Getter, attempts int, delay time.Duration, clk clock.Clock, log *slog.Logger) *Poller {
	return &Poller{
		client:   client,
		attempts: attempts,
		delay:    delay,
		clock:    clk,
		log:      log,
	}
}

// Poll fetches the record for id, retrying failed fetches until the
// attempt budget is spent. Cancelling ctx stops the retry loop between
// attempts.
func (p *Poller) Poll(ctx context.Context, id string) (*models.Record, error) {
	var rec *models.Record

	err := retry.Call(retry.CallArgs{
		Func: func() error {
			fetched, err := p.client.Get(ctx, id)
			if err != nil {
				return err
			}
			rec = fetched
			return nil
		},
		NotifyFunc: func(lastError error, attempt int) {
			p.log.Warn("authority fetch failed",
				"id", id,
				"attempt", attempt,
				"error", lastError,
			)
		},
		Attempts: p.attempts,
		Delay:    p.delay,
		Clock:    p.clock,
		Stop:     ctx.Done(),
	})

	switch {
	case err == nil:
		return rec, nil
	case retry.IsAttemptsExceeded(err):
		return nil, &ExhaustedError{ID: id, Attempts: p.attempts, LastErr: retry.LastError(err)}
	case retry.IsRetryStopped(err):
		return nil, ctx.Err()
	default:
		return nil, err
	}
}
