package rendering

import (
	"context"
	"errors"
	"factoriotech/domain"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultInterval is the pause between two lookups of a missing rendering
	DefaultInterval = 2 * time.Second
	// DefaultTimeout bounds the total time spent waiting for a rendering
	DefaultTimeout = 30 * time.Second
)

// Poller waits for renderings that the renderer has not produced yet.
// It only reads from its Store and holds no state between calls, so a
// single Poller serves any number of concurrent requests.
type Poller struct {
	store    Store
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

// NewPoller creates a Poller. Non-positive durations fall back to
// DefaultInterval and DefaultTimeout.
func NewPoller(store Store, interval time.Duration, timeout time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Poller{
		store:    store,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Interval is the fixed pause between attempts
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Timeout is the bound on the time elapsed since the first attempt
func (p *Poller) Timeout() time.Duration {
	return p.timeout
}

// Load returns the rendering as soon as it exists in the store. A missing
// rendering is retried every interval until the timeout has elapsed, after
// which ErrNotFound is returned. Store failures end the poll at once with
// ErrBackendUnavailable; a cancelled ctx ends it with ctx.Err().
func (p *Poller) Load(ctx context.Context, hash domain.Hash, renderingType domain.RenderingType) ([]byte, error) {
	if hash.IsEmpty() {
		return nil, domain.ErrInvalidHash
	}

	if !renderingType.Valid() {
		return nil, domain.ErrInvalidRenderingType
	}

	started := time.Now()

	for attempt := 1; ; attempt++ {
		data, found, err := p.store.TryLoad(ctx, hash, renderingType)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}

			if !errors.Is(err, ErrBackendUnavailable) {
				err = fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
			}

			p.logger.Error(
				"Error loading rendering",
				zap.Stringer("type", renderingType),
				zap.Stringer("hash", hash),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)

			return nil, err
		}

		if found {
			if attempt > 1 {
				p.logger.Info(
					"Rendering became available",
					zap.Stringer("type", renderingType),
					zap.Stringer("hash", hash),
					zap.Int("attempt", attempt),
					zap.Duration("elapsed", time.Since(started)),
				)
			}

			return data, nil
		}

		p.logger.Warn(
			"Rendering not found; will retry",
			zap.Stringer("type", renderingType),
			zap.Stringer("hash", hash),
			zap.Int("attempt", attempt),
			zap.String("outcome", "missing"),
		)

		if err := p.wait(ctx); err != nil {
			return nil, err
		}

		if elapsed := time.Since(started); elapsed >= p.timeout {
			p.logger.Warn(
				"Rendering not found; giving up",
				zap.Stringer("type", renderingType),
				zap.Stringer("hash", hash),
				zap.Int("attempts", attempt),
				zap.Duration("elapsed", elapsed),
				zap.String("outcome", "timeout"),
			)

			return nil, ErrNotFound
		}
	}
}

func (p *Poller) wait(ctx context.Context) error {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
