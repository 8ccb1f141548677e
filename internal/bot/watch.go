// internal/bot/watch.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/aave-liquidator/internal/domain"
	"github.com/rovshanmuradov/aave-liquidator/internal/events"
)

const defaultRetryInterval = time.Second

// CandidateSource starts a self-refreshing candidate chain.
type CandidateSource interface {
	GetCandidates(ctx context.Context) ([]domain.Candidate, error)
}

// Subscriber is the part of the event bus the watcher listens on.
type Subscriber interface {
	Subscribe(eventType events.EventType, handler events.Handler) events.Subscription
}

// Watcher keeps the follow-up chain alive. The chain stops on the first failed
// follow-up; the watcher restarts it with exponential backoff. Retrying is
// caller policy, the pipeline itself never retries.
type Watcher struct {
	source        CandidateSource
	events        Subscriber
	retries       int
	retryInterval time.Duration
	logger        *zap.Logger
}

func NewWatcher(source CandidateSource, sub Subscriber, retries int, logger *zap.Logger) *Watcher {
	return &Watcher{
		source:        source,
		events:        sub,
		retries:       retries,
		retryInterval: defaultRetryInterval,
		logger:        logger.Named("watcher"),
	}
}

// Run blocks until ctx is cancelled or the chain cannot be restarted.
func (w *Watcher) Run(ctx context.Context) error {
	restart := make(chan struct{}, 1)
	sub := w.events.Subscribe(events.CycleFailed, events.HandlerFunc(func(_ context.Context, e events.Event) error {
		failed, ok := e.(events.ErrorEvent)
		if !ok || failed.Trigger != events.TriggerFollowUp {
			return nil
		}
		select {
		case restart <- struct{}{}:
		default:
		}
		return nil
	}))
	defer sub.Unsubscribe()

	if err := w.start(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-restart:
			w.logger.Warn("Follow-up chain stopped, restarting")
			if err := w.start(ctx); err != nil {
				return err
			}
		}
	}
}

func (w *Watcher) start(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = w.retryInterval
	policy.MaxInterval = w.retryInterval * 10

	notify := func(err error, d time.Duration) {
		w.logger.Info("Повтор попытки после ошибки", zap.Error(err), zap.Duration("backoff", d))
	}

	operation := func() ([]domain.Candidate, error) {
		return w.source.GetCandidates(ctx)
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(w.retries)+1),
		backoff.WithNotify(notify))
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("start candidate chain: %w", err)
	}
	return nil
}
