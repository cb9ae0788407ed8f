// Package backtest replays a historical price series through a set of strategies and
// orchestrates a complete simulation run.
package backtest

import (
	"context"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-replay/internal/datasource"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/strategy"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"go.uber.org/zap"
)

// Lifecycle callback types for the replay.
// Callbacks with an error return abort the replay when they return an error.

// OnReplayStartCallback is called once the number of points to replay is known.
type OnReplayStartCallback func(total int) error

// OnTickCallback is called after every strategy has been notified of a point.
type OnTickCallback func(current int, total int, point types.PricePoint) error

// OnStrategyErrorCallback is called when a strategy fails on a tick. The replay continues
// unless the engine behind the strategy has stopped.
type OnStrategyErrorCallback func(name string, point types.PricePoint, err error)

// OnReplayEndCallback is called when the replay finishes (always called via defer).
type OnReplayEndCallback func(ticks int, err error)

// LifecycleCallbacks holds the replay callbacks. Nil fields are not invoked.
type LifecycleCallbacks struct {
	OnReplayStart   *OnReplayStartCallback
	OnTick          *OnTickCallback
	OnStrategyError *OnStrategyErrorCallback
	OnReplayEnd     *OnReplayEndCallback
}

// MarketReplayer feeds each point of a price source to every strategy, in registration
// order, before moving to the next point. It runs at most once.
type MarketReplayer struct {
	source datasource.PriceSource
	start  optional.Option[time.Time]
	end    optional.Option[time.Time]
	logger *logger.Logger

	mu         sync.Mutex
	strategies []strategy.Strategy
	started    bool
	ticks      int
	last       optional.Option[types.PricePoint]
}

// NewMarketReplayer creates a replayer over the source, bounded by the optional dates.
func NewMarketReplayer(source datasource.PriceSource, start, end optional.Option[time.Time], log *logger.Logger) *MarketReplayer {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &MarketReplayer{
		source:     source,
		start:      start,
		end:        end,
		logger:     log.Named("replayer"),
		mu:         sync.Mutex{},
		strategies: nil,
		started:    false,
		ticks:      0,
		last:       optional.None[types.PricePoint](),
	}
}

// AddStrategy registers a strategy. It fails once Run has started.
func (r *MarketReplayer) AddStrategy(s strategy.Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return errors.Newf(errors.ErrCodeReplayAlreadyStarted, "cannot add strategy %s after the replay started", s.Name())
	}

	r.strategies = append(r.strategies, s)

	return nil
}

// Strategies returns the registered strategies in registration order.
func (r *MarketReplayer) Strategies() []strategy.Strategy {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]strategy.Strategy, len(r.strategies))
	copy(out, r.strategies)

	return out
}

// Ticks returns the number of points replayed so far.
func (r *MarketReplayer) Ticks() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.ticks
}

// LastPoint returns the most recently replayed point.
func (r *MarketReplayer) LastPoint() optional.Option[types.PricePoint] {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.last
}

// Run replays the source exactly once, front to back, and blocks until it is exhausted,
// the context is cancelled or a callback aborts. Strategy errors are logged and skipped,
// except those showing the engine has stopped, which end the replay.
func (r *MarketReplayer) Run(ctx context.Context, callbacks LifecycleCallbacks) (err error) {
	strategies, err := r.begin()
	if err != nil {
		return err
	}

	defer func() {
		if callbacks.OnReplayEnd != nil {
			(*callbacks.OnReplayEnd)(r.Ticks(), err)
		}
	}()

	total, err := r.source.Count(r.start, r.end)
	if err != nil {
		return wrapSourceError(err, "failed to count prices")
	}

	if total == 0 {
		return errors.New(errors.ErrCodeNoDataFound, "no prices found for the requested range")
	}

	r.logger.Info("Replay started", zap.Int("points", total), zap.Int("strategies", len(strategies)))

	if callbacks.OnReplayStart != nil {
		if err := (*callbacks.OnReplayStart)(total); err != nil {
			return err
		}
	}

	current := 0

	for point, readErr := range r.source.ReadAll(r.start, r.end) {
		if readErr != nil {
			return wrapSourceError(readErr, "failed to read prices")
		}

		if err := ctx.Err(); err != nil {
			r.logger.Info("Replay cancelled", zap.Int("ticks", current))

			return err
		}

		if !point.IsValid() {
			r.logger.Warn("Skipping invalid price", zap.String("date", point.DateString()), zap.String("close", point.Close.String()))

			continue
		}

		for _, s := range strategies {
			if notifyErr := s.Notify(point.Close); notifyErr != nil {
				if aborts(notifyErr) {
					r.logger.Error("Replay aborted",
						zap.String("strategy", s.Name()),
						zap.String("date", point.DateString()),
						zap.Error(notifyErr),
					)

					return notifyErr
				}

				r.logger.Warn("Strategy failed on tick",
					zap.String("strategy", s.Name()),
					zap.String("date", point.DateString()),
					zap.Error(notifyErr),
				)

				if callbacks.OnStrategyError != nil {
					(*callbacks.OnStrategyError)(s.Name(), point, notifyErr)
				}
			}
		}

		current++
		r.advance(point)

		if callbacks.OnTick != nil {
			if err := (*callbacks.OnTick)(current, total, point); err != nil {
				return err
			}
		}
	}

	r.logger.Info("Replay finished", zap.Int("ticks", current))

	return nil
}

func (r *MarketReplayer) begin() ([]strategy.Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil, errors.New(errors.ErrCodeReplayAlreadyStarted, "replay already started")
	}

	if len(r.strategies) == 0 {
		return nil, errors.New(errors.ErrCodeReplayNoStrategies, "no strategies registered")
	}

	r.started = true

	return r.strategies, nil
}

func (r *MarketReplayer) advance(point types.PricePoint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ticks++
	r.last = optional.Some(point)
}

// aborts reports whether a strategy error means the engine can no longer execute.
func aborts(err error) bool {
	return errors.IsFatal(err) || errors.HasCode(err, errors.ErrCodeEngineShutdown)
}

func wrapSourceError(err error, message string) error {
	if errors.GetCode(err) != errors.ErrCodeUnknown {
		return err
	}

	return errors.Wrap(errors.ErrCodeQueryFailed, message, err)
}
