// Package engine serializes buy and sell intents from many strategies into one
// global execution order and applies them to the per-strategy accounts it owns.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/portfolio"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultLiquidationTimeout bounds how long Liquidate waits for its barrier.
const DefaultLiquidationTimeout = 5 * time.Second

// State is the lifecycle state of the engine. ShuttingDown is terminal.
type State int

const (
	StateRunning State = iota
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config configures an ExecutionEngine.
type Config struct {
	LiquidationTimeout time.Duration
}

// ExecutionListener is called on the worker goroutine after each applied intent.
// Listeners must not call back into Submit or Liquidate synchronously.
type ExecutionListener func(execution types.Execution)

// request is one queue entry. A request with a barrier carries no intent and only
// signals that everything queued before it has been applied.
type request struct {
	intent  types.OrderIntent
	reason  string
	barrier chan struct{}
}

// ExecutionEngine owns the intent queue, the worker draining it and the account registry.
// It is the only code path that mutates accounts after registration.
type ExecutionEngine struct {
	config Config
	log    *logger.Logger

	// mu guards the queue, the state, the listeners and the fatal error.
	mu        sync.Mutex
	cond      *sync.Cond
	queue     []request
	state     State
	fatal     error
	listeners []ExecutionListener

	// registryMu guards the account arena. The worker holds it only while applying.
	registryMu sync.RWMutex
	accounts   []*portfolio.Account
	sequence   uint64

	done chan struct{}
}

// NewExecutionEngine creates an engine in the Running state and starts its worker.
func NewExecutionEngine(config Config, log *logger.Logger) *ExecutionEngine {
	if config.LiquidationTimeout <= 0 {
		config.LiquidationTimeout = DefaultLiquidationTimeout
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	e := &ExecutionEngine{
		config:     config,
		log:        log.Named("engine"),
		mu:         sync.Mutex{},
		cond:       nil,
		queue:      nil,
		state:      StateRunning,
		fatal:      nil,
		listeners:  nil,
		registryMu: sync.RWMutex{},
		accounts:   nil,
		sequence:   0,
		done:       make(chan struct{}),
	}
	e.cond = sync.NewCond(&e.mu)

	go e.run()

	return e
}

// Register creates an account for a strategy and returns its handle.
func (e *ExecutionEngine) Register(name string, startingBalance decimal.Decimal) (types.StrategyID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRunning {
		return -1, errors.New(errors.ErrCodeEngineShutdown, "cannot register a strategy after shutdown")
	}

	if startingBalance.IsNegative() {
		return -1, errors.Newf(errors.ErrCodeInvalidConfiguration, "starting balance must not be negative, got %s", startingBalance)
	}

	e.registryMu.Lock()
	defer e.registryMu.Unlock()

	id := types.StrategyID(len(e.accounts))
	e.accounts = append(e.accounts, portfolio.NewAccount(name, startingBalance))

	e.log.Debug("Registered strategy",
		zap.String("name", name),
		zap.Int("id", int(id)),
		zap.String("starting_balance", startingBalance.String()),
	)

	return id, nil
}

// AddListener registers a listener for every subsequent execution.
func (e *ExecutionEngine) AddListener(listener ExecutionListener) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners = append(e.listeners, listener)
}

// Submit queues a one-share intent for the strategy. It never waits for execution.
func (e *ExecutionEngine) Submit(id types.StrategyID, side types.Side, price decimal.Decimal) error {
	intent := types.NewOrderIntent(id, side, price)
	if err := intent.Validate(); err != nil {
		return err
	}

	return e.enqueue(request{intent: intent, reason: types.ExecutionReasonStrategy, barrier: nil})
}

func (e *ExecutionEngine) enqueue(req request) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRunning {
		if e.fatal != nil {
			return errors.Wrap(errors.ErrCodeEngineShutdown, "engine stopped", e.fatal)
		}

		return errors.New(errors.ErrCodeEngineShutdown, "engine is shutting down")
	}

	if req.barrier == nil && !e.known(req.intent.StrategyID) {
		return errors.Newf(errors.ErrCodeUnknownStrategy, "unknown strategy id %d", req.intent.StrategyID)
	}

	e.queue = append(e.queue, req)
	e.cond.Signal()

	return nil
}

func (e *ExecutionEngine) known(id types.StrategyID) bool {
	e.registryMu.RLock()
	defer e.registryMu.RUnlock()

	return id >= 0 && int(id) < len(e.accounts)
}

// Shutdown stops accepting intents, drains everything already queued and waits for
// the worker to exit. It is idempotent and returns the fatal error, if any.
func (e *ExecutionEngine) Shutdown() error {
	e.mu.Lock()
	if e.state == StateRunning {
		e.state = StateShuttingDown
		e.cond.Broadcast()
	}
	e.mu.Unlock()

	<-e.done

	return e.Err()
}

// Err returns the fatal error that stopped the worker, if any.
func (e *ExecutionEngine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.fatal
}

// State returns the current lifecycle state.
func (e *ExecutionEngine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// Pending returns the number of queued requests not yet taken by the worker.
func (e *ExecutionEngine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.queue)
}

// Done is closed once the worker has exited.
func (e *ExecutionEngine) Done() <-chan struct{} {
	return e.done
}

// Flush waits until everything queued before the call has been applied.
func (e *ExecutionEngine) Flush(ctx context.Context) error {
	barrier := make(chan struct{})
	if err := e.enqueue(request{intent: types.OrderIntent{}, reason: "", barrier: barrier}); err != nil {
		return err
	}

	return e.await(ctx, barrier)
}

func (e *ExecutionEngine) await(ctx context.Context, barrier <-chan struct{}) error {
	select {
	case <-barrier:
		return nil
	case <-e.done:
		// The worker may have applied the barrier right before exiting.
		select {
		case <-barrier:
			return nil
		default:
		}

		if err := e.Err(); err != nil {
			return err
		}

		return errors.New(errors.ErrCodeEngineShutdown, "engine stopped before the barrier was reached")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the worker loop. The queue lock is released while a request is applied so
// strategies can keep submitting.
func (e *ExecutionEngine) run() {
	defer close(e.done)

	e.mu.Lock()
	defer e.mu.Unlock()

	for {
		for len(e.queue) == 0 && e.state == StateRunning {
			e.cond.Wait()
		}

		if len(e.queue) == 0 {
			return
		}

		req := e.queue[0]
		e.queue[0] = request{}
		e.queue = e.queue[1:]
		listeners := e.listeners

		e.mu.Unlock()
		err := e.apply(req, listeners)
		e.mu.Lock()

		if err != nil {
			e.fatal = err
			e.state = StateShuttingDown
			e.log.Error("Execution engine stopped", zap.Error(err), zap.Int("dropped", len(e.queue)))

			return
		}
	}
}

// apply executes one request against its account. Refusals are recorded and logged.
// Any other failure is an invariant violation and is returned.
func (e *ExecutionEngine) apply(req request, listeners []ExecutionListener) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrCodeEngineInvariantViolation, "panic while applying intent %s: %v", req.intent.ID, r)
		}
	}()

	if req.barrier != nil {
		close(req.barrier)

		return nil
	}

	execution, err := e.execute(req)
	if err != nil {
		return err
	}

	for _, listener := range listeners {
		listener(execution)
	}

	return nil
}

func (e *ExecutionEngine) execute(req request) (types.Execution, error) {
	e.registryMu.Lock()
	defer e.registryMu.Unlock()

	intent := req.intent
	if intent.StrategyID < 0 || int(intent.StrategyID) >= len(e.accounts) {
		return types.Execution{}, errors.Newf(errors.ErrCodeEngineInvariantViolation,
			"intent %s targets strategy %d missing from the registry", intent.ID, intent.StrategyID)
	}

	account := e.accounts[intent.StrategyID]

	var applyErr error

	switch intent.Side {
	case types.SideBuy:
		applyErr = account.Buy(intent.Price)
	case types.SideSell:
		applyErr = account.Sell(intent.Price)
	default:
		return types.Execution{}, errors.Newf(errors.ErrCodeEngineInvariantViolation, "intent %s has unknown side %q", intent.ID, intent.Side)
	}

	e.sequence++
	execution := types.Execution{
		Sequence:      e.sequence,
		IntentID:      intent.ID,
		StrategyID:    intent.StrategyID,
		StrategyName:  account.Name(),
		Side:          intent.Side,
		Price:         intent.Price,
		Quantity:      portfolio.SharesPerOrder,
		Status:        types.ExecutionStatusFilled,
		Reason:        req.reason,
		BalanceAfter:  account.Balance(),
		QuantityAfter: account.Quantity(),
	}

	switch {
	case applyErr == nil:
		account.Portfolio().MarkToMarket(intent.Price)
	case errors.IsRefusal(applyErr):
		execution.Status = types.ExecutionStatusRefused
		execution.Quantity = 0

		if errors.HasCode(applyErr, errors.ErrCodeInsufficientFunds) {
			execution.Reason = types.ExecutionReasonInsufficientFunds
		} else {
			execution.Reason = types.ExecutionReasonInsufficientShares
		}

		e.log.Debug("Intent refused",
			zap.String("strategy", account.Name()),
			zap.Stringer("side", intent.Side),
			zap.String("price", intent.Price.String()),
			zap.Error(applyErr),
		)
	default:
		return types.Execution{}, errors.Wrapf(errors.ErrCodeEngineInvariantViolation, applyErr,
			"applying intent %s for %s", intent.ID, account.Name())
	}

	return execution, nil
}
