package engine

import (
	"github.com/rxtech-lab/argo-replay/internal/portfolio"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

// AccountSnapshot is a point-in-time copy of one account.
type AccountSnapshot struct {
	ID                 types.StrategyID
	Name               string
	Balance            decimal.Decimal
	StartingBalance    decimal.Decimal
	Quantity           int64
	CostBasis          decimal.Decimal
	MarketValue        decimal.Decimal
	UnrealizedGainLoss decimal.Decimal
	RealizedGainLoss   decimal.Decimal
	Lots               []portfolio.Lot
	History            []types.HistoryEntry
}

// Snapshot copies the account state under the registry lock.
func (e *ExecutionEngine) Snapshot(id types.StrategyID) (AccountSnapshot, error) {
	e.registryMu.RLock()
	defer e.registryMu.RUnlock()

	account, err := e.account(id)
	if err != nil {
		return AccountSnapshot{}, err
	}

	p := account.Portfolio()

	return AccountSnapshot{
		ID:                 id,
		Name:               account.Name(),
		Balance:            account.Balance(),
		StartingBalance:    account.StartingBalance(),
		Quantity:           p.Quantity(),
		CostBasis:          p.CostBasis(),
		MarketValue:        p.MarketValue(),
		UnrealizedGainLoss: p.UnrealizedGainLoss(),
		RealizedGainLoss:   p.RealizedGainLoss(),
		Lots:               p.Lots(),
		History:            p.History(),
	}, nil
}

// MarkToMarket revalues the strategy's holdings at price.
func (e *ExecutionEngine) MarkToMarket(id types.StrategyID, price decimal.Decimal) error {
	e.registryMu.Lock()
	defer e.registryMu.Unlock()

	account, err := e.account(id)
	if err != nil {
		return err
	}

	account.Portfolio().MarkToMarket(price)

	return nil
}

// Report summarizes the strategy's account over ticks replayed prices.
func (e *ExecutionEngine) Report(id types.StrategyID, label string, ticks int) (types.Report, error) {
	e.registryMu.RLock()
	defer e.registryMu.RUnlock()

	account, err := e.account(id)
	if err != nil {
		return types.Report{}, err
	}

	return account.Report(label, ticks), nil
}

// Strategies returns the registered ids in registration order.
func (e *ExecutionEngine) Strategies() []types.StrategyID {
	e.registryMu.RLock()
	defer e.registryMu.RUnlock()

	ids := make([]types.StrategyID, len(e.accounts))
	for i := range e.accounts {
		ids[i] = types.StrategyID(i)
	}

	return ids
}

func (e *ExecutionEngine) account(id types.StrategyID) (*portfolio.Account, error) {
	if id < 0 || int(id) >= len(e.accounts) {
		return nil, errors.Newf(errors.ErrCodeUnknownStrategy, "unknown strategy id %d", id)
	}

	return e.accounts[id], nil
}
