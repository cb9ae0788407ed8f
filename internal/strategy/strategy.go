// Package strategy holds the signal generators fed by the market replayer.
package strategy

import (
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/shopspring/decimal"
)

// Submitter accepts order intents. The execution engine implements it.
type Submitter interface {
	Submit(id types.StrategyID, side types.Side, price decimal.Decimal) error
}

// Strategy reacts to one closing price per tick and submits at most one intent per tick.
// A strategy owns its rolling state and is only called from the replay goroutine.
type Strategy interface {
	// Name is the label used in reports.
	Name() string
	ID() types.StrategyID
	// Notify updates the rolling state, evaluates the decision rule, submits at most
	// one intent and advances the tick counter. A submission error is returned after
	// the state has been updated.
	Notify(price decimal.Decimal) error
	Ticks() int
	LastPrice() decimal.Decimal
}

// signal is the decision taken on one tick.
type signal int

const (
	signalNone signal = iota
	signalBuy
	signalSell
)

// base carries what every strategy shares: identity, the submitter and the tick counter.
type base struct {
	name      string
	id        types.StrategyID
	submitter Submitter
	ticks     int
	lastPrice decimal.Decimal
}

func newBase(name string, id types.StrategyID, submitter Submitter) base {
	return base{
		name:      name,
		id:        id,
		submitter: submitter,
		ticks:     0,
		lastPrice: decimal.Zero,
	}
}

func (b *base) Name() string {
	return b.name
}

func (b *base) ID() types.StrategyID {
	return b.id
}

func (b *base) Ticks() int {
	return b.ticks
}

func (b *base) LastPrice() decimal.Decimal {
	return b.lastPrice
}

// finish submits the tick's decision and advances the counter even when the submission fails.
func (b *base) finish(decision signal, price decimal.Decimal) error {
	b.ticks++
	b.lastPrice = price

	switch decision {
	case signalBuy:
		return b.submitter.Submit(b.id, types.SideBuy, price)
	case signalSell:
		return b.submitter.Submit(b.id, types.SideSell, price)
	default:
		return nil
	}
}
