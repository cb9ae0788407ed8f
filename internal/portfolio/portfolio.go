package portfolio

import (
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

// Lot is a block of shares bought at one price. Lots are consumed oldest first.
type Lot struct {
	Price    decimal.Decimal `yaml:"price" json:"price"`
	Quantity int64           `yaml:"quantity" json:"quantity"`
}

// Portfolio is a single-symbol ledger of lots with FIFO cost basis.
//
// Invariants:
//   - CostBasis == sum(lot.Price * lot.Quantity)
//   - Quantity == sum(lot.Quantity)
//   - Quantity and CostBasis are never negative
type Portfolio struct {
	lots               []Lot
	quantity           int64
	currentPrice       decimal.Decimal
	marketValue        decimal.Decimal
	costBasis          decimal.Decimal
	unrealizedGainLoss decimal.Decimal
	realizedGainLoss   decimal.Decimal
	history            []types.HistoryEntry
}

// NewPortfolio creates an empty portfolio.
func NewPortfolio() *Portfolio {
	return &Portfolio{
		lots:               nil,
		quantity:           0,
		currentPrice:       decimal.Zero,
		marketValue:        decimal.Zero,
		costBasis:          decimal.Zero,
		unrealizedGainLoss: decimal.Zero,
		realizedGainLoss:   decimal.Zero,
		history:            nil,
	}
}

// RecordBuy appends a new lot and a BUY history entry.
func (p *Portfolio) RecordBuy(price decimal.Decimal, quantity int64) error {
	if quantity <= 0 {
		return errors.Newf(errors.ErrCodeInvalidOrder, "buy quantity must be positive, got %d", quantity)
	}

	p.lots = append(p.lots, Lot{Price: price, Quantity: quantity})
	p.quantity += quantity
	p.costBasis = p.costBasis.Add(price.Mul(decimal.NewFromInt(quantity)))
	p.history = append(p.history, types.HistoryEntry{Action: types.SideBuy, Price: price, Quantity: quantity})
	p.MarkToMarket(price)

	return nil
}

// RecordSell removes quantity shares, consuming lots from the head.
// Cost basis drops by the consumed lots' purchase price, never the sale price.
// Returns the cost removed. Selling more than is owned is rejected and leaves state unchanged.
func (p *Portfolio) RecordSell(price decimal.Decimal, quantity int64) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidOrder, "sell quantity must be positive, got %d", quantity)
	}

	if quantity > p.quantity {
		return decimal.Zero, errors.Newf(errors.ErrCodeInsufficientShares, "cannot sell %d shares, only %d owned", quantity, p.quantity)
	}

	removed := decimal.Zero
	remaining := quantity

	for remaining > 0 {
		head := &p.lots[0]
		take := min(remaining, head.Quantity)
		removed = removed.Add(head.Price.Mul(decimal.NewFromInt(take)))

		head.Quantity -= take
		remaining -= take

		if head.Quantity == 0 {
			p.lots = p.lots[1:]
		}
	}

	p.quantity -= quantity
	p.costBasis = p.costBasis.Sub(removed)
	p.realizedGainLoss = p.realizedGainLoss.Add(price.Mul(decimal.NewFromInt(quantity)).Sub(removed))
	p.history = append(p.history, types.HistoryEntry{Action: types.SideSell, Price: price, Quantity: quantity})
	p.MarkToMarket(price)

	return removed, nil
}

// MarkToMarket recomputes market value and unrealized gain at currentPrice.
// Lots and cost basis are untouched.
func (p *Portfolio) MarkToMarket(currentPrice decimal.Decimal) {
	p.currentPrice = currentPrice
	p.marketValue = currentPrice.Mul(decimal.NewFromInt(p.quantity))
	p.unrealizedGainLoss = p.marketValue.Sub(p.costBasis)
}

func (p *Portfolio) Quantity() int64 {
	return p.quantity
}

func (p *Portfolio) CostBasis() decimal.Decimal {
	return p.costBasis
}

func (p *Portfolio) CurrentPrice() decimal.Decimal {
	return p.currentPrice
}

func (p *Portfolio) MarketValue() decimal.Decimal {
	return p.marketValue
}

func (p *Portfolio) UnrealizedGainLoss() decimal.Decimal {
	return p.unrealizedGainLoss
}

// RealizedGainLoss is the sum of sale proceeds minus the FIFO cost of the shares sold.
func (p *Portfolio) RealizedGainLoss() decimal.Decimal {
	return p.realizedGainLoss
}

// Lots returns a copy of the open lots, oldest first.
func (p *Portfolio) Lots() []Lot {
	out := make([]Lot, len(p.lots))
	copy(out, p.lots)

	return out
}

// History returns a copy of the transaction history in execution order.
func (p *Portfolio) History() []types.HistoryEntry {
	out := make([]types.HistoryEntry, len(p.history))
	copy(out, p.history)

	return out
}
