package strategy

import (
	"github.com/rxtech-lab/argo-replay/internal/indicator"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

const DefaultMeanReversionWindow = 50

// MeanReversion buys when the price drops to or below its moving average and sells when
// it rises above it. Only a change of side produces an intent.
type MeanReversion struct {
	base
	rolling    *indicator.Rolling
	window     int
	prevSignal int
	hasPrev    bool
}

// NewMeanReversion creates a mean-reversion strategy over the given window.
func NewMeanReversion(name string, id types.StrategyID, submitter Submitter, window int) (*MeanReversion, error) {
	if window <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "window must be positive, got %d", window)
	}

	rolling, err := indicator.NewRolling(window)
	if err != nil {
		return nil, err
	}

	return &MeanReversion{
		base:       newBase(name, id, submitter),
		rolling:    rolling,
		window:     window,
		prevSignal: 0,
		hasPrev:    false,
	}, nil
}

func (s *MeanReversion) Notify(price decimal.Decimal) error {
	if err := s.rolling.Update(price); err != nil {
		return err
	}

	// -1 above the average, 1 at or below it.
	current := 1
	if price.Sub(s.rolling.Average(0)).IsPositive() {
		current = -1
	}

	decision := signalNone

	if s.rolling.Count() >= s.window && s.hasPrev && current != s.prevSignal {
		if current == 1 {
			decision = signalBuy
		} else {
			decision = signalSell
		}
	}

	s.prevSignal = current
	s.hasPrev = true

	return s.finish(decision, price)
}

// Average returns the current moving average.
func (s *MeanReversion) Average() decimal.Decimal {
	return s.rolling.Average(0)
}
