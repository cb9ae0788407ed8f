package strategy

import (
	"github.com/rxtech-lab/argo-replay/internal/indicator"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	DefaultShortWindow = 20
	DefaultLongWindow  = 50
)

// MovingAverageCrossover buys when the short average crosses above the long average
// and sells when it crosses below. Nothing is evaluated before the long window is full.
type MovingAverageCrossover struct {
	base
	rolling   *indicator.Rolling
	short     int
	long      int
	prevShort decimal.Decimal
	prevLong  decimal.Decimal
	hasPrev   bool
}

// NewMovingAverageCrossover creates a crossover strategy over the given windows.
func NewMovingAverageCrossover(name string, id types.StrategyID, submitter Submitter, short, long int) (*MovingAverageCrossover, error) {
	if short <= 0 || long <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "windows must be positive, got short=%d long=%d", short, long)
	}

	rolling, err := indicator.NewRolling(short, long)
	if err != nil {
		return nil, err
	}

	return &MovingAverageCrossover{
		base:      newBase(name, id, submitter),
		rolling:   rolling,
		short:     short,
		long:      long,
		prevShort: decimal.Zero,
		prevLong:  decimal.Zero,
		hasPrev:   false,
	}, nil
}

func (s *MovingAverageCrossover) Notify(price decimal.Decimal) error {
	if err := s.rolling.Update(price); err != nil {
		return err
	}

	curShort := s.rolling.Average(0)
	curLong := s.rolling.Average(1)
	decision := signalNone

	// The previous pair may come from a partially filled window.
	if s.rolling.Count() >= s.long && s.hasPrev {
		decision = crossover(s.prevShort, s.prevLong, curShort, curLong)
	}

	s.prevShort = curShort
	s.prevLong = curLong
	s.hasPrev = true

	return s.finish(decision, price)
}

// ShortAverage returns the current short moving average.
func (s *MovingAverageCrossover) ShortAverage() decimal.Decimal {
	return s.rolling.Average(0)
}

// LongAverage returns the current long moving average.
func (s *MovingAverageCrossover) LongAverage() decimal.Decimal {
	return s.rolling.Average(1)
}

// crossover detects an edge between two consecutive (short, long) pairs.
func crossover(prevShort, prevLong, curShort, curLong decimal.Decimal) signal {
	switch {
	case prevShort.LessThanOrEqual(prevLong) && curShort.GreaterThan(curLong):
		return signalBuy
	case prevShort.GreaterThanOrEqual(prevLong) && curShort.LessThan(curLong):
		return signalSell
	default:
		return signalNone
	}
}
