package indicator

import (
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

// MovingAverage is an incremental simple moving average.
// It keeps a running sum instead of recomputing over the window on every tick.
type MovingAverage struct {
	period int
	sum    decimal.Decimal
	count  int
}

// NewMovingAverage creates a moving average over the last period values.
func NewMovingAverage(period int) (*MovingAverage, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	return &MovingAverage{
		period: period,
		sum:    decimal.Zero,
		count:  0,
	}, nil
}

// Slide adds price to the running sum and, once the average's window is full,
// subtracts the value leaving it. It must be called before price is pushed onto window,
// and window must hold at least period values.
func (m *MovingAverage) Slide(price decimal.Decimal, window *Window) error {
	if m.count < m.period {
		m.sum = m.sum.Add(price)
		m.count++

		return nil
	}

	leaving, err := window.FromNewest(m.period - 1)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidPeriod, err, "window too small for period %d", m.period)
	}

	m.sum = m.sum.Add(price).Sub(leaving)
	m.count++

	return nil
}

// Value returns sum / min(count, period). Zero before the first value.
func (m *MovingAverage) Value() decimal.Decimal {
	n := min(m.count, m.period)
	if n == 0 {
		return decimal.Zero
	}

	return m.sum.Div(decimal.NewFromInt(int64(n)))
}

// Ready reports whether a full period has been observed.
func (m *MovingAverage) Ready() bool {
	return m.count >= m.period
}

func (m *MovingAverage) Period() int {
	return m.period
}

func (m *MovingAverage) Sum() decimal.Decimal {
	return m.sum
}

// Count returns the number of values observed so far.
func (m *MovingAverage) Count() int {
	return m.count
}
