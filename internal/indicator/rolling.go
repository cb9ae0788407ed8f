package indicator

import (
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

// Rolling keeps one shared window sized to the longest period and one running
// average per period. Each Update is O(number of periods).
type Rolling struct {
	window   *Window
	averages []*MovingAverage
	count    int
}

// NewRolling creates rolling statistics for the given periods.
func NewRolling(periods ...int) (*Rolling, error) {
	if len(periods) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidPeriod, "at least one period is required")
	}

	longest := 0
	averages := make([]*MovingAverage, 0, len(periods))

	for _, period := range periods {
		avg, err := NewMovingAverage(period)
		if err != nil {
			return nil, err
		}

		averages = append(averages, avg)
		longest = max(longest, period)
	}

	window, err := NewWindow(longest)
	if err != nil {
		return nil, err
	}

	return &Rolling{
		window:   window,
		averages: averages,
		count:    0,
	}, nil
}

// Update slides every average over price and then pushes it onto the shared window.
func (r *Rolling) Update(price decimal.Decimal) error {
	for _, avg := range r.averages {
		if err := avg.Slide(price, r.window); err != nil {
			return err
		}
	}

	r.window.Push(price)
	r.count++

	return nil
}

// Average returns the current value of the i-th average, in constructor order.
func (r *Rolling) Average(i int) decimal.Decimal {
	return r.averages[i].Value()
}

// Count returns the number of prices seen.
func (r *Rolling) Count() int {
	return r.count
}

// Window exposes the shared window for inspection.
func (r *Rolling) Window() *Window {
	return r.window
}
