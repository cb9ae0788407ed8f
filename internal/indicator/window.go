package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

// Window is a bounded FIFO of prices backed by a ring buffer.
// Pushing onto a full window evicts the oldest value.
type Window struct {
	values []decimal.Decimal
	head   int // next write slot; the oldest value when full
	size   int
}

// NewWindow creates a window holding at most capacity values.
func NewWindow(capacity int) (*Window, error) {
	if capacity <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "window capacity must be positive, got %d", capacity)
	}

	return &Window{
		values: make([]decimal.Decimal, capacity),
		head:   0,
		size:   0,
	}, nil
}

// Capacity returns the maximum number of values kept.
func (w *Window) Capacity() int {
	return len(w.values)
}

// Len returns the number of values currently held.
func (w *Window) Len() int {
	return w.size
}

// IsFull reports whether the next push evicts a value.
func (w *Window) IsFull() bool {
	return w.size == len(w.values)
}

// Push appends value and returns the evicted value, if any.
func (w *Window) Push(value decimal.Decimal) optional.Option[decimal.Decimal] {
	evicted := optional.None[decimal.Decimal]()
	if w.IsFull() {
		evicted = optional.Some(w.values[w.head])
	} else {
		w.size++
	}

	w.values[w.head] = value
	w.head = (w.head + 1) % len(w.values)

	return evicted
}

// FromNewest returns the i-th newest value; 0 is the most recent push.
func (w *Window) FromNewest(i int) (decimal.Decimal, error) {
	if i < 0 || i >= w.size {
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidPeriod, "window index %d out of range [0, %d)", i, w.size)
	}

	idx := (w.head - 1 - i + 2*len(w.values)) % len(w.values)

	return w.values[idx], nil
}

// Values returns a copy of the held values, oldest first.
func (w *Window) Values() []decimal.Decimal {
	out := make([]decimal.Decimal, 0, w.size)
	for i := w.size - 1; i >= 0; i-- {
		v, _ := w.FromNewest(i)
		out = append(out, v)
	}

	return out
}
