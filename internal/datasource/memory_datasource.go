package datasource

import (
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-replay/internal/types"
)

// MemoryPriceSource serves a preloaded series. Points are sorted by date on construction.
type MemoryPriceSource struct {
	mu     sync.RWMutex
	points []types.PricePoint
}

// NewMemoryPriceSource creates a source over a copy of points.
func NewMemoryPriceSource(points []types.PricePoint) *MemoryPriceSource {
	sorted := slices.Clone(points)
	slices.SortStableFunc(sorted, func(a, b types.PricePoint) int {
		return a.Date.Compare(b.Date)
	})

	return &MemoryPriceSource{
		mu:     sync.RWMutex{},
		points: sorted,
	}
}

// Initialize implements PriceSource. The path is ignored.
func (m *MemoryPriceSource) Initialize(string) error {
	return nil
}

// ReadAll implements PriceSource.
func (m *MemoryPriceSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) iter.Seq2[types.PricePoint, error] {
	return func(yield func(types.PricePoint, error) bool) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		for _, point := range m.points {
			if !inRange(point.Date, start, end) {
				continue
			}

			if !yield(point, nil) {
				return
			}
		}
	}
}

// Count implements PriceSource.
func (m *MemoryPriceSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0

	for _, point := range m.points {
		if inRange(point.Date, start, end) {
			count++
		}
	}

	return count, nil
}

// Close implements PriceSource.
func (m *MemoryPriceSource) Close() error {
	return nil
}
