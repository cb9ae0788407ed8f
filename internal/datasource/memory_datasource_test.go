package datasource

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPriceSource(t *testing.T) {
	points := []types.PricePoint{
		{Symbol: "AAPL", Date: date("2024-01-03"), Close: decimal.NewFromInt(11)},
		{Symbol: "AAPL", Date: date("2024-01-02"), Close: decimal.NewFromInt(10)},
		{Symbol: "AAPL", Date: date("2024-01-04"), Close: decimal.NewFromInt(12)},
	}

	source := NewMemoryPriceSource(points)
	require.NoError(t, source.Initialize(""))

	t.Run("sorted by date", func(t *testing.T) {
		got, err := collect(source, optional.None[time.Time](), optional.None[time.Time]())
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "2024-01-02", got[0].DateString())
		assert.Equal(t, "2024-01-04", got[2].DateString())
	})

	t.Run("bounds", func(t *testing.T) {
		start := optional.Some(date("2024-01-03"))

		got, err := collect(source, start, optional.None[time.Time]())
		require.NoError(t, err)
		assert.Len(t, got, 2)

		count, err := source.Count(start, optional.Some(date("2024-01-03")))
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("input is not aliased", func(t *testing.T) {
		points[0].Close = decimal.NewFromInt(99)

		got, err := collect(source, optional.Some(date("2024-01-03")), optional.Some(date("2024-01-03")))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, decimal.NewFromInt(11).Equal(got[0].Close))
	})

	assert.NoError(t, source.Close())
}
