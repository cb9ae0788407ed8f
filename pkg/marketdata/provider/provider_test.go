package provider

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockWriter is a simple in-memory MarketDataWriter.
type mockWriter struct {
	initializeErr     error
	writeErr          error
	writeErrAfterN    int // fail after N successful writes
	finalizeErr       error
	written           []types.Bar
	writeCallCount    int
	finalizeCallCount int
}

func (m *mockWriter) Initialize() error {
	return m.initializeErr
}

func (m *mockWriter) Write(bar types.Bar) error {
	m.writeCallCount++
	if m.writeErr != nil && m.writeCallCount > m.writeErrAfterN {
		return m.writeErr
	}

	m.written = append(m.written, bar)

	return nil
}

func (m *mockWriter) Finalize() (string, error) {
	m.finalizeCallCount++
	if m.finalizeErr != nil {
		return "", m.finalizeErr
	}

	return "stock_data.db", nil
}

func (m *mockWriter) Close() error {
	return nil
}

func (m *mockWriter) GetOutputPath() string {
	return "stock_data.db"
}

func TestNewMarketDataProvider(t *testing.T) {
	tests := []struct {
		name         string
		providerType ProviderType
		apiKey       string
		expectErr    bool
	}{
		{name: "binance without key", providerType: ProviderBinance, apiKey: "", expectErr: false},
		{name: "polygon with key", providerType: ProviderPolygon, apiKey: "key", expectErr: false},
		{name: "polygon without key", providerType: ProviderPolygon, apiKey: "", expectErr: true},
		{name: "unknown provider", providerType: ProviderType("yahoo"), apiKey: "", expectErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewMarketDataProvider(tc.providerType, tc.apiKey)
			if tc.expectErr {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidProvider))
				assert.Nil(t, p)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, p)
		})
	}
}

func TestDayOf(t *testing.T) {
	ny := time.FixedZone("EST", -5*60*60)

	midnightNY := time.Date(2024, 3, 15, 0, 0, 0, 0, ny)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), dayOf(midnightNY))
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), dayOf(time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)))
}
