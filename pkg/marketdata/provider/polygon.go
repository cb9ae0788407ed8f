package provider

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/rxtech-lab/argo-replay/pkg/marketdata/writer"
)

// polygonPageLimit is the largest page the aggregates endpoint serves.
const polygonPageLimit = 50000

// PolygonAggsIterator is the subset of the Polygon aggregates iterator the client reads.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient lists aggregates. It is satisfied by the Polygon REST client through
// polygonAPIAdapter and replaced in tests.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
}

type polygonAPIAdapter struct {
	client *polygon.Client
}

func (a *polygonAPIAdapter) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return a.client.ListAggs(ctx, params, options...)
}

type PolygonClient struct {
	apiClient PolygonAPIClient
	writer    writer.MarketDataWriter
}

func NewPolygonClient(apiKey string) (*PolygonClient, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidProvider, "polygon provider requires an API key")
	}

	return NewPolygonClientWithAPI(&polygonAPIAdapter{client: polygon.New(apiKey)}), nil
}

// NewPolygonClientWithAPI creates a PolygonClient on top of an existing API client.
func NewPolygonClientWithAPI(apiClient PolygonAPIClient) *PolygonClient {
	return &PolygonClient{
		apiClient: apiClient,
		writer:    nil,
	}
}

func (c *PolygonClient) ConfigWriter(w writer.MarketDataWriter) {
	c.writer = w
}

// Download implements Provider using daily adjusted aggregates.
func (c *PolygonClient) Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, onProgress OnDownloadProgress) (int, error) {
	if c.writer == nil {
		return 0, errors.New(errors.ErrCodeMarketDataWriteFailed, "no writer configured for PolygonClient")
	}

	if err := c.writer.Initialize(); err != nil {
		return 0, err
	}

	totalDays := endDate.Sub(startDate).Hours()/24 + 1
	message := fmt.Sprintf("Downloading %s", ticker)

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(startDate),
		To:         models.Millis(endDate),
	}.WithAdjusted(true).WithOrder(models.Asc).WithLimit(polygonPageLimit)

	aggs := c.apiClient.ListAggs(ctx, params)
	written := 0

	for aggs.Next() {
		if err := ctx.Err(); err != nil {
			return written, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "download cancelled", err)
		}

		agg := aggs.Item()
		date := dayOf(time.Time(agg.Timestamp))

		err := c.writer.Write(types.Bar{
			Symbol: ticker,
			Date:   date,
			Open:   decimal.NewFromFloat(agg.Open),
			High:   decimal.NewFromFloat(agg.High),
			Low:    decimal.NewFromFloat(agg.Low),
			Close:  decimal.NewFromFloat(agg.Close),
			Volume: decimal.NewFromFloat(agg.Volume),
		})
		if err != nil {
			return written, err
		}

		written++

		report(onProgress, date.Sub(startDate).Hours()/24+1, totalDays, message)
	}

	if err := aggs.Err(); err != nil {
		return written, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to list polygon aggregates for %s", ticker)
	}

	if _, err := c.writer.Finalize(); err != nil {
		return written, err
	}

	report(onProgress, totalDays, totalDays, message)

	return written, nil
}
