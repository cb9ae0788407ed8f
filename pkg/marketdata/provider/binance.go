package provider

import (
	"context"
	"fmt"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/rxtech-lab/argo-replay/pkg/marketdata/writer"
)

const (
	binanceDailyInterval = "1d"
	// binancePageLimit is the largest page the klines endpoint serves.
	binancePageLimit = 1000
)

// BinanceAPIClient fetches one page of klines. It is satisfied by the Binance REST client
// through binanceAPIAdapter and replaced in tests.
type BinanceAPIClient interface {
	Klines(ctx context.Context, symbol string, interval string, startTime int64, endTime int64, limit int) ([]*binance.Kline, error)
}

type binanceAPIAdapter struct {
	client *binance.Client
}

func (a *binanceAPIAdapter) Klines(ctx context.Context, symbol string, interval string, startTime int64, endTime int64, limit int) ([]*binance.Kline, error) {
	return a.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		StartTime(startTime).
		EndTime(endTime).
		Limit(limit).
		Do(ctx)
}

type BinanceClient struct {
	apiClient BinanceAPIClient
	writer    writer.MarketDataWriter
}

// NewBinanceClient creates a client for the public market data API, which needs no key.
func NewBinanceClient() *BinanceClient {
	return NewBinanceClientWithAPI(&binanceAPIAdapter{client: binance.NewClient("", "")})
}

// NewBinanceClientWithAPI creates a BinanceClient on top of an existing API client.
func NewBinanceClientWithAPI(apiClient BinanceAPIClient) *BinanceClient {
	return &BinanceClient{
		apiClient: apiClient,
		writer:    nil,
	}
}

func (c *BinanceClient) ConfigWriter(w writer.MarketDataWriter) {
	c.writer = w
}

// Download implements Provider using daily klines, paging on the close time of the
// last kline until a short page or the end date is reached.
func (c *BinanceClient) Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, onProgress OnDownloadProgress) (int, error) {
	if c.writer == nil {
		return 0, errors.New(errors.ErrCodeMarketDataWriteFailed, "no writer configured for BinanceClient")
	}

	if err := c.writer.Initialize(); err != nil {
		return 0, err
	}

	startMillis := startDate.UnixMilli()
	endMillis := endDate.UnixMilli()
	message := fmt.Sprintf("Downloading %s klines from Binance", ticker)
	current := startMillis
	written := 0

	for {
		if err := ctx.Err(); err != nil {
			return written, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "download cancelled", err)
		}

		klines, err := c.apiClient.Klines(ctx, ticker, binanceDailyInterval, current, endMillis, binancePageLimit)
		if err != nil {
			return written, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch klines for %s", ticker)
		}

		n, err := c.writeKlines(ticker, klines)
		written += n

		if err != nil {
			return written, err
		}

		report(onProgress, float64(current-startMillis), float64(endMillis-startMillis), message)

		if len(klines) < binancePageLimit {
			break
		}

		current = klines[len(klines)-1].CloseTime + 1
		if current >= endMillis {
			break
		}
	}

	if _, err := c.writer.Finalize(); err != nil {
		return written, err
	}

	report(onProgress, float64(endMillis-startMillis), float64(endMillis-startMillis), message)

	return written, nil
}

func (c *BinanceClient) writeKlines(ticker string, klines []*binance.Kline) (int, error) {
	for i, k := range klines {
		bar, err := klineToBar(ticker, k)
		if err != nil {
			return i, err
		}

		if err := c.writer.Write(bar); err != nil {
			return i, err
		}
	}

	return len(klines), nil
}

func klineToBar(ticker string, k *binance.Kline) (types.Bar, error) {
	values := make([]decimal.Decimal, 5)

	for i, raw := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return types.Bar{}, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "malformed kline value %q", raw)
		}

		values[i] = v
	}

	return types.Bar{
		Symbol: ticker,
		Date:   dayOf(time.UnixMilli(k.OpenTime)),
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}
