package marketdata

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/rxtech-lab/argo-replay/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-replay/pkg/marketdata/writer"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	ProviderType  provider.ProviderType `validate:"required,oneof=polygon binance"`
	DataPath      string                `validate:"required"`
	PolygonApiKey string                `validate:"required_if=ProviderType polygon"`
}

// DownloadParams holds the parameters for a market data download request.
type DownloadParams struct {
	Ticker    string    `validate:"required"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required,gtefield=StartDate"`
	// Force downloads even if the store already holds bars for the range.
	Force bool
}

// DownloadResult describes a finished download.
type DownloadResult struct {
	Path    string
	Written int
	// Skipped is set when existing bars made the download unnecessary.
	Skipped bool
}

// Client downloads daily bars from a provider into the DuckDB store read by the replay.
type Client struct {
	provider   provider.Provider
	config     ClientConfig
	validate   *validator.Validate
	logger     *logger.Logger
	onProgress provider.OnDownloadProgress
}

// NewClient creates a new market data client with the given configuration.
func NewClient(config ClientConfig, log *logger.Logger, onProgress provider.OnDownloadProgress) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid market data client configuration", err)
	}

	marketProvider, err := provider.NewMarketDataProvider(config.ProviderType, config.PolygonApiKey)
	if err != nil {
		return nil, err
	}

	return newClient(config, marketProvider, validate, log, onProgress), nil
}

// NewClientWithProvider creates a client on top of an existing provider.
func NewClientWithProvider(config ClientConfig, marketProvider provider.Provider, log *logger.Logger, onProgress provider.OnDownloadProgress) *Client {
	return newClient(config, marketProvider, validator.New(), log, onProgress)
}

func newClient(config ClientConfig, marketProvider provider.Provider, validate *validator.Validate, log *logger.Logger, onProgress provider.OnDownloadProgress) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Client{
		provider:   marketProvider,
		config:     config,
		validate:   validate,
		logger:     log,
		onProgress: onProgress,
	}
}

// Download fetches daily bars for params.Ticker into the configured DuckDB file.
// The download is skipped when the file already holds bars for the ticker in range,
// unless params.Force is set.
func (c *Client) Download(ctx context.Context, params DownloadParams) (DownloadResult, error) {
	if err := c.validate.Struct(params); err != nil {
		return DownloadResult{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid download parameters", err)
	}

	ticker := strings.ToUpper(strings.TrimSpace(params.Ticker))
	result := DownloadResult{Path: c.config.DataPath, Written: 0, Skipped: false}
	log := c.logger.With(
		zap.String("ticker", ticker),
		zap.String("provider", string(c.config.ProviderType)),
		zap.String("path", c.config.DataPath),
	)

	if !params.Force {
		existing, err := writer.CountBars(c.config.DataPath, ticker, params.StartDate, params.EndDate)
		if err != nil {
			return result, err
		}

		if existing > 0 {
			log.Info("Bars already present, skipping download", zap.Int("bars", existing))

			result.Skipped = true

			return result, nil
		}
	}

	if dir := filepath.Dir(c.config.DataPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return result, errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to create %s", dir)
		}
	}

	duckdbWriter := writer.NewDuckDBWriter(c.config.DataPath)

	defer func() {
		if cerr := duckdbWriter.Close(); cerr != nil {
			log.Warn("Failed to close writer", zap.Error(cerr))
		}
	}()

	c.provider.ConfigWriter(duckdbWriter)

	log.Info("Downloading daily bars",
		zap.String("start", params.StartDate.Format(time.DateOnly)),
		zap.String("end", params.EndDate.Format(time.DateOnly)),
	)

	written, err := c.provider.Download(ctx, ticker, params.StartDate, params.EndDate, c.onProgress)
	result.Written = written

	if err != nil {
		return result, err
	}

	log.Info("Download finished", zap.Int("bars", written))

	return result, nil
}

// NewProgressBar returns a progress callback that renders a percentage bar to w.
func NewProgressBar(w io.Writer, description string) provider.OnDownloadProgress {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	return func(current float64, total float64, _ string) {
		if total <= 0 {
			return
		}

		percent := int(current / total * 100)
		_ = bar.Set(min(max(percent, 0), 100))

		if percent >= 100 {
			_ = bar.Finish()
		}
	}
}
