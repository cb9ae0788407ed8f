package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rxtech-lab/argo-replay/internal/config"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/rxtech-lab/argo-replay/pkg/marketdata"
	"github.com/rxtech-lab/argo-replay/pkg/marketdata/provider"
	"github.com/urfave/cli/v3"
)

// downloadRange resolves the optional start and end flags. The end defaults to today and
// the start to five years before the end.
func downloadRange(start, end string, now time.Time) (time.Time, time.Time, error) {
	endDate := config.Today(now)

	if end != "" {
		parsed, err := config.ParseDate(end)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}

		endDate = parsed
	}

	startDate := endDate.AddDate(-config.DefaultHistoryYears, 0, 0)

	if start != "" {
		parsed, err := config.ParseDate(start)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}

		startDate = parsed
	}

	if err := config.ValidateDateRange(startDate, endDate); err != nil {
		return time.Time{}, time.Time{}, err
	}

	return startDate, endDate, nil
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	start, end, err := downloadRange(cmd.String("start"), cmd.String("end"), time.Now())
	if err != nil {
		return err
	}

	log, err := logger.NewLoggerWithLevel(cmd.String("log-level"))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid log level", err)
	}
	defer log.Sync()

	symbol := cmd.String("symbol")

	client, err := marketdata.NewClient(marketdata.ClientConfig{
		ProviderType:  provider.ProviderType(cmd.String("provider")),
		DataPath:      cmd.String("data"),
		PolygonApiKey: cmd.String("polygon-api-key"),
	}, log.Named("marketdata"), marketdata.NewProgressBar(os.Stderr, "Downloading "+symbol))
	if err != nil {
		return err
	}

	result, err := client.Download(ctx, marketdata.DownloadParams{
		Ticker:    symbol,
		StartDate: start,
		EndDate:   end,
		Force:     cmd.Bool("force"),
	})
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	if result.Skipped {
		_, err = fmt.Fprintf(out, "%s already holds %s bars for the range, nothing downloaded\n", result.Path, symbol)

		return err
	}

	_, err = fmt.Fprintf(out, "Downloaded %d bars for %s into %s\n", result.Written, symbol, result.Path)

	return err
}
