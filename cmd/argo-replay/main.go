package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rxtech-lab/argo-replay/internal/config"
	"github.com/rxtech-lab/argo-replay/internal/version"
	"github.com/rxtech-lab/argo-replay/pkg/marketdata"
	"github.com/rxtech-lab/argo-replay/pkg/marketdata/provider"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "argo-replay",
		Usage:   "Replay historical daily prices through trading strategies",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			runCommand(),
			downloadCommand(),
			schemaCommand(),
			versionCommand(),
		},
	}
}

func logLevelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn or error",
		Value: "warn",
	}
}

func dataFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "data",
		Aliases: []string{"d"},
		Usage:   "Price store: a .parquet, .csv or DuckDB file",
	}
}

func providerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "provider",
			Aliases: []string{"p"},
			Usage:   fmt.Sprintf("Data provider to use (%v)", marketdata.GetSupportedProviders()),
			Value:   string(provider.ProviderPolygon),
		},
		&cli.StringFlag{
			Name:    "polygon-api-key",
			Usage:   "Polygon.io API key",
			Sources: cli.EnvVars("POLYGON_API_KEY"),
		},
	}
}

func runCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Simulation config file (YAML)",
		},
		&cli.StringFlag{
			Name:    "symbol",
			Aliases: []string{"s"},
			Usage:   "Stock ticker symbol",
		},
		&cli.StringFlag{
			Name:  "start",
			Usage: "Start date in `YYYY-MM-DD` format",
		},
		&cli.StringFlag{
			Name:  "end",
			Usage: "End date in `YYYY-MM-DD` format. Defaults to today.",
		},
		dataFlag(),
		&cli.IntFlag{
			Name:  "history",
			Usage: "Years of history to replay when no start date is given",
		},
		&cli.StringFlag{
			Name:    "results",
			Aliases: []string{"r"},
			Usage:   "Folder to write reports.yaml and executions.parquet to",
		},
		&cli.BoolFlag{
			Name:  "show-history",
			Usage: "Print every transaction in the reports",
		},
		&cli.BoolFlag{
			Name:    "interactive",
			Aliases: []string{"i"},
			Usage:   "Confirm or change the symbol and dates in a prompt",
		},
		&cli.BoolFlag{
			Name:  "download",
			Usage: "Download missing daily bars into the DuckDB price store before replaying",
		},
		logLevelFlag(),
	}

	return &cli.Command{
		Name:   "run",
		Usage:  "Replay prices through the configured strategies and print their reports",
		Flags:  append(flags, providerFlags()...),
		Action: runAction,
	}
}

func downloadCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "symbol",
			Aliases:  []string{"s"},
			Usage:    "Stock ticker symbol",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "start",
			Usage: "Start date in `YYYY-MM-DD` format. Defaults to five years before the end date.",
		},
		&cli.StringFlag{
			Name:  "end",
			Usage: "End date in `YYYY-MM-DD` format. Defaults to today.",
		},
		&cli.StringFlag{
			Name:    "data",
			Aliases: []string{"d"},
			Usage:   "DuckDB file to write the bars to",
			Value:   config.DefaultDataPath,
		},
		&cli.BoolFlag{
			Name:  "force",
			Usage: "Download even if the store already holds bars for the range",
		},
		logLevelFlag(),
	}

	return &cli.Command{
		Name:   "download",
		Usage:  "Download historical daily bars into a DuckDB price store",
		Flags:  append(flags, providerFlags()...),
		Action: downloadAction,
	}
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON schema of the simulation config",
		Action: func(_ context.Context, cmd *cli.Command) error {
			schema, err := config.GenerateSchemaJSON()
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.Root().Writer, schema)

			return err
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the version and the config format version",
		Action: func(_ context.Context, cmd *cli.Command) error {
			_, err := fmt.Fprintf(cmd.Root().Writer, "argo-replay %s (config %s)\n", version.GetVersion(), version.ConfigVersion)

			return err
		},
	}
}
