// Command dbshell is the interactive terminal client: an ad-hoc query
// runner against a document or relational database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/dbshell/dbshell/internal/app"
	"github.com/dbshell/dbshell/internal/config"
	"github.com/dbshell/dbshell/internal/history"
)

func main() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		<-ch
	}()

	cliApp := newApp()
	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	cliApp := cli.NewApp()
	cliApp.Name = "dbshell"
	cliApp.Usage = "interactive terminal client for document and relational databases"
	cliApp.ArgsUsage = "DATABASE_URI"
	cliApp.Flags = []cli.Flag{
		&cli.BoolFlag{Name: "debug", Usage: "write a debug log to the config directory"},
		&cli.BoolFlag{Name: "disable-command-history", Usage: "skip appending new commands to the history file"},
	}
	cliApp.Action = run
	return cliApp
}

func run(c *cli.Context) error {
	uri := c.Args().First()
	if uri == "" {
		return errors.New("DATABASE_URI is required")
	}

	if c.Bool("debug") {
		logPath, err := config.DebugLogPath()
		if err != nil {
			return err
		}
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return errors.Wrapf(err, "failed to open debug log")
		}
		defer f.Close()
		zerolog.New(f).With().Timestamp().Logger().Info().Msg("dbshell starting")
	}

	disableHistory := c.Bool("disable-command-history")

	histPath, err := config.HistoryPath()
	if err != nil {
		return err
	}
	store, err := history.Open(histPath)
	if err != nil {
		return err
	}

	runErr := app.Run(c.Context, app.Options{
		ConnectURI:      uri,
		HistoryStore:    store,
		AppendToHistory: !disableHistory,
	})

	if store != nil {
		runErr = multierr.Append(runErr, store.Close())
	}
	return runErr
}
