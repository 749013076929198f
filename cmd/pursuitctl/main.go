package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ttacon/chalk"
	"github.com/urfave/cli/v3"

	"github.com/triathematician/blaisemath-sub005/internal/storage"
	"github.com/triathematician/blaisemath-sub005/pkg/pursuit"
)

func main() {
	if err := run(context.Background(), os.Args, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, chalk.Red.Color(err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	return newApp(stdout, stderr).Run(ctx, args)
}

func newApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "pursuitctl",
		Usage:     "run pursuit-evasion scenarios and inspect their results",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "store", Value: storage.KindMemory, Usage: "store backend: memory|sqlite"},
			&cli.StringFlag{Name: "db-path", Value: "pursuit.db", Usage: "sqlite database path"},
			&cli.StringFlag{Name: "reports-dir", Value: "reports", Usage: "directory for batch reports"},
			&cli.StringFlag{Name: "exports-dir", Value: "exports", Usage: "default export directory"},
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "log level: debug|info|warn|error"},
		},
		Commands: []*cli.Command{
			runCommand(),
			batchCommand(),
			batchesCommand(),
			runsCommand(),
			showCommand(),
			exportCommand(),
		},
	}
}

func openClient(cmd *cli.Command) (*pursuit.Client, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(cmd.Root().ErrWriter, &slog.HandlerOptions{Level: level}))

	return pursuit.New(pursuit.Options{
		StoreKind:  cmd.String("store"),
		DBPath:     cmd.String("db-path"),
		ReportsDir: cmd.String("reports-dir"),
		ExportsDir: cmd.String("exports-dir"),
		Logger:     logger,
	})
}
