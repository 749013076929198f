package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/cheggaaa/pb"
	"github.com/dustin/go-humanize"
	"github.com/ttacon/chalk"
	"github.com/urfave/cli/v3"

	"github.com/triathematician/blaisemath-sub005/internal/model"
	"github.com/triathematician/blaisemath-sub005/internal/sim"
	"github.com/triathematician/blaisemath-sub005/pkg/pursuit"
)

func scenarioFlag() cli.Flag {
	return &cli.StringFlag{Name: "scenario", Aliases: []string{"s"}, Usage: "scenario file (yaml or json)", Required: true}
}

func seedOverride(cmd *cli.Command) *int64 {
	if !cmd.IsSet("seed") {
		return nil
	}
	seed := cmd.Int64("seed")
	return &seed
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "play one interactive run of a scenario",
		Flags: []cli.Flag{
			scenarioFlag(),
			&cli.Int64Flag{Name: "seed", Usage: "override the scenario seed"},
			&cli.IntFlag{Name: "steps", Usage: "override the scenario step count"},
			&cli.BoolFlag{Name: "events", Usage: "print every logged event"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Int("steps") < 0 {
				return errors.New("steps must be >= 0")
			}
			client, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Run(ctx, pursuit.RunRequest{
				ScenarioSource: pursuit.ScenarioSource{Path: cmd.String("scenario")},
				Seed:           seedOverride(cmd),
				Steps:          cmd.Int("steps"),
			})
			if err != nil {
				return err
			}

			out := cmd.Root().Writer
			res := summary.Result
			status := chalk.Yellow.Color("time limit")
			if res.Ended {
				status = chalk.Green.Color("ended")
			}
			fmt.Fprintf(out, "run %s %s after %d steps (t=%g) outcome=%s", summary.RunID, status, res.Steps, res.EndTime, res.Outcome)
			if res.Winner != "" {
				fmt.Fprintf(out, " winner=%s decided_by=%s", chalk.Bold.TextStyle(res.Winner), res.Decider)
			}
			fmt.Fprintln(out)
			printTeams(out, res.Teams)
			if cmd.Bool("events") {
				for _, e := range summary.Events {
					fmt.Fprintf(out, "  t=%-8g %-8s %s\n", e.Time, e.Kind, e.Message)
				}
			}
			return nil
		},
	}
}

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "run a scenario repeatedly and report valuation statistics",
		Flags: []cli.Flag{
			scenarioFlag(),
			&cli.Int64Flag{Name: "seed", Usage: "override the scenario seed"},
			&cli.IntFlag{Name: "trials", Aliases: []string{"n"}, Value: 10, Usage: "number of trials"},
			&cli.IntFlag{Name: "workers", Value: 4, Usage: "concurrent simulations"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "hide the progress bar"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			trials := cmd.Int("trials")
			if trials <= 0 {
				return errors.New("trials must be > 0")
			}
			client, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			req := pursuit.BatchRequest{
				ScenarioSource: pursuit.ScenarioSource{Path: cmd.String("scenario")},
				Seed:           seedOverride(cmd),
				Trials:         trials,
				Workers:        cmd.Int("workers"),
			}
			if !cmd.Bool("quiet") {
				bar := pb.New(trials)
				bar.SetWidth(80)
				bar.Output = cmd.Root().ErrWriter
				bar.Start()
				defer bar.Finish()
				req.Progress = func(done, _ int) {
					bar.Set(done)
				}
			}

			summary, err := client.Batch(ctx, req)
			if err != nil {
				return err
			}

			out := cmd.Root().Writer
			fmt.Fprintf(out, "batch %s: %s trials in %s\n",
				summary.BatchID,
				humanize.Comma(int64(summary.Result.Trials)),
				summary.Duration.Round(time.Millisecond),
			)
			printWins(out, summary.Wins, summary.Result.Trials)
			printValuations(out, valuationRows(summary.Result.Valuations))
			fmt.Fprintf(out, "artifacts: %s\n", summary.ArtifactsDir)
			return nil
		},
	}
}

func batchesCommand() *cli.Command {
	return &cli.Command{
		Name:  "batches",
		Usage: "list recorded batches, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "scenario", Usage: "only batches of this scenario name"},
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum number of batches"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			items, err := client.Batches(ctx, pursuit.BatchesRequest{
				Scenario: cmd.String("scenario"),
				Limit:    cmd.Int("limit"),
			})
			if err != nil {
				return err
			}
			out := cmd.Root().Writer
			if len(items) == 0 {
				fmt.Fprintln(out, "no batches recorded")
				return nil
			}
			for _, item := range items {
				when := item.CreatedAtUTC
				if at, err := time.Parse(time.RFC3339Nano, item.CreatedAtUTC); err == nil {
					when = humanize.Time(at)
				}
				fmt.Fprintf(out, "%s  %-12s trials=%-6s seed=%-6d top=%-10s coop=%.3f  %s\n",
					item.BatchID,
					item.Scenario,
					humanize.Comma(int64(item.Trials)),
					item.Seed,
					item.TopWinner,
					item.BestCoop,
					when,
				)
			}
			return nil
		},
	}
}

func runsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "list stored runs, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "scenario", Usage: "only runs of this scenario name"},
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum number of runs"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			runs, err := client.Runs(ctx, pursuit.RunsRequest{
				Scenario: cmd.String("scenario"),
				Limit:    cmd.Int("limit"),
			})
			if err != nil {
				return err
			}
			out := cmd.Root().Writer
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs stored")
				return nil
			}
			for _, run := range runs {
				fmt.Fprintf(out, "%s  %-12s seed=%-6d steps=%-6s outcome=%s winner=%s\n",
					run.ID,
					run.Scenario,
					run.Seed,
					humanize.Comma(int64(run.Steps)),
					run.Outcome,
					run.Winner,
				)
			}
			return nil
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "show one recorded batch",
		ArgsUsage: "[batch-id]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "latest", Usage: "show the newest batch"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			record, err := client.GetBatch(ctx, pursuit.ShowRequest{
				BatchID: cmd.Args().First(),
				Latest:  cmd.Bool("latest"),
			})
			if err != nil {
				return err
			}

			out := cmd.Root().Writer
			fmt.Fprintf(out, "batch %s scenario=%s seed=%d trials=%s workers=%d duration=%s\n",
				record.ID,
				record.Scenario,
				record.Seed,
				humanize.Comma(int64(record.Trials)),
				record.Workers,
				time.Duration(record.DurationMS)*time.Millisecond,
			)
			printWins(out, record.Wins, record.Trials)
			printValuations(out, record.Valuations)
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "copy the report artifacts of a batch",
		ArgsUsage: "[batch-id]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "latest", Usage: "export the newest batch"},
			&cli.StringFlag{Name: "out", Usage: "destination directory"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			exported, err := client.Export(ctx, pursuit.ExportRequest{
				BatchID: cmd.Args().First(),
				Latest:  cmd.Bool("latest"),
				OutDir:  cmd.String("out"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "exported batch %s to %s\n", exported.BatchID, exported.Directory)
			return nil
		},
	}
}

func printTeams(out io.Writer, teams []sim.TeamResult) {
	for _, t := range teams {
		fmt.Fprintf(out, "  %-12s active=%d/%d safe=%d", t.Name, t.Active, t.Start, t.Safe)
		names := make([]string, 0, len(t.CapturedBy))
		for name := range t.CapturedBy {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, " captured_by[%s]=%d", name, t.CapturedBy[name])
		}
		fmt.Fprintln(out)
	}
}

func printWins(out io.Writer, wins map[string]int, trials int) {
	names := make([]string, 0, len(wins))
	for name := range wins {
		names = append(names, name)
	}
	sort.Strings(names)
	decided := 0
	for _, name := range names {
		decided += wins[name]
		fmt.Fprintf(out, "  wins %-12s %d\n", name, wins[name])
	}
	if undecided := trials - decided; undecided > 0 {
		fmt.Fprintf(out, "  %s %d\n", chalk.Yellow.Color("undecided"), undecided)
	}
}

func valuationRows(vals []sim.ValuationResult) []model.ValuationRecord {
	out := make([]model.ValuationRecord, 0, len(vals))
	for _, v := range vals {
		out = append(out, model.ValuationRecord{
			Name:             v.Name,
			Cooperation:      v.Cooperation,
			FullSummary:      v.FullSummary,
			PartialSummary:   v.PartialSummary,
			CooperationValue: v.CooperationValue,
		})
	}
	return out
}

func printValuations(out io.Writer, vals []model.ValuationRecord) {
	for _, v := range vals {
		fmt.Fprintf(out, "  %-32s mean=%.4f std=%.4f min=%g max=%g\n",
			v.Name, v.FullSummary.Mean, v.FullSummary.Std, v.FullSummary.Min, v.FullSummary.Max)
		if !v.Cooperation {
			continue
		}
		coop := fmt.Sprintf("%+.4f", v.CooperationValue)
		if v.CooperationValue > 0 {
			coop = chalk.Green.Color(coop)
		} else if v.CooperationValue < 0 {
			coop = chalk.Red.Color(coop)
		}
		fmt.Fprintf(out, "  %-32s partial mean=%.4f cooperation=%s\n", "", v.PartialSummary.Mean, coop)
	}
}
