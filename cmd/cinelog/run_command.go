package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"cinelog/internal/staging"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var workers int
	var limit int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Match and merge every eligible staging record",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(cmd.Context(), func(env *environment) error {
				if workers > 0 {
					env.cfg.Run.Workers = workers
				}
				if limit > 0 {
					env.cfg.Run.BatchLimit = limit
				}

				client, err := env.tmdbClient()
				if err != nil {
					return err
				}
				runner := env.runner(env.matchingEngine(client))
				summary, err := runner.Run(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if summary.Processed == 0 {
					fmt.Fprintln(out, "Nothing to process")
					return nil
				}

				entries := make([][2]string, 0, len(summary.PerStatus))
				for _, status := range staging.AllStatuses() {
					if count := summary.PerStatus[status]; count > 0 {
						entries = append(entries, [2]string{string(status), fmt.Sprintf("%d", count)})
					}
				}
				fmt.Fprintln(out, renderCounts("Status", entries))

				if len(summary.PerErrorKind) > 0 {
					kinds := make([]string, 0, len(summary.PerErrorKind))
					for kind := range summary.PerErrorKind {
						kinds = append(kinds, kind)
					}
					sort.Strings(kinds)
					errEntries := make([][2]string, 0, len(kinds))
					for _, kind := range kinds {
						errEntries = append(errEntries, [2]string{kind, fmt.Sprintf("%d", summary.PerErrorKind[kind])})
					}
					fmt.Fprintln(out, renderCounts("Error Kind", errEntries))
				}

				fmt.Fprintf(out, "Run %s: %d records in %s\n", summary.RunID, summary.Processed, summary.Duration.Round(time.Millisecond))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "Override the worker pool size")
	cmd.Flags().IntVar(&limit, "limit", 0, "Cap eligible records per source kind")
	return cmd
}
