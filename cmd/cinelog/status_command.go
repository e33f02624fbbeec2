package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cinelog/internal/staging"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize staging and catalog state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(cmd.Context(), func(env *environment) error {
				out := cmd.OutOrStdout()

				rows := make([][]string, 0, len(staging.AllSourceKinds()))
				for _, kind := range staging.AllSourceKinds() {
					stats, err := env.staging.Stats(cmd.Context(), kind)
					if err != nil {
						return err
					}
					total := 0
					for _, count := range stats {
						total += count
					}
					rows = append(rows, []string{
						string(kind),
						fmt.Sprintf("%d", total),
						fmt.Sprintf("%d", stats[staging.StatusPending]),
						fmt.Sprintf("%d", stats[staging.StatusApplied]),
						fmt.Sprintf("%d", stats[staging.StatusAmbiguous]),
						fmt.Sprintf("%d", stats[staging.StatusNotFound]),
						fmt.Sprintf("%d", stats[staging.StatusError]),
					})
				}
				table := renderTable([]tableColumn{
					{name: "Source"},
					{name: "Total", right: true},
					{name: "Pending", right: true},
					{name: "Applied", right: true},
					{name: "Ambiguous", right: true},
					{name: "Not Found", right: true},
					{name: "Error", right: true},
				}, rows)
				fmt.Fprintln(out, table)

				count, err := env.catalog.CountFilms(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Catalog: %d films\n", count)
				return nil
			})
		},
	}
}
