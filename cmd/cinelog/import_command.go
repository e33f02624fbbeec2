package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cinelog/internal/ingest"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import <kind> <csv>",
		Short: "Load a source CSV export into staging",
		Long: "Load a CSV export into the staging table for the given source kind\n" +
			"(disc, nas, streaming, watchlist). Delimiter and BOM are detected\n" +
			"automatically; bundle titles are split into one row per film.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindArg(args[0])
			if err != nil {
				return err
			}
			file, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer file.Close()

			return ctx.withEnv(cmd.Context(), func(env *environment) error {
				importer := ingest.New(env.staging, env.logger)
				result, err := importer.Import(cmd.Context(), kind, file, replace)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d %s records (%d skipped, %d rejected)\n",
					result.Inserted, kind, result.Skipped, result.Rejected)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "Empty the staging table before importing")
	return cmd
}
