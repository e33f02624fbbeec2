package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cinelog/internal/catalog"
)

// topBilling bounds how many cast members get stored per film.
const topBilling = 10

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	enrichCmd := &cobra.Command{
		Use:   "enrich",
		Short: "Backfill catalog metadata from TMDB",
	}

	enrichCmd.AddCommand(newEnrichCreditsCommand(ctx))
	return enrichCmd
}

func newEnrichCreditsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Fetch director and cast credits for films missing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(cmd.Context(), func(env *environment) error {
				client, err := env.tmdbClient()
				if err != nil {
					return err
				}

				films, err := env.catalog.FilmsMissingCredits(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(films) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No films missing credits")
					return nil
				}

				enriched := 0
				for _, film := range films {
					if film.TMDBID == nil {
						continue
					}
					credits, err := client.GetMovieCredits(cmd.Context(), *film.TMDBID)
					if err != nil {
						return fmt.Errorf("credits for %q: %w", film.Title, err)
					}

					inputs := make([]catalog.CreditInput, 0, topBilling+2)
					for _, member := range credits.Crew {
						if member.Job == "Director" {
							inputs = append(inputs, catalog.CreditInput{
								TMDBPersonID: member.ID,
								Name:         member.Name,
								Department:   member.Department,
								Job:          member.Job,
							})
						}
					}
					for i, member := range credits.Cast {
						if i >= topBilling {
							break
						}
						order := member.Order
						inputs = append(inputs, catalog.CreditInput{
							TMDBPersonID: member.ID,
							Name:         member.Name,
							Department:   "Acting",
							Job:          "Actor",
							BillingOrder: &order,
						})
					}
					if len(inputs) == 0 {
						continue
					}
					if err := env.catalog.UpsertCredits(cmd.Context(), film.ID, inputs); err != nil {
						return err
					}
					enriched++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Enriched credits for %d of %d films\n", enriched, len(films))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 25, "Maximum number of films to enrich")
	return cmd
}
