package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the film catalog",
	}

	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogShowCommand(ctx))
	catalogCmd.AddCommand(newCatalogAddCommand(ctx))

	return catalogCmd
}

func newCatalogAddCommand(ctx *commandContext) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a film by hand, without an external match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(cmd.Context(), func(env *environment) error {
				var yearPtr *int
				if year > 0 {
					yearPtr = &year
				}
				filmID, err := env.catalog.CreateManualFilm(cmd.Context(), args[0], yearPtr)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added film %d: %s\n", filmID, strings.TrimSpace(args[0]))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Release year")
	return cmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var sourceCode string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog films",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(cmd.Context(), func(env *environment) error {
				films, err := env.catalog.ListFilms(cmd.Context(), strings.ToUpper(strings.TrimSpace(sourceCode)), limit)
				if err != nil {
					return err
				}
				if len(films) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty")
					return nil
				}
				rows := make([][]string, 0, len(films))
				for _, film := range films {
					rows = append(rows, []string{
						strconv.FormatInt(film.ID, 10),
						truncate(film.Title, 45),
						formatIntPtr(film.Year),
						formatInt64Ptr(film.TMDBID),
					})
				}
				table := renderTable([]tableColumn{
					{name: "ID", right: true},
					{name: "Title"},
					{name: "Year", right: true},
					{name: "TMDB", right: true},
				}, rows)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sourceCode, "source", "", "Filter by source code (BR, NAS, STREAMING, DVD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of films to list")
	return cmd
}

func newCatalogShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one film with its copies, assets and credits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDArgs(args)
			if err != nil {
				return err
			}

			return ctx.withEnv(cmd.Context(), func(env *environment) error {
				film, err := env.catalog.GetFilmByID(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if film == nil {
					return fmt.Errorf("no film with id %d", ids[0])
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Title:         %s\n", film.Title)
				if film.OriginalTitle != "" && film.OriginalTitle != film.Title {
					fmt.Fprintf(out, "Original:      %s\n", film.OriginalTitle)
				}
				if film.Year != nil {
					fmt.Fprintf(out, "Year:          %d\n", *film.Year)
				}
				if film.TMDBID != nil {
					fmt.Fprintf(out, "TMDB id:       %d\n", *film.TMDBID)
				}
				if film.RuntimeMin != nil {
					fmt.Fprintf(out, "Runtime:       %d min\n", *film.RuntimeMin)
				}

				if genres, err := env.catalog.FilmGenres(cmd.Context(), film.ID); err == nil && len(genres) > 0 {
					names := make([]string, 0, len(genres))
					for _, genre := range genres {
						names = append(names, genre.Name)
					}
					fmt.Fprintf(out, "Genres:        %s\n", strings.Join(names, ", "))
				}

				sources, err := env.catalog.FilmSources(cmd.Context(), film.ID)
				if err != nil {
					return err
				}
				for _, source := range sources {
					fmt.Fprintf(out, "Source:        %s (available: %s)\n", source.SourceCode, yesNo(source.IsAvailable))
				}

				copies, err := env.catalog.PhysicalCopies(cmd.Context(), film.ID)
				if err != nil {
					return err
				}
				for _, pc := range copies {
					line := fmt.Sprintf("Copy:          %s x%d", pc.Format, pc.Copies)
					if pc.Edition != "" {
						line += " (" + pc.Edition + ")"
					}
					fmt.Fprintln(out, line)
				}

				assets, err := env.catalog.NasAssets(cmd.Context(), film.ID)
				if err != nil {
					return err
				}
				for _, asset := range assets {
					fmt.Fprintf(out, "Asset:         %s\n", asset.Path)
				}

				credits, err := env.catalog.FilmCredits(cmd.Context(), film.ID)
				if err != nil {
					return err
				}
				for _, credit := range credits {
					fmt.Fprintf(out, "Credit:        %s (%s)\n", credit.Name, credit.Job)
				}
				return nil
			})
		},
	}
}
