package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cinelog/internal/merge"
	"cinelog/internal/resolve"
	"cinelog/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Inspect and repair staging records",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingShowCommand(ctx))
	stagingCmd.AddCommand(newStagingRetryCommand(ctx))
	stagingCmd.AddCommand(newStagingRematchCommand(ctx))
	stagingCmd.AddCommand(newStagingReplaceBoxsetCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string

	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List staging records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindArg(args[0])
			if err != nil {
				return err
			}
			var statuses []staging.Status
			for _, raw := range statusFlags {
				status, ok := staging.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}

			return ctx.withEnv(cmd.Context(), func(env *environment) error {
				records, err := env.staging.List(cmd.Context(), kind, statuses...)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No staging records")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					rows = append(rows, []string{
						strconv.FormatInt(rec.ID, 10),
						truncate(rec.CleanTitle, 40),
						formatIntPtr(rec.RawYear),
						string(rec.MatchStatus),
						formatInt64Ptr(rec.TMDBID),
						truncate(rec.MatchNote, 50),
					})
				}
				table := renderTable([]tableColumn{
					{name: "ID", right: true},
					{name: "Title"},
					{name: "Year", right: true},
					{name: "Status"},
					{name: "TMDB", right: true},
					{name: "Note"},
				}, rows)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&statusFlags, "status", nil, "Filter by match status (repeatable)")
	return cmd
}

func newStagingShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <kind> <id>",
		Short: "Show one staging record in full",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindArg(args[0])
			if err != nil {
				return err
			}
			ids, err := parseIDArgs(args[1:])
			if err != nil {
				return err
			}

			return ctx.withEnv(cmd.Context(), func(env *environment) error {
				rec, err := env.staging.GetByID(cmd.Context(), kind, ids[0])
				if err != nil {
					return err
				}
				if rec == nil {
					return fmt.Errorf("no %s record with id %d", kind, ids[0])
				}
				printRecord(cmd, rec)
				return nil
			})
		},
	}
}

func printRecord(cmd *cobra.Command, rec *staging.Record) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:           %d\n", rec.ID)
	fmt.Fprintf(out, "Kind:         %s\n", rec.Kind)
	fmt.Fprintf(out, "Raw title:    %s\n", rec.RawTitle)
	fmt.Fprintf(out, "Clean title:  %s\n", rec.CleanTitle)
	if rec.RawYear != nil {
		fmt.Fprintf(out, "Year:         %d\n", *rec.RawYear)
	}
	if rec.RawDirector != "" {
		fmt.Fprintf(out, "Director:     %s\n", rec.RawDirector)
	}
	switch rec.Kind {
	case staging.SourceDisc:
		if rec.FormatsRaw != "" {
			fmt.Fprintf(out, "Formats:      %s\n", rec.FormatsRaw)
		}
		if rec.EAN != "" {
			fmt.Fprintf(out, "EAN:          %s\n", rec.EAN)
		}
		if rec.Edition != "" {
			fmt.Fprintf(out, "Edition:      %s\n", rec.Edition)
		}
		if rec.DiscCount != nil {
			fmt.Fprintf(out, "Discs:        %d\n", *rec.DiscCount)
		}
		if rec.SplitGroupKey != "" {
			fmt.Fprintf(out, "Split group:  %s\n", rec.SplitGroupKey)
		}
	case staging.SourceNas:
		fmt.Fprintf(out, "Path:         %s\n", rec.FilePath)
		if rec.Resolution != "" {
			fmt.Fprintf(out, "Resolution:   %s\n", rec.Resolution)
		}
	case staging.SourceStreaming:
		if rec.Rating10 != nil {
			fmt.Fprintf(out, "Rating:       %.1f/10\n", *rec.Rating10)
		}
		if rec.WatchedDate != nil {
			fmt.Fprintf(out, "Watched:      %s\n", formatTimePtr(rec.WatchedDate))
		}
	case staging.SourceWatchlist:
		if rec.ListName != "" {
			fmt.Fprintf(out, "List:         %s\n", rec.ListName)
		}
	}
	fmt.Fprintf(out, "Status:       %s\n", rec.MatchStatus)
	if rec.TMDBID != nil {
		fmt.Fprintf(out, "TMDB id:      %d\n", *rec.TMDBID)
	}
	if rec.MatchNote != "" {
		fmt.Fprintf(out, "Note:         %s\n", rec.MatchNote)
	}
}

func newStagingRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <kind> [id...]",
		Short: "Reset errored records to pending",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindArg(args[0])
			if err != nil {
				return err
			}
			ids, err := parseIDArgs(args[1:])
			if err != nil {
				return err
			}

			return ctx.withEnv(cmd.Context(), func(env *environment) error {
				count, err := env.staging.RetryErrors(cmd.Context(), kind, ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d errored %s records to pending\n", count, kind)
				return nil
			})
		},
	}
}

func newStagingRematchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rematch <kind> <id...>",
		Short: "Clear match decisions so records run again",
		Long: "Reset the given records to pending and clear their match fields.\n" +
			"Applied and replaced records are left untouched.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindArg(args[0])
			if err != nil {
				return err
			}
			ids, err := parseIDArgs(args[1:])
			if err != nil {
				return err
			}

			return ctx.withEnv(cmd.Context(), func(env *environment) error {
				count, err := env.staging.ResetForRematch(cmd.Context(), kind, ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d %s records for rematch\n", count, kind)
				return nil
			})
		},
	}
}

func newStagingReplaceBoxsetCommand(ctx *commandContext) *cobra.Command {
	var tmdbIDs []int64

	cmd := &cobra.Command{
		Use:   "replace-boxset <id>",
		Short: "Replace a boxset record with its member films",
		Long: "Seed one matched disc record per given TMDB id, carrying the\n" +
			"boxset's physical fields, apply them to the catalog, and mark the\n" +
			"boxset record replaced.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDArgs(args[:1])
			if err != nil {
				return err
			}
			if len(tmdbIDs) == 0 {
				return fmt.Errorf("at least one --tmdb-id is required")
			}

			return ctx.withEnv(cmd.Context(), func(env *environment) error {
				box, err := env.staging.GetByID(cmd.Context(), staging.SourceDisc, ids[0])
				if err != nil {
					return err
				}
				if box == nil {
					return fmt.Errorf("no disc record with id %d", ids[0])
				}
				if box.MatchStatus == staging.StatusReplaced {
					return fmt.Errorf("record %d is already replaced", box.ID)
				}

				client, err := env.tmdbClient()
				if err != nil {
					return err
				}
				merger := merge.New(env.catalog, env.userstate, client, env.logger)
				out := cmd.OutOrStdout()

				for _, tmdbID := range tmdbIDs {
					details, err := client.GetMovieDetails(cmd.Context(), tmdbID)
					if err != nil {
						return fmt.Errorf("tmdb %d: %w", tmdbID, err)
					}

					rec := &staging.Record{
						Kind:          staging.SourceDisc,
						RawTitle:      details.Title,
						CleanTitle:    details.Title,
						Notes:         appendBoxsetNote(box.Notes, box.ID),
						Price:         box.Price,
						LengthMin:     box.LengthMin,
						DiscCount:     box.DiscCount,
						Copies:        box.Copies,
						Edition:       box.Edition,
						FormatsRaw:    box.FormatsRaw,
						SplitGroupKey: box.SplitGroupKey,
					}
					if year := details.ReleaseYear(); year > 0 {
						rec.RawYear = &year
					}
					if _, err := env.staging.Insert(cmd.Context(), rec); err != nil {
						return err
					}

					id := tmdbID
					note := fmt.Sprintf("manual boxset replace of record %d", box.ID)
					if err := env.staging.UpdateMatch(cmd.Context(), staging.SourceDisc, rec.ID, staging.StatusMatched, &id, note); err != nil {
						return err
					}

					candidate := resolve.Candidate{
						ExternalID: tmdbID,
						Title:      details.Title,
						Year:       details.ReleaseYear(),
						Confidence: 1.0,
					}
					if _, err := merger.Apply(cmd.Context(), rec, candidate); err != nil {
						return err
					}
					if err := env.staging.UpdateMatch(cmd.Context(), staging.SourceDisc, rec.ID, staging.StatusApplied, &id, "applied"); err != nil {
						return err
					}
					fmt.Fprintf(out, "Added %s (%d) as record %d\n", details.Title, details.ReleaseYear(), rec.ID)
				}

				if err := env.staging.MarkReplaced(cmd.Context(), box.ID, "replaced by member films"); err != nil {
					return err
				}
				fmt.Fprintf(out, "Record %d marked replaced\n", box.ID)
				return nil
			})
		},
	}

	cmd.Flags().Int64SliceVar(&tmdbIDs, "tmdb-id", nil, "TMDB id of a member film (repeatable)")
	return cmd
}

func appendBoxsetNote(notes string, boxID int64) string {
	marker := fmt.Sprintf("from_boxset:%d", boxID)
	if notes == "" {
		return marker
	}
	return notes + " | " + marker
}
