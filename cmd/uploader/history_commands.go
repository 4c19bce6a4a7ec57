package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"uploader/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var kind string
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent import and upload events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			events, err := store.Recent(cmd.Context(), history.Filter{
				Kind:  history.Kind(strings.TrimSpace(kind)),
				RunID: strings.TrimSpace(runID),
				Limit: limit,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No events recorded")
				return nil
			}
			rows := make([][]string, 0, len(events))
			for _, evt := range events {
				rows = append(rows, []string{
					strconv.FormatInt(evt.ID, 10),
					formatTime(evt.CreatedAt),
					string(evt.Kind),
					evt.File,
					evt.Detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Time", "Kind", "File", "Detail"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of events to show")
	cmd.Flags().StringVar(&kind, "kind", "", "Only show events of this kind (e.g. uploaded, upload_failed)")
	cmd.Flags().StringVar(&runID, "run", "", "Only show events from this run id")

	cmd.AddCommand(newHistorySummaryCommand(ctx))
	cmd.AddCommand(newHistoryClearCommand(ctx))
	return cmd
}

func newHistorySummaryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Count journal events by kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			counts, err := store.Counts(cmd.Context())
			if err != nil {
				return err
			}
			kinds := make([]string, 0, len(counts))
			for k := range counts {
				kinds = append(kinds, string(k))
			}
			sort.Strings(kinds)
			rows := make([][]string, 0, len(kinds))
			for _, k := range kinds {
				rows = append(rows, []string{k, strconv.Itoa(counts[history.Kind(k)])})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Kind", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every journal event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	}
}

func openHistory(ctx *commandContext) (*history.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Workflow.HistoryEnabled {
		return nil, fmt.Errorf("history is disabled (set workflow.history_enabled in the config)")
	}
	return history.Open(cfg.HistoryPath(), cfg.Workflow.HistoryRetention)
}
