package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"uploader/internal/config"
	"uploader/internal/fileutil"
	"uploader/internal/history"
	"uploader/internal/ledger"
)

func newResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the upload ledger so every imported image is sent again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			l := ledger.Open(cfg.LedgerPath())
			count, err := l.Count()
			if err != nil {
				return fmt.Errorf("read upload ledger: %w", err)
			}
			if err := l.Reset(); err != nil {
				return fmt.Errorf("reset upload ledger: %w", err)
			}
			journalReset(cmd.Context(), cfg, count)
			fmt.Fprintf(cmd.OutOrStdout(), "Upload ledger cleared (%d entries removed)\n", count)
			return nil
		},
	}
}

// journalReset notes a ledger reset in the history store when one is
// configured. Failures are ignored; the reset itself already succeeded.
func journalReset(ctx context.Context, cfg *config.Config, removed int) {
	if !cfg.Workflow.HistoryEnabled {
		return
	}
	store, err := history.Open(cfg.HistoryPath(), cfg.Workflow.HistoryRetention)
	if err != nil {
		return
	}
	defer store.Close()
	_ = store.Record(ctx, history.Event{
		Kind:   history.KindReset,
		Detail: fmt.Sprintf("%d ledger entries removed", removed),
	})
}

func newClearImportsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-imports",
		Short: "Delete image files from the import directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			removed, err := fileutil.ClearImages(cfg.ImportDir())
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d image(s) from %s\n", removed, cfg.ImportDir())
			if err != nil {
				return fmt.Errorf("clear imports: %w", err)
			}
			return nil
		},
	}
}

func newClearLogCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-log",
		Short: "Truncate the log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := fileutil.Truncate(cfg.LogPath()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", cfg.LogPath())
			return nil
		},
	}
}
