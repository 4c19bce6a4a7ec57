package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"uploader/internal/daemonrun"
	"uploader/internal/ledger"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var fullscreen bool
	var logAll bool
	var headless bool
	var reset bool

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "uploader",
		Short:         "Import photos from a camera and relay them to an FTP server",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			if err != nil && cmd == cmd.Root() {
				ctx.logConfigFailure(err)
			}
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if reset {
				if err := ledger.Open(cfg.LedgerPath()).Reset(); err != nil {
					return fmt.Errorf("reset upload ledger: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Upload ledger cleared")
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogAll:     logAll,
				Fullscreen: fullscreen,
				Headless:   headless,
			})
		},
	}
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		fmt.Fprintln(cmd.ErrOrStderr(), cmd.UsageString())
		return err
	})

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (default ./config.json)")
	rootCmd.Flags().BoolVar(&fullscreen, "fullscreen", false, "Draw the status display on the alternate screen")
	rootCmd.Flags().BoolVar(&logAll, "log-all", false, "Log every message instead of warnings and errors only")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "Run without the status display")
	rootCmd.Flags().BoolVar(&reset, "reset", false, "Clear the upload ledger before starting")

	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newRetryCommand(ctx))
	rootCmd.AddCommand(newResetCommand(ctx))
	rootCmd.AddCommand(newClearImportsCommand(ctx))
	rootCmd.AddCommand(newClearLogCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newWiFiCommand())
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}
