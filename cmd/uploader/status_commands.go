package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"uploader/internal/ipc"
	"uploader/internal/logging"
	"uploader/internal/logs"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running kiosk's status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					encoder := json.NewEncoder(out)
					encoder.SetIndent("", "  ")
					return encoder.Encode(resp)
				}
				fmt.Fprintln(out, renderStatus(resp))
				if deps := renderDependencies(resp.Dependencies); deps != "" {
					fmt.Fprintln(out, deps)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw status as JSON")
	return cmd
}

func renderStatus(resp *ipc.StatusResponse) string {
	snap := resp.Snapshot
	camera := "not detected"
	if snap.CameraReady {
		camera = "ready"
		if snap.CameraModel != "" {
			camera += " (" + snap.CameraModel + ")"
		}
	}
	network := "offline"
	if snap.Online {
		network = "online"
	}
	rows := [][2]string{
		{"Running", yesNo(resp.Running)},
		{"PID", strconv.Itoa(resp.PID)},
		{"Run ID", resp.RunID},
		{"Started", resp.StartedAt},
		{"Phase", snap.PhaseText},
		{"Camera", camera},
		{"Network", network},
		{"Signal", fmt.Sprintf("%d%% (%d/4)", snap.Signal, snap.SignalBars)},
		{"Imported", strconv.Itoa(snap.Imported)},
		{"Uploaded", strconv.Itoa(snap.Uploaded)},
		{"Last import", formatTime(snap.LastImport)},
		{"Last upload", formatTime(snap.LastUpload)},
		{"Hotplug", yesNo(resp.Hotplug)},
		{"Import dir", resp.ImportDir},
		{"Ledger", resp.LedgerPath},
	}
	return renderKeyValues(rows)
}

func renderDependencies(deps []ipc.DependencyStatus) string {
	if len(deps) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(deps))
	for _, dep := range deps {
		state := "ok"
		if !dep.Available {
			state = "missing"
			if dep.Optional {
				state = "missing (optional)"
			}
		}
		rows = append(rows, []string{dep.Name, dep.Command, state, dep.Detail})
	}
	return renderTable([]string{"Dependency", "Command", "State", "Detail"}, rows, nil)
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "never"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var fromFile bool
	var follow bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log events from the running kiosk or the log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromFile || follow {
				return tailLogFile(cmd, ctx, lines, follow)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.LogTail(lines)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(resp.Events) == 0 {
					fmt.Fprintln(out, "No log events")
					return nil
				}
				for _, evt := range resp.Events {
					fmt.Fprintln(out, formatLogEvent(evt))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of events to show (0 for all retained)")
	cmd.Flags().BoolVar(&fromFile, "file", false, "Read log.txt instead of asking the running kiosk")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as they are appended to log.txt")
	return cmd
}

func tailLogFile(cmd *cobra.Command, ctx *commandContext, limit int, follow bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	lines, offset, err := logs.Last(cfg.LogPath(), limit)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	if !follow {
		return nil
	}
	_, err = logs.Follow(cmd.Context(), cfg.LogPath(), offset, 250*time.Millisecond, func(line string) {
		fmt.Fprintln(out, line)
	})
	return err
}

func formatLogEvent(evt logging.LogEvent) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(evt.Timestamp.Local().Format("2006-01-02 15:04:05"))
	b.WriteString("] ")
	b.WriteString(strings.ToUpper(evt.Level))
	b.WriteString(" ")
	if evt.Component != "" {
		b.WriteString(evt.Component)
		b.WriteString(": ")
	}
	b.WriteString(evt.Message)
	if evt.File != "" {
		b.WriteString(" file=")
		b.WriteString(evt.File)
	}
	return b.String()
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Ask the running kiosk to rescan the camera and retry uploads now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Retry()
				if err != nil {
					return err
				}
				if resp.Accepted {
					fmt.Fprintln(cmd.OutOrStdout(), "Retry requested")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Kiosk declined the retry request")
				}
				return nil
			})
		},
	}
}
