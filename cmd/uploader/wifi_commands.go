package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"uploader/internal/netwatch"
)

// newWiFi is replaced in tests.
var newWiFi = func() *netwatch.WiFi { return netwatch.NewWiFi("", nil) }

func newWiFiCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "wifi",
		Short:       "Scan for and join wireless networks",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	cmd.AddCommand(newWiFiListCommand())
	cmd.AddCommand(newWiFiConnectCommand())
	return cmd
}

func newWiFiListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List visible wireless networks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			networks, err := newWiFi().Scan(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(networks) == 0 {
				fmt.Fprintln(out, "No wireless networks found")
				return nil
			}
			rows := make([][]string, 0, len(networks))
			for _, n := range networks {
				active := ""
				if n.Active {
					active = "*"
				}
				security := n.Security
				if security == "" {
					security = "open"
				}
				rows = append(rows, []string{active, n.SSID, strconv.Itoa(n.Signal), security})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"", "SSID", "Signal", "Security"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newWiFiConnectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "connect SSID [PASSWORD]",
		Short: "Join a wireless network",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := ""
			if len(args) == 2 {
				password = args[1]
			}
			if err := newWiFi().Connect(cmd.Context(), args[0], password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s\n", args[0])
			return nil
		},
	}
}
