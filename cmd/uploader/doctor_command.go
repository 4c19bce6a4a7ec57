package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"uploader/internal/deps"
	"uploader/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, directories and the upload endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			statuses := preflight.CheckSystemDeps(cfg)
			depRows := make([][]string, 0, len(statuses))
			for _, st := range statuses {
				state := "ok"
				detail := st.Path
				if !st.Available {
					state = "missing"
					if st.Optional {
						state = "missing (optional)"
					}
					detail = st.Detail
				}
				depRows = append(depRows, []string{st.Name, state, st.Description, detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Dependency", "State", "Purpose", "Detail"}, depRows, nil))

			results := preflight.RunAll(cmd.Context(), cfg)
			checkRows := make([][]string, 0, len(results))
			for _, r := range results {
				state := "ok"
				if !r.Passed {
					state = "fail"
				}
				checkRows = append(checkRows, []string{r.Name, state, r.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "State", "Detail"}, checkRows, nil))

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("required dependency missing: %s", strings.Join(missing, ", "))
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}
