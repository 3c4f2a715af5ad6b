package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"slyce/internal/preflight"
)

var checkSystemDeps = preflight.CheckSystemDeps

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := checkSystemDeps(cmd.Context(), cfg)
			rows := make([][]string, 0, len(statuses))
			var missing []string
			for _, st := range statuses {
				state := "ok"
				detail := st.Command
				if !st.Available {
					state = "missing"
					detail = st.Detail
					if st.Optional {
						state = "optional"
					} else {
						missing = append(missing, st.Name)
					}
				}
				rows = append(rows, []string{st.Name, state, detail, st.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Dependency", "State", "Detail", "Purpose"}, rows, nil))
			if len(missing) > 0 {
				return fmt.Errorf("missing required dependencies: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}
