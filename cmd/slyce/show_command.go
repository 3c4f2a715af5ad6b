package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"slyce/internal/artifacts"
	"slyce/internal/config"
	"slyce/internal/tileplan"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <run>",
		Short: "Show a run and its published tiles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *artifacts.Store) error {
				run, err := store.ResolveRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				list, err := store.ListArtifacts(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, toRunView(run, list))
				}
				renderRun(cmd.OutOrStdout(), run, list)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run as JSON")
	return cmd
}

func renderRun(out io.Writer, run *artifacts.Run, list []*artifacts.Artifact) {
	var plan tileplan.TilePlan
	_ = run.DecodePlan(&plan)

	pairs := [][2]string{
		{"Run", run.ID},
		{"Status", titleLabel(string(run.Status))},
		{"Source", run.Source},
		{"Output", artifacts.RunDir(run.OutputDir, run.ID)},
		{"Tiles", fmt.Sprintf("%d of %d published", len(list), run.TileCount)},
	}
	if plan.TileWidth > 0 {
		pairs = append(pairs, [2]string{"Tile size", fmt.Sprintf("%dx%d", plan.TileWidth, plan.TileHeight)})
	}
	pairs = append(pairs, [2]string{"Created", formatTime(run.CreatedAt)})
	if run.FinishedAt != nil {
		pairs = append(pairs, [2]string{"Finished", formatTime(*run.FinishedAt)})
	}
	if run.ErrorMessage != "" {
		pairs = append(pairs, [2]string{"Message", run.ErrorMessage})
	}
	fmt.Fprintln(out, renderPairs(pairs))
	if len(list) == 0 {
		return
	}

	rows := make([][]string, 0, len(list))
	var total int64
	for _, a := range list {
		total += a.Bytes
		rows = append(rows, []string{
			strconv.Itoa(a.Tile + 1),
			a.FileName(),
			strconv.Itoa(a.Layers),
			fmt.Sprintf("%dx%d", a.Width, a.Height),
			formatBytes(a.Bytes),
			shortHash(a.SHA256),
		})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable([]string{"Tile", "File", "Layers", "Size", "Bytes", "SHA-256"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignRight, alignLeft}))
	fmt.Fprintf(out, "Total: %s\n", formatBytes(total))
}
