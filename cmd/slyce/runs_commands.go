package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"slyce/internal/artifacts"
	"slyce/internal/config"
)

type runView struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	Status     string     `json:"status"`
	OutputDir  string     `json:"outputDir"`
	TileCount  int        `json:"tileCount"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  string     `json:"createdAt"`
	FinishedAt string     `json:"finishedAt,omitempty"`
	Artifacts  []artifact `json:"artifacts,omitempty"`
}

type artifact struct {
	Tile   int    `json:"tile"`
	Kind   string `json:"kind"`
	Path   string `json:"path"`
	Bytes  int64  `json:"bytes"`
	SHA256 string `json:"sha256"`
	Layers int    `json:"layers"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func toRunView(run *artifacts.Run, list []*artifacts.Artifact) runView {
	v := runView{
		ID:        run.ID,
		Source:    run.Source,
		Status:    string(run.Status),
		OutputDir: run.OutputDir,
		TileCount: run.TileCount,
		Error:     run.ErrorMessage,
		CreatedAt: run.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if run.FinishedAt != nil {
		v.FinishedAt = run.FinishedAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	for _, a := range list {
		v.Artifacts = append(v.Artifacts, artifact{
			Tile:   a.Tile,
			Kind:   a.Kind,
			Path:   a.Path,
			Bytes:  a.Bytes,
			SHA256: a.SHA256,
			Layers: a.Layers,
			Width:  a.Width,
			Height: a.Height,
		})
	}
	return v
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List processing runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := make([]artifacts.Status, 0, len(statuses))
			for _, raw := range statuses {
				st, ok := artifacts.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				filter = append(filter, st)
			}
			return ctx.withStore(func(_ *config.Config, store *artifacts.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit, filter...)
				if err != nil {
					return err
				}
				if jsonOut {
					views := make([]runView, 0, len(runs))
					for _, run := range runs {
						views = append(views, toRunView(run, nil))
					}
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						titleLabel(string(run.Status)),
						filepath.Base(run.Source),
						strconv.Itoa(run.TileCount),
						formatTime(run.CreatedAt),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "Status", "Source", "Tiles", "Created"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (running, completed, failed, aborted)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list (0 = all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print runs as JSON")

	cmd.AddCommand(newRunsDeleteCommand(ctx))
	return cmd
}

func newRunsDeleteCommand(ctx *commandContext) *cobra.Command {
	var keepFiles bool

	cmd := &cobra.Command{
		Use:   "delete <run>",
		Short: "Remove a run from the registry and delete its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *artifacts.Store) error {
				run, err := store.ResolveRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				runDir := artifacts.RunDir(run.OutputDir, run.ID)
				locked, err := artifacts.RunDirLocked(runDir)
				if err != nil {
					return err
				}
				if locked {
					return fmt.Errorf("run %s: %w", shortID(run.ID), artifacts.ErrRunLocked)
				}
				if !keepFiles {
					if err := os.RemoveAll(runDir); err != nil {
						return fmt.Errorf("remove run directory: %w", err)
					}
					logPath := filepath.Join(cfg.Paths.LogDir, "run-"+run.ID+".log")
					if err := os.Remove(logPath); err != nil && !errors.Is(err, os.ErrNotExist) {
						return fmt.Errorf("remove run log: %w", err)
					}
				}
				if err := store.DeleteRun(cmd.Context(), run.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", shortID(run.ID))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&keepFiles, "keep-files", false, "Keep tile files and the run log on disk")
	return cmd
}
