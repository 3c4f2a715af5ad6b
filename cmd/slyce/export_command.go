package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"slyce/internal/artifacts"
	"slyce/internal/config"
	"slyce/internal/export"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var output string
	var asDir bool
	var level int

	cmd := &cobra.Command{
		Use:   "export <run>",
		Short: "Bundle a run's tiles and metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *artifacts.Store) error {
				run, err := store.ResolveRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !run.Status.IsTerminal() {
					locked, err := artifacts.RunDirLocked(artifacts.RunDir(run.OutputDir, run.ID))
					if err != nil {
						return err
					}
					if locked {
						return fmt.Errorf("run %s: %w", shortID(run.ID), artifacts.ErrRunLocked)
					}
				}
				list, err := store.ListArtifacts(cmd.Context(), run.ID)
				if err != nil {
					return err
				}

				opts := export.Options{Level: cfg.Export.CompressionLevel}
				if cmd.Flags().Changed("level") {
					opts.Level = level
				}

				target := strings.TrimSpace(output)
				if target != "" {
					if target, err = config.ExpandPath(target); err != nil {
						return err
					}
				}
				out := cmd.OutOrStdout()
				if asDir {
					if target == "" {
						target = filepath.Join(cfg.Paths.OutputDir, strings.TrimSuffix(export.BundleName(run.Source), ".zip"))
					}
					if err := export.WriteDir(target, run, list, opts); err != nil {
						return err
					}
					fmt.Fprintf(out, "Exported %d tiles to %s\n", len(list), target)
					return nil
				}
				if target == "" {
					target = filepath.Join(cfg.Paths.OutputDir, export.BundleName(run.Source))
				}
				if err := export.WriteZipFile(target, run, list, opts); err != nil {
					return err
				}
				fmt.Fprintf(out, "Exported %d tiles to %s\n", len(list), target)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination path (defaults to the output directory)")
	cmd.Flags().BoolVar(&asDir, "dir", false, "Write a directory instead of a ZIP archive")
	cmd.Flags().IntVar(&level, "level", export.DefaultCompressionLevel, "Deflate compression level (1-9)")
	return cmd
}
