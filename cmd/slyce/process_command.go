package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"slyce/internal/artifacts"
	"slyce/internal/config"
	"slyce/internal/frames"
	"slyce/internal/logging"
	"slyce/internal/preflight"
	"slyce/internal/processor"
)

// staleRunAge is how old a running registry row must be before a new
// process invocation marks it aborted.
const staleRunAge = 24 * time.Hour

var openSource = func(cfg *config.Config, rc processor.RunContext) (frames.Source, error) {
	return frames.NewFFmpeg(rc.Source, rc.Video.Width, rc.Video.Height,
		frames.WithBinary(cfg.FFmpegBinary()),
		frames.WithFrameLimit(rc.Plan.LastFrame()),
	)
}

var runPreflight = preflight.RunAll

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var flags samplingFlags
	var jsonOut bool
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "process <video>",
		Short: "Slice a video into tiles and publish them as a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := flags.apply(cmd, base)
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			if res := preflight.CheckSourceReadable(path); !res.Passed {
				return fmt.Errorf("%s: %s", res.Name, res.Detail)
			}
			if failed := preflight.Failed(runPreflight(cmd.Context(), cfg)); len(failed) > 0 {
				msgs := make([]string, 0, len(failed))
				for _, r := range failed {
					msgs = append(msgs, fmt.Sprintf("%s: %s", r.Name, r.Detail))
				}
				return fmt.Errorf("preflight failed: %s", strings.Join(msgs, "; "))
			}

			rc, err := prepareRun(cmd.Context(), cfg, path, cfg.Settings())
			if err != nil {
				return err
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			var view *progressView
			if !noProgress && !jsonOut && !ctx.quiet() && isTerminal(cmd.ErrOrStderr()) {
				view = newProgressView(cmd.ErrOrStderr(), rc.Plan.LastFrame(), rc.Plan.TileCount)
				logger = logging.WithLevelOverride(logger, slog.LevelWarn)
			}

			var summary processor.Summary
			runErr := ctx.withStore(func(_ *config.Config, store *artifacts.Store) error {
				if n, err := store.AbandonRunning(cmd.Context(), time.Now().Add(-staleRunAge)); err != nil {
					logging.WarnWithContext(logger, "failed to abandon stale runs", "registry_cleanup_failed",
						logging.Error(err),
						logging.String(logging.FieldErrorHint, "check the registry database permissions"),
					)
				} else if n > 0 {
					logger.Info("marked stale runs aborted", logging.Int64("runs", n))
				}
				logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays)

				source, err := openSource(cfg, rc)
				if err != nil {
					return fmt.Errorf("open source: %w", err)
				}
				opts := []processor.Option{processor.WithLogger(logger)}
				if view != nil {
					opts = append(opts, processor.WithProgress(view.handle))
				}
				proc, err := processor.New(rc, store, opts...)
				if err != nil {
					_ = source.Close()
					return err
				}
				summary, err = proc.Run(cmd.Context(), source)
				return err
			})
			if view != nil {
				view.finish()
			}
			if summary.RunID == "" {
				return runErr
			}
			if jsonOut {
				if err := writeJSON(cmd, summary); err != nil {
					return err
				}
				return runErr
			}
			renderSummary(cmd.OutOrStdout(), summary)
			if runErr != nil && errors.Is(runErr, processor.ErrAborted) {
				fmt.Fprintln(cmd.OutOrStdout(), "\nRun aborted.")
			}
			return runErr
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run summary as JSON")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	return cmd
}

func renderSummary(out io.Writer, s processor.Summary) {
	pairs := [][2]string{
		{"Run", s.RunID},
		{"Status", titleLabel(string(s.Status))},
		{"Tiles", fmt.Sprintf("%d of %d published", s.Published(), s.Plan.TileCount)},
		{"Frames", fmt.Sprintf("%d read, %d skipped", s.FramesRead, s.FramesSkipped)},
		{"Elapsed", fmt.Sprintf("%s (%.1f frames/s)", s.Elapsed.Round(time.Millisecond), s.FramesPerSecond())},
		{"Output", s.RunDir},
	}
	if s.LogPath != "" {
		pairs = append(pairs, [2]string{"Log", s.LogPath})
	}
	fmt.Fprintln(out, renderPairs(pairs))
	if len(s.Tiles) == 0 {
		return
	}

	rows := make([][]string, 0, len(s.Tiles))
	for _, t := range s.Tiles {
		result := "ok"
		if t.Failed() {
			result = t.Error
		}
		rows = append(rows, []string{
			strconv.Itoa(t.Tile + 1),
			string(t.Kind),
			strconv.Itoa(t.Frames),
			strconv.Itoa(t.Layers),
			formatBytes(t.Bytes),
			shortHash(t.SHA256),
			result,
		})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"Tile", "Kind", "Frames", "Layers", "Size", "SHA-256", "Result"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))
}
