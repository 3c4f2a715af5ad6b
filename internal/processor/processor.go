package processor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"slyce/internal/artifacts"
	"slyce/internal/canvas"
	"slyce/internal/config"
	"slyce/internal/encodepool"
	"slyce/internal/fileutil"
	"slyce/internal/frames"
	"slyce/internal/ktx2"
	"slyce/internal/logging"
	"slyce/internal/loop"
	"slyce/internal/sampler"
	"slyce/internal/services"
	"slyce/internal/texarray"
	"slyce/internal/tile"
)

// ErrAborted marks a run stopped by cancellation. Errors wrapping it also
// wrap the context error that caused the stop.
var ErrAborted = fmt.Errorf("processing %w", services.ErrAborted)

// ErrFrameOrder is returned when a source yields a frame number that does not
// follow the previous one.
var ErrFrameOrder = errors.New("frame numbers must strictly increase")

// ErrNoTiles is returned when a run ends without publishing any tile.
var ErrNoTiles = errors.New("no tiles were published")

// Progress stages reported through Event.Stage.
const (
	StageFrames  = "frames"
	StageEncode  = "encode"
	StagePublish = "publish"
)

// Event is a progress notification. For StageFrames Done is the latest frame
// number and Total the last frame owned by any tile; for StageEncode they count
// the tile's encoded layers; for StagePublish they count finished tiles.
type Event struct {
	Stage string
	Tile  int
	Done  int
	Total int
}

// ProgressFunc receives progress events. It may be called from several
// goroutines at once.
type ProgressFunc func(Event)

// LoopEncoder renders a tile's cross-sections as a looping animation file.
type LoopEncoder interface {
	Encode(ctx context.Context, imgs []*image.RGBA, outputPath string) error
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithEncoderFactory replaces the per-worker texture encoder.
func WithEncoderFactory(factory encodepool.Factory) Option {
	return func(p *Processor) {
		if factory != nil {
			p.factory = factory
		}
	}
}

// WithLoopEncoder replaces the animation encoder used for webm output.
func WithLoopEncoder(enc LoopEncoder) Option {
	return func(p *Processor) {
		if enc != nil {
			p.loop = enc
		}
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Processor) { p.progress = fn }
}

// Processor drives one run. It is not reusable across runs.
type Processor struct {
	rc       RunContext
	store    *artifacts.Store
	logger   *slog.Logger
	factory  encodepool.Factory
	loop     LoopEncoder
	progress ProgressFunc
}

// New validates rc and returns a processor publishing into store.
func New(rc RunContext, store *artifacts.Store, opts ...Option) (*Processor, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("processor requires an artifact store")
	}
	if rc.Kind == "" {
		rc.Kind = tile.KindTextureArray
	}
	p := &Processor{rc: rc, store: store, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	if p.factory == nil {
		p.factory = encodepool.RGBA8Factory(encoderOptions(rc.Config))
	}
	if p.loop == nil {
		p.loop = loop.NewEncoder(loop.Options{
			Binary:  rc.Config.FFmpegBinary(),
			FPS:     rc.Config.Encoding.LoopFPS,
			Bitrate: rc.Config.Encoding.LoopBitrate,
		})
	}
	p.logger = logging.NewComponentLogger(p.logger, "processor")
	return p, nil
}

func encoderOptions(cfg *config.Config) encodepool.Options {
	scheme := ktx2.SupercompressionNone
	if cfg.Encoding.Supercompression == "zstd" {
		scheme = ktx2.SupercompressionZstd
	}
	return encodepool.Options{
		Mipmaps:          cfg.Encoding.Mipmaps,
		Supercompression: scheme,
		ZstdLevel:        cfg.Encoding.ZstdLevel,
	}
}

func (p *Processor) report(ev Event) {
	if p.progress != nil {
		p.progress(ev)
	}
}

// Run registers a run, consumes source and publishes every finished tile.
// The source is closed before Run returns. The returned summary is populated
// even when an error is returned.
func (p *Processor) Run(ctx context.Context, source frames.Source) (Summary, error) {
	if source == nil {
		return Summary{}, errors.New("frame source required")
	}
	defer source.Close()

	cfg := p.rc.Config
	plan := p.rc.Plan
	started := time.Now()

	run, err := p.store.CreateRun(ctx, artifacts.NewRun{
		Source:    p.rc.Source,
		OutputDir: cfg.Paths.OutputDir,
		Settings:  p.rc.Settings,
		Plan:      plan,
		Video:     p.rc.Video,
		TileCount: plan.TileCount,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("register run: %w", err)
	}
	summary := Summary{
		RunID:         run.ID,
		RunDir:        artifacts.RunDir(run.OutputDir, run.ID),
		Status:        artifacts.StatusRunning,
		Plan:          plan,
		FramesSkipped: plan.Skipping,
	}

	ctx = services.WithRunID(ctx, run.ID)
	logger := p.logger.With(logging.String(logging.FieldRunID, run.ID))
	if runLog, err := logging.OpenRunLog(p.logger, cfg.Paths.LogDir, run.ID); err != nil {
		logging.WarnWithContext(logger, "run log unavailable", "run_log_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "debug output for this run is not kept"),
			logging.String(logging.FieldErrorHint, "check paths.log_dir permissions"),
		)
	} else {
		defer runLog.Close()
		logger = runLog.Logger
		summary.LogPath = runLog.Path
	}

	logger.Info("run started",
		logging.String("source", p.rc.Source),
		logging.String("output_format", string(p.rc.Kind)),
		logging.Int("tile_count", plan.TileCount),
		logging.Int("tile_width", plan.TileWidth),
		logging.Int("tile_height", plan.TileHeight),
		logging.Int("frames_per_tile", plan.FramesPerTile),
		logging.Int("cross_sections", p.rc.Settings.CrossSectionCount),
	)
	for _, notice := range plan.Notices {
		logger.Info("plan notice", logging.String("notice", notice))
	}

	runErr := p.execute(ctx, logger, source, &summary)
	summary.Elapsed = time.Since(started)
	summary.sortTiles()
	if runErr == nil && summary.Published() == 0 {
		runErr = noTilesError(summary)
	}

	status, message := finalStatus(runErr, summary)
	summary.Status = status
	if err := p.store.FinishRun(context.WithoutCancel(ctx), run.ID, status, message); err != nil {
		logging.WarnWithContext(logger, "failed to record run status", "run_status_unrecorded",
			logging.Error(err),
			logging.String("status", string(status)),
			logging.String(logging.FieldImpact, "registry still lists the run as running"),
		)
	}

	attrs := []logging.Attr{
		logging.String("status", string(status)),
		logging.Int("frames_read", summary.FramesRead),
		logging.Int("frames_skipped", summary.FramesSkipped),
		logging.Int("tiles_published", summary.Published()),
		logging.Int("tiles_failed", len(summary.FailedTiles())),
		logging.Duration("elapsed", summary.Elapsed),
		logging.Float64("frames_per_second", summary.FramesPerSecond()),
	}
	if runErr != nil {
		attrs = append(attrs, logging.Error(runErr))
		logging.ErrorWithContext(logger, "run finished with error", "run_failed", attrs...)
	} else {
		logger.Info("run finished", logging.Args(attrs...)...)
	}
	return summary, runErr
}

func noTilesError(s Summary) error {
	for _, t := range s.Tiles {
		if t.Failed() {
			return fmt.Errorf("%w: tile %d: %s", ErrNoTiles, t.Tile+1, t.Error)
		}
	}
	return ErrNoTiles
}

func finalStatus(runErr error, s Summary) (artifacts.Status, string) {
	if runErr != nil {
		return artifacts.Status(services.FailureStatus(runErr)), runErr.Error()
	}
	if failed := len(s.FailedTiles()); failed > 0 {
		return artifacts.StatusCompleted, fmt.Sprintf("%d of %d tiles failed", failed, len(s.Tiles))
	}
	return artifacts.StatusCompleted, ""
}

func abortError(err error) error {
	return fmt.Errorf("%w: %w", ErrAborted, err)
}

// results collects tile outcomes from the ingestion loop and encode goroutines.
type results struct {
	mu    sync.Mutex
	tiles []TileResult
}

func (r *results) add(res TileResult) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiles = append(r.tiles, res)
	return len(r.tiles)
}

func (p *Processor) execute(ctx context.Context, logger *slog.Logger, source frames.Source, summary *Summary) error {
	lock, err := artifacts.LockRunDir(summary.RunDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	cfg := p.rc.Config
	plan := p.rc.Plan
	settings := p.rc.Settings

	pool := canvas.NewPool(
		canvas.PoolSize(settings.CrossSectionCount, plan.TileCount, cfg.Encoding.PoolTiles),
		plan.TileWidth, plan.TileHeight,
		canvas.OrientationFor(settings.SamplingMode, settings.OutputMode),
		logger,
	)
	defer pool.Close()

	smp, err := sampler.New(sampler.ParamsFor(plan, settings))
	if err != nil {
		return services.Wrap(services.ErrValidation, "processor", "sampler", "", err)
	}
	logger.Debug("sampler ready",
		logging.Any("positions", smp.Positions(0)),
		logging.Bool("scaled", smp.Scaled()),
	)

	var workers *encodepool.Pool
	if p.rc.Kind == tile.KindTextureArray {
		workers = encodepool.New(cfg.Encoding.Workers, p.factory, logger)
		defer workers.Close()
	}

	collected := &results{}
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		summary.Tiles = collected.tiles
		logger.Debug("canvas pool usage", logging.Any("stats", pool.Stats()))
	}()

	var current *tile.Builder
	defer func() {
		if current != nil {
			current.Release()
		}
	}()
	abandon := func(reason string) {
		if current == nil {
			return
		}
		collected.add(TileResult{
			Tile:   current.Index(),
			Kind:   p.rc.Kind,
			Frames: current.FramesWritten(),
			Layers: settings.CrossSectionCount,
			Error:  reason,
		})
		logging.WarnWithContext(logger, "tile incomplete", "tile_incomplete",
			logging.Int(logging.FieldTile, current.Index()),
			logging.String("reason", reason),
			logging.String(logging.FieldImpact, "tile is missing from the output"),
			logging.String(logging.FieldErrorHint, "the source skipped or dropped frames"),
		)
		current.Release()
		current = nil
	}

	lastFrame := plan.LastFrame()
	sampled := logging.NewProgressSampler(10)
	previous := 0
	started := -1

	for {
		if err := ctx.Err(); err != nil {
			return abortError(err)
		}
		frame, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return abortError(ctxErr)
			}
			return services.Wrap(services.ErrExternalTool, "processor", "read frame",
				fmt.Sprintf("after frame %d", previous), err)
		}
		if frame.Number <= previous {
			return fmt.Errorf("frame %d after frame %d: %w", frame.Number, previous, ErrFrameOrder)
		}
		previous = frame.Number

		if frame.Number > lastFrame {
			logger.Info("frames past the last tile skipped",
				logging.Int(logging.FieldFrame, frame.Number),
				logging.Int("last_tile_frame", lastFrame),
				logging.Int("skipped_frames", plan.Skipping),
			)
			break
		}
		summary.FramesRead++

		idx, ok := plan.TileForFrame(frame.Number)
		if !ok {
			logger.Info("frame outside every tile", logging.Int(logging.FieldFrame, frame.Number))
			continue
		}
		if current != nil && current.Index() != idx {
			abandon(fmt.Sprintf("source moved on before frame %d", plan.Ranges[current.Index()].End))
		}
		if current == nil {
			for missed := started + 1; missed < idx; missed++ {
				collected.add(TileResult{Tile: missed, Kind: p.rc.Kind, Error: "source yielded no frames for this tile"})
			}
			current, err = tile.NewBuilder(tile.Config{
				Index:         idx,
				Range:         plan.Ranges[idx],
				Kind:          p.rc.Kind,
				CrossSections: settings.CrossSectionCount,
				Pool:          pool,
				Sampler:       smp,
			})
			if err != nil {
				return err
			}
			started = idx
		}

		done, err := current.ProcessFrame(frame.Image, frame.Number)
		if err != nil {
			return services.Wrap(services.ErrValidation, "processor", "sample frame", "", err)
		}
		p.report(Event{Stage: StageFrames, Tile: idx, Done: frame.Number, Total: lastFrame})
		percent := float64(frame.Number) / float64(lastFrame) * 100
		if sampled.ShouldLog(percent, StageFrames, "") {
			logger.Info("frame progress",
				logging.String(logging.FieldProgressStage, StageFrames),
				logging.Float64(logging.FieldProgressPercent, percent),
				logging.Int(logging.FieldFrame, frame.Number),
				logging.Int("last_tile_frame", lastFrame),
			)
		}
		if done == nil {
			continue
		}
		current = nil
		wg.Add(1)
		go func(c *tile.Completion) {
			defer wg.Done()
			n := collected.add(p.finishTile(ctx, logger, workers, summary.RunID, summary.RunDir, c))
			p.report(Event{Stage: StagePublish, Tile: c.Tile, Done: n, Total: plan.TileCount})
		}(done)
	}

	if current != nil {
		abandon(fmt.Sprintf("source ended at frame %d before frame %d", previous, plan.Ranges[current.Index()].End))
	}
	for missed := started + 1; missed < plan.TileCount; missed++ {
		collected.add(TileResult{Tile: missed, Kind: p.rc.Kind, Error: "source ended before this tile"})
	}
	return nil
}

// finishTile encodes a completed tile, writes it into the run directory and
// publishes it. Nothing is published once ctx is cancelled.
func (p *Processor) finishTile(ctx context.Context, logger *slog.Logger, workers *encodepool.Pool, runID, runDir string, c *tile.Completion) TileResult {
	started := time.Now()
	ctx = services.WithStage(services.WithTile(ctx, c.Tile), StageEncode)
	logger = logger.With(logging.Int(logging.FieldTile, c.Tile), logging.String(logging.FieldStage, StageEncode))

	res := TileResult{Tile: c.Tile, Kind: c.Kind, Frames: c.Frames, Layers: len(c.Layers)}
	images := make([]*image.RGBA, len(c.Layers))
	for i, layer := range c.Layers {
		images[i] = layer.Image
	}
	path := filepath.Join(runDir, artifacts.TileFileName(c.Tile, string(c.Kind)))
	width, height := images[0].Rect.Dx(), images[0].Rect.Dy()

	fail := func(err error) TileResult {
		res.Error = err.Error()
		res.Duration = time.Since(started)
		if ctx.Err() != nil {
			logger.Info("tile discarded after abort", logging.Error(err))
			return res
		}
		attrs := []logging.Attr{logging.Error(err)}
		eventType := "tile_failed"
		var encErr *encodepool.EncodeError
		switch {
		case errors.As(err, &encErr):
			eventType = "tile_encode_failed"
			attrs = append(attrs,
				logging.Int(logging.FieldCrossSection, encErr.Layer),
				logging.String(logging.FieldErrorHint, "the encoder rejected this cross-section; other tiles continue"),
			)
		case errors.Is(err, texarray.ErrFormatMismatch):
			eventType = "tile_format_mismatch"
			attrs = append(attrs, logging.String(logging.FieldErrorHint, "encoded layers disagree on format or size"))
		}
		attrs = append(attrs, logging.String(logging.FieldImpact, "tile is missing from the output"))
		logging.WarnWithContext(logger, "tile failed", eventType, attrs...)
		return res
	}

	switch c.Kind {
	case tile.KindLoop:
		err := fileutil.AtomicWrite(path, func(tmpPath string) error {
			return p.loop.Encode(ctx, images, tmpPath)
		})
		if err != nil {
			return fail(err)
		}
		res.Layers = len(images)
	default:
		containers, err := workers.EncodeAll(ctx, c.Tile, images, func(done, total int) {
			p.report(Event{Stage: StageEncode, Tile: c.Tile, Done: done, Total: total})
		})
		if err != nil {
			return fail(err)
		}
		assembled, err := texarray.Assemble(containers)
		if err != nil {
			return fail(err)
		}
		data, err := ktx2.Write(assembled)
		if err != nil {
			return fail(err)
		}
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		if err := fileutil.WriteFileAtomic(path, data); err != nil {
			return fail(err)
		}
		res.Layers = assembled.Layers()
	}

	if err := ctx.Err(); err != nil {
		_ = os.Remove(path)
		return fail(err)
	}
	published, err := p.store.Publish(ctx, artifacts.Artifact{
		RunID:  runID,
		Tile:   c.Tile,
		Kind:   string(c.Kind),
		Path:   path,
		Layers: res.Layers,
		Width:  width,
		Height: height,
	})
	if err != nil {
		_ = os.Remove(path)
		return fail(fmt.Errorf("publish tile: %w", err))
	}
	res.Path = published.Path
	res.Bytes = published.Bytes
	res.SHA256 = published.SHA256
	res.Duration = time.Since(started)
	logger.Info("tile published",
		logging.String("path", published.Path),
		logging.Int64("output_bytes", published.Bytes),
		logging.Int("layers", res.Layers),
		logging.Int("frames", res.Frames),
		logging.Duration("encode_duration", res.Duration),
	)
	return res
}
