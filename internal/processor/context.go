package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"slyce/internal/config"
	"slyce/internal/frames"
	"slyce/internal/services"
	"slyce/internal/tile"
	"slyce/internal/tileplan"
)

// RunContext is everything one run needs, resolved up front and passed
// explicitly to every component.
type RunContext struct {
	Config   *config.Config
	Source   string
	Video    frames.Info
	Settings tileplan.Settings
	Plan     tileplan.TilePlan
	Kind     tile.Kind
}

// Validate reports whether the run context can drive a run.
func (rc RunContext) Validate() error {
	if rc.Config == nil {
		return errors.New("run context requires a config")
	}
	if strings.TrimSpace(rc.Source) == "" {
		return errors.New("run context requires a source")
	}
	if rc.Plan.TileCount == 0 {
		return services.Wrap(services.ErrValidation, "processor", "plan", shortfallMessage(rc.Plan), nil)
	}
	if len(rc.Plan.Ranges) != rc.Plan.TileCount {
		return fmt.Errorf("plan has %d ranges for %d tiles", len(rc.Plan.Ranges), rc.Plan.TileCount)
	}
	if rc.Plan.TileWidth%2 != 0 || rc.Plan.TileHeight%2 != 0 {
		return fmt.Errorf("tile size %dx%d must be even", rc.Plan.TileWidth, rc.Plan.TileHeight)
	}
	return nil
}

func shortfallMessage(plan tileplan.TilePlan) string {
	if len(plan.Notices) == 0 {
		return "plan has no tiles"
	}
	return strings.Join(plan.Notices, " ")
}

var probeSource = frames.Probe

// Prepare probes source and computes the tile plan for settings. A plan
// without tiles is returned as a validation error carrying its notices.
func Prepare(ctx context.Context, cfg *config.Config, source string, settings tileplan.Settings) (RunContext, error) {
	if cfg == nil {
		return RunContext{}, errors.New("config required")
	}
	kind, err := tile.ParseKind(cfg.Encoding.OutputFormat)
	if err != nil {
		return RunContext{}, services.Wrap(services.ErrConfiguration, "processor", "output format", "", err)
	}
	info, err := probeSource(ctx, cfg.FFprobeBinary(), source, true)
	if err != nil {
		return RunContext{}, services.Wrap(services.ErrExternalTool, "processor", "probe source", source, err)
	}
	plan := tileplan.Plan(tileplan.Input{
		SourceWidth:  info.Width,
		SourceHeight: info.Height,
		FrameCount:   info.FrameCount,
		Settings:     settings,
	}).EvenDimensions()

	rc := RunContext{
		Config:   cfg,
		Source:   source,
		Video:    info,
		Settings: settings,
		Plan:     plan,
		Kind:     kind,
	}
	if err := rc.Validate(); err != nil {
		return rc, err
	}
	return rc, nil
}
