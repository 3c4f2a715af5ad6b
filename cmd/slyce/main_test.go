package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"slyce/internal/config"
	"slyce/internal/deps"
	"slyce/internal/frames"
	"slyce/internal/preflight"
	"slyce/internal/processor"
	"slyce/internal/services"
	"slyce/internal/testsupport"
	"slyce/internal/tile"
	"slyce/internal/tileplan"
)

const (
	testSize   = 8
	testFrames = 20
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	videoPath  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithCrossSections(2, "planes"))
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	videoPath := filepath.Join(base, "clip.mp4")
	testsupport.WriteFile(t, videoPath, 64)

	stubPipeline(t)
	return &cliTestEnv{cfg: cfg, configPath: configPath, videoPath: videoPath}
}

// stubPipeline replaces probing, decoding and tool checks with synthetic
// frames so commands run without ffmpeg.
func stubPipeline(t *testing.T) {
	t.Helper()
	origPrepare, origOpen, origPreflight := prepareRun, openSource, runPreflight
	prepareRun = func(_ context.Context, cfg *config.Config, source string, settings tileplan.Settings) (processor.RunContext, error) {
		kind, err := tile.ParseKind(cfg.Encoding.OutputFormat)
		if err != nil {
			return processor.RunContext{}, err
		}
		rc := processor.RunContext{
			Config:   cfg,
			Source:   source,
			Video:    frames.Info{Path: source, Width: testSize, Height: testSize, FrameCount: testFrames},
			Settings: settings,
			Kind:     kind,
			Plan: tileplan.Plan(tileplan.Input{
				SourceWidth:  testSize,
				SourceHeight: testSize,
				FrameCount:   testFrames,
				Settings:     settings,
			}).EvenDimensions(),
		}
		return rc, rc.Validate()
	}
	openSource = func(_ *config.Config, rc processor.RunContext) (frames.Source, error) {
		return frames.NewSlice(testsupport.Frames(testSize, testSize, rc.Video.FrameCount)), nil
	}
	runPreflight = func(context.Context, *config.Config) []preflight.Result { return nil }
	t.Cleanup(func() {
		prepareRun, openSource, runPreflight = origPrepare, origOpen, origPreflight
	})
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, out, want string) {
	t.Helper()
	if !strings.Contains(out, want) {
		t.Fatalf("output missing %q:\n%s", want, out)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("HOME", t.TempDir())

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, target); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
}

func TestConfigValidateRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[sampling]\nlayers = 4\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, path); err == nil {
		t.Fatal("expected unknown key to fail validation")
	}
}

func TestPlanRendersRanges(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"plan", env.videoPath}, env.configPath)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireContains(t, out, "Tiles:")
	requireContains(t, out, "Frames per tile:")
	requireContains(t, out, "First frame")
	requireContains(t, out, "clip.mp4")

	out, _, err = runCLI(t, []string{"plan", "--json", env.videoPath}, env.configPath)
	if err != nil {
		t.Fatalf("plan --json: %v", err)
	}
	var plan tileplan.TilePlan
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("decode plan: %v\n%s", err, out)
	}
	if plan.TileCount != 2 || len(plan.Ranges) != 2 || plan.Ranges[1].End != 16 {
		t.Fatalf("unexpected plan %+v", plan)
	}
}

func TestPlanFlagsOverrideConfig(t *testing.T) {
	env := setupCLITestEnv(t)

	var got tileplan.Settings
	stubbed := prepareRun
	prepareRun = func(ctx context.Context, cfg *config.Config, source string, settings tileplan.Settings) (processor.RunContext, error) {
		got = settings
		return stubbed(ctx, cfg, source, settings)
	}

	_, _, err := runCLI(t, []string{"plan", "-n", "4", "--prioritize", "quantity", env.videoPath}, env.configPath)
	if err != nil && !errors.Is(err, services.ErrValidation) {
		t.Fatalf("plan: %v", err)
	}
	if got.CrossSectionCount != 4 || got.Prioritize != tileplan.Priority("quantity") {
		t.Fatalf("flags not applied: %+v", got)
	}

	if _, _, err := runCLI(t, []string{"plan", "--sampling", "diagonal", env.videoPath}, env.configPath); err == nil {
		t.Fatal("expected invalid sampling mode to be rejected")
	}
}

func TestPlanReportsShortfall(t *testing.T) {
	env := setupCLITestEnv(t)
	prepareRun = func(_ context.Context, cfg *config.Config, source string, settings tileplan.Settings) (processor.RunContext, error) {
		rc := processor.RunContext{
			Config:   cfg,
			Source:   source,
			Settings: settings,
			Kind:     tile.KindTextureArray,
			Plan:     tileplan.TilePlan{Notices: []string{"Video is short by 12 frames."}},
		}
		return rc, rc.Validate()
	}

	out, _, err := runCLI(t, []string{"plan", env.videoPath}, env.configPath)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	requireContains(t, out, "Notice: Video is short by 12 frames.")
}

func TestProcessLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"process", "--json", env.videoPath}, env.configPath)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	var summary processor.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if summary.Published() != 2 || summary.RunID == "" {
		t.Fatalf("unexpected summary %+v", summary)
	}
	runID := summary.RunID

	out, _, err = runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, shortID(runID))
	requireContains(t, out, "Completed")

	out, _, err = runCLI(t, []string{"runs", "--status", "failed"}, env.configPath)
	if err != nil {
		t.Fatalf("runs --status: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	out, _, err = runCLI(t, []string{"show", shortID(runID)}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "2 of 2 published")
	requireContains(t, out, "1.ktx2")
	requireContains(t, out, "2.ktx2")

	bundle := filepath.Join(t.TempDir(), "bundle.zip")
	out, _, err = runCLI(t, []string{"export", runID, "--output", bundle, "--level", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	requireContains(t, out, "Exported 2 tiles")
	zr, err := zip.OpenReader(bundle)
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	_ = zr.Close()
	if strings.Join(names, ",") != "metadata.json,1.ktx2,2.ktx2" {
		t.Fatalf("bundle entries = %v", names)
	}

	out, _, err = runCLI(t, []string{"runs", "delete", runID}, env.configPath)
	if err != nil {
		t.Fatalf("runs delete: %v", err)
	}
	requireContains(t, out, "Deleted run")
	if _, err := os.Stat(summary.RunDir); !os.IsNotExist(err) {
		t.Fatalf("run directory still present: %v", err)
	}
	if _, _, err := runCLI(t, []string{"show", runID}, env.configPath); err == nil {
		t.Fatal("expected deleted run to be unknown")
	}
}

func TestProcessRendersSummaryTable(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"process", "--format", "ktx2", env.videoPath}, env.configPath)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	requireContains(t, out, "2 of 2 published")
	requireContains(t, out, "SHA-256")
}

func TestProcessRejectsMissingSource(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"process", filepath.Join(t.TempDir(), "missing.mp4")}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "Source video") {
		t.Fatalf("expected source check failure, got %v", err)
	}
}

func TestProcessStopsOnFailedPreflight(t *testing.T) {
	env := setupCLITestEnv(t)
	runPreflight = func(context.Context, *config.Config) []preflight.Result {
		return []preflight.Result{{Name: "FFmpeg", Detail: "not found"}}
	}

	_, _, err := runCLI(t, []string{"process", env.videoPath}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "FFmpeg: not found") {
		t.Fatalf("expected preflight failure, got %v", err)
	}
}

func TestDepsReportsMissingRequired(t *testing.T) {
	env := setupCLITestEnv(t)
	original := checkSystemDeps
	t.Cleanup(func() { checkSystemDeps = original })
	checkSystemDeps = func(context.Context, *config.Config) []deps.Status {
		return []deps.Status{
			{Name: "FFmpeg", Command: "ffmpeg", Available: true},
			{Name: "FFprobe", Command: "ffprobe", Detail: "binary \"ffprobe\" not found"},
			{Name: "VP9 encoder", Optional: true, Detail: "libvpx-vp9 not listed"},
		}
	}

	out, _, err := runCLI(t, []string{"deps"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "FFprobe") || strings.Contains(err.Error(), "VP9") {
		t.Fatalf("expected only FFprobe to be reported missing, got %v", err)
	}
	requireContains(t, out, "missing")
	requireContains(t, out, "optional")
}
