package tileplan_test

import (
	"strings"
	"testing"

	"slyce/internal/tileplan"
)

func baseSettings() tileplan.Settings {
	return tileplan.Settings{
		SamplingMode:      tileplan.AxisRows,
		OutputMode:        tileplan.AxisRows,
		TileMode:          tileplan.TileModeTile,
		TileProportion:    tileplan.ProportionSquare,
		Prioritize:        tileplan.PriorityQuality,
		PotResolution:     256,
		CrossSectionCount: 4,
		CrossSectionType:  tileplan.DistributionPlanes,
	}
}

func TestPlanQualityShortfallReportsMissingFrames(t *testing.T) {
	plan := tileplan.Plan(tileplan.Input{
		SourceWidth:  1920,
		SourceHeight: 1080,
		FrameCount:   300,
		Settings:     baseSettings(),
	})
	if plan.TileCount != 0 {
		t.Fatalf("expected empty plan, got %d tiles", plan.TileCount)
	}
	if len(plan.Ranges) != 0 {
		t.Fatalf("expected no ranges, got %v", plan.Ranges)
	}
	if len(plan.Notices) != 1 {
		t.Fatalf("expected one notice, got %v", plan.Notices)
	}
	if !strings.Contains(plan.Notices[0], "short by 1620 frames.") {
		t.Fatalf("unexpected notice: %q", plan.Notices[0])
	}
	if !strings.Contains(plan.Notices[0], "requires 1920 frames") {
		t.Fatalf("notice should name the required frames: %q", plan.Notices[0])
	}
	if plan.Skipping != 300 {
		t.Fatalf("expected every frame skipped, got %d", plan.Skipping)
	}
}

func TestPlanQuantityScalesSquareTiles(t *testing.T) {
	settings := baseSettings()
	settings.Prioritize = tileplan.PriorityQuantity
	plan := tileplan.Plan(tileplan.Input{SourceWidth: 100, SourceHeight: 100, FrameCount: 300, Settings: settings})

	if plan.TileCount != 4 {
		t.Fatalf("tile count = %d, want 4", plan.TileCount)
	}
	if plan.FramesPerTile != 75 {
		t.Fatalf("frames per tile = %d, want 75", plan.FramesPerTile)
	}
	if plan.TileWidth != 75 || plan.TileHeight != 75 {
		t.Fatalf("tile dims = %dx%d, want 75x75", plan.TileWidth, plan.TileHeight)
	}
	if !plan.IsScaled || plan.ScaleFrom != 100 || plan.ScaleTo != 75 {
		t.Fatalf("unexpected scaling: scaled=%v from=%d to=%d", plan.IsScaled, plan.ScaleFrom, plan.ScaleTo)
	}
	if plan.Skipping != 0 {
		t.Fatalf("skipping = %d, want 0", plan.Skipping)
	}
	if len(plan.Notices) != 0 {
		t.Fatalf("unexpected notices: %v", plan.Notices)
	}
}

func TestPlanQuantityInvariant(t *testing.T) {
	settings := baseSettings()
	settings.Prioritize = tileplan.PriorityQuantity
	for _, proportion := range []tileplan.Proportion{tileplan.ProportionSquare, tileplan.ProportionLandscape, tileplan.ProportionPortrait} {
		for _, frames := range []int{90, 301, 1000, 4321} {
			settings.TileProportion = proportion
			plan := tileplan.Plan(tileplan.Input{SourceWidth: 160, SourceHeight: 90, FrameCount: frames, Settings: settings})
			aspect, _ := proportion.AspectRatio()
			naive := int(160 / aspect)
			if want := frames/naive + 1; plan.TileCount != want {
				t.Fatalf("%s/%d: tile count = %d, want %d", proportion, frames, plan.TileCount, want)
			}
			if plan.FramesPerTile*plan.TileCount > frames {
				t.Fatalf("%s/%d: %d tiles of %d frames exceed source", proportion, frames, plan.TileCount, plan.FramesPerTile)
			}
		}
	}
}

func TestPlanQualityRangesAreContiguous(t *testing.T) {
	settings := baseSettings()
	settings.TileProportion = tileplan.ProportionLandscape
	plan := tileplan.Plan(tileplan.Input{SourceWidth: 320, SourceHeight: 180, FrameCount: 1000, Settings: settings})

	if plan.FramesPerTile != 180 {
		t.Fatalf("frames per tile = %d, want 180", plan.FramesPerTile)
	}
	if plan.TileCount != 5 {
		t.Fatalf("tile count = %d, want 5", plan.TileCount)
	}
	next := 1
	sum := 0
	for i, r := range plan.Ranges {
		if r.Start != next {
			t.Fatalf("range %d starts at %d, want %d", i, r.Start, next)
		}
		if r.Len() != plan.FramesPerTile {
			t.Fatalf("range %d has %d frames, want %d", i, r.Len(), plan.FramesPerTile)
		}
		next = r.End + 1
		sum += r.Len()
	}
	if sum > 1000 {
		t.Fatalf("ranges cover %d frames, more than the source", sum)
	}
	if plan.Skipping != 1000-sum {
		t.Fatalf("skipping = %d, want %d", plan.Skipping, 1000-sum)
	}
	if plan.IsScaled {
		t.Fatal("quality plans must not resample")
	}
}

func TestPlanRotationTracksAxisMismatch(t *testing.T) {
	axes := []tileplan.Axis{tileplan.AxisRows, tileplan.AxisColumns}
	for _, sampling := range axes {
		for _, output := range axes {
			settings := baseSettings()
			settings.SamplingMode = sampling
			settings.OutputMode = output
			plan := tileplan.Plan(tileplan.Input{SourceWidth: 64, SourceHeight: 64, FrameCount: 500, Settings: settings})
			want := 0
			if sampling != output {
				want = 90
			}
			if plan.Rotate != want {
				t.Fatalf("sampling=%s output=%s: rotate=%d want %d", sampling, output, plan.Rotate, want)
			}
		}
	}
}

func TestPlanPowersOfTwo(t *testing.T) {
	cases := []struct {
		name       string
		output     tileplan.Axis
		proportion tileplan.Proportion
		wantW      int
		wantH      int
		wantFrames int
	}{
		{name: "rows square", output: tileplan.AxisRows, proportion: tileplan.ProportionSquare, wantW: 128, wantH: 128, wantFrames: 128},
		{name: "rows landscape", output: tileplan.AxisRows, proportion: tileplan.ProportionLandscape, wantW: 128, wantH: 72, wantFrames: 72},
		{name: "columns landscape", output: tileplan.AxisColumns, proportion: tileplan.ProportionLandscape, wantW: 227, wantH: 128, wantFrames: 227},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			settings := baseSettings()
			settings.Prioritize = tileplan.PriorityPowersOfTwo
			settings.PotResolution = 128
			settings.OutputMode = tc.output
			settings.SamplingMode = tc.output
			settings.TileProportion = tc.proportion
			plan := tileplan.Plan(tileplan.Input{SourceWidth: 640, SourceHeight: 360, FrameCount: 1000, Settings: settings})
			if plan.TileWidth != tc.wantW || plan.TileHeight != tc.wantH {
				t.Fatalf("dims = %dx%d, want %dx%d", plan.TileWidth, plan.TileHeight, tc.wantW, tc.wantH)
			}
			if plan.FramesPerTile != tc.wantFrames {
				t.Fatalf("frames per tile = %d, want %d", plan.FramesPerTile, tc.wantFrames)
			}
			if plan.TileCount != 1000/tc.wantFrames {
				t.Fatalf("tile count = %d, want %d", plan.TileCount, 1000/tc.wantFrames)
			}
			if !plan.IsScaled || plan.ScaleTo != 128 {
				t.Fatalf("expected scaling to 128, got scaled=%v to=%d", plan.IsScaled, plan.ScaleTo)
			}
		})
	}
}

func TestPlanPowersOfTwoRejectsInvalidResolution(t *testing.T) {
	settings := baseSettings()
	settings.Prioritize = tileplan.PriorityPowersOfTwo
	settings.PotResolution = 100
	plan := tileplan.Plan(tileplan.Input{SourceWidth: 640, SourceHeight: 360, FrameCount: 1000, Settings: settings})
	if plan.TileCount != 0 || len(plan.Notices) == 0 {
		t.Fatalf("expected empty plan with notice, got %+v", plan)
	}
}

func TestPlanFullModeUsesEveryFrame(t *testing.T) {
	settings := baseSettings()
	settings.TileMode = tileplan.TileModeFull
	settings.OutputMode = tileplan.AxisColumns
	plan := tileplan.Plan(tileplan.Input{SourceWidth: 200, SourceHeight: 100, FrameCount: 90, Settings: settings})
	if plan.TileCount != 1 {
		t.Fatalf("tile count = %d, want 1", plan.TileCount)
	}
	if plan.Ranges[0] != (tileplan.Range{Start: 1, End: 90}) {
		t.Fatalf("unexpected range %+v", plan.Ranges[0])
	}
	if plan.TileWidth != 90 || plan.TileHeight != 200 {
		t.Fatalf("dims = %dx%d, want 90x200", plan.TileWidth, plan.TileHeight)
	}
	if plan.Rotate != 90 {
		t.Fatalf("rotate = %d, want 90", plan.Rotate)
	}
	if plan.Skipping != 0 {
		t.Fatalf("skipping = %d, want 0", plan.Skipping)
	}
}

func TestPlanFramesToSampleCapsInput(t *testing.T) {
	settings := baseSettings()
	settings.FramesToSample = 250
	plan := tileplan.Plan(tileplan.Input{SourceWidth: 100, SourceHeight: 50, FrameCount: 1000, Settings: settings})
	if plan.TileCount != 2 {
		t.Fatalf("tile count = %d, want 2", plan.TileCount)
	}
	if plan.Skipping != 50 {
		t.Fatalf("skipping = %d, want 50", plan.Skipping)
	}
}

func TestPlanInvalidInputsProduceNotices(t *testing.T) {
	cases := []struct {
		name   string
		input  tileplan.Input
		notice string
	}{
		{
			name:   "missing frames",
			input:  tileplan.Input{SourceWidth: 10, SourceHeight: 10, Settings: baseSettings()},
			notice: "Insufficient data",
		},
		{
			name: "bad proportion",
			input: func() tileplan.Input {
				s := baseSettings()
				s.TileProportion = "round"
				return tileplan.Input{SourceWidth: 10, SourceHeight: 10, FrameCount: 100, Settings: s}
			}(),
			notice: "Invalid tile proportion.",
		},
		{
			name: "bad tile mode",
			input: func() tileplan.Input {
				s := baseSettings()
				s.TileMode = "mosaic"
				return tileplan.Input{SourceWidth: 10, SourceHeight: 10, FrameCount: 100, Settings: s}
			}(),
			notice: "Invalid tile mode.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan := tileplan.Plan(tc.input)
			if plan.TileCount != 0 {
				t.Fatalf("expected zero tiles, got %d", plan.TileCount)
			}
			if len(plan.Notices) == 0 || !strings.Contains(plan.Notices[0], tc.notice) {
				t.Fatalf("notices = %v, want one containing %q", plan.Notices, tc.notice)
			}
		})
	}
}

func TestEvenDimensionsTrimsOddSides(t *testing.T) {
	settings := baseSettings()
	settings.Prioritize = tileplan.PriorityQuantity
	plan := tileplan.Plan(tileplan.Input{SourceWidth: 100, SourceHeight: 100, FrameCount: 300, Settings: settings}).EvenDimensions()

	if plan.TileWidth != 74 || plan.TileHeight != 74 {
		t.Fatalf("dims = %dx%d, want 74x74", plan.TileWidth, plan.TileHeight)
	}
	if plan.FramesPerTile != 74 {
		t.Fatalf("frames per tile = %d, want 74", plan.FramesPerTile)
	}
	if plan.Ranges[3] != (tileplan.Range{Start: 223, End: 296}) {
		t.Fatalf("unexpected last range %+v", plan.Ranges[3])
	}
	if plan.Skipping != 4 {
		t.Fatalf("skipping = %d, want 4", plan.Skipping)
	}
	if plan.ScaleTo != 74 {
		t.Fatalf("scale to = %d, want 74", plan.ScaleTo)
	}
}

func TestTileForFrame(t *testing.T) {
	settings := baseSettings()
	plan := tileplan.Plan(tileplan.Input{SourceWidth: 10, SourceHeight: 10, FrameCount: 25, Settings: settings})
	cases := map[int]struct {
		idx int
		ok  bool
	}{
		0:  {0, false},
		1:  {0, true},
		10: {0, true},
		11: {1, true},
		20: {1, true},
		21: {0, false},
	}
	for frame, want := range cases {
		idx, ok := plan.TileForFrame(frame)
		if ok != want.ok || (ok && idx != want.idx) {
			t.Fatalf("frame %d: got (%d, %v), want (%d, %v)", frame, idx, ok, want.idx, want.ok)
		}
	}
}
