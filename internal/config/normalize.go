package config

import (
	"fmt"
	"runtime"
	"strings"

	"slyce/internal/tileplan"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSampling()
	c.normalizeEncoding()
	c.normalizeTools()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

// normalizeSampling canonicalizes enum spellings. Unknown values are left
// for Validate to report.
func (c *Config) normalizeSampling() {
	s := &c.Sampling
	if v, err := tileplan.ParseDistribution(s.CrossSectionType); err == nil {
		s.CrossSectionType = string(v)
	}
	if v, err := tileplan.ParseAxis(s.SamplingMode); err == nil {
		s.SamplingMode = string(v)
	}
	if v, err := tileplan.ParseAxis(s.OutputMode); err == nil {
		s.OutputMode = string(v)
	}
	if v, err := tileplan.ParseTileMode(s.TileMode); err == nil {
		s.TileMode = string(v)
	}
	if v, err := tileplan.ParseProportion(s.TileProportion); err == nil {
		s.TileProportion = string(v)
	}
	if v, err := tileplan.ParsePriority(s.Prioritize); err == nil {
		s.Prioritize = string(v)
	}
}

func (c *Config) normalizeEncoding() {
	e := &c.Encoding
	if e.Workers <= 0 {
		e.Workers = runtime.NumCPU()
	}
	e.OutputFormat = strings.ToLower(strings.TrimSpace(e.OutputFormat))
	if e.OutputFormat == "" {
		e.OutputFormat = defaultOutputFormat
	}
	e.Supercompression = strings.ToLower(strings.TrimSpace(e.Supercompression))
	if e.Supercompression == "" {
		e.Supercompression = defaultSupercompression
	}
	if e.ZstdLevel == 0 {
		e.ZstdLevel = defaultZstdLevel
	}
	if e.PoolTiles == 0 {
		e.PoolTiles = defaultPoolTiles
	}
	if e.LoopFPS == 0 {
		e.LoopFPS = defaultLoopFPS
	}
	if e.LoopBitrate == 0 {
		e.LoopBitrate = defaultLoopBitrate
	}
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
