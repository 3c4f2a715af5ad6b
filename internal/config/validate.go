package config

import (
	"errors"
	"fmt"

	"slyce/internal/tileplan"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSampling(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSampling() error {
	s := c.Sampling
	if s.CrossSectionCount < 1 {
		return errors.New("sampling.cross_section_count must be >= 1")
	}
	if _, err := tileplan.ParseDistribution(s.CrossSectionType); err != nil {
		return fmt.Errorf("sampling.cross_section_type: %w", err)
	}
	if _, err := tileplan.ParseAxis(s.SamplingMode); err != nil {
		return fmt.Errorf("sampling.sampling_mode: %w", err)
	}
	if _, err := tileplan.ParseAxis(s.OutputMode); err != nil {
		return fmt.Errorf("sampling.output_mode: %w", err)
	}
	if _, err := tileplan.ParseTileMode(s.TileMode); err != nil {
		return fmt.Errorf("sampling.tile_mode: %w", err)
	}
	if _, err := tileplan.ParseProportion(s.TileProportion); err != nil {
		return fmt.Errorf("sampling.tile_proportion: %w", err)
	}
	priority, err := tileplan.ParsePriority(s.Prioritize)
	if err != nil {
		return fmt.Errorf("sampling.prioritize: %w", err)
	}
	if priority == tileplan.PriorityPowersOfTwo && (s.PotResolution <= 0 || s.PotResolution&(s.PotResolution-1) != 0) {
		return fmt.Errorf("sampling.pot_resolution must be a power of two, got %d", s.PotResolution)
	}
	if s.FramesToSample < 0 {
		return errors.New("sampling.frames_to_sample must be >= 0")
	}
	return nil
}

func (c *Config) validateEncoding() error {
	e := c.Encoding
	switch e.OutputFormat {
	case "ktx2", "webm":
	default:
		return fmt.Errorf("encoding.output_format must be ktx2 or webm, got %q", e.OutputFormat)
	}
	switch e.Supercompression {
	case "none", "zstd":
	default:
		return fmt.Errorf("encoding.supercompression must be none or zstd, got %q", e.Supercompression)
	}
	if e.ZstdLevel < 1 || e.ZstdLevel > 22 {
		return fmt.Errorf("encoding.zstd_level must be between 1 and 22, got %d", e.ZstdLevel)
	}
	if e.PoolTiles < 1 {
		return errors.New("encoding.pool_tiles must be >= 1")
	}
	if e.LoopFPS < 1 {
		return errors.New("encoding.loop_fps must be >= 1")
	}
	if e.LoopBitrate < 1 {
		return errors.New("encoding.loop_bitrate must be >= 1")
	}
	return nil
}

func (c *Config) validateExport() error {
	if c.Export.CompressionLevel < 0 || c.Export.CompressionLevel > 9 {
		return fmt.Errorf("export.compression_level must be between 0 and 9, got %d", c.Export.CompressionLevel)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
