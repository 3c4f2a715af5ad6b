package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"slyce/internal/tileplan"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// Sampling holds the default tile layout applied when the CLI does not override it.
type Sampling struct {
	CrossSectionCount int    `toml:"cross_section_count"`
	CrossSectionType  string `toml:"cross_section_type"`
	SamplingMode      string `toml:"sampling_mode"`
	OutputMode        string `toml:"output_mode"`
	TileMode          string `toml:"tile_mode"`
	TileProportion    string `toml:"tile_proportion"`
	Prioritize        string `toml:"prioritize"`
	PotResolution     int    `toml:"pot_resolution"`
	FramesToSample    int    `toml:"frames_to_sample"`
}

// Encoding tunes the texture and loop encoders.
type Encoding struct {
	Workers          int    `toml:"workers"`
	OutputFormat     string `toml:"output_format"`
	Mipmaps          bool   `toml:"mipmaps"`
	Supercompression string `toml:"supercompression"`
	ZstdLevel        int    `toml:"zstd_level"`
	PoolTiles        int    `toml:"pool_tiles"`
	LoopFPS          int    `toml:"loop_fps"`
	LoopBitrate      int    `toml:"loop_bitrate"`
}

// Tools names the external binaries.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Export controls ZIP bundles.
type Export struct {
	CompressionLevel int `toml:"compression_level"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for slyce.
//
// Configuration sections by subsystem:
//   - Paths: artifact output, run registry and log directories
//   - Sampling: default tile plan settings
//   - Encoding: worker count, output format and compression
//   - Tools: ffmpeg and ffprobe executables
//   - Export: ZIP compression level
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Sampling Sampling `toml:"sampling"`
	Encoding Encoding `toml:"encoding"`
	Tools    Tools    `toml:"tools"`
	Export   Export   `toml:"export"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/slyce/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Reapply normalizes and validates the config again after callers override
// individual fields, such as from command-line flags.
func (c *Config) Reapply() error {
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("slyce.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Settings collapses the sampling section into planner settings.
func (c *Config) Settings() tileplan.Settings {
	return tileplan.Settings{
		SamplingMode:      tileplan.Axis(c.Sampling.SamplingMode),
		OutputMode:        tileplan.Axis(c.Sampling.OutputMode),
		TileMode:          tileplan.TileMode(c.Sampling.TileMode),
		TileProportion:    tileplan.Proportion(c.Sampling.TileProportion),
		Prioritize:        tileplan.Priority(c.Sampling.Prioritize),
		PotResolution:     c.Sampling.PotResolution,
		CrossSectionCount: c.Sampling.CrossSectionCount,
		CrossSectionType:  tileplan.Distribution(c.Sampling.CrossSectionType),
		FramesToSample:    c.Sampling.FramesToSample,
	}
}

// FFmpegBinary returns the ffmpeg executable used for decoding and loop encoding.
func (c *Config) FFmpegBinary() string {
	if v := strings.TrimSpace(c.Tools.FFmpeg); v != "" {
		return v
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable used for source inspection.
func (c *Config) FFprobeBinary() string {
	if v := strings.TrimSpace(c.Tools.FFprobe); v != "" {
		return v
	}
	return "ffprobe"
}

// RegistryPath returns the SQLite run registry location.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.Paths.StateDir, "runs.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
