package config

import "runtime"

const (
	defaultOutputDir         = "~/.local/share/slyce/output"
	defaultStateDir          = "~/.local/share/slyce/state"
	defaultLogDir            = "~/.local/share/slyce/logs"
	defaultCrossSectionCount = 16
	defaultCrossSectionType  = "planes"
	defaultSamplingMode      = "rows"
	defaultOutputMode        = "rows"
	defaultTileMode          = "tile"
	defaultTileProportion    = "square"
	defaultPrioritize        = "quality"
	defaultPotResolution     = 256
	defaultOutputFormat      = "ktx2"
	defaultSupercompression  = "none"
	defaultZstdLevel         = 3
	defaultPoolTiles         = 3
	defaultLoopFPS           = 30
	defaultLoopBitrate       = 3_000_000
	defaultCompressionLevel  = 6
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Sampling: Sampling{
			CrossSectionCount: defaultCrossSectionCount,
			CrossSectionType:  defaultCrossSectionType,
			SamplingMode:      defaultSamplingMode,
			OutputMode:        defaultOutputMode,
			TileMode:          defaultTileMode,
			TileProportion:    defaultTileProportion,
			Prioritize:        defaultPrioritize,
			PotResolution:     defaultPotResolution,
		},
		Encoding: Encoding{
			Workers:          runtime.NumCPU(),
			OutputFormat:     defaultOutputFormat,
			Mipmaps:          true,
			Supercompression: defaultSupercompression,
			ZstdLevel:        defaultZstdLevel,
			PoolTiles:        defaultPoolTiles,
			LoopFPS:          defaultLoopFPS,
			LoopBitrate:      defaultLoopBitrate,
		},
		Tools: Tools{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
		},
		Export: Export{
			CompressionLevel: defaultCompressionLevel,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
