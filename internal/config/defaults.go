package config

const (
	defaultConfigPath       = "~/.config/blurry/config.toml"
	defaultExportDir        = "~/blurry/export"
	defaultStateDir         = "~/.local/share/blurry"
	defaultLogDir           = "~/.local/share/blurry/logs"
	defaultSourceFolder     = "sourcedata"
	defaultDerivedFolder    = "derivatives"
	defaultUnredactedFolder = "unblurred"
	defaultRedactedFolder   = "blurred"
	defaultDetectorCommand  = "blurry-detect"
	defaultDetectorThresh   = 0.5
	defaultFFmpeg           = "ffmpeg"
	defaultFFprobe          = "ffprobe"
	defaultCodec            = "libx264"
	defaultFallbackBitRate  = 4_000_000
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Layout policies.
const (
	LayoutStructured = "structured"
	LayoutFlat       = "flat"
)

// Execution modes.
const (
	ExecutionInProcess  = "in_process"
	ExecutionSubprocess = "subprocess"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ExportDir: defaultExportDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Export: Export{
			Layout:           LayoutStructured,
			SourceFolder:     defaultSourceFolder,
			DerivedFolder:    defaultDerivedFolder,
			UnredactedFolder: defaultUnredactedFolder,
			RedactedFolder:   defaultRedactedFolder,
		},
		Detector: Detector{
			Command:   defaultDetectorCommand,
			Threshold: defaultDetectorThresh,
		},
		Media: Media{
			FFmpeg:          defaultFFmpeg,
			FFprobe:         defaultFFprobe,
			Codec:           defaultCodec,
			FallbackBitRate: defaultFallbackBitRate,
		},
		Execution: Execution{
			Mode: ExecutionInProcess,
			Args: []string{"{input}", "--output", "{output}", "--thresh", "{threshold}"},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
