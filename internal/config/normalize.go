package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeExport()
	if err := c.normalizeDetector(); err != nil {
		return err
	}
	c.normalizeMedia()
	c.normalizeExecution()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.ExportDir, err = expandPath(strings.TrimSpace(c.Paths.ExportDir)); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
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

func (c *Config) normalizeExport() {
	c.Export.Layout = strings.ToLower(strings.TrimSpace(c.Export.Layout))
	if c.Export.Layout == "" {
		c.Export.Layout = LayoutStructured
	}
	c.Export.SourceFolder = defaultIfBlank(c.Export.SourceFolder, defaultSourceFolder)
	c.Export.DerivedFolder = defaultIfBlank(c.Export.DerivedFolder, defaultDerivedFolder)
	c.Export.UnredactedFolder = defaultIfBlank(c.Export.UnredactedFolder, defaultUnredactedFolder)
	c.Export.RedactedFolder = defaultIfBlank(c.Export.RedactedFolder, defaultRedactedFolder)
}

func (c *Config) normalizeDetector() error {
	c.Detector.Command = defaultIfBlank(c.Detector.Command, defaultDetectorCommand)
	if model := strings.TrimSpace(c.Detector.ModelPath); model != "" {
		expanded, err := expandPath(model)
		if err != nil {
			return fmt.Errorf("detector.model_path: %w", err)
		}
		c.Detector.ModelPath = expanded
	}
	return nil
}

func (c *Config) normalizeMedia() {
	c.Media.FFmpeg = defaultIfBlank(c.Media.FFmpeg, defaultFFmpeg)
	c.Media.FFprobe = defaultIfBlank(c.Media.FFprobe, defaultFFprobe)
	c.Media.Codec = defaultIfBlank(c.Media.Codec, defaultCodec)
	if c.Media.FallbackBitRate == 0 {
		c.Media.FallbackBitRate = defaultFallbackBitRate
	}
}

func (c *Config) normalizeExecution() {
	mode := strings.ToLower(strings.TrimSpace(c.Execution.Mode))
	mode = strings.ReplaceAll(mode, "-", "_")
	if mode == "" {
		mode = ExecutionInProcess
	}
	c.Execution.Mode = mode
	c.Execution.Command = strings.TrimSpace(c.Execution.Command)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(defaultIfBlank(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(defaultIfBlank(c.Logging.Level, defaultLogLevel))
}

func defaultIfBlank(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
