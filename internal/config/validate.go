package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateDetector(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateExecution(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.ExportDir == "" {
		return errors.New("paths.export_dir must be set")
	}
	return nil
}

func (c *Config) validateExport() error {
	switch c.Export.Layout {
	case LayoutStructured:
		if err := ensureFolderNames(map[string]string{
			"export.source_folder":  c.Export.SourceFolder,
			"export.derived_folder": c.Export.DerivedFolder,
		}); err != nil {
			return err
		}
		if c.Export.SourceFolder == c.Export.DerivedFolder {
			return errors.New("export.source_folder and export.derived_folder must differ")
		}
	case LayoutFlat:
		if err := ensureFolderNames(map[string]string{
			"export.unredacted_folder": c.Export.UnredactedFolder,
			"export.redacted_folder":   c.Export.RedactedFolder,
		}); err != nil {
			return err
		}
		if c.Export.UnredactedFolder == c.Export.RedactedFolder {
			return errors.New("export.unredacted_folder and export.redacted_folder must differ")
		}
	default:
		return fmt.Errorf("export.layout must be %q or %q, got %q", LayoutStructured, LayoutFlat, c.Export.Layout)
	}
	return nil
}

func (c *Config) validateDetector() error {
	if c.Detector.Threshold <= 0 || c.Detector.Threshold > 1 {
		return errors.New("detector.threshold must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateMedia() error {
	if c.Media.FallbackBitRate < 0 {
		return errors.New("media.fallback_bit_rate must be positive")
	}
	return nil
}

func (c *Config) validateExecution() error {
	switch c.Execution.Mode {
	case ExecutionInProcess:
		return nil
	case ExecutionSubprocess:
		if c.Execution.Command == "" {
			return errors.New("execution.command must be set when execution.mode is subprocess")
		}
		joined := strings.Join(c.Execution.Args, " ")
		for _, placeholder := range []string{"{input}", "{output}"} {
			if !strings.Contains(joined, placeholder) {
				return fmt.Errorf("execution.args must reference %s", placeholder)
			}
		}
		return nil
	default:
		return fmt.Errorf("execution.mode must be %q or %q, got %q", ExecutionInProcess, ExecutionSubprocess, c.Execution.Mode)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensureFolderNames(values map[string]string) error {
	for key, value := range values {
		if value == "" {
			return fmt.Errorf("%s must be set", key)
		}
		if value != filepath.Base(value) || value == "." || value == ".." {
			return fmt.Errorf("%s must be a single folder name, got %q", key, value)
		}
	}
	return nil
}
