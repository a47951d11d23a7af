package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"blurry/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The export root exists but is empty; use WithStructuredRoot or
// WithFlatLayout to make it valid for a batch.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ExportDir = filepath.Join(base, "export")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	if err := os.MkdirAll(cfgVal.Paths.ExportDir, 0o755); err != nil {
		t.Fatalf("mkdir export dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithStructuredRoot creates the source and derived folders the structured
// layout requires under the export root.
func WithStructuredRoot() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Export.Layout = config.LayoutStructured
		for _, name := range []string{b.cfg.Export.SourceFolder, b.cfg.Export.DerivedFolder} {
			if err := os.MkdirAll(filepath.Join(b.cfg.Paths.ExportDir, name), 0o755); err != nil {
				b.t.Fatalf("mkdir %s: %v", name, err)
			}
		}
	}
}

// WithFlatLayout switches the config to the flat export layout.
func WithFlatLayout() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Export.Layout = config.LayoutFlat
	}
}

// WithSubprocess switches the config to subprocess execution using command.
func WithSubprocess(command string, args ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Execution.Mode = config.ExecutionSubprocess
		b.cfg.Execution.Command = command
		if len(args) > 0 {
			b.cfg.Execution.Args = args
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg, ffprobe and the detector
// helper are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", b.cfg.Detector.Command}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteScript(b.t, binDir, name, "exit 0\n")
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
