package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"blurry/internal/config"
	"blurry/internal/filename"
	"blurry/internal/services"
)

// ErrInvalidExportLayout marks an export root that does not satisfy the policy.
var ErrInvalidExportLayout = services.ErrInvalidExportLayout

// Paths holds the directories and files produced for one queue entry.
type Paths struct {
	UntouchedDir  string
	UntouchedPath string
	RedactedDir   string
	RedactedPath  string
}

// Policy decides where an entry's outputs go.
type Policy interface {
	Name() string
	Root() string
	// Validate checks the export root without creating anything.
	Validate() error
	// Paths derives output locations for a target filename. sourceExt is the
	// extension of the source video, which the untouched copy keeps.
	Paths(target, sourceExt string) (Paths, error)
}

// New returns the policy selected by cfg.Export.Layout rooted at cfg.Paths.ExportDir.
func New(cfg *config.Config) (Policy, error) {
	root := cfg.Paths.ExportDir
	switch cfg.Export.Layout {
	case config.LayoutStructured:
		return Structured{root: root, source: cfg.Export.SourceFolder, derived: cfg.Export.DerivedFolder}, nil
	case config.LayoutFlat:
		return Flat{root: root, unredacted: cfg.Export.UnredactedFolder, redacted: cfg.Export.RedactedFolder}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "layout", "select policy",
			fmt.Sprintf("unknown layout %q", cfg.Export.Layout), nil)
	}
}

// Ensure creates both output directories. Existing directories are fine.
func Ensure(p Paths) error {
	for _, dir := range []string{p.UntouchedDir, p.RedactedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrMediaWrite, "layout", "create directory", dir, err)
		}
	}
	return nil
}

// Structured files outputs by subject, session and medication state.
type Structured struct {
	root    string
	source  string
	derived string
}

// NewStructured builds a structured policy with explicit folder names.
func NewStructured(root, sourceFolder, derivedFolder string) Structured {
	return Structured{root: root, source: sourceFolder, derived: derivedFolder}
}

func (s Structured) Name() string { return config.LayoutStructured }

func (s Structured) Root() string { return s.root }

func (s Structured) Validate() error {
	if err := checkWritableDir(s.root); err != nil {
		return invalid(s.root, err)
	}
	for _, folder := range []string{s.source, s.derived} {
		path := filepath.Join(s.root, folder)
		if err := checkWritableDir(path); err != nil {
			return invalid(path, err)
		}
	}
	return nil
}

func (s Structured) Paths(target, sourceExt string) (Paths, error) {
	fields, err := filename.Parse(target)
	if err != nil {
		return Paths{}, fmt.Errorf("derive export paths: %w", err)
	}
	untouched, err := untouchedName(target, sourceExt)
	if err != nil {
		return Paths{}, err
	}
	sub := filepath.Join(fields.SubjectToken(), fields.SessionToken(), fields.MedicationToken())
	p := Paths{
		UntouchedDir: filepath.Join(s.root, s.source, sub),
		RedactedDir:  filepath.Join(s.root, s.derived, sub),
	}
	p.UntouchedPath = filepath.Join(p.UntouchedDir, untouched)
	p.RedactedPath = filepath.Join(p.RedactedDir, filepath.Base(target))
	return p, nil
}

// Flat drops outputs into two folders directly under the root.
type Flat struct {
	root       string
	unredacted string
	redacted   string
}

// NewFlat builds a flat policy with explicit folder names.
func NewFlat(root, unredactedFolder, redactedFolder string) Flat {
	return Flat{root: root, unredacted: unredactedFolder, redacted: redactedFolder}
}

func (f Flat) Name() string { return config.LayoutFlat }

func (f Flat) Root() string { return f.root }

func (f Flat) Validate() error {
	if err := checkWritableDir(f.root); err != nil {
		return invalid(f.root, err)
	}
	for _, folder := range []string{f.unredacted, f.redacted} {
		path := filepath.Join(f.root, folder)
		info, err := os.Stat(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return invalid(path, err)
		case !info.IsDir():
			return invalid(path, errors.New("is not a directory"))
		}
	}
	return nil
}

func (f Flat) Paths(target, sourceExt string) (Paths, error) {
	untouched, err := untouchedName(target, sourceExt)
	if err != nil {
		return Paths{}, err
	}
	p := Paths{
		UntouchedDir: filepath.Join(f.root, f.unredacted),
		RedactedDir:  filepath.Join(f.root, f.redacted),
	}
	p.UntouchedPath = filepath.Join(p.UntouchedDir, untouched)
	p.RedactedPath = filepath.Join(p.RedactedDir, filepath.Base(target))
	return p, nil
}

func untouchedName(target, sourceExt string) (string, error) {
	name, err := filename.Unredacted(filepath.Base(target))
	if err != nil {
		return "", fmt.Errorf("derive untouched name: %w", err)
	}
	if strings.TrimSpace(sourceExt) == "" {
		return name, nil
	}
	return filename.WithExtension(name, sourceExt), nil
}

func checkWritableDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errors.New("does not exist")
		}
		return fmt.Errorf("stat: %w", err)
	}
	if !info.IsDir() {
		return errors.New("is not a directory")
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("insufficient permissions: %w", err)
	}
	return nil
}

func invalid(path string, err error) error {
	return services.Wrap(ErrInvalidExportLayout, "layout", "validate", path, err)
}
