// Package project loads the prove.toml manifest that configures a build.
package project

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// ManifestFileName is the file name of the project manifest.
const ManifestFileName = "prove.toml"

// PackageSection holds the `[package]` keys.
type PackageSection struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// BuildSection holds the `[build]` keys.
type BuildSection struct {
	Target    string   `toml:"target"`
	Optimize  bool     `toml:"optimize"`
	CFlags    []string `toml:"c_flags"`
	LinkFlags []string `toml:"link_flags"`
}

// TestSection holds the `[test]` keys.  The property-test iteration count is
// consumed by the external harness generator, not by the core.
type TestSection struct {
	PropertyRounds int `toml:"property_rounds"`
}

// StyleSection holds the `[style]` keys consumed by the external formatter.
type StyleSection struct {
	LineLength int `toml:"line_length"`
}

// ExplainSection holds the `[explain]` keys that extend the controlled-
// natural-language vocabulary recognized by the contract verifier.
type ExplainSection struct {
	Operations []string `toml:"operations"`
	Connectors []string `toml:"connectors"`
}

// Manifest is a fully-loaded prove.toml with defaults applied.
type Manifest struct {
	Package PackageSection `toml:"package"`
	Build   BuildSection   `toml:"build"`
	Test    TestSection    `toml:"test"`
	Style   StyleSection   `toml:"style"`
	Explain ExplainSection `toml:"explain"`

	// Dir is the directory containing the manifest.
	Dir string `toml:"-"`
}

// DefaultManifest returns a manifest with every key at its default value.
func DefaultManifest(dir string) *Manifest {
	return &Manifest{
		Package: PackageSection{Name: "untitled", Version: "0.0.0"},
		Build:   BuildSection{Target: "native"},
		Test:    TestSection{PropertyRounds: 1000},
		Style:   StyleSection{LineLength: 90},
		Dir:     dir,
	}
}

// FindManifest walks up from the given directory looking for prove.toml.
func FindManifest(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", errors.Wrap(err, "resolving project path")
	}

	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		candidate := filepath.Join(dir, ManifestFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.Errorf("no %s found in any parent directory", ManifestFileName)
		}
		dir = parent
	}
}

// LoadManifest reads and validates a prove.toml file.
func LoadManifest(path string) (*Manifest, error) {
	buff, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading manifest at `%s`", path)
	}

	m := DefaultManifest(filepath.Dir(path))
	if err := toml.Unmarshal(buff, m); err != nil {
		return nil, errors.Wrapf(err, "parsing manifest at `%s`", path)
	}

	if m.Package.Name == "" {
		m.Package.Name = "untitled"
	}
	if m.Build.Target == "" {
		m.Build.Target = "native"
	}
	if m.Build.Target != "native" {
		return nil, errors.Errorf("unsupported build target `%s`: only `native` is implemented", m.Build.Target)
	}
	if m.Test.PropertyRounds <= 0 {
		m.Test.PropertyRounds = 1000
	}

	return m, nil
}
