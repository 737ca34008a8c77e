package project

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestFileName)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifestDefaults(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "")

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}

	if m.Package.Name != "untitled" || m.Package.Version != "0.0.0" {
		t.Errorf("package defaults: %+v", m.Package)
	}
	if m.Build.Target != "native" || m.Build.Optimize {
		t.Errorf("build defaults: %+v", m.Build)
	}
	if m.Test.PropertyRounds != 1000 {
		t.Errorf("property_rounds default: %d", m.Test.PropertyRounds)
	}
	if m.Style.LineLength != 90 {
		t.Errorf("line_length default: %d", m.Style.LineLength)
	}
}

func TestLoadManifestValues(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `
[package]
name = "webserver"
version = "1.2.0"

[build]
optimize = true
c_flags = ["-Wall"]
link_flags = ["-static"]

[test]
property_rounds = 250

[explain]
operations = ["route", "dispatch"]
connectors = ["via"]
`)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}

	if m.Package.Name != "webserver" || m.Package.Version != "1.2.0" {
		t.Errorf("package: %+v", m.Package)
	}
	if !m.Build.Optimize || len(m.Build.CFlags) != 1 || m.Build.LinkFlags[0] != "-static" {
		t.Errorf("build: %+v", m.Build)
	}
	if m.Test.PropertyRounds != 250 {
		t.Errorf("property_rounds: %d", m.Test.PropertyRounds)
	}
	if len(m.Explain.Operations) != 2 || m.Explain.Connectors[0] != "via" {
		t.Errorf("explain: %+v", m.Explain)
	}
}

func TestUnsupportedTargetRejected(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "[build]\ntarget = \"wasm\"\n")

	if _, err := LoadManifest(path); err == nil {
		t.Error("only the native target is implemented")
	}
}

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[package]\nname = \"demo\"\n")

	nested := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	found, err := FindManifest(nested)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(found) != root {
		t.Errorf("found %q, want under %q", found, root)
	}
}

func TestFindManifestMissing(t *testing.T) {
	if _, err := FindManifest(t.TempDir()); err == nil {
		t.Error("expected an error when no manifest exists")
	}
}
