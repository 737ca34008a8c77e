// Package cmd implements the prove CLI: a thin dispatcher over the
// compilation pipeline.
package cmd

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/codegen"
	"github.com/kennedyshead/prove/project"
	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/resolve"
	"github.com/kennedyshead/prove/source"
	"github.com/kennedyshead/prove/syntax"
	"github.com/kennedyshead/prove/types"
	"github.com/kennedyshead/prove/verify"
	"github.com/kennedyshead/prove/walk"
)

// compiledModule is the per-file result of the analysis phase.
type compiledModule struct {
	file  *source.File
	mod   *ast.Module
	res   *resolve.Resolver
	wlk   *walk.Walker
	clean bool
}

// Compiler holds the global state of one compilation run.  Modules are
// processed one after another; each stage consumes only the previous
// stage's output and continues as far as possible.
type Compiler struct {
	manifest *project.Manifest
	srcs     *source.Map

	modules []*compiledModule

	// mono is the merged monomorphization table; merging happens on a
	// single thread after per-module analysis.
	mono *types.MonoTable

	// gaps is the verification-chain coverage summary.
	gaps []verify.ChainGap
}

// NewCompiler creates a compiler for the project containing `rootPath`.
func NewCompiler(rootPath string) (*Compiler, error) {
	manifestPath, err := project.FindManifest(rootPath)
	if err != nil {
		return nil, err
	}

	manifest, err := project.LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	return &Compiler{
		manifest: manifest,
		srcs:     source.NewMap(),
		mono:     types.NewMonoTable(),
	}, nil
}

// Sources returns the source map for diagnostic rendering.
func (c *Compiler) Sources() *source.Map {
	return c.srcs
}

// Manifest returns the loaded project manifest.
func (c *Compiler) Manifest() *project.Manifest {
	return c.manifest
}

// sourceFiles discovers the project's .prv files, preferring src/ under the
// manifest directory.
func (c *Compiler) sourceFiles() ([]string, error) {
	srcDir := filepath.Join(c.manifest.Dir, "src")
	if info, err := os.Stat(srcDir); err != nil || !info.IsDir() {
		srcDir = c.manifest.Dir
	}

	var files []string
	err := filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".prv" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "discovering source files")
	}

	sort.Strings(files)
	return files, nil
}

// Analyze runs the front-end and semantic pipeline over every source file.
// A module with errors skips its later stages but the remaining modules
// still run.  The return value is false if any module reported errors.
func (c *Compiler) Analyze() bool {
	files, err := c.sourceFiles()
	if err != nil {
		report.ReportFatal("%s", err.Error())
	}
	if len(files) == 0 {
		report.ReportFatal("no .prv files found under `%s`", c.manifest.Dir)
	}

	for _, path := range files {
		c.analyzeFile(path)
	}

	return !report.AnyErrors()
}

// analyzeFile runs one file through lex, parse, resolve, check, and verify.
func (c *Compiler) analyzeFile(path string) {
	file, err := source.Load(path)
	if err != nil {
		// Source I/O failures are internal errors: they abort the pipeline.
		report.ReportFatal("%s", err.Error())
	}
	c.srcs.Add(file)

	cm := &compiledModule{file: file}
	c.modules = append(c.modules, cm)

	tokens, lexOK := syntax.NewLexer(file).Lex()
	mod, parseOK := syntax.NewParser(file, tokens).Parse()
	cm.mod = mod
	if !lexOK || !parseOK {
		return
	}

	cm.res = resolve.NewResolver(mod)
	if !cm.res.Resolve() {
		return
	}

	cm.wlk = walk.NewWalker(mod, cm.res.Table())
	if !cm.wlk.Walk() {
		return
	}

	verifier := verify.NewVerifier(mod, cm.res.Table(), cm.wlk, cm.res.Networks(),
		c.manifest.Explain.Operations, c.manifest.Explain.Connectors)
	if !verifier.Verify() {
		c.gaps = append(c.gaps, verifier.Gaps...)
		return
	}
	c.gaps = append(c.gaps, verifier.Gaps...)

	c.mono.Merge(cm.wlk.Mono())
	cm.clean = true
}

// ChainGaps returns the verification-chain coverage summary.
func (c *Compiler) ChainGaps() []verify.ChainGap {
	return c.gaps
}

// Generate emits C translation units for every error-free module into the
// target directory and returns their paths plus the foreign libraries to
// link.  The target directory is created if it does not exist.
func (c *Compiler) Generate(outDir string) ([]string, []string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, nil, errors.Wrap(err, "creating output directory")
	}

	var paths []string
	var libs []string
	seenLibs := make(map[string]struct{})

	for _, cm := range c.modules {
		if !cm.clean {
			continue
		}

		base := filepath.Base(cm.file.Name)
		unitName := base[:len(base)-len(filepath.Ext(base))] + ".c"

		gen := codegen.NewGenerator(cm.mod, cm.res.Table(), c.mono)
		unit := gen.Generate(unitName)

		outPath := filepath.Join(outDir, unit.Name)
		if err := os.WriteFile(outPath, []byte(unit.Source), 0o644); err != nil {
			return nil, nil, errors.Wrapf(err, "writing `%s`", outPath)
		}
		paths = append(paths, outPath)

		for _, lib := range unit.Libraries {
			if _, dup := seenLibs[lib]; !dup {
				seenLibs[lib] = struct{}{}
				libs = append(libs, lib)
			}
		}
	}

	return paths, libs, nil
}
