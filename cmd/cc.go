package cmd

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/kennedyshead/prove/project"
)

// findCCompiler locates the system C compiler, honoring $CC.
func findCCompiler() (string, error) {
	if cc := os.Getenv("CC"); cc != "" {
		return cc, nil
	}
	for _, name := range []string{"cc", "gcc", "clang"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", errors.New("no C compiler found: install cc, gcc, or clang, or set $CC")
}

// runtimeDir locates the runtime sources shipped next to the compiler,
// overridable with $PROVE_RUNTIME.
func runtimeDir() string {
	if dir := os.Getenv("PROVE_RUNTIME"); dir != "" {
		return dir
	}
	exe, err := os.Executable()
	if err != nil {
		return "runtime"
	}
	return filepath.Join(filepath.Dir(exe), "runtime")
}

// compileC invokes the system C compiler over the generated units and
// returns its exit code.
func compileC(manifest *project.Manifest, cPaths []string, foreignLibs []string, outPath string) (int, error) {
	cc, err := findCCompiler()
	if err != nil {
		return 1, err
	}

	rtDir := runtimeDir()

	args := []string{"-std=c11", "-I" + rtDir}
	if manifest.Build.Optimize {
		args = append(args, "-O2")
	}
	args = append(args, manifest.Build.CFlags...)
	args = append(args, cPaths...)

	// Runtime translation units build alongside the program.
	rtSources, _ := filepath.Glob(filepath.Join(rtDir, "*.c"))
	args = append(args, rtSources...)

	args = append(args, "-o", outPath)
	for _, lib := range foreignLibs {
		args = append(args, "-l"+strings.TrimPrefix(lib, "lib"))
	}
	args = append(args, manifest.Build.LinkFlags...)

	cmd := exec.Command(cc, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return 1, errors.Wrap(err, "running C compiler")
	}
	return 0, nil
}
