package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/ComedicChimera/olive"
	"github.com/pterm/pterm"

	"github.com/kennedyshead/prove/report"
)

// ProveVersion is the compiler version embedded in diagnostics and the
// version subcommand.
const ProveVersion = "0.4.0"

// Execute is the entry point of the `prove` CLI.
func Execute() {
	cli := olive.NewCLI("prove", "prove is a tool for managing Prove projects", true)
	logLvlArg := cli.AddSelectorArg("loglevel", "ll", "the compiler log level", false,
		[]string{"silent", "error", "warn", "verbose"})
	logLvlArg.SetDefaultValue("verbose")

	checkCmd := cli.AddSubcommand("check", "type-check and verify a project", true)
	checkCmd.AddPrimaryArg("project-path", "the path to the project", false)

	buildCmd := cli.AddSubcommand("build", "compile a project to a native binary", true)
	buildCmd.AddPrimaryArg("project-path", "the path to the project", false)

	testCmd := cli.AddSubcommand("test", "build and run the property-test harness", true)
	testCmd.AddPrimaryArg("project-path", "the path to the project", false)

	cli.AddSubcommand("version", "print the Prove version", false)

	result, err := olive.ParseArgs(cli, os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	subcmdName, subResult, _ := result.Subcommand()
	logLevel := logLevelOf(result.Arguments["loglevel"].(string))

	switch subcmdName {
	case "check":
		os.Exit(execCheck(subResult, logLevel))
	case "build":
		os.Exit(execBuild(subResult, logLevel))
	case "test":
		os.Exit(execTest(subResult, logLevel))
	case "version":
		fmt.Println("prove " + ProveVersion)
	}
}

func logLevelOf(name string) int {
	switch name {
	case "silent":
		return report.LogLevelSilent
	case "error":
		return report.LogLevelError
	case "warn":
		return report.LogLevelWarn
	default:
		return report.LogLevelVerbose
	}
}

func projectPath(result *olive.ArgParseResult) string {
	if path, ok := result.PrimaryArg(); ok {
		return path
	}
	return "."
}

// -----------------------------------------------------------------------------

// execCheck runs the pipeline without emission.  Exit code 0 means no
// errors.
func execCheck(result *olive.ArgParseResult, logLevel int) int {
	report.InitReporter(logLevel)

	c, err := NewCompiler(projectPath(result))
	if err != nil {
		report.ReportFatal("%s", err.Error())
	}

	ok := c.Analyze()
	renderDiagnostics(c)

	if logLevel >= report.LogLevelVerbose {
		printCoverage(c)
	}

	if !ok {
		return 1
	}
	return 0
}

// execBuild runs the pipeline and, on success, invokes the system C
// compiler; the process exits with the C compiler's code.
func execBuild(result *olive.ArgParseResult, logLevel int) int {
	report.InitReporter(logLevel)

	c, err := NewCompiler(projectPath(result))
	if err != nil {
		report.ReportFatal("%s", err.Error())
	}

	ok := c.Analyze()
	renderDiagnostics(c)
	if !ok {
		return 1
	}

	targetDir := filepath.Join(c.Manifest().Dir, "target")
	cDir := filepath.Join(targetDir, "c")

	cPaths, libs, err := c.Generate(cDir)
	if err != nil {
		report.ReportFatal("%s", err.Error())
	}

	binPath := filepath.Join(targetDir, c.Manifest().Package.Name)
	code, err := compileC(c.Manifest(), cPaths, libs, binPath)
	if err != nil {
		report.ReportFatal("%s", err.Error())
	}
	if code != 0 {
		return code
	}

	if logLevel >= report.LogLevelVerbose {
		pterm.FgLightGreen.Println("built " + c.Manifest().Package.Name + " -> " + binPath)
	}
	return 0
}

// execTest builds and then hands the binary to the external property-test
// harness.
func execTest(result *olive.ArgParseResult, logLevel int) int {
	if code := execBuild(result, logLevel); code != 0 {
		return code
	}

	c, err := NewCompiler(projectPath(result))
	if err != nil {
		report.ReportFatal("%s", err.Error())
	}

	harness, err := exec.LookPath("prove-proptest")
	if err != nil {
		fmt.Fprintln(os.Stderr, "prove test: property harness `prove-proptest` not found on PATH")
		return 1
	}

	binPath := filepath.Join(c.Manifest().Dir, "target", c.Manifest().Package.Name)
	cmd := exec.Command(harness, binPath,
		"--rounds", strconv.Itoa(c.Manifest().Test.PropertyRounds))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode()
		}
		return 1
	}
	return 0
}

// -----------------------------------------------------------------------------

// renderDiagnostics prints every accumulated diagnostic.
func renderDiagnostics(c *Compiler) {
	renderer := report.NewRenderer(c.Sources(), isTerminal())
	out := renderer.RenderAll()
	if out != "" {
		fmt.Fprint(os.Stderr, out)
	}
}

// printCoverage prints the verification-chain coverage summary.
func printCoverage(c *Compiler) {
	gaps := c.ChainGaps()
	if len(gaps) == 0 {
		return
	}

	pterm.FgYellow.Println("verification chain gaps:")
	for _, gap := range gaps {
		fmt.Printf("  %s calls %s, which has no ensures and is not trusted\n",
			gap.From.Name, gap.Callee.Name)
	}
}

func isTerminal() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
