package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"exportgen/internal/diag"
	"exportgen/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "exportgen <inputs...> /OUT:<file> [/REF:<file>...] [assembler options...]",
	Short: "Generate unmanaged export stubs for managed modules",
	Long: `exportgen scans managed modules for static methods carrying an export
marker, renders a forwarding stub for each one and assembles the stubs into a
new module with the platform assembler. Options starting with '/' other than
/OUT and /REF are passed to the assembler unchanged.`,
	Args:              cobra.ArbitraryArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupRoot,
	RunE:              runBuild,
}

// traceCleanup is set by setupRoot and flushed after Execute returns, since
// post-run hooks are skipped when a command fails.
var traceCleanup = func() {}

// exitStatus carries a non-zero assembler status out of RunE.
type exitStatus int

func (e exitStatus) Error() string {
	return fmt.Sprintf("assembler exited with status %d", int(e))
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	rootCmd.Version = version.Version
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	traceCleanup()
	if err == nil {
		return 0
	}
	var status exitStatus
	if errors.As(err, &status) {
		return int(status)
	}
	detail, _ := rootCmd.PersistentFlags().GetBool("detail")
	reportError(rootCmd.ErrOrStderr(), err, detail || diagnosticBuild)
	return diag.ExitCode(err)
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "", "path to exportgen.toml (default: search upwards from the working directory)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Bool("detail", false, "print the full cause chain of errors")
	rootCmd.PersistentFlags().Int("max-warnings", 100, "maximum number of warnings to show (negative for no limit)")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-format", "auto", "trace format (auto|text|ndjson)")

	rootCmd.Flags().Bool("keep-il", false, "keep the generated program file and print its path")
	rootCmd.Flags().Bool("print-commands", false, "print the assembler command line before running it")
	rootCmd.Flags().String("temp-dir", "", "directory for the generated program (default: system temp dir)")
}

func setupRoot(cmd *cobra.Command, _ []string) error {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	switch colorFlag {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		color.NoColor = !isTerminal(os.Stderr)
	default:
		return diag.Errorf(diag.UseBadOption, "unsupported --color value %q (must be auto, on or off)", colorFlag)
	}

	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	traceCleanup = cleanup
	return nil
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
