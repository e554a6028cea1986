package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"exportgen/internal/config"
	"exportgen/internal/diag"
	"exportgen/internal/loader"
	"exportgen/internal/pipeline"
	"exportgen/internal/toolchain"
)

func runBuild(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		cmd.SetOut(cmd.ErrOrStderr())
		_ = cmd.Usage()
		return diag.Errorf(diag.UseMissingInput, "no input modules given")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	inv, err := parseInvocation(args, cmd.ArgsLenAtDash())
	if err != nil {
		return err
	}
	prep, err := prepareRequest(cmd, cfg, inv.Inputs, inv.Refs)
	if err != nil {
		return err
	}

	keepIL, err := cmd.Flags().GetBool("keep-il")
	if err != nil {
		return err
	}
	printCommands, err := cmd.Flags().GetBool("print-commands")
	if err != nil {
		return err
	}
	tempDir, err := cmd.Flags().GetString("temp-dir")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}

	res, err := pipeline.Build(cmd.Context(), &pipeline.BuildRequest{
		PrepareRequest: *prep,
		Output:         inv.Output,
		AssemblerArgs:  inv.assemblerArgs(),
		Toolchain:      &toolchain.PathResolver{Lines: cfg.AssemblerLines()},
		TempDir:        tempDir,
		KeepIL:         keepIL,
		PrintCommands:  printCommands,
		Stdout:         cmd.OutOrStdout(),
		Stderr:         cmd.ErrOrStderr(),
	})
	if res.Session != nil {
		reportDropped(cmd.ErrOrStderr(), res.Session.Warnings)
	}
	if keepIL && res.ILPath != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "program kept at %s\n", res.ILPath)
	}
	if showTimings {
		printStageTimings(cmd.ErrOrStderr(), res.Timings)
	}
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return exitStatus(res.ExitCode)
	}
	return nil
}

// loadConfig finds exportgen.toml from --config or the working directory.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	explicit, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, diag.Wrap(diag.IORead, err, "cannot determine working directory")
	}
	return config.Discover(explicit, wd)
}

// prepareRequest builds the metadata-stage request shared by the run and
// inspect commands.
func prepareRequest(cmd *cobra.Command, cfg *config.Config, patterns, refs []string) (*pipeline.PrepareRequest, error) {
	inputs, err := expandInputs(patterns)
	if err != nil {
		return nil, err
	}
	base, err := cfg.BaseIdentity()
	if err != nil {
		return nil, err
	}
	maxWarnings, err := cmd.Root().PersistentFlags().GetInt("max-warnings")
	if err != nil {
		return nil, err
	}
	stderr := cmd.ErrOrStderr()
	return &pipeline.PrepareRequest{
		Inputs:      inputs,
		References:  loader.ReferenceMap(refs),
		System:      loader.SystemFinder{Cache: openCache(cfg), Registry: cfg.RegistryDirs()},
		Base:        base,
		Markers:     cfg.Export.Attributes,
		MaxWarnings: maxWarnings,
		Warn: func(w *diag.Error) {
			reportWarning(stderr, w)
		},
	}, nil
}

// openCache returns the configured global cache, the per-user default, or
// nil when neither can be located.
func openCache(cfg *config.Config) *loader.Cache {
	dir := cfg.CacheDir()
	if dir == "" {
		d, err := loader.DefaultCacheDir("exportgen")
		if err != nil {
			return nil
		}
		dir = d
	}
	return loader.OpenCache(dir)
}
