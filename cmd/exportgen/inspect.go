package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"exportgen/internal/diag"
	"exportgen/internal/pipeline"
	"exportgen/internal/ui"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <inputs...> [/REF:<file>...] [/OUT:<file>]",
	Short: "Show the export table without running the assembler",
	Long: `inspect loads and scans the inputs, allocates ordinals and prints the
resulting export table. With --il the generated program is printed instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().Bool("il", false, "print the generated program")
	inspectCmd.Flags().Int("width", 48, "truncate table cells wider than this (0 disables)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	inv, err := parseInvocation(args, cmd.ArgsLenAtDash())
	if err != nil {
		return err
	}
	if len(inv.Forward) > 0 {
		return diag.Errorf(diag.UseBadOption, "inspect does not accept assembler option %s", inv.Forward[0])
	}
	prep, err := prepareRequest(cmd, cfg, inv.Inputs, inv.Refs)
	if err != nil {
		return err
	}
	showIL, err := cmd.Flags().GetBool("il")
	if err != nil {
		return err
	}
	width, err := cmd.Flags().GetInt("width")
	if err != nil {
		return err
	}

	sess, err := pipeline.Prepare(cmd.Context(), prep)
	if err != nil {
		return err
	}
	reportDropped(cmd.ErrOrStderr(), sess.Warnings)
	out := cmd.OutOrStdout()

	if showIL {
		output := inv.Output
		if output == "" {
			output = sess.Modules[0].Name() + ".Exports.dll"
		}
		text, err := sess.Emit(cmd.Context(), output)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(out, text)
		return err
	}

	tbl := &ui.Table{
		Title:    fmt.Sprintf("%d exports, runtime %s", sess.Table.Len(), sess.Requirement),
		Columns:  []string{"ORDINAL", "EXPORT", "METHOD", "MODULE"},
		MaxWidth: width,
		Color:    !noColor(),
	}
	for _, e := range sess.Table.Entries() {
		c := e.Candidate
		owner := c.DeclaringName()
		if owner == "" {
			owner = "<module>"
		}
		tbl.Append(strconv.Itoa(int(e.Ordinal)), e.Name, owner+"::"+c.Method.Name, c.Module.Name())
	}
	if err := tbl.Render(out); err != nil {
		return err
	}
	if showTimings, _ := cmd.Root().PersistentFlags().GetBool("timings"); showTimings {
		printStageTimings(cmd.ErrOrStderr(), sess.Timings)
	}
	return nil
}
