package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"exportgen/internal/diag"
	"exportgen/internal/toolchain"
	"exportgen/internal/trace"
)

// BuildRequest configures a full run ending in the external assembler.
type BuildRequest struct {
	PrepareRequest
	// Output is the path of the module the assembler produces.
	Output string
	// AssemblerArgs are forwarded verbatim ahead of /OUTPUT and the program path.
	AssemblerArgs []string
	Toolchain     toolchain.Resolver
	// TempDir holds the transient program; os.TempDir() when empty.
	TempDir       string
	KeepIL        bool
	PrintCommands bool
	Stdout        io.Writer
	Stderr        io.Writer
}

// BuildResult captures what a run produced.
type BuildResult struct {
	// ExitCode is the assembler's exit status.
	ExitCode int
	// ILPath is the transient program; it no longer exists unless KeepIL was set.
	ILPath  string
	Session *Session
	Timings Timings
}

// Build runs every stage and returns the assembler's exit status. The
// transient program file is removed on every path unless KeepIL is set.
func Build(ctx context.Context, req *BuildRequest) (result BuildResult, err error) {
	if req == nil {
		return result, diag.Errorf(diag.UseMissingInput, "missing build request")
	}
	if len(req.Inputs) == 0 {
		return result, diag.Errorf(diag.UseMissingInput, "no input modules given")
	}
	if req.Output == "" {
		return result, diag.Errorf(diag.UseMissingOutput, "no output module given (use /OUT:<file>)")
	}
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "build")
	defer func() {
		if err != nil {
			span.End("failed")
			return
		}
		span.End(fmt.Sprintf("exit %d", result.ExitCode))
	}()

	sess, err := Prepare(ctx, &req.PrepareRequest)
	if err != nil {
		return result, err
	}
	result.Session = sess
	text, err := sess.Emit(ctx, req.Output)
	result.Timings = sess.Timings
	if err != nil {
		return result, err
	}

	resolver := req.Toolchain
	if resolver == nil {
		resolver = &toolchain.PathResolver{}
	}
	assembler, err := resolver.Resolve(sess.Requirement)
	if err != nil {
		return result, err
	}

	ilPath, err := writeProgram(req.TempDir, text)
	if err != nil {
		return result, err
	}
	result.ILPath = ilPath
	if !req.KeepIL {
		defer func() {
			if rmErr := os.Remove(ilPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
				err = diag.Wrap(diag.IOWrite, rmErr, "failed to remove %s", ilPath)
			}
		}()
	}

	start := time.Now()
	args := make([]string, 0, len(req.AssemblerArgs)+2)
	args = append(args, req.AssemblerArgs...)
	args = append(args, "/OUTPUT="+req.Output, ilPath)
	_, asmSpan := trace.Start(ctx, trace.ScopePass, "assemble")
	result.ExitCode, err = runCommand(req.PrintCommands, req.Stdout, req.Stderr, assembler, args...)
	asmSpan.End(fmt.Sprintf("exit %d", result.ExitCode))
	result.Timings.Set(StageAssemble, time.Since(start))
	return result, err
}

func writeProgram(dir, text string) (string, error) {
	f, err := os.CreateTemp(dir, "exportgen-*.il")
	if err != nil {
		return "", diag.Wrap(diag.IOWrite, err, "failed to create program file")
	}
	path := f.Name()
	if _, err := io.WriteString(f, text); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", diag.Wrap(diag.IOWrite, err, "failed to write %s", path)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", diag.Wrap(diag.IOWrite, err, "failed to write %s", path)
	}
	return path, nil
}

// runCommand runs name to completion with its output passed straight through
// and returns its exit status. Only a failure to start is an error.
func runCommand(printCommands bool, stdout, stderr io.Writer, name string, args ...string) (int, error) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	if printCommands {
		if _, printErr := fmt.Fprintf(stdout, "%s %s\n", name, strings.Join(args, " ")); printErr != nil {
			return 0, diag.Wrap(diag.IOWrite, printErr, "failed to print command")
		}
	}
	// #nosec G204 -- the assembler path comes from configuration or PATH lookup
	cmd := exec.Command(name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, diag.Wrap(diag.TlcStart, err, "failed to run %s", name)
}
