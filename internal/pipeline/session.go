// Package pipeline runs load, scan, allocate, emit and assemble for one
// output module.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"exportgen/internal/diag"
	"exportgen/internal/ilasm"
	"exportgen/internal/loader"
	"exportgen/internal/metadata"
	"exportgen/internal/ordinal"
	"exportgen/internal/scan"
	"exportgen/internal/toolchain"
	"exportgen/internal/trace"
)

// PrepareRequest configures the metadata stages of a run.
type PrepareRequest struct {
	Inputs []string
	// References maps short module names to explicit paths.
	References map[string]string
	// System replaces the default system resolution step.
	System loader.Finder
	// Base is the running base library; loader.DefaultBase when Name is empty.
	Base    metadata.AssemblyName
	Markers []string
	// MaxWarnings caps the collected findings; DefaultMaxWarnings when 0,
	// unlimited when negative.
	MaxWarnings int
	// Warn sees each distinct finding that fits under the cap.
	Warn func(*diag.Error)
}

// DefaultMaxWarnings is the finding cap used when none is configured.
const DefaultMaxWarnings = 100

// Session holds everything one run produces. It is never shared between runs.
type Session struct {
	Modules     []*loader.Module
	Requirement toolchain.Version
	Candidates  []*scan.Candidate
	Table       *ordinal.Table
	Aliases     *ilasm.AliasTable
	Warnings    *diag.Bag
	Timings     Timings
}

// Prepare loads the inputs, scans them and allocates ordinals.
func Prepare(ctx context.Context, req *PrepareRequest) (*Session, error) {
	if req == nil || len(req.Inputs) == 0 {
		return nil, diag.Errorf(diag.UseMissingInput, "no input modules given")
	}
	base := req.Base
	if base.Name == "" {
		base = loader.DefaultBase
	}
	maxWarnings := req.MaxWarnings
	if maxWarnings == 0 {
		maxWarnings = DefaultMaxWarnings
	}
	sess := &Session{Aliases: ilasm.NewAliasTable(base), Warnings: diag.NewBag(maxWarnings)}

	start := time.Now()
	loaded, err := loader.Load(ctx, req.Inputs, loader.Options{
		References: req.References,
		System:     req.System,
		Base:       base,
	})
	if err != nil {
		return nil, err
	}
	sess.Timings.Set(StageLoad, time.Since(start))
	sess.Modules = loaded.Modules
	sess.Requirement = loaded.Requirement

	start = time.Now()
	sess.Candidates, err = scan.Scan(ctx, sess.Modules, scan.Options{
		Markers: req.Markers,
		Warn: func(w *diag.Error) {
			if sess.Warnings.Add(w) && req.Warn != nil {
				req.Warn(w)
			}
		},
	})
	if err != nil {
		return nil, err
	}
	sess.Timings.Set(StageScan, time.Since(start))

	start = time.Now()
	_, span := trace.Start(ctx, trace.ScopePass, "allocate")
	sess.Table, err = ordinal.Allocate(sess.Candidates)
	if err != nil {
		span.End("failed")
		return nil, err
	}
	span.End(fmt.Sprintf("%d exports", sess.Table.Len()))
	sess.Timings.Set(StageAllocate, time.Since(start))
	return sess, nil
}

// Emit renders the program for output.
func (s *Session) Emit(ctx context.Context, output string) (string, error) {
	start := time.Now()
	_, span := trace.Start(ctx, trace.ScopePass, "emit")
	text, err := ilasm.Program(s.Table, ilasm.NewWriter(s.Aliases), output)
	if err != nil {
		span.End("failed")
		return "", err
	}
	span.WithExtra("aliases", fmt.Sprint(s.Aliases.Len()))
	span.End(fmt.Sprintf("%d bytes", len(text)))
	s.Timings.Set(StageEmit, time.Since(start))
	return text, nil
}
