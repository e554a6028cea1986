// Package trace records what a generation run is doing.
//
// A Tracer travels through the pipeline inside a context.Context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.Start(ctx, trace.ScopePass, "scan")
//	defer span.End("")
//
// # Levels
//
//   - LevelOff: nothing is emitted
//   - LevelError: nothing but explicit error points
//   - LevelPhase: driver and pass boundaries (load, scan, allocate, emit, assemble)
//   - LevelDetail: per-module events (images loaded, references resolved)
//   - LevelDebug: per-entity events (candidates, skipped methods, aliases)
//
// Output is either human-readable text or NDJSON, selected by the --trace
// file extension (".ndjson") or explicitly.
package trace
