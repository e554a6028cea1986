package pipeline

import "time"

// Stage describes a high-level pipeline phase.
type Stage string

const (
	// StageLoad reads the input images and resolves their references.
	StageLoad Stage = "load"
	// StageScan discovers export candidates.
	StageScan Stage = "scan"
	// StageAllocate assigns ordinals.
	StageAllocate Stage = "allocate"
	// StageEmit renders the program text.
	StageEmit Stage = "emit"
	// StageAssemble runs the external assembler.
	StageAssemble Stage = "assemble"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageLoad, StageScan, StageAllocate, StageEmit, StageAssemble}

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] = dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	if t.stages == nil {
		return false
	}
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
