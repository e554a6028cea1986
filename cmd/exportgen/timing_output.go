package main

import (
	"fmt"
	"io"
	"time"

	"exportgen/internal/pipeline"
)

func printStageTimings(out io.Writer, timings pipeline.Timings) {
	if out == nil {
		return
	}
	for _, stage := range pipeline.Stages {
		if !timings.Has(stage) {
			continue
		}
		fmt.Fprintf(out, "%-9s %.1f ms\n", stage, toMillis(timings.Duration(stage)))
	}
	if total := timings.Sum(pipeline.Stages...); total > 0 {
		fmt.Fprintf(out, "%-9s %.1f ms\n", "total", toMillis(total))
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
