package trellis

import (
	"fmt"
	"os"
	"time"
)

// debugStats holds per-frame timing and draw-call metrics.
// Only populated when Engine.debug is true.
type debugStats struct {
	walkTime      time.Duration
	clearTime     time.Duration
	report        FrameReport
	drawCallCount int
}

// debugLog prints timing and dispatch stats to stderr.
func debugLog(stats debugStats) {
	r := stats.report
	_, _ = fmt.Fprintf(os.Stderr,
		"[trellis] walk: %v | clear: %v | total: %v\n",
		stats.walkTime, stats.clearTime, stats.walkTime+stats.clearTime)
	_, _ = fmt.Fprintf(os.Stderr,
		"[trellis] commands: %d | rendered: %d | skipped: %d | batches: %d | draw calls: %d\n",
		r.Commands, r.Rendered, r.Skipped, r.Batches, stats.drawCallCount)
}

// debugMaxBatches is the per-stage batch count above which Process warns.
const debugMaxBatches = 256

// debugCheckBatches warns on stderr when a stage breaks into many batches,
// which usually means requests alternate between textures within a layer.
func debugCheckBatches(s Model, batches int) {
	if batches > debugMaxBatches {
		_, _ = fmt.Fprintf(os.Stderr, "[trellis] warning: stage %d (%s) produced %d batches (threshold %d)\n",
			s.Handle(), s.Kind(), batches, debugMaxBatches)
	}
}
