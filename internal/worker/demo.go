package worker

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// runDemo stands in for runLLM during a --demo run: no LLM binary is
// spawned, so the full supervisor/worker pipeline (audit log, watchdog,
// mailbox, reporter) can be exercised without one wired up. It mirrors
// runLLM's results (exit code, error) and contract, including honoring ctx
// cancellation, so executeTask can treat both identically.
func runDemo(ctx context.Context, identity string, failRate float64, onLine func(string)) (exitCode int, err error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(200 * time.Millisecond):
	}

	if failRate > 0 && rand.Float64() < failRate {
		onLine(fmt.Sprintf("[demo] %s: simulated failure", identity))
		return 1, nil
	}
	onLine(fmt.Sprintf("[demo] %s: simulated task complete", identity))
	return 0, nil
}
