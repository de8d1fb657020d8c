package alert

import (
	"context"
	"sync"
	"time"

	id "lexgate/pkg/domain"
)

type windowKey struct {
	firmID id.FirmID
	userID id.UserID
}

// InMemoryWindow is a sliding failure window for tests and single-node
// deployments. Timestamps older than the window are pruned on each record.
type InMemoryWindow struct {
	window time.Duration

	mu       sync.Mutex
	failures map[windowKey][]time.Time
}

// NewInMemoryWindow creates a sliding window of the given duration.
func NewInMemoryWindow(window time.Duration) *InMemoryWindow {
	return &InMemoryWindow{
		window:   window,
		failures: make(map[windowKey][]time.Time),
	}
}

func (w *InMemoryWindow) RecordFailure(_ context.Context, firmID id.FirmID, userID id.UserID, at time.Time) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := windowKey{firmID: firmID, userID: userID}
	cutoff := at.Add(-w.window)

	kept := w.failures[key][:0]
	for _, ts := range w.failures[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, at)
	w.failures[key] = kept

	return len(kept), nil
}
