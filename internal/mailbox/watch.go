package mailbox

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/swarmforge/swarmkit/internal/fileutil"
	"github.com/swarmforge/swarmkit/internal/types"
)

// PollBlocking waits for new mail (via an fsnotify watch on the owner's
// inbox) or the timeout, whichever comes first, then polls. It is a pure
// wakeup optimization over a bare sleep-and-stat idle loop: if the watcher
// cannot be created or attached it sleeps out the timeout, a watcher error
// or a closed event channel while waiting polls at once, and the returned
// messages are identical to what Poll would have produced either way.
func (m *Mailbox) PollBlocking(ctx context.Context, timeout time.Duration) ([]types.Message, error) {
	inbox := fileutil.InboxDir(m.StateDir, m.Owner.Canonical())
	if err := fileutil.EnsureDir(inbox); err != nil {
		return m.Poll()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return m.pollAfterTimeout(ctx, timeout)
	}
	defer watcher.Close()

	if err := watcher.Add(inbox); err != nil {
		return m.pollAfterTimeout(ctx, timeout)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	case _, ok := <-watcher.Events:
		if !ok {
			return m.pollAfterTimeout(ctx, 0)
		}
	case <-watcher.Errors:
		// Treat a watcher error like "nothing happened yet" and fall
		// through to a plain poll; the caller's next tick will retry.
	}
	return m.Poll()
}

func (m *Mailbox) pollAfterTimeout(ctx context.Context, timeout time.Duration) ([]types.Message, error) {
	if timeout > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(timeout):
		}
	}
	return m.Poll()
}
