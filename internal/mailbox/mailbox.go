// Package mailbox implements the supervisor's file-backed message bus: one
// inbox directory per recipient, atomic enqueue via temp+rename, and a
// processed/ directory acting as the single consumer's cursor.
package mailbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/swarmforge/swarmkit/internal/fileutil"
	"github.com/swarmforge/swarmkit/internal/types"
)

// Mailbox is bound to one owning identity; poll/has_messages/heartbeat
// operations act on that identity's own directories, while send/broadcast
// can target any recipient under the same state root.
type Mailbox struct {
	StateDir string
	Owner    types.Identity
}

// New returns a Mailbox owned by identity, rooted at stateDir.
func New(stateDir string, owner types.Identity) *Mailbox {
	return &Mailbox{StateDir: stateDir, Owner: owner}
}

// ErrMailbox wraps a mailbox_error-class failure, per the error taxonomy.
type ErrMailbox struct {
	Op  string
	Err error
}

func (e *ErrMailbox) Error() string { return fmt.Sprintf("mailbox: %s: %s", e.Op, e.Err) }
func (e *ErrMailbox) Unwrap() error { return e.Err }

// Send writes a message into recipient's inbox via temp+rename. Partial
// temp files are removed automatically by fileutil.AtomicWrite on failure.
func (m *Mailbox) Send(recipient types.Identity, typ types.MessageType, content string, meta map[string]interface{}) (types.Message, error) {
	msg := types.NewMessage(m.Owner, recipient, typ, content, meta)
	data, err := json.Marshal(msg)
	if err != nil {
		return msg, &ErrMailbox{"send", err}
	}

	inbox := fileutil.InboxDir(m.StateDir, recipient.Canonical())
	name := filename(msg.Ts, msg.MsgID)
	if err := fileutil.AtomicWrite(inbox, name, data, 0644); err != nil {
		return msg, &ErrMailbox{"send", err}
	}
	return msg, nil
}

// Broadcast sends to every agent in recipients except the sender itself.
// A per-recipient failure is surfaced in the returned error slice but never
// aborts the rest of the batch.
func (m *Mailbox) Broadcast(recipients []types.Identity, content string, meta map[string]interface{}) ([]types.Message, []error) {
	var msgs []types.Message
	var errs []error
	for _, r := range recipients {
		if r.Equal(m.Owner) {
			continue
		}
		msg, err := m.Send(r, types.MessageBroadcast, content, meta)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, errs
}

// Poll parses every file in the owner's inbox, ordered by filename (which
// is monotonic in epoch_ms then msg_id), and moves each one out before
// returning it — so a message is never observed twice across polls.
// Unparseable files are moved aside too (so they are not retried forever)
// but are excluded from the result: the message is considered lost.
func (m *Mailbox) Poll() ([]types.Message, error) {
	inbox := fileutil.InboxDir(m.StateDir, m.Owner.Canonical())
	processed := fileutil.ProcessedDir(m.StateDir, m.Owner.Canonical())

	entries, err := os.ReadDir(inbox)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &ErrMailbox{"poll", err}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	if err := fileutil.EnsureDir(processed); err != nil {
		return nil, &ErrMailbox{"poll", err}
	}

	var out []types.Message
	for _, name := range names {
		src := filepath.Join(inbox, name)
		data, err := os.ReadFile(src)
		dst := filepath.Join(processed, name)
		if err != nil {
			os.Rename(src, dst)
			continue
		}
		var msg types.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			os.Rename(src, dst)
			continue
		}
		if err := os.Rename(src, dst); err != nil {
			// Could not move it out of the inbox — do not hand it to the
			// caller, lest a subsequent poll return it a second time.
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

// HasMessages is a cheap existence check with no side effects.
func (m *Mailbox) HasMessages() bool {
	inbox := fileutil.InboxDir(m.StateDir, m.Owner.Canonical())
	entries, err := os.ReadDir(inbox)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			return true
		}
	}
	return false
}

// WriteHeartbeat overwrites the owner's heartbeat file with the current
// wall-clock time. Write errors are swallowed — a missed heartbeat write
// surfaces as staleness to observers, never as a crash here.
func (m *Mailbox) WriteHeartbeat() {
	path := fileutil.HeartbeatPath(m.StateDir, m.Owner.Canonical())
	dir := filepath.Dir(path)
	ts := strconv.FormatFloat(nowUnix(), 'f', 6, 64)
	_ = fileutil.AtomicWrite(dir, filepath.Base(path), []byte(ts), 0644)
}

// ReadHeartbeat returns the last heartbeat timestamp written by other, and
// whether one was found.
func ReadHeartbeat(stateDir string, other types.Identity) (float64, bool) {
	data, err := os.ReadFile(fileutil.HeartbeatPath(stateDir, other.Canonical()))
	if err != nil {
		return 0, false
	}
	ts, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

// CleanupProcessed deletes processed-message files older than maxAge.
func (m *Mailbox) CleanupProcessed(maxAge time.Duration) {
	processed := fileutil.ProcessedDir(m.StateDir, m.Owner.Canonical())
	entries, err := os.ReadDir(processed)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(processed, e.Name()))
		}
	}
}

// EnumerateProcessed reads every processed message across all agents under
// stateDir, for read-only observers (e.g. the reporter). Results are
// sorted by message timestamp.
func EnumerateProcessed(stateDir string) ([]types.Message, error) {
	mailboxesDir := fileutil.StateSubdir(stateDir, "mailboxes")
	agentDirs, err := os.ReadDir(mailboxesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []types.Message
	for _, ad := range agentDirs {
		if !ad.IsDir() {
			continue
		}
		processed := filepath.Join(mailboxesDir, ad.Name(), "processed")
		files, err := os.ReadDir(processed)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			data, err := os.ReadFile(filepath.Join(processed, f.Name()))
			if err != nil {
				continue
			}
			var msg types.Message
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ts < out[j].Ts })
	return out, nil
}

// filename builds the "{epoch_ms}-{msg_id}.json" name whose lexical sort
// approximates send order per recipient.
func filename(ts float64, msgID string) string {
	ms := int64(ts * 1000)
	return fmt.Sprintf("%013d-%s.json", ms, msgID)
}

func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
