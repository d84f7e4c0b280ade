package worker

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/swarmforge/swarmkit/internal/audit"
	"github.com/swarmforge/swarmkit/internal/fileutil"
	"github.com/swarmforge/swarmkit/internal/types"
)

// applyEffect executes one parsed side-effect tag. An oversized payload is
// audited as an error and skipped; the tag itself was already removed from
// the stream buffer by the scanner.
func (w *Worker) applyEffect(e Effect) {
	id := w.cfg.Identity.Canonical()

	switch e.Kind {
	case EffectWriteFile:
		if e.Oversized {
			w.log.RecordError(id, fmt.Sprintf("WRITE_FILE %s exceeds %d byte limit", e.Path, writeLimitBytes), types.ClassUnknown, nil)
			return
		}
		if w.ignore != nil && w.ignore.MatchesPath(e.Path) {
			w.log.Record(id, audit.EventWarning, fmt.Sprintf("WRITE_FILE %s skipped: matches .swarmignore", e.Path), nil)
			return
		}
		full := filepath.Join(w.cfg.WorkDir, e.Path)
		dir := filepath.Dir(full)
		if err := fileutil.AtomicWrite(dir, filepath.Base(full), []byte(e.Payload), 0644); err != nil {
			w.log.RecordError(id, fmt.Sprintf("writing %s: %s", e.Path, err), types.ClassUnknown, nil)
			return
		}
		w.log.Record(id, audit.EventFileWrite, e.Path, map[string]interface{}{"path": e.Path})

	case EffectRunCommand:
		if e.Oversized {
			w.log.RecordError(id, "RUN_COMMAND payload exceeds 1MiB limit", types.ClassUnknown, nil)
			return
		}
		cmd := exec.Command("sh", "-c", e.Payload)
		cmd.Dir = w.cfg.WorkDir
		out, err := cmd.CombinedOutput()
		code := 0
		if err != nil {
			if ee, ok := err.(*exec.ExitError); ok {
				code = ee.ExitCode()
			} else {
				code = -1
			}
		}
		w.log.Record(id, audit.EventCommandExec, e.Payload, map[string]interface{}{
			"exit_code": code,
			"output":    truncate(string(out), 4096),
		})

	case EffectSendMessage:
		if e.Oversized {
			w.log.RecordError(id, fmt.Sprintf("SEND_MESSAGE to %s exceeds %d byte limit", e.To, messageLimitBytes), types.ClassUnknown, nil)
			return
		}
		recipient := types.Identity{Name: e.To, Team: w.cfg.Identity.Team}
		if _, err := w.mbox.Send(recipient, types.MessageDirect, e.Payload, nil); err != nil {
			w.log.RecordError(id, fmt.Sprintf("sending to %s: %s", e.To, err), types.ClassMailbox, nil)
			return
		}
		w.log.Record(id, audit.EventMessageSent, e.Payload, map[string]interface{}{"to": e.To})

	case EffectBroadcast:
		if e.Oversized {
			w.log.RecordError(id, "BROADCAST payload exceeds 64KiB limit", types.ClassUnknown, nil)
			return
		}
		_, errs := w.mbox.Broadcast(w.peers, e.Payload, nil)
		for _, err := range errs {
			w.log.RecordError(id, fmt.Sprintf("broadcast: %s", err), types.ClassMailbox, nil)
		}
		w.log.Record(id, audit.EventMessageSent, e.Payload, map[string]interface{}{"broadcast": true})
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
