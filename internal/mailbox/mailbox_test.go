package mailbox

import (
	"testing"
	"time"

	"github.com/swarmforge/swarmkit/internal/types"
)

func TestSendAndPollRoundTrip(t *testing.T) {
	dir := t.TempDir()
	sender := types.Identity{Name: "researcher", Team: "core"}
	recipient := types.Identity{Name: "integrator", Team: "core"}

	sent := New(dir, sender)
	if _, err := sent.Send(recipient, types.MessageDirect, "hello", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	received := New(dir, recipient)
	msgs, err := received.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hello" {
		t.Fatalf("Poll() = %+v, want one message with content 'hello'", msgs)
	}

	// A message is handed out exactly once.
	msgs, err = received.Poll()
	if err != nil {
		t.Fatalf("second Poll: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("second Poll() = %+v, want none (already drained)", msgs)
	}
}

func TestPollIsCaseInsensitiveAcrossIdentities(t *testing.T) {
	dir := t.TempDir()
	sender := New(dir, types.Identity{Name: "Researcher", Team: "Core"})
	if _, err := sender.Send(types.Identity{Name: "integrator", Team: "core"}, types.MessageDirect, "hi", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	receiver := New(dir, types.Identity{Name: "INTEGRATOR", Team: "CORE"})
	msgs, err := receiver.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("Poll() = %+v, want one message (canonicalized mailbox path)", msgs)
	}
}

func TestBroadcastExcludesSenderOnly(t *testing.T) {
	dir := t.TempDir()
	sender := types.Identity{Name: "researcher", Team: "core"}
	peers := []types.Identity{
		sender,
		{Name: "integrator", Team: "core"},
		{Name: "validator", Team: "core"},
	}

	mb := New(dir, sender)
	msgs, errs := mb.Broadcast(peers, "status update", nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(msgs) != 2 {
		t.Fatalf("Broadcast sent %d messages, want 2 (excluding sender)", len(msgs))
	}

	for _, peer := range peers[1:] {
		box := New(dir, peer)
		got, err := box.Poll()
		if err != nil {
			t.Fatalf("Poll for %s: %v", peer, err)
		}
		if len(got) != 1 {
			t.Errorf("%s received %d messages, want 1", peer, len(got))
		}
	}
}

func TestHasMessages(t *testing.T) {
	dir := t.TempDir()
	owner := types.Identity{Name: "researcher", Team: "core"}
	mb := New(dir, owner)
	if mb.HasMessages() {
		t.Error("HasMessages() = true before any message was sent")
	}
	if _, err := mb.Send(owner, types.MessageDirect, "self note", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !mb.HasMessages() {
		t.Error("HasMessages() = false after a message was sent")
	}
}

func TestHeartbeatRoundTrip(t *testing.T) {
	dir := t.TempDir()
	owner := types.Identity{Name: "researcher", Team: "core"}
	mb := New(dir, owner)

	if _, ok := ReadHeartbeat(dir, owner); ok {
		t.Error("expected no heartbeat before WriteHeartbeat")
	}

	before := time.Now()
	mb.WriteHeartbeat()
	ts, ok := ReadHeartbeat(dir, owner)
	if !ok {
		t.Fatal("expected a heartbeat after WriteHeartbeat")
	}
	if ts < float64(before.Unix())-1 {
		t.Errorf("heartbeat ts = %v, looks stale relative to %v", ts, before)
	}
}

func TestEnumerateProcessedAcrossAgents(t *testing.T) {
	dir := t.TempDir()
	a := types.Identity{Name: "researcher", Team: "core"}
	b := types.Identity{Name: "integrator", Team: "core"}

	mbA := New(dir, a)
	if _, err := mbA.Send(b, types.MessageDirect, "first", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	mbB := New(dir, b)
	if _, err := mbB.Poll(); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	msgs, err := EnumerateProcessed(dir)
	if err != nil {
		t.Fatalf("EnumerateProcessed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "first" {
		t.Errorf("EnumerateProcessed() = %+v, want one processed message", msgs)
	}
}
