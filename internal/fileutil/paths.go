// Package fileutil centralizes the supervisor's on-disk layout conventions
// and the atomic-write discipline every durable record depends on.
package fileutil

import "path/filepath"

// StateSubdir builds a path to a subdirectory within the supervisor's state
// directory, e.g. StateSubdir(state, "mailboxes").
func StateSubdir(stateDir, subdir string) string {
	return filepath.Join(stateDir, subdir)
}

// MailboxDir returns the root mailbox directory for one agent's canonical id.
func MailboxDir(stateDir, canonicalID string) string {
	return filepath.Join(stateDir, "mailboxes", canonicalID)
}

// InboxDir returns an agent's unread-message directory.
func InboxDir(stateDir, canonicalID string) string {
	return filepath.Join(MailboxDir(stateDir, canonicalID), "inbox")
}

// ProcessedDir returns an agent's consumed-message directory.
func ProcessedDir(stateDir, canonicalID string) string {
	return filepath.Join(MailboxDir(stateDir, canonicalID), "processed")
}

// HeartbeatPath returns an agent's heartbeat file path.
func HeartbeatPath(stateDir, canonicalID string) string {
	return filepath.Join(MailboxDir(stateDir, canonicalID), "heartbeat")
}

// AuditPath returns the JSONL audit file path for a mission.
func AuditPath(stateDir, missionID string) string {
	return filepath.Join(stateDir, "audit", "mission-"+missionID+".jsonl")
}

// MissionPath returns the mission record path.
func MissionPath(stateDir, missionID string) string {
	return filepath.Join(stateDir, "missions", missionID+".json")
}

// MissionsDir returns the directory holding all mission records.
func MissionsDir(stateDir string) string {
	return filepath.Join(stateDir, "missions")
}

// ConfigPath returns the team-roster config file written for workers.
func ConfigPath(stateDir string) string {
	return filepath.Join(stateDir, "config.json")
}

// LogPath returns a worker's log-tee file path.
func LogPath(logsDir, agentSlug string) string {
	return filepath.Join(logsDir, agentSlug+".log")
}
