// Package evolution implements the File-Evolution Store: a persistent
// per-file record of a baseline snapshot plus ordered per-task change
// snapshots, used by the merge engine to reconstruct and combine edits.
package evolution

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/forgepilot/swe-orchestrator/internal/semdiff"
)

// TaskSnapshot records one task's view of one file: its state before the
// task started and, once recorded, its state after and the classified
// semantic changes between the two.
type TaskSnapshot struct {
	TaskID            string           `json:"task_id"`
	TaskIntent        string           `json:"task_intent"`
	StartedAt         time.Time        `json:"started_at"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty"`
	ContentHashBefore string           `json:"content_hash_before"`
	ContentHashAfter  string           `json:"content_hash_after,omitempty"`
	SemanticChanges   []semdiff.Change `json:"semantic_changes,omitempty"`
	RawDiff           string           `json:"raw_diff,omitempty"`
}

// FileEvolution is the whole-build history of one tracked file.
type FileEvolution struct {
	FilePath             string          `json:"file_path"`
	BaselineCommit       string          `json:"baseline_commit"`
	BaselineCapturedAt   time.Time       `json:"baseline_captured_at"`
	BaselineContentHash  string          `json:"baseline_content_hash"`
	BaselineSnapshotPath string          `json:"baseline_snapshot_path"`
	TaskSnapshots        []*TaskSnapshot `json:"task_snapshots"`
}

// TaskSnapshot returns the snapshot for taskID, or nil if none exists yet.
func (e *FileEvolution) TaskSnapshot(taskID string) *TaskSnapshot {
	for _, s := range e.TaskSnapshots {
		if s.TaskID == taskID {
			return s
		}
	}
	return nil
}

// AddTaskSnapshot appends snapshot, or replaces the existing entry for the
// same task id in place (append-only at the task granularity: prior task
// snapshots are never mutated by a later task's addition).
func (e *FileEvolution) AddTaskSnapshot(snapshot *TaskSnapshot) {
	for i, s := range e.TaskSnapshots {
		if s.TaskID == snapshot.TaskID {
			e.TaskSnapshots[i] = snapshot
			return
		}
	}
	e.TaskSnapshots = append(e.TaskSnapshots, snapshot)
}

// computeContentHash hashes LF-normalized content with SHA-256 truncated to
// 128 bits (32 hex characters), matching the fixed algorithm spec.md requires
// for a single build.
func computeContentHash(content string) string {
	normalized := strings.ReplaceAll(strings.ReplaceAll(content, "\r\n", "\n"), "\r", "\n")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._\-]`)

// sanitizePathForStorage turns a POSIX relative path into a single safe
// filename component for use under baselines/<task_id>/.
func sanitizePathForStorage(relPath string) string {
	cleaned := path.Clean(relPath)
	return unsafePathChars.ReplaceAllString(cleaned, "_")
}
