package evolution

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/forgepilot/swe-orchestrator/internal/gitadapter"
	"github.com/forgepilot/swe-orchestrator/internal/semdiff"
)

// Store is the on-disk File-Evolution Store for a single build's state
// directory. It is safe for concurrent use.
type Store struct {
	projectDir string
	storageDir string
	git        *gitadapter.Adapter

	mu         sync.Mutex
	evolutions map[string]*FileEvolution
}

// Open returns a Store rooted at storageDir, creating its baselines/
// subdirectory if absent. It does not load existing state; call
// LoadEvolutions for that.
func Open(projectDir, storageDir string, git *gitadapter.Adapter) (*Store, error) {
	if git == nil {
		git = gitadapter.New()
	}
	if err := os.MkdirAll(filepath.Join(storageDir, "baselines"), 0o755); err != nil {
		return nil, fmt.Errorf("evolution: create baselines dir: %w", err)
	}
	return &Store{
		projectDir: projectDir,
		storageDir: storageDir,
		git:        git,
		evolutions: make(map[string]*FileEvolution),
	}, nil
}

func (s *Store) evolutionFilePath() string {
	return filepath.Join(s.storageDir, "file_evolution.json")
}

// LoadEvolutions replaces in-memory state with the contents of
// file_evolution.json, or leaves an empty map if the file does not exist.
func (s *Store) LoadEvolutions() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.evolutionFilePath())
	if os.IsNotExist(err) {
		s.evolutions = make(map[string]*FileEvolution)
		return nil
	}
	if err != nil {
		return fmt.Errorf("evolution: read index: %w", err)
	}

	var decoded map[string]*FileEvolution
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("evolution: decode index: %w", err)
	}
	s.evolutions = decoded
	return nil
}

// SaveEvolutions atomically replaces file_evolution.json with the current
// in-memory state (write-tmp then rename).
func (s *Store) SaveEvolutions() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.evolutions, "", "  ")
	if err != nil {
		return fmt.Errorf("evolution: encode index: %w", err)
	}

	target := s.evolutionFilePath()
	tmp, err := os.CreateTemp(filepath.Dir(target), ".file_evolution-*.tmp")
	if err != nil {
		return fmt.Errorf("evolution: create temp index: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("evolution: write temp index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("evolution: close temp index: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("evolution: rename temp index: %w", err)
	}
	return nil
}

// Get returns the evolution record for relPath, if one has been captured.
func (s *Store) Get(relPath string) (*FileEvolution, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.evolutions[relPath]
	return e, ok
}

// CaptureBaselines snapshots the current content of each file (relative,
// POSIX-style paths) under task_id's baseline, creating a FileEvolution on
// first sight of a path and an empty-after TaskSnapshot for the task.
func (s *Store) CaptureBaselines(taskID string, files []string, intent string, commit string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	capturedAt := time.Now()
	for _, relPath := range files {
		content, err := os.ReadFile(filepath.Join(s.projectDir, filepath.FromSlash(relPath)))
		if err != nil {
			continue
		}

		baselinePath, err := s.storeBaselineContent(relPath, string(content), taskID)
		if err != nil {
			return err
		}
		hash := computeContentHash(string(content))

		evo, ok := s.evolutions[relPath]
		if !ok {
			evo = &FileEvolution{
				FilePath:             relPath,
				BaselineCommit:       commit,
				BaselineCapturedAt:   capturedAt,
				BaselineContentHash:  hash,
				BaselineSnapshotPath: baselinePath,
			}
			s.evolutions[relPath] = evo
		}

		evo.AddTaskSnapshot(&TaskSnapshot{
			TaskID:            taskID,
			TaskIntent:        intent,
			StartedAt:         capturedAt,
			ContentHashBefore: hash,
		})
	}
	return nil
}

func (s *Store) storeBaselineContent(relPath, content, taskID string) (string, error) {
	safeName := sanitizePathForStorage(relPath)
	baselinePath := filepath.Join(s.storageDir, "baselines", taskID, safeName+".baseline")
	if err := os.MkdirAll(filepath.Dir(baselinePath), 0o755); err != nil {
		return "", fmt.Errorf("evolution: create baseline dir: %w", err)
	}
	if err := os.WriteFile(baselinePath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("evolution: write baseline: %w", err)
	}
	rel, err := filepath.Rel(s.storageDir, baselinePath)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// ReadBaselineContent reads back a previously stored baseline file.
func (s *Store) ReadBaselineContent(baselineSnapshotPath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.storageDir, filepath.FromSlash(baselineSnapshotPath)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ErrNotTracked is returned by RecordModification when path has no prior
// FileEvolution (capture_baselines was never called for it).
var ErrNotTracked = fmt.Errorf("evolution: file is not being tracked")

// RecordModification classifies the semantic diff between old and new for
// relPath and appends (or overwrites in place) the task's TaskSnapshot. The
// path must already have a FileEvolution, from a prior CaptureBaselines.
func (s *Store) RecordModification(taskID, relPath, old, new, rawDiff string) (*TaskSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evo, ok := s.evolutions[relPath]
	if !ok {
		return nil, ErrNotTracked
	}

	snapshot := evo.TaskSnapshot(taskID)
	now := time.Now()
	if snapshot == nil {
		snapshot = &TaskSnapshot{
			TaskID:            taskID,
			StartedAt:         now,
			ContentHashBefore: computeContentHash(old),
		}
	}

	changes := semdiff.Analyze(relPath, old, new)

	completedAt := now
	snapshot.CompletedAt = &completedAt
	snapshot.ContentHashAfter = computeContentHash(new)
	snapshot.SemanticChanges = changes
	snapshot.RawDiff = rawDiff

	evo.AddTaskSnapshot(snapshot)
	return snapshot, nil
}

// RefreshFromGit enumerates files changed between baseRef and HEAD inside
// worktreePath and records a modification for each, for tasks where
// real-time capture was unavailable.
func (s *Store) RefreshFromGit(ctx context.Context, taskID, worktreePath, baseRef string) error {
	files, err := s.git.DiffNameStatus(ctx, worktreePath, baseRef, "HEAD")
	if err != nil {
		return fmt.Errorf("evolution: diff --name-status: %w", err)
	}

	for _, cf := range files {
		oldContent, err := s.git.ReadBlob(ctx, worktreePath, baseRef, cf.Path)
		if err != nil {
			oldContent = nil // new file
		}

		var newContent []byte
		if cf.Status != "D" {
			newContent, err = os.ReadFile(filepath.Join(worktreePath, filepath.FromSlash(cf.Path)))
			if err != nil {
				newContent = nil
			}
		}

		diff, _ := s.git.Diff(ctx, worktreePath, baseRef, "HEAD", cf.Path)
		if _, err := s.RecordModification(taskID, cf.Path, string(oldContent), string(newContent), diff); err != nil && err != ErrNotTracked {
			return err
		}
	}
	return nil
}

// MarkTaskCompleted sets CompletedAt on every still-open snapshot belonging
// to taskID across all tracked files.
func (s *Store) MarkTaskCompleted(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, evo := range s.evolutions {
		if snap := evo.TaskSnapshot(taskID); snap != nil && snap.CompletedAt == nil {
			snap.CompletedAt = &now
		}
	}
}
