package evolution

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	projectDir := t.TempDir()
	storageDir := t.TempDir()
	store, err := Open(projectDir, storageDir, nil)
	require.NoError(t, err)
	return store, projectDir
}

func writeProjectFile(t *testing.T, projectDir, relPath, content string) {
	t.Helper()
	full := filepath.Join(projectDir, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestCaptureBaselinesCreatesEvolutionAndSnapshot(t *testing.T) {
	store, projectDir := newTestStore(t)
	writeProjectFile(t, projectDir, "main.go", "package main\n")

	require.NoError(t, store.CaptureBaselines("task-1", []string{"main.go"}, "add feature", "deadbeef"))

	evo, ok := store.Get("main.go")
	require.True(t, ok)
	require.Equal(t, "deadbeef", evo.BaselineCommit)
	require.Len(t, evo.TaskSnapshots, 1)
	require.Equal(t, "task-1", evo.TaskSnapshots[0].TaskID)
	require.NotEmpty(t, evo.BaselineContentHash)

	baseline, err := store.ReadBaselineContent(evo.BaselineSnapshotPath)
	require.NoError(t, err)
	require.Equal(t, "package main\n", baseline)
}

func TestRecordModificationRequiresTrackedFile(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.RecordModification("task-1", "untracked.go", "a", "b", "")
	require.ErrorIs(t, err, ErrNotTracked)
}

func TestRecordModificationClassifiesChanges(t *testing.T) {
	store, projectDir := newTestStore(t)
	writeProjectFile(t, projectDir, "app.py", "import os\n")
	require.NoError(t, store.CaptureBaselines("task-1", []string{"app.py"}, "", "sha1"))

	snap, err := store.RecordModification("task-1", "app.py", "import os\n", "import os\nimport sys\n", "diff --git ...")
	require.NoError(t, err)
	require.NotNil(t, snap.CompletedAt)
	require.NotEmpty(t, snap.ContentHashAfter)
	require.Len(t, snap.SemanticChanges, 1)
	require.Equal(t, "add_import", string(snap.SemanticChanges[0].Type))
}

func TestMarkTaskCompletedClosesOpenSnapshots(t *testing.T) {
	store, projectDir := newTestStore(t)
	writeProjectFile(t, projectDir, "a.go", "package a\n")
	writeProjectFile(t, projectDir, "b.go", "package b\n")
	require.NoError(t, store.CaptureBaselines("task-1", []string{"a.go", "b.go"}, "", "sha1"))

	store.MarkTaskCompleted("task-1")

	evoA, _ := store.Get("a.go")
	evoB, _ := store.Get("b.go")
	require.NotNil(t, evoA.TaskSnapshot("task-1").CompletedAt)
	require.NotNil(t, evoB.TaskSnapshot("task-1").CompletedAt)
}

func TestSaveAndLoadEvolutionsRoundTrips(t *testing.T) {
	store, projectDir := newTestStore(t)
	writeProjectFile(t, projectDir, "main.go", "package main\n")
	require.NoError(t, store.CaptureBaselines("task-1", []string{"main.go"}, "intent", "sha1"))
	require.NoError(t, store.SaveEvolutions())

	reloaded, err := Open(projectDir, store.storageDir, nil)
	require.NoError(t, err)
	require.NoError(t, reloaded.LoadEvolutions())

	evo, ok := reloaded.Get("main.go")
	require.True(t, ok)
	require.Len(t, evo.TaskSnapshots, 1)
	require.Equal(t, "task-1", evo.TaskSnapshots[0].TaskID)
}

func TestAddTaskSnapshotReplacesSameTaskInPlace(t *testing.T) {
	evo := &FileEvolution{FilePath: "x.go"}
	evo.AddTaskSnapshot(&TaskSnapshot{TaskID: "t1", ContentHashBefore: "h1"})
	evo.AddTaskSnapshot(&TaskSnapshot{TaskID: "t2", ContentHashBefore: "h2"})
	evo.AddTaskSnapshot(&TaskSnapshot{TaskID: "t1", ContentHashBefore: "h1b"})

	require.Len(t, evo.TaskSnapshots, 2)
	require.Equal(t, "h1b", evo.TaskSnapshot("t1").ContentHashBefore)
}
