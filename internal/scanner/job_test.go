package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docleaai/doclea-mcp-sub003/pkg/treesitter"
)

func waitForJob(t *testing.T, jm *JobManager, id string) Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := jm.GetJob(id)
		require.True(t, ok)
		if job.Status == treesitter.IndexingStatusCompleted || job.Status == treesitter.IndexingStatusFailed {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish in time", id)
	return Job{}
}

func TestJobManagerRunsSubmittedScan(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "sample.go", sampleGoFile)

	graph := newTestGraph(t)
	s := New(graph, nil)
	jm := NewJobManager(s, 1, 4)
	defer jm.Stop()

	job := jm.Submit(Config{RootPath: dir, Incremental: true, Concurrency: 1})
	require.NotEmpty(t, job.ID)

	done := waitForJob(t, jm, job.ID)
	require.Equal(t, treesitter.IndexingStatusCompleted, done.Status)
	require.Equal(t, 1, done.Stats.FilesScanned)
	require.Equal(t, float64(100), done.Progress)
}

func TestJobManagerGetJobUnknownID(t *testing.T) {
	graph := newTestGraph(t)
	s := New(graph, nil)
	jm := NewJobManager(s, 1, 4)
	defer jm.Stop()

	_, ok := jm.GetJob("does-not-exist")
	require.False(t, ok)
}

func TestJobManagerRunsConcurrentJobsIndependently(t *testing.T) {
	dirA := t.TempDir()
	writeGoFile(t, dirA, "a.go", sampleGoFile)
	dirB := t.TempDir()
	writeGoFile(t, dirB, "b.go", sampleGoFile)
	writeGoFile(t, dirB, "c.go", sampleGoFile+"\nfunc Another() {}\n")

	graph := newTestGraph(t)
	s := New(graph, nil)
	jm := NewJobManager(s, 2, 4)
	defer jm.Stop()

	jobA := jm.Submit(Config{RootPath: dirA, Incremental: true, Concurrency: 1})
	jobB := jm.Submit(Config{RootPath: dirB, Incremental: true, Concurrency: 1})
	require.NotEqual(t, jobA.ID, jobB.ID)

	doneA := waitForJob(t, jm, jobA.ID)
	doneB := waitForJob(t, jm, jobB.ID)
	require.Equal(t, 1, doneA.Stats.FilesScanned)
	require.Equal(t, 2, doneB.Stats.FilesScanned)
}
