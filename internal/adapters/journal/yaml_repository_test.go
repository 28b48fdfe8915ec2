package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/hostwright/hostwright/internal/domain/journal"
	"github.com/hostwright/hostwright/internal/testutil"
)

func TestYAMLRepository_LoadMissingIsEmpty(t *testing.T) {
	repo := NewYAMLRepository(testutil.NewFakeFileSystem(), "/var/lib/hostwright")

	log, err := repo.Load()
	require.NoError(t, err)
	require.Empty(t, log.Runs)
}

func TestYAMLRepository_AppendAndLoad(t *testing.T) {
	fs := testutil.NewFakeFileSystem()
	repo := NewYAMLRepository(fs, "/var/lib/hostwright")

	run := domain.NewRun(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	run.Steps = []domain.StepRecord{
		{ID: "apt:package:apache2", Outcome: domain.OutcomeApplied, DurationMS: 4200},
	}
	run.Success = true
	run.Finish(time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC))

	require.NoError(t, repo.Append(run))

	second := domain.NewRun(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	second.Success = true
	require.NoError(t, repo.Append(second))

	log, err := repo.Load()
	require.NoError(t, err)
	require.Len(t, log.Runs, 2)
	require.Equal(t, run.ID, log.Runs[0].ID)
	require.Equal(t, "apt:package:apache2", log.Runs[0].Steps[0].ID)
	require.Equal(t, domain.OutcomeApplied, log.Runs[0].Steps[0].Outcome)
	require.Equal(t, second.ID, log.Runs[1].ID)
}

func TestYAMLRepository_FilePermissions(t *testing.T) {
	fs := testutil.NewFakeFileSystem()
	repo := NewYAMLRepository(fs, "/var/lib/hostwright")

	require.NoError(t, repo.Append(domain.NewRun(time.Now())))
	require.EqualValues(t, 0o600, fs.Perm(repo.Path()))
}

func TestYAMLRepository_CorruptJournal(t *testing.T) {
	fs := testutil.NewFakeFileSystem()
	repo := NewYAMLRepository(fs, "/var/lib/hostwright")
	fs.Seed(repo.Path(), []byte("{{{not yaml"))

	_, err := repo.Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse")
}
