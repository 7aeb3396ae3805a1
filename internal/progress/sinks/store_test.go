package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/company-intel-crawler/internal/crawler"
	"github.com/JakeFAU/company-intel-crawler/internal/progress"
	"github.com/JakeFAU/company-intel-crawler/internal/store"
)

// TestStoreSinkPersistsEvents ensures run lifecycle and results reach the repository.
func TestStoreSinkPersistsEvents(t *testing.T) {
	t.Parallel()

	repo := &fakeResultRepo{}
	sink := NewStoreSink(repo, nil)
	now := time.Now()
	result := crawler.NewResult(crawler.CompanyTarget{Name: "Acme", URL: "https://acme.test"})

	batch := []progress.Event{
		{JobID: "a1b2c3d4", TS: now, Type: progress.TypeStart, Data: progress.StartData{Total: 1}},
		{JobID: "a1b2c3d4", TS: now, Type: progress.TypeStep, Data: progress.StepData{Step: "Opening"}},
		{
			JobID: "a1b2c3d4",
			TS:    now.Add(time.Second),
			Type:  progress.TypeCompanyDone,
			Data:  progress.CompanyDoneData{Index: 1, Total: 1, Company: "Acme", Result: result},
		},
		{
			JobID: "a1b2c3d4",
			TS:    now.Add(2 * time.Second),
			Type:  progress.TypeDone,
			Data:  progress.DoneData{Total: 1, OutputFile: "file:///tmp/output.xlsx"},
		},
	}

	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, []int{1}, repo.starts)
	require.Len(t, repo.results, 1)
	require.Equal(t, "Acme", repo.results[0].Name)
	require.Len(t, repo.completions, 1)
	require.Equal(t, store.RunSuccess, repo.completions[0].Status)
	require.Equal(t, "file:///tmp/output.xlsx", repo.completions[0].OutputFile)
}

func TestStoreSinkRecordsErrorMessage(t *testing.T) {
	t.Parallel()

	repo := &fakeResultRepo{}
	sink := NewStoreSink(repo, nil)

	err := sink.Consume(context.Background(), []progress.Event{
		{JobID: "a1b2c3d4", TS: time.Now(), Type: progress.TypeError, Data: progress.ErrorData{Message: "disk full"}},
	})
	require.NoError(t, err)
	require.Len(t, repo.completions, 1)
	require.Equal(t, store.RunError, repo.completions[0].Status)
	require.Equal(t, "disk full", *repo.completions[0].ErrorMessage)
}

// TestStoreSinkHandlesErrors surfaces repository failures back to the caller.
func TestStoreSinkHandlesErrors(t *testing.T) {
	t.Parallel()

	sink := NewStoreSink(&fakeResultRepo{fail: true}, nil)
	err := sink.Consume(context.Background(), []progress.Event{
		{JobID: "a1b2c3d4", TS: time.Now(), Type: progress.TypeStart, Data: progress.StartData{Total: 1}},
	})
	require.ErrorContains(t, err, "upsert job start")
}

func TestStoreSinkWithoutRepo(t *testing.T) {
	t.Parallel()

	sink := NewStoreSink(nil, nil)
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{JobID: "a1b2c3d4", TS: time.Now(), Type: progress.TypeStart, Data: progress.StartData{}},
	}))
}

type fakeResultRepo struct {
	fail        bool
	starts      []int
	results     []crawler.CompanyResult
	completions []store.RunCompletion
}

func (f *fakeResultRepo) UpsertJobStart(_ context.Context, _ string, total int, _ time.Time) error {
	if f.fail {
		return assertErr("start")
	}
	f.starts = append(f.starts, total)
	return nil
}

func (f *fakeResultRepo) SaveResult(_ context.Context, _ string, _ int, result crawler.CompanyResult, _ time.Time) error {
	if f.fail {
		return assertErr("save")
	}
	f.results = append(f.results, result)
	return nil
}

func (f *fakeResultRepo) CompleteJob(_ context.Context, _ string, done store.RunCompletion) error {
	if f.fail {
		return assertErr("complete")
	}
	f.completions = append(f.completions, done)
	return nil
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
