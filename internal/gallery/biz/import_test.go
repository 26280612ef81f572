package biz

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
	"github.com/lk2023060901/cat-gallery/internal/pkg/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	calls atomic.Int32
	// failEvery 每隔几次失败一次，0 表示不失败
	failEvery int32
}

func (s *stubSource) Random(context.Context) (NewEntry, error) {
	n := s.calls.Add(1)
	if s.failEvery > 0 && n%s.failEvery == 0 {
		return NewEntry{}, errors.New("thecatapi down")
	}
	return NewEntry{
		Title:       "cat-id",
		Description: "Importiert von thecatapi.com",
		Rating:      5,
		Filename:    "abc.jpg",
		Bytes:       b64("test"),
	}, nil
}

func newTestImport(t *testing.T, source CatSource) (*ImportUseCase, *memRepo) {
	t.Helper()
	pool, err := workerpool.New(&workerpool.Config{Workers: 3}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(pool.Shutdown)

	repo := newMemRepo()
	entries := NewEntryUseCase(repo, newMemBlobs(), nil, logger.Nop())
	return NewImportUseCase(entries, source, pool, logger.Nop()), repo
}

func TestImport_Draft(t *testing.T) {
	uc, repo := newTestImport(t, &stubSource{})

	draft, err := uc.Draft(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cat-id", draft.Title)
	assert.Equal(t, 5, draft.Rating)
	assert.Empty(t, repo.entries)
}

func TestImport_Many(t *testing.T) {
	uc, repo := newTestImport(t, &stubSource{})

	report, err := uc.Import(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, report.IDs, 5)
	assert.Empty(t, report.Errors)
	assert.Len(t, repo.entries, 5)
}

func TestImport_PartialFailure(t *testing.T) {
	uc, repo := newTestImport(t, &stubSource{failEvery: 2})

	report, err := uc.Import(context.Background(), 4)
	require.NoError(t, err)
	assert.Len(t, report.IDs, 2)
	assert.Len(t, report.Errors, 2)
	assert.Len(t, repo.entries, 2)
}

func TestImport_AllFail(t *testing.T) {
	uc, _ := newTestImport(t, &stubSource{failEvery: 1})

	_, err := uc.Import(context.Background(), 2)
	assert.Error(t, err)
}

func TestImport_CountBounds(t *testing.T) {
	uc, _ := newTestImport(t, &stubSource{})

	_, err := uc.Import(context.Background(), 0)
	assert.Error(t, err)
	_, err = uc.Import(context.Background(), MaxImportCount+1)
	assert.Error(t, err)
}
