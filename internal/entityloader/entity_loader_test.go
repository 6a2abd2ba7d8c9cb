package entityloader

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type site struct {
	ID   int64
	Name string
}

type recordingFetch struct {
	mu    sync.Mutex
	calls [][]int64
	rows  map[int64]site
	err   error
}

func (f *recordingFetch) fetch(_ context.Context, ids []int64) (map[int64]site, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	f.calls = append(f.calls, sorted)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[int64]site)
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			out[id] = row
		}
	}
	return out, nil
}

func TestLoadAllBatchesAndDeduplicates(t *testing.T) {
	f := &recordingFetch{rows: map[int64]site{
		1: {ID: 1, Name: "RENC"},
		2: {ID: 2, Name: "UKY"},
	}}
	l := New[site]("sites", f.fetch)

	got, err := l.LoadAll(context.Background(), []int64{2, 1, 2, 0, 3})
	require.NoError(t, err)

	assert.Equal(t, map[int64]site{1: {ID: 1, Name: "RENC"}, 2: {ID: 2, Name: "UKY"}}, got)
	var fetched []int64
	for _, c := range f.calls {
		fetched = append(fetched, c...)
	}
	assert.ElementsMatch(t, []int64{1, 2, 3}, fetched)
}

func TestLoadAllEmpty(t *testing.T) {
	f := &recordingFetch{}
	l := New[site]("sites", f.fetch)

	got, err := l.LoadAll(context.Background(), []int64{0})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, f.calls)
}

func TestLoadAllPropagatesFetchError(t *testing.T) {
	f := &recordingFetch{err: errors.New("connection reset")}
	l := New[site]("sites", f.fetch)

	_, err := l.LoadAll(context.Background(), []int64{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestLoadAllCachesWithinLoader(t *testing.T) {
	f := &recordingFetch{rows: map[int64]site{1: {ID: 1, Name: "RENC"}}}
	l := New[site]("sites", f.fetch)

	_, err := l.LoadAll(context.Background(), []int64{1})
	require.NoError(t, err)
	_, err = l.LoadAll(context.Background(), []int64{1})
	require.NoError(t, err)
	assert.Len(t, f.calls, 1)
}
