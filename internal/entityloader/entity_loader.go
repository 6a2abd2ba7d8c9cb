package entityloader

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/graph-gophers/dataloader"
)

// FetchFunc loads the rows for ids in one round trip. Ids with no row are
// simply absent from the returned map.
type FetchFunc[T any] func(ctx context.Context, ids []int64) (map[int64]T, error)

// Loader batches id lookups for one parent kind. A Loader caches for its
// own lifetime only; create one per query call.
type Loader[T any] struct {
	name   string
	loader *dataloader.Loader
	// fetches share one transaction, which is not safe for concurrent use.
	mu sync.Mutex
}

// New returns a loader that resolves ids through fetch.
func New[T any](name string, fetch FetchFunc[T]) *Loader[T] {
	l := &Loader[T]{name: name}

	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		ids := make([]int64, len(keys))
		for i, k := range keys {
			id, err := strconv.ParseInt(k.String(), 10, 64)
			if err != nil {
				for j := range results {
					results[j] = &dataloader.Result{Error: fmt.Errorf("invalid %s id %q: %w", name, k.String(), err)}
				}
				return results
			}
			ids[i] = id
		}

		l.mu.Lock()
		rows, err := fetch(ctx, ids)
		l.mu.Unlock()
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Build results in the same order as keys
		for i, id := range ids {
			if row, ok := rows[id]; ok {
				results[i] = &dataloader.Result{Data: row}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}
		return results
	}

	l.loader = dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(2*time.Millisecond))
	return l
}

// LoadAll resolves every non-zero id, deduplicated, and returns the rows
// found keyed by id.
func (l *Loader[T]) LoadAll(ctx context.Context, ids []int64) (map[int64]T, error) {
	out := make(map[int64]T, len(ids))

	seen := make(map[int64]struct{}, len(ids))
	keyStrings := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		keyStrings = append(keyStrings, strconv.FormatInt(id, 10))
	}
	if len(keyStrings) == 0 {
		return out, nil
	}

	keys := dataloader.NewKeysFromStrings(keyStrings)
	data, errs := l.loader.LoadMany(ctx, keys)()
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", l.name, err)
		}
	}

	for i, v := range data {
		if v == nil {
			continue
		}
		row, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("unexpected %s value %T", l.name, v)
		}
		id, _ := strconv.ParseInt(keys[i].String(), 10, 64)
		out[id] = row
	}
	return out, nil
}
