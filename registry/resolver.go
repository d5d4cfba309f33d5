package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// resolveConcurrency bounds in-flight lookups. The shared rate limiter is
// the real throttle; this just keeps goroutine count sane on large ID sets.
const resolveConcurrency = 8

// Resolution is the outcome of a batch lookup. An ID appears in exactly one
// of Records or Missing.
type Resolution struct {
	Records map[string]*Record
	Missing map[string]bool
}

// Has reports whether id resolved to a record.
func (r *Resolution) Has(id string) bool {
	_, ok := r.Records[id]
	return ok
}

// Seen reports whether id was already looked up, whether or not it exists.
func (r *Resolution) Seen(id string) bool {
	return r.Has(id) || r.Missing[id]
}

// Merge folds another batch into r. Used when a first resolution surfaces
// linked IDs that need a follow-up batch.
func (r *Resolution) Merge(other *Resolution) {
	for id, record := range other.Records {
		r.Records[id] = record
	}
	for id := range other.Missing {
		r.Missing[id] = true
	}
}

// ResolveMany looks up every ID concurrently. Missing IDs are collected,
// not errors: the validators turn them into diagnostics. Any lookup that
// fails after retries aborts the whole batch with ErrUnavailable, so a
// flaky registry can never produce a silently partial pass.
func (c *Client) ResolveMany(ctx context.Context, ids []string) (*Resolution, error) {
	res := &Resolution{
		Records: make(map[string]*Record, len(ids)),
		Missing: make(map[string]bool),
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			record, err := c.Fetch(ctx, id)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					mu.Lock()
					res.Missing[id] = true
					mu.Unlock()
					return nil
				}
				return fmt.Errorf("%w: resolving %s: %v", ErrUnavailable, id, err)
			}
			mu.Lock()
			res.Records[id] = record
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
