package planner

import (
	"context"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"
)

// Request is one query of a batch.
type Request struct {
	From orb.Point
	To   orb.Point
}

// Result pairs a batch request with its outcome.
type Result struct {
	Route Route
	Err   error
}

// FindPaths answers reqs with at most limit queries in flight. A failed query is
// reported in its Result; the returned error is only set when ctx ends before the
// batch completes, in which case the unanswered results carry ctx's error.
func (p *Planner) FindPaths(ctx context.Context, reqs []Request, limit int) ([]Result, error) {
	results := make([]Result, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, req := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			route, err := p.FindPath(req.From, req.To)
			results[i] = Result{Route: route, Err: err}
			return nil
		})
	}
	err := g.Wait()
	return results, err
}
