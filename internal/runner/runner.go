// internal/runner/runner.go
//
// Sequential driver over a list of objects. One object at a time reaches a
// terminal state before the next starts; an optional pace spaces objects
// (never retries) through a token bucket.

// Package runner drives a list of objects through a Submitter one at a time.
package runner

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/robalobadob/megaverse/internal/megaverse"
	"github.com/robalobadob/megaverse/internal/submit"
)

// Runner submits objects sequentially; each reaches a terminal state before
// the next one starts.
type Runner struct {
	sub     *submit.Submitter
	limiter *rate.Limiter
	log     zerolog.Logger
}

// New creates a Runner. A positive pace spaces consecutive objects at least
// that far apart; retries of one object are never paced.
func New(sub *submit.Submitter, pace time.Duration, log zerolog.Logger) *Runner {
	r := &Runner{sub: sub, log: log}
	if pace > 0 {
		r.limiter = rate.NewLimiter(rate.Every(pace), 1)
	}
	return r
}

// Run submits every object in order and returns one Result per object that
// was started. Exhausted submissions do not stop the run; a cancelled ctx
// does.
func (r *Runner) Run(ctx context.Context, objects []megaverse.Object) []submit.Result {
	results := make([]submit.Result, 0, len(objects))
	for _, obj := range objects {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
		results = append(results, r.sub.Submit(ctx, obj))
	}
	r.log.Debug().Int("objects", len(objects)).Int("submitted", len(results)).Msg("run finished")
	return results
}

// Failed filters results that ended Exhausted.
func Failed(results []submit.Result) []submit.Result {
	var out []submit.Result
	for _, res := range results {
		if res.State == submit.Exhausted {
			out = append(out, res)
		}
	}
	return out
}
