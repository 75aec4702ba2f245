// internal/submit/submitter.go
//
// Bounded-retry submission of megaverse objects.
//
// A Submitter performs one outbound call per attempt and retries failures
// immediately, up to a fixed budget:
//   - success on any attempt  → Succeeded
//   - failure, budget left    → retry (budget - 1), no delay, no backoff
//   - failure, budget spent   → Exhausted (logged, not returned as an error)
//
// With budget N a call that keeps failing is attempted exactly N+1 times.
// Nothing is deduplicated: if the remote applied a "failed" request, the
// retry may place the object twice.

package submit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/robalobadob/megaverse/internal/megaverse"
)

// DefaultMaxRetries is the retry budget used when none is configured.
const DefaultMaxRetries = 3

// State is the lifecycle of one submission.
type State int

const (
	Pending State = iota
	Succeeded
	Exhausted
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	}
	return "unknown"
}

// Placer performs exactly one outbound call for obj.
type Placer interface {
	Place(ctx context.Context, obj megaverse.Object) error
}

// PlacerFunc adapts a function (e.g. (*api.Client).Create) to Placer.
type PlacerFunc func(ctx context.Context, obj megaverse.Object) error

func (f PlacerFunc) Place(ctx context.Context, obj megaverse.Object) error { return f(ctx, obj) }

// Result is the terminal outcome of Submit.
type Result struct {
	Object   megaverse.Object
	State    State
	Attempts int
	Err      error // last failure; nil when Succeeded
}

// Submitter wraps a Placer with a fixed retry budget.
type Submitter struct {
	placer     Placer
	maxRetries int
	verb       string
	log        zerolog.Logger
}

// Option customizes a Submitter.
type Option func(*Submitter)

// WithMaxRetries sets the retry budget. Negative values are treated as 0.
func WithMaxRetries(n int) Option {
	return func(s *Submitter) {
		if n < 0 {
			n = 0
		}
		s.maxRetries = n
	}
}

// WithLogger sets the logger for per-attempt output.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Submitter) { s.log = l }
}

// WithVerb sets the past-tense verb used in log lines ("created", "deleted").
func WithVerb(verb string) Option {
	return func(s *Submitter) { s.verb = verb }
}

// New creates a Submitter around p with DefaultMaxRetries.
func New(p Placer, opts ...Option) *Submitter {
	s := &Submitter{
		placer:     p,
		maxRetries: DefaultMaxRetries,
		verb:       "created",
		log:        zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// MaxRetries returns the configured retry budget.
func (s *Submitter) MaxRetries() int { return s.maxRetries }

// Submit places obj, retrying failures until the budget is spent.
// It never returns a Go error: the outcome is carried in Result.
// A cancelled ctx stops further attempts and ends in Exhausted.
func (s *Submitter) Submit(ctx context.Context, obj megaverse.Object) Result {
	res := Result{Object: obj, State: Pending}
	remaining := s.maxRetries

	for res.State == Pending {
		if err := ctx.Err(); err != nil {
			res.State, res.Err = Exhausted, err
			s.log.Error().Err(err).Str("object", obj.String()).Int("attempts", res.Attempts).Msg("submission cancelled")
			break
		}

		res.Attempts++
		err := s.placer.Place(ctx, obj)
		if err == nil {
			res.State, res.Err = Succeeded, nil
			s.log.Info().Int("row", obj.Placement.Row).Int("column", obj.Placement.Column).Int("attempt", res.Attempts).
				Msgf("%s %s at %s", obj.Kind.Name(), s.verb, obj.Placement)
			break
		}

		res.Err = err
		s.log.Warn().Err(err).Int("row", obj.Placement.Row).Int("column", obj.Placement.Column).Int("attempt", res.Attempts).
			Msgf("failed: %s %s", obj.Kind.Name(), obj.Placement)

		if remaining == 0 {
			res.State = Exhausted
			s.log.Error().Err(err).Int("attempts", res.Attempts).Msgf("giving up on %s", obj)
			break
		}
		remaining--
		s.log.Info().Int("remaining", remaining).Msgf("retrying %s", obj.Placement)
	}
	return res
}
