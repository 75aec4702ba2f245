package submit

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/megaverse/internal/megaverse"
)

var errRemote = errors.New("remote failure")

// scripted fails the first `failures` calls and succeeds afterwards.
// failures < 0 means fail forever.
type scripted struct {
	failures int
	calls    int
	seen     []megaverse.Object
}

func (s *scripted) Place(_ context.Context, obj megaverse.Object) error {
	s.calls++
	s.seen = append(s.seen, obj)
	if s.failures < 0 || s.calls <= s.failures {
		return errRemote
	}
	return nil
}

func TestSubmitContinuousFailureMakesNPlusOneAttempts(t *testing.T) {
	for n := 0; n <= 6; n++ {
		p := &scripted{failures: -1}
		res := New(p, WithMaxRetries(n)).Submit(context.Background(), megaverse.Polyanet(1, 1))

		assert.Equal(t, Exhausted, res.State, "budget %d", n)
		assert.Equal(t, n+1, res.Attempts, "budget %d", n)
		assert.Equal(t, n+1, p.calls, "budget %d", n)
		assert.ErrorIs(t, res.Err, errRemote)
	}
}

func TestSubmitSucceedsOnAttemptK(t *testing.T) {
	for n := 0; n <= 4; n++ {
		for k := 1; k <= n+1; k++ {
			p := &scripted{failures: k - 1}
			res := New(p, WithMaxRetries(n)).Submit(context.Background(), megaverse.Polyanet(2, 3))

			assert.Equal(t, Succeeded, res.State, "budget %d, k %d", n, k)
			assert.Equal(t, k, res.Attempts, "budget %d, k %d", n, k)
			assert.Equal(t, k, p.calls, "budget %d, k %d", n, k)
			assert.NoError(t, res.Err)
		}
	}
}

func TestSubmitFailsTwiceThenSucceeds(t *testing.T) {
	p := &scripted{failures: 2}
	obj := megaverse.Polyanet(8, 8)

	res := New(p).Submit(context.Background(), obj)

	assert.Equal(t, Succeeded, res.State)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []megaverse.Object{obj, obj, obj}, p.seen)
}

func TestSubmitAlwaysFailsWithDefaultBudget(t *testing.T) {
	p := &scripted{failures: -1}

	var res Result
	require.NotPanics(t, func() {
		res = New(p).Submit(context.Background(), megaverse.Polyanet(8, 8))
	})

	assert.Equal(t, Exhausted, res.State)
	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, DefaultMaxRetries, New(p).MaxRetries())
}

func TestSubmitNegativeBudgetIsZero(t *testing.T) {
	p := &scripted{failures: -1}
	res := New(p, WithMaxRetries(-5)).Submit(context.Background(), megaverse.Polyanet(0, 0))

	assert.Equal(t, Exhausted, res.State)
	assert.Equal(t, 1, res.Attempts)
}

func TestSubmitCancelledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := PlacerFunc(func(context.Context, megaverse.Object) error {
		calls++
		cancel()
		return errRemote
	})

	res := New(p).Submit(ctx, megaverse.Polyanet(0, 0))

	assert.Equal(t, Exhausted, res.State)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestSubmitLogsOneLinePerAttemptOutcome(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	p := &scripted{failures: 1}

	New(p, WithLogger(logger)).Submit(context.Background(), megaverse.Polyanet(8, 8))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "failed: Polyanet [8, 8]"))
	assert.Equal(t, 1, strings.Count(out, "retrying [8, 8]"))
	assert.Equal(t, 1, strings.Count(out, "Polyanet created at [8, 8]"))
	assert.NotContains(t, out, "giving up")
}

func TestSubmitVerb(t *testing.T) {
	var buf bytes.Buffer
	New(&scripted{}, WithLogger(zerolog.New(&buf)), WithVerb("deleted")).
		Submit(context.Background(), megaverse.Polyanet(1, 9))
	assert.Contains(t, buf.String(), "Polyanet deleted at [1, 9]")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "exhausted", Exhausted.String())
}
