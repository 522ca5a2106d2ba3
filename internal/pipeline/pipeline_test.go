package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/votestudy/internal/logger"
	"github.com/rewired-gh/votestudy/internal/models"
	"github.com/rewired-gh/votestudy/internal/report"
	"github.com/rewired-gh/votestudy/internal/testutil"
)

// fakeSource serves details from a map; keys in failing return an error.
type fakeSource struct {
	summaries []models.DebateSummary
	details   map[string]*models.DebateDetail
	failing   map[string]bool
	listErr   error
	delay     time.Duration

	mu      sync.Mutex
	fetched []string
	spans   []span
}

// span is the wall-clock interval of one FetchDetail call.
type span struct {
	start, end time.Time
}

func (f *fakeSource) FetchAllCompleted(ctx context.Context) ([]models.DebateSummary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.summaries, nil
}

func (f *fakeSource) FetchDetail(ctx context.Context, id string) (*models.DebateDetail, error) {
	start := time.Now()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.fetched = append(f.fetched, id)
	f.spans = append(f.spans, span{start: start, end: time.Now()})
	f.mu.Unlock()

	if f.failing[id] {
		return nil, fmt.Errorf("status 500 for %s", id)
	}
	d, ok := f.details[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return d, nil
}

func newFake(debates ...*models.DebateDetail) *fakeSource {
	f := &fakeSource{details: map[string]*models.DebateDetail{}, failing: map[string]bool{}}
	for _, d := range debates {
		f.summaries = append(f.summaries, models.DebateSummary{Slug: d.Slug})
		f.details[d.Slug] = d
	}
	return f
}

func TestRun_ListErrorIsFatal(t *testing.T) {
	f := newFake()
	f.listErr = errors.New("connection refused")

	_, err := New(f, Options{}).Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection refused")
}

func TestRun_EmptyListing(t *testing.T) {
	res, err := New(newFake(), Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalDebates)
	assert.Equal(t, 0, res.Aggregator.DebatesWithVotes)
}

func TestRun_SkipsFailedAndUnresolvable(t *testing.T) {
	f := newFake(
		testutil.Debate("a", "A", 2, 1),
		testutil.Debate("b", "A", 1, 2),
		testutil.Debate("c", "B", 0, 0),
	)
	f.failing["b"] = true
	f.summaries = append(f.summaries, models.DebateSummary{}, models.DebateSummary{ID: "42"})

	res, err := New(f, Options{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, res.TotalDebates)
	assert.Equal(t, 1, res.Unresolvable)
	assert.Equal(t, 2, res.Failed) // "b" errors, "42" is not found
	assert.Equal(t, 1, res.Aggregator.DebatesWithVotes)
	assert.Equal(t, 1, res.Aggregator.ChallengerWins)
	assert.Equal(t, 0, res.Aggregator.OpponentWins)
	assert.Equal(t, []string{"a", "b", "c", "42"}, f.fetched)
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	var debates []*models.DebateDetail
	for i := 0; i < 60; i++ {
		ch, op := i%4, (i/2)%3
		votes := []models.VoteRecord{
			testutil.Vote(fmt.Sprintf("v%d", i%7), models.SideChallenger),
			testutil.Vote(fmt.Sprintf("v%d", i%5), models.SideOpponent),
		}
		debates = append(debates, testutil.Debate(fmt.Sprintf("d%d", i), fmt.Sprintf("cat%d", i%4), ch, op, votes...))
	}

	seqSrc := newFake(debates...)
	seqSrc.failing["d13"] = true
	parSrc := newFake(debates...)
	parSrc.failing["d13"] = true
	parSrc.delay = time.Millisecond

	seq, err := New(seqSrc, Options{}).Run(context.Background())
	require.NoError(t, err)
	par, err := New(parSrc, Options{Concurrency: 8}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, seq.Failed, par.Failed)
	assert.Equal(t, 1, par.Failed)

	now := time.Now()
	th := report.DefaultThresholds()
	assert.Equal(t,
		report.Build(seq.Aggregator, seq.TotalDebates, th, now),
		report.Build(par.Aggregator, par.TotalDebates, th, now),
	)
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFake(testutil.Debate("a", "A", 1, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(f, Options{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.fetched)
}

func TestRun_SequentialWaitsAfterSlowFetch(t *testing.T) {
	f := newFake(
		testutil.Debate("a", "A", 1, 0),
		testutil.Debate("b", "A", 0, 1),
		testutil.Debate("c", "A", 1, 0),
	)
	f.delay = 60 * time.Millisecond

	_, err := New(f, Options{RequestDelay: 50 * time.Millisecond}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, f.spans, 3)
	for i := 1; i < len(f.spans); i++ {
		gap := f.spans[i].start.Sub(f.spans[i-1].end)
		assert.GreaterOrEqual(t, gap, 45*time.Millisecond, "gap before fetch %d", i)
	}
}

func TestRun_CancelDuringDelay(t *testing.T) {
	f := newFake(
		testutil.Debate("a", "A", 1, 0),
		testutil.Debate("b", "A", 0, 1),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, err := New(f, Options{RequestDelay: time.Hour}).Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), 5*time.Second)
	assert.Equal(t, []string{"a"}, f.fetched)
}

func TestRun_ProgressCountsOnlyDebatesWithVotes(t *testing.T) {
	build := func(lastHasVotes bool) *fakeSource {
		var debates []*models.DebateDetail
		for i := 0; i < 19; i++ {
			debates = append(debates, testutil.Debate(fmt.Sprintf("d%d", i), "A", 1, 0))
		}
		if lastHasVotes {
			debates = append(debates, testutil.Debate("last", "A", 0, 1))
		} else {
			debates = append(debates, testutil.Debate("last", "A", 0, 0))
		}
		return newFake(debates...)
	}

	tests := []struct {
		name         string
		lastHasVotes bool
		want         bool
	}{
		{"twentieth has votes", true, true},
		{"twentieth has no votes", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger.InitWithWriter(&buf, "info", "json")
			t.Cleanup(func() { logger.InitWithWriter(io.Discard, "error", "json") })

			_, err := New(build(tt.lastHasVotes), Options{}).Run(context.Background())
			require.NoError(t, err)

			if tt.want {
				assert.Contains(t, buf.String(), "Processed 20/20...")
			} else {
				assert.NotContains(t, buf.String(), "Processed 20/20...")
			}
		})
	}
}
