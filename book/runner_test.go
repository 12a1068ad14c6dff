package book

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"balancedbook/analyze"
	"balancedbook/epd"
	"balancedbook/fen"
)

type stubSource struct {
	games   []*fen.Game
	idx     int
	skipped int
}

func (s *stubSource) Next() (*fen.Game, error) {
	if s.idx >= len(s.games) {
		return nil, io.EOF
	}
	g := s.games[s.idx]
	s.idx++
	return g, nil
}

func (s *stubSource) Skipped() int {
	return s.skipped
}

type stubGate struct {
	outcomes    []analyze.Outcome
	submits     []string
	relaunches  int
	relaunchErr error
}

func (g *stubGate) Submit(ctx context.Context, fenPos string, pov fen.Color, budget time.Duration) analyze.Outcome {
	g.submits = append(g.submits, fenPos)
	if len(g.outcomes) == 0 {
		return analyze.Outcome{Kind: analyze.NotBalanced}
	}
	out := g.outcomes[0]
	g.outcomes = g.outcomes[1:]
	return out
}

func (g *stubGate) Relaunch(ctx context.Context) error {
	g.relaunches++
	return g.relaunchErr
}

func newTestRunner(opts Options, gate Gate, buf *bytes.Buffer) *Runner {
	sel := NewSelector(4, 6, 2, NewRNG("runner-test"))
	return NewRunner(opts, sel, gate, epd.NewWriter(buf))
}

func defaultOpts() Options {
	return Options{MaxGames: 100, Target: 10, MoveTime: 100 * time.Millisecond}
}

func TestRunnerWritesBalancedPositions(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	gate := &stubGate{outcomes: []analyze.Outcome{{Kind: analyze.Balanced, Score: 10}}}
	r := newTestRunner(defaultOpts(), gate, &buf)
	src := &stubSource{games: []*fen.Game{game(ruyLopez...)}}

	// act
	summary, err := r.Run(context.Background(), src)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, summary.GamesProcessed)
	assert.Equal(t, 1, summary.PositionsFound)
	assert.Len(t, gate.submits, 1)
	assert.Contains(t, buf.String(), ` id "1"; ce 10`)
}

func TestRunnerDiscardsUnbalancedPositions(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	gate := &stubGate{outcomes: []analyze.Outcome{{Kind: analyze.NotBalanced, Score: 300}}}
	r := newTestRunner(defaultOpts(), gate, &buf)
	src := &stubSource{games: []*fen.Game{game(ruyLopez...)}}

	// act
	summary, err := r.Run(context.Background(), src)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 0, summary.PositionsFound)
	assert.Empty(t, buf.String())
}

func TestRunnerStopsAtTarget(t *testing.T) {
	// arrange: two distinct openings, but the target is one position
	var buf bytes.Buffer
	gate := &stubGate{outcomes: []analyze.Outcome{
		{Kind: analyze.Balanced, Score: 5},
		{Kind: analyze.Balanced, Score: 5},
	}}
	opts := defaultOpts()
	opts.Target = 1
	r := newTestRunner(opts, gate, &buf)
	src := &stubSource{games: []*fen.Game{game(ruyLopez...), game(queens...)}}

	// act
	summary, err := r.Run(context.Background(), src)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, summary.GamesProcessed)
	assert.Equal(t, 1, summary.PositionsFound)
	assert.Len(t, gate.submits, 1)
}

func TestRunnerStopsAtGamesBudget(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	gate := &stubGate{}
	opts := defaultOpts()
	opts.MaxGames = 1
	r := newTestRunner(opts, gate, &buf)
	src := &stubSource{games: []*fen.Game{game(ruyLopez...), game(queens...)}}

	// act
	summary, err := r.Run(context.Background(), src)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, summary.GamesProcessed)
}

func TestRunnerRejectedGamesSkipEvaluation(t *testing.T) {
	// arrange: a short game and a checkmate ending inside the window
	var buf bytes.Buffer
	gate := &stubGate{}
	sel := NewSelector(4, 4, 2, NewRNG("runner-test"))
	r := NewRunner(defaultOpts(), sel, gate, epd.NewWriter(&buf))
	src := &stubSource{games: []*fen.Game{
		game("e2e4", "e7e5"),
		game(foolsMate...),
	}}

	// act
	summary, err := r.Run(context.Background(), src)

	// assert: both games count, neither reaches the engine
	require.NoError(t, err)
	assert.Equal(t, 2, summary.GamesProcessed)
	assert.Empty(t, gate.submits)
	assert.Empty(t, buf.String())
}

func TestRunnerDropsCandidateOnTransportFailure(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	gate := &stubGate{outcomes: []analyze.Outcome{
		{Kind: analyze.TransportFailure},
		{Kind: analyze.Balanced, Score: 8},
	}}
	r := newTestRunner(defaultOpts(), gate, &buf)
	src := &stubSource{games: []*fen.Game{game(ruyLopez...), game(queens...)}}

	// act
	summary, err := r.Run(context.Background(), src)

	// assert: the failed candidate is gone, the run continues
	require.NoError(t, err)
	assert.Equal(t, 1, gate.relaunches)
	assert.Equal(t, 2, summary.GamesProcessed)
	assert.Equal(t, 1, summary.PositionsFound)
	assert.Len(t, gate.submits, 2)
	if assert.Equal(t, 1, strings.Count(buf.String(), "\n")) {
		assert.Contains(t, buf.String(), ` id "1"; ce 8`)
	}
}

func TestRunnerFatalOnRelaunchFailure(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	gate := &stubGate{
		outcomes:    []analyze.Outcome{{Kind: analyze.TransportFailure}},
		relaunchErr: errors.New("engine binary vanished"),
	}
	r := newTestRunner(defaultOpts(), gate, &buf)
	src := &stubSource{games: []*fen.Game{game(ruyLopez...), game(queens...)}}

	// act
	summary, err := r.Run(context.Background(), src)

	// assert
	require.Error(t, err)
	assert.Equal(t, 1, summary.GamesProcessed)
	assert.Empty(t, buf.String())
}

func TestRunnerHonorsCancellation(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := newTestRunner(defaultOpts(), &stubGate{}, &buf)
	src := &stubSource{games: []*fen.Game{game(ruyLopez...)}}

	// act
	summary, err := r.Run(ctx, src)

	// assert
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.GamesProcessed)
}

func TestRunnerSummaryCarriesSkippedCount(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRunner(defaultOpts(), &stubGate{}, &buf)
	src := &stubSource{skipped: 3}

	summary, err := r.Run(context.Background(), src)

	require.NoError(t, err)
	assert.Equal(t, 3, summary.SkippedGames)
	assert.Positive(t, summary.Elapsed)
}
