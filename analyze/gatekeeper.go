package analyze

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"balancedbook/fen"
)

type State int

const (
	// StateFaulted means no live session: the initial state, and the
	// state after a transport failure until a relaunch succeeds.
	StateFaulted State = iota
	StateReady
	StateEvaluating
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateFaulted:
		return "faulted"
	case StateReady:
		return "ready"
	case StateEvaluating:
		return "evaluating"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type OutcomeKind int

const (
	Balanced OutcomeKind = iota
	NotBalanced
	TransportFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case Balanced:
		return "balanced"
	case NotBalanced:
		return "not-balanced"
	case TransportFailure:
		return "transport-failure"
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// Outcome is the typed result of submitting one candidate position.
// Score is the white-perspective, mate-normalized evaluation; it is
// meaningless for TransportFailure.
type Outcome struct {
	Kind  OutcomeKind
	Score int
}

type evaluator interface {
	evaluate(ctx context.Context, fenPos string, budget time.Duration) (Eval, error)
	close()
}

// Gatekeeper owns the engine session and classifies candidate
// positions. It is not safe for concurrent use; the pipeline holds at
// most one evaluation in flight.
type Gatekeeper struct {
	threshold  int
	launch     func(ctx context.Context) (evaluator, error)
	session    evaluator
	state      State
	relaunches int
}

// NewGatekeeper prepares a gatekeeper for the given engine binary.
// Scores with absolute value at most threshold classify as balanced.
func NewGatekeeper(enginePath string, threshold int) *Gatekeeper {
	return &Gatekeeper{
		threshold: threshold,
		launch: func(ctx context.Context) (evaluator, error) {
			return newSession(ctx, enginePath)
		},
	}
}

// Start launches the initial engine session. A failure here leaves the
// gatekeeper faulted; the pipeline must not start.
func (g *Gatekeeper) Start(ctx context.Context) error {
	if g.state != StateFaulted {
		return fmt.Errorf("start from state %s", g.state)
	}
	sess, err := g.launch(ctx)
	if err != nil {
		return err
	}
	g.session = sess
	g.state = StateReady
	return nil
}

// Submit evaluates one candidate position with the given time budget.
// pov is the side to move in fenPos. On a transport failure the session
// is torn down and the gatekeeper faults; the candidate is dropped, not
// retried.
func (g *Gatekeeper) Submit(ctx context.Context, fenPos string, pov fen.Color, budget time.Duration) Outcome {
	if g.state != StateReady {
		log.Error().Stringer("state", g.state).Msg("submit on a gatekeeper that is not ready")
		return Outcome{Kind: TransportFailure}
	}

	g.state = StateEvaluating
	eval, err := g.session.evaluate(ctx, fenPos, budget)
	if err != nil {
		log.Warn().Err(err).Str("fen", fenPos).Msg("engine transport failure")
		g.session.close()
		g.session = nil
		g.state = StateFaulted
		return Outcome{Kind: TransportFailure}
	}
	g.state = StateReady

	score := eval.ScoreWhite(pov)
	if score < 0 && -score <= g.threshold || score >= 0 && score <= g.threshold {
		return Outcome{Kind: Balanced, Score: score}
	}
	return Outcome{Kind: NotBalanced, Score: score}
}

// Relaunch replaces a faulted session with a fresh one. An error here
// is fatal for the pipeline.
func (g *Gatekeeper) Relaunch(ctx context.Context) error {
	if g.state != StateFaulted {
		return fmt.Errorf("relaunch from state %s", g.state)
	}
	sess, err := g.launch(ctx)
	if err != nil {
		return fmt.Errorf("engine relaunch: %w", err)
	}
	g.session = sess
	g.relaunches++
	g.state = StateReady
	log.Info().Int("relaunches", g.relaunches).Msg("engine session relaunched")
	return nil
}

// Shutdown releases the engine session. Safe to call on every exit
// path; only the first call tears the session down.
func (g *Gatekeeper) Shutdown() {
	if g.state == StateTerminated {
		return
	}
	if g.session != nil {
		g.session.close()
		g.session = nil
	}
	g.state = StateTerminated
}

func (g *Gatekeeper) State() State {
	return g.state
}

// Relaunches reports how many times the engine session was replaced.
func (g *Gatekeeper) Relaunches() int {
	return g.relaunches
}
