package book

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"balancedbook/analyze"
	"balancedbook/commas"
	"balancedbook/epd"
	"balancedbook/fen"
)

const progressEvery = 1000

// Gate is the evaluation gatekeeper as the pipeline sees it.
type Gate interface {
	Submit(ctx context.Context, fenPos string, pov fen.Color, budget time.Duration) analyze.Outcome
	Relaunch(ctx context.Context) error
}

// Source is the forward-only game stream.
type Source interface {
	Next() (*fen.Game, error)
	Skipped() int
}

// Options bound one pipeline run. MaxGames counts parsed games only;
// malformed records the source skips do not consume the budget.
type Options struct {
	MaxGames int
	Target   int
	MoveTime time.Duration
}

// Summary is what one run did.
type Summary struct {
	GamesProcessed int
	PositionsFound int
	SkippedGames   int
	Elapsed        time.Duration
}

// Runner drives the single-pass pipeline: stream, select, evaluate,
// append. All run state lives here; there are no package-level
// globals.
type Runner struct {
	opts Options
	sel  *Selector
	gate Gate
	out  *epd.Writer

	gamesProcessed int
	positionsFound int
}

func NewRunner(opts Options, sel *Selector, gate Gate, out *epd.Writer) *Runner {
	return &Runner{opts: opts, sel: sel, gate: gate, out: out}
}

// Run processes games until the games budget or the target position
// count is reached, the source is exhausted, or ctx is canceled. The
// budgets are checked between games, so a game already being processed
// still finishes its one evaluation.
func (r *Runner) Run(ctx context.Context, src Source) (Summary, error) {
	start := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			log.Info().Msg("interrupted, stopping after current game")
			return r.summary(src, start), err
		}
		if r.gamesProcessed >= r.opts.MaxGames || r.positionsFound >= r.opts.Target {
			break
		}

		game, err := src.Next()
		if errors.Is(err, io.EOF) {
			log.Info().Msg("reached end of archive")
			break
		}
		if err != nil {
			return r.summary(src, start), fmt.Errorf("read game stream: %w", err)
		}

		r.gamesProcessed++
		if r.gamesProcessed%progressEvery == 0 {
			log.Info().
				Str("games", fmt.Sprintf("%s/%s", commas.Int(r.gamesProcessed), commas.Int(r.opts.MaxGames))).
				Str("positions", fmt.Sprintf("%d/%d", r.positionsFound, r.opts.Target)).
				Msg("progress")
		}

		candidate, err := r.sel.Select(game)
		if err != nil {
			log.Debug().Err(err).Msg("game rejected")
			continue
		}

		outcome := r.gate.Submit(ctx, candidate.FEN, candidate.Side, r.opts.MoveTime)
		switch outcome.Kind {
		case analyze.Balanced:
			id := r.positionsFound + 1
			if err := r.out.Append(candidate.FEN, id, outcome.Score); err != nil {
				return r.summary(src, start), fmt.Errorf("append artifact record: %w", err)
			}
			r.positionsFound++
			log.Info().
				Int("id", id).
				Int("ce", outcome.Score).
				Int("ply", candidate.Ply).
				Str("fen", candidate.FEN).
				Msg("balanced position found")

		case analyze.NotBalanced:
			// discarded silently

		case analyze.TransportFailure:
			// the candidate is dropped, not retried
			if err := ctx.Err(); err != nil {
				return r.summary(src, start), err
			}
			if err := r.gate.Relaunch(ctx); err != nil {
				return r.summary(src, start), err
			}
		}
	}

	return r.summary(src, start), nil
}

func (r *Runner) summary(src Source, start time.Time) Summary {
	return Summary{
		GamesProcessed: r.gamesProcessed,
		PositionsFound: r.positionsFound,
		SkippedGames:   src.Skipped(),
		Elapsed:        time.Since(start),
	}
}
