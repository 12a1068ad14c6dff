package book

import (
	"errors"
	"fmt"

	"lukechampine.com/frand"

	"balancedbook/fen"
)

// Selection policy rejections. All of these are routine per-candidate
// events, not failures.
var (
	ErrGameTooShort       = errors.New("game shorter than the maximum truncation ply")
	ErrInsufficientLength = errors.New("game shorter than the opening fingerprint depth")
	ErrDuplicateOpening   = errors.New("opening fingerprint already used")
	ErrTerminalPosition   = errors.New("candidate position is terminal")
)

// Candidate is a truncated position ready for evaluation.
type Candidate struct {
	FEN  string
	Ply  int
	Side fen.Color
}

// Selector derives candidate positions from games: it fingerprints the
// early trajectory for deduplication and truncates each surviving game
// at a pseudo-random ply. The seen-fingerprint set lives for the whole
// pipeline run and only grows.
type Selector struct {
	minPly     int
	maxPly     int
	openingPly int
	rng        *frand.RNG
	seen       map[string]struct{}
}

func NewSelector(minPly, maxPly, openingPly int, rng *frand.RNG) *Selector {
	return &Selector{
		minPly:     minPly,
		maxPly:     maxPly,
		openingPly: openingPly,
		rng:        rng,
		seen:       make(map[string]struct{}),
	}
}

// Fingerprint identifies a game by the canonical position after the
// first openingPly half-moves. Fingerprinting at a fixed ply, rather
// than at the truncation ply, keeps deduplication independent of the
// randomized truncation point.
func (s *Selector) Fingerprint(g *fen.Game) (string, error) {
	if len(g.Moves) < s.openingPly {
		return "", ErrInsufficientLength
	}

	board := fen.Start()
	for _, m := range g.Moves[:s.openingPly] {
		if err := board.Apply(m.UCI); err != nil {
			return "", fmt.Errorf("fingerprint: %w", err)
		}
	}
	return board.Key(), nil
}

// Select applies the selection policy in order: length gate, opening
// dedup, random truncation, terminal-position gate. A nil error means
// the candidate should be evaluated.
func (s *Selector) Select(g *fen.Game) (*Candidate, error) {
	if len(g.Moves) < s.maxPly {
		return nil, ErrGameTooShort
	}

	fp, err := s.Fingerprint(g)
	if err != nil {
		return nil, err
	}
	if _, dup := s.seen[fp]; dup {
		return nil, ErrDuplicateOpening
	}
	s.seen[fp] = struct{}{}

	ply := s.minPly + s.rng.Intn(s.maxPly-s.minPly+1)

	board := fen.Start()
	for _, m := range g.Moves[:ply] {
		if err := board.Apply(m.UCI); err != nil {
			return nil, fmt.Errorf("truncate at ply %d: %w", ply, err)
		}
	}

	if board.IsCheckmate() || board.IsStalemate() || board.InsufficientMaterial() {
		return nil, ErrTerminalPosition
	}

	return &Candidate{FEN: board.FEN(), Ply: ply, Side: board.ActiveColor}, nil
}

// SeenOpenings reports how many distinct opening fingerprints have been
// recorded.
func (s *Selector) SeenOpenings() int {
	return len(s.seen)
}
