package fen

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

// Game is one parsed game record: its tag pairs and its mainline moves.
type Game struct {
	Tags  map[string]string
	Moves []GameMove
}

// GameMove is a mainline half-move in both notations.
type GameMove struct {
	SAN string
	UCI string
}

// UCIMoves returns the mainline as UCI strings.
func (g *Game) UCIMoves() []string {
	moves := make([]string, len(g.Moves))
	for i, m := range g.Moves {
		moves[i] = m.UCI
	}
	return moves
}

// Opening returns the Opening tag, if present.
func (g *Game) Opening() string {
	return g.Tags["Opening"]
}

// GameReader streams games out of a PGN archive one at a time. The
// sequence is forward-only and exhausted exactly once; malformed games
// are skipped with a warning rather than ending the stream.
type GameReader struct {
	s       *bufio.Scanner
	skipped int
}

func NewGameReader(r io.Reader) *GameReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &GameReader{s: s}
}

// Skipped reports how many malformed games have been dropped so far.
func (r *GameReader) Skipped() int {
	return r.skipped
}

// Next returns the next well-formed game, or io.EOF once the archive is
// exhausted.
func (r *GameReader) Next() (*Game, error) {
	for {
		raw, err := r.nextRawGame()
		if err != nil {
			return nil, err
		}

		game, err := parseGame(raw)
		if err != nil {
			r.skipped++
			log.Warn().Err(err).Msg("skipping malformed game")
			continue
		}

		return game, nil
	}
}

// nextRawGame accumulates lines up to the blank line that follows the
// movetext section.
func (r *GameReader) nextRawGame() ([]string, error) {
	var (
		lines   []string
		inMoves bool
	)

	for r.s.Scan() {
		line := strings.TrimSpace(r.s.Text())

		if line == "" {
			if inMoves {
				return lines, nil
			}
			continue
		}

		if !strings.HasPrefix(line, "[") {
			inMoves = true
		}
		lines = append(lines, line)
	}

	if err := r.s.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, io.EOF
	}
	return lines, nil
}

func parseGame(lines []string) (*Game, error) {
	game := &Game{Tags: make(map[string]string)}

	var movetext []string
	for _, line := range lines {
		if strings.HasPrefix(line, "[") && len(movetext) == 0 {
			key, value, ok := parseTag(line)
			if ok {
				game.Tags[key] = value
			}
			continue
		}
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		movetext = append(movetext, line)
	}

	if fenTag, ok := game.Tags["FEN"]; ok && fenTag != StartPosFEN {
		// non-standard starting positions carry no opening trajectory
		return nil, fmt.Errorf("game starts from custom position %q", fenTag)
	}

	text := stripParens(stripBraces(strings.Join(movetext, " ")))

	board := Start()
	for _, tok := range strings.Fields(text) {
		switch tok {
		case "1-0", "0-1", "1/2-1/2", "*":
			continue
		}
		if strings.HasPrefix(tok, "$") {
			continue
		}
		// move numbers, possibly glued to the move ("12." or "12.e4")
		if i := strings.LastIndexByte(tok, '.'); i >= 0 {
			tok = tok[i+1:]
			if tok == "" {
				continue
			}
		}

		uci, err := board.SANtoUCI(tok)
		if err != nil {
			return nil, err
		}
		if err := board.Apply(uci); err != nil {
			return nil, err
		}
		game.Moves = append(game.Moves, GameMove{SAN: tok, UCI: uci})
	}

	return game, nil
}

func parseTag(line string) (string, string, bool) {
	line = strings.TrimPrefix(line, "[")
	line = strings.TrimSuffix(line, "]")
	i := strings.IndexByte(line, ' ')
	if i < 0 {
		return "", "", false
	}
	key := line[:i]
	value := strings.Trim(strings.TrimSpace(line[i+1:]), `"`)
	return key, value, true
}

func stripBraces(s string) string {
	var sb strings.Builder
	depth := 0
	for _, c := range s {
		switch {
		case c == '{':
			depth++
		case c == '}':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

func stripParens(s string) string {
	var sb strings.Builder
	depth := 0
	for _, c := range s {
		switch {
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			sb.WriteRune(c)
		}
	}
	return sb.String()
}
