package analyze

import (
	"fmt"
	"strconv"
	"strings"

	"balancedbook/fen"
)

// MateScore is the sentinel magnitude forced mates are folded into, so
// a balanced/not-balanced decision is a single absolute-value compare.
const MateScore = 20000

// Eval is one parsed "info ... score ..." line from the engine. Scores
// are relative to the side to move, as the UCI protocol specifies.
type Eval struct {
	UCIMove  string
	Depth    int
	SelDepth int
	MultiPV  int
	CP       int
	Mate     int
	Nodes    int
	NPS      int
	Time     int

	UpperBound bool
	LowerBound bool
	PV         []string
}

// ScoreWhite normalizes the evaluation to the white perspective. pov is
// the side to move in the evaluated position. A forced mate in n maps
// to MateScore-n (or the negated mirror), keeping closer mates larger.
func (e Eval) ScoreWhite(pov fen.Color) int {
	score := e.CP
	if e.Mate > 0 {
		score = MateScore - e.Mate
	} else if e.Mate < 0 {
		score = -MateScore - e.Mate
	}
	return score * int(pov)
}

// parseInfo parses an engine info line carrying a score. Unknown tokens
// are skipped (engines vary), but a malformed known field, a bad score
// type, or a truncated line is an error and treated as a transport
// fault by the caller.
func parseInfo(line string) (Eval, error) {
	parts := strings.Fields(line)
	var e Eval
	sawScore := false

	for i := 1; i < len(parts); i++ {
		var err error
		switch parts[i] {
		case "depth":
			e.Depth, i, err = intField(parts, i)
		case "seldepth":
			e.SelDepth, i, err = intField(parts, i)
		case "multipv":
			e.MultiPV, i, err = intField(parts, i)
		case "nodes":
			e.Nodes, i, err = intField(parts, i)
		case "nps":
			e.NPS, i, err = intField(parts, i)
		case "time":
			e.Time, i, err = intField(parts, i)
		case "score":
			if i+2 >= len(parts) {
				return e, fmt.Errorf("truncated score in %q", line)
			}
			switch parts[i+1] {
			case "cp":
				e.CP, err = strconv.Atoi(parts[i+2])
			case "mate":
				e.Mate, err = strconv.Atoi(parts[i+2])
			default:
				return e, fmt.Errorf("unexpected score type %q in %q", parts[i+1], line)
			}
			if err != nil {
				return e, fmt.Errorf("bad score value in %q: %v", line, err)
			}
			sawScore = true
			i += 2
		case "upperbound":
			e.UpperBound = true
		case "lowerbound":
			e.LowerBound = true
		case "pv":
			e.PV = parts[i+1:]
			if len(e.PV) > 0 {
				e.UCIMove = e.PV[0]
			}
			i = len(parts)
		}
		if err != nil {
			return e, fmt.Errorf("bad %s field in %q: %v", parts[i-1], line, err)
		}
	}

	if !sawScore {
		return e, fmt.Errorf("info line without score: %q", line)
	}
	return e, nil
}

func intField(parts []string, i int) (int, int, error) {
	if i+1 >= len(parts) {
		return 0, i, fmt.Errorf("missing value")
	}
	n, err := strconv.Atoi(parts[i+1])
	return n, i + 1, err
}
