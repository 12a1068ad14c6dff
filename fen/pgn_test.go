package fen

import (
	"errors"
	"io"
	"strings"
	"testing"
)

const samplePGN = `[Event "Rated Blitz game"]
[Site "https://lichess.org/abcd1234"]
[White "playerone"]
[Black "playertwo"]
[Result "1-0"]
[Opening "Ruy Lopez"]

1. e4 e5 2. Nf3 { [%eval 0.2] } Nc6 (2... d6 3. d4) 3. Bb5 $1 a6 1-0

[Event "Broken"]

1. e4 zz9 1-0

[Event "Chess960"]
[FEN "nrbqkbrn/pppppppp/8/8/8/8/PPPPPPPP/NRBQKBRN w - - 0 1"]

1. d4 d5 *

[Event "Last"]

1. d4 d5 2. c4 *
`

func TestGameReaderStreamsWellFormedGames(t *testing.T) {
	// arrange
	r := NewGameReader(strings.NewReader(samplePGN))

	// act
	first, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	last, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.Next()

	// assert
	if !errors.Is(err, io.EOF) {
		t.Fatalf("third Next() error = %v, want io.EOF", err)
	}

	if got := first.Opening(); got != "Ruy Lopez" {
		t.Errorf("Opening() = %q, want %q", got, "Ruy Lopez")
	}
	wantMoves := []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "a7a6"}
	gotMoves := first.UCIMoves()
	if len(gotMoves) != len(wantMoves) {
		t.Fatalf("len(UCIMoves()) = %d, want %d (%v)", len(gotMoves), len(wantMoves), gotMoves)
	}
	for i := range wantMoves {
		if gotMoves[i] != wantMoves[i] {
			t.Errorf("move %d = %q, want %q", i, gotMoves[i], wantMoves[i])
		}
	}
	if first.Moves[2].SAN != "Nf3" {
		t.Errorf("Moves[2].SAN = %q, want %q", first.Moves[2].SAN, "Nf3")
	}

	if len(last.Moves) != 3 {
		t.Errorf("len(last.Moves) = %d, want 3", len(last.Moves))
	}

	// the broken game and the custom-position game were dropped
	if got := r.Skipped(); got != 2 {
		t.Errorf("Skipped() = %d, want 2", got)
	}
}

func TestGameReaderEmptyInput(t *testing.T) {
	r := NewGameReader(strings.NewReader(""))
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}
}

func TestGameReaderMovetextOnly(t *testing.T) {
	// arrange: no tag section at all
	r := NewGameReader(strings.NewReader("1. e4 e5 2. Nf3\n"))

	// act
	g, err := r.Next()

	// assert
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Moves) != 3 {
		t.Errorf("len(Moves) = %d, want 3", len(g.Moves))
	}
}

func TestGameReaderGluedMoveNumbers(t *testing.T) {
	// arrange: lichess exports glue the number to the move after comments
	r := NewGameReader(strings.NewReader("1.e4 e5 2.Nf3 Nc6\n"))

	// act
	g, err := r.Next()

	// assert
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"e2e4", "e7e5", "g1f3", "b8c6"}
	got := g.UCIMoves()
	if len(got) != len(want) {
		t.Fatalf("UCIMoves() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("move %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGameReaderSemicolonComments(t *testing.T) {
	// arrange
	r := NewGameReader(strings.NewReader("1. e4 e5 ; rest of line ignored\n2. Nf3 *\n"))

	// act
	g, err := r.Next()

	// assert
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Moves) != 3 {
		t.Errorf("len(Moves) = %d, want 3", len(g.Moves))
	}
}

func TestParseTag(t *testing.T) {
	cases := []struct {
		line      string
		wantKey   string
		wantValue string
		wantOK    bool
	}{
		{`[Event "Rated Blitz game"]`, "Event", "Rated Blitz game", true},
		{`[Result "1-0"]`, "Result", "1-0", true},
		{`[Broken]`, "", "", false},
	}

	for _, c := range cases {
		t.Run(c.line, func(t *testing.T) {
			key, value, ok := parseTag(c.line)
			if key != c.wantKey || value != c.wantValue || ok != c.wantOK {
				t.Errorf("parseTag(%q) = %q, %q, %v; want %q, %q, %v",
					c.line, key, value, ok, c.wantKey, c.wantValue, c.wantOK)
			}
		})
	}
}

func TestStripBracesAndParens(t *testing.T) {
	// arrange
	in := "e4 {good (old) move} e5 (1... c5 {sicilian}) Nf3"

	// act
	out := stripParens(stripBraces(in))

	// assert
	want := "e4  e5  Nf3"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}
