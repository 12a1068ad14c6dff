package fen

import (
	"fmt"
	"strconv"
	"strings"
)

// StartPosFEN is the standard initial position.
const StartPosFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type Color int

const (
	White Color = 1
	Black Color = -1
)

func (c Color) String() string {
	if c == White {
		return "w"
	}
	return "b"
}

// castling rights indices
const (
	castleWK = iota
	castleWQ
	castleBK
	castleBQ
)

// Board is a mailbox chess position. Pos[0] is a8, Pos[63] is h1.
type Board struct {
	Pos           [64]byte
	ActiveColor   Color
	Castling      [4]bool
	EnPassant     int // square index, -1 when unset
	HalfmoveClock int
	FullMove      int
}

// Move is a from/to square pair with an optional promotion piece
// (lowercase, one of "qrbn").
type Move struct {
	From      int
	To        int
	Promotion byte
}

func (m Move) UCI() string {
	s := SquareName(m.From) + SquareName(m.To)
	if m.Promotion != 0 {
		s += string(m.Promotion)
	}
	return s
}

// Square converts a name like "e4" to a board index.
func Square(name string) int {
	file := int(name[0] - 'a')
	rank := int(name[1] - '1')
	return (7-rank)*8 + file
}

// SquareName converts a board index to a name like "e4".
func SquareName(idx int) string {
	return fmt.Sprintf("%c%d", 'a'+idx%8, 8-idx/8)
}

// Parse builds a Board from a FEN string. The move clocks may be
// omitted (EPD style) and default to 0 and 1.
func Parse(s string) (Board, error) {
	b := Board{EnPassant: -1, FullMove: 1}

	parts := strings.Fields(strings.TrimSpace(s))
	if len(parts) < 4 {
		return b, fmt.Errorf("fen %q: want at least 4 fields, got %d", s, len(parts))
	}

	ranks := strings.Split(parts[0], "/")
	if len(ranks) != 8 {
		return b, fmt.Errorf("fen %q: want 8 ranks, got %d", s, len(ranks))
	}

	for i, rank := range ranks {
		offset := i * 8
		end := offset + 8
		for _, c := range []byte(rank) {
			if c >= '1' && c <= '8' {
				for j := 0; j < int(c-'0'); j++ {
					if offset >= end {
						return b, fmt.Errorf("fen %q: rank %d overflows", s, 8-i)
					}
					b.Pos[offset] = ' '
					offset++
				}
				continue
			}
			if !strings.ContainsRune("pnbrqkPNBRQK", rune(c)) {
				return b, fmt.Errorf("fen %q: bad piece %q", s, c)
			}
			if offset >= end {
				return b, fmt.Errorf("fen %q: rank %d overflows", s, 8-i)
			}
			b.Pos[offset] = c
			offset++
		}
		if offset != end {
			return b, fmt.Errorf("fen %q: rank %d underflows", s, 8-i)
		}
	}

	switch parts[1] {
	case "w":
		b.ActiveColor = White
	case "b":
		b.ActiveColor = Black
	default:
		return b, fmt.Errorf("fen %q: bad active color %q", s, parts[1])
	}

	if parts[2] != "-" {
		for _, c := range parts[2] {
			switch c {
			case 'K':
				b.Castling[castleWK] = true
			case 'Q':
				b.Castling[castleWQ] = true
			case 'k':
				b.Castling[castleBK] = true
			case 'q':
				b.Castling[castleBQ] = true
			default:
				return b, fmt.Errorf("fen %q: bad castling field %q", s, parts[2])
			}
		}
	}

	if parts[3] != "-" {
		if len(parts[3]) != 2 || parts[3][0] < 'a' || parts[3][0] > 'h' || parts[3][1] < '1' || parts[3][1] > '8' {
			return b, fmt.Errorf("fen %q: bad en passant square %q", s, parts[3])
		}
		b.EnPassant = Square(parts[3])
	}

	if len(parts) > 4 {
		n, err := strconv.Atoi(parts[4])
		if err != nil {
			return b, fmt.Errorf("fen %q: bad halfmove clock: %v", s, err)
		}
		b.HalfmoveClock = n
	}
	if len(parts) > 5 {
		n, err := strconv.Atoi(parts[5])
		if err != nil {
			return b, fmt.Errorf("fen %q: bad fullmove number: %v", s, err)
		}
		b.FullMove = n
	}

	return b, nil
}

// Start returns a board at the standard initial position.
func Start() Board {
	b, err := Parse(StartPosFEN)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Board) boardField() string {
	var sb strings.Builder
	for rank := 0; rank < 8; rank++ {
		if rank != 0 {
			sb.WriteByte('/')
		}
		blanks := 0
		for file := 0; file < 8; file++ {
			p := b.Pos[rank*8+file]
			if p == ' ' {
				blanks++
				continue
			}
			if blanks != 0 {
				sb.WriteByte(byte('0' + blanks))
				blanks = 0
			}
			sb.WriteByte(p)
		}
		if blanks != 0 {
			sb.WriteByte(byte('0' + blanks))
		}
	}
	return sb.String()
}

func (b *Board) castlingField() string {
	var sb strings.Builder
	for i, c := range []byte("KQkq") {
		if b.Castling[i] {
			sb.WriteByte(c)
		}
	}
	if sb.Len() == 0 {
		return "-"
	}
	return sb.String()
}

func (b *Board) enPassantField() string {
	if b.EnPassant < 0 {
		return "-"
	}
	return SquareName(b.EnPassant)
}

// FEN serializes the full six-field position.
func (b *Board) FEN() string {
	return fmt.Sprintf("%s %s %s %s %d %d",
		b.boardField(), b.ActiveColor, b.castlingField(), b.enPassantField(),
		b.HalfmoveClock, b.FullMove)
}

// Key returns a canonical four-field position identifier with the move
// clocks dropped. The en passant square is kept only when an en passant
// capture is actually legal, so transpositions that differ in an
// irrelevant double-push still collide.
func (b *Board) Key() string {
	ep := "-"
	if b.EnPassant >= 0 && b.enPassantCapturable() {
		ep = SquareName(b.EnPassant)
	}
	return fmt.Sprintf("%s %s %s %s", b.boardField(), b.ActiveColor, b.castlingField(), ep)
}

func (b *Board) enPassantCapturable() bool {
	for _, m := range b.LegalMoves() {
		p := b.Pos[m.From]
		if (p == 'P' || p == 'p') && m.To == b.EnPassant && m.From%8 != m.To%8 {
			return true
		}
	}
	return false
}

func (b *Board) Clone() Board {
	return *b
}

func pieceColor(p byte) Color {
	if p >= 'A' && p <= 'Z' {
		return White
	}
	return Black
}

func upper(p byte) byte {
	if p >= 'a' && p <= 'z' {
		return p - 32
	}
	return p
}

func lower(p byte) byte {
	if p >= 'A' && p <= 'Z' {
		return p + 32
	}
	return p
}

// Apply plays the given UCI moves. Moves are assumed legal; only their
// shape is validated.
func (b *Board) Apply(moves ...string) error {
	for _, uci := range moves {
		m, err := parseUCI(uci)
		if err != nil {
			return err
		}
		b.apply(m)
	}
	return nil
}

func parseUCI(uci string) (Move, error) {
	if len(uci) < 4 || len(uci) > 5 {
		return Move{}, fmt.Errorf("bad uci move %q", uci)
	}
	for i, c := range []byte(uci[:4]) {
		if i%2 == 0 && (c < 'a' || c > 'h') {
			return Move{}, fmt.Errorf("bad uci move %q", uci)
		}
		if i%2 == 1 && (c < '1' || c > '8') {
			return Move{}, fmt.Errorf("bad uci move %q", uci)
		}
	}
	m := Move{From: Square(uci[:2]), To: Square(uci[2:4])}
	if len(uci) == 5 {
		p := lower(uci[4])
		if !strings.ContainsRune("qrbn", rune(p)) {
			return Move{}, fmt.Errorf("bad promotion in %q", uci)
		}
		m.Promotion = p
	}
	return m, nil
}

func (b *Board) apply(m Move) {
	piece := b.Pos[m.From]
	capture := b.Pos[m.To] != ' '

	b.Pos[m.To] = piece
	b.Pos[m.From] = ' '

	// en passant capture removes the pawn behind the target square
	if m.To == b.EnPassant && (piece == 'P' || piece == 'p') {
		if piece == 'P' {
			b.Pos[m.To+8] = ' '
		} else {
			b.Pos[m.To-8] = ' '
		}
		capture = true
	}

	b.EnPassant = -1
	if piece == 'P' && m.From-m.To == 16 {
		b.EnPassant = m.From - 8
	} else if piece == 'p' && m.To-m.From == 16 {
		b.EnPassant = m.From + 8
	}

	// castling moves the rook as well
	if piece == 'K' && m.From == Square("e1") {
		switch m.To {
		case Square("g1"):
			b.Pos[Square("h1")] = ' '
			b.Pos[Square("f1")] = 'R'
		case Square("c1"):
			b.Pos[Square("a1")] = ' '
			b.Pos[Square("d1")] = 'R'
		}
	}
	if piece == 'k' && m.From == Square("e8") {
		switch m.To {
		case Square("g8"):
			b.Pos[Square("h8")] = ' '
			b.Pos[Square("f8")] = 'r'
		case Square("c8"):
			b.Pos[Square("a8")] = ' '
			b.Pos[Square("d8")] = 'r'
		}
	}

	for _, sq := range []int{m.From, m.To} {
		switch sq {
		case Square("a1"):
			b.Castling[castleWQ] = false
		case Square("h1"):
			b.Castling[castleWK] = false
		case Square("a8"):
			b.Castling[castleBQ] = false
		case Square("h8"):
			b.Castling[castleBK] = false
		case Square("e1"):
			b.Castling[castleWK] = false
			b.Castling[castleWQ] = false
		case Square("e8"):
			b.Castling[castleBK] = false
			b.Castling[castleBQ] = false
		}
	}

	if m.Promotion != 0 {
		if b.ActiveColor == White {
			b.Pos[m.To] = upper(m.Promotion)
		} else {
			b.Pos[m.To] = m.Promotion
		}
	}

	if piece == 'P' || piece == 'p' || capture {
		b.HalfmoveClock = 0
	} else {
		b.HalfmoveClock++
	}

	if b.ActiveColor == Black {
		b.FullMove++
	}
	b.ActiveColor = -b.ActiveColor
}

var (
	knightSteps = [][2]int{{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2}, {1, -2}, {1, 2}, {2, -1}, {2, 1}}
	bishopDirs  = [][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	rookDirs    = [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	kingSteps   = [][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
)

// attacked reports whether sq is attacked by any piece of color by.
func (b *Board) attacked(sq int, by Color) bool {
	row, col := sq/8, sq%8

	pawn, knight, bishop, rook, queen, king := byte('p'), byte('n'), byte('b'), byte('r'), byte('q'), byte('k')
	if by == White {
		pawn, knight, bishop, rook, queen, king = 'P', 'N', 'B', 'R', 'Q', 'K'
	}

	// a white pawn attacks from the row below (higher index)
	pawnRow := row + 1
	if by == Black {
		pawnRow = row - 1
	}
	if pawnRow >= 0 && pawnRow < 8 {
		for _, dc := range []int{-1, 1} {
			c := col + dc
			if c >= 0 && c < 8 && b.Pos[pawnRow*8+c] == pawn {
				return true
			}
		}
	}

	for _, st := range knightSteps {
		r, c := row+st[0], col+st[1]
		if r >= 0 && r < 8 && c >= 0 && c < 8 && b.Pos[r*8+c] == knight {
			return true
		}
	}

	for _, st := range kingSteps {
		r, c := row+st[0], col+st[1]
		if r >= 0 && r < 8 && c >= 0 && c < 8 && b.Pos[r*8+c] == king {
			return true
		}
	}

	for _, d := range bishopDirs {
		r, c := row+d[0], col+d[1]
		for r >= 0 && r < 8 && c >= 0 && c < 8 {
			p := b.Pos[r*8+c]
			if p != ' ' {
				if p == bishop || p == queen {
					return true
				}
				break
			}
			r += d[0]
			c += d[1]
		}
	}

	for _, d := range rookDirs {
		r, c := row+d[0], col+d[1]
		for r >= 0 && r < 8 && c >= 0 && c < 8 {
			p := b.Pos[r*8+c]
			if p != ' ' {
				if p == rook || p == queen {
					return true
				}
				break
			}
			r += d[0]
			c += d[1]
		}
	}

	return false
}

func (b *Board) kingSquare(c Color) int {
	king := byte('k')
	if c == White {
		king = 'K'
	}
	for i := 0; i < 64; i++ {
		if b.Pos[i] == king {
			return i
		}
	}
	return -1
}

// InCheck reports whether the side to move is in check.
func (b *Board) InCheck() bool {
	sq := b.kingSquare(b.ActiveColor)
	if sq < 0 {
		return false
	}
	return b.attacked(sq, -b.ActiveColor)
}

// IsCheckmate reports whether the side to move is checkmated.
func (b *Board) IsCheckmate() bool {
	return b.InCheck() && len(b.LegalMoves()) == 0
}

// IsStalemate reports whether the side to move has no legal move while
// not in check.
func (b *Board) IsStalemate() bool {
	return !b.InCheck() && len(b.LegalMoves()) == 0
}

// InsufficientMaterial reports positions where neither side can force a
// win: bare kings, a single minor piece, or bishops that all share one
// square color.
func (b *Board) InsufficientMaterial() bool {
	knights := 0
	bishopSquareColors := make(map[int]struct{})
	for i := 0; i < 64; i++ {
		switch b.Pos[i] {
		case ' ', 'K', 'k':
		case 'N', 'n':
			knights++
		case 'B', 'b':
			bishopSquareColors[(i/8+i%8)%2] = struct{}{}
		default:
			return false
		}
	}

	if knights == 0 {
		return len(bishopSquareColors) <= 1
	}
	return knights == 1 && len(bishopSquareColors) == 0
}

// LegalMoves generates all legal moves for the side to move.
func (b *Board) LegalMoves() []Move {
	pseudo := b.pseudoMoves()
	moves := make([]Move, 0, len(pseudo))
	for _, m := range pseudo {
		next := b.Clone()
		next.apply(m)
		if sq := next.kingSquare(b.ActiveColor); sq < 0 || !next.attacked(sq, -b.ActiveColor) {
			moves = append(moves, m)
		}
	}
	return moves
}

func (b *Board) pseudoMoves() []Move {
	var moves []Move
	for i := 0; i < 64; i++ {
		p := b.Pos[i]
		if p == ' ' || pieceColor(p) != b.ActiveColor {
			continue
		}
		switch upper(p) {
		case 'P':
			moves = append(moves, b.pawnMoves(i)...)
		case 'N':
			moves = append(moves, b.stepMoves(i, knightSteps)...)
		case 'B':
			moves = append(moves, b.slideMoves(i, bishopDirs)...)
		case 'R':
			moves = append(moves, b.slideMoves(i, rookDirs)...)
		case 'Q':
			moves = append(moves, b.slideMoves(i, kingSteps)...)
		case 'K':
			moves = append(moves, b.stepMoves(i, kingSteps)...)
			moves = append(moves, b.castleMoves(i)...)
		}
	}
	return moves
}

func (b *Board) targetOK(to int) bool {
	p := b.Pos[to]
	return p == ' ' || pieceColor(p) != b.ActiveColor
}

func (b *Board) stepMoves(from int, steps [][2]int) []Move {
	var moves []Move
	row, col := from/8, from%8
	for _, st := range steps {
		r, c := row+st[0], col+st[1]
		if r < 0 || r > 7 || c < 0 || c > 7 {
			continue
		}
		to := r*8 + c
		if b.targetOK(to) {
			moves = append(moves, Move{From: from, To: to})
		}
	}
	return moves
}

func (b *Board) slideMoves(from int, dirs [][2]int) []Move {
	var moves []Move
	row, col := from/8, from%8
	for _, d := range dirs {
		r, c := row+d[0], col+d[1]
		for r >= 0 && r < 8 && c >= 0 && c < 8 {
			to := r*8 + c
			p := b.Pos[to]
			if p == ' ' {
				moves = append(moves, Move{From: from, To: to})
				r += d[0]
				c += d[1]
				continue
			}
			if pieceColor(p) != b.ActiveColor {
				moves = append(moves, Move{From: from, To: to})
			}
			break
		}
	}
	return moves
}

func (b *Board) pawnMoves(from int) []Move {
	var targets []int
	row, col := from/8, from%8

	dir, home := -1, 6
	if b.ActiveColor == Black {
		dir, home = 1, 1
	}

	one := (row+dir)*8 + col
	if b.Pos[one] == ' ' {
		targets = append(targets, one)
		if row == home {
			two := (row+2*dir)*8 + col
			if b.Pos[two] == ' ' {
				targets = append(targets, two)
			}
		}
	}

	for _, dc := range []int{-1, 1} {
		c := col + dc
		if c < 0 || c > 7 {
			continue
		}
		to := (row+dir)*8 + c
		p := b.Pos[to]
		if (p != ' ' && pieceColor(p) != b.ActiveColor) || to == b.EnPassant {
			targets = append(targets, to)
		}
	}

	lastRow := 0
	if b.ActiveColor == Black {
		lastRow = 7
	}

	var moves []Move
	for _, to := range targets {
		if to/8 == lastRow {
			for _, promo := range []byte("qrbn") {
				moves = append(moves, Move{From: from, To: to, Promotion: promo})
			}
		} else {
			moves = append(moves, Move{From: from, To: to})
		}
	}
	return moves
}

type castleSide struct {
	right   int
	kingTo  string
	empty   []string
	rookOn  string
	rook    byte
	through string
}

var (
	whiteCastles = []castleSide{
		{castleWK, "g1", []string{"f1", "g1"}, "h1", 'R', "f1"},
		{castleWQ, "c1", []string{"b1", "c1", "d1"}, "a1", 'R', "d1"},
	}
	blackCastles = []castleSide{
		{castleBK, "g8", []string{"f8", "g8"}, "h8", 'r', "f8"},
		{castleBQ, "c8", []string{"b8", "c8", "d8"}, "a8", 'r', "d8"},
	}
)

func (b *Board) castleMoves(from int) []Move {
	sides := whiteCastles
	kingHome := Square("e1")
	if b.ActiveColor == Black {
		sides = blackCastles
		kingHome = Square("e8")
	}
	if from != kingHome {
		return nil
	}

	if b.attacked(from, -b.ActiveColor) {
		return nil
	}

	var moves []Move
	for _, s := range sides {
		if !b.Castling[s.right] || b.Pos[Square(s.rookOn)] != s.rook {
			continue
		}
		clear := true
		for _, sq := range s.empty {
			if b.Pos[Square(sq)] != ' ' {
				clear = false
				break
			}
		}
		if !clear {
			continue
		}
		// the square the king passes through may not be attacked
		if b.attacked(Square(s.through), -b.ActiveColor) {
			continue
		}
		moves = append(moves, Move{From: from, To: Square(s.kingTo)})
	}
	return moves
}

// SAN renders a legal move in standard algebraic notation, including
// check and mate suffixes.
func (b *Board) SAN(m Move) string {
	piece := b.Pos[m.From]
	up := upper(piece)

	var sb strings.Builder

	if up == 'K' && m.From%8 == 4 && (m.To-m.From == 2 || m.From-m.To == 2) {
		if m.To%8 == 6 {
			sb.WriteString("O-O")
		} else {
			sb.WriteString("O-O-O")
		}
	} else {
		isCapture := b.Pos[m.To] != ' '
		if up == 'P' && b.EnPassant >= 0 && m.To == b.EnPassant {
			isCapture = true
		}

		if up != 'P' {
			sb.WriteByte(up)
			sb.WriteString(b.disambiguation(m, piece))
		}
		if isCapture {
			if up == 'P' {
				sb.WriteByte(byte('a' + m.From%8))
			}
			sb.WriteByte('x')
		}
		sb.WriteString(SquareName(m.To))
		if m.Promotion != 0 {
			sb.WriteByte('=')
			sb.WriteByte(upper(m.Promotion))
		}
	}

	next := b.Clone()
	next.apply(m)
	if next.InCheck() {
		if len(next.LegalMoves()) == 0 {
			sb.WriteByte('#')
		} else {
			sb.WriteByte('+')
		}
	}

	return sb.String()
}

func (b *Board) disambiguation(m Move, piece byte) string {
	var sameFile, sameRank, any bool
	for _, other := range b.LegalMoves() {
		if other.From == m.From || other.To != m.To || b.Pos[other.From] != piece {
			continue
		}
		any = true
		if other.From%8 == m.From%8 {
			sameFile = true
		}
		if other.From/8 == m.From/8 {
			sameRank = true
		}
	}

	if !any {
		return ""
	}
	if !sameFile {
		return string(byte('a' + m.From%8))
	}
	if !sameRank {
		return strconv.Itoa(8 - m.From/8)
	}
	return SquareName(m.From)
}

// SANtoUCI resolves a SAN token against the legal moves of the current
// position. Annotation suffixes such as "!?" are ignored.
func (b *Board) SANtoUCI(san string) (string, error) {
	want := strings.TrimRight(san, "!?")
	if strings.HasPrefix(want, "0-0") {
		want = strings.ReplaceAll(want, "0", "O")
	}
	bare := strings.TrimRight(want, "+#")

	for _, m := range b.LegalMoves() {
		got := b.SAN(m)
		if got == want || strings.TrimRight(got, "+#") == bare {
			return m.UCI(), nil
		}
	}
	return "", fmt.Errorf("no legal move matches %q in %s", san, b.FEN())
}
