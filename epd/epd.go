// Package epd reads and writes EPD-style position records. The writer
// produces one line per accepted position in the exact shape
//
//	<fen> id "<seq>"; ce <score>
//
// with operations separated by "; " and string operands quoted.
package epd

import (
	"fmt"
	"strconv"
	"strings"
)

// EPD operation codes used by this tool.
const (
	OpCodeID                  = "id"
	OpCodeCentipawnEvaluation = "ce"
)

// Operation is a single opcode/operand pair. Value holds the operand
// with quotes stripped.
type Operation struct {
	OpCode string
	Value  string
}

func (op Operation) text() string {
	if op.OpCode == OpCodeID {
		return fmt.Sprintf("%s %q", op.OpCode, op.Value)
	}
	return fmt.Sprintf("%s %s", op.OpCode, op.Value)
}

// Record is one position line: a FEN plus its operations.
type Record struct {
	FEN string
	Ops []Operation
}

// NewRecord builds an accepted-position record with its sequential id
// and centipawn evaluation.
func NewRecord(fen string, id, ce int) *Record {
	return &Record{
		FEN: fen,
		Ops: []Operation{
			{OpCode: OpCodeID, Value: strconv.Itoa(id)},
			{OpCode: OpCodeCentipawnEvaluation, Value: strconv.Itoa(ce)},
		},
	}
}

func (r *Record) String() string {
	if len(r.Ops) == 0 {
		return r.FEN
	}
	parts := make([]string, 0, len(r.Ops))
	for _, op := range r.Ops {
		parts = append(parts, op.text())
	}
	return r.FEN + " " + strings.Join(parts, "; ")
}

// ID returns the id operand, or 0 when absent.
func (r *Record) ID() int {
	return r.getInt(OpCodeID)
}

// CE returns the centipawn evaluation operand, or 0 when absent.
func (r *Record) CE() int {
	return r.getInt(OpCodeCentipawnEvaluation)
}

func (r *Record) getInt(opCode string) int {
	for _, op := range r.Ops {
		if op.OpCode == opCode {
			n, err := strconv.Atoi(op.Value)
			if err != nil {
				return 0
			}
			return n
		}
	}
	return 0
}

// ParseLine parses one record line. The FEN may carry six fields (as
// written by this tool) or the four-field EPD form.
func ParseLine(line string) (*Record, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("empty record")
	}

	fields := strings.Fields(line)
	if len(fields) < 4 {
		return nil, fmt.Errorf("record %q: too few FEN fields", line)
	}

	fenFields := 4
	if len(fields) >= 6 && isInt(fields[4]) && isInt(fields[5]) {
		fenFields = 6
	}

	r := &Record{FEN: strings.Join(fields[:fenFields], " ")}

	rest := strings.TrimSpace(strings.Join(fields[fenFields:], " "))
	if rest == "" {
		return r, nil
	}

	for _, section := range strings.Split(rest, ";") {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		opCode, value, _ := strings.Cut(section, " ")
		r.Ops = append(r.Ops, Operation{
			OpCode: opCode,
			Value:  strings.Trim(strings.TrimSpace(value), `"`),
		})
	}

	return r, nil
}

// ParseText parses a whole artifact, skipping blank lines.
func ParseText(text string) (*File, error) {
	f := &File{}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		r, err := ParseLine(line)
		if err != nil {
			return nil, err
		}
		f.Records = append(f.Records, r)
	}
	return f, nil
}

func isInt(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
