package epd

import (
	"bufio"
	"io"
)

// File is an in-memory artifact: accepted records in acceptance order.
type File struct {
	Records []*Record
}

func (f *File) String() string {
	var sb []byte
	for _, r := range f.Records {
		sb = append(sb, r.String()...)
		sb = append(sb, '\n')
	}
	return string(sb)
}

// Writer appends accepted-position records to an artifact stream,
// flushing after every record so partial results survive an aborted
// run. It also retains the records for a post-run export.
type Writer struct {
	w    *bufio.Writer
	file File
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Append writes one accepted position. Records must arrive in
// acceptance order; id is the caller's sequential identifier.
func (w *Writer) Append(fen string, id, ce int) error {
	r := NewRecord(fen, id, ce)
	if _, err := w.w.WriteString(r.String()); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	w.file.Records = append(w.file.Records, r)
	return nil
}

// Count reports how many records have been appended.
func (w *Writer) Count() int {
	return len(w.file.Records)
}

// File returns the records written so far.
func (w *Writer) File() *File {
	return &w.file
}
