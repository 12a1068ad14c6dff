package epd

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// BookEntry is the YAML form of one accepted position.
type BookEntry struct {
	FEN string `yaml:"fen"`
	ID  int    `yaml:"id"`
	CE  int    `yaml:"ce"`
	TS  int64  `yaml:"ts,omitempty"`
}

// AsBook converts the artifact to YAML book entries.
func (f *File) AsBook() []BookEntry {
	now := time.Now().Unix()
	entries := make([]BookEntry, 0, len(f.Records))
	for _, r := range f.Records {
		entries = append(entries, BookEntry{
			FEN: r.FEN,
			ID:  r.ID(),
			CE:  r.CE(),
			TS:  now,
		})
	}
	return entries
}

// SaveAsYAML writes the artifact as a YAML book alongside the EPD.
func (f *File) SaveAsYAML(filename string) error {
	data, err := yaml.Marshal(f.AsBook())
	if err != nil {
		return fmt.Errorf("encode yaml book: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("write yaml book %q: %w", filename, err)
	}
	return nil
}
