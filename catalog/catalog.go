package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Field names the pipeline depends on. The catalog may carry additional
// columns (year, director, ...) which are preserved verbatim.
const (
	FieldID          = "id"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldYear        = "year"
	FieldDirector    = "director"
)

// Record is one row of the movie catalog, keyed by CSV column name.
// Records are never mutated after loading, only copied and extended.
type Record map[string]string

// ID returns the record's stable unique identifier.
func (r Record) ID() string {
	return r[FieldID]
}

// Title returns the title field.
func (r Record) Title() string {
	return r[FieldTitle]
}

// Description returns the description field.
func (r Record) Description() string {
	return r[FieldDescription]
}

// Year returns the year field, empty when the column is absent.
func (r Record) Year() string {
	return r[FieldYear]
}

// Director returns the director field, empty when the column is absent.
func (r Record) Director() string {
	return r[FieldDirector]
}

// Catalog holds the loaded records along with the CSV column order.
type Catalog struct {
	Columns []string
	Records []Record
}

// Load reads a CSV catalog file. The first row must be a header containing
// at least the id, title and description columns. Row order is preserved.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses CSV catalog data from an io.Reader.
func Read(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("catalog is empty: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog header: %w", err)
	}

	if err := validateHeader(header); err != nil {
		return nil, err
	}

	cat := &Catalog{Columns: header}
	line := 1

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog row %d: %w", line, err)
		}

		rec := make(Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			}
		}

		if rec.ID() == "" {
			return nil, fmt.Errorf("catalog row %d has an empty id", line)
		}

		cat.Records = append(cat.Records, rec)
	}

	if err := cat.checkDuplicateIDs(); err != nil {
		return nil, err
	}

	return cat, nil
}

func validateHeader(header []string) error {
	required := []string{FieldID, FieldTitle, FieldDescription}
	seen := make(map[string]bool, len(header))
	for _, col := range header {
		seen[col] = true
	}
	for _, col := range required {
		if !seen[col] {
			return fmt.Errorf("catalog is missing required column %q", col)
		}
	}
	return nil
}

func (c *Catalog) checkDuplicateIDs() error {
	seen := make(map[string]int, len(c.Records))
	for i, rec := range c.Records {
		id := rec.ID()
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("duplicate id %q at rows %d and %d", id, prev+2, i+2)
		}
		seen[id] = i
	}
	return nil
}
