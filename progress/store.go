package progress

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
)

// Format selects the progress file layout.
type Format string

const (
	// FormatJSON writes one document {embeddings, lastProcessedIndex}.
	FormatJSON Format = "json"
	// FormatNDJSON writes one EnrichedRecord per line; the resume offset
	// is the line count.
	FormatNDJSON Format = "ndjson"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatNDJSON:
		return FormatNDJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (valid: json, ndjson)", s)
	}
}

// Store persists pipeline progress at a fixed path. Save rewrites the
// whole file so a torn write can only lose the file, never silently
// corrupt a suffix.
type Store struct {
	path     string
	format   Format
	snapshot *Snapshot
}

type StoreOption func(*Store)

// WithSnapshot configures a remote snapshot to bootstrap from when no
// local progress file exists.
func WithSnapshot(s *Snapshot) StoreOption {
	return func(st *Store) {
		st.snapshot = s
	}
}

func NewStore(path string, format Format, opts ...StoreOption) *Store {
	st := &Store{
		path:   path,
		format: format,
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// Path returns the progress file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted state. A missing or corrupt file yields an
// empty state: corruption costs data, never the run. On first run, a
// configured snapshot is fetched before falling back to empty.
func (s *Store) Load(ctx context.Context) (*State, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) && s.snapshot != nil {
		if err := s.snapshot.Fetch(ctx, s.path); err != nil {
			log.Printf("Snapshot fetch failed, starting from empty state: %v", err)
		}
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("failed to read progress file: %w", err)
	}

	state, err := s.decode(data)
	if err != nil {
		log.Printf("Progress file is corrupt, starting from empty state: %v", err)
		return &State{}, nil
	}

	return state, nil
}

func (s *Store) decode(data []byte) (*State, error) {
	switch s.format {
	case FormatNDJSON:
		state := &State{}
		scanner := bufio.NewScanner(bytes.NewReader(data))
		scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var rec EnrichedRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return nil, fmt.Errorf("invalid ndjson line %d: %w", len(state.Embeddings)+1, err)
			}
			state.Embeddings = append(state.Embeddings, rec)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		state.LastProcessedIndex = len(state.Embeddings)
		return state, nil
	default:
		var state State
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, err
		}
		return &state, nil
	}
}

// Save rewrites the progress file in full.
func (s *Store) Save(state *State) error {
	data, err := s.encode(state)
	if err != nil {
		return err
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write progress file: %w", err)
	}

	return nil
}

func (s *Store) encode(state *State) ([]byte, error) {
	switch s.format {
	case FormatNDJSON:
		var buf bytes.Buffer
		for _, rec := range state.Embeddings {
			line, err := json.Marshal(rec)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal record %s: %w", rec.ID(), err)
			}
			buf.Write(line)
			buf.WriteByte('\n')
		}
		return buf.Bytes(), nil
	default:
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal progress state: %w", err)
		}
		return data, nil
	}
}
