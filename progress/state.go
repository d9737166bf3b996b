package progress

import (
	"time"

	"github.com/yoanbernabeu/cinevec/catalog"
)

// Meta describes how a record's embeddings were generated. One run never
// mixes providers or dimensionalities, so the block is identical across a
// run's records.
type Meta struct {
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	Dimensions  int       `json:"dimensions"`
	GeneratedAt time.Time `json:"generated_at"`
}

// EnrichedRecord is a catalog record extended with its embeddings.
// Created exactly once per record; reruns skip records whose ID already
// appears in the persisted state.
type EnrichedRecord struct {
	Record catalog.Record `json:"record"`

	TitleEmbedding       []float32 `json:"title_embedding"`
	DescriptionEmbedding []float32 `json:"description_embedding"`

	// Present only when a Wikipedia lookup matched.
	WikipediaSummaryEmbedding []float32 `json:"wikipedia_summary_embedding,omitempty"`
	WikipediaSectionEmbedding []float32 `json:"wikipedia_section_embedding,omitempty"`
	WikipediaSectionTitle     string    `json:"wikipedia_section_title,omitempty"`

	Meta Meta `json:"embedding_meta"`
}

// ID returns the source record's stable identifier.
func (r EnrichedRecord) ID() string {
	return r.Record.ID()
}

// State is the durable progress representation. Invariant:
// LastProcessedIndex == len(Embeddings), and the file is only ever
// rewritten after a whole batch has been appended.
type State struct {
	Embeddings         []EnrichedRecord `json:"embeddings"`
	LastProcessedIndex int              `json:"lastProcessedIndex"`
}

// ProcessedIDs returns the set of record identifiers already embedded.
func (s *State) ProcessedIDs() map[string]bool {
	ids := make(map[string]bool, len(s.Embeddings))
	for _, rec := range s.Embeddings {
		ids[rec.ID()] = true
	}
	return ids
}
