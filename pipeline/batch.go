package pipeline

import (
	"fmt"
	"regexp"
	"time"

	"github.com/yoanbernabeu/cinevec/catalog"
	"github.com/yoanbernabeu/cinevec/progress"
	"github.com/yoanbernabeu/cinevec/wikipedia"
)

// DefaultBatchSize is the number of records per provider call.
const DefaultBatchSize = 10

// sectionCharLimit caps the representative section body sent for embedding.
const sectionCharLimit = 1000

// Embedding field labels. The plan emits one label per text, and zipping
// consumes embeddings by label, so the two phases cannot diverge.
const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldSummary     = "summary"
	fieldSection     = "section"
)

var plotSectionPattern = regexp.MustCompile(`(?i)plot|synopsis`)

// recordPlan lists the texts emitted for one record and the field each
// resulting embedding attaches to.
type recordPlan struct {
	record       catalog.Record
	texts        []string
	fields       []string
	sectionTitle string
}

// expectedEmbeddings is the number of vectors the provider must return
// for this record: 2 fixed plus 0-2 enrichment texts.
func (p recordPlan) expectedEmbeddings() int {
	return len(p.texts)
}

// buildPlan assembles the embeddable texts for a record: title and
// description always, plus summary and one representative section when a
// Wikipedia match is present.
func buildPlan(rec catalog.Record, match *wikipedia.MatchResult, maxTokens int) recordPlan {
	plan := recordPlan{record: rec}

	plan.add(fieldTitle, clampToTokenLimit(rec.Title(), maxTokens))
	plan.add(fieldDescription, clampToTokenLimit(rec.Description(), maxTokens))

	if match == nil || !match.Found {
		return plan
	}

	if match.Summary != "" {
		plan.add(fieldSummary, clampToTokenLimit(match.Summary, maxTokens))
	}
	if section := pickSection(match.Sections); section != nil {
		body := truncate(section.Content, sectionCharLimit)
		plan.add(fieldSection, clampToTokenLimit(body, maxTokens))
		plan.sectionTitle = section.Title
	}

	return plan
}

func (p *recordPlan) add(field, text string) {
	p.fields = append(p.fields, field)
	p.texts = append(p.texts, text)
}

// pickSection chooses the representative section: the first whose title
// matches a plot/synopsis pattern, else the first section.
func pickSection(sections []wikipedia.Section) *wikipedia.Section {
	if len(sections) == 0 {
		return nil
	}
	for i := range sections {
		if plotSectionPattern.MatchString(sections[i].Title) {
			return &sections[i]
		}
	}
	return &sections[0]
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

// clampToTokenLimit keeps a text under the provider's per-text token
// ceiling, using the same character-based estimate the accountant uses.
func clampToTokenLimit(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	maxChars := maxTokens * 4
	return truncate(text, maxChars)
}

// flattenTexts concatenates every plan's texts in record order, matching
// the order embeddings are zipped back in.
func flattenTexts(plans []recordPlan) []string {
	var texts []string
	for _, plan := range plans {
		texts = append(texts, plan.texts...)
	}
	return texts
}

// zipEmbeddings walks the returned vectors with a running cursor,
// consuming exactly expectedEmbeddings per record. A count mismatch is an
// error rather than a silent misalignment.
func zipEmbeddings(plans []recordPlan, embeddings [][]float32, meta progress.Meta) ([]progress.EnrichedRecord, error) {
	records := make([]progress.EnrichedRecord, 0, len(plans))
	cursor := 0

	for _, plan := range plans {
		need := plan.expectedEmbeddings()
		if cursor+need > len(embeddings) {
			return nil, fmt.Errorf("embedding underflow for record %s: need %d at offset %d, have %d total",
				plan.record.ID(), need, cursor, len(embeddings))
		}

		rec := progress.EnrichedRecord{
			Record: plan.record,
			Meta:   meta,
		}

		for i, field := range plan.fields {
			vec := embeddings[cursor+i]
			switch field {
			case fieldTitle:
				rec.TitleEmbedding = vec
			case fieldDescription:
				rec.DescriptionEmbedding = vec
			case fieldSummary:
				rec.WikipediaSummaryEmbedding = vec
			case fieldSection:
				rec.WikipediaSectionEmbedding = vec
				rec.WikipediaSectionTitle = plan.sectionTitle
			}
		}
		cursor += need

		records = append(records, rec)
	}

	if cursor != len(embeddings) {
		return nil, fmt.Errorf("embedding overflow: consumed %d of %d vectors", cursor, len(embeddings))
	}

	return records, nil
}

// newMeta stamps the metadata block attached to every record of a batch.
func newMeta(providerName, model string, dimensions int, now time.Time) progress.Meta {
	return progress.Meta{
		Provider:    providerName,
		Model:       model,
		Dimensions:  dimensions,
		GeneratedAt: now,
	}
}
