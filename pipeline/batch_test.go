package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/yoanbernabeu/cinevec/catalog"
	"github.com/yoanbernabeu/cinevec/wikipedia"
)

func TestBuildPlan_WithoutMatch(t *testing.T) {
	rec := catalog.Record{"id": "1", "title": "Alien", "description": "crew vs lifeform"}

	plan := buildPlan(rec, nil, 8192)

	if plan.expectedEmbeddings() != 2 {
		t.Fatalf("expected 2 texts without enrichment, got %d", plan.expectedEmbeddings())
	}
	if plan.texts[0] != "Alien" || plan.texts[1] != "crew vs lifeform" {
		t.Errorf("unexpected texts: %v", plan.texts)
	}
}

func TestBuildPlan_WithMatch(t *testing.T) {
	rec := catalog.Record{"id": "1", "title": "Alien", "description": "crew vs lifeform"}
	match := &wikipedia.MatchResult{
		Found:   true,
		Summary: "Alien is a 1979 film.",
		Sections: []wikipedia.Section{
			{Title: "Production", Content: "Shot at Shepperton Studios."},
			{Title: "Plot summary", Content: "A distress call wakes the crew."},
		},
	}

	plan := buildPlan(rec, match, 8192)

	if plan.expectedEmbeddings() != 4 {
		t.Fatalf("expected 4 texts with enrichment, got %d", plan.expectedEmbeddings())
	}
	if plan.sectionTitle != "Plot summary" {
		t.Errorf("expected plot section chosen, got %q", plan.sectionTitle)
	}
	if plan.texts[3] != "A distress call wakes the crew." {
		t.Errorf("unexpected section text: %q", plan.texts[3])
	}
}

func TestBuildPlan_UnfoundMatchAddsNothing(t *testing.T) {
	rec := catalog.Record{"id": "1", "title": "Alien", "description": "crew vs lifeform"}
	match := &wikipedia.MatchResult{Found: false, Reason: "no results"}

	if got := buildPlan(rec, match, 8192).expectedEmbeddings(); got != 2 {
		t.Errorf("unfound match must add no texts, got %d", got)
	}
}

func TestBuildPlan_SectionTruncated(t *testing.T) {
	rec := catalog.Record{"id": "1", "title": "Alien", "description": "crew"}
	match := &wikipedia.MatchResult{
		Found:    true,
		Summary:  "summary",
		Sections: []wikipedia.Section{{Title: "Plot", Content: strings.Repeat("x", 5000)}},
	}

	plan := buildPlan(rec, match, 8192)

	if len(plan.texts[3]) != sectionCharLimit {
		t.Errorf("expected section truncated to %d chars, got %d", sectionCharLimit, len(plan.texts[3]))
	}
}

func TestBuildPlan_ClampsToProviderTokenLimit(t *testing.T) {
	rec := catalog.Record{"id": "1", "title": "Alien", "description": strings.Repeat("y", 100)}

	plan := buildPlan(rec, nil, 10)

	if len(plan.texts[1]) != 40 {
		t.Errorf("expected description clamped to 40 chars for a 10 token limit, got %d", len(plan.texts[1]))
	}
}

func TestPickSection(t *testing.T) {
	tests := []struct {
		name     string
		sections []wikipedia.Section
		want     string
	}{
		{"empty", nil, ""},
		{"plot preferred", []wikipedia.Section{{Title: "Cast"}, {Title: "Plot"}}, "Plot"},
		{"synopsis preferred", []wikipedia.Section{{Title: "Cast"}, {Title: "Synopsis"}}, "Synopsis"},
		{"case insensitive", []wikipedia.Section{{Title: "PLOT SUMMARY"}}, "PLOT SUMMARY"},
		{"fallback to first", []wikipedia.Section{{Title: "Cast"}, {Title: "Release"}}, "Cast"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pickSection(tt.sections)
			if tt.want == "" {
				if got != nil {
					t.Errorf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil || got.Title != tt.want {
				t.Errorf("pickSection = %+v, want title %q", got, tt.want)
			}
		})
	}
}

func TestZipEmbeddings(t *testing.T) {
	plans := []recordPlan{
		buildPlan(catalog.Record{"id": "1", "title": "a", "description": "b"}, nil, 0),
		buildPlan(catalog.Record{"id": "2", "title": "c", "description": "d"}, &wikipedia.MatchResult{
			Found:    true,
			Summary:  "s",
			Sections: []wikipedia.Section{{Title: "Plot", Content: "p"}},
		}, 0),
	}

	embeddings := [][]float32{{0}, {1}, {2}, {3}, {4}, {5}}
	meta := newMeta("fake", "m", 1, time.Now())

	records, err := zipEmbeddings(plans, embeddings, meta)
	if err != nil {
		t.Fatalf("zipEmbeddings returned error: %v", err)
	}

	if records[0].TitleEmbedding[0] != 0 || records[0].DescriptionEmbedding[0] != 1 {
		t.Errorf("record 1 vectors misassigned: %+v", records[0])
	}
	if records[1].TitleEmbedding[0] != 2 || records[1].DescriptionEmbedding[0] != 3 {
		t.Errorf("record 2 base vectors misassigned: %+v", records[1])
	}
	if records[1].WikipediaSummaryEmbedding[0] != 4 || records[1].WikipediaSectionEmbedding[0] != 5 {
		t.Errorf("record 2 enrichment vectors misassigned: %+v", records[1])
	}
	if records[1].WikipediaSectionTitle != "Plot" {
		t.Errorf("section title lost: %q", records[1].WikipediaSectionTitle)
	}
}

func TestZipEmbeddings_CountMismatch(t *testing.T) {
	plans := []recordPlan{
		buildPlan(catalog.Record{"id": "1", "title": "a", "description": "b"}, nil, 0),
	}
	meta := newMeta("fake", "m", 1, time.Now())

	if _, err := zipEmbeddings(plans, [][]float32{{0}}, meta); err == nil {
		t.Error("expected underflow error with too few vectors")
	}
	if _, err := zipEmbeddings(plans, [][]float32{{0}, {1}, {2}}, meta); err == nil {
		t.Error("expected overflow error with too many vectors")
	}
}
