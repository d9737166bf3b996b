package wikipedia

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSplitExtract(t *testing.T) {
	extract := `Alien is a 1979 science fiction horror film directed by Ridley Scott.

== Plot ==
The commercial space tug Nostromo is on a return trip to Earth.
The crew is awakened early.

== Production ==
The film was shot at Shepperton Studios.

== Empty ==

== Reception ==
The film received critical acclaim.`

	summary, sections := splitExtract(extract)

	if !strings.HasPrefix(summary, "Alien is a 1979") {
		t.Errorf("unexpected summary: %q", summary)
	}
	if len(sections) != 3 {
		t.Fatalf("expected 3 non-empty sections, got %d", len(sections))
	}
	if sections[0].Title != "Plot" {
		t.Errorf("expected first section Plot, got %s", sections[0].Title)
	}
	if sections[0].WordCount == 0 {
		t.Error("expected non-zero word count for Plot section")
	}
	if sections[2].Title != "Reception" {
		t.Errorf("expected Reception section, got %s", sections[2].Title)
	}
}

func TestTitleScore(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		title     string
		min       int
	}{
		{"exact", "Alien", "Alien", 90},
		{"disambiguated", "Alien (film)", "Alien", 90},
		{"contains", "Alien: Director's Cut", "Alien", 70},
		{"unrelated", "Toy Story", "Alien", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := titleScore(tt.candidate, tt.title)
			if got < tt.min {
				t.Errorf("titleScore(%q, %q) = %d, want >= %d", tt.candidate, tt.title, got, tt.min)
			}
		})
	}
}

func TestAdjustConfidence(t *testing.T) {
	text := "Alien is a 1979 film directed by Ridley Scott."

	if got := adjustConfidence(80, text, "1979", "Ridley Scott"); got != 100 {
		t.Errorf("expected boost to 100, got %d", got)
	}
	if got := adjustConfidence(80, text, "2010", "Someone Else"); got >= 80 {
		t.Errorf("expected penalty below 80, got %d", got)
	}
	if got := adjustConfidence(5, text, "2010", ""); got < 0 {
		t.Errorf("confidence must not go negative, got %d", got)
	}
}

func newFakeWiki(t *testing.T, searchTitle, extract string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("list") {
		case "search":
			fmt.Fprintf(w, `{"query":{"search":[{"title":%q}]}}`, searchTitle)
		default:
			page := fmt.Sprintf(`{"query":{"pages":{"42":{"title":%q,"fullurl":"https://en.wikipedia.org/wiki/x","extract":%q}}}}`,
				searchTitle, extract)
			fmt.Fprint(w, page)
		}
	}))
}

func TestClient_Enrich_Match(t *testing.T) {
	extract := "Alien is a 1979 film directed by Ridley Scott.\n\n== Plot ==\nThe Nostromo crew answers a distress signal."
	server := newFakeWiki(t, "Alien (film)", extract)
	defer server.Close()

	c := NewClient(WithEndpoint(server.URL))
	result, err := c.Enrich(context.Background(), "Alien", "1979", "Ridley Scott")
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}

	if !result.Found {
		t.Fatalf("expected a match, got reason: %s", result.Reason)
	}
	if result.Summary == "" {
		t.Error("expected a summary")
	}
	if len(result.Sections) != 1 || result.Sections[0].Title != "Plot" {
		t.Errorf("expected one Plot section, got %+v", result.Sections)
	}
	if result.Confidence < matchThreshold {
		t.Errorf("expected confidence >= %d, got %d", matchThreshold, result.Confidence)
	}
}

func TestClient_Enrich_NoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"query":{"search":[]}}`)
	}))
	defer server.Close()

	c := NewClient(WithEndpoint(server.URL))
	result, err := c.Enrich(context.Background(), "Nonexistent Movie", "1900", "")
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}

	if result.Found {
		t.Error("expected no match")
	}
	if result.Reason == "" {
		t.Error("expected a reason for the miss")
	}
}

func TestClient_Enrich_RejectsBadCandidate(t *testing.T) {
	server := newFakeWiki(t, "Completely Different Article", "Unrelated text about botany.")
	defer server.Close()

	c := NewClient(WithEndpoint(server.URL))
	result, err := c.Enrich(context.Background(), "Alien", "1979", "Ridley Scott")
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}

	if result.Found {
		t.Errorf("expected rejection of unrelated candidate, got %+v", result)
	}
}

func TestClient_Enrich_TransportError(t *testing.T) {
	c := NewClient(WithEndpoint("http://127.0.0.1:1"))

	_, err := c.Enrich(context.Background(), "Alien", "1979", "")
	if err == nil {
		t.Fatal("expected transport error")
	}
}
