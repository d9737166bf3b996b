package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/yoanbernabeu/cinevec/config"
	"github.com/yoanbernabeu/cinevec/pipeline"
	"github.com/yoanbernabeu/cinevec/progress"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display pipeline progress and browse embedded movies",
	Long: `Display statistics about the progress file and interactively browse
embedded movies.

Navigation:
  Enter    - Browse movies / View details
  Esc      - Go back
  Up/Down  - Navigate
  q        - Quit`,
	RunE: runStatus,
}

type viewState int

const (
	viewStats viewState = iota
	viewMovies
	viewDetail
)

type model struct {
	cfg      *config.Config
	state    *progress.State
	usage    *pipeline.UsageSummary
	view     viewState
	selected int
	width    int
	height   int
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)
)

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "esc":
			switch m.view {
			case viewMovies:
				m.view = viewStats
			case viewDetail:
				m.view = viewMovies
			}

		case "enter":
			switch m.view {
			case viewStats:
				m.view = viewMovies
			case viewMovies:
				if len(m.state.Embeddings) > 0 {
					m.view = viewDetail
				}
			}

		case "up", "k":
			if m.view == viewMovies && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.view == viewMovies && m.selected < len(m.state.Embeddings)-1 {
				m.selected++
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

func (m model) View() string {
	switch m.view {
	case viewStats:
		return m.viewStats()
	case viewMovies:
		return m.viewMovies()
	case viewDetail:
		return m.viewDetail()
	}

	return ""
}

func (m model) viewStats() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("cinevec pipeline status"))
	sb.WriteString("\n\n")

	sb.WriteString(normalStyle.Render("Movies embedded:  "))
	sb.WriteString(fmt.Sprintf("%d\n", len(m.state.Embeddings)))

	enriched := 0
	for _, rec := range m.state.Embeddings {
		if rec.WikipediaSummaryEmbedding != nil {
			enriched++
		}
	}
	sb.WriteString(normalStyle.Render("With Wikipedia:   "))
	sb.WriteString(fmt.Sprintf("%d\n", enriched))

	sb.WriteString(normalStyle.Render("Resume offset:    "))
	sb.WriteString(fmt.Sprintf("%d\n", m.state.LastProcessedIndex))

	if len(m.state.Embeddings) > 0 {
		meta := m.state.Embeddings[len(m.state.Embeddings)-1].Meta
		sb.WriteString(normalStyle.Render("Provider:         "))
		sb.WriteString(fmt.Sprintf("%s (%s, %dd)\n", meta.Provider, meta.Model, meta.Dimensions))
		sb.WriteString(normalStyle.Render("Last batch:       "))
		sb.WriteString(fmt.Sprintf("%s\n", meta.GeneratedAt.Format("2006-01-02 15:04:05")))
	}

	sb.WriteString(normalStyle.Render("Output file:      "))
	sb.WriteString(fmt.Sprintf("%s (%s)\n", m.cfg.Output.File, m.cfg.Output.Format))

	if m.usage != nil {
		sb.WriteString("\n")
		sb.WriteString(titleStyle.Render("Last run"))
		sb.WriteString("\n")
		sb.WriteString(normalStyle.Render("Tokens used:      "))
		sb.WriteString(fmt.Sprintf("%d (%.2f%% of quota)\n", m.usage.TokensUsed, m.usage.QuotaUsedPercent))
		sb.WriteString(normalStyle.Render("Batches:          "))
		sb.WriteString(fmt.Sprintf("%d (%d errors)\n", m.usage.Batches, m.usage.Errors))
		if m.usage.EstimatedUSD > 0 {
			sb.WriteString(normalStyle.Render("Estimated cost:   "))
			sb.WriteString(fmt.Sprintf("$%.4f\n", m.usage.EstimatedUSD))
		}
	}

	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("[Enter] Browse movies  [q] Quit"))

	return boxStyle.Render(sb.String())
}

func (m model) viewMovies() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("Embedded Movies (%d)", len(m.state.Embeddings))))
	sb.WriteString("\n\n")

	maxVisible := 15
	if m.height > 0 {
		maxVisible = m.height - 10
	}
	if maxVisible < 5 {
		maxVisible = 5
	}

	start := 0
	if m.selected >= maxVisible {
		start = m.selected - maxVisible + 1
	}
	end := start + maxVisible
	if end > len(m.state.Embeddings) {
		end = len(m.state.Embeddings)
	}

	for i := start; i < end; i++ {
		rec := m.state.Embeddings[i]
		label := rec.Record.Title()
		if year := rec.Record.Year(); year != "" {
			label += " (" + year + ")"
		}
		marker := " "
		if rec.WikipediaSummaryEmbedding != nil {
			marker = "W"
		}
		line := fmt.Sprintf("%-50s %s", truncateLabel(label, 50), marker)

		if i == m.selected {
			sb.WriteString(selectedStyle.Render("> " + line))
		} else {
			sb.WriteString(normalStyle.Render("  " + line))
		}
		sb.WriteString("\n")
	}

	if len(m.state.Embeddings) > maxVisible {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n... showing %d-%d of %d movies", start+1, end, len(m.state.Embeddings))))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("[Up/Down] Navigate  [Enter] Details  [Esc] Back  [q] Quit"))

	return boxStyle.Render(sb.String())
}

func (m model) viewDetail() string {
	var sb strings.Builder

	rec := m.state.Embeddings[m.selected]

	sb.WriteString(titleStyle.Render(rec.Record.Title()))
	sb.WriteString("\n\n")

	if year := rec.Record.Year(); year != "" {
		sb.WriteString(normalStyle.Render("Year:      "))
		sb.WriteString(year + "\n")
	}
	if director := rec.Record.Director(); director != "" {
		sb.WriteString(normalStyle.Render("Director:  "))
		sb.WriteString(director + "\n")
	}

	sb.WriteString(normalStyle.Render("Vectors:   "))
	vectors := []string{"title", "description"}
	if rec.WikipediaSummaryEmbedding != nil {
		vectors = append(vectors, "wikipedia summary")
	}
	if rec.WikipediaSectionEmbedding != nil {
		vectors = append(vectors, fmt.Sprintf("section %q", rec.WikipediaSectionTitle))
	}
	sb.WriteString(fmt.Sprintf("%s (%dd each)\n", strings.Join(vectors, ", "), rec.Meta.Dimensions))

	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(strings.Repeat("-", 50)))
	sb.WriteString("\n\n")

	desc := rec.Record.Description()
	lines := wrapText(desc, 70)
	maxLines := 10
	if m.height > 0 {
		maxLines = m.height - 15
	}
	if maxLines < 5 {
		maxLines = 5
	}
	for i, line := range lines {
		if i >= maxLines {
			sb.WriteString(dimStyle.Render("..."))
			sb.WriteString("\n")
			break
		}
		sb.WriteString(dimStyle.Render(line))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("[Esc] Back to movies  [q] Quit"))

	return boxStyle.Render(sb.String())
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	progressStore, err := openProgressStore(cfg)
	if err != nil {
		return err
	}

	state, err := progressStore.Load(context.Background())
	if err != nil {
		return fmt.Errorf("failed to load progress file: %w", err)
	}

	m := model{
		cfg:   cfg,
		state: state,
		usage: loadUsageSummary(cfg.Output.UsageFile),
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// loadUsageSummary reads the usage log if one exists. Absence just means
// no run has completed yet.
func loadUsageSummary(path string) *pipeline.UsageSummary {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var summary pipeline.UsageSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil
	}
	return &summary
}

func truncateLabel(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func wrapText(s string, width int) []string {
	var lines []string
	words := strings.Fields(s)
	current := ""
	for _, word := range words {
		if current == "" {
			current = word
			continue
		}
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
