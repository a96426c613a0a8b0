// Package render prints flow results to the terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"GeminiTrace/internal/story"
)

var (
	SuccessMark = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	TitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	MutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

const storyWidth = 50

// Story prints the generated text under a fixed heading. With markdown the
// text is rendered through glamour at the heading's width, falling back to
// the raw text on failure.
func Story(w io.Writer, text string, markdown bool) error {
	body := text
	if markdown {
		if rendered, err := markdownBody(text, storyWidth); err == nil {
			body = rendered
		}
	}
	_, err := fmt.Fprintf(w, "Generated Story:\n%s\n%s\n", rule(storyWidth), body)
	return err
}

// Epic prints the characters, the full story and the theme analysis.
func Epic(w io.Writer, e *story.Epic) error {
	banner(w, "CHARACTERS", 80)
	for i, c := range e.Characters {
		if c.RawResponse != "" && c.Name == "" {
			fmt.Fprintf(w, "\n%d. %s\n", i+1, c.RawResponse)
			continue
		}
		fmt.Fprintf(w, "\n%d. %s\n", i+1, orUnknown(c.Name, "Unknown"))
		fmt.Fprintf(w, "   Species: %s\n", orUnknown(c.Species, "Unknown"))
		fmt.Fprintf(w, "   Background: %s\n", orUnknown(c.Background, "No background"))
		if len(c.SpecialAbilities) > 0 {
			fmt.Fprintf(w, "   Abilities: %s\n", strings.Join(c.SpecialAbilities, ", "))
		}
	}

	banner(w, "FULL STORY", 80)
	fmt.Fprintln(w, e.FullStory)

	banner(w, "STORY ANALYSIS", 80)
	if a := e.Analysis; a.Parsed() {
		fmt.Fprintf(w, "Themes: %s\n", strings.Join(a.MainThemes, ", "))
		fmt.Fprintf(w, "Epic Elements: %s\n", strings.Join(a.EpicElements, ", "))
		fmt.Fprintf(w, "Emotional Tone: %s\n", a.EmotionalTone)
		fmt.Fprintf(w, "Complexity Score: %g/10\n", a.ComplexityScore)
	} else {
		fmt.Fprintf(w, "%s %s\n", FailMark, a.Error)
	}

	_, err := fmt.Fprintf(w, "\nTotal words generated: %d\n", e.Metadata.TotalWords)
	return err
}

// Showcase prints the story and its quality report.
func Showcase(w io.Writer, s *story.Showcase, elapsed time.Duration) error {
	banner(w, "GENERATED STORY", 60)
	fmt.Fprintln(w, s.Story)

	banner(w, "COMPREHENSIVE ANALYSIS", 60)
	a := s.Analysis
	fmt.Fprintf(w, "Overall Score: %d/100 %s\n", a.OverallScore,
		MutedStyle.Render("("+story.PerformanceLevel(a.OverallScore)+")"))
	fmt.Fprintf(w, "• Creativity: %d/100\n", a.CreativityScore)
	fmt.Fprintf(w, "• Structure: %d/100\n", a.StructureScore)
	fmt.Fprintf(w, "• Engagement: %d/100\n", a.EngagementScore)

	fmt.Fprintf(w, "\nWord Count: %d words\n", s.Metadata.TotalWords)
	_, err := fmt.Fprintf(w, "Total Generation Time: %s\n", FormatDuration(elapsed))
	return err
}

// AuthResult prints the outcome of a credential check.
func AuthResult(w io.Writer, err error) {
	if err != nil {
		fmt.Fprintf(w, "%s Authentication failed. Please check your credentials and host.\n", FailMark)
		fmt.Fprintf(w, "  %s\n", MutedStyle.Render(err.Error()))
		return
	}
	fmt.Fprintf(w, "%s Langfuse client is authenticated and ready!\n", SuccessMark)
}

// DashboardHint points at the dashboard that received the traces. An empty
// host means tracing was disabled and nothing is printed.
func DashboardHint(w io.Writer, host string) {
	if host == "" {
		return
	}
	fmt.Fprintln(w, MutedStyle.Render("Check your Langfuse dashboard for detailed traces: "+host))
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// markdownBody keeps the model's line breaks so dialogue stays on its own lines.
func markdownBody(text string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return "", err
	}
	out, err := r.Render(text)
	return strings.Trim(out, "\n"), err
}

func banner(w io.Writer, title string, width int) {
	fmt.Fprintf(w, "\n%s\n%s\n%s\n", rule(width), TitleStyle.Render(title), rule(width))
}

func rule(width int) string {
	return strings.Repeat("=", width)
}

func orUnknown(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
