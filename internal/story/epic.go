package story

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"GeminiTrace/internal/observe"
)

// Character is a generated story character. When the reply is not valid JSON
// only RawResponse is set.
type Character struct {
	Name              string   `json:"name,omitempty"`
	Species           string   `json:"species,omitempty"`
	Background        string   `json:"background,omitempty"`
	SpecialAbilities  []string `json:"special_abilities,omitempty"`
	PersonalityTraits []string `json:"personality_traits,omitempty"`
	RawResponse       string   `json:"raw_response,omitempty"`
}

// Describe renders the character as one prompt line.
func (c Character) Describe() string {
	return fmt.Sprintf("- %s: %s, %s",
		orDefault(c.Name, "Unknown"),
		orDefault(c.Species, "Unknown species"),
		orDefault(c.Background, "No background"))
}

// ThemeAnalysis is the model's reading of a finished story. Error and Raw are
// set instead when the reply could not be parsed.
type ThemeAnalysis struct {
	MainThemes      []string   `json:"main_themes,omitempty"`
	EpicElements    []string   `json:"epic_elements,omitempty"`
	EmotionalTone   string     `json:"emotional_tone,omitempty"`
	ComplexityScore Complexity `json:"complexity_score,omitempty"`
	Recommendations []string   `json:"recommendations,omitempty"`

	Error string `json:"error,omitempty"`
	Raw   string `json:"raw,omitempty"`
}

// Complexity is the model's 1 to 10 rating. Replies sometimes quote it or
// append a scale ("7/10"); values without a leading number decode as 0.
type Complexity float64

func (c *Complexity) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case float64:
		*c = Complexity(t)
	case string:
		*c = Complexity(leadingNumber(t))
	default:
		*c = 0
	}
	return nil
}

func leadingNumber(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	n, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return n
}

// Parsed reports whether the analysis came back as structured data.
func (a ThemeAnalysis) Parsed() bool {
	return a.Error == ""
}

// Sections holds the four parts of an epic.
type Sections struct {
	Opening    string `json:"opening"`
	Conflict   string `json:"conflict"`
	Climax     string `json:"climax"`
	Resolution string `json:"resolution"`
}

// EpicMetadata summarizes an epic run.
type EpicMetadata struct {
	TotalWords     int    `json:"total_words"`
	NumCharacters  int    `json:"num_characters"`
	GenerationTime string `json:"generation_time"`
}

// Epic is the result of CreateEpic.
type Epic struct {
	Characters []Character   `json:"characters"`
	Sections   Sections      `json:"story_sections"`
	FullStory  string        `json:"full_story"`
	Analysis   ThemeAnalysis `json:"analysis"`
	Metadata   EpicMetadata  `json:"metadata"`
}

const characterPrompt = `Generate a detailed %s character for an epic story.
Return as JSON with the following structure:
{
    "name": "character name",
    "species": "species/race",
    "background": "brief background story",
    "special_abilities": ["ability1", "ability2"],
    "personality_traits": ["trait1", "trait2", "trait3"]
}

Make it creative and unique!`

const sectionPrompt = `You are writing a %[1]s for an epic story.

Characters available:
%[2]s

Previous context: %[3]s

Write an engaging %[1]s (200-300 words) that:
1. Uses at least one of the characters
2. Advances the plot
3. Has vivid descriptions
4. Ends with a hook for the next section

Make it exciting and cinematic!`

const analysisPrompt = `Analyze this epic story and identify:

Story: %s

Return as JSON:
{
    "main_themes": ["theme1", "theme2"],
    "epic_elements": ["element1", "element2"],
    "emotional_tone": "tone description",
    "complexity_score": 1-10,
    "recommendations": ["suggestion1", "suggestion2"]
}`

// GenerateCharacter asks for a character of the given kind, e.g. "hero".
func (w *Writer) GenerateCharacter(ctx context.Context, kind string) (Character, error) {
	return observe.Wrap("character_generator", func(ctx context.Context, kind string) (Character, error) {
		text, err := w.gen.GenerateText(ctx, fmt.Sprintf(characterPrompt, kind))
		if err != nil {
			return Character{}, err
		}

		var c Character
		if err := decodeJSON(text, &c); err != nil {
			w.logger.Warn("character reply is not JSON", "kind", kind, "error", err)
			return Character{RawResponse: text}, nil
		}
		return c, nil
	})(ctx, kind)
}

// GenerateSection writes one part of the story.
func (w *Writer) GenerateSection(ctx context.Context, characters []Character, section, previous string) (string, error) {
	input := map[string]any{
		"characters":       characters,
		"section_type":     section,
		"previous_context": previous,
	}
	return observe.Run(ctx, "story_section_generator", func(ctx context.Context) (string, error) {
		lines := make([]string, len(characters))
		for i, c := range characters {
			lines[i] = c.Describe()
		}
		return w.gen.GenerateText(ctx, fmt.Sprintf(sectionPrompt, section, strings.Join(lines, "\n"), previous))
	}, observe.WithInput(input))
}

// AnalyzeThemes asks the model to analyze a finished story.
func (w *Writer) AnalyzeThemes(ctx context.Context, fullStory string) (ThemeAnalysis, error) {
	return observe.Wrap("story_analyzer", func(ctx context.Context, fullStory string) (ThemeAnalysis, error) {
		text, err := w.gen.GenerateText(ctx, fmt.Sprintf(analysisPrompt, fullStory))
		if err != nil {
			return ThemeAnalysis{}, err
		}

		var a ThemeAnalysis
		if err := decodeJSON(text, &a); err != nil {
			w.logger.Warn("analysis reply is not JSON", "error", err)
			return ThemeAnalysis{Error: "Failed to parse analysis", Raw: text}, nil
		}
		return a, nil
	})(ctx, fullStory)
}

// CreateEpic generates three characters, four story sections and a theme
// analysis, all under one trace named epic_story_generator.
func (w *Writer) CreateEpic(ctx context.Context) (*Epic, error) {
	return observe.Run(ctx, "epic_story_generator", w.createEpic)
}

func (w *Writer) createEpic(ctx context.Context) (*Epic, error) {
	w.announce("Creating an epic story...")

	w.announce("Generating characters...")
	var characters []Character
	for _, kind := range []string{"hero", "villain", "wise mentor"} {
		c, err := w.GenerateCharacter(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s: %w", kind, err)
		}
		characters = append(characters, c)
	}

	w.announce("Writing story sections...")
	var sections Sections
	steps := []struct {
		name     string
		previous func() string
		dst      *string
	}{
		{"opening scene", func() string { return "" }, &sections.Opening},
		{"conflict scene", func() string { return fmt.Sprintf("Opening: %s...", truncate(sections.Opening, 100)) }, &sections.Conflict},
		{"climactic battle", func() string { return "Previous scenes established conflict. Current tension is high." }, &sections.Climax},
		{"resolution", func() string { return "After an epic battle, the story needs closure." }, &sections.Resolution},
	}
	for _, step := range steps {
		text, err := w.GenerateSection(ctx, characters, step.name, step.previous())
		if err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", step.name, err)
		}
		*step.dst = text
	}

	fullStory := strings.Join([]string{sections.Opening, sections.Conflict, sections.Climax, sections.Resolution}, "\n\n")

	w.announce("Analyzing story...")
	analysis, err := w.AnalyzeThemes(ctx, fullStory)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze story: %w", err)
	}

	epic := &Epic{
		Characters: characters,
		Sections:   sections,
		FullStory:  fullStory,
		Analysis:   analysis,
		Metadata: EpicMetadata{
			TotalWords:     wordCount(fullStory),
			NumCharacters:  len(characters),
			GenerationTime: w.timestamp(),
		},
	}
	w.logger.Info("epic created",
		"trace_id", observe.TraceID(ctx),
		"total_words", epic.Metadata.TotalWords)
	return epic, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
