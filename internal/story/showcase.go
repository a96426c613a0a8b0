package story

import (
	"context"
	"fmt"
	"strings"
	"time"

	"GeminiTrace/internal/observe"
	"GeminiTrace/internal/session"
)

const premisePrompt = `Generate a unique and compelling science fiction story premise in 1-2 sentences.
Include an interesting character, setting, and conflict that would make readers want to continue reading.`

const storyPrompt = `Based on this premise: %s

Write a complete science fiction story of 300-400 words that includes:
- Vivid descriptions of the setting
- Engaging dialogue between characters
- A clear beginning, middle, and end
- Emotional depth and character development

Make it compelling and well-paced.`

// ShowcaseTraceName is the trace name set by Showcase.
const ShowcaseTraceName = "Rich Story Generation Demo"

// QualityReport combines the three scoring dimensions.
type QualityReport struct {
	OverallScore    int            `json:"overall_score"`
	CreativityScore int            `json:"creativity_score"`
	StructureScore  int            `json:"structure_score"`
	EngagementScore int            `json:"engagement_score"`
	Detailed        DetailedReport `json:"detailed_analysis"`
	Summary         string         `json:"summary"`
}

// DetailedReport holds the per-dimension results.
type DetailedReport struct {
	Creativity CreativityAnalysis `json:"creativity"`
	Structure  StructureAnalysis  `json:"structure"`
	Engagement EngagementAnalysis `json:"engagement"`
}

// ShowcaseMetadata summarizes a showcase run.
type ShowcaseMetadata struct {
	TotalWords     int            `json:"total_words"`
	GenerationTime string         `json:"generation_time"`
	QualityMetrics map[string]int `json:"quality_metrics"`
}

// Showcase is the result of the showcase flow.
type Showcase struct {
	Premise  string           `json:"premise"`
	Story    string           `json:"story"`
	Analysis QualityReport    `json:"analysis"`
	Metadata ShowcaseMetadata `json:"metadata"`
}

// Showcase generates a premise, expands it into a story and scores the story.
// The trace carries the session's user, id and tags plus experiment metadata,
// and every step annotates its own observation.
func (w *Writer) Showcase(ctx context.Context, sess *session.Session) (*Showcase, error) {
	return observe.Run(ctx, "rich_story_generation", func(ctx context.Context) (*Showcase, error) {
		return w.showcase(ctx, sess)
	})
}

func (w *Writer) showcase(ctx context.Context, sess *session.Session) (*Showcase, error) {
	w.announce("Generating story with comprehensive trace information...")

	observe.UpdateTrace(ctx, observe.TraceUpdate{
		Name:      ShowcaseTraceName,
		UserID:    sess.UserID,
		SessionID: sess.ID,
		Tags:      sess.Tags,
		Metadata: map[string]any{
			"experiment": map[string]any{
				"name":       "rich_metadata_demo",
				"version":    "1.0",
				"hypothesis": "Rich metadata improves trace analysis",
			},
			"user_preferences": map[string]any{
				"genre":  "science_fiction",
				"style":  "descriptive",
				"length": "medium",
			},
			"system_info": map[string]any{
				"model":     w.model,
				"location":  w.location,
				"timestamp": w.timestamp(),
			},
		},
		Input: map[string]any{
			"task":         "Generate a creative story with analysis",
			"requirements": []string{"creative", "well-structured", "engaging"},
		},
	})
	observe.UpdateSpan(ctx, observe.SpanUpdate{
		Metadata: map[string]any{
			"function_purpose":   "Main story generation orchestrator",
			"expected_steps":     []string{"premise", "story", "analysis"},
			"performance_target": "< 30 seconds",
		},
	})

	premise, err := w.GeneratePremise(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate premise: %w", err)
	}
	w.announce("Premise: %s...", truncate(premise, 80))

	story, err := w.WriteStory(ctx, premise)
	if err != nil {
		return nil, fmt.Errorf("failed to write story: %w", err)
	}
	w.announce("Story: %s...", truncate(story, 80))

	report, err := w.AnalyzeStory(ctx, story)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze story: %w", err)
	}
	w.announce("Analysis Score: %d/100", report.OverallScore)

	result := &Showcase{
		Premise:  premise,
		Story:    story,
		Analysis: report,
		Metadata: ShowcaseMetadata{
			TotalWords:     wordCount(story),
			GenerationTime: w.timestamp(),
			QualityMetrics: map[string]int{
				"creativity": report.CreativityScore,
				"structure":  report.StructureScore,
				"engagement": report.EngagementScore,
			},
		},
	}
	observe.UpdateTrace(ctx, observe.TraceUpdate{Output: result})

	return result, nil
}

// GeneratePremise asks for a one or two sentence science fiction premise and
// records its quality on the observation.
func (w *Writer) GeneratePremise(ctx context.Context) (string, error) {
	return observe.Run(ctx, "generate_premise", func(ctx context.Context) (string, error) {
		observe.UpdateSpan(ctx, observe.SpanUpdate{
			Metadata: map[string]any{
				"step":             "premise_generation",
				"purpose":          "Create compelling story foundation",
				"target_length":    "1-2 sentences",
				"creativity_focus": "high",
			},
			Input: map[string]any{
				"prompt":          premisePrompt,
				"model":           w.model,
				"generation_type": "creative_premise",
			},
		})

		text, err := w.gen.GenerateText(ctx, premisePrompt)
		if err != nil {
			return "", err
		}
		premise := strings.TrimSpace(text)
		quality := ScorePremise(premise)

		observe.UpdateSpan(ctx, observe.SpanUpdate{
			Output: map[string]any{
				"premise":          premise,
				"quality_analysis": quality,
			},
			Metadata: map[string]any{
				"analysis_complete": true,
				"quality_indicators": map[string]bool{
					"character_present": quality.HasCharacter,
					"setting_present":   quality.HasSetting,
					"conflict_present":  quality.HasConflict,
				},
			},
		})
		return premise, nil
	}, observe.WithoutOutput())
}

// WriteStory expands premise into a 300 to 400 word story and records
// length and pacing metrics on the observation.
func (w *Writer) WriteStory(ctx context.Context, premise string) (string, error) {
	return observe.Run(ctx, "write_story", func(ctx context.Context) (string, error) {
		start := w.now()
		observe.UpdateSpan(ctx, observe.SpanUpdate{
			Metadata: map[string]any{
				"step":               "story_writing",
				"premise_length":     wordCount(premise),
				"target_length":      "300-400 words",
				"style_requirements": []string{"vivid_descriptions", "dialogue", "clear_structure"},
				"start_time":         start.Format(time.DateTime),
			},
			Input: map[string]any{
				"premise":              premise,
				"writing_instructions": "Expand into full story with beginning, middle, end",
			},
		})

		text, err := w.gen.GenerateText(ctx, fmt.Sprintf(storyPrompt, premise))
		if err != nil {
			return "", err
		}
		story := strings.TrimSpace(text)
		elapsed := w.now().Sub(start).Seconds()
		metrics := MeasureStory(story, elapsed)

		observe.UpdateSpan(ctx, observe.SpanUpdate{
			Output: map[string]any{
				"story":               story,
				"performance_metrics": metrics,
			},
			Metadata: map[string]any{
				"generation_completed": true,
				"quality_indicators": map[string]bool{
					"meets_length_target": withinTargetLength(metrics.WordCount),
					"includes_dialogue":   metrics.HasDialogue,
					"well_structured":     metrics.ParagraphCount >= 3,
				},
				"performance": map[string]bool{
					"fast_generation":      elapsed < 10,
					"within_target_length": withinTargetLength(metrics.WordCount),
				},
			},
		})
		return story, nil
	}, observe.WithoutOutput())
}

// AnalyzeStory scores story locally across creativity, structure and
// engagement. No model call is made.
func (w *Writer) AnalyzeStory(ctx context.Context, story string) (QualityReport, error) {
	return observe.Run(ctx, "analyze_story", func(ctx context.Context) (QualityReport, error) {
		observe.UpdateSpan(ctx, observe.SpanUpdate{
			Metadata: map[string]any{
				"step":                "comprehensive_analysis",
				"analysis_dimensions": []string{"creativity", "structure", "engagement", "technical"},
				"story_word_count":    wordCount(story),
				"analysis_method":     "multi_dimensional_scoring",
			},
			Input: map[string]any{
				"story":            story,
				"analysis_request": "Comprehensive quality assessment across multiple dimensions",
			},
		})

		creativity, err := scoreStep(ctx, "analyze_creativity", story, ScoreCreativity, map[string]any{
			"analysis_type": "creativity_assessment",
			"criteria":      []string{"originality", "imagination", "unique_elements"},
		})
		if err != nil {
			return QualityReport{}, err
		}
		structure, err := scoreStep(ctx, "analyze_structure", story, ScoreStructure, map[string]any{
			"analysis_type": "narrative_structure",
			"criteria":      []string{"beginning", "middle", "end", "flow", "pacing"},
		})
		if err != nil {
			return QualityReport{}, err
		}
		engagement, err := scoreStep(ctx, "analyze_engagement", story, ScoreEngagement, map[string]any{
			"analysis_type": "engagement_assessment",
			"criteria":      []string{"emotional_impact", "dialogue", "descriptive_language", "tension"},
		})
		if err != nil {
			return QualityReport{}, err
		}

		overall := OverallScore(creativity.Score, structure.Score, engagement.Score)
		report := QualityReport{
			OverallScore:    overall,
			CreativityScore: creativity.Score,
			StructureScore:  structure.Score,
			EngagementScore: engagement.Score,
			Detailed: DetailedReport{
				Creativity: creativity,
				Structure:  structure,
				Engagement: engagement,
			},
			Summary: fmt.Sprintf("Story scored %d/100 overall with creativity: %d, structure: %d, engagement: %d",
				overall, creativity.Score, structure.Score, engagement.Score),
		}

		observe.UpdateSpan(ctx, observe.SpanUpdate{
			Metadata: map[string]any{
				"analysis_complete": true,
				"scoring_algorithm": "weighted_multi_dimensional",
				"score_weights": map[string]float64{
					"creativity": CreativityWeight,
					"structure":  StructureWeight,
					"engagement": EngagementWeight,
				},
				"performance_level": PerformanceLevel(overall),
			},
		})
		return report, nil
	})
}

// scoreStep runs one local scorer in its own observation.
func scoreStep[T any](ctx context.Context, name, story string, score func(string) T, metadata map[string]any) (T, error) {
	return observe.Run(ctx, name, func(context.Context) (T, error) {
		return score(story), nil
	}, observe.WithMetadata(metadata), observe.WithoutInput())
}
