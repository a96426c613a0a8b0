package story

import (
	"math"
	"strings"
	"unicode/utf8"
)

var (
	sciFiTerms       = []string{"quantum", "neural", "hologram", "plasma", "cybernetic", "android", "telepathic", "wormhole"}
	noveltyPhrases   = []string{"never seen", "first time", "discovered", "breakthrough", "revolutionary"}
	resolutionWords  = []string{"finally", "realized", "understood", "decided", "concluded"}
	emotionWords     = []string{"fear", "hope", "excitement", "wonder", "relief", "tension", "surprise"}
	descriptiveWords = []string{"shimmering", "vast", "mysterious", "gleaming", "towering", "ethereal"}

	premiseCharacters = []string{"scientist", "engineer", "pilot", "commander", "doctor", "researcher"}
	premiseSettings   = []string{"space", "planet", "station", "galaxy", "future", "colony"}
	premiseConflicts  = []string{"discover", "must", "face", "fight", "survive", "escape"}
)

// Score weights for the overall rating.
const (
	CreativityWeight = 0.3
	StructureWeight  = 0.4
	EngagementWeight = 0.3
)

// Performance levels.
const (
	LevelExcellent        = "excellent"
	LevelGood             = "good"
	LevelFair             = "fair"
	LevelNeedsImprovement = "needs_improvement"
)

// PremiseQuality rates a story premise.
type PremiseQuality struct {
	WordCount    int  `json:"word_count"`
	HasCharacter bool `json:"has_character"`
	HasSetting   bool `json:"has_setting"`
	HasConflict  bool `json:"has_conflict"`
	QualityScore int  `json:"quality_score"`
}

// CreativityAnalysis counts genre terms and novelty phrases.
type CreativityAnalysis struct {
	Score          int    `json:"score"`
	SciFiElements  int    `json:"sci_fi_elements_count"`
	UniqueConcepts int    `json:"unique_concepts_count"`
	Assessment     string `json:"assessment"`
}

// StructureAnalysis checks for a beginning, development and resolution.
type StructureAnalysis struct {
	Score             int  `json:"score"`
	ParagraphCount    int  `json:"paragraph_count"`
	SentenceCount     int  `json:"sentence_count"`
	HasClearBeginning bool `json:"has_clear_beginning"`
	HasDevelopment    bool `json:"has_development"`
	HasResolution     bool `json:"has_resolution"`
}

// EngagementAnalysis looks at dialogue and emotional or descriptive language.
type EngagementAnalysis struct {
	Score               int    `json:"score"`
	HasDialogue         bool   `json:"has_dialogue"`
	EmotionalWords      int    `json:"emotional_words_count"`
	DescriptiveElements int    `json:"descriptive_elements"`
	EngagementLevel     string `json:"engagement_level"`
}

// StoryMetrics describes a written story and how long it took.
type StoryMetrics struct {
	WordCount             int     `json:"word_count"`
	GenerationTimeSeconds float64 `json:"generation_time_seconds"`
	ParagraphCount        int     `json:"paragraph_count"`
	HasDialogue           bool    `json:"has_dialogue"`
	AvgSentenceLength     float64 `json:"avg_sentence_length"`
	LengthScore           int     `json:"length_score"`
	SpeedScore            float64 `json:"speed_score"`
}

// ScorePremise rates a premise by length and by mentions of a character,
// a setting and a conflict.
func ScorePremise(premise string) PremiseQuality {
	lower := strings.ToLower(premise)
	q := PremiseQuality{
		WordCount:    wordCount(premise),
		HasCharacter: containsAny(lower, premiseCharacters),
		HasSetting:   containsAny(lower, premiseSettings),
		HasConflict:  containsAny(lower, premiseConflicts),
	}

	score := 50 + q.WordCount*2
	if q.HasCharacter {
		score += 15
	}
	if q.HasSetting {
		score += 15
	}
	if q.HasConflict {
		score += 20
	}
	q.QualityScore = min(100, score)
	return q
}

// MeasureStory computes size and pacing metrics for a story produced in elapsedSeconds.
func MeasureStory(story string, elapsedSeconds float64) StoryMetrics {
	words := wordCount(story)
	m := StoryMetrics{
		WordCount:             words,
		GenerationTimeSeconds: roundTo(elapsedSeconds, 2),
		ParagraphCount:        len(paragraphs(story)),
		HasDialogue:           hasDialogue(story),
		AvgSentenceLength:     roundTo(float64(words)/float64(max(1, sentenceCount(story))), 1),
		SpeedScore:            math.Max(0, 100-elapsedSeconds*10),
	}
	if withinTargetLength(words) {
		m.LengthScore = 100
	} else {
		m.LengthScore = max(50, 100-abs(350-words))
	}
	return m
}

// ScoreCreativity starts at 60 and adds 8 per genre term and 10 per novelty phrase.
func ScoreCreativity(story string) CreativityAnalysis {
	lower := strings.ToLower(story)
	a := CreativityAnalysis{
		SciFiElements:  countAny(lower, sciFiTerms),
		UniqueConcepts: countAny(lower, noveltyPhrases),
	}
	a.Score = min(100, 60+a.SciFiElements*8+a.UniqueConcepts*10)

	switch {
	case a.Score > 80:
		a.Assessment = "High creativity"
	case a.Score > 60:
		a.Assessment = "Moderate creativity"
	default:
		a.Assessment = "Standard creativity"
	}
	return a
}

// ScoreStructure starts at 50 and rewards an opening paragraph over 50
// characters, at least three paragraphs and resolution vocabulary.
func ScoreStructure(story string) StructureAnalysis {
	paras := paragraphs(story)
	a := StructureAnalysis{
		ParagraphCount:    len(paras),
		SentenceCount:     sentenceCount(story),
		HasClearBeginning: len(paras) > 0 && utf8.RuneCountInString(paras[0]) > 50,
		HasDevelopment:    len(paras) >= 3,
		HasResolution:     containsAny(strings.ToLower(story), resolutionWords),
	}

	score := 50
	if a.HasClearBeginning {
		score += 15
	}
	if a.HasDevelopment {
		score += 20
	}
	if a.HasResolution {
		score += 15
	}
	a.Score = min(100, score)
	return a
}

// ScoreEngagement starts at 50 and rewards dialogue, emotional words and
// descriptive adjectives.
func ScoreEngagement(story string) EngagementAnalysis {
	lower := strings.ToLower(story)
	a := EngagementAnalysis{
		HasDialogue:         hasDialogue(story),
		EmotionalWords:      countAny(lower, emotionWords),
		DescriptiveElements: countAny(lower, descriptiveWords),
	}

	score := 50
	if a.HasDialogue {
		score += 20
	}
	score += min(20, a.EmotionalWords*5)
	score += min(10, a.DescriptiveElements*3)
	a.Score = min(100, score)

	switch {
	case a.Score > 80:
		a.EngagementLevel = "High"
	case a.Score > 60:
		a.EngagementLevel = "Medium"
	default:
		a.EngagementLevel = "Low"
	}
	return a
}

// OverallScore weights the three dimensions in floating point, rounding
// halves to even. Sums such as 63.49999999999999 therefore round down.
func OverallScore(creativity, structure, engagement int) int {
	weighted := float64(creativity)*CreativityWeight +
		float64(structure)*StructureWeight +
		float64(engagement)*EngagementWeight
	return int(math.RoundToEven(weighted))
}

// PerformanceLevel buckets an overall score.
func PerformanceLevel(score int) string {
	switch {
	case score >= 85:
		return LevelExcellent
	case score >= 70:
		return LevelGood
	case score >= 55:
		return LevelFair
	default:
		return LevelNeedsImprovement
	}
}

func withinTargetLength(words int) bool {
	return words >= 300 && words <= 400
}

func paragraphs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func sentenceCount(s string) int {
	return strings.Count(s, ".") + strings.Count(s, "!") + strings.Count(s, "?")
}

func hasDialogue(s string) bool {
	return strings.ContainsAny(s, `"'`)
}

// countAny returns how many of terms occur in s at least once.
func countAny(s string, terms []string) int {
	n := 0
	for _, t := range terms {
		if strings.Contains(s, t) {
			n++
		}
	}
	return n
}

func containsAny(s string, terms []string) bool {
	return countAny(s, terms) > 0
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
