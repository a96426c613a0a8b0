package story_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"GeminiTrace/internal/story"
)

var _ = Describe("scoring", func() {
	DescribeTable("ScoreCreativity",
		func(text string, score int, assessment string) {
			a := story.ScoreCreativity(text)
			Expect(a.Score).To(Equal(score))
			Expect(a.Assessment).To(Equal(assessment))
		},
		Entry("plain prose", "The cat sat on the mat.", 60, "Standard creativity"),
		Entry("one genre term", "A neural link hummed.", 68, "Moderate creativity"),
		Entry("capped at 100", "A Quantum android discovered a wormhole for the first time.", 100, "High creativity"),
	)

	It("counts each creativity term once", func() {
		a := story.ScoreCreativity("plasma plasma plasma")
		Expect(a.SciFiElements).To(Equal(1))
		Expect(a.Score).To(Equal(68))
	})

	It("scores a developed structure", func() {
		text := "It was the longest night the colony had ever known, and nobody slept.\n\n" +
			"The storm came.\n\n" +
			"Finally the sun rose."
		a := story.ScoreStructure(text)
		Expect(a.ParagraphCount).To(Equal(3))
		Expect(a.SentenceCount).To(Equal(3))
		Expect(a.HasClearBeginning).To(BeTrue())
		Expect(a.HasDevelopment).To(BeTrue())
		Expect(a.HasResolution).To(BeTrue())
		Expect(a.Score).To(Equal(100))
	})

	It("measures the opening paragraph in characters", func() {
		// 49 characters, 61 bytes
		opening := "Élodie’s ship — silent — drifted past Ærø’s éclat"
		Expect(len(opening)).To(BeNumerically(">", 50))
		a := story.ScoreStructure(opening)
		Expect(a.HasClearBeginning).To(BeFalse())
		Expect(a.Score).To(Equal(50))
	})

	It("scores a bare structure", func() {
		a := story.ScoreStructure("Short.")
		Expect(a.Score).To(Equal(50))
		Expect(a.HasClearBeginning).To(BeFalse())
	})

	DescribeTable("ScoreEngagement",
		func(text string, score int, level string) {
			a := story.ScoreEngagement(text)
			Expect(a.Score).To(Equal(score))
			Expect(a.EngagementLevel).To(Equal(level))
		},
		Entry("plain prose", "The cat sat on the mat.", 50, "Low"),
		Entry("dialogue only", `"Go," he said.`, 70, "Medium"),
		Entry("dialogue, emotion and description", `"Run!" she said, full of fear and hope in the vast, shimmering hall.`, 86, "High"),
	)

	DescribeTable("ScorePremise",
		func(text string, score int) {
			Expect(story.ScorePremise(text).QualityScore).To(Equal(score))
		},
		Entry("short with nothing", "Hello there", 54),
		Entry("capped at 100", "A scientist must escape the station.", 100),
		Entry("setting only", "On a planet far away", 75),
	)

	It("measures a story", func() {
		m := story.MeasureStory("One two three. Four five six.", 2.5)
		Expect(m.WordCount).To(Equal(6))
		Expect(m.AvgSentenceLength).To(Equal(3.0))
		Expect(m.SpeedScore).To(Equal(75.0))
		Expect(m.LengthScore).To(Equal(50))
		Expect(m.HasDialogue).To(BeFalse())
		Expect(m.ParagraphCount).To(Equal(1))
	})

	It("rewards the target length", func() {
		m := story.MeasureStory(strings.Repeat("word ", 350), 0)
		Expect(m.LengthScore).To(Equal(100))
		Expect(m.SpeedScore).To(Equal(100.0))
	})

	DescribeTable("OverallScore",
		func(c, s, e, want int) {
			Expect(story.OverallScore(c, s, e)).To(Equal(want))
		},
		Entry("baseline", 60, 50, 50, 53),
		Entry("half rounds to even", 65, 50, 50, 54),
		Entry("sum just under a half rounds down", 92, 50, 53, 63),
		Entry("perfect", 100, 100, 100, 100),
	)

	DescribeTable("PerformanceLevel",
		func(score int, want string) {
			Expect(story.PerformanceLevel(score)).To(Equal(want))
		},
		Entry("85", 85, story.LevelExcellent),
		Entry("84", 84, story.LevelGood),
		Entry("70", 70, story.LevelGood),
		Entry("69", 69, story.LevelFair),
		Entry("55", 55, story.LevelFair),
		Entry("54", 54, story.LevelNeedsImprovement),
	)
})
