package quality

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/iago/content-orchestrator-back/internal/policy"
)

var ErrQualityRejected = errors.New("article failed quality checks")

const (
	minArticleScore = 0.50
	minArticleWords = 80
)

type ArticleDraft struct {
	Markdown          string
	Language          string
	Tone              string
	TargetWords       int
	IncludeIntro      bool
	IncludeConclusion bool
	IncludeFAQ        bool
}

type ArticleCheck struct {
	Title     string
	Body      string
	WordCount int
	Score     float64
	Corrected bool
	Issues    []string
}

type ArticleValidator struct{}

func NewArticleValidator() *ArticleValidator {
	return &ArticleValidator{}
}

// Validate scores a generated markdown article, extracts its title and
// masks personal data. Drafts below the score floor are rejected.
func (v *ArticleValidator) Validate(draft ArticleDraft) (ArticleCheck, error) {
	markdown := strings.TrimSpace(stripCodeFence(draft.Markdown))
	if markdown == "" {
		return ArticleCheck{}, fmt.Errorf("%w: empty article", ErrQualityRejected)
	}

	check := ArticleCheck{}
	masked := policy.MaskPIIString(markdown)
	if masked != markdown {
		markdown = masked
		check.Corrected = true
	}

	check.Title, check.Body = SplitTitle(markdown)
	check.WordCount = CountWords(check.Body)
	if check.WordCount < minArticleWords {
		return ArticleCheck{}, fmt.Errorf("%w: only %d words", ErrQualityRejected, check.WordCount)
	}

	penalty := 0.0
	addIssue := func(cost float64, issue string) {
		penalty += cost
		check.Issues = append(check.Issues, issue)
	}

	if check.Title == "" {
		addIssue(0.05, "missing_title")
	}
	if draft.TargetWords > 0 {
		ratio := float64(check.WordCount) / float64(draft.TargetWords)
		switch {
		case ratio < 0.5:
			addIssue(0.30, "far_below_word_count")
		case ratio < 0.75:
			addIssue(0.12, "below_word_count")
		case ratio > 1.8:
			addIssue(0.08, "above_word_count")
		}
	}

	headings := sectionHeadings(check.Body)
	if len(headings) < 2 {
		addIssue(0.15, "few_sections")
	}
	if draft.IncludeFAQ && !hasHeadingLike(headings, "faq", "frequently asked", "perguntas frequentes", "preguntas frecuentes") {
		addIssue(0.10, "missing_faq")
	}
	if draft.IncludeConclusion && !hasHeadingLike(headings, "conclusion", "final thoughts", "wrapping up", "conclus", "takeaway") {
		addIssue(0.05, "missing_conclusion")
	}
	if toneMismatch(check.Body, strings.ToLower(strings.TrimSpace(draft.Tone))) {
		addIssue(0.07, "tone_mismatch")
	}
	if languageMismatch(check.Body, strings.ToLower(strings.TrimSpace(draft.Language))) {
		addIssue(0.20, "language_mismatch")
	}

	check.Score = round2(clamp01(1.0 - penalty))
	if check.Score < minArticleScore {
		return ArticleCheck{}, fmt.Errorf("%w: low article quality score %.2f (%s)", ErrQualityRejected, check.Score, strings.Join(check.Issues, ","))
	}
	return check, nil
}

// SplitTitle takes the first level-one heading as the title and returns
// the remaining markdown as body.
func SplitTitle(markdown string) (string, string) {
	lines := strings.Split(markdown, "\n")
	for index, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "# ") {
			title := strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
			body := strings.TrimSpace(strings.Join(lines[index+1:], "\n"))
			return title, body
		}
		break
	}
	return "", strings.TrimSpace(markdown)
}

func CountWords(markdown string) int {
	count := 0
	for _, field := range strings.Fields(markdown) {
		if strings.Trim(field, "#*-_>`|") != "" {
			count++
		}
	}
	return count
}

func sectionHeadings(markdown string) []string {
	headings := make([]string, 0)
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") || strings.HasPrefix(trimmed, "### ") {
			headings = append(headings, strings.ToLower(strings.TrimLeft(trimmed, "# ")))
		}
	}
	return headings
}

func hasHeadingLike(headings []string, needles ...string) bool {
	for _, heading := range headings {
		for _, needle := range needles {
			if strings.Contains(heading, needle) {
				return true
			}
		}
	}
	return false
}

func stripCodeFence(value string) string {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```markdown")
	trimmed = strings.TrimPrefix(trimmed, "```md")
	trimmed = strings.TrimPrefix(trimmed, "```")
	return strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
}

func toneMismatch(value string, tone string) bool {
	if tone != "professional" && tone != "formal" && tone != "authoritative" {
		return false
	}
	lowered := " " + strings.ToLower(value) + " "
	hits := 0
	for _, slang := range []string{" gonna ", " wanna ", " lol ", " omg ", " dude ", " bro "} {
		if strings.Contains(lowered, slang) {
			hits++
		}
	}
	return hits >= 2
}

func languageMismatch(value string, language string) bool {
	lowered := " " + strings.ToLower(strings.Join(strings.Fields(value), " ")) + " "
	switch {
	case strings.HasPrefix(language, "english") || language == "en":
		return dominatedBy(lowered, ptMarkers, enMarkers) || dominatedBy(lowered, esMarkers, enMarkers)
	case strings.HasPrefix(language, "portug") || language == "pt":
		return dominatedBy(lowered, enMarkers, ptMarkers)
	case strings.HasPrefix(language, "spanish") || strings.HasPrefix(language, "espa") || language == "es":
		return dominatedBy(lowered, enMarkers, esMarkers)
	default:
		return false
	}
}

func dominatedBy(value string, foreign []string, native []string) bool {
	return countMarkers(value, foreign) > 2*countMarkers(value, native)+2
}

func countMarkers(value string, markers []string) int {
	count := 0
	for _, marker := range markers {
		count += strings.Count(value, marker)
	}
	return count
}

var enMarkers = []string{" the ", " and ", " you ", " with ", " for ", " this "}

var ptMarkers = []string{" você ", " para ", " com ", " não ", " uma ", " são "}

var esMarkers = []string{" usted ", " para ", " con ", " una ", " los ", " las "}

func clamp01(value float64) float64 {
	return math.Max(0, math.Min(1, value))
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
