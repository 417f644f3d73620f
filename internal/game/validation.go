package game

import (
	"fmt"
	"strings"

	"github.com/LeonanFr/FindTheBug/internal/models"
)

// ValidationResult carries per-question feedback for the game master. The
// system never judges the solution itself; the master's verdict arrives
// through FinalizeSession.
type ValidationResult struct {
	FeedbackPerQuestion []QuestionFeedback `json:"feedback_per_question"`
	GeneralMessage      string             `json:"general_message"`
}

type QuestionFeedback struct {
	Question   string `json:"question"`
	Submitted  string `json:"submitted"`
	Expected   string `json:"expected"`
	Suggestion string `json:"suggestion"`
}

const (
	suggestionLikelyMatch  = "likely match"
	suggestionManualReview = "manual review required"

	placeholderNoAnswer   = "[no answer]"
	placeholderNoExpected = "[expected answer not defined]"
	placeholderNoQuestion = "[no matching question]"
)

type ValidationSystem struct{}

func NewValidationSystem() *ValidationSystem {
	return &ValidationSystem{}
}

// SuggestMatch reports whether the submitted answer plausibly matches the
// expected one: case-folded, either string a substring of the other. A hint
// only, never a verdict.
func (s *ValidationSystem) SuggestMatch(submitted, expected string) bool {
	a := strings.ToLower(submitted)
	b := strings.ToLower(expected)
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// PrepareForMaster builds one feedback row per question index, padding with
// placeholders when answers and questions differ in length.
func (s *ValidationSystem) PrepareForMaster(answers []string, bugCase *models.Case) ValidationResult {
	questions := bugCase.SolutionQuestions
	expected := bugCase.CorrectAnswers

	n := len(questions)
	if len(answers) > n {
		n = len(answers)
	}

	result := ValidationResult{
		GeneralMessage: "awaiting the game master's decision",
	}

	for i := 0; i < n; i++ {
		fb := QuestionFeedback{
			Question:  placeholderNoQuestion,
			Submitted: placeholderNoAnswer,
			Expected:  placeholderNoExpected,
		}
		if i < len(questions) {
			fb.Question = questions[i]
		}
		if i < len(answers) {
			fb.Submitted = answers[i]
		}
		if i < len(expected) {
			fb.Expected = expected[i]
		}

		if s.SuggestMatch(fb.Submitted, fb.Expected) {
			fb.Suggestion = suggestionLikelyMatch
		} else {
			fb.Suggestion = suggestionManualReview
		}

		result.FeedbackPerQuestion = append(result.FeedbackPerQuestion, fb)
	}

	return result
}

func (f QuestionFeedback) String() string {
	return fmt.Sprintf("question: %s\nteam answer: %s\nexpected: %s\nsystem suggestion: %s",
		f.Question, f.Submitted, f.Expected, f.Suggestion)
}
