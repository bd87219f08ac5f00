// Package evaluate scores learner responses with simple heuristics:
// exact match for multiple choice, keyword coverage for free response and
// a minimum length for project milestones.
package evaluate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/abhisek/supertutor/internal/course"
)

// MinProjectLength is the number of characters a trimmed project response
// must exceed to count as a milestone.
const MinProjectLength = 20

// Result is the outcome of scoring one response.
type Result struct {
	Correct bool   `json:"correct"`
	Message string `json:"message"`
}

// Evaluate scores response against activity. It never fails; unknown
// activity types are scored incorrect.
func Evaluate(a course.Activity, response string) Result {
	switch a.Type {
	case course.TypeMultipleChoice:
		return multipleChoice(a, response)
	case course.TypeFreeResponse:
		return freeResponse(a, response)
	case course.TypeProject:
		return project(response)
	default:
		return Result{Correct: false, Message: "Activity type not supported yet."}
	}
}

func multipleChoice(a course.Activity, response string) Result {
	if response == a.CorrectAnswer {
		return Result{Correct: true, Message: "Yes! You picked the mastery move."}
	}
	return Result{Correct: false, Message: strings.TrimSpace("Not quite. " + a.Explanation)}
}

// KeywordThreshold is the number of keywords a free response must mention:
// half of them, rounded up.
func KeywordThreshold(n int) int {
	return (n + 1) / 2
}

func freeResponse(a course.Activity, response string) Result {
	normalized := strings.ToLower(response)

	var matched, missing []string
	for _, kw := range a.Keywords {
		if strings.Contains(normalized, strings.ToLower(kw)) {
			matched = append(matched, kw)
		} else {
			missing = append(missing, kw)
		}
	}

	if len(matched) >= KeywordThreshold(len(a.Keywords)) {
		if len(matched) == 0 {
			return Result{Correct: true, Message: "Powerful! Your reflection is logged."}
		}
		return Result{
			Correct: true,
			Message: fmt.Sprintf("Powerful! You highlighted ideas like %s.", strings.Join(firstN(matched, 2), ", ")),
		}
	}
	return Result{
		Correct: false,
		Message: fmt.Sprintf("Try weaving in insights such as %s.", strings.Join(firstN(missing, 2), ", ")),
	}
}

func project(response string) Result {
	if utf8.RuneCountInString(strings.TrimSpace(response)) > MinProjectLength {
		return Result{Correct: true, Message: "Milestone locked! Ready for your next remix mission."}
	}
	return Result{Correct: false, Message: "Describe your milestone with enough detail so future-you can relive it."}
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Interactive reports whether the learner can still change their answer.
// It is false only for a multiple choice that has been answered correctly.
func Interactive(a course.Activity) bool {
	return !a.Locked()
}
