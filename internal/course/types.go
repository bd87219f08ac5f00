// Package course defines the learner-facing course model: courses made of
// modules, modules made of typed activities, and the append-only attempt
// history recorded against each activity.
package course

import "time"

// ActivityType discriminates the closed set of activity variants.
type ActivityType string

const (
	TypeMultipleChoice ActivityType = "multipleChoice"
	TypeFreeResponse   ActivityType = "freeResponse"
	TypeProject        ActivityType = "project"
)

// ActivityTypes lists every activity type in template order.
var ActivityTypes = []ActivityType{TypeMultipleChoice, TypeFreeResponse, TypeProject}

// Valid reports whether t is one of the known activity types.
func (t ActivityType) Valid() bool {
	switch t {
	case TypeMultipleChoice, TypeFreeResponse, TypeProject:
		return true
	default:
		return false
	}
}

// Status is the learner's standing on a single activity.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCorrect   Status = "correct"
	StatusIncorrect Status = "incorrect"
)

// Mode records how a course was produced.
type Mode string

const (
	// ModeGenerative builds the whole three-module course in one generation.
	ModeGenerative Mode = "generative"
	// ModeStaged generates a blueprint and the opening module, then one
	// module per stage as the learner advances.
	ModeStaged Mode = "staged"
	// ModeCurated picks a course from the fixed curriculum bank.
	ModeCurated Mode = "curated"
)

// ParseMode maps a user-supplied string to a Mode. Empty means generative.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case "", ModeGenerative:
		return ModeGenerative, true
	case ModeStaged, ModeCurated:
		return Mode(s), true
	default:
		return "", false
	}
}

// Attempt is one submitted response. Attempts are append-only.
type Attempt struct {
	ID          string    `json:"id"`
	SubmittedAt time.Time `json:"submittedAt"`
	Response    string    `json:"response"`
	Correct     bool      `json:"correct"`
}

// Activity is a single learner task. Fields beyond the common block are
// populated according to Type.
type Activity struct {
	ID           string       `json:"id"`
	Type         ActivityType `json:"type"`
	Prompt       string       `json:"prompt"`
	Status       Status       `json:"status"`
	Attempts     int          `json:"attempts"`
	LastFeedback string       `json:"lastFeedback,omitempty"`
	History      []Attempt    `json:"history"`

	// multipleChoice
	Choices       []string `json:"choices,omitempty"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`

	// freeResponse
	Keywords     []string `json:"keywords,omitempty"`
	SampleAnswer string   `json:"sampleAnswer,omitempty"`

	// project
	Celebration string `json:"celebration,omitempty"`
}

// Locked reports whether the activity no longer accepts new selections.
// A multiple choice answered correctly is locked; every other activity can
// be retried.
func (a *Activity) Locked() bool {
	return a.Type == TypeMultipleChoice && a.Status == StatusCorrect
}

// Module is one stage of a course.
type Module struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Focus      string     `json:"focus"`
	Stage      int        `json:"stage,omitempty"`
	Activities []Activity `json:"activities"`
}

// Blueprint carries the narrative frame used by staged generation.
type Blueprint struct {
	Voice         string   `json:"voice"`
	StoryArc      []string `json:"storyArc"`
	GrowthPillars []string `json:"growthPillars"`
}

// HistoryEntry is a course-level record of a submission, fed back into
// staged generation so later modules build on the learner's responses.
type HistoryEntry struct {
	ID              string       `json:"id"`
	ModuleID        string       `json:"moduleId"`
	ActivityID      string       `json:"activityId"`
	ModuleStage     int          `json:"moduleStage"`
	ActivityType    ActivityType `json:"activityType"`
	Prompt          string       `json:"prompt"`
	Response        string       `json:"response"`
	ResponseSummary string       `json:"responseSummary,omitempty"`
	Correct         bool         `json:"correct"`
	SubmittedAt     time.Time    `json:"submittedAt"`
}

// Course is a learner's course.
type Course struct {
	ID          string         `json:"id"`
	Subject     string         `json:"subject"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"createdAt"`
	Mode        Mode           `json:"mode,omitempty"`
	Modules     []Module       `json:"modules"`
	Blueprint   *Blueprint     `json:"blueprint,omitempty"`
	History     []HistoryEntry `json:"history,omitempty"`
	NextStage   int            `json:"nextStage,omitempty"`
}
