package store

import (
	"context"
	"time"

	"github.com/abhisek/supertutor/internal/course"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	Purpose string    // exact purpose match (empty = any)
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int
	Timestamp time.Time
	LLMRequestEventData
}

// PurposeUsage aggregates token usage for one purpose label.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int
}

// ModelUsage aggregates token usage for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventRepo provides append access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
}

// LLMEventRepo adds the read side used by the llm inspection commands.
type LLMEventRepo interface {
	EventRepo
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)
	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)
	LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error)
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)
}

// Onboarding holds the learner's onboarding answers.
type Onboarding struct {
	PrimaryGoal string `json:"primaryGoal,omitempty"`
	FocusArea   string `json:"focusArea,omitempty"`
	CustomFocus string `json:"customFocus,omitempty"`
	Complete    bool   `json:"onboardingComplete"`
}

// LearnerDocument is everything persisted for one learner.
type LearnerDocument struct {
	UserID         string          `json:"userId"`
	DisplayName    string          `json:"displayName,omitempty"`
	Courses        []course.Course `json:"courses"`
	ActiveCourseID string          `json:"activeCourseId,omitempty"`
	Onboarding
	UpdatedAt time.Time `json:"updatedAt"`
}

// Patch is a partial update to a LearnerDocument. Nil fields are left
// unchanged; a non-nil Courses slice replaces the stored course set.
type Patch struct {
	DisplayName    *string
	Courses        []course.Course
	ActiveCourseID *string
	Onboarding     *Onboarding
	UpdatedAt      time.Time
}

// Apply merges p into doc.
func (p Patch) Apply(doc *LearnerDocument) {
	if p.DisplayName != nil {
		doc.DisplayName = *p.DisplayName
	}
	if p.Courses != nil {
		doc.Courses = p.Courses
	}
	if p.ActiveCourseID != nil {
		doc.ActiveCourseID = *p.ActiveCourseID
	}
	if p.Onboarding != nil {
		doc.Onboarding = *p.Onboarding
	}
	if !p.UpdatedAt.IsZero() {
		doc.UpdatedAt = p.UpdatedAt
	}
}

// DocumentStore persists one LearnerDocument per user.
type DocumentStore interface {
	// Read returns the user's document, or nil if none exists.
	Read(ctx context.Context, userID string) (*LearnerDocument, error)

	// Write merges patch into the user's document, creating it if needed.
	Write(ctx context.Context, userID string, patch Patch) error
}
