package session

import (
	"time"

	"github.com/abhisek/supertutor/internal/course"
	"github.com/abhisek/supertutor/internal/evaluate"
	"github.com/abhisek/supertutor/internal/progress"
	"github.com/abhisek/supertutor/internal/store"
)

// State is everything a learner session owns. Only the Controller mutates
// it; callers see copies.
type State struct {
	Courses        []course.Course
	ActiveCourseID string

	// Drafts holds in-progress response text per activity id. Drafts are
	// never persisted and are cleared whenever the active course changes.
	Drafts map[string]string

	Onboarding store.Onboarding
}

func (s *State) findCourse(id string) *course.Course {
	for i := range s.Courses {
		if s.Courses[i].ID == id {
			return &s.Courses[i]
		}
	}
	return nil
}

func (s *State) resetDrafts() {
	s.Drafts = make(map[string]string)
}

// Submission is the outcome of SubmitAnswer.
type Submission struct {
	CourseID string                  `json:"courseId"`
	ModuleID string                  `json:"moduleId"`
	Result   evaluate.Result         `json:"result"`
	Activity course.Activity         `json:"activity"`
	Progress progress.CourseProgress `json:"progress"`

	// Interactive is false once the activity stops accepting answers.
	Interactive bool `json:"interactive"`
}

// SyncStatus describes the persistence state of the session.
type SyncStatus struct {
	// LocalOnly is true when there is no signed-in user or no store;
	// nothing is ever written.
	LocalOnly bool `json:"localOnly"`
	Saving    bool `json:"saving"`
	// Message is the transient notice shown after a failed write. It is
	// cleared by the next successful write.
	Message      string     `json:"message,omitempty"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
}

// Slot keys for in-flight generations.
const courseSlot = "course"

func stageSlot(courseID string) string {
	return "stage:" + courseID
}
