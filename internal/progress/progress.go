// Package progress derives learner statistics from course state. Nothing
// here is stored; every figure is recomputed from activities and attempts.
package progress

import (
	"math"

	"github.com/abhisek/supertutor/internal/course"
)

// CourseProgress summarizes one course.
type CourseProgress struct {
	TotalActivities     int    `json:"totalActivities"`
	MasteredActivities  int    `json:"masteredActivities"`
	AttemptedActivities int    `json:"attemptedActivities"`
	CorrectAttempts     int    `json:"correctAttempts"`
	IncorrectAttempts   int    `json:"incorrectAttempts"`
	Completion          int    `json:"completion"`
	Level               string `json:"level"`
}

// Aggregate computes progress for c. A nil course or a course without
// activities yields zero progress.
func Aggregate(c *course.Course) CourseProgress {
	var p CourseProgress
	if c != nil {
		for _, m := range c.Modules {
			for _, a := range m.Activities {
				p.TotalActivities++
				if a.Status == course.StatusCorrect {
					p.MasteredActivities++
				}
				if a.Status != course.StatusPending && a.Status != "" {
					p.AttemptedActivities++
				}
				for _, at := range a.History {
					if at.Correct {
						p.CorrectAttempts++
					} else {
						p.IncorrectAttempts++
					}
				}
			}
		}
	}
	p.Completion = Completion(p.MasteredActivities, p.TotalActivities)
	p.Level = Level(p.Completion)
	return p
}

// Completion returns round(100*mastered/total), or 0 when total is 0.
func Completion(mastered, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(mastered) / float64(total)))
}

// Level names the badge for a completion percentage.
func Level(completion int) string {
	switch {
	case completion >= 80:
		return "Trailblazer"
	case completion >= 50:
		return "Strategist"
	case completion >= 20:
		return "Navigator"
	default:
		return "Explorer"
	}
}

// CourseSummary is one row of the learner profile.
type CourseSummary struct {
	CourseID string `json:"courseId"`
	Subject  string `json:"subject"`
	Title    string `json:"title"`
	Active   bool   `json:"active"`
	CourseProgress
}

// Profile aggregates every course a learner owns.
type Profile struct {
	Courses            []CourseSummary `json:"courses"`
	TotalActivities    int             `json:"totalActivities"`
	MasteredActivities int             `json:"masteredActivities"`
	Completion         int             `json:"completion"`
	Level              string          `json:"level"`
}

// BuildProfile summarizes courses, marking activeID as active.
func BuildProfile(courses []course.Course, activeID string) Profile {
	prof := Profile{Courses: make([]CourseSummary, 0, len(courses))}
	for i := range courses {
		c := &courses[i]
		p := Aggregate(c)
		prof.Courses = append(prof.Courses, CourseSummary{
			CourseID:       c.ID,
			Subject:        c.Subject,
			Title:          c.Title,
			Active:         c.ID == activeID,
			CourseProgress: p,
		})
		prof.TotalActivities += p.TotalActivities
		prof.MasteredActivities += p.MasteredActivities
	}
	prof.Completion = Completion(prof.MasteredActivities, prof.TotalActivities)
	prof.Level = Level(prof.Completion)
	return prof
}
