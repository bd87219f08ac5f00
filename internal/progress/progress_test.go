package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abhisek/supertutor/internal/course"
)

func attempts(results ...bool) []course.Attempt {
	out := make([]course.Attempt, len(results))
	for i, r := range results {
		out[i] = course.Attempt{Correct: r}
	}
	return out
}

func TestAggregate(t *testing.T) {
	c := &course.Course{Modules: []course.Module{{
		Activities: []course.Activity{
			{Status: course.StatusCorrect, Attempts: 3, History: attempts(false, false, true)},
			{Status: course.StatusCorrect, Attempts: 1, History: attempts(true)},
			{Status: course.StatusPending},
		},
	}}}

	p := Aggregate(c)
	assert.Equal(t, 3, p.TotalActivities)
	assert.Equal(t, 2, p.MasteredActivities)
	assert.Equal(t, 2, p.AttemptedActivities)
	assert.Equal(t, 2, p.CorrectAttempts)
	assert.Equal(t, 2, p.IncorrectAttempts)
	assert.Equal(t, 67, p.Completion)
	assert.Equal(t, "Strategist", p.Level)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Equal(t, 0, Aggregate(nil).Completion)
	assert.Equal(t, "Explorer", Aggregate(nil).Level)

	p := Aggregate(&course.Course{Modules: []course.Module{{}}})
	assert.Equal(t, CourseProgress{Level: "Explorer"}, p)
}

func TestAggregate_IncorrectCountsAsAttempted(t *testing.T) {
	c := &course.Course{Modules: []course.Module{
		{Activities: []course.Activity{{Status: course.StatusIncorrect, History: attempts(false)}}},
		{Activities: []course.Activity{{Status: course.StatusPending}}},
	}}
	p := Aggregate(c)
	assert.Equal(t, 1, p.AttemptedActivities)
	assert.Equal(t, 0, p.MasteredActivities)
	assert.Equal(t, 1, p.IncorrectAttempts)
	assert.Equal(t, 0, p.Completion)
}

func TestCompletion(t *testing.T) {
	tests := []struct {
		mastered, total, want int
	}{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{1, 8, 13}, // 12.5 rounds half away from zero
		{9, 9, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Completion(tt.mastered, tt.total), "%d/%d", tt.mastered, tt.total)
	}
}

func TestLevel(t *testing.T) {
	tests := map[int]string{
		0: "Explorer", 19: "Explorer", 20: "Navigator", 49: "Navigator",
		50: "Strategist", 79: "Strategist", 80: "Trailblazer", 100: "Trailblazer",
	}
	for completion, want := range tests {
		assert.Equal(t, want, Level(completion), "completion %d", completion)
	}
}

func TestBuildProfile(t *testing.T) {
	courses := []course.Course{
		{ID: "c1", Subject: "Chess", Modules: []course.Module{{Activities: []course.Activity{
			{Status: course.StatusCorrect}, {Status: course.StatusPending},
		}}}},
		{ID: "c2", Subject: "Jazz", Modules: []course.Module{{Activities: []course.Activity{
			{Status: course.StatusCorrect}, {Status: course.StatusCorrect},
		}}}},
	}
	prof := BuildProfile(courses, "c2")
	assert.Len(t, prof.Courses, 2)
	assert.False(t, prof.Courses[0].Active)
	assert.True(t, prof.Courses[1].Active)
	assert.Equal(t, 50, prof.Courses[0].Completion)
	assert.Equal(t, 100, prof.Courses[1].Completion)
	assert.Equal(t, 4, prof.TotalActivities)
	assert.Equal(t, 3, prof.MasteredActivities)
	assert.Equal(t, 75, prof.Completion)
	assert.Equal(t, "Strategist", prof.Level)
}

func TestAggregate_ResubmittedCorrectAnswer(t *testing.T) {
	// A free response can be resubmitted after it is correct, so one
	// activity may carry several correct attempts.
	c := &course.Course{Modules: []course.Module{{
		Activities: []course.Activity{
			{Type: course.TypeMultipleChoice, Status: course.StatusCorrect, Attempts: 3, History: attempts(false, false, true)},
			{Type: course.TypeFreeResponse, Status: course.StatusCorrect, Attempts: 2, History: attempts(true, true)},
			{Type: course.TypeProject, Status: course.StatusPending},
		},
	}}}

	p := Aggregate(c)
	assert.Equal(t, 67, p.Completion)
	assert.Equal(t, 3, p.CorrectAttempts)
	assert.Equal(t, 2, p.IncorrectAttempts)
}
