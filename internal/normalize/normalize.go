// Package normalize reconciles untrusted candidate plans with fallback
// content. Every merge is total: any candidate, including nil, yields a
// structurally valid course or module with fresh ids and reset learner
// state.
package normalize

import (
	"slices"
	"strings"
	"time"

	"github.com/abhisek/supertutor/internal/course"
	"github.com/abhisek/supertutor/internal/curriculum"
	"github.com/abhisek/supertutor/internal/ids"
	"github.com/abhisek/supertutor/internal/plan"
)

// Merger merges candidates into fallback content.
type Merger struct {
	newID ids.Generator
}

// New returns a Merger stamping ids from gen. A nil gen uses ids.New.
func New(gen ids.Generator) *Merger {
	if gen == nil {
		gen = ids.New
	}
	return &Merger{newID: gen}
}

// MergeActivities keeps exactly the fallback's activity slots. Each slot
// takes the first candidate of the same type, falling back field by field.
func (m *Merger) MergeActivities(fallback []course.Activity, candidates []plan.Activity) []course.Activity {
	out := make([]course.Activity, len(fallback))
	for i, fb := range fallback {
		a := fb
		if c := firstOfType(candidates, fb.Type); c != nil {
			a.Prompt = pick(c.Prompt, fb.Prompt)
			switch fb.Type {
			case course.TypeMultipleChoice:
				a.Choices, a.CorrectAnswer = mergeChoices(fb, c)
				a.Explanation = pick(c.Explanation, fb.Explanation)
			case course.TypeFreeResponse:
				if kw := cleanList(c.Keywords); len(kw) > 0 {
					a.Keywords = kw
				}
				a.SampleAnswer = pick(c.SampleAnswer, fb.SampleAnswer)
			case course.TypeProject:
				a.Celebration = pick(c.Celebration, fb.Celebration)
			}
		}
		out[i] = m.reset(a)
	}
	return out
}

// mergeChoices accepts the candidate's choices only together with a
// correct answer that is one of them.
func mergeChoices(fb course.Activity, c *plan.Activity) ([]string, string) {
	choices := cleanList(c.Choices)
	answer := strings.TrimSpace(c.CorrectAnswer)
	if len(choices) >= 2 && slices.Contains(choices, answer) {
		return choices, answer
	}
	return slices.Clone(fb.Choices), fb.CorrectAnswer
}

// MergeModule merges a candidate module into fallback and stamps stage.
func (m *Merger) MergeModule(fallback course.Module, candidate *plan.Module, stage int) course.Module {
	var title, focus string
	var acts []plan.Activity
	if candidate != nil {
		title, focus, acts = candidate.Title, candidate.Focus, candidate.Activities
	}
	return course.Module{
		ID:         m.newID(),
		Title:      pick(title, fallback.Title),
		Focus:      pick(focus, fallback.Focus),
		Stage:      stage,
		Activities: m.MergeActivities(fallback.Activities, acts),
	}
}

// MergeCourse merges a whole-course candidate into fallback. Candidate
// modules are matched by position, then by title.
func (m *Merger) MergeCourse(fallback course.Course, candidate *plan.Course, now time.Time) course.Course {
	if candidate == nil {
		candidate = &plan.Course{}
	}

	modules := make([]course.Module, len(fallback.Modules))
	for i, fm := range fallback.Modules {
		modules[i] = m.MergeModule(fm, matchModule(candidate.Modules, i, fm.Title), i+1)
	}

	return course.Course{
		ID:          m.newID(),
		Subject:     curriculum.TitleCase(fallback.Subject),
		Title:       pick(candidate.Title, fallback.Title),
		Description: pick(candidate.Description, fallback.Description),
		CreatedAt:   now,
		Mode:        fallback.Mode,
		Modules:     modules,
	}
}

// MergeBlueprint merges a candidate narrative frame into fallback.
func (m *Merger) MergeBlueprint(fallback course.Blueprint, candidate *plan.Blueprint) course.Blueprint {
	out := course.Blueprint{
		Voice:         fallback.Voice,
		StoryArc:      slices.Clone(fallback.StoryArc),
		GrowthPillars: slices.Clone(fallback.GrowthPillars),
	}
	if candidate == nil {
		return out
	}
	out.Voice = pick(candidate.Voice, fallback.Voice)
	if arc := cleanList(candidate.StoryArc); len(arc) > 0 {
		out.StoryArc = arc
	}
	if pillars := cleanList(candidate.GrowthPillars); len(pillars) > 0 {
		out.GrowthPillars = pillars
	}
	return out
}

// MergeStudio builds a staged course: blueprint plus the opening module.
// The next stage to generate is 2.
func (m *Merger) MergeStudio(subject string, fallback curriculum.StudioPlan, candidate *plan.Course, now time.Time) course.Course {
	if candidate == nil {
		candidate = &plan.Course{}
	}
	bp := m.MergeBlueprint(fallback.Blueprint, candidate.Blueprint)
	opening := m.MergeModule(fallback.OpeningModule, candidate.OpeningModule, 1)
	return course.Course{
		ID:          m.newID(),
		Subject:     curriculum.TitleCase(subject),
		Title:       pick(candidate.Title, fallback.Title),
		Description: pick(candidate.Description, fallback.Description),
		CreatedAt:   now,
		Mode:        course.ModeStaged,
		Modules:     []course.Module{opening},
		Blueprint:   &bp,
		NextStage:   2,
	}
}

func (m *Merger) reset(a course.Activity) course.Activity {
	a.ID = m.newID()
	a.Status = course.StatusPending
	a.Attempts = 0
	a.LastFeedback = ""
	a.History = []course.Attempt{}
	return a
}

func matchModule(candidates []plan.Module, index int, title string) *plan.Module {
	if index < len(candidates) && !emptyModule(candidates[index]) {
		return &candidates[index]
	}
	for i := range candidates {
		if title != "" && candidates[i].Title == title {
			return &candidates[i]
		}
	}
	return nil
}

func emptyModule(m plan.Module) bool {
	return m.Title == "" && m.Focus == "" && len(m.Activities) == 0
}

func firstOfType(candidates []plan.Activity, t course.ActivityType) *plan.Activity {
	for i := range candidates {
		if course.ActivityType(candidates[i].Type) == t {
			return &candidates[i]
		}
	}
	return nil
}

func pick(candidate, fallback string) string {
	if s := strings.TrimSpace(candidate); s != "" {
		return s
	}
	return fallback
}

// cleanList trims entries and drops blanks and duplicates, keeping order.
func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}
