package normalize

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/supertutor/internal/course"
	"github.com/abhisek/supertutor/internal/curriculum"
	"github.com/abhisek/supertutor/internal/ids"
	"github.com/abhisek/supertutor/internal/plan"
)

var now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func fallbackModule() course.Module {
	return curriculum.NewBuilder(ids.Sequence("fb")).BuildModule("chess", 0)
}

// toPlan converts a merged module back into candidate form.
func toPlan(m course.Module) *plan.Module {
	out := &plan.Module{Title: m.Title, Focus: m.Focus}
	for _, a := range m.Activities {
		out.Activities = append(out.Activities, plan.Activity{
			Type:          string(a.Type),
			Prompt:        a.Prompt,
			Choices:       a.Choices,
			CorrectAnswer: a.CorrectAnswer,
			Explanation:   a.Explanation,
			Keywords:      a.Keywords,
			SampleAnswer:  a.SampleAnswer,
			Celebration:   a.Celebration,
		})
	}
	return out
}

func stripIDs(m course.Module) course.Module {
	m.ID = ""
	for i := range m.Activities {
		m.Activities[i].ID = ""
	}
	return m
}

func assertValidModule(t *testing.T, m course.Module) {
	t.Helper()
	require.Len(t, m.Activities, 3)
	for i, a := range m.Activities {
		assert.Equal(t, course.ActivityTypes[i], a.Type)
		assert.NotEmpty(t, a.ID)
		assert.NotEmpty(t, a.Prompt)
		assert.Equal(t, course.StatusPending, a.Status)
		assert.Zero(t, a.Attempts)
		assert.Empty(t, a.History)
		assert.Empty(t, a.LastFeedback)
		if a.Type == course.TypeMultipleChoice {
			assert.GreaterOrEqual(t, len(a.Choices), 2)
			assert.Contains(t, a.Choices, a.CorrectAnswer)
		}
		if a.Type == course.TypeFreeResponse {
			assert.NotEmpty(t, a.Keywords)
		}
	}
}

func TestMergeModule_Totality(t *testing.T) {
	m := New(ids.Sequence("id"))
	fb := fallbackModule()

	tests := []struct {
		name      string
		candidate *plan.Module
	}{
		{"nil", nil},
		{"empty", &plan.Module{}},
		{"only title", &plan.Module{Title: "Openings"}},
		{"unknown types", &plan.Module{Activities: []plan.Activity{{Type: "essay", Prompt: "x"}}}},
		{"blank fields", &plan.Module{Title: "   ", Activities: []plan.Activity{
			{Type: "multipleChoice", Prompt: "  ", Choices: []string{"", " "}},
			{Type: "freeResponse", Keywords: []string{"", "  "}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.MergeModule(fb, tt.candidate, 1)
			assertValidModule(t, got)
			assert.Equal(t, 1, got.Stage)
			if tt.name != "only title" {
				assert.Equal(t, fb.Title, got.Title)
			}
		})
	}
}

func TestMergeModule_UsesCandidateFields(t *testing.T) {
	m := New(nil)
	cand := &plan.Module{
		Title: "Openings",
		Focus: "Control the center",
		Activities: []plan.Activity{
			{Type: "project", Prompt: "Play ten games", Celebration: "Gg"},
			{Type: "multipleChoice", Prompt: "Best move?", Choices: []string{" e4 ", "a4", "e4"}, CorrectAnswer: "e4", Explanation: "Center"},
			{Type: "freeResponse", Prompt: "Why?", Keywords: []string{"center", " ", "tempo"}, SampleAnswer: "Because"},
		},
	}
	got := m.MergeModule(fallbackModule(), cand, 2)
	assertValidModule(t, got)

	assert.Equal(t, "Openings", got.Title)
	assert.Equal(t, "Control the center", got.Focus)
	assert.Equal(t, 2, got.Stage)

	mc := got.Activities[0]
	assert.Equal(t, "Best move?", mc.Prompt)
	assert.Equal(t, []string{"e4", "a4"}, mc.Choices)
	assert.Equal(t, "e4", mc.CorrectAnswer)
	assert.Equal(t, "Center", mc.Explanation)

	fr := got.Activities[1]
	assert.Equal(t, []string{"center", "tempo"}, fr.Keywords)
	assert.Equal(t, "Because", fr.SampleAnswer)

	pr := got.Activities[2]
	assert.Equal(t, "Play ten games", pr.Prompt)
	assert.Equal(t, "Gg", pr.Celebration)
}

func TestMergeModule_FirstCandidateOfTypeWins(t *testing.T) {
	cand := &plan.Module{Activities: []plan.Activity{
		{Type: "project", Prompt: "first"},
		{Type: "project", Prompt: "second"},
	}}
	got := New(nil).MergeModule(fallbackModule(), cand, 1)
	assert.Equal(t, "first", got.Activities[2].Prompt)
}

func TestMergeModule_AnswerNotInChoicesUsesFallback(t *testing.T) {
	fb := fallbackModule()
	cand := &plan.Module{Activities: []plan.Activity{
		{Type: "multipleChoice", Prompt: "Q", Choices: []string{"x", "y", "z"}, CorrectAnswer: "w"},
	}}
	got := New(nil).MergeModule(fb, cand, 1)
	mc := got.Activities[0]
	assert.Equal(t, "Q", mc.Prompt)
	assert.Equal(t, fb.Activities[0].Choices, mc.Choices)
	assert.Equal(t, fb.Activities[0].CorrectAnswer, mc.CorrectAnswer)
}

func TestMergeModule_SingleChoiceUsesFallback(t *testing.T) {
	fb := fallbackModule()
	cand := &plan.Module{Activities: []plan.Activity{
		{Type: "multipleChoice", Choices: []string{"only", "only"}, CorrectAnswer: "only"},
	}}
	got := New(nil).MergeModule(fb, cand, 1)
	assert.Equal(t, fb.Activities[0].Choices, got.Activities[0].Choices)
}

func TestMergeModule_OptionsAndSampleAliases(t *testing.T) {
	cand, err := plan.DecodeModule([]byte(`{"activities":[
		{"type":"multipleChoice","options":["yes","no"],"correctAnswer":"no"},
		{"type":"freeResponse","sample":"aliased sample"}
	]}`))
	require.NoError(t, err)
	got := New(nil).MergeModule(fallbackModule(), cand, 1)
	assert.Equal(t, []string{"yes", "no"}, got.Activities[0].Choices)
	assert.Equal(t, "no", got.Activities[0].CorrectAnswer)
	assert.Equal(t, "aliased sample", got.Activities[1].SampleAnswer)
}

func TestMergeModule_ResetsLearnerState(t *testing.T) {
	fb := fallbackModule()
	fb.Activities[0].Status = course.StatusCorrect
	fb.Activities[0].Attempts = 2
	fb.Activities[0].LastFeedback = "nice"
	fb.Activities[0].History = []course.Attempt{{ID: "a"}, {ID: "b"}}

	got := New(nil).MergeModule(fb, nil, 1)
	assertValidModule(t, got)
	for i := range got.Activities {
		assert.NotEqual(t, fb.Activities[i].ID, got.Activities[i].ID, "ids are regenerated")
	}
	assert.NotEqual(t, fb.ID, got.ID)
}

func TestMergeModule_Idempotent(t *testing.T) {
	m := New(nil)
	fb := fallbackModule()
	cands := []*plan.Module{
		nil,
		{Title: "T", Activities: []plan.Activity{{Type: "multipleChoice", Choices: []string{"a", "b"}, CorrectAnswer: "b"}}},
		{Activities: []plan.Activity{{Type: "freeResponse", Keywords: []string{" k1 ", "k2", "k1"}}}},
	}
	for _, c := range cands {
		once := m.MergeModule(fb, c, 3)
		twice := m.MergeModule(fb, toPlan(once), 3)
		assert.Equal(t, stripIDs(once.Clone()), stripIDs(twice.Clone()))
	}
}

func TestMergeCourse(t *testing.T) {
	b := curriculum.NewBuilder(nil)
	fb := b.BuildCourse("chess")
	m := New(nil)

	t.Run("nil candidate", func(t *testing.T) {
		got := m.MergeCourse(fb, nil, now)
		require.Len(t, got.Modules, 3)
		assert.Equal(t, "Chess Mastery", got.Title)
		assert.Equal(t, "Chess", got.Subject)
		assert.Equal(t, now, got.CreatedAt)
		assert.NotEmpty(t, got.ID)
		for i, mod := range got.Modules {
			assert.Equal(t, i+1, mod.Stage)
			assertValidModule(t, mod)
		}
	})

	t.Run("positional and title matching", func(t *testing.T) {
		cand := &plan.Course{
			Title: "Chess For Humans",
			Modules: []plan.Module{
				{Title: "Openings"},
				{},
				{Title: "Whatever"},
				{Title: fb.Modules[1].Title, Focus: "matched by title"},
			},
		}
		got := m.MergeCourse(fb, cand, now)
		assert.Equal(t, "Chess For Humans", got.Title)
		assert.Equal(t, fb.Description, got.Description)
		assert.Equal(t, "Openings", got.Modules[0].Title)
		assert.Equal(t, "matched by title", got.Modules[1].Focus)
		assert.Equal(t, "Whatever", got.Modules[2].Title)
	})

	t.Run("extra candidate modules ignored", func(t *testing.T) {
		cand := &plan.Course{Modules: make([]plan.Module, 7)}
		got := m.MergeCourse(fb, cand, now)
		assert.Len(t, got.Modules, 3)
	})

	t.Run("unique ids", func(t *testing.T) {
		got := m.MergeCourse(fb, nil, now)
		var seen []string
		for _, mod := range got.Modules {
			for _, a := range mod.Activities {
				assert.False(t, slices.Contains(seen, a.ID))
				seen = append(seen, a.ID)
			}
		}
	})
}

func TestMergeBlueprint(t *testing.T) {
	fb := curriculum.NewBuilder(nil).BuildBlueprint("chess").Blueprint
	m := New(nil)

	assert.Equal(t, fb, m.MergeBlueprint(fb, nil))

	got := m.MergeBlueprint(fb, &plan.Blueprint{Voice: "Dry wit", StoryArc: []string{"", " "}, GrowthPillars: []string{"Play daily"}})
	assert.Equal(t, "Dry wit", got.Voice)
	assert.Equal(t, fb.StoryArc, got.StoryArc)
	assert.Equal(t, []string{"Play daily"}, got.GrowthPillars)
}

func TestMergeStudio(t *testing.T) {
	studio := curriculum.NewBuilder(nil).BuildBlueprint("chess")
	got := New(nil).MergeStudio("chess", studio, &plan.Course{
		Title:         "Chess Dojo",
		OpeningModule: &plan.Module{Title: "First Blood"},
	}, now)

	assert.Equal(t, course.ModeStaged, got.Mode)
	assert.Equal(t, "Chess Dojo", got.Title)
	assert.Equal(t, studio.Description, got.Description)
	require.NotNil(t, got.Blueprint)
	assert.Equal(t, studio.Blueprint.Voice, got.Blueprint.Voice)
	require.Len(t, got.Modules, 1)
	assert.Equal(t, "First Blood", got.Modules[0].Title)
	assert.Equal(t, 1, got.Modules[0].Stage)
	assert.Equal(t, 2, got.NextStage)
	assertValidModule(t, got.Modules[0])

	fallbackOnly := New(nil).MergeStudio("chess", studio, nil, now)
	assert.Equal(t, "Chess Mastery Studio", fallbackOnly.Title)
}
