package course

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCourse() *Course {
	return &Course{
		ID:      "c1",
		Subject: "Chess",
		Modules: []Module{{
			ID: "m1",
			Activities: []Activity{
				{ID: "a1", Type: TypeMultipleChoice, Choices: []string{"A", "B"}, CorrectAnswer: "A", Status: StatusPending},
				{ID: "a2", Type: TypeFreeResponse, Keywords: []string{"x"}, History: []Attempt{{ID: "t1"}}},
			},
		}},
		Blueprint: &Blueprint{Voice: "calm", StoryArc: []string{"one"}},
	}
}

func TestFindModuleAndActivity(t *testing.T) {
	c := sampleCourse()
	m := c.FindModule("m1")
	require.NotNil(t, m)
	assert.Nil(t, c.FindModule("nope"))

	a := m.FindActivity("a2")
	require.NotNil(t, a)
	assert.Equal(t, TypeFreeResponse, a.Type)
	assert.Nil(t, m.FindActivity("nope"))

	a.Attempts = 3
	assert.Equal(t, 3, c.Modules[0].Activities[1].Attempts, "lookup returns a pointer into the course")
}

func TestClone_IsDeep(t *testing.T) {
	c := sampleCourse()
	cp := c.Clone()

	cp.Modules[0].Activities[0].Status = StatusCorrect
	cp.Modules[0].Activities[1].History[0].Response = "changed"
	cp.Blueprint.StoryArc[0] = "changed"

	assert.Equal(t, StatusPending, c.Modules[0].Activities[0].Status)
	assert.Empty(t, c.Modules[0].Activities[1].History[0].Response)
	assert.Equal(t, "one", c.Blueprint.StoryArc[0])
	assert.Nil(t, (*Course)(nil).Clone())
}

func TestLocked(t *testing.T) {
	mc := Activity{Type: TypeMultipleChoice, Status: StatusCorrect}
	assert.True(t, mc.Locked())

	mc.Status = StatusIncorrect
	assert.False(t, mc.Locked())

	fr := Activity{Type: TypeFreeResponse, Status: StatusCorrect}
	assert.False(t, fr.Locked())
}

func TestJSONFieldNames(t *testing.T) {
	raw, err := json.Marshal(sampleCourse())
	require.NoError(t, err)
	s := string(raw)
	for _, want := range []string{`"correctAnswer":"A"`, `"createdAt"`, `"modules"`, `"storyArc"`, `"type":"multipleChoice"`} {
		assert.True(t, strings.Contains(s, want), "missing %s in %s", want, s)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"", ModeGenerative, true},
		{"generative", ModeGenerative, true},
		{"staged", ModeStaged, true},
		{"curated", ModeCurated, true},
		{"other", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseMode(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestActivityTypeValid(t *testing.T) {
	for _, at := range ActivityTypes {
		assert.True(t, at.Valid())
	}
	assert.False(t, ActivityType("essay").Valid())
}
