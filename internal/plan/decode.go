package plan

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// DecodeCourse parses raw JSON into a candidate course. Fields of the wrong
// shape are dropped instead of failing the whole document; only a payload
// that is not a JSON object is an error.
func DecodeCourse(raw []byte) (*Course, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	return CourseFrom(obj), nil
}

// DecodeModule parses raw JSON into a candidate module with the same
// leniency as DecodeCourse.
func DecodeModule(raw []byte) (*Module, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	m := ModuleFrom(obj)
	return &m, nil
}

func decodeObject(raw []byte) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parse plan: expected object, got %T", v)
	}
	return obj, nil
}

// CourseFrom builds a candidate course from a generic JSON object.
func CourseFrom(obj map[string]any) *Course {
	c := &Course{
		Title:       str(obj["title"]),
		Description: str(obj["description"]),
	}
	if bp, ok := obj["blueprint"].(map[string]any); ok {
		b := BlueprintFrom(bp)
		c.Blueprint = &b
	}
	if om, ok := obj["openingModule"].(map[string]any); ok {
		m := ModuleFrom(om)
		c.OpeningModule = &m
	}
	for _, item := range list(obj["modules"]) {
		if mo, ok := item.(map[string]any); ok {
			c.Modules = append(c.Modules, ModuleFrom(mo))
		} else {
			// Keep positions stable so index matching still lines up.
			c.Modules = append(c.Modules, Module{})
		}
	}
	return c
}

// ModuleFrom builds a candidate module from a generic JSON object.
func ModuleFrom(obj map[string]any) Module {
	m := Module{
		Title: str(obj["title"]),
		Focus: str(obj["focus"]),
	}
	for _, item := range list(obj["activities"]) {
		if ao, ok := item.(map[string]any); ok {
			m.Activities = append(m.Activities, ActivityFrom(ao))
		}
	}
	return m
}

// ActivityFrom builds a candidate activity from a generic JSON object.
// "options" is accepted for choices and "sample" for sampleAnswer.
func ActivityFrom(obj map[string]any) Activity {
	a := Activity{
		Type:          str(obj["type"]),
		Prompt:        str(obj["prompt"]),
		CorrectAnswer: str(obj["correctAnswer"]),
		Explanation:   str(obj["explanation"]),
		SampleAnswer:  str(obj["sampleAnswer"]),
		Celebration:   str(obj["celebration"]),
	}
	if v, ok := obj["choices"]; ok && isList(v) {
		a.Choices = strs(v)
	} else {
		a.Choices = strs(obj["options"])
	}
	a.Keywords = strs(obj["keywords"])
	if a.SampleAnswer == "" {
		a.SampleAnswer = str(obj["sample"])
	}
	return a
}

// BlueprintFrom builds a candidate blueprint from a generic JSON object.
func BlueprintFrom(obj map[string]any) Blueprint {
	return Blueprint{
		Voice:         str(obj["voice"]),
		StoryArc:      strs(obj["storyArc"]),
		GrowthPillars: strs(obj["growthPillars"]),
	}
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func isList(v any) bool {
	_, ok := v.([]any)
	return ok
}

func list(v any) []any {
	l, _ := v.([]any)
	return l
}

func strs(v any) []string {
	var out []string
	for _, item := range list(v) {
		if s := str(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
