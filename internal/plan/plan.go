// Package plan holds candidate course content as it arrives from an
// untrusted source (a text generator or a curated bank file). Nothing here
// is guaranteed to be well formed; the normalize package turns a plan into
// a valid course.
package plan

// Activity is a candidate activity. Type is kept as a raw string so that
// unknown values survive decoding and are simply never matched.
type Activity struct {
	Type          string   `json:"type" yaml:"type"`
	Prompt        string   `json:"prompt" yaml:"prompt"`
	Choices       []string `json:"choices,omitempty" yaml:"choices"`
	CorrectAnswer string   `json:"correctAnswer,omitempty" yaml:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty" yaml:"explanation"`
	Keywords      []string `json:"keywords,omitempty" yaml:"keywords"`
	SampleAnswer  string   `json:"sampleAnswer,omitempty" yaml:"sampleAnswer"`
	Celebration   string   `json:"celebration,omitempty" yaml:"celebration"`
}

// Module is a candidate module.
type Module struct {
	Title      string     `json:"title" yaml:"title"`
	Focus      string     `json:"focus" yaml:"focus"`
	Activities []Activity `json:"activities" yaml:"activities"`
}

// Blueprint is a candidate narrative frame for staged courses.
type Blueprint struct {
	Voice         string   `json:"voice" yaml:"voice"`
	StoryArc      []string `json:"storyArc" yaml:"storyArc"`
	GrowthPillars []string `json:"growthPillars" yaml:"growthPillars"`
}

// Course is a candidate course. A whole-course plan fills Modules; a staged
// plan fills Blueprint and OpeningModule.
type Course struct {
	Title         string     `json:"title" yaml:"title"`
	Description   string     `json:"description" yaml:"description"`
	Blueprint     *Blueprint `json:"blueprint,omitempty" yaml:"blueprint"`
	OpeningModule *Module    `json:"openingModule,omitempty" yaml:"openingModule"`
	Modules       []Module   `json:"modules" yaml:"modules"`
}
