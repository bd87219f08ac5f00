package plan

import "github.com/abhisek/supertutor/internal/llm"

var activityDefinition = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"type": map[string]any{
			"type": "string",
			"enum": []any{"multipleChoice", "freeResponse", "project"},
		},
		"prompt": map[string]any{
			"type":        "string",
			"description": "What the learner is asked to do",
		},
		"choices": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Multiple choice options (multipleChoice only)",
		},
		"correctAnswer": map[string]any{
			"type":        "string",
			"description": "Must be exactly one of choices (multipleChoice only)",
		},
		"explanation": map[string]any{"type": "string"},
		"keywords": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Ideas a strong answer mentions (freeResponse only)",
		},
		"sampleAnswer": map[string]any{"type": "string"},
		"celebration":  map[string]any{"type": "string"},
	},
	"required": []any{"type", "prompt"},
}

var moduleDefinition = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"title": map[string]any{"type": "string"},
		"focus": map[string]any{"type": "string"},
		"activities": map[string]any{
			"type":  "array",
			"items": activityDefinition,
		},
	},
	"required": []any{"title", "focus", "activities"},
}

// CourseSchema describes a whole-course plan. It is used for structured
// generation and to validate curated bank entries.
var CourseSchema = &llm.Schema{
	Name:        "course-plan",
	Description: "A three-module course with typed learner activities",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       map[string]any{"type": "string"},
			"description": map[string]any{"type": "string"},
			"modules": map[string]any{
				"type":     "array",
				"items":    moduleDefinition,
				"minItems": 1,
			},
		},
		"required": []any{"title", "description", "modules"},
	},
}

// StudioSchema describes the opening plan of a staged course.
var StudioSchema = &llm.Schema{
	Name:        "studio-plan",
	Description: "A course blueprint with the opening mission",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       map[string]any{"type": "string"},
			"description": map[string]any{"type": "string"},
			"blueprint": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"voice":         map[string]any{"type": "string"},
					"storyArc":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"growthPillars": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []any{"voice", "storyArc", "growthPillars"},
			},
			"openingModule": moduleDefinition,
		},
		"required": []any{"title", "description", "blueprint", "openingModule"},
	},
}

// ModuleSchema describes a single staged module.
var ModuleSchema = &llm.Schema{
	Name:        "stage-module",
	Description: "The next mission in a staged course",
	Definition:  moduleDefinition,
}
