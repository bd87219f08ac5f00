// Package curriculum builds deterministic course content: the fallback
// modules used whenever generated content is missing or unusable, and the
// curated bank keyed by onboarding subject.
package curriculum

import (
	"fmt"
	"strings"

	"github.com/abhisek/supertutor/internal/course"
	"github.com/abhisek/supertutor/internal/ids"
)

// StageTemplate describes one stage of the fallback progression.
type StageTemplate struct {
	Label string
	Focus string

	ChoicePrompt  string
	Choices       []string
	Explanation   string
	ReflectPrompt string
	Keywords      []string
	SampleAnswer  string
	ProjectPrompt string
	Celebration   string
}

// Stages returns the stage templates for subject in order: Ignition,
// Deep Dive, Remix. subject should already be title-cased.
func Stages(subject string) []StageTemplate {
	return []StageTemplate{
		{
			Label:        "Ignition",
			Focus:        "Kick off with core language, mental models, and a fast sense of how this craft shows up in the real world.",
			ChoicePrompt: fmt.Sprintf("Which learner move shows you truly grasp the heartbeat of %s?", subject),
			Choices: []string{
				fmt.Sprintf("Take a concept from %s and explain it through a vivid real-world moment", subject),
				"Skim a glossary and assume the words will stick",
				"Copy someone else's solution without reflection",
				"Wait until inspiration strikes before experimenting",
			},
			Explanation:   "When you can remix an idea into a scenario, you prove you own the thinking, not just the terminology.",
			ReflectPrompt: fmt.Sprintf("Describe one misconception about %s that slows people down and how you would reframe it.", subject),
			Keywords:      []string{"misconception", "reframe", strings.ToLower(subject)},
			SampleAnswer:  "Name the myth, reveal why it appears, then craft a reframing that helps a peer unlock the right intuition.",
			ProjectPrompt: fmt.Sprintf("Design a tiny artifact that proves you can wield %s. What will you ship, share, or perform?", subject),
			Celebration:   "Once you lock this in, your tutor will spin up a remix mission to escalate the adventure.",
		},
		{
			Label:        "Deep Dive",
			Focus:        "Stretch into nuanced situations, contrast approaches, and practice how you diagnose what really matters.",
			ChoicePrompt: fmt.Sprintf("You're mentoring a friend on %s. Which strategy keeps them adaptive under pressure?", subject),
			Choices: []string{
				"Break the challenge into experiments and reflect on what changes after each iteration",
				"Repeat the same tactic hoping eventually it will work",
				"Ignore feedback because the original plan felt right",
				"Let someone else handle the tricky parts",
			},
			Explanation:   "Iterative reflection shows you can self-correct, which is how mastery compounds.",
			ReflectPrompt: fmt.Sprintf("Tell a quick story: how would %s transform a challenge for a teammate or client?", subject),
			Keywords:      []string{"challenge", "impact", "iteration"},
			SampleAnswer:  fmt.Sprintf("Describe the starting obstacle, the %s-powered intervention, and the measurable shift afterwards.", subject),
			ProjectPrompt: fmt.Sprintf("Craft a sprint plan that applies %s in the wild. What signals will prove it's working?", subject),
			Celebration:   "Your blueprint becomes a launchpad. Your tutor will co-design a sequel mission tuned to your reflections.",
		},
		{
			Label:        "Remix",
			Focus:        "Invent, remix, and push the craft into daring spaces so your style becomes unmistakable.",
			ChoicePrompt: fmt.Sprintf("Your tutor offers three remix routes for %s. Which one unlocks the boldest learning?", subject),
			Choices: []string{
				"Prototype something unexpected, then solicit critique to evolve it",
				"Copy the last project exactly to save time",
				"Avoid sharing until the work feels perfect",
				"Stick to theory and skip making anything tangible",
			},
			Explanation:   "Brave prototyping plus feedback creates the signal your tutor needs to escalate the adventure.",
			ReflectPrompt: fmt.Sprintf("If you had to remix %s for a wildly different audience, what would you keep and what would you reinvent?", subject),
			Keywords:      []string{"audience", "remix", "reinvent"},
			SampleAnswer:  "Call out the non-negotiable principles, then explain the bold twists that make it resonate for the new crew.",
			ProjectPrompt: fmt.Sprintf("Propose an \"impossible\" mission using %s. What's the moonshot and how will you document it?", subject),
			Celebration:   "Your tutor will spin this into a cosmic remix with collaborators, data, or surprises you choose.",
		},
	}
}

// Builder produces fallback content. The zero value is not usable; use
// NewBuilder.
type Builder struct {
	newID ids.Generator
}

// NewBuilder returns a Builder that stamps content with ids from gen.
// A nil gen uses ids.New.
func NewBuilder(gen ids.Generator) *Builder {
	if gen == nil {
		gen = ids.New
	}
	return &Builder{newID: gen}
}

// BuildModule returns the fallback module for the given zero-based stage
// index. Indexes past the last template reuse the last template; negative
// indexes use the first.
func (b *Builder) BuildModule(subject string, stageIndex int) course.Module {
	subject = TitleCase(subject)
	stages := Stages(subject)
	if stageIndex < 0 {
		stageIndex = 0
	}
	tmpl := stages[min(stageIndex, len(stages)-1)]
	stage := stageIndex + 1

	prefix := "Chapter"
	if stage == 1 {
		prefix = "Mission"
	}

	return course.Module{
		ID:    b.newID(),
		Title: strings.TrimSpace(fmt.Sprintf("%s %d: %s %s", prefix, stage, tmpl.Label, subject)),
		Focus: tmpl.Focus,
		Stage: stage,
		Activities: []course.Activity{
			b.pending(course.Activity{
				Type:          course.TypeMultipleChoice,
				Prompt:        tmpl.ChoicePrompt,
				Choices:       append([]string(nil), tmpl.Choices...),
				CorrectAnswer: tmpl.Choices[0],
				Explanation:   tmpl.Explanation,
			}),
			b.pending(course.Activity{
				Type:         course.TypeFreeResponse,
				Prompt:       tmpl.ReflectPrompt,
				Keywords:     nonEmpty(tmpl.Keywords),
				SampleAnswer: tmpl.SampleAnswer,
			}),
			b.pending(course.Activity{
				Type:        course.TypeProject,
				Prompt:      tmpl.ProjectPrompt,
				Celebration: tmpl.Celebration,
			}),
		},
	}
}

// BuildCourse returns the three-module fallback course for subject. The
// course id and creation time are left for the caller.
func (b *Builder) BuildCourse(subject string) course.Course {
	subject = TitleCase(subject)
	modules := make([]course.Module, len(Stages(subject)))
	for i := range modules {
		modules[i] = b.BuildModule(subject, i)
	}
	return course.Course{
		Subject:     subject,
		Title:       fmt.Sprintf("%s Mastery", subject),
		Description: fmt.Sprintf("An adaptive course crafted by your tutor to make %s second nature.", subject),
		Modules:     modules,
	}
}

// StudioPlan is the fallback frame for a staged course.
type StudioPlan struct {
	Title         string
	Description   string
	Blueprint     course.Blueprint
	OpeningModule course.Module
}

// BuildBlueprint returns the fallback studio frame for a staged course.
func (b *Builder) BuildBlueprint(subject string) StudioPlan {
	subject = TitleCase(subject)
	return StudioPlan{
		Title:       fmt.Sprintf("%s Mastery Studio", subject),
		Description: fmt.Sprintf("An adaptive studio that turns %s into instinct through evolving missions.", subject),
		Blueprint: course.Blueprint{
			Voice:    "Encouraging, adventurous, and vividly specific.",
			StoryArc: []string{"Ignite core instincts", "Practice under playful pressure", "Remix with daring experiments"},
			GrowthPillars: []string{
				"Reflect out loud so thinking becomes tangible",
				"Prototype quickly and embrace critique",
				"Design artifacts that prove the skill in the wild",
			},
		},
		OpeningModule: b.BuildModule(subject, 0),
	}
}

func (b *Builder) pending(a course.Activity) course.Activity {
	a.ID = b.newID()
	a.Status = course.StatusPending
	a.Attempts = 0
	a.History = []course.Attempt{}
	return a
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
