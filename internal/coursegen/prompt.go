package coursegen

import (
	"fmt"
	"strings"

	"github.com/abhisek/supertutor/internal/course"
)

const systemPrompt = `You are Super Tutor, an AI that builds playful but rigorous learning arcs.
Always respond with a single JSON object and nothing else.`

const activityShape = `{"type": "multipleChoice"|"freeResponse"|"project", "prompt": string, "choices"?: string[], "correctAnswer"?: string, "explanation"?: string, "keywords"?: string[], "sampleAnswer"?: string, "celebration"?: string}`

func buildCourseMessage(subject string) string {
	return fmt.Sprintf(`Respond with pure JSON using this schema: {"title": string, "description": string, "modules": [{"title": string, "focus": string, "activities": [%s]}]}. Create exactly three modules. Ensure one module includes a project activity. Every multipleChoice correctAnswer must be one of its choices. Base everything on the subject: %s.`,
		activityShape, subject)
}

func buildStudioMessage(subject string) string {
	return fmt.Sprintf(`Design an adaptive studio for a learner exploring %s. Respond with pure JSON: {"title": string, "description": string, "blueprint": {"voice": string, "storyArc": string[], "growthPillars": string[]}, "openingModule": {"title": string, "focus": string, "activities": [%s]}}. The opening module is stage 1 and must have three activities including one project.`,
		subject, activityShape)
}

// ModuleInput describes the next staged module to generate.
type ModuleInput struct {
	Subject   string
	Stage     int
	Blueprint *course.Blueprint
	History   []course.HistoryEntry
}

func buildModuleMessage(in ModuleInput, window int) string {
	voice := "encouraging and adventurous"
	arc := "ignite, practice, remix"
	pillars := "reflect aloud, iterate boldly, ship tangible artifacts"
	if bp := in.Blueprint; bp != nil {
		if v := strings.TrimSpace(bp.Voice); v != "" {
			voice = v
		}
		if s := joinNonEmpty(bp.StoryArc); s != "" {
			arc = s
		}
		if s := joinNonEmpty(bp.GrowthPillars); s != "" {
			pillars = s
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are inventing the next mission for a learner exploring %s. ", in.Subject)
	fmt.Fprintf(&b, `Respond with pure JSON: {"title": string, "focus": string, "activities": [%s]}. `, activityShape)
	b.WriteString("Ensure there are three activities including one project. ")
	fmt.Fprintf(&b, "Maintain the voice: %s. ", voice)
	fmt.Fprintf(&b, "Story arc beats: %s. ", arc)
	fmt.Fprintf(&b, "Growth pillars: %s. ", pillars)
	fmt.Fprintf(&b, "Stage number: %d. ", in.Stage)
	b.WriteString("Recent learner history:\n")
	b.WriteString(SummarizeHistory(in.History, window))
	b.WriteString("\nCraft something that builds on the learner's momentum and escalates the challenge.")
	return b.String()
}

const maxHistoryPrompt = 120

// SummarizeHistory renders the last window entries, one line each. A
// non-positive window means DefaultHistoryWindow.
func SummarizeHistory(history []course.HistoryEntry, window int) string {
	if len(history) == 0 {
		return "None yet. This is the first mission."
	}
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	lines := make([]string, len(history))
	for i, e := range history {
		mark := "🌀"
		if e.Correct {
			mark = "✅"
		}
		reply := e.ResponseSummary
		if reply == "" {
			reply = e.Response
		}
		lines[i] = fmt.Sprintf("%s Stage %d: %s — %s (Learner replied: %s)",
			mark, e.ModuleStage, e.ActivityType, truncateRunes(strings.TrimSpace(e.Prompt), maxHistoryPrompt), reply)
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func joinNonEmpty(in []string) string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, ", ")
}
