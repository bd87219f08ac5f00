// Package session owns a learner's course state. The Controller is the
// single mutator of that state: it creates courses, advances staged
// courses, scores submissions and persists the result best-effort.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/abhisek/supertutor/internal/auth"
	"github.com/abhisek/supertutor/internal/course"
	"github.com/abhisek/supertutor/internal/coursegen"
	"github.com/abhisek/supertutor/internal/curriculum"
	"github.com/abhisek/supertutor/internal/evaluate"
	"github.com/abhisek/supertutor/internal/ids"
	"github.com/abhisek/supertutor/internal/metrics"
	"github.com/abhisek/supertutor/internal/normalize"
	"github.com/abhisek/supertutor/internal/progress"
	"github.com/abhisek/supertutor/internal/store"
)

// maxResponseSummary bounds the response text kept in course history for
// long answers.
const maxResponseSummary = 160

// Options configures a Controller. Every field is optional.
type Options struct {
	// Generator produces candidate content. Nil means fallback content only.
	Generator *coursegen.Generator
	// Bank serves curated courses. Nil disables curated lookups, which then
	// fall back to the built-in curriculum.
	Bank *curriculum.Bank
	// Documents persists learner state. With a nil store or a nil User the
	// controller is local-only.
	Documents store.DocumentStore
	User      *auth.User
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	IDs       ids.Generator
	Now       func() time.Time
}

// Controller drives one learner's session.
//
// mu guards state and is never held across a generator call or a store
// write. writeMu serializes writes so the last write always carries the
// newest snapshot.
type Controller struct {
	mu       sync.Mutex
	state    State
	inflight map[string]struct{}
	closed   bool

	onboardingRev       int
	syncedOnboardingRev int
	saving              bool
	syncMessage         string
	lastSynced          time.Time

	writeMu sync.Mutex

	gen     *coursegen.Generator
	bank    *curriculum.Bank
	merger  *normalize.Merger
	builder *curriculum.Builder
	docs    store.DocumentStore
	user    *auth.User
	logger  *zap.Logger
	metrics *metrics.Metrics
	newID   ids.Generator
	now     func() time.Time
}

// New creates a Controller with empty state.
func New(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.IDs == nil {
		opts.IDs = ids.New
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if opts.User != nil {
		logger = logger.With(zap.String("user", opts.User.ID))
	}
	return &Controller{
		state:    State{Drafts: make(map[string]string)},
		inflight: make(map[string]struct{}),
		gen:      opts.Generator,
		bank:     opts.Bank,
		merger:   normalize.New(opts.IDs),
		builder:  curriculum.NewBuilder(opts.IDs),
		docs:     opts.Documents,
		user:     opts.User,
		logger:   logger,
		metrics:  opts.Metrics,
		newID:    opts.IDs,
		now:      opts.Now,
	}
}

// Load replaces the in-memory state with the learner's stored document.
// It does nothing when the controller is local-only or no document exists.
func (c *Controller) Load(ctx context.Context) error {
	if c.localOnly() {
		return nil
	}
	doc, err := c.docs.Read(ctx, c.user.ID)
	if err != nil {
		return fmt.Errorf("load learner document: %w", err)
	}
	if doc == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Courses = doc.Courses
	if c.state.Courses == nil {
		c.state.Courses = []course.Course{}
	}
	c.state.ActiveCourseID = doc.ActiveCourseID
	if c.state.findCourse(c.state.ActiveCourseID) == nil {
		c.state.ActiveCourseID = ""
		if len(c.state.Courses) > 0 {
			c.state.ActiveCourseID = c.state.Courses[0].ID
		}
	}
	c.state.Onboarding = doc.Onboarding
	c.state.resetDrafts()
	c.lastSynced = doc.UpdatedAt
	return nil
}

// GenerateCourse creates a course for prompt in the given mode, appends it
// and makes it active. Only one course generation runs at a time.
func (c *Controller) GenerateCourse(ctx context.Context, prompt string, mode course.Mode) (*course.Course, error) {
	subject := strings.TrimSpace(prompt)
	if subject == "" {
		return nil, ErrBlankPrompt
	}
	if mode == "" {
		mode = course.ModeGenerative
	}
	if _, ok := course.ParseMode(string(mode)); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	release, err := c.acquire(courseSlot)
	if err != nil {
		return nil, err
	}
	defer release()

	var created course.Course
	switch mode {
	case course.ModeStaged:
		fallback := c.builder.BuildBlueprint(subject)
		created = c.merger.MergeStudio(subject, fallback, c.gen.GenerateStudio(ctx, subject), c.now())
	case course.ModeCurated:
		fallback := c.builder.BuildCourse(subject)
		fallback.Mode = course.ModeCurated
		created = c.merger.MergeCourse(fallback, c.bank.Lookup(subject), c.now())
	default:
		fallback := c.builder.BuildCourse(subject)
		fallback.Mode = course.ModeGenerative
		created = c.merger.MergeCourse(fallback, c.gen.GenerateCourse(ctx, subject), c.now())
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrStaleGeneration
	}
	c.state.Courses = append(c.state.Courses, created)
	c.state.ActiveCourseID = created.ID
	c.state.resetDrafts()
	out := created.Clone()
	c.mu.Unlock()

	c.logger.Info("course created",
		zap.String("course_id", created.ID),
		zap.String("subject", created.Subject),
		zap.String("mode", string(created.Mode)),
		zap.Int("modules", len(created.Modules)))

	c.persist(ctx)
	return out, nil
}

// AdvanceStage generates the next module of a staged course from the
// course blueprint and the learner's history so far.
func (c *Controller) AdvanceStage(ctx context.Context, courseID string) (*course.Module, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if courseID == "" {
		courseID = c.state.ActiveCourseID
	}
	crs := c.state.findCourse(courseID)
	if crs == nil {
		c.mu.Unlock()
		return nil, ErrCourseNotFound
	}
	if crs.Mode != course.ModeStaged {
		c.mu.Unlock()
		return nil, ErrNotStaged
	}
	slot := stageSlot(courseID)
	if _, busy := c.inflight[slot]; busy {
		c.mu.Unlock()
		return nil, ErrGenerationInFlight
	}
	c.inflight[slot] = struct{}{}

	stage := crs.NextStage
	if stage < 1 {
		stage = len(crs.Modules) + 1
	}
	in := coursegen.ModuleInput{
		Subject: crs.Subject,
		Stage:   stage,
		History: append([]course.HistoryEntry(nil), crs.History...),
	}
	if crs.Blueprint != nil {
		bp := *crs.Blueprint
		bp.StoryArc = append([]string(nil), bp.StoryArc...)
		bp.GrowthPillars = append([]string(nil), bp.GrowthPillars...)
		in.Blueprint = &bp
	}
	c.mu.Unlock()
	defer c.release(slot)

	fallback := c.builder.BuildModule(in.Subject, stage-1)
	mod := c.merger.MergeModule(fallback, c.gen.GenerateModule(ctx, in), stage)

	c.mu.Lock()
	crs = c.state.findCourse(courseID)
	if c.closed || crs == nil {
		c.mu.Unlock()
		c.logger.Info("discarding stale module", zap.String("course_id", courseID), zap.Int("stage", stage))
		return nil, ErrStaleGeneration
	}
	crs.Modules = append(crs.Modules, mod)
	crs.NextStage = stage + 1
	out := mod.Clone()
	c.mu.Unlock()

	c.logger.Info("stage generated",
		zap.String("course_id", courseID),
		zap.Int("stage", stage),
		zap.String("title", mod.Title))

	c.persist(ctx)
	return &out, nil
}

// SwitchCourse makes id the active course and clears drafts. Switching to
// the already active course does nothing.
func (c *Controller) SwitchCourse(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if id == c.state.ActiveCourseID {
		c.mu.Unlock()
		return nil
	}
	if c.state.findCourse(id) == nil {
		c.mu.Unlock()
		return ErrCourseNotFound
	}
	c.state.ActiveCourseID = id
	c.state.resetDrafts()
	c.mu.Unlock()

	c.persist(ctx)
	return nil
}

// SetDraft records in-progress response text for an activity.
func (c *Controller) SetDraft(activityID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Drafts[activityID] = text
}

// Draft returns the in-progress response text for an activity.
func (c *Controller) Draft(activityID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Drafts[activityID]
}

// SubmitAnswer scores response for an activity and records the attempt.
// An empty courseID means the active course. When the course, module or
// activity does not exist the call is a no-op and found is false.
func (c *Controller) SubmitAnswer(ctx context.Context, courseID, moduleID, activityID, response string) (sub Submission, found bool, err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Submission{}, false, ErrClosed
	}
	if courseID == "" {
		courseID = c.state.ActiveCourseID
	}
	crs := c.state.findCourse(courseID)
	if crs == nil {
		c.mu.Unlock()
		return Submission{}, false, nil
	}
	mod := crs.FindModule(moduleID)
	if mod == nil {
		c.mu.Unlock()
		return Submission{}, false, nil
	}
	act := mod.FindActivity(activityID)
	if act == nil {
		c.mu.Unlock()
		return Submission{}, false, nil
	}

	result := evaluate.Evaluate(*act, response)
	now := c.now()

	act.History = append(act.History, course.Attempt{
		ID:          c.newID(),
		SubmittedAt: now,
		Response:    response,
		Correct:     result.Correct,
	})
	act.Attempts++
	act.LastFeedback = result.Message
	if result.Correct {
		act.Status = course.StatusCorrect
	} else {
		act.Status = course.StatusIncorrect
	}

	crs.History = append(crs.History, course.HistoryEntry{
		ID:              c.newID(),
		ModuleID:        mod.ID,
		ActivityID:      act.ID,
		ModuleStage:     mod.Stage,
		ActivityType:    act.Type,
		Prompt:          act.Prompt,
		Response:        response,
		ResponseSummary: summarize(response),
		Correct:         result.Correct,
		SubmittedAt:     now,
	})
	delete(c.state.Drafts, activityID)

	sub = Submission{
		CourseID:    crs.ID,
		ModuleID:    mod.ID,
		Result:      result,
		Activity:    cloneActivity(*act),
		Progress:    progress.Aggregate(crs),
		Interactive: evaluate.Interactive(*act),
	}
	c.mu.Unlock()

	c.metrics.ObserveEvaluation(string(sub.Activity.Type), result.Correct)
	c.persist(ctx)
	return sub, true, nil
}

// SaveOnboarding stores the learner's onboarding answers and marks
// onboarding complete.
func (c *Controller) SaveOnboarding(ctx context.Context, ob store.Onboarding) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	ob.PrimaryGoal = strings.TrimSpace(ob.PrimaryGoal)
	ob.FocusArea = strings.TrimSpace(ob.FocusArea)
	ob.CustomFocus = strings.TrimSpace(ob.CustomFocus)
	ob.Complete = true
	c.state.Onboarding = ob
	c.onboardingRev++
	c.mu.Unlock()

	c.persist(ctx)
	return nil
}

// Close marks the controller closed. Mutations fail with ErrClosed and
// generations still in flight are discarded when they return.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// acquire claims a generation slot.
func (c *Controller) acquire(slot string) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if _, busy := c.inflight[slot]; busy {
		return nil, ErrGenerationInFlight
	}
	c.inflight[slot] = struct{}{}
	return func() { c.release(slot) }, nil
}

func (c *Controller) release(slot string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, slot)
}

// Generating reports whether the slot for a new course, or for the next
// stage of courseID when non-empty, is busy.
func (c *Controller) Generating(courseID string) bool {
	slot := courseSlot
	if courseID != "" {
		slot = stageSlot(courseID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.inflight[slot]
	return busy
}

func summarize(response string) string {
	response = strings.TrimSpace(response)
	if utf8.RuneCountInString(response) <= maxResponseSummary {
		return ""
	}
	r := []rune(response)
	return string(r[:maxResponseSummary]) + "…"
}

func cloneActivity(a course.Activity) course.Activity {
	a.Choices = append([]string(nil), a.Choices...)
	a.Keywords = append([]string(nil), a.Keywords...)
	a.History = append([]course.Attempt{}, a.History...)
	return a
}
