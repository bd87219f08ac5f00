package session

import (
	"github.com/abhisek/supertutor/internal/course"
	"github.com/abhisek/supertutor/internal/progress"
	"github.com/abhisek/supertutor/internal/store"
)

// Courses returns copies of every course in creation order.
func (c *Controller) Courses() []course.Course {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]course.Course, len(c.state.Courses))
	for i := range c.state.Courses {
		out[i] = *c.state.Courses[i].Clone()
	}
	return out
}

// Course returns a copy of the course with id.
func (c *Controller) Course(id string) (*course.Course, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	crs := c.state.findCourse(id)
	if crs == nil {
		return nil, ErrCourseNotFound
	}
	return crs.Clone(), nil
}

// ActiveCourse returns a copy of the active course, or nil.
func (c *Controller) ActiveCourse() *course.Course {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.findCourse(c.state.ActiveCourseID).Clone()
}

// Activity returns a copy of one activity. An empty courseID means the
// active course.
func (c *Controller) Activity(courseID, moduleID, activityID string) (course.Activity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if courseID == "" {
		courseID = c.state.ActiveCourseID
	}
	crs := c.state.findCourse(courseID)
	if crs == nil {
		return course.Activity{}, false
	}
	mod := crs.FindModule(moduleID)
	if mod == nil {
		return course.Activity{}, false
	}
	act := mod.FindActivity(activityID)
	if act == nil {
		return course.Activity{}, false
	}
	return cloneActivity(*act), true
}

func (c *Controller) ActiveCourseID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ActiveCourseID
}

// Progress derives progress for a course; empty id means the active course.
func (c *Controller) Progress(courseID string) (progress.CourseProgress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if courseID == "" {
		courseID = c.state.ActiveCourseID
		if courseID == "" {
			return progress.Aggregate(nil), nil
		}
	}
	crs := c.state.findCourse(courseID)
	if crs == nil {
		return progress.CourseProgress{}, ErrCourseNotFound
	}
	return progress.Aggregate(crs), nil
}

// Profile summarizes every course.
func (c *Controller) Profile() progress.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return progress.BuildProfile(c.state.Courses, c.state.ActiveCourseID)
}

func (c *Controller) Onboarding() store.Onboarding {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Onboarding
}

// Snapshot returns a deep copy of the whole state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := State{
		Courses:        make([]course.Course, len(c.state.Courses)),
		ActiveCourseID: c.state.ActiveCourseID,
		Drafts:         make(map[string]string, len(c.state.Drafts)),
		Onboarding:     c.state.Onboarding,
	}
	for i := range c.state.Courses {
		s.Courses[i] = *c.state.Courses[i].Clone()
	}
	for k, v := range c.state.Drafts {
		s.Drafts[k] = v
	}
	return s
}
