package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/supertutor/internal/course"
	"github.com/abhisek/supertutor/internal/store"
)

func (c *Controller) localOnly() bool {
	return c.docs == nil || c.user == nil
}

// persist writes the current state best-effort. Failures are logged and
// surfaced through SyncStatus; in-memory state is never rolled back.
func (c *Controller) persist(ctx context.Context) {
	_ = c.write(ctx)
}

// write snapshots the state and stores it. The snapshot is taken under
// writeMu so concurrent writers land in order.
func (c *Controller) write(ctx context.Context) error {
	if c.localOnly() {
		return nil
	}
	ctx = context.WithoutCancel(ctx)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	courses := make([]course.Course, len(c.state.Courses))
	for i := range c.state.Courses {
		courses[i] = *c.state.Courses[i].Clone()
	}
	active := c.state.ActiveCourseID
	patch := store.Patch{
		Courses:        courses,
		ActiveCourseID: &active,
		UpdatedAt:      c.now().UTC(),
	}
	rev := c.onboardingRev
	if rev > c.syncedOnboardingRev {
		ob := c.state.Onboarding
		patch.Onboarding = &ob
	}
	if c.user.DisplayName != "" {
		name := c.user.DisplayName
		patch.DisplayName = &name
	}
	c.saving = true
	c.mu.Unlock()

	err := c.docs.Write(ctx, c.user.ID, patch)
	c.metrics.ObservePersistence(err)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.saving = false
	if err != nil {
		c.syncMessage = SyncFailedMessage
		c.logger.Warn("persisting learner document failed", zap.Error(err))
		return fmt.Errorf("persist learner document: %w", err)
	}
	c.syncMessage = ""
	c.lastSynced = patch.UpdatedAt
	if rev > c.syncedOnboardingRev {
		c.syncedOnboardingRev = rev
	}
	return nil
}

// Sync retries persistence immediately and returns the write error, if
// any.
func (c *Controller) Sync(ctx context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return c.write(ctx)
}

// SyncStatus reports the outcome of the latest write.
func (c *Controller) SyncStatus() SyncStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := SyncStatus{
		LocalOnly: c.localOnly(),
		Saving:    c.saving,
		Message:   c.syncMessage,
	}
	if !c.lastSynced.IsZero() {
		t := c.lastSynced
		st.LastSyncedAt = &t
	}
	return st
}
