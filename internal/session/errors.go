package session

import "errors"

var (
	// ErrBlankPrompt is returned when a course is requested for an empty
	// subject. No generation is attempted.
	ErrBlankPrompt = errors.New("tell me what you want to learn first")

	// ErrGenerationInFlight is returned when the same generation slot is
	// already busy.
	ErrGenerationInFlight = errors.New("a generation is already in progress")

	ErrCourseNotFound = errors.New("course not found")

	// ErrStaleGeneration is returned when a generation finished after its
	// course was removed or the controller was closed. The result is
	// discarded.
	ErrStaleGeneration = errors.New("generation result discarded")

	ErrUnknownMode = errors.New("unknown course mode")
	ErrNotStaged   = errors.New("course is not staged")
	ErrClosed      = errors.New("session closed")

	// ErrActivityLocked is returned by the API when a mastered multiple
	// choice is submitted again.
	ErrActivityLocked = errors.New("activity already mastered")
)

// SyncFailedMessage is shown while the latest changes are not yet persisted.
const SyncFailedMessage = "We couldn't sync with the cloud right now. Your changes are safe locally and we'll retry soon."
