package model

import (
	"errors"
	"fmt"
)

var (
	ErrNoActiveDraft          = errors.New("no active draft")
	ErrWrongPhase             = errors.New("wrong phase")
	ErrEmptyDraft             = errors.New("draft has no items")
	ErrDispatchPartialFailure = errors.New("dispatch partially failed")
)

// PhaseError reports an operation attempted while the draft was in Got.
type PhaseError struct {
	Op  string
	Got Phase
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %v (draft is %s)", e.Op, ErrWrongPhase, e.Got)
}

func (e *PhaseError) Unwrap() error { return ErrWrongPhase }

// Stage names the part of the archive sequence that was being emitted.
type Stage string

const (
	StageHeader   Stage = "header"
	StageItem     Stage = "item"
	StageLocation Stage = "location"
	StageFooter   Stage = "footer"
)

// DispatchError is returned when an emission fails after the draft has
// already left the store. The submission cannot be replayed.
type DispatchError struct {
	StoryID string
	Stage   Stage
	Emitted int // items fully emitted before the failure
	Total   int
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s failed at %s after %d/%d items: %v", e.StoryID, e.Stage, e.Emitted, e.Total, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

func (e *DispatchError) Is(target error) bool { return target == ErrDispatchPartialFailure }
