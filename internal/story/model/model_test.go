package model

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionsFor(t *testing.T) {
	assert.Equal(t, []Action{ActionAddMore, ActionAddLocation, ActionFinish, ActionCancel}, ActionsFor(AwaitingContent))
	assert.Equal(t, []Action{ActionShareLocation, ActionCancel}, ActionsFor(AwaitingLocation))
	assert.Equal(t, []Action{ActionSendAttributed, ActionSendAnonymous, ActionBackToEditing, ActionCancel}, ActionsFor(AwaitingConfirmation))
	assert.Nil(t, ActionsFor(Phase(99)))
}

func TestPhaseAcceptance(t *testing.T) {
	assert.True(t, AwaitingContent.AcceptsContent())
	assert.False(t, AwaitingLocation.AcceptsContent())
	assert.False(t, AwaitingConfirmation.AcceptsContent())

	assert.True(t, AwaitingLocation.AcceptsLocation())
	assert.False(t, AwaitingContent.AcceptsLocation())
	assert.False(t, AwaitingConfirmation.AcceptsLocation())
}

func TestErrorMatching(t *testing.T) {
	pe := fmt.Errorf("append: %w", &PhaseError{Op: "append", Got: AwaitingConfirmation})
	assert.ErrorIs(t, pe, ErrWrongPhase)
	assert.Contains(t, pe.Error(), "awaiting_confirmation")

	de := &DispatchError{StoryID: "s", Stage: StageLocation, Emitted: 2, Total: 2, Err: context.DeadlineExceeded}
	assert.ErrorIs(t, de, ErrDispatchPartialFailure)
	assert.ErrorIs(t, de, context.DeadlineExceeded)
	assert.False(t, errors.Is(de, ErrWrongPhase))
	assert.Contains(t, de.Error(), "location after 2/2")
}

func TestCloneIsDetached(t *testing.T) {
	d := &Draft{
		Items:    []ContentItem{{Kind: KindText, Meta: Metadata{Text: "a"}}},
		Location: &Location{Latitude: 1},
	}
	c := d.Clone()
	c.Items[0].Meta.Text = "b"
	c.Location.Latitude = 2

	assert.Equal(t, "a", d.Items[0].Meta.Text)
	assert.Equal(t, 1.0, d.Location.Latitude)
}

func TestVisibilityAndKindNames(t *testing.T) {
	assert.Equal(t, "attributed", Attributed.String())
	assert.Equal(t, "anonymous", Anonymous.String())
	assert.Equal(t, "video_note", KindVideoNote.String())
}
