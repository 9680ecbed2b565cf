package model

// Phase is the draft's position in its state machine.
type Phase int

const (
	AwaitingContent Phase = iota
	AwaitingLocation
	AwaitingConfirmation
)

func (p Phase) String() string {
	switch p {
	case AwaitingContent:
		return "awaiting_content"
	case AwaitingLocation:
		return "awaiting_location"
	case AwaitingConfirmation:
		return "awaiting_confirmation"
	}
	return "unknown"
}

// Action is a user-facing control. Its value doubles as callback data.
type Action string

const (
	ActionStartStory     Action = "start_story"
	ActionAddMore        Action = "add_more"
	ActionAddLocation    Action = "add_location"
	ActionShareLocation  Action = "share_location"
	ActionFinish         Action = "finish_story"
	ActionCancel         Action = "cancel_story"
	ActionBackToEditing  Action = "back_to_editing"
	ActionSendAttributed Action = "send_public"
	ActionSendAnonymous  Action = "send_anonymous"
)

// ActionsFor returns the controls that are legal once a draft sits in p.
func ActionsFor(p Phase) []Action {
	switch p {
	case AwaitingContent:
		return []Action{ActionAddMore, ActionAddLocation, ActionFinish, ActionCancel}
	case AwaitingLocation:
		return []Action{ActionShareLocation, ActionCancel}
	case AwaitingConfirmation:
		return []Action{ActionSendAttributed, ActionSendAnonymous, ActionBackToEditing, ActionCancel}
	}
	return nil
}

// AcceptsContent reports whether content items may be appended in p.
func (p Phase) AcceptsContent() bool { return p == AwaitingContent }

// AcceptsLocation reports whether a location may be stored in p.
func (p Phase) AcceptsLocation() bool { return p == AwaitingLocation }
