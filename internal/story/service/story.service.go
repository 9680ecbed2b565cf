package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storyarchive/internal/story/model"
	"storyarchive/pkg/logger"
	"storyarchive/pkg/messages"
	"storyarchive/pkg/metrics"
	"storyarchive/store"

	"github.com/google/uuid"
)

const (
	excerptRunes   = 50
	journalTimeout = 5 * time.Second
)

// Gateway is the chat transport used to reach the story's author.
type Gateway interface {
	Prompt(ctx context.Context, ownerID int64, text string, actions []model.Action) error
	Notify(ctx context.Context, ownerID int64, text string) error
}

// Dispatcher republishes a taken draft to the archive.
type Dispatcher interface {
	Dispatch(ctx context.Context, storyID string, draft model.Draft, mode model.Visibility) error
}

type Journal interface {
	Record(ctx context.Context, ev model.DispatchEvent) error
}

type EventSink interface {
	Publish(ev model.DispatchEvent)
}

// StoryService turns inbound chat events into draft store operations and
// tells the user what they can do next.
type StoryService struct {
	Drafts     *store.DraftStore
	Gateway    Gateway
	Dispatcher Dispatcher
	Texts      *messages.Catalog
	Metrics    *metrics.Metrics
	Journal    Journal   // optional
	Events     EventSink // optional

	now   func() time.Time
	newID func() string
}

func NewStoryService(drafts *store.DraftStore, gateway Gateway, dispatcher Dispatcher, texts *messages.Catalog, m *metrics.Metrics) *StoryService {
	return &StoryService{
		Drafts:     drafts,
		Gateway:    gateway,
		Dispatcher: dispatcher,
		Texts:      texts,
		Metrics:    m,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// StartStory opens a fresh draft, discarding any unsent one. The returned
// error is non-nil when the user could not be prompted in private chat; the
// draft is kept so they can continue once they open the chat.
func (s *StoryService) StartStory(ctx context.Context, owner model.Owner) error {
	s.Drafts.StartDraft(owner)
	s.Metrics.DraftsStarted.Inc()
	logger.Sugar.Debugw("Draft started", "owner_id", owner.ID)
	return s.Gateway.Prompt(ctx, owner.ID, s.Texts.StoryStarted, model.ActionsFor(model.AwaitingContent))
}

func (s *StoryService) SubmitContent(ctx context.Context, ownerID int64, item model.ContentItem) error {
	if item.Kind == model.KindAudio && item.Meta.Title == "" {
		item.Meta.Title = s.Texts.UntitledAudio
	}
	n, err := s.Drafts.AppendItem(ownerID, item)
	if err != nil {
		return s.reject(ctx, ownerID, err)
	}
	s.Metrics.ItemsAppended.WithLabelValues(item.Kind.String()).Inc()
	return s.Gateway.Prompt(ctx, ownerID, fmt.Sprintf(s.Texts.ItemAdded, n), model.ActionsFor(model.AwaitingContent))
}

func (s *StoryService) SubmitLocation(ctx context.Context, ownerID int64, loc model.Location) error {
	if err := s.Drafts.SetLocation(ownerID, loc); err != nil {
		return s.reject(ctx, ownerID, err)
	}
	return s.Gateway.Prompt(ctx, ownerID, s.Texts.LocationAdded, model.ActionsFor(model.AwaitingContent))
}

func (s *StoryService) RequestAddMore(ctx context.Context, ownerID int64) error {
	if _, err := s.Drafts.ResumeContent(ownerID); err != nil {
		return s.reject(ctx, ownerID, err)
	}
	return s.Gateway.Prompt(ctx, ownerID, s.Texts.SendMore, model.ActionsFor(model.AwaitingContent))
}

func (s *StoryService) RequestAddLocation(ctx context.Context, ownerID int64) error {
	if err := s.Drafts.RequestLocationPhase(ownerID); err != nil {
		return s.reject(ctx, ownerID, err)
	}
	return s.Gateway.Prompt(ctx, ownerID, s.Texts.LocationRequest, model.ActionsFor(model.AwaitingLocation))
}

// RequestFinish moves the draft to confirmation and shows a preview.
func (s *StoryService) RequestFinish(ctx context.Context, ownerID int64) error {
	n, err := s.Drafts.RequestConfirmationPhase(ownerID)
	if err != nil {
		return s.reject(ctx, ownerID, err)
	}
	text := fmt.Sprintf(s.Texts.Preview.Header, n) + s.Texts.Preview.Footer
	if snap, err := s.Drafts.Snapshot(ownerID); err == nil {
		text = s.preview(snap)
	}
	return s.Gateway.Prompt(ctx, ownerID, text, model.ActionsFor(model.AwaitingConfirmation))
}

func (s *StoryService) RequestCancel(ctx context.Context, ownerID int64) error {
	s.Drafts.CancelDraft(ownerID)
	return s.Gateway.Prompt(ctx, ownerID, s.Texts.Cancelled, []model.Action{model.ActionStartStory})
}

func (s *StoryService) RequestBackToEditing(ctx context.Context, ownerID int64) error {
	if err := s.Drafts.ReturnToEditing(ownerID); err != nil {
		return s.reject(ctx, ownerID, err)
	}
	return s.Gateway.Prompt(ctx, ownerID, s.Texts.BackToEditing, model.ActionsFor(model.AwaitingContent))
}

// ConfirmSend takes the draft out of the store and publishes it. Once the
// take succeeds the draft is gone: a failed publication is reported to the
// user and operators but cannot be retried.
func (s *StoryService) ConfirmSend(ctx context.Context, ownerID int64, mode model.Visibility) error {
	draft, err := s.Drafts.TakeForDispatch(ownerID)
	if err != nil {
		return s.reject(ctx, ownerID, err)
	}

	storyID := s.newID()
	started := s.now()
	dispatchErr := s.Dispatcher.Dispatch(ctx, storyID, draft, mode)
	finished := s.now()
	s.Metrics.DispatchTime.Observe(finished.Sub(started).Seconds())

	ev := model.DispatchEvent{
		StoryID:    storyID,
		Visibility: mode.String(),
		Status:     model.StatusPublished,
		Items:      len(draft.Items),
		Emitted:    len(draft.Items),
		CreatedAt:  draft.CreatedAt,
		FinishedAt: finished,
	}
	if mode == model.Attributed {
		ev.OwnerID = draft.OwnerID
	}

	var de *model.DispatchError
	if dispatchErr != nil {
		ev.Status = model.StatusFailed
		ev.Error = dispatchErr.Error()
		ev.Emitted = 0
		if errors.As(dispatchErr, &de) {
			ev.Emitted = de.Emitted
		}
	}
	s.Metrics.Dispatches.WithLabelValues(ev.Visibility, ev.Status).Inc()
	s.record(ctx, ev)

	if dispatchErr != nil {
		logger.Sugar.Errorw("Story lost during dispatch",
			"story_id", storyID, "visibility", ev.Visibility,
			"emitted", ev.Emitted, "items", ev.Items, "error", dispatchErr)
		s.Metrics.StoreErrors.WithLabelValues("dispatch_failed").Inc()
		text := fmt.Sprintf(s.Texts.Errors.DispatchFailed, ev.Emitted, ev.Items)
		if err := s.Gateway.Notify(ctx, ownerID, text); err != nil {
			logger.Sugar.Warnf("Could not tell owner about lost story %s: %v", storyID, err)
		}
		return dispatchErr
	}

	text := s.Texts.SentAttributed
	if mode == model.Anonymous {
		text = s.Texts.SentAnonymous
	}
	return s.Gateway.Prompt(ctx, ownerID, text, []model.Action{model.ActionStartStory})
}

// record journals and broadcasts ev. The journal write outlives a cancelled
// request context so lost stories are always on record.
func (s *StoryService) record(ctx context.Context, ev model.DispatchEvent) {
	if s.Journal != nil {
		jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
		if err := s.Journal.Record(jctx, ev); err != nil {
			logger.Sugar.Warnf("Dispatch %s not journaled: %v", ev.StoryID, err)
		}
		cancel()
	}
	if s.Events != nil {
		s.Events.Publish(ev)
	}
}

// reject tells the user why err happened and returns err unchanged.
func (s *StoryService) reject(ctx context.Context, ownerID int64, err error) error {
	s.Metrics.StoreErrors.WithLabelValues(reason(err)).Inc()
	if nerr := s.Gateway.Notify(ctx, ownerID, s.ErrorText(err)); nerr != nil {
		logger.Sugar.Warnf("Could not notify %d about %v: %v", ownerID, err, nerr)
	}
	return err
}

// ErrorText is the user-facing message for a store error.
func (s *StoryService) ErrorText(err error) string {
	e := s.Texts.Errors
	var pe *model.PhaseError
	switch {
	case errors.Is(err, model.ErrNoActiveDraft):
		return e.NoActiveDraft
	case errors.As(err, &pe):
		switch pe.Got {
		case model.AwaitingLocation:
			return e.WrongPhaseLocation
		case model.AwaitingConfirmation:
			return e.WrongPhaseConfirmation
		default:
			return e.WrongPhaseContent
		}
	case errors.Is(err, model.ErrEmptyDraft):
		return e.EmptyDraft
	}
	return e.Internal
}

func reason(err error) string {
	switch {
	case errors.Is(err, model.ErrNoActiveDraft):
		return "no_active_draft"
	case errors.Is(err, model.ErrWrongPhase):
		return "wrong_phase"
	case errors.Is(err, model.ErrEmptyDraft):
		return "empty_draft"
	}
	return "internal"
}

func (s *StoryService) preview(d model.Draft) string {
	p := s.Texts.Preview
	var b strings.Builder
	fmt.Fprintf(&b, p.Header, len(d.Items))
	for i, item := range d.Items {
		label := s.Texts.Kind(item.Kind.String())
		fmt.Fprintf(&b, p.Line, i+1, label.Icon, label.Name, s.detail(item))
	}
	if d.Location != nil {
		b.WriteString(p.WithLocation)
	}
	b.WriteString(p.Footer)
	return b.String()
}

func (s *StoryService) detail(item model.ContentItem) string {
	p := s.Texts.Preview
	switch item.Kind {
	case model.KindText:
		return fmt.Sprintf(p.TextDetail, excerpt(item.Meta.Text, excerptRunes))
	case model.KindVoice, model.KindVideo, model.KindVideoNote:
		return fmt.Sprintf(p.DurationDetail, int(item.Meta.Duration/time.Second))
	case model.KindDocument:
		return fmt.Sprintf(p.NameDetail, item.Meta.FileName)
	case model.KindAudio:
		return fmt.Sprintf(p.NameDetail, item.Meta.Title)
	case model.KindPhoto:
		return ""
	}
	return ""
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
