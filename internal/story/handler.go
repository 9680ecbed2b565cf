package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storyarchive/internal/story/model"
	"storyarchive/pkg/logger"
	"storyarchive/pkg/messages"
	"storyarchive/telegram"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// StoryService is what the handler drives. *service.StoryService satisfies it.
type StoryService interface {
	StartStory(ctx context.Context, owner model.Owner) error
	SubmitContent(ctx context.Context, ownerID int64, item model.ContentItem) error
	SubmitLocation(ctx context.Context, ownerID int64, loc model.Location) error
	RequestAddMore(ctx context.Context, ownerID int64) error
	RequestAddLocation(ctx context.Context, ownerID int64) error
	RequestFinish(ctx context.Context, ownerID int64) error
	RequestCancel(ctx context.Context, ownerID int64) error
	RequestBackToEditing(ctx context.Context, ownerID int64) error
	ConfirmSend(ctx context.Context, ownerID int64, mode model.Visibility) error
}

// Responder answers the user directly, outside the story flow.
type Responder interface {
	Prompt(ctx context.Context, ownerID int64, text string, actions []model.Action) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}

type StoryHandler struct {
	Service StoryService
	Chat    Responder
	Texts   *messages.Catalog

	BotUsername   string
	PublicGroupID int64 // zero accepts the start button from any group
}

func NewStoryHandler(svc StoryService, chat Responder, texts *messages.Catalog) *StoryHandler {
	return &StoryHandler{Service: svc, Chat: chat, Texts: texts}
}

// Listen handles updates one at a time until ctx is done or the channel is
// closed.
func (h *StoryHandler) Listen(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			h.HandleUpdate(ctx, update)
		}
	}
}

func (h *StoryHandler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}
}

func (h *StoryHandler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil || !msg.Chat.IsPrivate() || msg.From == nil {
		return
	}
	ownerID := msg.From.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case telegram.CommandStart:
			h.logErr("welcome", ownerID, h.Chat.Prompt(ctx, msg.Chat.ID, h.Texts.Welcome, []model.Action{model.ActionStartStory}))
		case telegram.CommandCancel:
			h.logErr("cancel", ownerID, h.Service.RequestCancel(ctx, ownerID))
		}
		return
	}

	if msg.Location != nil {
		loc := model.Location{
			Latitude:  msg.Location.Latitude,
			Longitude: msg.Location.Longitude,
			Source:    model.SourceRef{ChatID: msg.Chat.ID, MessageID: msg.MessageID},
		}
		h.logErr("location", ownerID, h.Service.SubmitLocation(ctx, ownerID, loc))
		return
	}

	item, ok := ContentFrom(msg)
	if !ok {
		logger.Sugar.Debugw("Ignoring unsupported message", "owner_id", ownerID, "message_id", msg.MessageID)
		return
	}
	h.logErr("content", ownerID, h.Service.SubmitContent(ctx, ownerID, item))
}

func (h *StoryHandler) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil {
		return
	}
	ownerID := cq.From.ID
	action := model.Action(cq.Data)
	private := cq.Message == nil || cq.Message.Chat == nil || cq.Message.Chat.IsPrivate()

	if action == model.ActionStartStory {
		h.startFromButton(ctx, cq, private)
		return
	}
	if !private {
		h.answer(ctx, cq.ID, "", false)
		return
	}

	var (
		err  error
		done string
	)
	switch action {
	case model.ActionAddMore:
		err = h.Service.RequestAddMore(ctx, ownerID)
	case model.ActionAddLocation:
		err = h.Service.RequestAddLocation(ctx, ownerID)
	case model.ActionFinish:
		err = h.Service.RequestFinish(ctx, ownerID)
	case model.ActionBackToEditing:
		err = h.Service.RequestBackToEditing(ctx, ownerID)
	case model.ActionCancel:
		err = h.Service.RequestCancel(ctx, ownerID)
		done = h.Texts.Callbacks.Cancelled
	case model.ActionSendAttributed:
		err = h.Service.ConfirmSend(ctx, ownerID, model.Attributed)
		done = h.Texts.Callbacks.Sent
	case model.ActionSendAnonymous:
		err = h.Service.ConfirmSend(ctx, ownerID, model.Anonymous)
		done = h.Texts.Callbacks.Sent
	default:
		logger.Sugar.Warnw("Unknown callback", "owner_id", ownerID, "data", cq.Data)
	}
	h.logErr(string(action), ownerID, err)

	switch {
	case err == nil:
		h.answer(ctx, cq.ID, done, false)
	case errors.Is(err, model.ErrNoActiveDraft):
		h.answer(ctx, cq.ID, h.Texts.Errors.StoryNotFound, false)
	default:
		// The service already explained the failure in chat.
		h.answer(ctx, cq.ID, "", false)
	}
}

func (h *StoryHandler) startFromButton(ctx context.Context, cq *tgbotapi.CallbackQuery, private bool) {
	if !private && h.PublicGroupID != 0 && cq.Message.Chat.ID != h.PublicGroupID {
		h.answer(ctx, cq.ID, h.Texts.StartNotHere, true)
		return
	}

	err := h.Service.StartStory(ctx, OwnerFrom(cq.From))
	switch {
	case errors.Is(err, telegram.ErrRecipientUnreachable):
		logger.Sugar.Infow("Owner has no private chat with the bot", "owner_id", cq.From.ID)
		h.answer(ctx, cq.ID, fmt.Sprintf(h.Texts.UnreachableAlert, h.BotUsername), true)
	case err != nil:
		logger.Sugar.Errorw("Could not start story", "owner_id", cq.From.ID, "error", err)
		h.answer(ctx, cq.ID, h.Texts.Errors.Internal, true)
	case private:
		h.answer(ctx, cq.ID, "", false)
	default:
		h.answer(ctx, cq.ID, h.Texts.StartedAlert, true)
	}
}

func (h *StoryHandler) answer(ctx context.Context, callbackID, text string, alert bool) {
	if err := h.Chat.AnswerCallback(ctx, callbackID, text, alert); err != nil {
		logger.Sugar.Warnf("Failed to answer callback %s: %v", callbackID, err)
	}
}

// logErr logs failures the user was not already told about. Domain errors
// are expected traffic.
func (h *StoryHandler) logErr(op string, ownerID int64, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, model.ErrNoActiveDraft) || errors.Is(err, model.ErrWrongPhase) || errors.Is(err, model.ErrEmptyDraft) {
		logger.Sugar.Debugw("Rejected", "op", op, "owner_id", ownerID, "error", err)
		return
	}
	logger.Sugar.Errorw("Update failed", "op", op, "owner_id", ownerID, "error", err)
}

// OwnerFrom builds the story owner from a Telegram user.
func OwnerFrom(u *tgbotapi.User) model.Owner {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	return model.Owner{ID: u.ID, DisplayName: name, Handle: u.UserName}
}

// ContentFrom maps a message to a content item. ok is false for messages
// that carry nothing a story can hold.
func ContentFrom(msg *tgbotapi.Message) (model.ContentItem, bool) {
	item := model.ContentItem{
		Source: model.SourceRef{ChatID: msg.Chat.ID, MessageID: msg.MessageID},
		Meta:   model.Metadata{Caption: msg.Caption},
	}
	seconds := func(n int) time.Duration { return time.Duration(n) * time.Second }

	switch {
	case msg.Text != "":
		item.Kind = model.KindText
		item.Meta.Text = msg.Text
	case len(msg.Photo) > 0:
		item.Kind = model.KindPhoto
	case msg.Video != nil:
		item.Kind = model.KindVideo
		item.Meta.Duration = seconds(msg.Video.Duration)
	case msg.Voice != nil:
		item.Kind = model.KindVoice
		item.Meta.Duration = seconds(msg.Voice.Duration)
	case msg.VideoNote != nil:
		item.Kind = model.KindVideoNote
		item.Meta.Duration = seconds(msg.VideoNote.Duration)
	case msg.Document != nil:
		item.Kind = model.KindDocument
		item.Meta.FileName = msg.Document.FileName
	case msg.Audio != nil:
		item.Kind = model.KindAudio
		item.Meta.Title = msg.Audio.Title
		item.Meta.Duration = seconds(msg.Audio.Duration)
	default:
		return model.ContentItem{}, false
	}
	return item, true
}
