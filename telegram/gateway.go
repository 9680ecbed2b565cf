package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"storyarchive/internal/story/model"
	"storyarchive/pkg/messages"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrRecipientUnreachable means Telegram refused to deliver to the user,
// usually because they never opened a private chat with the bot.
var ErrRecipientUnreachable = errors.New("recipient unreachable")

// Sender is the subset of *tgbotapi.BotAPI the gateway needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Gateway talks to users in their private chat.
type Gateway struct {
	bot   Sender
	texts *messages.Catalog

	mu      sync.Mutex
	replyKB map[int64]bool // owners currently shown the location reply keyboard
}

func NewGateway(bot Sender, texts *messages.Catalog) *Gateway {
	return &Gateway{bot: bot, texts: texts, replyKB: make(map[int64]bool)}
}

// Prompt sends text with a keyboard offering exactly actions. A location
// reply keyboard left over from an earlier prompt is removed first.
func (g *Gateway) Prompt(ctx context.Context, ownerID int64, text string, actions []model.Action) error {
	markup := g.keyboard(actions)
	_, isReply := markup.(tgbotapi.ReplyKeyboardMarkup)

	if !isReply && g.takeReplyKeyboard(ownerID) {
		closing := tgbotapi.NewMessage(ownerID, g.texts.KeyboardClosed)
		closing.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
		if err := g.send(ctx, closing); err != nil {
			return err
		}
	}

	msg := tgbotapi.NewMessage(ownerID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if err := g.send(ctx, msg); err != nil {
		return err
	}
	if isReply {
		g.mu.Lock()
		g.replyKB[ownerID] = true
		g.mu.Unlock()
	}
	return nil
}

// Notify sends a plain corrective message.
func (g *Gateway) Notify(ctx context.Context, ownerID int64, text string) error {
	return g.send(ctx, tgbotapi.NewMessage(ownerID, text))
}

// AnswerCallback acknowledges a button press, optionally as an alert.
func (g *Gateway) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	return classify(do(ctx, func() error {
		_, err := g.bot.Request(cb)
		return err
	}))
}

func (g *Gateway) send(ctx context.Context, c tgbotapi.Chattable) error {
	return classify(do(ctx, func() error {
		_, err := g.bot.Send(c)
		return err
	}))
}

func (g *Gateway) takeReplyKeyboard(ownerID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	shown := g.replyKB[ownerID]
	delete(g.replyKB, ownerID)
	return shown
}

// keyboard renders actions. Location sharing needs a reply keyboard, which
// cannot be mixed with inline buttons, so cancel becomes a /cancel button.
func (g *Gateway) keyboard(actions []model.Action) interface{} {
	if len(actions) == 0 {
		return nil
	}

	for _, a := range actions {
		if a != model.ActionShareLocation {
			continue
		}
		rows := [][]tgbotapi.KeyboardButton{
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonLocation(g.texts.Button(string(model.ActionShareLocation)))),
		}
		for _, other := range actions {
			if other == model.ActionCancel {
				rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("/"+CommandCancel)))
			}
		}
		kb := tgbotapi.NewReplyKeyboard(rows...)
		kb.ResizeKeyboard = true
		kb.OneTimeKeyboard = true
		return kb
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(actions))
	for _, a := range actions {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(g.texts.Button(string(a)), string(a)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// Archive republishes stories into the archive chat.
type Archive struct {
	bot    Sender
	chatID int64
}

func NewArchive(bot Sender, chatID int64) *Archive {
	return &Archive{bot: bot, chatID: chatID}
}

func (a *Archive) SendText(ctx context.Context, text string) error {
	err := do(ctx, func() error {
		_, err := a.bot.Send(tgbotapi.NewMessage(a.chatID, text))
		return err
	})
	if err != nil {
		return fmt.Errorf("send text to archive: %w", err)
	}
	return nil
}

// CopyItem uses copyMessage, which carries no "forwarded from" header.
func (a *Archive) CopyItem(ctx context.Context, src model.SourceRef, caption string) error {
	cfg := tgbotapi.NewCopyMessage(a.chatID, src.ChatID, src.MessageID)
	cfg.Caption = caption
	err := do(ctx, func() error {
		_, err := a.bot.Request(cfg)
		return err
	})
	if err != nil {
		return fmt.Errorf("copy message %d to archive: %w", src.MessageID, err)
	}
	return nil
}

func (a *Archive) SendLocation(ctx context.Context, latitude, longitude float64) error {
	err := do(ctx, func() error {
		_, err := a.bot.Send(tgbotapi.NewLocation(a.chatID, latitude, longitude))
		return err
	})
	if err != nil {
		return fmt.Errorf("send location to archive: %w", err)
	}
	return nil
}

// do runs call and returns as soon as either it finishes or ctx is done. The
// Bot API client takes no context, so an abandoned call keeps running until
// the HTTP client's own timeout; its message may still be delivered.
func do(ctx context.Context, call func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- call() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == 403 || strings.Contains(apiErr.Message, "chat not found")) {
		return fmt.Errorf("%w: %s", ErrRecipientUnreachable, apiErr.Message)
	}
	return err
}
