package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storyarchive/internal/story/model"
	"storyarchive/pkg/messages"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func TestPromptInlineKeyboard(t *testing.T) {
	bot := &fakeBot{}
	texts := messages.Default()
	g := NewGateway(bot, texts)

	require.NoError(t, g.Prompt(context.Background(), 42, "hi", model.ActionsFor(model.AwaitingConfirmation)))
	require.Len(t, bot.sent, 1)

	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 4)
	assert.Equal(t, texts.Button("send_public"), kb.InlineKeyboard[0][0].Text)
	require.NotNil(t, kb.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, "send_anonymous", *kb.InlineKeyboard[1][0].CallbackData)
}

func TestPromptLocationKeyboard(t *testing.T) {
	bot := &fakeBot{}
	g := NewGateway(bot, messages.Default())

	require.NoError(t, g.Prompt(context.Background(), 42, "where?", model.ActionsFor(model.AwaitingLocation)))
	msg := bot.sent[0].(tgbotapi.MessageConfig)
	kb, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.Keyboard, 2)
	assert.True(t, kb.Keyboard[0][0].RequestLocation)
	assert.Equal(t, "/cancel", kb.Keyboard[1][0].Text)
	assert.True(t, kb.OneTimeKeyboard)
}

func TestPromptUnreachable(t *testing.T) {
	bot := &fakeBot{err: &tgbotapi.Error{Code: 403, Message: "Forbidden: bot can't initiate conversation with a user"}}
	g := NewGateway(bot, messages.Default())

	err := g.Prompt(context.Background(), 42, "hi", nil)
	assert.ErrorIs(t, err, ErrRecipientUnreachable)

	bot.err = errors.New("network down")
	err = g.Notify(context.Background(), 42, "hi")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrRecipientUnreachable)
}

func TestArchiveCopiesWithoutForwarding(t *testing.T) {
	bot := &fakeBot{}
	a := NewArchive(bot, -100123)
	ctx := context.Background()

	require.NoError(t, a.SendText(ctx, "header"))
	require.NoError(t, a.CopyItem(ctx, model.SourceRef{ChatID: 42, MessageID: 7}, "📷 Part 2:"))
	require.NoError(t, a.SendLocation(ctx, 10, 20))
	require.Len(t, bot.sent, 3)

	cp, ok := bot.sent[1].(tgbotapi.CopyMessageConfig)
	require.True(t, ok, "media must be copied, not forwarded")
	assert.Equal(t, int64(-100123), cp.ChatID)
	assert.Equal(t, int64(42), cp.FromChatID)
	assert.Equal(t, 7, cp.MessageID)
	assert.Equal(t, "📷 Part 2:", cp.Caption)

	loc := bot.sent[2].(tgbotapi.LocationConfig)
	assert.Equal(t, 10.0, loc.Latitude)
	assert.Equal(t, 20.0, loc.Longitude)
}

func TestArchiveHonoursContext(t *testing.T) {
	bot := &fakeBot{}
	a := NewArchive(bot, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, a.SendText(ctx, "x"), context.Canceled)
	assert.Empty(t, bot.sent)
}

// stallingAPI answers getMe and holds every other method until the test ends.
func stallingAPI(t *testing.T) *tgbotapi.BotAPI {
	t.Helper()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"archive","username":"archive_bot"}}`))
			return
		}
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"channel"}}}`))
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint("123:abc", srv.URL+"/bot%s/%s")
	require.NoError(t, err)
	return bot
}

func TestArchiveAbandonsStalledCall(t *testing.T) {
	a := NewArchive(stallingAPI(t), -100123)

	calls := map[string]func(ctx context.Context) error{
		"text": func(ctx context.Context) error { return a.SendText(ctx, "header") },
		"copy": func(ctx context.Context) error {
			return a.CopyItem(ctx, model.SourceRef{ChatID: 42, MessageID: 7}, "")
		},
		"location": func(ctx context.Context) error { return a.SendLocation(ctx, 1, 2) },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			start := time.Now()
			err := call(ctx)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
			assert.Less(t, time.Since(start), time.Second)
		})
	}
}

func TestGatewayAbandonsStalledCall(t *testing.T) {
	g := NewGateway(stallingAPI(t), messages.Default())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := g.Notify(ctx, 42, "hi")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrRecipientUnreachable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestLocationKeyboardIsRemovedOnNextPrompt(t *testing.T) {
	bot := &fakeBot{}
	texts := messages.Default()
	g := NewGateway(bot, texts)
	ctx := context.Background()

	require.NoError(t, g.Prompt(ctx, 42, "where?", model.ActionsFor(model.AwaitingLocation)))
	require.NoError(t, g.Prompt(ctx, 42, "send more", model.ActionsFor(model.AwaitingContent)))
	require.Len(t, bot.sent, 3)

	closing := bot.sent[1].(tgbotapi.MessageConfig)
	assert.Equal(t, texts.KeyboardClosed, closing.Text)
	remove, ok := closing.ReplyMarkup.(tgbotapi.ReplyKeyboardRemove)
	require.True(t, ok)
	assert.True(t, remove.RemoveKeyboard)

	next := bot.sent[2].(tgbotapi.MessageConfig)
	assert.Equal(t, "send more", next.Text)
	_, ok = next.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.True(t, ok)

	require.NoError(t, g.Prompt(ctx, 42, "again", model.ActionsFor(model.AwaitingContent)))
	assert.Len(t, bot.sent, 4, "the keyboard is removed only once")

	require.NoError(t, g.Prompt(ctx, 7, "other owner", model.ActionsFor(model.AwaitingContent)))
	assert.Len(t, bot.sent, 5)
}
