package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"storyarchive/internal/story/model"
	"storyarchive/pkg/logger"
	"storyarchive/pkg/messages"
)

// Telegram's limits in characters.
const (
	maxCaption = 1024
	maxText    = 4096
)

// Archive is the destination a story is republished to. Every call is one
// outbound emission.
type Archive interface {
	SendText(ctx context.Context, text string) error
	// CopyItem re-creates the referenced message without attribution. An
	// empty caption keeps the original one.
	CopyItem(ctx context.Context, src model.SourceRef, caption string) error
	SendLocation(ctx context.Context, latitude, longitude float64) error
}

type Dispatcher struct {
	archive Archive
	texts   *messages.Catalog
	timeout time.Duration
}

func New(archive Archive, texts *messages.Catalog, timeout time.Duration) *Dispatcher {
	return &Dispatcher{archive: archive, texts: texts, timeout: timeout}
}

// Dispatch republishes draft as header, items in order, location, footer.
// It stops at the first failed emission and returns a *model.DispatchError;
// nothing is retried. The whole sequence is bounded by the dispatcher timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, storyID string, draft model.Draft, mode model.Visibility) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	total := len(draft.Items)
	fail := func(stage model.Stage, emitted int, err error) error {
		return &model.DispatchError{StoryID: storyID, Stage: stage, Emitted: emitted, Total: total, Err: err}
	}

	if err := d.archive.SendText(ctx, d.Header(draft, mode)); err != nil {
		return fail(model.StageHeader, 0, err)
	}

	for i, item := range draft.Items {
		if err := d.emitItem(ctx, i+1, item); err != nil {
			return fail(model.StageItem, i, err)
		}
	}

	if draft.Location != nil {
		if err := d.archive.SendText(ctx, d.texts.Archive.Location); err != nil {
			return fail(model.StageLocation, total, err)
		}
		if err := d.archive.SendLocation(ctx, draft.Location.Latitude, draft.Location.Longitude); err != nil {
			return fail(model.StageLocation, total, err)
		}
	}

	if err := d.archive.SendText(ctx, d.texts.Archive.Footer); err != nil {
		return fail(model.StageFooter, total, err)
	}

	logger.Sugar.Infow("Story dispatched", "story_id", storyID, "visibility", mode.String(), "items", total)
	return nil
}

func (d *Dispatcher) emitItem(ctx context.Context, idx int, item model.ContentItem) error {
	label := d.texts.Kind(item.Kind.String())
	part := fmt.Sprintf(d.texts.Archive.PartMedia, label.Icon, idx)

	switch item.Kind {
	case model.KindText:
		text := fmt.Sprintf(d.texts.Archive.PartText, idx, item.Meta.Text)
		if utf8.RuneCountInString(text) <= maxText {
			return d.archive.SendText(ctx, text)
		}
		if err := d.archive.SendText(ctx, fmt.Sprintf(d.texts.Archive.PartTextLabel, idx)); err != nil {
			return err
		}
		return d.archive.SendText(ctx, item.Meta.Text)
	case model.KindVideoNote:
		// video notes cannot carry a caption
		if err := d.archive.SendText(ctx, part); err != nil {
			return err
		}
		return d.archive.CopyItem(ctx, item.Source, "")
	case model.KindPhoto, model.KindVideo, model.KindVoice, model.KindDocument, model.KindAudio:
		caption := part
		if item.Meta.Caption != "" {
			caption = part + "\n\n" + item.Meta.Caption
		}
		if utf8.RuneCountInString(caption) > maxCaption {
			if err := d.archive.SendText(ctx, part); err != nil {
				return err
			}
			return d.archive.CopyItem(ctx, item.Source, "")
		}
		return d.archive.CopyItem(ctx, item.Source, caption)
	default:
		return fmt.Errorf("unsupported content kind %d", int(item.Kind))
	}
}

// Header renders the opening block. Anonymous headers carry no identity.
func (d *Dispatcher) Header(draft model.Draft, mode model.Visibility) string {
	t := d.texts.Archive
	lines := make([]string, 0, 8)

	if mode == model.Anonymous {
		lines = append(lines, t.TitleAnonymous)
	} else {
		handle := draft.Handle
		if handle == "" {
			handle = t.NoHandle
		}
		lines = append(lines,
			t.TitleAttributed,
			fmt.Sprintf(t.Author, draft.DisplayName, handle),
			fmt.Sprintf(t.AuthorID, draft.OwnerID),
		)
	}

	lines = append(lines,
		fmt.Sprintf(t.Date, draft.CreatedAt.Format(t.DateLayout)),
		fmt.Sprintf(t.Items, len(draft.Items)),
	)
	if draft.Location != nil {
		lines = append(lines, t.WithLocation)
	}
	lines = append(lines, "", t.Separator)
	return strings.Join(lines, "\n")
}
