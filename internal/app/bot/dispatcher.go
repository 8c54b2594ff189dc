package bot

import (
	"context"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"prmonitor/internal/domain"
	"prmonitor/internal/domain/tracker"
)

const helpText = `<b>🤖 PR Monitor Help</b>

I track GitHub PRs and mirror review status into this chat.

<b>Reactions on a tracked message:</b>
❤️ reviewing · 👍 approve · 👌 comment · 😭 give up
💯 merged · 🍳 draft · 🙏 changes addressed

<b>Commands (reply to a tracked message):</b>
/review /approve /comment /giveup /merge /draft /addressed

<b>General:</b>
/upgrade (reply to a PR link) — replace the link with a tracked message
/help — this message`

// Dispatcher normalizes raw Telegram updates — reactions, reply
// commands, pasted PR links — into tracker signals and operations. The
// engine below it never learns which shape the input had.
type Dispatcher struct {
	svc  tracker.Service
	chat tracker.Messenger
	log  *zap.Logger
}

func NewDispatcher(svc tracker.Service, chat tracker.Messenger, log *zap.Logger) *Dispatcher {
	return &Dispatcher{svc: svc, chat: chat, log: log}
}

func (d *Dispatcher) Handle(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	switch {
	case update.MessageReaction != nil:
		d.handleReaction(ctx, update.MessageReaction)
	case update.Message != nil:
		d.handleMessage(ctx, update.Message)
	}
}

func (d *Dispatcher) handleReaction(ctx context.Context, upd *models.MessageReactionUpdated) {
	if upd.User == nil {
		return
	}
	user := displayName(upd.User)
	chatID := upd.Chat.ID
	messageID := int64(upd.MessageID)

	oldSet := emojiSet(upd.OldReaction)
	newSet := emojiSet(upd.NewReaction)

	for emoji := range newSet {
		if oldSet[emoji] {
			continue
		}
		if kind, ok := SignalForAddedReaction(emoji); ok {
			d.applySignal(ctx, chatID, messageID, user, kind)
		}
	}
	for emoji := range oldSet {
		if newSet[emoji] {
			continue
		}
		if kind, ok := SignalForRemovedReaction(emoji); ok {
			d.applySignal(ctx, chatID, messageID, user, kind)
		}
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg *models.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}
	text := msg.Text
	chatID := msg.Chat.ID

	switch {
	case strings.HasPrefix(text, "/help"), strings.HasPrefix(text, "/start"):
		if _, err := d.chat.Send(ctx, chatID, helpText); err != nil {
			d.log.Warn("help reply failed", zap.Error(err))
		}
		return

	case strings.HasPrefix(text, "/upgrade"):
		d.handleUpgrade(ctx, msg)
		return
	}

	if msg.ReplyToMessage != nil {
		if kind, ok := SignalForCommand(text); ok {
			d.applySignal(ctx, chatID, int64(msg.ReplyToMessage.ID), displayName(msg.From), kind)
			d.deleteQuietly(ctx, chatID, int64(msg.ID))
			return
		}
	}

	// A pasted PR link is replaced with a tracked message.
	if ref, number, ok := ParsePullURL(text); ok {
		d.upgrade(ctx, ref, number, chatID, int64(msg.ID))
	}
}

func (d *Dispatcher) handleUpgrade(ctx context.Context, msg *models.Message) {
	if msg.ReplyToMessage == nil {
		return
	}
	ref, number, ok := ParsePullURL(msg.ReplyToMessage.Text)
	if !ok {
		return
	}
	d.upgrade(ctx, ref, number, msg.Chat.ID, int64(msg.ReplyToMessage.ID), int64(msg.ID))
}

// upgrade tracks the referenced PR and removes the messages it grew out
// of. The original messages stay put when tracking fails, so a broken
// link never silently vanishes.
func (d *Dispatcher) upgrade(ctx context.Context, ref tracker.RepoRef, number int, chatID int64, replaced ...int64) {
	rec, err := d.svc.Track(ctx, ref, number)
	if domain.IsCode(err, domain.ErrorCodeAlreadyTracked) {
		for _, id := range replaced {
			d.deleteQuietly(ctx, chatID, id)
		}
		return
	}
	if err != nil {
		d.log.Warn("upgrade failed",
			zap.String("repo", ref.String()),
			zap.Int("number", number),
			zap.Error(err),
		)
		return
	}

	for _, id := range replaced {
		d.deleteQuietly(ctx, chatID, id)
	}
	d.log.Info("pr upgraded",
		zap.String("repo", rec.Repo),
		zap.Int("number", rec.Number),
	)
}

func (d *Dispatcher) applySignal(ctx context.Context, chatID, messageID int64, user string, kind tracker.SignalKind) {
	_, err := d.svc.ApplySignal(ctx, chatID, messageID, user, kind)
	switch {
	case err == nil:
	case domain.IsCode(err, domain.ErrorCodeNotFound):
		// Not a tracked message; nothing to do.
	case domain.IsCode(err, domain.ErrorCodeStaleWrite):
		d.log.Warn("signal dropped under contention",
			zap.Int64("chat_id", chatID),
			zap.Int64("message_id", messageID),
			zap.String("user", user),
			zap.String("signal", string(kind)),
		)
	default:
		d.log.Error("signal failed", zap.Error(err))
	}
}

func (d *Dispatcher) deleteQuietly(ctx context.Context, chatID, messageID int64) {
	if err := d.chat.Delete(ctx, chatID, messageID); err != nil && !domain.IsCode(err, domain.ErrorCodeMessageGone) {
		d.log.Warn("message delete failed", zap.Error(err))
	}
}

func emojiSet(reactions []models.ReactionType) map[string]bool {
	set := make(map[string]bool, len(reactions))
	for _, r := range reactions {
		if r.ReactionTypeEmoji != nil {
			set[r.ReactionTypeEmoji.Emoji] = true
		}
	}
	return set
}

func displayName(u *models.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}
