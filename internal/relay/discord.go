package relay

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"chatbridge/internal/domain"
)

// Attachment categories for the Telegram send path.
const (
	kindPhoto    = "photo"
	kindVideo    = "video"
	kindDocument = "document"
)

// classifyAttachment maps a declared MIME type onto a Telegram send
// primitive. Unknown or absent types go out as documents.
func classifyAttachment(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return kindPhoto
	case strings.HasPrefix(contentType, "video/"):
		return kindVideo
	default:
		return kindDocument
	}
}

// HandleDiscordMessage relays one new Discord message to Telegram.
func (e *Engine) HandleDiscordMessage(ctx context.Context, msg domain.DiscordMessage) {
	defer e.observeLatency(time.Now())

	// Our own sends and webhook posts (Telegram content we relayed in)
	// must not bounce back.
	if msg.FromSelf || msg.FromWebhook {
		return
	}
	if msg.ChannelID != e.discordChannelID {
		return
	}

	replyTo := e.resolveTelegramReplyTarget(msg.ReplyToID)
	src := domain.DiscordRef(msg.ID, msg.AuthorName, msg.AuthorID)

	var lastDest domain.MessageRef
	var relayed bool

	if msg.Content != "" {
		line := fmt.Sprintf("💬 <b>%s</b>: %s", msg.AuthorName, msg.Content)
		res, err := e.telegram.SendText(ctx, e.telegramChatID, line, replyTo)
		if err != nil || !res.OK {
			e.sendFailures.Inc()
			e.logger.Error("telegram text send failed",
				"discord_id", msg.ID, "err", err)
			e.logHistory(ctx, domain.RelayRecord{
				Direction: domain.DirectionDiscordToTelegram,
				SourceID:  msg.ID, Kind: "text", Author: msg.AuthorName,
			})
		} else {
			lastDest = domain.TelegramRef(strconv.Itoa(res.MessageID), msg.AuthorName, msg.AuthorID)
			relayed = true
			e.correlateUnit(src, lastDest)
			e.relayedToTelegram.Inc()
			e.logHistory(ctx, domain.RelayRecord{
				Direction: domain.DirectionDiscordToTelegram,
				SourceID:  msg.ID, DestID: lastDest.ID,
				Kind: "text", Author: msg.AuthorName, OK: true,
			})
		}
	}

	// Once attachments are in play the caption carries the text; it is
	// never sent a second time as a standalone message.
	caption := ""
	if msg.Content != "" {
		caption = fmt.Sprintf("<b>%s</b>: %s", msg.AuthorName, msg.Content)
	}

	for _, att := range msg.Attachments {
		kind := classifyAttachment(att.ContentType)

		var res domain.SendResult
		var err error
		switch kind {
		case kindPhoto:
			res, err = e.telegram.SendPhoto(ctx, e.telegramChatID, att.URL, caption, replyTo)
		case kindVideo:
			res, err = e.telegram.SendVideo(ctx, e.telegramChatID, att.URL, caption, replyTo)
		default:
			res, err = e.telegram.SendDocument(ctx, e.telegramChatID, att.URL, caption, replyTo)
		}

		if err != nil || !res.OK {
			e.sendFailures.Inc()
			e.logger.Error("telegram attachment send failed",
				"discord_id", msg.ID, "kind", kind, "file", att.Filename, "err", err)
			e.logHistory(ctx, domain.RelayRecord{
				Direction: domain.DirectionDiscordToTelegram,
				SourceID:  msg.ID, Kind: kind, Author: msg.AuthorName,
			})
			continue
		}

		lastDest = domain.TelegramRef(strconv.Itoa(res.MessageID), msg.AuthorName, msg.AuthorID)
		relayed = true
		e.correlateUnit(src, lastDest)
		e.relayedToTelegram.Inc()
		e.logHistory(ctx, domain.RelayRecord{
			Direction: domain.DirectionDiscordToTelegram,
			SourceID:  msg.ID, DestID: lastDest.ID,
			Kind: kind, Author: msg.AuthorName, OK: true,
		})
	}

	if relayed && !e.correlateAll {
		e.record(src, lastDest)
	}
}

// HandleDiscordDelete propagates a Discord deletion to Telegram. The
// correlation is removed only after Telegram confirms the delete, so a
// failed delete can be retried by a duplicate event.
func (e *Engine) HandleDiscordDelete(ctx context.Context, del domain.DiscordDelete) {
	if del.FromWebhook || del.ChannelID != e.discordChannelID {
		return
	}

	ref := domain.DiscordRef(del.ID, "", "")
	ctr, ok := e.store.Lookup(ref)
	if !ok {
		return
	}

	telegramID, err := strconv.Atoi(ctr.ID)
	if err != nil {
		e.logger.Error("correlated telegram id is not numeric", "id", ctr.ID)
		return
	}

	if err := e.telegram.DeleteMessage(ctx, e.telegramChatID, telegramID); err != nil {
		e.logger.Warn("telegram delete failed, keeping correlation",
			"discord_id", del.ID, "telegram_id", telegramID, "err", err)
		return
	}

	e.remove(ref)
	e.deletesOut.Inc()
	e.logHistory(ctx, domain.RelayRecord{
		Direction: domain.DirectionDiscordToTelegram,
		SourceID:  del.ID, DestID: ctr.ID, Kind: "delete", OK: true,
	})
	e.logger.Info("message deleted in telegram", "telegram_id", telegramID)
}

// resolveTelegramReplyTarget maps a referenced Discord message onto its
// Telegram counterpart. A miss is not an error; the send goes unthreaded.
func (e *Engine) resolveTelegramReplyTarget(replyToID string) int {
	if replyToID == "" {
		return 0
	}
	ctr, ok := e.store.Lookup(domain.DiscordRef(replyToID, "", ""))
	if !ok || ctr.Platform != domain.PlatformTelegram {
		return 0
	}
	id, err := strconv.Atoi(ctr.ID)
	if err != nil {
		return 0
	}
	return id
}
