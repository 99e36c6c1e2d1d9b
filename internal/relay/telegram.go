package relay

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"chatbridge/internal/domain"
)

// HandleTelegramUpdate dispatches one poll update: deletions go to the
// delete path, new messages are relayed to Discord through the webhook.
func (e *Engine) HandleTelegramUpdate(ctx context.Context, upd domain.TelegramUpdate) {
	if upd.Deleted != nil {
		e.handleTelegramDelete(ctx, *upd.Deleted)
		return
	}
	if upd.Message != nil {
		e.handleTelegramMessage(ctx, *upd.Message)
	}
}

func (e *Engine) handleTelegramMessage(ctx context.Context, msg domain.TelegramMessage) {
	defer e.observeLatency(time.Now())

	if msg.ChatID != e.telegramChatID {
		return
	}

	name := displayName(msg.From)
	post := domain.WebhookPost{
		Username:  name,
		AvatarURL: e.resolveAvatar(ctx, msg.From.ID),
	}
	prefix := e.replyPrefix(msg.ReplyToID)

	var postID string
	var posted bool
	var kind string

	switch {
	case msg.Text != "":
		kind = "text"
		post.Content = prefix + msg.Text
		postID, posted = e.post(ctx, post)
	case len(msg.Photo) > 0:
		kind = "photo"
		postID, posted = e.postWithFile(ctx, post, largestPhoto(msg.Photo).FileID, prefix+msg.Caption)
	case msg.Video != nil:
		kind = "video"
		postID, posted = e.postWithFile(ctx, post, msg.Video.FileID, prefix+msg.Caption)
	case msg.Document != nil:
		kind = "document"
		postID, posted = e.postWithFile(ctx, post, msg.Document.FileID, prefix+msg.Caption)
	case msg.Voice != nil:
		kind = "voice"
		postID, posted = e.postWithFile(ctx, post, msg.Voice.FileID, prefix+"🎤 Audio")
	case msg.Animation != nil:
		kind = "animation"
		postID, posted = e.postWithFile(ctx, post, msg.Animation.FileID, prefix+msg.Caption)
	case msg.Sticker != nil:
		kind = "sticker"
		postID, posted = e.postSticker(ctx, post, *msg.Sticker, prefix)
	default:
		return
	}

	sourceID := strconv.Itoa(msg.ID)
	if !posted {
		e.sendFailures.Inc()
		e.logHistory(ctx, domain.RelayRecord{
			Direction: domain.DirectionTelegramToDiscord,
			SourceID:  sourceID, Kind: kind, Author: name,
		})
		return
	}
	if postID == "" {
		postID = e.nextPseudoID()
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	e.record(
		domain.TelegramRef(sourceID, name, userID),
		domain.RelayRef(postID, name, userID),
	)
	e.relayedToDiscord.Inc()
	e.logHistory(ctx, domain.RelayRecord{
		Direction: domain.DirectionTelegramToDiscord,
		SourceID:  sourceID, DestID: postID,
		Kind: kind, Author: name, OK: true,
	})
}

// handleTelegramDelete propagates a Telegram deletion. Direct correlations
// point at a native Discord message; the bot delete is tried first, with
// the webhook's self-service delete as fallback. Relay correlations are
// dropped without a platform call: the webhook identity offers no
// deletion path once the Telegram side is gone.
func (e *Engine) handleTelegramDelete(ctx context.Context, del domain.TelegramDelete) {
	if del.ChatID != 0 && del.ChatID != e.telegramChatID {
		return
	}

	ref := domain.TelegramRef(strconv.Itoa(del.MessageID), "", "")
	ctr, ok := e.store.Lookup(ref)
	if !ok {
		return
	}

	switch ctr.Platform {
	case domain.PlatformDiscord:
		if err := e.discord.Delete(ctx, e.discordChannelID, ctr.ID); err != nil {
			werr := e.webhook.DeletePost(ctx, ctr.ID)
			if werr != nil {
				e.logger.Warn("discord delete failed, keeping correlation",
					"discord_id", ctr.ID, "err", err, "webhook_err", werr)
				return
			}
		}
		e.remove(ref)
		e.deletesOut.Inc()
		e.logHistory(ctx, domain.RelayRecord{
			Direction: domain.DirectionTelegramToDiscord,
			SourceID:  ref.ID, DestID: ctr.ID, Kind: "delete", OK: true,
		})
		e.logger.Info("message deleted in discord", "discord_id", ctr.ID)
	case domain.PlatformRelay:
		e.remove(ref)
	}
}

// post sends through the webhook; a transport or status failure is
// logged and reported as not-posted.
func (e *Engine) post(ctx context.Context, post domain.WebhookPost) (string, bool) {
	id, err := e.webhook.Post(ctx, post)
	if err != nil {
		e.logger.Error("webhook post failed", "err", err)
		return "", false
	}
	return id, true
}

// postWithFile stages the Telegram file locally, posts it, and releases
// the temp file whether or not the post succeeded. A failed download
// degrades to a text-only post.
func (e *Engine) postWithFile(ctx context.Context, post domain.WebhookPost, fileID, content string) (string, bool) {
	path := e.fetchFile(ctx, fileID)
	defer e.media.Cleanup(path)

	post.FilePath = path
	post.Content = content
	return e.post(ctx, post)
}

// postSticker handles the sticker special cases: animated/video stickers
// use the thumbnail when one exists and degrade to a text placeholder
// otherwise; static stickers ship the sticker file itself.
func (e *Engine) postSticker(ctx context.Context, post domain.WebhookPost, st domain.Sticker, prefix string) (string, bool) {
	animated := st.IsAnimated || st.IsVideo

	fileID := st.FileID
	if animated {
		fileID = ""
		if st.Thumbnail != nil {
			fileID = st.Thumbnail.FileID
		}
	}

	var path string
	if fileID != "" {
		path = e.fetchFile(ctx, fileID)
	}

	if path == "" {
		if animated {
			emoji := st.Emoji
			if emoji == "" {
				emoji = "📷"
			}
			post.Content = prefix + "🎭 " + emoji
			return e.post(ctx, post)
		}
		e.logger.Warn("sticker download failed, skipping", "file_id", st.FileID)
		return "", false
	}

	defer e.media.Cleanup(path)
	post.FilePath = path
	post.Content = prefix
	return e.post(ctx, post)
}

// fetchFile resolves a file id and downloads it. Returns "" on any
// failure; callers degrade rather than abort.
func (e *Engine) fetchFile(ctx context.Context, fileID string) string {
	url, err := e.telegram.FileURL(ctx, fileID)
	if err != nil || url == "" {
		e.logger.Warn("file url resolution failed", "file_id", fileID, "err", err)
		return ""
	}
	path, err := e.media.Download(ctx, url)
	if err != nil {
		e.logger.Warn("file download failed", "file_id", fileID, "err", err)
		return ""
	}
	return path
}

// resolveAvatar returns the user's newest profile photo URL, or a
// deterministic placeholder keyed by the user id. It never fails, only
// degrades.
func (e *Engine) resolveAvatar(ctx context.Context, userID int64) string {
	placeholder := fmt.Sprintf("https://api.dicebear.com/7.x/initials/svg?seed=%d", userID)

	fileID, err := e.telegram.UserProfilePhoto(ctx, userID)
	if err != nil {
		e.logger.Warn("profile photo lookup failed", "user_id", userID, "err", err)
		return placeholder
	}
	if fileID == "" {
		return placeholder
	}
	url, err := e.telegram.FileURL(ctx, fileID)
	if err != nil || url == "" {
		return placeholder
	}
	return url
}

// replyPrefix builds the attribution line for a reply. Direct
// correlations keep the original author's name; relay correlations only
// know the message came from the webhook identity.
func (e *Engine) replyPrefix(replyToID int) string {
	if replyToID == 0 {
		return ""
	}
	ctr, ok := e.store.Lookup(domain.TelegramRef(strconv.Itoa(replyToID), "", ""))
	if !ok {
		return ""
	}
	switch ctr.Platform {
	case domain.PlatformDiscord:
		return fmt.Sprintf("> 💬 Replying to **%s**\n\n", ctr.AuthorName)
	case domain.PlatformRelay:
		return "> 💬 Replying to previous message\n\n"
	}
	return ""
}

// largestPhoto picks the highest-resolution size variant.
func largestPhoto(sizes []domain.PhotoSize) domain.PhotoSize {
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width > best.Width {
			best = s
		}
	}
	return best
}

func displayName(u domain.TelegramUser) string {
	if u.Username != "" {
		return u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "User"
}
