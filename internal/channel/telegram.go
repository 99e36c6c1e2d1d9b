package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"chatbridge/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram wraps the Bot API client behind domain.TelegramAPI. Updates
// are fetched with a raw getUpdates call instead of the library's
// channel so the wire struct can surface deleted_message entries, which
// the typed Update drops.
type Telegram struct {
	bot         *tgbotapi.BotAPI
	pollTimeout int // long-poll timeout in seconds
	logger      *slog.Logger
}

// NewTelegram authenticates against the Bot API.
func NewTelegram(token string, pollTimeout int, logger *slog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)
	return &Telegram{bot: bot, pollTimeout: pollTimeout, logger: logger}, nil
}

func (t *Telegram) SendText(_ context.Context, chatID int64, text string, replyTo int) (domain.SendResult, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyToMessageID = replyTo
	return t.send(msg)
}

func (t *Telegram) SendPhoto(_ context.Context, chatID int64, url, caption string, replyTo int) (domain.SendResult, error) {
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(url))
	msg.Caption = caption
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyToMessageID = replyTo
	return t.send(msg)
}

func (t *Telegram) SendVideo(_ context.Context, chatID int64, url, caption string, replyTo int) (domain.SendResult, error) {
	msg := tgbotapi.NewVideo(chatID, tgbotapi.FileURL(url))
	msg.Caption = caption
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyToMessageID = replyTo
	return t.send(msg)
}

func (t *Telegram) SendDocument(_ context.Context, chatID int64, url, caption string, replyTo int) (domain.SendResult, error) {
	msg := tgbotapi.NewDocument(chatID, tgbotapi.FileURL(url))
	msg.Caption = caption
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyToMessageID = replyTo
	return t.send(msg)
}

func (t *Telegram) send(c tgbotapi.Chattable) (domain.SendResult, error) {
	sent, err := t.bot.Send(c)
	if err != nil {
		return domain.SendResult{}, err
	}
	return domain.SendResult{OK: true, MessageID: sent.MessageID}, nil
}

func (t *Telegram) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	if _, err := t.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("telegram delete: %w", err)
	}
	return nil
}

// wireUpdate is the raw getUpdates entry. deleted_message follows the
// message shape but only the id and chat matter.
type wireUpdate struct {
	UpdateID int          `json:"update_id"`
	Message  *wireMessage `json:"message"`
	Deleted  *struct {
		MessageID int `json:"message_id"`
		Chat      struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"deleted_message"`
}

// wireMessage overlays fields the SDK's typed message drops. Its Sticker
// shadows the embedded one so is_video survives decoding; the SDK's
// Sticker type stops at is_animated.
type wireMessage struct {
	tgbotapi.Message
	Sticker *wireSticker `json:"sticker"`
}

type wireSticker struct {
	tgbotapi.Sticker
	IsVideo bool `json:"is_video"`
}

// GetUpdates long-polls for the next update batch starting at offset.
func (t *Telegram) GetUpdates(_ context.Context, offset int) ([]domain.TelegramUpdate, error) {
	params := make(tgbotapi.Params)
	params.AddNonZero("offset", offset)
	params.AddNonZero("timeout", t.pollTimeout)

	resp, err := t.bot.MakeRequest("getUpdates", params)
	if err != nil {
		return nil, fmt.Errorf("getUpdates: %w", err)
	}

	var raw []wireUpdate
	if err := json.Unmarshal(resp.Result, &raw); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}

	updates := make([]domain.TelegramUpdate, 0, len(raw))
	for _, u := range raw {
		updates = append(updates, mapUpdate(u))
	}
	return updates, nil
}

// mapUpdate converts one wire entry into the relay's update type.
func mapUpdate(u wireUpdate) domain.TelegramUpdate {
	upd := domain.TelegramUpdate{UpdateID: u.UpdateID}
	if u.Message != nil {
		msg := mapMessage(&u.Message.Message)
		if u.Message.Sticker != nil {
			msg.Sticker = mapSticker(u.Message.Sticker)
		}
		upd.Message = &msg
	}
	if u.Deleted != nil {
		upd.Deleted = &domain.TelegramDelete{
			MessageID: u.Deleted.MessageID,
			ChatID:    u.Deleted.Chat.ID,
		}
	}
	return upd
}

func mapSticker(st *wireSticker) *domain.Sticker {
	s := &domain.Sticker{
		FileID:     st.FileID,
		Emoji:      st.Emoji,
		IsAnimated: st.IsAnimated,
		IsVideo:    st.IsVideo,
	}
	if st.Thumbnail != nil {
		s.Thumbnail = &domain.PhotoSize{
			FileID: st.Thumbnail.FileID,
			Width:  st.Thumbnail.Width,
			Height: st.Thumbnail.Height,
		}
	}
	return s
}

// FileURL resolves a file id to its direct download URL.
func (t *Telegram) FileURL(_ context.Context, fileID string) (string, error) {
	file, err := t.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("getFile %s: %w", fileID, err)
	}
	return file.Link(t.bot.Token), nil
}

// UserProfilePhoto returns the file id of the user's current profile
// photo at its largest size, or "" when the user has none.
func (t *Telegram) UserProfilePhoto(_ context.Context, userID int64) (string, error) {
	photos, err := t.bot.GetUserProfilePhotos(tgbotapi.UserProfilePhotosConfig{
		UserID: userID,
		Limit:  1,
	})
	if err != nil {
		return "", fmt.Errorf("getUserProfilePhotos: %w", err)
	}
	if len(photos.Photos) == 0 || len(photos.Photos[0]) == 0 {
		return "", nil
	}
	sizes := photos.Photos[0]
	return sizes[len(sizes)-1].FileID, nil
}

// mapMessage converts a Bot API message into the relay's event type.
func mapMessage(m *tgbotapi.Message) domain.TelegramMessage {
	msg := domain.TelegramMessage{
		ID:      m.MessageID,
		Text:    m.Text,
		Caption: m.Caption,
	}
	if m.Chat != nil {
		msg.ChatID = m.Chat.ID
	}
	if m.From != nil {
		msg.From = domain.TelegramUser{
			ID:        m.From.ID,
			Username:  m.From.UserName,
			FirstName: m.From.FirstName,
		}
	}
	if m.ReplyToMessage != nil {
		msg.ReplyToID = m.ReplyToMessage.MessageID
	}
	for _, p := range m.Photo {
		msg.Photo = append(msg.Photo, domain.PhotoSize{
			FileID: p.FileID,
			Width:  p.Width,
			Height: p.Height,
		})
	}
	if m.Video != nil {
		msg.Video = &domain.FileRef{
			FileID:   m.Video.FileID,
			FileName: m.Video.FileName,
			MimeType: m.Video.MimeType,
		}
	}
	if m.Document != nil {
		msg.Document = &domain.FileRef{
			FileID:   m.Document.FileID,
			FileName: m.Document.FileName,
			MimeType: m.Document.MimeType,
		}
	}
	if m.Voice != nil {
		msg.Voice = &domain.FileRef{
			FileID:   m.Voice.FileID,
			MimeType: m.Voice.MimeType,
		}
	}
	if m.Animation != nil {
		msg.Animation = &domain.FileRef{
			FileID:   m.Animation.FileID,
			FileName: m.Animation.FileName,
			MimeType: m.Animation.MimeType,
		}
	}
	return msg
}
