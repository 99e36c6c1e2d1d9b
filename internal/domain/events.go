package domain

import "context"

// DiscordMessage is a new-message event from the Discord gateway, mapped
// out of the SDK types by the channel adapter.
type DiscordMessage struct {
	ID          string
	ChannelID   string
	AuthorID    string
	AuthorName  string
	FromSelf    bool // authored by the bot user itself
	FromWebhook bool // posted through a webhook (our own relayed content)
	Content     string
	ReplyToID   string // id of the referenced message, "" when not a reply
	Attachments []DiscordAttachment
}

// DiscordAttachment is one binary attached to a Discord message.
type DiscordAttachment struct {
	URL         string
	Filename    string
	ContentType string // MIME type as declared by Discord, may be empty
}

// DiscordDelete is a message-deleted event from the Discord gateway.
type DiscordDelete struct {
	ID          string
	ChannelID   string
	FromWebhook bool
}

// TelegramUpdate is one entry from the Telegram getUpdates long poll.
// Exactly one of Message or Deleted is set; updates carrying neither are
// ignored by the engine.
type TelegramUpdate struct {
	UpdateID int
	Message  *TelegramMessage
	Deleted  *TelegramDelete
}

// TelegramDelete signals that a Telegram message was removed.
type TelegramDelete struct {
	MessageID int
	ChatID    int64
}

// TelegramUser is the sender of a Telegram message.
type TelegramUser struct {
	ID        int64
	Username  string
	FirstName string
}

// PhotoSize is one resolution variant of a Telegram photo.
type PhotoSize struct {
	FileID string
	Width  int
	Height int
}

// FileRef points at a downloadable Telegram file.
type FileRef struct {
	FileID   string
	FileName string
	MimeType string
}

// Sticker carries the sticker-specific fields the relay cares about.
type Sticker struct {
	FileID     string
	Emoji      string
	IsAnimated bool
	IsVideo    bool
	Thumbnail  *PhotoSize
}

// TelegramMessage is a new message received from the source chat. At most
// one of the content fields (Text, Photo, Video, Document, Voice,
// Animation, Sticker) is populated per message.
type TelegramMessage struct {
	ID        int
	ChatID    int64
	From      TelegramUser
	Text      string
	Caption   string
	ReplyToID int // id of the replied-to message, 0 when not a reply
	Photo     []PhotoSize
	Video     *FileRef
	Document  *FileRef
	Voice     *FileRef
	Animation *FileRef
	Sticker   *Sticker
}

// DiscordHandler consumes Discord gateway events. One method per event
// kind; implemented by the relay engine.
type DiscordHandler interface {
	HandleDiscordMessage(ctx context.Context, msg DiscordMessage)
	HandleDiscordDelete(ctx context.Context, del DiscordDelete)
}

// TelegramHandler consumes Telegram poll updates.
type TelegramHandler interface {
	HandleTelegramUpdate(ctx context.Context, upd TelegramUpdate)
}
