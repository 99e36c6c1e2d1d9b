package domain

import "context"

// SendResult reports the outcome of an outbound Telegram send. OK mirrors
// the API-level "ok" flag: a transport error and an ok=false response are
// both treated as failed sends by the engine.
type SendResult struct {
	OK        bool
	MessageID int
}

// TelegramAPI is the polling-side platform client. Media sends take a
// public URL; Telegram fetches the content itself.
type TelegramAPI interface {
	SendText(ctx context.Context, chatID int64, text string, replyTo int) (SendResult, error)
	SendPhoto(ctx context.Context, chatID int64, url, caption string, replyTo int) (SendResult, error)
	SendVideo(ctx context.Context, chatID int64, url, caption string, replyTo int) (SendResult, error)
	SendDocument(ctx context.Context, chatID int64, url, caption string, replyTo int) (SendResult, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	GetUpdates(ctx context.Context, offset int) ([]TelegramUpdate, error)

	// FileURL resolves a file id to a direct download URL.
	FileURL(ctx context.Context, fileID string) (string, error)
	// UserProfilePhoto returns the file id of the user's most recent
	// profile photo, or "" when the user has none.
	UserProfilePhoto(ctx context.Context, userID int64) (string, error)
}

// DiscordAPI is the event-side platform client, used for bot-authored
// sends and for deleting native messages.
type DiscordAPI interface {
	SendText(ctx context.Context, channelID, content string) (string, error)
	SendPhoto(ctx context.Context, channelID, filename, path string) (string, error)
	SendVideo(ctx context.Context, channelID, filename, path string) (string, error)
	SendDocument(ctx context.Context, channelID, filename, path string) (string, error)
	Delete(ctx context.Context, channelID, messageID string) error
}

// WebhookPost is the payload for one post through the relay identity.
type WebhookPost struct {
	Username  string
	AvatarURL string
	Content   string
	FilePath  string // local file to attach, "" for text-only
}

// WebhookAPI posts to Discord under a per-post identity and deletes its
// own posts. Post returns the provider-assigned message id, or "" when
// the provider did not include one.
type WebhookAPI interface {
	Post(ctx context.Context, post WebhookPost) (string, error)
	DeletePost(ctx context.Context, postID string) error
}

// Downloader transfers a remote file into a scoped local temp file.
// Cleanup never fails the caller and tolerates an empty path.
type Downloader interface {
	Download(ctx context.Context, url string) (string, error)
	Cleanup(path string)
}
