package domain

// Platform identifies the identifier space a message id belongs to.
type Platform string

const (
	// PlatformDiscord is a stable server-assigned Discord message id.
	PlatformDiscord Platform = "discord"
	// PlatformTelegram is a chat-scoped Telegram message id.
	PlatformTelegram Platform = "telegram"
	// PlatformRelay is the id of a post made through the Discord webhook
	// identity. Webhook posts are not owned by the bot user, so they live
	// in their own identifier space.
	PlatformRelay Platform = "relay"
)

// MessageRef points at one concrete message instance on one platform.
// AuthorName and AuthorID travel with the ref so reply attribution works
// after the original event is gone.
type MessageRef struct {
	Platform   Platform
	ID         string
	AuthorName string
	AuthorID   string
}

// DiscordRef builds a ref for a native Discord message.
func DiscordRef(id, authorName, authorID string) MessageRef {
	return MessageRef{Platform: PlatformDiscord, ID: id, AuthorName: authorName, AuthorID: authorID}
}

// TelegramRef builds a ref for a Telegram message.
func TelegramRef(id, authorName, authorID string) MessageRef {
	return MessageRef{Platform: PlatformTelegram, ID: id, AuthorName: authorName, AuthorID: authorID}
}

// RelayRef builds a ref for a webhook post.
func RelayRef(id, authorName, authorID string) MessageRef {
	return MessageRef{Platform: PlatformRelay, ID: id, AuthorName: authorName, AuthorID: authorID}
}
