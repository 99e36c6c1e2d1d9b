package domain

import (
	"context"
	"time"
)

// Relay directions as stored in the history log.
const (
	DirectionDiscordToTelegram = "discord_to_telegram"
	DirectionTelegramToDiscord = "telegram_to_discord"
)

// RelayRecord is one relay attempt in the audit log. The log is
// observability only; correlation state is never rebuilt from it.
type RelayRecord struct {
	ID        string    `json:"id"`
	Direction string    `json:"direction"`
	SourceID  string    `json:"source_id"`
	DestID    string    `json:"dest_id"`
	Kind      string    `json:"kind"` // text | photo | video | document | voice | animation | sticker | delete
	Author    string    `json:"author"`
	OK        bool      `json:"ok"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryStore persists relay records.
type HistoryStore interface {
	Add(ctx context.Context, rec RelayRecord) error
	Recent(ctx context.Context, limit int) ([]RelayRecord, error)
	Close() error
}
