package channel

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"chatbridge/internal/domain"

	"github.com/bwmarrin/discordgo"
)

// Discord owns the gateway session. Inbound events are mapped out of
// the SDK types and handed to the relay handler; the same session
// serves bot-authored sends and native deletes.
type Discord struct {
	session *discordgo.Session
	logger  *slog.Logger
}

// NewDiscord creates a gateway session with the intents the relay
// needs. Message content requires the privileged intent to be enabled
// on the application.
func NewDiscord(token string, logger *slog.Logger) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	return &Discord{session: session, logger: logger}, nil
}

// Start registers the gateway handlers and opens the connection. The
// handler receives every message and delete event; filtering by channel
// is its concern, not the adapter's.
func (d *Discord) Start(ctx context.Context, handler domain.DiscordHandler) error {
	d.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil {
			return
		}
		handler.HandleDiscordMessage(ctx, mapDiscordMessage(s, m))
	})

	d.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageDelete) {
		handler.HandleDiscordDelete(ctx, mapDiscordDelete(m))
	})

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}
	d.logger.Info("discord bot connected", "user", d.session.State.User.Username)
	return nil
}

// Close disconnects from the gateway.
func (d *Discord) Close() error {
	d.logger.Info("discord bot disconnecting")
	return d.session.Close()
}

func (d *Discord) SendText(_ context.Context, channelID, content string) (string, error) {
	msg, err := d.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", fmt.Errorf("discord send: %w", err)
	}
	return msg.ID, nil
}

func (d *Discord) SendPhoto(ctx context.Context, channelID, filename, path string) (string, error) {
	return d.sendFile(ctx, channelID, filename, path)
}

func (d *Discord) SendVideo(ctx context.Context, channelID, filename, path string) (string, error) {
	return d.sendFile(ctx, channelID, filename, path)
}

func (d *Discord) SendDocument(ctx context.Context, channelID, filename, path string) (string, error) {
	return d.sendFile(ctx, channelID, filename, path)
}

func (d *Discord) sendFile(_ context.Context, channelID, filename, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	msg, err := d.session.ChannelFileSend(channelID, filename, f)
	if err != nil {
		return "", fmt.Errorf("discord file send: %w", err)
	}
	return msg.ID, nil
}

// Delete removes a bot-visible message by id.
func (d *Discord) Delete(_ context.Context, channelID, messageID string) error {
	if err := d.session.ChannelMessageDelete(channelID, messageID); err != nil {
		return fmt.Errorf("discord delete: %w", err)
	}
	return nil
}

// mapDiscordDelete flattens a delete event. The gateway payload carries
// only ids; the webhook flag comes from the state cache's copy of the
// deleted message when one is still around.
func mapDiscordDelete(m *discordgo.MessageDelete) domain.DiscordDelete {
	del := domain.DiscordDelete{
		ID:        m.ID,
		ChannelID: m.ChannelID,
	}
	if m.BeforeDelete != nil {
		del.FromWebhook = m.BeforeDelete.WebhookID != ""
	}
	return del
}

// mapDiscordMessage flattens a gateway message into the relay's event
// type. Display name preference: server nickname, then global display
// name, then username.
func mapDiscordMessage(s *discordgo.Session, m *discordgo.MessageCreate) domain.DiscordMessage {
	name := m.Author.Username
	if m.Author.GlobalName != "" {
		name = m.Author.GlobalName
	}
	if m.Member != nil && m.Member.Nick != "" {
		name = m.Member.Nick
	}

	msg := domain.DiscordMessage{
		ID:          m.ID,
		ChannelID:   m.ChannelID,
		AuthorID:    m.Author.ID,
		AuthorName:  name,
		FromSelf:    s.State.User != nil && m.Author.ID == s.State.User.ID,
		FromWebhook: m.WebhookID != "",
		Content:     m.Content,
	}
	if m.MessageReference != nil {
		msg.ReplyToID = m.MessageReference.MessageID
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, domain.DiscordAttachment{
			URL:         a.URL,
			Filename:    a.Filename,
			ContentType: a.ContentType,
		})
	}
	return msg
}
