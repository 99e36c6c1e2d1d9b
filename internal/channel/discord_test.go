package channel

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestMapDiscordDelete_BareEvent(t *testing.T) {
	got := mapDiscordDelete(&discordgo.MessageDelete{
		Message: &discordgo.Message{ID: "9", ChannelID: "chan-1"},
	})

	if got.ID != "9" || got.ChannelID != "chan-1" {
		t.Errorf("ids: %+v", got)
	}
	if got.FromWebhook {
		t.Error("webhook flag set without a cached message")
	}
}

func TestMapDiscordDelete_CachedWebhookMessage(t *testing.T) {
	got := mapDiscordDelete(&discordgo.MessageDelete{
		Message:      &discordgo.Message{ID: "9", ChannelID: "chan-1"},
		BeforeDelete: &discordgo.Message{ID: "9", WebhookID: "555"},
	})

	if !got.FromWebhook {
		t.Error("webhook flag not taken from the cached message")
	}

	got = mapDiscordDelete(&discordgo.MessageDelete{
		Message:      &discordgo.Message{ID: "10", ChannelID: "chan-1"},
		BeforeDelete: &discordgo.Message{ID: "10"},
	})
	if got.FromWebhook {
		t.Error("webhook flag set for a cached non-webhook message")
	}
}
