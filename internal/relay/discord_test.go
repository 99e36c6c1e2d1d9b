package relay

import (
	"context"
	"errors"
	"testing"

	"chatbridge/internal/domain"
)

func discordMsg(id, author, content string) domain.DiscordMessage {
	return domain.DiscordMessage{
		ID:         id,
		ChannelID:  testChannelID,
		AuthorID:   "1",
		AuthorName: author,
		Content:    content,
	}
}

func TestHandleDiscordMessage_TextOnly(t *testing.T) {
	env := newTestEnv(PolicyLast)

	env.engine.HandleDiscordMessage(context.Background(), discordMsg("100", "Ann", "hi"))

	if len(env.telegram.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(env.telegram.sent))
	}
	got := env.telegram.sent[0]
	if got.kind != "text" || got.content != "💬 <b>Ann</b>: hi" {
		t.Errorf("unexpected send: %+v", got)
	}
	if got.replyTo != 0 {
		t.Errorf("expected unthreaded send, got replyTo=%d", got.replyTo)
	}

	ctr, ok := env.store.Lookup(domain.DiscordRef("100", "", ""))
	if !ok || ctr.Platform != domain.PlatformTelegram || ctr.ID != "1" {
		t.Errorf("correlation not recorded: %+v ok=%v", ctr, ok)
	}
}

func TestHandleDiscordMessage_IgnoresOwnAndRelayedTraffic(t *testing.T) {
	env := newTestEnv(PolicyLast)

	self := discordMsg("1", "bot", "x")
	self.FromSelf = true
	env.engine.HandleDiscordMessage(context.Background(), self)

	hook := discordMsg("2", "carol", "x")
	hook.FromWebhook = true
	env.engine.HandleDiscordMessage(context.Background(), hook)

	other := discordMsg("3", "Ann", "x")
	other.ChannelID = "other-channel"
	env.engine.HandleDiscordMessage(context.Background(), other)

	if len(env.telegram.sent) != 0 {
		t.Errorf("filtered messages were relayed: %+v", env.telegram.sent)
	}
}

func TestHandleDiscordMessage_ReplyThreaded(t *testing.T) {
	env := newTestEnv(PolicyLast)
	env.store.Record(domain.DiscordRef("50", "Bob", "2"), domain.TelegramRef("7", "Bob", "2"))

	msg := discordMsg("100", "Ann", "agreed")
	msg.ReplyToID = "50"
	env.engine.HandleDiscordMessage(context.Background(), msg)

	if env.telegram.sent[0].replyTo != 7 {
		t.Errorf("expected replyTo=7, got %d", env.telegram.sent[0].replyTo)
	}
}

func TestHandleDiscordMessage_ReplyToUnknownIsUnthreaded(t *testing.T) {
	env := newTestEnv(PolicyLast)

	msg := discordMsg("100", "Ann", "hm")
	msg.ReplyToID = "does-not-exist"
	env.engine.HandleDiscordMessage(context.Background(), msg)

	if len(env.telegram.sent) != 1 || env.telegram.sent[0].replyTo != 0 {
		t.Errorf("expected unthreaded send, got %+v", env.telegram.sent)
	}
}

func TestClassifyAttachment(t *testing.T) {
	cases := []struct {
		contentType string
		want        string
	}{
		{"image/png", kindPhoto},
		{"image/jpeg", kindPhoto},
		{"video/mp4", kindVideo},
		{"application/pdf", kindDocument},
		{"audio/ogg", kindDocument},
		{"", kindDocument},
	}
	for _, c := range cases {
		if got := classifyAttachment(c.contentType); got != c.want {
			t.Errorf("classifyAttachment(%q) = %q, want %q", c.contentType, got, c.want)
		}
	}
}

func TestHandleDiscordMessage_AttachmentRouting(t *testing.T) {
	env := newTestEnv(PolicyLast)

	msg := discordMsg("100", "Ann", "")
	msg.Attachments = []domain.DiscordAttachment{
		{URL: "u1", Filename: "a.png", ContentType: "image/png"},
		{URL: "u2", Filename: "b.mp4", ContentType: "video/mp4"},
		{URL: "u3", Filename: "c.bin", ContentType: ""},
	}
	env.engine.HandleDiscordMessage(context.Background(), msg)

	if len(env.telegram.sent) != 3 {
		t.Fatalf("expected 3 sends, got %d", len(env.telegram.sent))
	}
	for i, want := range []string{"photo", "video", "document"} {
		if env.telegram.sent[i].kind != want {
			t.Errorf("attachment %d routed to %q, want %q", i, env.telegram.sent[i].kind, want)
		}
		// No text: every caption is empty.
		if env.telegram.sent[i].content != "" {
			t.Errorf("attachment %d caption = %q, want empty", i, env.telegram.sent[i].content)
		}
	}
}

func TestHandleDiscordMessage_CaptionSubsumesText(t *testing.T) {
	env := newTestEnv(PolicyLast)

	msg := discordMsg("100", "Ann", "look")
	msg.Attachments = []domain.DiscordAttachment{
		{URL: "u1", Filename: "a.png", ContentType: "image/png"},
	}
	env.engine.HandleDiscordMessage(context.Background(), msg)

	if len(env.telegram.sent) != 2 {
		t.Fatalf("expected text + photo, got %d sends", len(env.telegram.sent))
	}
	if env.telegram.sent[0].content != "💬 <b>Ann</b>: look" {
		t.Errorf("text send: %q", env.telegram.sent[0].content)
	}
	if env.telegram.sent[1].content != "<b>Ann</b>: look" {
		t.Errorf("caption: %q", env.telegram.sent[1].content)
	}

	// Last-unit policy: the photo (id 2) wins the correlation.
	ctr, ok := env.store.Lookup(domain.DiscordRef("100", "", ""))
	if !ok || ctr.ID != "2" {
		t.Errorf("expected correlation to last unit 2, got %+v ok=%v", ctr, ok)
	}
}

func TestHandleDiscordMessage_PolicyAllCorrelatesEveryUnit(t *testing.T) {
	env := newTestEnv(PolicyAll)

	msg := discordMsg("100", "Ann", "look")
	msg.Attachments = []domain.DiscordAttachment{
		{URL: "u1", ContentType: "image/png"},
	}
	env.engine.HandleDiscordMessage(context.Background(), msg)

	// Both telegram units point back at the source message.
	for _, id := range []string{"1", "2"} {
		ctr, ok := env.store.Lookup(domain.TelegramRef(id, "", ""))
		if !ok || ctr.ID != "100" {
			t.Errorf("telegram unit %s not correlated back: %+v ok=%v", id, ctr, ok)
		}
	}
}

func TestHandleDiscordMessage_FailedUnitSkippedNotFatal(t *testing.T) {
	env := newTestEnv(PolicyLast)
	env.telegram.failKinds["photo"] = true

	msg := discordMsg("100", "Ann", "")
	msg.Attachments = []domain.DiscordAttachment{
		{URL: "u1", ContentType: "image/png"},
		{URL: "u2", ContentType: "application/pdf"},
	}
	env.engine.HandleDiscordMessage(context.Background(), msg)

	if len(env.telegram.sent) != 1 || env.telegram.sent[0].kind != "document" {
		t.Fatalf("expected the document to still go out, got %+v", env.telegram.sent)
	}
	ctr, ok := env.store.Lookup(domain.DiscordRef("100", "", ""))
	if !ok || ctr.ID != "1" {
		t.Errorf("expected correlation to surviving unit, got %+v ok=%v", ctr, ok)
	}
}

func TestHandleDiscordMessage_NothingSentNothingRecorded(t *testing.T) {
	env := newTestEnv(PolicyLast)
	env.telegram.failKinds["text"] = true

	env.engine.HandleDiscordMessage(context.Background(), discordMsg("100", "Ann", "hi"))

	if env.store.Len() != 0 {
		t.Errorf("correlation recorded for a failed send: %d entries", env.store.Len())
	}
}

func TestHandleDiscordDelete_Propagates(t *testing.T) {
	env := newTestEnv(PolicyLast)
	env.engine.HandleDiscordMessage(context.Background(), discordMsg("100", "Ann", "hi"))

	env.engine.HandleDiscordDelete(context.Background(), domain.DiscordDelete{ID: "100", ChannelID: testChannelID})

	if len(env.telegram.deleted) != 1 || env.telegram.deleted[0] != 1 {
		t.Fatalf("expected telegram delete of message 1, got %v", env.telegram.deleted)
	}
	if env.store.Len() != 0 {
		t.Errorf("correlation survived the delete: %d entries", env.store.Len())
	}
}

func TestHandleDiscordDelete_WebhookDeleteIgnored(t *testing.T) {
	env := newTestEnv(PolicyLast)
	env.store.Record(domain.DiscordRef("100", "Ann", "1"), domain.TelegramRef("7", "Ann", "1"))

	env.engine.HandleDiscordDelete(context.Background(), domain.DiscordDelete{
		ID: "100", ChannelID: testChannelID, FromWebhook: true,
	})

	if len(env.telegram.deleted) != 0 {
		t.Errorf("webhook-originated delete propagated: %v", env.telegram.deleted)
	}
	if _, ok := env.store.Lookup(domain.DiscordRef("100", "", "")); !ok {
		t.Error("correlation dropped for a webhook-originated delete")
	}
}

func TestHandleDiscordDelete_NoCorrelationIsNoop(t *testing.T) {
	env := newTestEnv(PolicyLast)

	env.engine.HandleDiscordDelete(context.Background(), domain.DiscordDelete{ID: "999", ChannelID: testChannelID})

	if len(env.telegram.deleted) != 0 {
		t.Errorf("unexpected outbound delete: %v", env.telegram.deleted)
	}
}

func TestHandleDiscordDelete_FailureKeepsCorrelation(t *testing.T) {
	env := newTestEnv(PolicyLast)
	env.engine.HandleDiscordMessage(context.Background(), discordMsg("100", "Ann", "hi"))
	env.telegram.deleteErr = errors.New("message not found")

	env.engine.HandleDiscordDelete(context.Background(), domain.DiscordDelete{ID: "100", ChannelID: testChannelID})

	if _, ok := env.store.Lookup(domain.DiscordRef("100", "", "")); !ok {
		t.Error("correlation purged although the delete failed")
	}
}
