package channel

import (
	"encoding/json"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestMapMessage_TextWithReply(t *testing.T) {
	m := &tgbotapi.Message{
		MessageID: 10,
		Chat:      &tgbotapi.Chat{ID: -100},
		From:      &tgbotapi.User{ID: 42, UserName: "ann", FirstName: "Ann"},
		Text:      "hello",
		ReplyToMessage: &tgbotapi.Message{
			MessageID: 7,
		},
	}

	got := mapMessage(m)

	if got.ID != 10 || got.ChatID != -100 {
		t.Errorf("ids: %+v", got)
	}
	if got.From.ID != 42 || got.From.Username != "ann" || got.From.FirstName != "Ann" {
		t.Errorf("sender: %+v", got.From)
	}
	if got.Text != "hello" || got.ReplyToID != 7 {
		t.Errorf("content: text=%q replyTo=%d", got.Text, got.ReplyToID)
	}
}

func TestMapMessage_PhotoSizes(t *testing.T) {
	m := &tgbotapi.Message{
		MessageID: 11,
		Chat:      &tgbotapi.Chat{ID: -100},
		Caption:   "look",
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", Width: 90, Height: 90},
			{FileID: "big", Width: 800, Height: 600},
		},
	}

	got := mapMessage(m)

	if got.Caption != "look" {
		t.Errorf("caption = %q", got.Caption)
	}
	if len(got.Photo) != 2 || got.Photo[1].FileID != "big" || got.Photo[1].Width != 800 {
		t.Errorf("photo sizes: %+v", got.Photo)
	}
}

// Stickers come through the wire overlay: the typed SDK sticker has no
// is_video field, so mapping straight off it would lose video stickers.
func TestMapUpdate_StickerWithThumbnail(t *testing.T) {
	raw := []byte(`[{
		"update_id": 50,
		"message": {
			"message_id": 12,
			"chat": {"id": -100},
			"sticker": {
				"file_id": "stk",
				"emoji": "😀",
				"is_animated": true,
				"thumb": {"file_id": "thumb", "width": 128, "height": 128}
			}
		}
	}]`)

	var updates []wireUpdate
	if err := json.Unmarshal(raw, &updates); err != nil {
		t.Fatal(err)
	}
	got := mapUpdate(updates[0])

	if got.Message == nil || got.Message.Sticker == nil {
		t.Fatal("sticker not mapped")
	}
	st := got.Message.Sticker
	if !st.IsAnimated || st.IsVideo || st.Emoji != "😀" {
		t.Errorf("sticker: %+v", st)
	}
	if st.Thumbnail == nil || st.Thumbnail.FileID != "thumb" {
		t.Errorf("thumbnail: %+v", st.Thumbnail)
	}
}

func TestMapUpdate_VideoSticker(t *testing.T) {
	raw := []byte(`[{
		"update_id": 51,
		"message": {
			"message_id": 13,
			"chat": {"id": -100},
			"sticker": {"file_id": "vstk", "emoji": "🎉", "is_video": true}
		}
	}]`)

	var updates []wireUpdate
	if err := json.Unmarshal(raw, &updates); err != nil {
		t.Fatal(err)
	}
	got := mapUpdate(updates[0])

	if got.Message == nil || got.Message.Sticker == nil {
		t.Fatal("sticker not mapped")
	}
	if !got.Message.Sticker.IsVideo || got.Message.Sticker.IsAnimated {
		t.Errorf("sticker flags: %+v", got.Message.Sticker)
	}
	if got.Message.Sticker.FileID != "vstk" {
		t.Errorf("file id: %q", got.Message.Sticker.FileID)
	}
}

func TestMapMessage_FileKinds(t *testing.T) {
	m := &tgbotapi.Message{
		MessageID: 13,
		Chat:      &tgbotapi.Chat{ID: -100},
		Voice:     &tgbotapi.Voice{FileID: "v1", MimeType: "audio/ogg"},
	}
	got := mapMessage(m)
	if got.Voice == nil || got.Voice.FileID != "v1" {
		t.Errorf("voice: %+v", got.Voice)
	}

	m = &tgbotapi.Message{
		MessageID: 14,
		Chat:      &tgbotapi.Chat{ID: -100},
		Document:  &tgbotapi.Document{FileID: "d1", FileName: "report.pdf", MimeType: "application/pdf"},
	}
	got = mapMessage(m)
	if got.Document == nil || got.Document.FileName != "report.pdf" {
		t.Errorf("document: %+v", got.Document)
	}
}

// deleted_message is not part of the typed Update, which is why the
// poll path decodes the wire shape itself.
func TestWireUpdate_DecodesDeletedMessage(t *testing.T) {
	raw := []byte(`[
		{"update_id": 100, "message": {"message_id": 5, "chat": {"id": -100}, "text": "hi"}},
		{"update_id": 101, "deleted_message": {"message_id": 5, "chat": {"id": -100}}}
	]`)

	var updates []wireUpdate
	if err := json.Unmarshal(raw, &updates); err != nil {
		t.Fatal(err)
	}
	if len(updates) != 2 {
		t.Fatalf("decoded %d updates", len(updates))
	}
	if updates[0].Message == nil || updates[0].Message.Text != "hi" {
		t.Errorf("message update: %+v", updates[0])
	}
	if updates[1].Deleted == nil || updates[1].Deleted.MessageID != 5 || updates[1].Deleted.Chat.ID != -100 {
		t.Errorf("deleted update: %+v", updates[1])
	}
}
