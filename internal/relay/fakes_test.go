package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"chatbridge/internal/correlate"
	"chatbridge/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// --- Telegram fake ---

type sentUnit struct {
	kind    string
	content string // text body or caption
	url     string
	replyTo int
}

type fakeTelegram struct {
	sent      []sentUnit
	nextID    int
	failKinds map[string]bool

	deleted   []int
	deleteErr error

	profilePhotos map[int64]string // user id -> file id
	profileErr    error
	fileURLs      map[string]string // file id -> url
}

func newFakeTelegram() *fakeTelegram {
	return &fakeTelegram{
		failKinds:     make(map[string]bool),
		profilePhotos: make(map[int64]string),
		fileURLs:      make(map[string]string),
	}
}

func (f *fakeTelegram) send(kind, content, url string, replyTo int) (domain.SendResult, error) {
	if f.failKinds[kind] {
		return domain.SendResult{}, errors.New(kind + " send refused")
	}
	f.nextID++
	f.sent = append(f.sent, sentUnit{kind: kind, content: content, url: url, replyTo: replyTo})
	return domain.SendResult{OK: true, MessageID: f.nextID}, nil
}

func (f *fakeTelegram) SendText(_ context.Context, _ int64, text string, replyTo int) (domain.SendResult, error) {
	return f.send("text", text, "", replyTo)
}

func (f *fakeTelegram) SendPhoto(_ context.Context, _ int64, url, caption string, replyTo int) (domain.SendResult, error) {
	return f.send("photo", caption, url, replyTo)
}

func (f *fakeTelegram) SendVideo(_ context.Context, _ int64, url, caption string, replyTo int) (domain.SendResult, error) {
	return f.send("video", caption, url, replyTo)
}

func (f *fakeTelegram) SendDocument(_ context.Context, _ int64, url, caption string, replyTo int) (domain.SendResult, error) {
	return f.send("document", caption, url, replyTo)
}

func (f *fakeTelegram) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeTelegram) GetUpdates(context.Context, int) ([]domain.TelegramUpdate, error) {
	return nil, nil
}

func (f *fakeTelegram) FileURL(_ context.Context, fileID string) (string, error) {
	if url, ok := f.fileURLs[fileID]; ok {
		return url, nil
	}
	return "https://files.example/" + fileID, nil
}

func (f *fakeTelegram) UserProfilePhoto(_ context.Context, userID int64) (string, error) {
	if f.profileErr != nil {
		return "", f.profileErr
	}
	return f.profilePhotos[userID], nil
}

// --- Discord fake ---

type fakeDiscord struct {
	deleted   []string
	deleteErr error
}

func (f *fakeDiscord) SendText(context.Context, string, string) (string, error) { return "", nil }
func (f *fakeDiscord) SendPhoto(context.Context, string, string, string) (string, error) {
	return "", nil
}
func (f *fakeDiscord) SendVideo(context.Context, string, string, string) (string, error) {
	return "", nil
}
func (f *fakeDiscord) SendDocument(context.Context, string, string, string) (string, error) {
	return "", nil
}

func (f *fakeDiscord) Delete(_ context.Context, _, messageID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

// --- Webhook fake ---

type fakeWebhook struct {
	posts   []domain.WebhookPost
	nextID  int
	emptyID bool // simulate a provider response without an id
	postErr error

	deleted   []string
	deleteErr error
}

func (f *fakeWebhook) Post(_ context.Context, post domain.WebhookPost) (string, error) {
	if f.postErr != nil {
		return "", f.postErr
	}
	f.posts = append(f.posts, post)
	if f.emptyID {
		return "", nil
	}
	f.nextID++
	return fmt.Sprintf("wh-%d", f.nextID), nil
}

func (f *fakeWebhook) DeletePost(_ context.Context, postID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, postID)
	return nil
}

// --- Downloader fake ---

type fakeMedia struct {
	seq       int
	downloads []string // urls fetched
	cleaned   []string // non-empty paths released
	failAll   bool
}

func (f *fakeMedia) Download(_ context.Context, url string) (string, error) {
	if f.failAll {
		return "", errors.New("download refused")
	}
	f.seq++
	f.downloads = append(f.downloads, url)
	return fmt.Sprintf("/tmp/fake-media-%d", f.seq), nil
}

func (f *fakeMedia) Cleanup(path string) {
	if path != "" {
		f.cleaned = append(f.cleaned, path)
	}
}

// --- engine builder ---

const (
	testChannelID = "chan-1"
	testChatID    = int64(-10042)
)

type testEnv struct {
	engine   *Engine
	store    *correlate.Store
	telegram *fakeTelegram
	discord  *fakeDiscord
	webhook  *fakeWebhook
	media    *fakeMedia
}

func newTestEnv(policy string) *testEnv {
	env := &testEnv{
		store:    correlate.NewStore(),
		telegram: newFakeTelegram(),
		discord:  &fakeDiscord{},
		webhook:  &fakeWebhook{},
		media:    &fakeMedia{},
	}
	env.engine = NewEngine(Config{
		DiscordChannelID: testChannelID,
		TelegramChatID:   testChatID,
		CorrelatePolicy:  policy,
		Telegram:         env.telegram,
		Discord:          env.discord,
		Webhook:          env.webhook,
		Media:            env.media,
		Store:            env.store,
		Logger:           testLogger(),
	})
	return env
}
