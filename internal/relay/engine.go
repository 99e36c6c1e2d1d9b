// Package relay contains the message-correlation and relay engine: it
// classifies inbound events from both platforms, resolves cross-platform
// reply targets, invokes the outbound primitives, and maintains the
// correlation store so later replies and deletions can be attributed.
package relay

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"chatbridge/internal/correlate"
	"chatbridge/internal/domain"
	"chatbridge/internal/metrics"
)

// Correlation policies. PolicyLast keeps only the final sent unit of a
// multi-attachment message correlated (the original bridge behavior);
// PolicyAll records every successfully sent unit so deletes from the
// Telegram side reach all of them.
const (
	PolicyLast = "last"
	PolicyAll  = "all"
)

// Config wires the engine to its collaborators. History may be nil.
type Config struct {
	DiscordChannelID string
	TelegramChatID   int64
	CorrelatePolicy  string

	Telegram domain.TelegramAPI
	Discord  domain.DiscordAPI
	Webhook  domain.WebhookAPI
	Media    domain.Downloader
	Store    *correlate.Store
	History  domain.HistoryStore
	Logger   *slog.Logger
}

// Engine relays messages bidirectionally between one Discord channel and
// one Telegram chat. All outbound failures are logged and skipped; the
// engine itself never returns an error to its callers.
type Engine struct {
	discordChannelID string
	telegramChatID   int64
	correlateAll     bool

	telegram domain.TelegramAPI
	discord  domain.DiscordAPI
	webhook  domain.WebhookAPI
	media    domain.Downloader
	store    *correlate.Store
	history  domain.HistoryStore
	logger   *slog.Logger

	// pseudoSeq feeds synthetic relay-post ids when the webhook response
	// carries none. Monotonic, so two posts can never collide the way the
	// old wall-clock scheme could.
	pseudoSeq atomic.Int64

	relayedToTelegram *metrics.Counter
	relayedToDiscord  *metrics.Counter
	sendFailures      *metrics.Counter
	deletesOut        *metrics.Counter
	correlations      *metrics.Gauge
	latency           *metrics.Histogram
}

// NewEngine creates the relay engine.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		discordChannelID: cfg.DiscordChannelID,
		telegramChatID:   cfg.TelegramChatID,
		correlateAll:     cfg.CorrelatePolicy == PolicyAll,
		telegram:         cfg.Telegram,
		discord:          cfg.Discord,
		webhook:          cfg.Webhook,
		media:            cfg.Media,
		store:            cfg.Store,
		history:          cfg.History,
		logger:           cfg.Logger,
	}

	e.relayedToTelegram = metrics.Default.Counter("chatbridge_relayed_total",
		"Messages relayed between platforms", `direction="discord_to_telegram"`)
	e.relayedToDiscord = metrics.Default.Counter("chatbridge_relayed_total",
		"Messages relayed between platforms", `direction="telegram_to_discord"`)
	e.sendFailures = metrics.Default.Counter("chatbridge_send_failures_total",
		"Outbound sends that failed and were skipped", "")
	e.deletesOut = metrics.Default.Counter("chatbridge_deletes_total",
		"Deletions propagated to the other platform", "")
	e.correlations = metrics.Default.Gauge("chatbridge_correlations",
		"Live correlation mapping entries", "")
	e.latency = metrics.Default.Histogram("chatbridge_relay_seconds",
		"End-to-end relay handling latency in seconds", "",
		[]float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, math.Inf(1)})

	return e
}

// correlateUnit records a correlation for one successfully sent unit when
// the policy asks for every unit; under PolicyLast the caller records the
// final unit itself.
func (e *Engine) correlateUnit(src, dest domain.MessageRef) {
	if e.correlateAll {
		e.record(src, dest)
	}
}

func (e *Engine) record(src, dest domain.MessageRef) {
	e.store.Record(src, dest)
	e.correlations.Set(int64(e.store.Len()))
}

func (e *Engine) remove(ref domain.MessageRef) (domain.MessageRef, bool) {
	ctr, ok := e.store.Remove(ref)
	e.correlations.Set(int64(e.store.Len()))
	return ctr, ok
}

// nextPseudoID synthesizes a relay-post id for webhook responses that
// carry no message id. The prefix keeps it out of the snowflake space.
func (e *Engine) nextPseudoID() string {
	return "relay-" + strconv.FormatInt(e.pseudoSeq.Add(1), 10)
}

// logHistory appends to the audit log when one is configured.
func (e *Engine) logHistory(ctx context.Context, rec domain.RelayRecord) {
	if e.history == nil {
		return
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now()
	if err := e.history.Add(ctx, rec); err != nil {
		e.logger.Warn("history write failed", "err", err)
	}
}

func (e *Engine) observeLatency(start time.Time) {
	e.latency.Observe(time.Since(start).Seconds())
}
