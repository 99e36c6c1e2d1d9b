package relay

import (
	"context"
	"log/slog"
	"time"

	"chatbridge/internal/domain"
)

// Poller drives the Telegram getUpdates cycle: fetch, dispatch every
// update to the handler, then acknowledge by advancing the cursor. The
// cursor moves to one past an update's id only after its dispatch
// returns, so a crash mid-cycle redelivers instead of losing updates.
type Poller struct {
	api      domain.TelegramAPI
	handler  domain.TelegramHandler
	logger   *slog.Logger
	interval time.Duration
	backoff  time.Duration

	offset int
}

// NewPoller creates a poller starting at cursor 0.
func NewPoller(api domain.TelegramAPI, handler domain.TelegramHandler, interval, backoff time.Duration, logger *slog.Logger) *Poller {
	return &Poller{
		api:      api,
		handler:  handler,
		logger:   logger,
		interval: interval,
		backoff:  backoff,
	}
}

// Offset returns the current poll cursor.
func (p *Poller) Offset() int { return p.offset }

// Run polls until ctx is cancelled. Poll endpoint errors move the loop
// into backoff for a longer fixed interval; they never terminate it.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("telegram polling started")
	for {
		if ctx.Err() != nil {
			p.logger.Info("telegram polling stopped")
			return
		}

		updates, err := p.api.GetUpdates(ctx, p.offset)
		if err != nil {
			p.logger.Error("telegram poll failed", "offset", p.offset, "err", err)
			if !sleep(ctx, p.backoff) {
				return
			}
			continue
		}

		for _, upd := range updates {
			// Dispatch first, acknowledge after. Relay failures inside
			// the handler don't hold the cursor back: the update itself
			// was delivered.
			p.handler.HandleTelegramUpdate(ctx, upd)
			if upd.UpdateID+1 > p.offset {
				p.offset = upd.UpdateID + 1
			}
		}

		if !sleep(ctx, p.interval) {
			return
		}
	}
}

// sleep waits for d or until ctx is cancelled; reports false on cancel.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
