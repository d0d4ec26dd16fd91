// Package poller implements the Callback Poller (§4.L): one long-lived
// goroutine per interactive-capable notification channel that consumes
// button-click callbacks and routes them to the plan-approval state
// machine.
//
// Grounded on telego's long-polling GetUpdates call and on the
// teacher's backoffWithJitter idiom in internal/cron/retry.go,
// generalized into the shared internal/retry package used here for
// transport-failure backoff.
package poller

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/goclaw/internal/retry"
)

// Callback is one parsed button-click event: "plan:<action>:<approval_id>".
type Callback struct {
	ApprovalID string
	Action     string // "approve", "reject", "discuss"
	Feedback   string
}

// Handler processes one parsed callback.
type Handler func(cb Callback)

const (
	pollTimeoutSeconds = 30
	callbackDataPrefix = "plan:"
)

// TelegramPoller long-polls a single Telegram bot for callback-query
// updates.
type TelegramPoller struct {
	bot    *telego.Bot
	offset int
}

// NewTelegramPoller constructs a poller for the bot identified by
// token.
func NewTelegramPoller(token string) (*TelegramPoller, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, err
	}
	return &TelegramPoller{bot: bot}, nil
}

// Run polls until ctx is cancelled, invoking handle for every parsed
// callback. Transport failures back off exponentially up to 60s; a
// single update that fails to parse is logged and skipped without
// blocking the cursor from advancing past it.
func (p *TelegramPoller) Run(ctx context.Context, handle Handler) {
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := p.bot.GetUpdates(ctx, &telego.GetUpdatesParams{
			Offset:  p.offset,
			Timeout: pollTimeoutSeconds,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			delay := retry.NextPollDelay(failures)
			slog.Warn("poller: GetUpdates failed, backing off", "error", err, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
			continue
		}
		failures = 0

		for _, u := range updates {
			p.offset = u.UpdateID + 1
			cb, ok := parseCallback(u)
			if !ok {
				continue
			}
			handle(cb)
		}
	}
}

func parseCallback(u telego.Update) (Callback, bool) {
	if u.CallbackQuery == nil {
		return Callback{}, false
	}
	data := u.CallbackQuery.Data
	if !strings.HasPrefix(data, callbackDataPrefix) {
		return Callback{}, false
	}
	parts := strings.SplitN(strings.TrimPrefix(data, callbackDataPrefix), ":", 2)
	if len(parts) != 2 {
		slog.Warn("poller: malformed callback data", "data", data)
		return Callback{}, false
	}
	return Callback{Action: parts[0], ApprovalID: parts[1]}, true
}
