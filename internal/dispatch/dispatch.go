// Package dispatch implements the Notification Dispatcher (§4.J): it
// fans a task lifecycle event out to every subscribed channel,
// formatting a per-event message and tracking message ids so a
// TASK_START notice can be edited in place on TASK_COMPLETE.
//
// Grounded on the teacher's internal/channels/manager.go Manager shape
// (map + mutex + per-channel lifecycle), adapted here from channel
// lifecycle tracking to message-id correlation, and on
// golang.org/x/sync/errgroup for the concurrent fan-out.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/goclaw/internal/channels"
	"github.com/nextlevelbuilder/goclaw/internal/execlog"
	"github.com/nextlevelbuilder/goclaw/internal/notify"
	"github.com/nextlevelbuilder/goclaw/internal/task"
)

// CredentialResolver resolves a credential id to its secret value.
// internal/credential.Store satisfies this; tests substitute a stub.
type CredentialResolver interface {
	Get(id string) (string, error)
}

// Event is a task lifecycle notification trigger (§4.J).
type Event string

const (
	EventTaskStart     Event = "TASK_START"
	EventTaskComplete  Event = "TASK_COMPLETE"
	EventTaskSuccess   Event = "TASK_SUCCESS"
	EventTaskFailure   Event = "TASK_FAILURE"
	EventPlanReady     Event = "PLAN_READY"
	EventPlanApproved  Event = "PLAN_APPROVED"
	EventPlanRejected  Event = "PLAN_REJECTED"
)

// Sent describes one successful delivery, returned to callers that
// need to act on message identity (e.g. the approval state machine).
type Sent struct {
	ChannelID string
	Provider  string
	ChatID    string
	MessageID string
}

type msgKey struct {
	taskID    string
	channelID string
}

// Dispatcher fans out notifications and tracks TASK_START message ids
// for in-place editing.
type Dispatcher struct {
	Channels    *channels.Store
	Credentials CredentialResolver
	Providers   *notify.Registry

	mu        sync.Mutex
	messageID map[msgKey]Sent
}

// New constructs a Dispatcher from its dependencies.
func New(chStore *channels.Store, creds CredentialResolver, providers *notify.Registry) *Dispatcher {
	return &Dispatcher{
		Channels:    chStore,
		Credentials: creds,
		Providers:   providers,
		messageID:   make(map[msgKey]Sent),
	}
}

// Notify sends event's message to every channel subscribed to it in
// t's notification policy, fanning out concurrently. A single
// channel's send failure is logged and excluded from the result; it
// never fails the call or the task.
func (d *Dispatcher) Notify(ctx context.Context, event Event, t *task.Task, result *execlog.Result) []Sent {
	if t.Notifications == nil || len(t.Notifications.Channels) == 0 {
		return nil
	}
	if !subscribed(t.Notifications.Events, event) {
		return nil
	}

	text := d.format(event, t, result)

	var mu sync.Mutex
	var sent []Sent
	g, gctx := errgroup.WithContext(ctx)
	for _, channelID := range t.Notifications.Channels {
		channelID := channelID
		g.Go(func() error {
			s, err := d.deliver(gctx, event, t, channelID, text)
			if err != nil {
				slog.Warn("dispatch: channel send failed", "task_id", t.ID, "channel_id", channelID, "event", event, "error", err)
				return nil // swallow: one failed channel must not fail the group
			}
			mu.Lock()
			sent = append(sent, s)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return sent
}

func (d *Dispatcher) deliver(ctx context.Context, event Event, t *task.Task, channelID, text string) (Sent, error) {
	ch, ok := d.Channels.Get(channelID)
	if !ok || !ch.Enabled {
		return Sent{}, fmt.Errorf("dispatch: channel %s not available", channelID)
	}
	provider, err := d.Providers.Get(ch.Provider)
	if err != nil {
		return Sent{}, err
	}
	secret, err := d.Credentials.Get(ch.CredentialID)
	if err != nil {
		return Sent{}, err
	}

	key := msgKey{taskID: t.ID, channelID: channelID}

	if event == EventTaskComplete || event == EventTaskSuccess || event == EventTaskFailure {
		d.mu.Lock()
		prior, had := d.messageID[key]
		d.mu.Unlock()
		if had {
			if err := provider.Edit(ctx, ch, secret, prior.MessageID, text); err == nil {
				return prior, nil
			}
			// provider can't edit (or the edit failed) — fall through to a fresh send.
		}
	}

	res, err := provider.Send(ctx, ch, secret, text)
	if err != nil {
		return Sent{}, err
	}
	s := Sent{ChannelID: channelID, Provider: ch.Provider, ChatID: res.ChatID, MessageID: res.MessageID}
	if event == EventTaskStart {
		d.mu.Lock()
		d.messageID[key] = s
		d.mu.Unlock()
	}
	return s, nil
}

func (d *Dispatcher) format(event Event, t *task.Task, result *execlog.Result) string {
	switch event {
	case EventTaskStart:
		return fmt.Sprintf("▶️ %s started", t.Name)
	case EventTaskComplete:
		return fmt.Sprintf("✅ %s finished (%s)", t.Name, statusOf(result))
	case EventTaskSuccess:
		msg := fmt.Sprintf("✅ %s succeeded", t.Name)
		return d.withOutput(msg, t, result)
	case EventTaskFailure:
		msg := fmt.Sprintf("❌ %s failed: %s", t.Name, errOf(result))
		return d.withOutput(msg, t, result)
	case EventPlanReady:
		return fmt.Sprintf("📋 %s proposed a plan:\n\n%s", t.Name, outputOf(result))
	case EventPlanApproved:
		return fmt.Sprintf("✅ Plan approved for %s", t.Name)
	case EventPlanRejected:
		return fmt.Sprintf("🚫 Plan rejected for %s", t.Name)
	default:
		return fmt.Sprintf("%s: %s", event, t.Name)
	}
}

func (d *Dispatcher) withOutput(msg string, t *task.Task, result *execlog.Result) string {
	if t.Notifications != nil && t.Notifications.IncludeOutput && result != nil && result.Output != "" {
		return fmt.Sprintf("%s\n\n%s", msg, result.Output)
	}
	return msg
}

func subscribed(events []string, event Event) bool {
	for _, e := range events {
		if e == string(event) {
			return true
		}
	}
	return false
}

func statusOf(r *execlog.Result) string {
	if r == nil {
		return "unknown"
	}
	return string(r.Status)
}

func errOf(r *execlog.Result) string {
	if r == nil {
		return ""
	}
	return r.Error
}

func outputOf(r *execlog.Result) string {
	if r == nil {
		return ""
	}
	return r.Output
}
