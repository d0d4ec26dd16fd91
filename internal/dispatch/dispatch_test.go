package dispatch

import (
	"context"
	"fmt"
	"testing"

	"github.com/nextlevelbuilder/goclaw/internal/channels"
	"github.com/nextlevelbuilder/goclaw/internal/execlog"
	"github.com/nextlevelbuilder/goclaw/internal/notify"
	"github.com/nextlevelbuilder/goclaw/internal/task"
)

// fakeProvider records sends/edits in memory so tests don't need real
// bot tokens or webhook URLs.
type fakeProvider struct {
	name    string
	sends   int
	edits   int
	nextID  int
	canEdit bool
}

func (f *fakeProvider) Name() string                            { return f.name }
func (f *fakeProvider) ConfigSchema() notify.ConfigSchema       { return notify.ConfigSchema{} }
func (f *fakeProvider) FormatMessage(text string) string        { return text }
func (f *fakeProvider) ValidateConfig(map[string]string) error  { return nil }
func (f *fakeProvider) TestConnection(context.Context, channels.Channel, string) (bool, string) {
	return true, ""
}
func (f *fakeProvider) Send(ctx context.Context, ch channels.Channel, secret, text string) (notify.SendResult, error) {
	f.sends++
	f.nextID++
	return notify.SendResult{Success: true, MessageID: fmt.Sprintf("m%d", f.nextID)}, nil
}
func (f *fakeProvider) SendInteractive(ctx context.Context, ch channels.Channel, secret string, m notify.Message) (notify.SendResult, error) {
	return f.Send(ctx, ch, secret, m.Text)
}
func (f *fakeProvider) Edit(ctx context.Context, ch channels.Channel, secret, messageID, text string) error {
	if !f.canEdit {
		return notify.ErrNotSupported
	}
	f.edits++
	return nil
}
func (f *fakeProvider) RemoveButtons(ctx context.Context, ch channels.Channel, secret, messageID, newText string) error {
	return notify.ErrNotSupported
}

type stubCreds struct{}

func (stubCreds) Get(id string) (string, error) { return "secret-" + id, nil }

func setup(t *testing.T, provider *fakeProvider) (*Dispatcher, *task.Task) {
	t.Helper()
	chStore := channels.NewStore(t.TempDir() + "/channels.yaml")
	if err := chStore.Upsert(channels.Channel{ID: "c1", Provider: provider.name, Enabled: true, CredentialID: "cred1"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	reg := notify.NewRegistry()
	reg.Register(provider)

	d := New(chStore, stubCreds{}, reg)
	tk := &task.Task{
		ID: "t1", Name: "nightly",
		Notifications: &task.NotificationPolicy{
			Channels: []string{"c1"},
			Events:   []string{string(EventTaskStart), string(EventTaskComplete)},
		},
	}
	return d, tk
}

func TestDispatcherEditsInPlaceOnComplete(t *testing.T) {
	provider := &fakeProvider{name: "telegram", canEdit: true}
	d, tk := setup(t, provider)

	sent := d.Notify(context.Background(), EventTaskStart, tk, nil)
	if len(sent) != 1 {
		t.Fatalf("TASK_START sent = %d, want 1", len(sent))
	}
	if provider.sends != 1 {
		t.Fatalf("sends = %d, want 1", provider.sends)
	}

	result := &execlog.Result{Status: execlog.StatusSuccess}
	d.Notify(context.Background(), EventTaskComplete, tk, result)
	if provider.edits != 1 {
		t.Errorf("edits = %d, want 1", provider.edits)
	}
	if provider.sends != 1 {
		t.Errorf("sends = %d, want still 1 (edited, not resent)", provider.sends)
	}
}

func TestDispatcherFallsBackToSendWhenEditUnsupported(t *testing.T) {
	provider := &fakeProvider{name: "discord", canEdit: false}
	d, tk := setup(t, provider)

	d.Notify(context.Background(), EventTaskStart, tk, nil)
	d.Notify(context.Background(), EventTaskComplete, tk, &execlog.Result{Status: execlog.StatusSuccess})

	if provider.sends != 2 {
		t.Errorf("sends = %d, want 2 (start + fallback complete)", provider.sends)
	}
}

func TestDispatcherIgnoresUnsubscribedEvent(t *testing.T) {
	provider := &fakeProvider{name: "telegram", canEdit: true}
	d, tk := setup(t, provider)

	sent := d.Notify(context.Background(), EventPlanReady, tk, nil)
	if len(sent) != 0 {
		t.Errorf("expected no sends for unsubscribed event, got %d", len(sent))
	}
}

func TestDispatcherSwallowsChannelFailure(t *testing.T) {
	provider := &fakeProvider{name: "telegram", canEdit: true}
	d, tk := setup(t, provider)
	tk.Notifications.Channels = []string{"missing-channel"}

	sent := d.Notify(context.Background(), EventTaskStart, tk, nil)
	if len(sent) != 0 {
		t.Errorf("expected no successful sends for a missing channel, got %d", len(sent))
	}
}
