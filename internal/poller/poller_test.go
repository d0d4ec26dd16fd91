package poller

import (
	"testing"

	"github.com/mymmrac/telego"
)

func TestParseCallbackValid(t *testing.T) {
	u := telego.Update{
		UpdateID:      5,
		CallbackQuery: &telego.CallbackQuery{Data: "plan:approve:abc123"},
	}
	cb, ok := parseCallback(u)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if cb.Action != "approve" || cb.ApprovalID != "abc123" {
		t.Errorf("cb = %+v", cb)
	}
}

func TestParseCallbackIgnoresNonCallbackUpdates(t *testing.T) {
	u := telego.Update{UpdateID: 1}
	if _, ok := parseCallback(u); ok {
		t.Fatal("expected no callback parsed")
	}
}

func TestParseCallbackIgnoresUnrelatedData(t *testing.T) {
	u := telego.Update{CallbackQuery: &telego.CallbackQuery{Data: "other:thing"}}
	if _, ok := parseCallback(u); ok {
		t.Fatal("expected unrelated callback data to be skipped")
	}
}

func TestParseCallbackMalformedPrefixOnly(t *testing.T) {
	u := telego.Update{CallbackQuery: &telego.CallbackQuery{Data: "plan:onlyone"}}
	cb, ok := parseCallback(u)
	if ok {
		t.Fatalf("expected malformed callback to be rejected, got %+v", cb)
	}
}
