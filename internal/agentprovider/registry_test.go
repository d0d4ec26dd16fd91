package agentprovider

import "testing"

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	p, err := r.Get("claude")
	if err != nil {
		t.Fatalf("Get(claude): %v", err)
	}
	if p.Name() != "claude" {
		t.Errorf("Name() = %q", p.Name())
	}

	again, err := r.Get("claude")
	if err != nil {
		t.Fatalf("Get(claude) second time: %v", err)
	}
	if p != again {
		t.Error("expected cached instance to be returned on second Get")
	}
}

func TestRegistryNotFound(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("nonexistent"); err == nil {
		t.Fatal("expected NotFoundError")
	}
}

func TestClaudeCapabilities(t *testing.T) {
	p := NewClaudeProvider("/usr/bin/claude")
	caps := p.Capabilities()
	if !caps.PlanMode || !caps.Resume || !caps.Streaming || !caps.Autonomous {
		t.Errorf("Claude capabilities incomplete: %+v", caps)
	}
}

func TestCodexValidateRequestRejectsPlanMode(t *testing.T) {
	p := NewCodexProvider("/usr/bin/codex")
	ok, reason := p.ValidateRequest(Request{PlanMode: true})
	if ok {
		t.Fatal("expected codex to reject plan mode")
	}
	if reason == "" {
		t.Error("expected a reason string")
	}
}

func TestCodexValidateRequestRejectsResume(t *testing.T) {
	p := NewCodexProvider("/usr/bin/codex")
	ok, _ := p.ValidateRequest(Request{SessionID: "abc"})
	if ok {
		t.Fatal("expected codex to reject a session id (no resume support)")
	}
}

func TestClaudeParseOutputPrefersDeltas(t *testing.T) {
	p := NewClaudeProvider("/usr/bin/claude")
	raw := `{"type":"system","session_id":"sid-1"}
{"type":"stream_event","event":{"type":"content_block_delta","delta":{"type":"text_delta","text":"Hello "}}}
{"type":"stream_event","event":{"type":"content_block_delta","delta":{"type":"text_delta","text":"world"}}}
{"type":"result","result":"fallback text"}
`
	text, sessionID, err := p.ParseOutput(raw)
	if err != nil {
		t.Fatalf("ParseOutput: %v", err)
	}
	if text != "Hello world" {
		t.Errorf("text = %q, want %q", text, "Hello world")
	}
	if sessionID != "sid-1" {
		t.Errorf("sessionID = %q", sessionID)
	}
}

func TestClaudeParseOutputFallsBackToResult(t *testing.T) {
	p := NewClaudeProvider("/usr/bin/claude")
	raw := `{"type":"system","session_id":"sid-2"}
{"type":"result","result":"final answer"}
`
	text, sessionID, err := p.ParseOutput(raw)
	if err != nil {
		t.Fatalf("ParseOutput: %v", err)
	}
	if text != "final answer" {
		t.Errorf("text = %q, want %q", text, "final answer")
	}
	if sessionID != "sid-2" {
		t.Errorf("sessionID = %q", sessionID)
	}
}

func TestCodexParseOutputErrors(t *testing.T) {
	p := NewCodexProvider("/usr/bin/codex")
	raw := `{"type":"message","content":"partial "}
{"type":"error","error":"rate limited"}
`
	_, _, err := p.ParseOutput(raw)
	if err == nil {
		t.Fatal("expected error from codex error event")
	}
}
