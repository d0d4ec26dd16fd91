// Package strategy implements the execution strategy set (§4.G): each
// strategy maps an ExecutionContext into a provider Request, then
// delegates argv construction to the chosen agent provider.
//
// Grounded on original_source's execution/strategies/*.py strategy
// classes (the streaming/plan-mode-aware submodule versions, not the
// older single-file strategies.py), adapted from Python subprocess argv
// lists into Go request/provider objects.
package strategy

import (
	"fmt"

	"github.com/nextlevelbuilder/goclaw/internal/agentprovider"
	"github.com/nextlevelbuilder/goclaw/internal/skills"
	"github.com/nextlevelbuilder/goclaw/internal/task"
)

// PlanModeSystemPrompt instructs the agent to produce a read-only plan
// without performing destructive actions (§4.G PlanMode, §4.K step 1).
const PlanModeSystemPrompt = "You are in planning mode. Analyze the request and produce a clear, " +
	"step-by-step plan describing what you would do. Do not modify any files, run any commands " +
	"with side effects, or take any destructive action. Only read, inspect, and describe."

// ApprovalSystemPrompt is appended for the resume-with-approval phase
// (§4.K step 4): the human has approved the plan and the agent may now
// act.
const ApprovalSystemPrompt = "The plan you proposed has been reviewed and approved by a human " +
	"operator. Proceed to execute it now with full permissions."

// ApprovedPrompt is the canned user-turn prompt sent alongside
// ApprovalSystemPrompt.
const ApprovedPrompt = "USER APPROVED. Complete the task now."

// Context is the input to every strategy: the task plus resolved skill
// (if any), final prompt text, working directory, and an optional prior
// session id for resume strategies.
type Context struct {
	Task       *task.Task
	Skill      *skills.Skill
	Prompt     string
	WorkingDir string
	SessionID  string
	Feedback   string // discuss-phase feedback, used by ResumeWithFeedback
}

// Strategy maps a Context, via a chosen provider, into a concrete argv.
type Strategy interface {
	BuildCommand(ctx Context, provider agentprovider.Provider) ([]string, error)
}

func baseRequest(ctx Context, provider agentprovider.Provider) agentprovider.Request {
	req := agentprovider.Request{
		Prompt:       ctx.Prompt,
		WorkingDir:   ctx.WorkingDir,
		Model:        provider.MapModelTier(string(ctx.Task.Model)),
		TimeoutSecs:  ctx.Task.Timeout,
		MaxTurns:     ctx.Task.MaxTurns,
		AllowedTools: ctx.Task.AllowedTools,
	}
	if ctx.Skill != nil && len(ctx.Skill.AllowedTools) > 0 {
		// the skill's allowed_tools takes precedence over the task's,
		// matching original_source's plan_mode.py precedence rule.
		req.AllowedTools = ctx.Skill.AllowedTools
	}
	return req
}

// Headless is a plain prompt-only invocation (no autonomy, no skill).
type Headless struct{}

func (Headless) BuildCommand(ctx Context, provider agentprovider.Provider) ([]string, error) {
	req := baseRequest(ctx, provider)
	return provider.BuildCommand(req)
}

// Autonomous adds the provider's autonomous flag to a headless invocation.
type Autonomous struct{}

func (Autonomous) BuildCommand(ctx Context, provider agentprovider.Provider) ([]string, error) {
	req := baseRequest(ctx, provider)
	req.Autonomous = true
	return provider.BuildCommand(req)
}

// Skill prepends "/skillname" to the prompt, following the task's
// autonomous flag for the remaining flags.
type Skill struct{}

func (Skill) BuildCommand(ctx Context, provider agentprovider.Provider) ([]string, error) {
	if ctx.Skill == nil {
		return nil, fmt.Errorf("strategy: skill strategy requires a resolved skill")
	}
	req := baseRequest(ctx, provider)
	req.Prompt = fmt.Sprintf("/%s %s", ctx.Skill.Name, ctx.Prompt)
	req.Autonomous = ctx.Task.Autonomous
	return provider.BuildCommand(req)
}

// PlanMode runs the agent read-only, instructing it to produce a plan
// rather than act (phase 1 of §4.K).
type PlanMode struct{}

func (PlanMode) BuildCommand(ctx Context, provider agentprovider.Provider) ([]string, error) {
	if !provider.Capabilities().PlanMode {
		return nil, fmt.Errorf("strategy: provider %s does not support plan mode", provider.Name())
	}
	req := baseRequest(ctx, provider)
	req.PlanMode = true
	return provider.BuildCommand(req)
}

// ResumeWithApproval resumes the phase-1 session with elevated privileges
// after a human has approved the plan (§4.K step 4).
type ResumeWithApproval struct{}

func (ResumeWithApproval) BuildCommand(ctx Context, provider agentprovider.Provider) ([]string, error) {
	if ctx.SessionID == "" {
		return nil, fmt.Errorf("strategy: resume requires a session id")
	}
	if !provider.Capabilities().Resume {
		return nil, fmt.Errorf("strategy: provider %s does not support resume", provider.Name())
	}
	req := baseRequest(ctx, provider)
	req.SessionID = ctx.SessionID
	req.Autonomous = true
	req.Prompt = ApprovedPrompt
	return provider.BuildCommand(req)
}

// ResumeWithFeedback resumes the phase-1 session in plan mode again,
// carrying the human's discuss-phase feedback as the new prompt
// (§4.K step 6).
type ResumeWithFeedback struct{}

func (ResumeWithFeedback) BuildCommand(ctx Context, provider agentprovider.Provider) ([]string, error) {
	if ctx.SessionID == "" {
		return nil, fmt.Errorf("strategy: resume requires a session id")
	}
	if !provider.Capabilities().Resume {
		return nil, fmt.Errorf("strategy: provider %s does not support resume", provider.Name())
	}
	req := baseRequest(ctx, provider)
	req.SessionID = ctx.SessionID
	req.PlanMode = true
	req.Prompt = ctx.Feedback
	return provider.BuildCommand(req)
}

// ProviderStrategy delegates build_command entirely to the provider with
// no strategy-specific flags layered on top — the generic fallback named
// in §4.G.
type ProviderStrategy struct{}

func (ProviderStrategy) BuildCommand(ctx Context, provider agentprovider.Provider) ([]string, error) {
	return provider.BuildCommand(baseRequest(ctx, provider))
}

// Select implements the primary-dispatch rule of §4.G: skill takes
// precedence, then autonomous, else headless.
func Select(t *task.Task) Strategy {
	switch {
	case t.HasSkill():
		return Skill{}
	case t.Autonomous:
		return Autonomous{}
	default:
		return Headless{}
	}
}
