package poller

import (
	"log/slog"

	"github.com/nextlevelbuilder/goclaw/internal/approval"
)

// Route applies a parsed callback to the plan-approval state machine,
// logging (not panicking) on an unknown action or an approval that can
// no longer transition — a stale or double-tapped button is an
// expected race, not an error worth surfacing to the poll loop.
func Route(mgr *approval.Manager, cb Callback) {
	var err error
	switch cb.Action {
	case "approve":
		_, err = mgr.Approve(cb.ApprovalID)
	case "reject":
		_, err = mgr.Reject(cb.ApprovalID)
	case "discuss":
		_, err = mgr.BeginDiscuss(cb.ApprovalID, cb.Feedback)
	default:
		slog.Warn("poller: unknown callback action", "action", cb.Action, "approval_id", cb.ApprovalID)
		return
	}
	if err != nil {
		slog.Info("poller: callback did not transition approval", "approval_id", cb.ApprovalID, "action", cb.Action, "error", err)
	}
}
