// Package adminapi implements this module's minimal RPC surface (§6):
// a plain net/http + JSON API exposing task, channel, and approval
// operations, for the `goclaw serve` daemon and the CLI's
// remote/managed mode.
//
// Grounded on the teacher's internal/http package's
// ServeMux-method-routing + bearer-token authMiddleware idiom
// (internal/http/skills.go), substituted here for the teacher's own
// internal/gateway (a websocket RPC router whose client.go/router.go
// import internal/permissions — a package absent from this pack's
// retrieval, so that stack cannot compile or be wired; see DESIGN.md).
package adminapi

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/nextlevelbuilder/goclaw/internal/approval"
	"github.com/nextlevelbuilder/goclaw/internal/channels"
	"github.com/nextlevelbuilder/goclaw/internal/scheduler"
	"github.com/nextlevelbuilder/goclaw/internal/task"
)

// Server wires the task repository, channel store, approval manager,
// and scheduler kernel onto an HTTP mux.
type Server struct {
	Tasks     *task.Repository
	Channels  *channels.Store
	Approvals *approval.Manager
	Kernel    *scheduler.Kernel
	Token     string // bearer token; empty disables auth (local dev)
}

// Mux builds the *http.ServeMux for this server.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/tasks", s.auth(s.handleListTasks))
	mux.HandleFunc("POST /v1/tasks/{id}/run", s.auth(s.handleRunTask))
	mux.HandleFunc("GET /v1/channels", s.auth(s.handleListChannels))
	mux.HandleFunc("GET /v1/approvals", s.auth(s.handleListApprovals))
	mux.HandleFunc("POST /v1/approvals/{id}/approve", s.auth(s.handleApprove))
	mux.HandleFunc("POST /v1/approvals/{id}/reject", s.auth(s.handleReject))
	mux.HandleFunc("GET /v1/status", s.auth(s.handleStatus))
	return mux
}

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" {
			provided := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(s.Token)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": s.Tasks.FindAll()})
}

func (s *Server) handleRunTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, err := s.Tasks.FindByID(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	dryRun := r.URL.Query().Get("dry_run") == "true"
	result, err := s.Kernel.RunTask(r.Context(), &t, dryRun)
	if err != nil && result == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"channels": s.Channels.All()})
}

func (s *Server) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"approvals": s.Approvals.ListPending()})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	p, err := s.Approvals.Approve(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	p, err := s.Approvals.Reject(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.Kernel.Status()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     st,
		"checked_at": time.Now(),
	})
}
