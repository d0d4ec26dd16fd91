package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/goclaw/internal/adminapi"
	"github.com/nextlevelbuilder/goclaw/internal/agentprovider"
	"github.com/nextlevelbuilder/goclaw/internal/approval"
	"github.com/nextlevelbuilder/goclaw/internal/channels"
	"github.com/nextlevelbuilder/goclaw/internal/config"
	"github.com/nextlevelbuilder/goclaw/internal/credential"
	"github.com/nextlevelbuilder/goclaw/internal/dispatch"
	"github.com/nextlevelbuilder/goclaw/internal/execlog"
	"github.com/nextlevelbuilder/goclaw/internal/executor"
	"github.com/nextlevelbuilder/goclaw/internal/notify"
	"github.com/nextlevelbuilder/goclaw/internal/poller"
	"github.com/nextlevelbuilder/goclaw/internal/scheduler"
	"github.com/nextlevelbuilder/goclaw/internal/session"
	"github.com/nextlevelbuilder/goclaw/internal/skills"
	"github.com/nextlevelbuilder/goclaw/internal/task"
	"github.com/nextlevelbuilder/goclaw/internal/tracker"
)

// serveCmd runs the long-lived daemon: the scheduler's run-due ticker,
// one Telegram callback poller per bot-backed channel, the hot-reload
// watchers over tasks.yaml/channels.yaml, and the admin RPC surface
// (internal/adminapi), all wired against a single Config.
//
// Grounded on the teacher's internal/cron/service.go runLoop (ticker +
// context-cancellation shutdown) for the run-due loop, and on
// internal/config/hotreload.go's signal.Notify(os.Interrupt,
// syscall.SIGTERM) graceful-shutdown idiom for the top-level wait.
func serveCmd() *cobra.Command {
	var addr, token string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, addr, token)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "admin RPC listen address")
	cmd.Flags().StringVar(&token, "token", "", "admin RPC bearer token (empty disables auth)")
	return cmd
}

func runServe(cfgPath, addr, token string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("serve: load config: %w", err)
	}

	tasks := task.NewRepository(cfg.TasksFile)
	if err := tasks.Load(); err != nil {
		return fmt.Errorf("serve: load tasks: %w", err)
	}
	chStore := channels.NewStore(cfg.ChannelsFile)
	if err := chStore.Load(); err != nil {
		return fmt.Errorf("serve: load channels: %w", err)
	}

	logs := execlog.NewRepository(cfg.LogsDir)
	sessions := session.NewManager(cfg.SessionsDir)
	skillReg := skills.NewRegistry(cfg.ProjectSkillsDir, cfg.GlobalSkillsDir)

	providers := agentprovider.NewRegistry()
	for name, exe := range cfg.ProviderExecutables {
		providers.SetExecutable(name, exe)
	}

	creds := credential.NewStore()
	notifiers := notify.NewRegistry()
	disp := dispatch.New(chStore, creds, notifiers)

	exec := executor.New(sessions, skillReg, providers, logs)
	trk := tracker.New()
	kernel := scheduler.New(tasks, exec, trk, disp, cfg.MaxConcurrent)

	approvals := approval.NewManager(cfg.ApprovalTTL())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tasksWatcher, err := config.NewFileWatcher(cfg.TasksFile, func() {
		if err := tasks.Load(); err != nil {
			slog.Error("serve: reload tasks failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("serve: tasks watcher: %w", err)
	}
	if err := tasksWatcher.Start(filepath.Dir(cfg.TasksFile)); err != nil {
		return fmt.Errorf("serve: start tasks watcher: %w", err)
	}
	defer tasksWatcher.Stop()

	channelsWatcher, err := config.NewFileWatcher(cfg.ChannelsFile, func() {
		if err := chStore.Load(); err != nil {
			slog.Error("serve: reload channels failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("serve: channels watcher: %w", err)
	}
	if err := channelsWatcher.Start(filepath.Dir(cfg.ChannelsFile)); err != nil {
		return fmt.Errorf("serve: start channels watcher: %w", err)
	}
	defer channelsWatcher.Stop()

	for _, ch := range chStore.All() {
		if ch.Provider != "telegram" || !ch.Enabled || ch.Config["mode"] != "bot" {
			continue
		}
		tok, err := creds.Get(ch.CredentialID)
		if err != nil {
			slog.Warn("serve: skipping telegram poller, no credential", "channel_id", ch.ID, "error", err)
			continue
		}
		p, err := poller.NewTelegramPoller(tok)
		if err != nil {
			slog.Warn("serve: skipping telegram poller", "channel_id", ch.ID, "error", err)
			continue
		}
		go p.Run(ctx, makeCallbackHandler(approvals))
	}

	go runDueLoop(ctx, kernel)
	go sweepApprovalsLoop(ctx, approvals)

	srv := &adminapi.Server{
		Tasks:     tasks,
		Channels:  chStore,
		Approvals: approvals,
		Kernel:    kernel,
		Token:     token,
	}
	httpServer := &http.Server{Addr: addr, Handler: srv.Mux()}
	go func() {
		slog.Info("serve: admin RPC listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("serve: admin RPC server failed", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("serve: shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

// runDueLoop fires RunDue every tick, matching the teacher's
// internal/cron/service.go 1s-ticker runLoop.
func runDueLoop(ctx context.Context, kernel *scheduler.Kernel) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := kernel.RunDue(ctx, time.Minute, false); err != nil {
				slog.Error("serve: run-due failed", "error", err)
			}
		}
	}
}

// sweepApprovalsLoop expires stale pending approvals (§4.K) once a
// minute.
func sweepApprovalsLoop(ctx context.Context, approvals *approval.Manager) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range approvals.SweepExpired(time.Now()) {
				slog.Info("serve: approval expired", "approval_id", id)
			}
		}
	}
}

func makeCallbackHandler(approvals *approval.Manager) poller.Handler {
	return func(cb poller.Callback) {
		var err error
		switch cb.Action {
		case "approve":
			_, err = approvals.Approve(cb.ApprovalID)
		case "reject":
			_, err = approvals.Reject(cb.ApprovalID)
		case "discuss":
			_, err = approvals.BeginDiscuss(cb.ApprovalID, cb.Feedback)
		default:
			slog.Warn("serve: unknown callback action", "action", cb.Action)
			return
		}
		if err != nil {
			slog.Warn("serve: callback action failed", "approval_id", cb.ApprovalID, "action", cb.Action, "error", err)
		}
	}
}

