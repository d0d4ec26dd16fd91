package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/goclaw/internal/agentprovider"
	"github.com/nextlevelbuilder/goclaw/internal/config"
	"github.com/nextlevelbuilder/goclaw/internal/execlog"
	"github.com/nextlevelbuilder/goclaw/internal/executor"
	"github.com/nextlevelbuilder/goclaw/internal/scheduler"
	"github.com/nextlevelbuilder/goclaw/internal/session"
	"github.com/nextlevelbuilder/goclaw/internal/skills"
	"github.com/nextlevelbuilder/goclaw/internal/task"
	"github.com/nextlevelbuilder/goclaw/internal/tracker"
)

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage scheduled tasks",
	}
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskRunCmd())
	return cmd
}

func taskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			repo := task.NewRepository(cfg.TasksFile)
			if err := repo.Load(); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSCHEDULE\tENABLED\tLAST RUN")
			for _, t := range repo.FindAll() {
				lastRun := "-"
				if t.LastRun != nil {
					lastRun = t.LastRun.Format(time.RFC3339)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%v\t%s\n", t.ID, t.Name, t.Schedule, t.Enabled, lastRun)
			}
			return tw.Flush()
		},
	}
}

func taskRunCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run [taskID]",
		Short: "Run a task immediately, bypassing its schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			kernel, repo, err := buildLocalKernel(cfg)
			if err != nil {
				return err
			}
			t, err := repo.FindByID(args[0])
			if err != nil {
				return err
			}
			result, err := kernel.RunTask(context.Background(), &t, dryRun)
			if err != nil && result == nil {
				return err
			}
			fmt.Printf("status=%s exit_code=%v error=%q\n", result.Status, result.ExitCode, result.Error)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve and print the command without executing it")
	return cmd
}

// buildLocalKernel wires the minimal dependency graph a one-off CLI
// invocation needs to run a single task: no dispatcher, no poller, no
// HTTP surface (those only matter for the long-running daemon; see
// serveCmd).
func buildLocalKernel(cfg *config.Config) (*scheduler.Kernel, *task.Repository, error) {
	repo := task.NewRepository(cfg.TasksFile)
	if err := repo.Load(); err != nil {
		return nil, nil, err
	}
	logs := execlog.NewRepository(cfg.LogsDir)
	sessions := session.NewManager(cfg.SessionsDir)
	skillReg := skills.NewRegistry(cfg.ProjectSkillsDir, cfg.GlobalSkillsDir)

	providers := agentprovider.NewRegistry()
	for name, exe := range cfg.ProviderExecutables {
		providers.SetExecutable(name, exe)
	}

	exec := executor.New(sessions, skillReg, providers, logs)
	trk := tracker.New()
	kernel := scheduler.New(repo, exec, trk, nil, cfg.MaxConcurrent)
	return kernel, repo, nil
}
