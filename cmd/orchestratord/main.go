// Command orchestratord runs the webhook-triggered build/review service: it
// receives GitHub issue_comment events, serializes them per repo#issue via
// internal/dispatcher, and hands each task to an internal/orchestrator.Coordinator.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/forgepilot/swe-orchestrator/internal/config"
	"github.com/forgepilot/swe-orchestrator/internal/dispatcher"
	"github.com/forgepilot/swe-orchestrator/internal/github/validation"
	"github.com/forgepilot/swe-orchestrator/internal/orchestrator"
	"github.com/forgepilot/swe-orchestrator/internal/policy"
	"github.com/forgepilot/swe-orchestrator/internal/toolconfig"
	"github.com/forgepilot/swe-orchestrator/internal/webhook"
)

// defaultAllowedCommands is the Policy Gate's baseline command allowlist for
// a coding agent operating inside a provisioned worktree.
var defaultAllowedCommands = []string{
	"git", "go", "npm", "npx", "yarn", "pnpm", "node",
	"bash", "sh", "cat", "ls", "echo", "grep", "find", "mkdir", "rm", "mv", "cp",
	"curl", "make",
}

// dispatchExecutor adapts a *dispatcher.Dispatcher to webhook.Executor:
// HandleIssueComment expects Execute to return quickly (it already runs it
// in a background goroutine and responds 202 immediately), and
// Dispatcher.Enqueue does exactly that — queue and return — leaving the
// actual build/review run to the dispatcher's worker pool.
type dispatchExecutor struct {
	d *dispatcher.Dispatcher
}

func (e dispatchExecutor) Execute(_ context.Context, task *webhook.Task) error {
	return e.d.Enqueue(task)
}

func buildCoordinator(cfg *config.Config) *orchestrator.Coordinator {
	return orchestrator.New(orchestrator.Config{
		ProjectDir:            cfg.ProjectDir,
		WorktreeRoot:          cfg.WorktreeRoot,
		DefaultModel:          cfg.ClaudeModel,
		DefaultThinkingBudget: cfg.DefaultThinkingBudget,
		IterationDelay:        cfg.IterationDelay,
		GitHubToken:           cfg.GitHubToken,
		GitHubAppID:           cfg.GitHubAppID,
		GitHubPrivateKey:      cfg.GitHubPrivateKey,
		SpecialistCount:       cfg.SpecialistCount,
		SpecialistTimeout:     cfg.SpecialistTimeout,
		ToolOptions: toolconfig.Options{
			UseCommitSigning:       cfg.UseCommitSigning,
			EnableGitHubCommentMCP: cfg.EnableGitHubCommentMCP,
			EnableGitHubFileOpsMCP: cfg.EnableGitHubFileOpsMCP,
			EnableGitHubCIMCP:      cfg.EnableGitHubCIMCP,
		},
		Policy:            policy.NewProfile(defaultAllowedCommands...),
		DailyCallLimit:    cfg.DailyCallLimit,
		DailyCostLimit:    cfg.DailyCostLimit,
		PerIssueCostLimit: cfg.PerIssueCostLimit,
	}, nil, nil)
}

// run wires the service and blocks inside serve; it is the unit-testable
// seam (tests inject a fake serve to avoid binding a real port).
func run(ctx context.Context, serve func(addr string, handler http.Handler) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	coord := buildCoordinator(cfg)

	d := dispatcher.New(coord, dispatcher.Config{
		Workers:           cfg.DispatcherWorkers,
		QueueSize:         cfg.DispatcherQueueSize,
		MaxAttempts:       cfg.DispatcherMaxAttempts,
		InitialBackoff:    cfg.DispatcherRetryInitial,
		MaxBackoff:        cfg.DispatcherRetryMax,
		BackoffMultiplier: cfg.DispatcherBackoffMultiplier,
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		d.Shutdown(shutdownCtx)
	}()

	var perms webhook.PermissionChecker
	if cfg.GitHubToken != "" {
		perms = validation.RepoPermissionChecker{Token: cfg.GitHubToken}
	}
	webhookHandler := webhook.NewHandler(cfg.GitHubWebhookSecret, cfg.TriggerKeyword, dispatchExecutor{d: d}, perms)

	r := mux.NewRouter()
	r.HandleFunc("/webhook", webhookHandler.HandleIssueComment).Methods("POST")
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")

	addr := fmt.Sprintf(":%d", cfg.Port)
	return serve(addr, r)
}

func serveAndWait(addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("orchestratord listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Println("shutting down orchestratord...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func main() {
	if err := run(context.Background(), serveAndWait); err != nil {
		log.Fatalf("orchestratord: %v", err)
	}
}
