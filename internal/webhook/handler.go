package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

// Task describes one build or PR-review run to hand off to an Executor.
type Task struct {
	Repo       string
	Number     int
	Branch     string
	Prompt     string
	IssueTitle string
	IssueBody  string
	IsPR       bool
	Attempt    int
}

// Executor runs a Task to completion (or enqueues it for a worker pool to
// run, per internal/dispatcher).
type Executor interface {
	Execute(ctx context.Context, task *Task) error
}

// PermissionChecker reports whether user may trigger a build/review on
// repo. A nil PermissionChecker on Handler disables the check entirely
// (tests, or a deployment that trusts its webhook secret alone).
type PermissionChecker interface {
	HasWritePermission(ctx context.Context, repo, user string) (bool, error)
}

// Handler turns verified issue_comment webhook deliveries into Tasks.
type Handler struct {
	webhookSecret  string
	triggerKeyword string
	executor       Executor
	perms          PermissionChecker
}

// NewHandler constructs a Handler. perms may be nil to skip the
// write-permission gate.
func NewHandler(webhookSecret, triggerKeyword string, executor Executor, perms PermissionChecker) *Handler {
	return &Handler{
		webhookSecret:  webhookSecret,
		triggerKeyword: triggerKeyword,
		executor:       executor,
		perms:          perms,
	}
}

// HandleIssueComment is the http.HandlerFunc for GitHub's issue_comment
// webhook event.
func (h *Handler) HandleIssueComment(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("[Webhook] error reading payload: %v", err)
		http.Error(w, "error reading payload", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("X-Hub-Signature-256")
	if err := ValidateSignatureHeader(signature); err != nil {
		log.Printf("[Webhook] invalid signature header: %v", err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}
	if !VerifySignature(payload, signature, h.webhookSecret) {
		log.Printf("[Webhook] signature verification failed")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var event IssueCommentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("[Webhook] error parsing event: %v", err)
		http.Error(w, "error parsing event", http.StatusBadRequest)
		return
	}

	if event.Comment.User.Type == "Bot" {
		log.Printf("[Webhook] ignoring comment from bot: %s", event.Comment.User.Login)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("bot comment ignored"))
		return
	}

	if !strings.Contains(event.Comment.Body, h.triggerKeyword) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("no trigger keyword found"))
		return
	}

	prompt := extractPrompt(event.Comment.Body, h.triggerKeyword)
	if prompt == "" {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("no prompt found after trigger keyword"))
		return
	}

	if h.perms != nil {
		ok, err := h.perms.HasWritePermission(r.Context(), event.Repository.FullName, event.Comment.User.Login)
		if err != nil {
			log.Printf("[Webhook] permission check failed for %s on %s: %v", event.Comment.User.Login, event.Repository.FullName, err)
			http.Error(w, "permission check failed", http.StatusInternalServerError)
			return
		}
		if !ok {
			log.Printf("[Webhook] rejecting trigger from %s: no write access to %s", event.Comment.User.Login, event.Repository.FullName)
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("commenter lacks write access"))
			return
		}
	}

	task := &Task{
		Repo:       event.Repository.FullName,
		Number:     event.Issue.Number,
		Branch:     event.Repository.DefaultBranch,
		Prompt:     prompt,
		IssueTitle: event.Issue.Title,
		IssueBody:  event.Issue.Body,
		IsPR:       event.Issue.PullRequest != nil,
	}

	log.Printf("[Webhook] accepted task: repo=%s number=%d", task.Repo, task.Number)

	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte(fmt.Sprintf("task accepted: %s", prompt)))

	go func() {
		if err := h.executor.Execute(context.Background(), task); err != nil {
			log.Printf("[Webhook] task execution failed: %v", err)
		}
	}()
}

// extractPrompt returns the first line of text following the trigger
// keyword, the same "one-liner command" convention the teacher uses.
func extractPrompt(body, triggerKeyword string) string {
	idx := strings.Index(body, triggerKeyword)
	if idx == -1 {
		return ""
	}

	remaining := strings.TrimSpace(body[idx+len(triggerKeyword):])
	lines := strings.Split(remaining, "\n")
	if len(lines) == 0 {
		return ""
	}

	return strings.TrimSpace(lines[0])
}
