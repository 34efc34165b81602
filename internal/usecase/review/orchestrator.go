package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v71/github"
	log "github.com/sirupsen/logrus"

	"github.com/chiefai/reviewer/internal/domain"
)

var logger = log.WithField("package", "review")

// GitHubAPI is the outbound port to the code-hosting API.
type GitHubAPI interface {
	ListPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]domain.PRFile, error)
	CreatePullRequestReview(ctx context.Context, owner, repo string, number int, body string, verdict domain.Verdict) error
	CreateCommitStatus(ctx context.Context, owner, repo, sha, state, description, statusContext string) error
}

// ProviderContext carries the metadata the AI backend receives next to the diff.
type ProviderContext struct {
	Repo     string
	Title    string
	Filename string
}

// Provider is the AI review capability: given one file's diff, return
// review text conforming to the JSON contract in parse.go.
type Provider interface {
	ReviewCode(ctx context.Context, diff string, pc ProviderContext) (string, error)
	Name() string
	Model() string
}

// Notifier is the outbound notification port. Implementations report success
// as a boolean and never propagate their failures.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) bool
}

// State names one stage of the review pipeline.
type State string

const (
	StateIdle          State = "idle"
	StateStatusPending State = "status_pending"
	StateFilesFetched  State = "files_fetched"
	StatePerFileReview State = "per_file_review"
	StateAggregated    State = "aggregated"
	StatePublished     State = "published"
	StateDone          State = "done"
	StateErrorExit     State = "error_exit"
)

// Commit status states understood by the host UI.
const (
	statusPending = "pending"
	statusSuccess = "success"
	statusFailure = "failure"
	statusError   = "error"
)

// Discord-style embed colors used in notifications.
const (
	colorBlue   = 3447003
	colorGreen  = 3066993
	colorRed    = 10038562
	colorPurple = 15158332
)

// reviewableActions are the PR actions that trigger the pipeline. Everything
// else only produces an activity notification.
var reviewableActions = map[string]bool{
	"opened":      true,
	"synchronize": true,
	"reopened":    true,
}

// Orchestrator drives the per-pull-request review pipeline:
// fetch changed files, request an AI review per file, aggregate
// verdict/score/issues, publish the review and commit status, notify.
type Orchestrator struct {
	github        GitHubAPI
	provider      Provider
	notifier      Notifier
	statusContext string
	state         State
}

// NewOrchestrator wires the orchestrator dependencies.
func NewOrchestrator(gh GitHubAPI, provider Provider, notifier Notifier, statusContext string) *Orchestrator {
	return &Orchestrator{
		github:        gh,
		provider:      provider,
		notifier:      notifier,
		statusContext: statusContext,
		state:         StateIdle,
	}
}

func (o *Orchestrator) transition(next State) {
	logger.WithFields(log.Fields{"from": o.state, "to": next}).Debug("pipeline transition")
	o.state = next
}

// HandlePullRequest processes one pull_request event. Every action produces
// an activity notification; only opened/synchronize/reopened enter the
// review pipeline. Failures inside the pipeline set a best-effort "error"
// commit status and are re-raised so the execution contract can retry.
func (o *Orchestrator) HandlePullRequest(ctx context.Context, event *github.PullRequestEvent) error {
	pr := event.GetPullRequest()
	action := event.GetAction()

	number := pr.GetNumber()
	title := pr.GetTitle()
	author := pr.GetUser().GetLogin()
	repoFullName := event.GetRepo().GetFullName()
	owner := event.GetRepo().GetOwner().GetLogin()
	repo := event.GetRepo().GetName()
	commitSHA := pr.GetHead().GetSHA()

	logger.WithFields(log.Fields{
		"repo":   repoFullName,
		"pr":     number,
		"action": action,
	}).Info("processing pull_request event")

	o.notifyActivity(ctx, action, pr, repoFullName, author)

	if !reviewableActions[action] {
		return nil
	}

	o.state = StateIdle
	if err := o.runPipeline(ctx, owner, repo, repoFullName, number, title, author, commitSHA, pr.GetHTMLURL()); err != nil {
		o.transition(StateErrorExit)
		if commitSHA != "" {
			// Best effort: a failure to report the failure must not mask it.
			if statusErr := o.github.CreateCommitStatus(ctx, owner, repo, commitSHA,
				statusError, "An error occurred during AI review.", o.statusContext); statusErr != nil {
				logger.WithError(statusErr).Warn("failed to set error commit status")
			}
		}
		return err
	}
	return nil
}

func (o *Orchestrator) runPipeline(ctx context.Context, owner, repo, repoFullName string, number int, title, author, commitSHA, prURL string) error {
	if commitSHA != "" {
		if err := o.github.CreateCommitStatus(ctx, owner, repo, commitSHA,
			statusPending, "AI is currently reviewing the code...", o.statusContext); err != nil {
			// Non-fatal: a missing pending dot is cosmetic.
			logger.WithError(err).Warn("failed to set pending commit status")
		}
	}
	o.transition(StateStatusPending)

	files, err := o.github.ListPullRequestFiles(ctx, owner, repo, number)
	if err != nil {
		return fmt.Errorf("list pull request files: %w", err)
	}
	o.transition(StateFilesFetched)

	agg := domain.NewAggregatedReview()
	var sections []string

	o.transition(StatePerFileReview)
	for _, file := range files {
		if !file.Reviewable() {
			continue
		}

		raw, err := o.provider.ReviewCode(ctx, file.Patch, ProviderContext{
			Repo:     repoFullName,
			Title:    title,
			Filename: file.Filename,
		})
		if err != nil {
			return fmt.Errorf("review %s: %w", file.Filename, err)
		}
		if raw == "" {
			continue
		}

		fileReview, err := ParseFileReview(file.Filename, raw)
		if err != nil {
			// A single unparseable response must not sink the PR review.
			logger.WithError(err).WithField("file", file.Filename).
				Error("skipping file with malformed AI response")
			continue
		}

		agg.Fold(fileReview)
		if block := renderFileIssues(fileReview); block != "" {
			sections = append(sections, block)
		}
	}
	o.transition(StateAggregated)

	if agg.Clean() {
		logger.Info("no actionable feedback generated, skipping review comment")
		if commitSHA != "" {
			if err := o.github.CreateCommitStatus(ctx, owner, repo, commitSHA,
				statusSuccess, "AI review complete. No issues found.", o.statusContext); err != nil {
				logger.WithError(err).Warn("failed to set success commit status")
			}
		}
		o.transition(StateDone)
		return nil
	}

	body := o.composeReviewBody(agg, sections)
	if err := o.github.CreatePullRequestReview(ctx, owner, repo, number, body, agg.FinalVerdict); err != nil {
		return fmt.Errorf("post pull request review: %w", err)
	}
	o.transition(StatePublished)

	if commitSHA != "" {
		state := statusSuccess
		if agg.FinalVerdict == domain.VerdictRequestChanges {
			state = statusFailure
		}
		desc := fmt.Sprintf("Score: %d/100 | %d issues found", agg.WorstScore, agg.TotalIssues)
		if err := o.github.CreateCommitStatus(ctx, owner, repo, commitSHA, state, desc, o.statusContext); err != nil {
			logger.WithError(err).Warn("failed to set final commit status")
		}
	}

	o.notifyCompleted(ctx, agg, number, author, prURL)
	o.transition(StateDone)
	return nil
}

// composeReviewBody builds the PR review narrative: a summary header
// followed by the per-file issue blocks.
func (o *Orchestrator) composeReviewBody(agg *domain.AggregatedReview, sections []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## 🤖 AI Code Review Summary\n\n")
	fmt.Fprintf(&b, "Reviewed by **%s** (`%s`).\n\n", capitalize(o.provider.Name()), o.provider.Model())
	fmt.Fprintf(&b, "**Verdict**: %s\n**Score**: %d/100\n\n", agg.FinalVerdict, agg.WorstScore)
	b.WriteString(strings.Join(sections, "\n"))
	return b.String()
}

// renderFileIssues formats one file's issues as a markdown block. Files
// without issues produce nothing.
func renderFileIssues(fr domain.FileReview) string {
	if len(fr.Issues) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### File: `%s`\n\n", fr.Filename)
	for _, issue := range fr.Issues {
		fmt.Fprintf(&b, "**[%s] Line %d: %s**\n%s\n", issue.Severity, issue.Line, issue.Title, issue.Description)
		if issue.Suggestion != "" {
			fmt.Fprintf(&b, "\n*Suggestion:*\n```\n%s\n```\n", issue.Suggestion)
		}
		b.WriteString("\n---\n")
	}
	return b.String()
}

// notifyActivity emits the PR-activity notification sent for every action.
func (o *Orchestrator) notifyActivity(ctx context.Context, action string, pr *github.PullRequest, repoFullName, author string) {
	color := colorBlue
	if action == "closed" {
		if pr.GetMerged() {
			action = "merged"
			color = colorPurple
		} else {
			color = colorRed
		}
	}

	o.notifier.Notify(ctx, domain.Notification{
		Title:   fmt.Sprintf("🔀 Pull Request %s", capitalize(action)),
		Message: fmt.Sprintf("**[%s]** PR #%d: %s\nAction by: %s", repoFullName, pr.GetNumber(), pr.GetTitle(), author),
		Color:   color,
		Author:  author,
		URL:     pr.GetHTMLURL(),
	})
}

// notifyCompleted emits the end-of-review summary notification.
func (o *Orchestrator) notifyCompleted(ctx context.Context, agg *domain.AggregatedReview, number int, author, prURL string) {
	var parts []string
	for _, sev := range domain.Severities {
		if n := agg.SeverityCounts[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("**%s**: %d", sev, n))
		}
	}

	color := colorBlue
	switch agg.FinalVerdict {
	case domain.VerdictRequestChanges:
		color = colorRed
	case domain.VerdictApprove:
		color = colorGreen
	}

	o.notifier.Notify(ctx, domain.Notification{
		Title: fmt.Sprintf("🤖 AI Code Review Completed: PR #%d", number),
		Message: fmt.Sprintf(
			"**Provider:** %s | **Model:** %s\n**Verdict:** %s | **Score:** %d/100\n**Total Issues:** %d\n\n%s",
			capitalize(o.provider.Name()), o.provider.Model(),
			agg.FinalVerdict, agg.WorstScore, agg.TotalIssues,
			strings.Join(parts, " | ")),
		Color:  color,
		Author: author,
		URL:    prURL,
	})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
