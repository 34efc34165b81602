package review

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-github/v71/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiefai/reviewer/internal/adapter/githubapp"
	"github.com/chiefai/reviewer/internal/domain"
)

type statusCall struct {
	SHA         string
	State       string
	Description string
	Context     string
}

type reviewCall struct {
	Number  int
	Body    string
	Verdict domain.Verdict
}

type fakeGitHub struct {
	files    []domain.PRFile
	filesErr error

	statuses []statusCall
	reviews  []reviewCall
}

func (f *fakeGitHub) ListPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]domain.PRFile, error) {
	if f.filesErr != nil {
		return nil, f.filesErr
	}
	return f.files, nil
}

func (f *fakeGitHub) CreatePullRequestReview(ctx context.Context, owner, repo string, number int, body string, verdict domain.Verdict) error {
	f.reviews = append(f.reviews, reviewCall{Number: number, Body: body, Verdict: verdict})
	return nil
}

func (f *fakeGitHub) CreateCommitStatus(ctx context.Context, owner, repo, sha, state, description, statusContext string) error {
	f.statuses = append(f.statuses, statusCall{SHA: sha, State: state, Description: description, Context: statusContext})
	return nil
}

type fakeProvider struct {
	responses map[string]string // filename -> raw response
	calls     []string
}

func (p *fakeProvider) ReviewCode(ctx context.Context, diff string, pc ProviderContext) (string, error) {
	p.calls = append(p.calls, pc.Filename)
	return p.responses[pc.Filename], nil
}

func (p *fakeProvider) Name() string  { return "static" }
func (p *fakeProvider) Model() string { return "static-model" }

type fakeNotifier struct {
	sent []domain.Notification
}

func (n *fakeNotifier) Notify(ctx context.Context, msg domain.Notification) bool {
	n.sent = append(n.sent, msg)
	return true
}

func prEvent(action string) *github.PullRequestEvent {
	return &github.PullRequestEvent{
		Action: github.Ptr(action),
		PullRequest: &github.PullRequest{
			Number:  github.Ptr(7),
			Title:   github.Ptr("Add widget support"),
			HTMLURL: github.Ptr("https://github.com/acme/widgets/pull/7"),
			User:    &github.User{Login: github.Ptr("octocat")},
			Head:    &github.PullRequestBranch{SHA: github.Ptr("abc123")},
		},
		Repo: &github.Repository{
			Name:     github.Ptr("widgets"),
			FullName: github.Ptr("acme/widgets"),
			Owner:    &github.User{Login: github.Ptr("acme")},
		},
	}
}

func fileResponse(verdict string, score int, issues int) string {
	body := `{"summary": "s", "file_type": "GO", "files": [{"filename": "f", "issues": [`
	for i := 0; i < issues; i++ {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"severity": "HIGH", "line": %d, "title": "t%d", "description": "d", "suggestion": ""}`, i+1, i)
	}
	body += fmt.Sprintf(`]}], "verdict": "%s", "score": %d}`, verdict, score)
	return body
}

func TestPipelineAggregatesTwoFiles(t *testing.T) {
	gh := &fakeGitHub{files: []domain.PRFile{
		{Filename: "a.go", Status: "modified", Patch: "@@a"},
		{Filename: "b.go", Status: "modified", Patch: "@@b"},
	}}
	provider := &fakeProvider{responses: map[string]string{
		"a.go": fileResponse("REQUEST_CHANGES", 30, 2),
		"b.go": fileResponse("APPROVE", 95, 0),
	}}
	notifier := &fakeNotifier{}

	o := NewOrchestrator(gh, provider, notifier, "AI Code Review")
	err := o.HandlePullRequest(t.Context(), prEvent("opened"))
	require.NoError(t, err)

	// Review posted with the escalated verdict.
	require.Len(t, gh.reviews, 1)
	assert.Equal(t, domain.VerdictRequestChanges, gh.reviews[0].Verdict)
	assert.Contains(t, gh.reviews[0].Body, "**Score**: 30/100")
	assert.Contains(t, gh.reviews[0].Body, "### File: `a.go`")

	// pending then failure, with the worst score in the description.
	require.Len(t, gh.statuses, 2)
	assert.Equal(t, "pending", gh.statuses[0].State)
	assert.Equal(t, "failure", gh.statuses[1].State)
	assert.Contains(t, gh.statuses[1].Description, "30/100")
	assert.Contains(t, gh.statuses[1].Description, "2 issues")

	// Activity notification plus completion summary.
	require.Len(t, notifier.sent, 2)
	assert.Contains(t, notifier.sent[1].Message, "REQUEST_CHANGES")
	assert.Contains(t, notifier.sent[1].Message, "30/100")
	assert.Contains(t, notifier.sent[1].Message, "**HIGH**: 2")
}

func TestPipelineCleanRunSkipsReview(t *testing.T) {
	gh := &fakeGitHub{files: []domain.PRFile{
		{Filename: "a.go", Status: "modified", Patch: "@@a"},
	}}
	provider := &fakeProvider{responses: map[string]string{
		"a.go": fileResponse("APPROVE", 100, 0),
	}}
	notifier := &fakeNotifier{}

	o := NewOrchestrator(gh, provider, notifier, "AI Code Review")
	err := o.HandlePullRequest(t.Context(), prEvent("synchronize"))
	require.NoError(t, err)

	assert.Empty(t, gh.reviews, "a clean run must not post a review")
	require.Len(t, gh.statuses, 2)
	assert.Equal(t, "success", gh.statuses[1].State)
	assert.Contains(t, gh.statuses[1].Description, "No issues found")

	// Only the activity notification goes out on a clean run.
	assert.Len(t, notifier.sent, 1)
}

func TestPipelineSkipsNonReviewableFiles(t *testing.T) {
	gh := &fakeGitHub{files: []domain.PRFile{
		{Filename: "gone.go", Status: domain.FileStatusRemoved, Patch: "@@"},
		{Filename: "same.go", Status: domain.FileStatusUnchanged, Patch: "@@"},
		{Filename: "bin.dat", Status: "modified", Patch: ""},
		{Filename: "real.go", Status: "modified", Patch: "@@r"},
	}}
	provider := &fakeProvider{responses: map[string]string{
		"real.go": fileResponse("APPROVE", 100, 0),
	}}

	o := NewOrchestrator(gh, provider, &fakeNotifier{}, "AI Code Review")
	err := o.HandlePullRequest(t.Context(), prEvent("opened"))
	require.NoError(t, err)

	assert.Equal(t, []string{"real.go"}, provider.calls)
}

func TestPipelineSkipsMalformedResponse(t *testing.T) {
	gh := &fakeGitHub{files: []domain.PRFile{
		{Filename: "bad.go", Status: "modified", Patch: "@@"},
		{Filename: "good.go", Status: "modified", Patch: "@@"},
	}}
	provider := &fakeProvider{responses: map[string]string{
		"bad.go":  "I could not produce JSON, sorry.",
		"good.go": fileResponse("COMMENT", 60, 1),
	}}

	o := NewOrchestrator(gh, provider, &fakeNotifier{}, "AI Code Review")
	err := o.HandlePullRequest(t.Context(), prEvent("opened"))
	require.NoError(t, err, "a malformed per-file response must not abort the pipeline")

	require.Len(t, gh.reviews, 1)
	assert.Equal(t, domain.VerdictComment, gh.reviews[0].Verdict)
	assert.NotContains(t, gh.reviews[0].Body, "bad.go")
}

func TestPipelineErrorSetsErrorStatusAndReRaises(t *testing.T) {
	gh := &fakeGitHub{filesErr: fmt.Errorf("fetch installation token: %w",
		&githubapp.AppNotInstalledError{Owner: "acme", Repo: "widgets"})}
	provider := &fakeProvider{}

	o := NewOrchestrator(gh, provider, &fakeNotifier{}, "AI Code Review")
	err := o.HandlePullRequest(t.Context(), prEvent("opened"))

	var notInstalled *githubapp.AppNotInstalledError
	require.ErrorAs(t, err, &notInstalled)

	// pending first, then the best-effort error status.
	require.Len(t, gh.statuses, 2)
	assert.Equal(t, "error", gh.statuses[1].State)
}

func TestNonReviewableActionsOnlyNotify(t *testing.T) {
	for _, action := range []string{"closed", "labeled", "assigned"} {
		t.Run(action, func(t *testing.T) {
			gh := &fakeGitHub{}
			provider := &fakeProvider{}
			notifier := &fakeNotifier{}

			o := NewOrchestrator(gh, provider, notifier, "AI Code Review")
			err := o.HandlePullRequest(t.Context(), prEvent(action))
			require.NoError(t, err)

			assert.Empty(t, gh.statuses)
			assert.Empty(t, gh.reviews)
			assert.Empty(t, provider.calls)
			assert.Len(t, notifier.sent, 1)
		})
	}
}

func TestMergedPullRequestNotification(t *testing.T) {
	event := prEvent("closed")
	event.PullRequest.Merged = github.Ptr(true)

	notifier := &fakeNotifier{}
	o := NewOrchestrator(&fakeGitHub{}, &fakeProvider{}, notifier, "AI Code Review")
	require.NoError(t, o.HandlePullRequest(t.Context(), event))

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].Title, "Merged")
	assert.Equal(t, colorPurple, notifier.sent[0].Color)
}
