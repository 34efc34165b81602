package domain

// Severity classifies a single review issue.
type Severity string

const (
	SeverityCritical   Severity = "CRITICAL"
	SeverityHigh       Severity = "HIGH"
	SeverityMedium     Severity = "MEDIUM"
	SeverityLow        Severity = "LOW"
	SeveritySuggestion Severity = "SUGGESTION"
)

// Severities lists all known severities in descending order of impact.
var Severities = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeveritySuggestion,
}

// Known reports whether s is one of the defined severity levels.
func (s Severity) Known() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeveritySuggestion:
		return true
	}
	return false
}

// Verdict is the overall disposition of a review.
type Verdict string

const (
	VerdictApprove        Verdict = "APPROVE"
	VerdictComment        Verdict = "COMMENT"
	VerdictRequestChanges Verdict = "REQUEST_CHANGES"
)

// verdictRank orders verdicts by strictness: REQUEST_CHANGES > COMMENT > APPROVE.
var verdictRank = map[Verdict]int{
	VerdictApprove:        0,
	VerdictComment:        1,
	VerdictRequestChanges: 2,
}

// Known reports whether v is one of the defined verdicts.
func (v Verdict) Known() bool {
	_, ok := verdictRank[v]
	return ok
}

// StricterThan reports whether v outranks other in the verdict ordering.
func (v Verdict) StricterThan(other Verdict) bool {
	return verdictRank[v] > verdictRank[other]
}

// ReviewIssue is a single problem reported by the AI for one file.
type ReviewIssue struct {
	Severity    Severity `json:"severity"`
	Line        int      `json:"line"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Suggestion  string   `json:"suggestion"`
}

// FileReview is the parsed AI output for one changed file.
type FileReview struct {
	Filename string
	FileType string
	Summary  string
	Issues   []ReviewIssue
	Verdict  Verdict
	Score    int
}

// PRFile describes one changed file in a pull request, as reported by the
// code-hosting API.
type PRFile struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Changes   int    `json:"changes"`
	Patch     string `json:"patch"`
}

const (
	FileStatusRemoved   = "removed"
	FileStatusUnchanged = "unchanged"
)

// Reviewable reports whether the file carries a diff worth reviewing.
// Removed and unchanged files have no patch to analyze.
func (f PRFile) Reviewable() bool {
	if f.Status == FileStatusRemoved || f.Status == FileStatusUnchanged {
		return false
	}
	return f.Patch != ""
}
