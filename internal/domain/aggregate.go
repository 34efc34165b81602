package domain

// ScoreCeiling is the best possible review score.
const ScoreCeiling = 100

// AggregatedReview accumulates per-file reviews into one PR-level result.
//
// The final verdict only ever escalates (REQUEST_CHANGES > COMMENT > APPROVE);
// folding a milder file review after a stricter one never softens the outcome.
// The score tracks the minimum across all validly parsed files.
type AggregatedReview struct {
	FinalVerdict   Verdict
	WorstScore     int
	TotalIssues    int
	SeverityCounts map[Severity]int
	FilesReviewed  int
}

// NewAggregatedReview returns the neutral starting aggregate: APPROVE at the
// score ceiling. If no file review ever folds in, this is also the result.
func NewAggregatedReview() *AggregatedReview {
	return &AggregatedReview{
		FinalVerdict:   VerdictApprove,
		WorstScore:     ScoreCeiling,
		SeverityCounts: make(map[Severity]int),
	}
}

// Fold merges one file review into the aggregate.
func (a *AggregatedReview) Fold(fr FileReview) {
	if fr.Verdict.StricterThan(a.FinalVerdict) {
		a.FinalVerdict = fr.Verdict
	}
	if fr.Score < a.WorstScore {
		a.WorstScore = fr.Score
	}
	for _, issue := range fr.Issues {
		a.SeverityCounts[issue.Severity]++
		a.TotalIssues++
	}
	a.FilesReviewed++
}

// Clean reports whether the aggregate carries no issues at all.
func (a *AggregatedReview) Clean() bool {
	return a.TotalIssues == 0
}
