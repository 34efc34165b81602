package review

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/chiefai/reviewer/internal/domain"
)

// jsonBlockRegex matches a fenced code block, greedily from the opening
// backticks to the last closing backticks so nested code fences inside
// suggestion strings do not cut the block short.
var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*([\\s\\S]*)```")

// StripCodeFences removes surrounding markdown code fences from an AI
// response, returning the inner content. Text without fences is returned
// trimmed but otherwise untouched.
func StripCodeFences(text string) string {
	matches := jsonBlockRegex.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return strings.TrimSpace(text)
}

// reviewPayload mirrors the JSON contract the providers are instructed to
// emit for a single reviewed file.
type reviewPayload struct {
	Summary  string `json:"summary"`
	FileType string `json:"file_type"`
	Files    []struct {
		Filename string               `json:"filename"`
		Issues   []domain.ReviewIssue `json:"issues"`
	} `json:"files"`
	Verdict string `json:"verdict"`
	Score   *int   `json:"score"`
}

// ParseFileReview parses one provider response into a FileReview. The text
// may be wrapped in ```json fences. A missing verdict defaults to COMMENT
// and a missing score to the ceiling; issues across all reported file
// entries are flattened.
func ParseFileReview(filename, text string) (domain.FileReview, error) {
	var payload reviewPayload
	if err := json.Unmarshal([]byte(StripCodeFences(text)), &payload); err != nil {
		return domain.FileReview{}, fmt.Errorf("parse review response for %s: %w", filename, err)
	}

	verdict := domain.Verdict(payload.Verdict)
	if payload.Verdict == "" {
		verdict = domain.VerdictComment
	}

	score := domain.ScoreCeiling
	if payload.Score != nil {
		score = *payload.Score
	}

	var issues []domain.ReviewIssue
	for _, entry := range payload.Files {
		for _, issue := range entry.Issues {
			if issue.Severity == "" {
				issue.Severity = domain.SeverityLow
			}
			issues = append(issues, issue)
		}
	}

	return domain.FileReview{
		Filename: filename,
		FileType: payload.FileType,
		Summary:  payload.Summary,
		Issues:   issues,
		Verdict:  verdict,
		Score:    score,
	}, nil
}
