package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiefai/reviewer/internal/domain"
)

const sampleResponse = `{
  "summary": "One unchecked error.",
  "file_type": "GO_BACKEND",
  "files": [
    {
      "filename": "main.go",
      "issues": [
        {
          "severity": "HIGH",
          "line": 42,
          "title": "Unchecked error",
          "description": "The error from Close is discarded.",
          "suggestion": "if err := f.Close(); err != nil { return err }"
        }
      ]
    }
  ],
  "verdict": "REQUEST_CHANGES",
  "score": 35
}`

func TestParseFileReviewRawAndFencedAreIdentical(t *testing.T) {
	raw, err := ParseFileReview("main.go", sampleResponse)
	require.NoError(t, err)

	fenced, err := ParseFileReview("main.go", "```json\n"+sampleResponse+"\n```")
	require.NoError(t, err)

	assert.Equal(t, raw, fenced)

	bareFence, err := ParseFileReview("main.go", "```\n"+sampleResponse+"\n```")
	require.NoError(t, err)
	assert.Equal(t, raw, bareFence)
}

func TestParseFileReviewFields(t *testing.T) {
	fr, err := ParseFileReview("main.go", sampleResponse)
	require.NoError(t, err)

	assert.Equal(t, "main.go", fr.Filename)
	assert.Equal(t, "GO_BACKEND", fr.FileType)
	assert.Equal(t, "One unchecked error.", fr.Summary)
	assert.Equal(t, domain.VerdictRequestChanges, fr.Verdict)
	assert.Equal(t, 35, fr.Score)
	require.Len(t, fr.Issues, 1)
	assert.Equal(t, domain.SeverityHigh, fr.Issues[0].Severity)
	assert.Equal(t, 42, fr.Issues[0].Line)
}

func TestParseFileReviewDefaults(t *testing.T) {
	fr, err := ParseFileReview("a.go", `{"summary": "fine", "files": []}`)
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictComment, fr.Verdict, "missing verdict defaults to COMMENT")
	assert.Equal(t, domain.ScoreCeiling, fr.Score, "missing score defaults to the ceiling")
	assert.Empty(t, fr.Issues)
}

func TestParseFileReviewExplicitZeroScore(t *testing.T) {
	fr, err := ParseFileReview("a.go", `{"verdict": "REQUEST_CHANGES", "score": 0, "files": []}`)
	require.NoError(t, err)

	assert.Equal(t, 0, fr.Score)
}

func TestParseFileReviewSeverityDefaultsToLow(t *testing.T) {
	fr, err := ParseFileReview("a.go", `{
		"verdict": "COMMENT",
		"score": 80,
		"files": [{"filename": "a.go", "issues": [{"line": 1, "title": "nit"}]}]
	}`)
	require.NoError(t, err)

	require.Len(t, fr.Issues, 1)
	assert.Equal(t, domain.SeverityLow, fr.Issues[0].Severity)
}

func TestParseFileReviewFlattensMultipleFileEntries(t *testing.T) {
	fr, err := ParseFileReview("a.go", `{
		"verdict": "COMMENT",
		"score": 70,
		"files": [
			{"filename": "a.go", "issues": [{"severity": "LOW", "line": 1, "title": "x"}]},
			{"filename": "a.go", "issues": [{"severity": "MEDIUM", "line": 9, "title": "y"}]}
		]
	}`)
	require.NoError(t, err)

	assert.Len(t, fr.Issues, 2)
}

func TestParseFileReviewMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"prose", "Looks good to me!"},
		{"truncated json", `{"verdict": "APPROVE", "sco`},
		{"fenced prose", "```\nnot json\n```"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFileReview("a.go", tt.text)
			assert.Error(t, err)
		})
	}
}

func TestStripCodeFencesHandlesNestedFences(t *testing.T) {
	text := "```json\n{\"suggestion\": \"use ```go\\nfmt.Println()\\n``` instead\"}\n```"
	stripped := StripCodeFences(text)
	assert.Contains(t, stripped, "suggestion")
	assert.False(t, len(stripped) == 0)
}
