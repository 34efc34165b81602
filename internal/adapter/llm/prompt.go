package llm

import (
	"fmt"
	"strings"
)

// SystemPrompt frames every provider call. The heavy lifting lives in the
// per-file prompt from BuildReviewPrompt.
const SystemPrompt = "You are a senior software engineer acting as the final " +
	"gatekeeper before code reaches production. You review one file at a time " +
	"and respond with a single JSON object, nothing else."

// PromptInput carries the metadata rendered alongside the diff.
type PromptInput struct {
	Repo     string
	Title    string
	Filename string
	Diff     string
}

// BuildReviewPrompt renders the per-file review prompt. The output format it
// demands is the JSON contract parsed by the review usecase: summary,
// file_type, files[].issues[], verdict, score.
func BuildReviewPrompt(in PromptInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Review the file `%s` in repository `%s`.\n", in.Filename, in.Repo)
	fmt.Fprintf(&b, "Pull Request Title: %s\n\n", in.Title)
	fmt.Fprintf(&b, "DIFF (lines with \"+\" are added, \"-\" removed, no prefix is context):\n\n```diff\n%s\n```\n", in.Diff)

	b.WriteString(`
FILE TYPE: classify the file as exactly one of FRONTEND,
DATABASE_SCHEMA_OR_QUERY, MIGRATION, BACKEND, TEST, CONFIG_OR_INFRA,
DOCUMENTATION, GENERAL, based on the filename and diff content.

SEVERITIES: every issue gets exactly one of CRITICAL (secrets, injection,
auth bypass, broken crypto, RCE), HIGH (logic errors, nil dereference,
unhandled errors, race conditions, data loss, resource leaks), MEDIUM
(N+1 queries, unbounded operations, blocking I/O in async paths, missing
indexes), LOW (dead code, misleading names, magic numbers, commented-out
code), SUGGESTION (refactoring opportunities that meaningfully improve
the code).

SCORE: 0-100, bounded by the highest severity present.
  CRITICAL 0-19, HIGH 20-49, MEDIUM 50-69, LOW 70-84, SUGGESTION 85-94,
  no issues 95-100. Fewer issues means the higher end of the band.

VERDICT: apply the first matching rule.
  1. Any CRITICAL, HIGH, or MEDIUM issue        -> "REQUEST_CHANGES"
  2. Purpose of the change cannot be determined -> "REQUEST_CHANGES"
  3. Only LOW or SUGGESTION issues              -> "COMMENT"
  4. Zero issues                                -> "APPROVE"

SUMMARY: 2-3 sentences. What the change does, the most important finding,
and the recommendation.

OUTPUT: only the JSON object below. No text before or after, no markdown
fences, no extra keys. "line" is an integer (0 when the issue applies to
the whole file), "issues" is [] when nothing was found, one object per
issue.

{
  "summary": "...",
  "file_type": "...",
  "files": [
    {
      "filename": "` + in.Filename + `",
      "issues": [
        {
          "severity": "HIGH",
          "line": 42,
          "title": "...",
          "description": "...",
          "suggestion": "..."
        }
      ]
    }
  ],
  "verdict": "REQUEST_CHANGES",
  "score": 35
}
`)

	return b.String()
}
