package prompts

import (
	"strings"

	"github.com/timmy/jobscout/internal/domain"
)

// ============================================================================
// Job Scoring Prompts (LLM)
// ============================================================================

const (
	// MaxDescriptionRunes bounds the description sent for scoring.
	MaxDescriptionRunes = 2000
	// MaxEchoRunes bounds the previous response echoed by the repair prompt.
	MaxEchoRunes = 500
)

// scoringSchema is shared by the scoring and repair prompts.
const scoringSchema = `{
    "is_match": true/false,
    "score": <integer 1-10>,
    "reasons": ["reason1", "reason2", ...],
    "flags": ["flag1", ...],
    "confidence": "low" | "medium" | "high"
}`

// ScoringPrompt asks the model to judge one posting against the candidate criteria.
const ScoringPrompt = `You are a job relevance evaluator. Given the candidate's criteria and a job listing, evaluate how well the job matches.

## Candidate Criteria:
{{criteria}}

## Job Listing:
- **Title**: {{title}}
- **Company**: {{company}}
- **Location**: {{location}}
- **Remote**: {{remote}}
- **Salary**: {{salary}}
- **Posted**: {{posted}}
- **Flags**: {{flags}}
- **Description**: {{description}}

## Instructions:
Evaluate the job against the candidate's criteria. Consider:
1. Role relevance (title, keywords, seniority match)
2. Company quality (is it a reputed, established company?)
3. Technical fit (does the description match the candidate's target work?)
4. Compensation alignment (if salary is available)
5. Red flags (contract, hourly, junior-level, etc.)

## Required Output:
Respond ONLY with valid JSON matching this exact schema:
{{schema}}

Rules:
- score 1-3: poor match
- score 4-6: partial match
- score 7-10: good match
- reasons: max 6 short bullet points explaining why
- flags: note issues like "missing_salary", "unknown_company", "seniority_mismatch"
- confidence: your confidence in the assessment

Respond ONLY with the JSON object. No other text.
`

// RepairPrompt asks the model to fix a malformed scoring response.
const RepairPrompt = `Your previous response was not valid JSON. Please respond with ONLY a valid JSON object matching this schema:
{{schema}}

Previous response:
{{previous}}

Please fix the JSON and respond with ONLY the corrected JSON object.
`

// BuildScoringPrompt fills ScoringPrompt for job.
func BuildScoringPrompt(criteriaText string, job *domain.Job) string {
	description := domain.TruncateRunes(job.Description, MaxDescriptionRunes)
	if strings.TrimSpace(description) == "" {
		description = "No description available"
	}
	flags := "None"
	if len(job.Flags) > 0 {
		flags = strings.Join(job.Flags, ", ")
	}

	r := strings.NewReplacer(
		"{{criteria}}", criteriaText,
		"{{title}}", job.Title,
		"{{company}}", job.Company,
		"{{location}}", orDefault(job.Location, "Not specified"),
		"{{remote}}", orDefault(string(job.RemoteType), string(domain.RemoteTypeUnknown)),
		"{{salary}}", orDefault(job.SalaryText, "Not specified"),
		"{{posted}}", orDefault(job.PostedDate, "Unknown"),
		"{{flags}}", flags,
		"{{description}}", description,
		"{{schema}}", scoringSchema,
	)
	return r.Replace(ScoringPrompt)
}

// BuildRepairPrompt fills RepairPrompt with the truncated previous response.
func BuildRepairPrompt(previous string) string {
	r := strings.NewReplacer(
		"{{schema}}", scoringSchema,
		"{{previous}}", domain.TruncateRunes(previous, MaxEchoRunes),
	)
	return r.Replace(RepairPrompt)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
