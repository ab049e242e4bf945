package prompts

import (
	"strings"
	"testing"

	"github.com/timmy/jobscout/internal/domain"
)

func TestBuildScoringPrompt_DefaultsAndTruncation(t *testing.T) {
	job := &domain.Job{
		Title:       "ML Engineer",
		Company:     "Acme",
		RemoteType:  domain.RemoteTypeRemote,
		Description: strings.Repeat("x", MaxDescriptionRunes+100),
	}
	p := BuildScoringPrompt("- Must be fully remote", job)

	for _, want := range []string{
		"- Must be fully remote",
		"- **Title**: ML Engineer",
		"- **Location**: Not specified",
		"- **Salary**: Not specified",
		"- **Posted**: Unknown",
		"- **Remote**: remote",
		`"is_match": true/false`,
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(p, strings.Repeat("x", MaxDescriptionRunes+1)) {
		t.Error("description was not truncated")
	}
	if strings.Contains(p, "{{") {
		t.Error("unfilled placeholder left in prompt")
	}
}

func TestBuildScoringPrompt_EmptyDescription(t *testing.T) {
	p := BuildScoringPrompt("c", &domain.Job{Title: "t", Company: "c"})
	if !strings.Contains(p, "No description available") {
		t.Error("expected description placeholder")
	}
}

func TestBuildRepairPrompt_EchoesTruncatedResponse(t *testing.T) {
	prev := strings.Repeat("y", MaxEchoRunes+50)
	p := BuildRepairPrompt(prev)
	if !strings.Contains(p, strings.Repeat("y", MaxEchoRunes)) {
		t.Error("previous response not echoed")
	}
	if strings.Contains(p, strings.Repeat("y", MaxEchoRunes+1)) {
		t.Error("previous response not truncated")
	}
}
