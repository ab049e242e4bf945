package domain

import (
	"strings"
	"testing"
)

func TestJobID_NormalizesCompanyAndTitle(t *testing.T) {
	tests := []struct {
		name string
		a, b Job
		same bool
	}{
		{
			name: "case and whitespace",
			a:    Job{URL: "https://x.io/1", Company: "Acme", Title: "ML Engineer"},
			b:    Job{URL: "https://x.io/1", Company: "  ACME ", Title: "ml engineer  "},
			same: true,
		},
		{
			name: "different url",
			a:    Job{URL: "https://x.io/1", Company: "Acme", Title: "ML Engineer"},
			b:    Job{URL: "https://x.io/2", Company: "Acme", Title: "ML Engineer"},
			same: false,
		},
		{
			name: "different title",
			a:    Job{URL: "https://x.io/1", Company: "Acme", Title: "ML Engineer"},
			b:    Job{URL: "https://x.io/1", Company: "Acme", Title: "Data Engineer"},
			same: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idA, idB := tt.a.JobID(), tt.b.JobID()
			if len(idA) != 16 {
				t.Errorf("expected 16 char id, got %q", idA)
			}
			if (idA == idB) != tt.same {
				t.Errorf("JobID equality = %v, want %v (%s vs %s)", idA == idB, tt.same, idA, idB)
			}
		})
	}
}

func TestDedupeKey_IgnoresPunctuationAndSpacing(t *testing.T) {
	a := DedupeKey("Acme Corp, Inc.", "ML Engineer (Remote)")
	b := DedupeKey("Acme Corp Inc", "ML Engineer Remote")
	if a != b {
		t.Errorf("expected equal keys, got %q and %q", a, b)
	}
	if a != "acmecorpinc|mlengineerremote" {
		t.Errorf("unexpected key %q", a)
	}
}

func TestJob_BeforeCreateStampsIdentity(t *testing.T) {
	j := &Job{URL: "https://x.io/1", Company: "Acme", Title: "Engineer", Description: string(make([]rune, MaxDescriptionRunes+10))}
	if err := j.BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate: %v", err)
	}
	if j.ID != JobID("https://x.io/1", "Acme", "Engineer") {
		t.Errorf("ID not stamped: %q", j.ID)
	}
	if j.DedupeKey != "acme|engineer" {
		t.Errorf("DedupeKey not stamped: %q", j.DedupeKey)
	}
	if n := len([]rune(j.Description)); n != MaxDescriptionRunes {
		t.Errorf("description not truncated: %d runes", n)
	}
}

func TestJob_CloneIsDeep(t *testing.T) {
	orig := &Job{Title: "t", Flags: StringArray{"a"}, LLMScore: IntPtr(3)}
	c := orig.Clone()
	c.AddFlag("b")
	*c.LLMScore = 9

	if len(orig.Flags) != 1 {
		t.Errorf("clone shares flags: %v", orig.Flags)
	}
	if orig.Score() != 3 {
		t.Errorf("clone shares score pointer: %d", orig.Score())
	}
}

func TestCriteria_WithModeAndPromptText(t *testing.T) {
	c := DefaultCriteria().WithMode(RunModeWeekly)
	if c.PostedWithinDays != 7 {
		t.Errorf("weekly window = %d, want 7", c.PostedWithinDays)
	}
	if c.WithMode(RunModeDaily).PostedWithinDays != 1 {
		t.Error("daily window should be 1")
	}

	c.Keywords = []string{"llm", "agents"}
	text := c.PromptText()
	if text == "" || !strings.Contains(text, "Target keywords: llm, agents") {
		t.Errorf("prompt text missing keywords: %q", text)
	}

	c.RawText = "# My criteria"
	if c.PromptText() != "# My criteria" {
		t.Errorf("raw text should win, got %q", c.PromptText())
	}
}
