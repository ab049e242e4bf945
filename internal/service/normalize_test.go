package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/timmy/jobscout/internal/domain"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-05-01T10:00:00+02:00", "2024-05-01T08:00:00Z"},
		{"2024-05-01T10:00:00", "2024-05-01T10:00:00Z"},
		{"Mon, 02 Jan 2006 15:04:05 -0700", "2006-01-02T22:04:05Z"},
		{"2024-05-01 09:30:00", "2024-05-01T09:30:00Z"},
		{"2024-05-01", "2024-05-01T00:00:00Z"},
		{"02 Jan 2024", "2024-01-02T00:00:00Z"},
		{"January 02, 2024", "2024-01-02T00:00:00Z"},
		{"yesterday", "yesterday"},
		{"  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeDate(tt.in); got != tt.want {
				t.Errorf("NormalizeDate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	in := []*domain.Job{
		{
			Title:       "  Senior   Go\tEngineer ",
			Company:     " Acme ",
			URL:         " https://x/1 ",
			Description: strings.Repeat("a", domain.MaxDescriptionRunes+10),
			PostedDate:  "2024-05-01",
		},
		{
			Title:      "Designer",
			URL:        "https://x/2",
			SalaryText: "$100k",
			RemoteType: domain.RemoteTypeRemote,
		},
	}
	out := Normalize(in)

	first := out[0]
	if first.Title != "Senior Go Engineer" || first.Company != "Acme" || first.URL != "https://x/1" {
		t.Errorf("whitespace not normalized: %q %q %q", first.Title, first.Company, first.URL)
	}
	if n := utf8.RuneCountInString(first.Description); n != domain.MaxDescriptionRunes {
		t.Errorf("description runes = %d", n)
	}
	if first.PostedDate != "2024-05-01T00:00:00Z" {
		t.Errorf("posted date = %q", first.PostedDate)
	}
	if first.RemoteType != domain.RemoteTypeUnknown || first.EmploymentType != domain.EmploymentUnknown {
		t.Errorf("enum defaults = %q/%q", first.RemoteType, first.EmploymentType)
	}
	if !first.HasFlag(domain.FlagMissingSalary) {
		t.Error("missing_salary flag not set")
	}

	if out[1].HasFlag(domain.FlagMissingSalary) {
		t.Error("missing_salary set despite salary text")
	}
	if out[1].RemoteType != domain.RemoteTypeRemote {
		t.Errorf("remote type overwritten: %q", out[1].RemoteType)
	}
	if in[0].Title != "  Senior   Go\tEngineer " {
		t.Error("input job was mutated")
	}
}
