package source

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/timmy/jobscout/internal/domain"
)

// InferRemoteType guesses the work arrangement from posting text.
func InferRemoteType(text string) domain.RemoteType {
	t := strings.ToLower(text)
	switch {
	case containsAny(t, "fully remote", "100% remote", "remote only", "anywhere"):
		return domain.RemoteTypeRemote
	case strings.Contains(t, "hybrid"):
		return domain.RemoteTypeHybrid
	case containsAny(t, "on-site", "onsite", "in-office", "in office"):
		return domain.RemoteTypeOnsite
	case strings.Contains(t, "remote"):
		return domain.RemoteTypeRemote
	}
	return domain.RemoteTypeUnknown
}

// InferEmploymentType guesses the contract form from posting text.
func InferEmploymentType(text string) domain.EmploymentType {
	t := strings.ToLower(text)
	switch {
	case containsAny(t, "contract", "contractor", "1099", "freelance"):
		return domain.EmploymentContract
	case containsAny(t, "part-time", "part time"):
		return domain.EmploymentPartTime
	case strings.Contains(t, "hourly"):
		return domain.EmploymentHourly
	case containsAny(t, "intern", "internship"):
		return domain.EmploymentInternship
	case containsAny(t, "full-time", "full time", "fte"):
		return domain.EmploymentFullTime
	}
	return domain.EmploymentUnknown
}

func containsAny(s string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

var (
	salaryDollarRange = regexp.MustCompile(`\$(\d{1,3}(?:,\d{3})*(?:\.\d+)?)\s*[–\-—to]+\s*\$(\d{1,3}(?:,\d{3})*(?:\.\d+)?)`)
	salaryKRange      = regexp.MustCompile(`\$(\d+\.?\d*)[kK]\s*[–\-—to]+\s*\$(\d+\.?\d*)[kK]`)
	salaryPlainRange  = regexp.MustCompile(`(\d{1,3}(?:,\d{3})+)\s*[–\-—to]+\s*(\d{1,3}(?:,\d{3})+)`)
	salarySingle      = regexp.MustCompile(`\$(\d{1,3}(?:,\d{3})*)`)
)

// singleSalaryFloor separates annual salaries from other dollar amounts.
const singleSalaryFloor = 10000

// ExtractSalary finds a salary range in text. It returns the matched text
// and the parsed bounds; all are zero values when nothing is found.
func ExtractSalary(text string) (string, *int, *int) {
	if text == "" {
		return "", nil, nil
	}

	ranges := []struct {
		re   *regexp.Regexp
		mult float64
	}{
		{salaryDollarRange, 1},
		{salaryKRange, 1000},
		{salaryPlainRange, 1},
	}
	for _, r := range ranges {
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		lo, errLo := parseAmount(m[1], r.mult)
		hi, errHi := parseAmount(m[2], r.mult)
		if errLo != nil || errHi != nil {
			continue
		}
		return m[0], domain.IntPtr(lo), domain.IntPtr(hi)
	}

	if m := salarySingle.FindStringSubmatch(text); m != nil {
		v, err := parseAmount(m[1], 1)
		if err == nil && v > singleSalaryFloor {
			return m[0], domain.IntPtr(v), nil
		}
	}
	return "", nil, nil
}

func parseAmount(s string, mult float64) (int, error) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, err
	}
	return int(f * mult), nil
}

// ParseLooseInt reads integers from JSON values that may be numbers or
// strings like "$120,000" or "120k".
func ParseLooseInt(v any) *int {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		if x == 0 {
			return nil
		}
		return domain.IntPtr(int(x))
	case string:
		s := strings.TrimSpace(strings.NewReplacer(",", "", "$", "").Replace(x))
		mult := 1.0
		if strings.HasSuffix(strings.ToLower(s), "k") {
			s = s[:len(s)-1]
			mult = 1000
		}
		n, err := parseAmount(s, mult)
		if err != nil || n == 0 {
			return nil
		}
		return domain.IntPtr(n)
	}
	return nil
}

// TitleCaseSlug turns a board slug like "acme-corp" into "Acme Corp".
func TitleCaseSlug(slug string) string {
	words := strings.Fields(strings.ReplaceAll(slug, "-", " "))
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
