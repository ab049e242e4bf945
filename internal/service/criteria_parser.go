package service

import (
	"context"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/timmy/jobscout/internal/domain"
	"github.com/timmy/jobscout/internal/logger"
)

const (
	fullyRemoteRe   = `fully\s+remote`
	fullTimeOnlyRe  = `full[- ]time\s+only`
	avoidHourlyRe   = `avoid\s+hourly`
	avoidContractRe = `avoid\s+contract`
)

var (
	minSalaryRe   = regexp.MustCompile(`(?i)minimum\s+salary[:\s]+(\d[\d,]*)`)
	maxSalaryRe   = regexp.MustCompile(`(?i)maximum\s+salary[:\s]+(\d[\d,]*)`)
	postedRe      = regexp.MustCompile(`(?i)posted\s+within\s+days?[:\s]+(\d+)`)
	minScoreRe    = regexp.MustCompile(`(?i)minimum\s+LLM\s+score[:\s]+(\d+)`)
	maxResultsRe  = regexp.MustCompile(`(?i)max\s+results?\s+per\s+(?:email|report)[:\s]+(\d+)`)
	minKeywordRe  = regexp.MustCompile(`(?i)minimum\s+keyword\s+matches[:\s]+(\d+)`)
	keywordsRe    = regexp.MustCompile(`(?i)-\s*keywords?\s*:\s*(.*)`)
	seniorityRe   = regexp.MustCompile(`(?i)-\s*seniority\s*:\s*(.*)`)
	excludeListRe = regexp.MustCompile(`(?i)-\s*exclu(?:de|sion)\s+keywords?\s*:\s*(.*)`)
)

// LoadCriteria reads the criteria document at path. A missing or unreadable
// file yields DefaultCriteria; it never fails.
func LoadCriteria(ctx context.Context, path string) domain.Criteria {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warnf("Criteria file not readable at %s, using defaults", path)
		return domain.DefaultCriteria()
	}
	c := ParseCriteria(string(data))
	logger.FromContext(ctx).WithFields(logger.Fields{
		"keywords":  len(c.Keywords),
		"seniority": len(c.Seniority),
	}).Infof("Loaded criteria from %s", path)
	return c
}

// ParseCriteria extracts criteria from free text, keeping defaults for
// anything it does not find.
func ParseCriteria(text string) domain.Criteria {
	c := domain.DefaultCriteria()
	c.RawText = text

	c.FullyRemote = parseBool(text, fullyRemoteRe, c.FullyRemote)
	c.FullTimeOnly = parseBool(text, fullTimeOnlyRe, c.FullTimeOnly)
	c.AvoidHourly = parseBool(text, avoidHourlyRe, c.AvoidHourly)
	c.AvoidContract = parseBool(text, avoidContractRe, c.AvoidContract)

	if n, ok := parseNumber(text, minSalaryRe); ok {
		c.MinSalary = domain.IntPtr(n)
	}
	if n, ok := parseNumber(text, maxSalaryRe); ok {
		c.MaxSalary = domain.IntPtr(n)
	}

	c.Keywords = parseList(text, keywordsRe)
	c.Seniority = parseList(text, seniorityRe)
	c.ExcludeKeywords = parseList(text, excludeListRe)

	if n, ok := parseNumber(text, postedRe); ok {
		c.PostedWithinDays = n
	}
	if n, ok := parseNumber(text, minScoreRe); ok {
		c.MinLLMScore = n
	}
	if n, ok := parseNumber(text, maxResultsRe); ok {
		c.MaxResultsPerReport = n
	}
	if n, ok := parseNumber(text, minKeywordRe); ok {
		c.MinKeywordMatches = n
	}
	return c
}

// parseBool looks for pattern followed by yes/no/true/false. The bare
// pattern means true.
func parseBool(text, pattern string, def bool) bool {
	valued := regexp.MustCompile(`(?i)` + pattern + `[:\s]+(yes|no|true|false)`)
	if m := valued.FindStringSubmatch(text); m != nil {
		v := strings.ToLower(m[1])
		return v == "yes" || v == "true"
	}
	if regexp.MustCompile(`(?i)` + pattern).MatchString(text) {
		return true
	}
	return def
}

func parseNumber(text string, re *regexp.Regexp) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseList(text string, re *regexp.Regexp) []string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var items []string
	for _, item := range strings.Split(strings.TrimSpace(m[1]), ",") {
		item = strings.TrimSpace(strings.Trim(strings.TrimSpace(item), "-"))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
