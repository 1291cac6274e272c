package report

import (
	"github.com/rohrwerk/callaudit/internal/audit"
)

// warnThreshold is the warning count at which a call without criticals
// still degrades to "warn". topFixLimit caps the top-fixes list.
const (
	warnThreshold = 3
	topFixLimit   = 3
)

// Verdict is the aggregated pass/warn/fail judgment for a finding set.
// It is a pure aggregation: recomputing it from the same findings always
// yields the same result.
type Verdict struct {
	Score         string   `json:"score"` // pass, warn, fail
	CriticalCount int      `json:"critical_count"`
	WarningCount  int      `json:"warning_count"`
	InfoCount     int      `json:"info_count"`
	PassCount     int      `json:"pass_count"`
	TopFixes      []string `json:"top_fixes"`
}

// ComputeVerdict derives the verdict for a finding list: fail on any
// critical, warn on three or more warnings, pass otherwise. Top fixes
// are the first three findings with criticals listed before
// warnings, each group keeping its original order.
func ComputeVerdict(findings []audit.Finding) Verdict {
	var criticals, warnings []audit.Finding
	v := Verdict{}
	for _, f := range findings {
		switch f.Severity {
		case audit.SeverityCritical:
			criticals = append(criticals, f)
		case audit.SeverityWarning:
			warnings = append(warnings, f)
		case audit.SeverityInfo:
			v.InfoCount++
		case audit.SeverityPass:
			v.PassCount++
		}
	}
	v.CriticalCount = len(criticals)
	v.WarningCount = len(warnings)
	v.Score = scoreFor(v.CriticalCount, v.WarningCount)

	for _, f := range append(criticals, warnings...) {
		if len(v.TopFixes) >= topFixLimit {
			break
		}
		v.TopFixes = append(v.TopFixes, f.Title)
	}
	return v
}

// scoreFor applies the pass/warn/fail rule to severity totals. Used for
// both per-call and batch-level verdicts.
func scoreFor(criticals, warnings int) string {
	switch {
	case criticals > 0:
		return "fail"
	case warnings >= warnThreshold:
		return "warn"
	default:
		return "pass"
	}
}
