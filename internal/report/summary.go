package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rohrwerk/callaudit/internal/audit"
	"github.com/rohrwerk/callaudit/internal/correlate"
	"github.com/rohrwerk/callaudit/pkg/logger"
)

// CallOutcome is one call's contribution to the batch summary.
// Findings holds the combined stage-1 + stage-2 findings.
type CallOutcome struct {
	Meta           audit.Meta
	Findings       []audit.Finding
	AudioAvailable bool
	Correlation    *correlate.Result
}

// topRegressionLimit caps the batch regressions list.
const topRegressionLimit = 3

// WriteSummary writes the batch summary for a run: overall verdict by
// the same pass/warn/fail rule applied to the totals, a per-call verdict
// table, top regressions deduplicated by category (not by call), the
// audio-availability ratio, and an audio-forensics table when any call
// was correlated.
func (r *Reporter) WriteSummary(outcomes []CallOutcome, runID, runDate string) (string, error) {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report dir: %w", err)
	}
	summaryPath := filepath.Join(r.outputDir, runDate+"_summary.md")

	totalCritical := 0
	totalWarning := 0
	audioAvailable := 0
	correlated := 0
	var allFindings []audit.Finding
	verdicts := make([]Verdict, len(outcomes))

	for i, o := range outcomes {
		verdicts[i] = ComputeVerdict(o.Findings)
		totalCritical += verdicts[i].CriticalCount
		totalWarning += verdicts[i].WarningCount
		allFindings = append(allFindings, o.Findings...)
		if o.AudioAvailable {
			audioAvailable++
		}
		if o.Correlation != nil {
			correlated++
		}
	}
	overall := scoreFor(totalCritical, totalWarning)

	// Top regressions: first critical-or-warning finding per distinct
	// category, in encounter order.
	seen := map[string]bool{}
	var regressions []string
	for _, f := range allFindings {
		if f.Severity != audit.SeverityCritical && f.Severity != audit.SeverityWarning {
			continue
		}
		if seen[f.Category] {
			continue
		}
		seen[f.Category] = true
		regressions = append(regressions, f.Title)
		if len(regressions) >= topRegressionLimit {
			break
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Voice Chain Summary — %s\n\n", runID)
	fmt.Fprintf(&b, "**Overall: %s** | Calls: %d | Critical: %d | Warning: %d\n\n",
		verdictBadge(overall), len(outcomes), totalCritical, totalWarning)

	b.WriteString("## Per-Call Verdicts\n\n")
	b.WriteString("| Call | Verdict | Critical | Warning |\n")
	b.WriteString("|------|---------|----------|---------|\n")
	for i, o := range outcomes {
		fmt.Fprintf(&b, "| %s... | %s | %d | %d |\n",
			o.Meta.CallIDShort, verdictBadge(verdicts[i].Score), verdicts[i].CriticalCount, verdicts[i].WarningCount)
	}
	b.WriteString("\n## Top Regressions\n\n")
	if len(regressions) == 0 {
		b.WriteString("_None — all checks passed._\n")
	} else {
		for i, reg := range regressions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, reg)
		}
	}

	b.WriteString("\n## Audio Gate\n\n")
	fmt.Fprintf(&b, "%d/%d calls have recordings available; %d ran audio forensics.\n",
		audioAvailable, len(outcomes), correlated)
	if audioAvailable == 0 {
		b.WriteString("To enable audio analysis, turn on recording for the intake agents.\n")
	}

	if correlated > 0 {
		b.WriteString("\n## Audio Forensics\n\n")
		b.WriteString("| Call | Words | Triggers | Handoffs | Gaps | Critical |\n")
		b.WriteString("|------|-------|----------|----------|------|----------|\n")
		for _, o := range outcomes {
			if o.Correlation == nil {
				continue
			}
			s := o.Correlation.Summary
			fmt.Fprintf(&b, "| %s... | %d | %d | %d | %d | %d |\n",
				o.Meta.CallIDShort, o.Correlation.WordCount,
				s.TriggersFound, s.HandoffsFound, s.SpeechGapsFound, s.CriticalCount)
		}
	}

	b.WriteString("\n---\n")
	fmt.Fprintf(&b, "_Generated by callaudit run %s_\n", runID)

	if err := os.WriteFile(summaryPath, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}

	r.logger.Info("Wrote batch summary",
		logger.String("path", summaryPath),
		logger.String("overall", overall),
		logger.Int("calls", len(outcomes)))

	return summaryPath, nil
}
