// Package report aggregates findings into verdicts and renders per-call
// and batch reports. This is the only stage that performs report I/O;
// write failures propagate to the caller.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rohrwerk/callaudit/internal/audit"
	"github.com/rohrwerk/callaudit/internal/correlate"
	"github.com/rohrwerk/callaudit/pkg/logger"
)

// Reporter writes report artifacts under a fixed output directory.
// Output paths are keyed by run date and call id, so re-running only
// overwrites same-day, same-call artifacts.
type Reporter struct {
	outputDir string
	logger    *logger.Logger
}

// NewReporter creates a reporter writing under outputDir.
func NewReporter(outputDir string, logger *logger.Logger) *Reporter {
	return &Reporter{
		outputDir: outputDir,
		logger:    logger.Named("reporter"),
	}
}

// CallReport is the machine-readable per-call document.
type CallReport struct {
	Pipeline       string              `json:"pipeline"`
	RunID          string              `json:"run_id"`
	Call           audit.Meta          `json:"call"`
	Timing         audit.TimingSummary `json:"timing"`
	AudioAvailable bool                `json:"audio_available"`
	Findings       []audit.Finding     `json:"findings"`
	Correlation    *correlate.Result   `json:"correlation,omitempty"`
	Verdict        Verdict             `json:"verdict"`
}

// WriteCallReport writes the JSON and Markdown reports for one call.
// corr may be nil when the call had no secondary transcription; the
// audio-forensics section is simply omitted, never rendered as an error.
func (r *Reporter) WriteCallReport(result audit.Result, corr *correlate.Result, runID, runDate string) (mdPath, jsonPath string, err error) {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create report dir: %w", err)
	}

	findings := combinedFindings(result, corr)
	verdict := ComputeVerdict(findings)
	fileBase := filepath.Join(r.outputDir, fmt.Sprintf("%s_%s", runDate, result.Meta.CallIDShort))

	doc := CallReport{
		Pipeline:       "voice",
		RunID:          runID,
		Call:           result.Meta,
		Timing:         result.Timing,
		AudioAvailable: result.AudioAvailable,
		Findings:       findings,
		Correlation:    corr,
		Verdict:        verdict,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal call report: %w", err)
	}
	jsonPath = fileBase + ".json"
	if err := os.WriteFile(jsonPath, append(data, '\n'), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write call report: %w", err)
	}

	mdPath = fileBase + ".md"
	md := renderCallMarkdown(result, corr, findings, verdict)
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write call report: %w", err)
	}

	r.logger.Debug("Wrote call report",
		logger.String("call_id", result.Meta.CallIDShort),
		logger.String("verdict", verdict.Score),
		logger.String("path", mdPath))

	return mdPath, jsonPath, nil
}

// combinedFindings merges stage-1 and stage-2 findings for verdict
// purposes, stage-1 first.
func combinedFindings(result audit.Result, corr *correlate.Result) []audit.Finding {
	findings := make([]audit.Finding, 0, len(result.Findings))
	findings = append(findings, result.Findings...)
	if corr != nil {
		findings = append(findings, corr.Findings...)
	}
	return findings
}

func verdictBadge(score string) string {
	return strings.ToUpper(score)
}

func severityBadge(sev audit.Severity) string {
	return "[" + strings.ToUpper(string(sev)) + "]"
}

func renderCallMarkdown(result audit.Result, corr *correlate.Result, findings []audit.Finding, verdict Verdict) string {
	meta := result.Meta
	timing := result.Timing

	var b strings.Builder
	fmt.Fprintf(&b, "# Voice Call Report — %s\n\n", meta.CallIDShort)
	fmt.Fprintf(&b, "**Verdict: %s** | Critical: %d | Warning: %d | Info: %d | Pass: %d\n\n",
		verdictBadge(verdict.Score), verdict.CriticalCount, verdict.WarningCount, verdict.InfoCount, verdict.PassCount)

	b.WriteString("## Meta\n\n")
	b.WriteString("| Key | Value |\n|-----|-------|\n")
	fmt.Fprintf(&b, "| Call ID | %s... |\n", meta.CallIDShort)
	fmt.Fprintf(&b, "| Agent | %s |\n", meta.AgentName)
	fmt.Fprintf(&b, "| Status | %s |\n", meta.CallStatus)
	fmt.Fprintf(&b, "| Disconnection | %s |\n", meta.DisconnectionReason)
	fmt.Fprintf(&b, "| Duration | %s |\n", optSeconds(meta.DurationS))
	fmt.Fprintf(&b, "| Turns | %d (user: %d, agent: %d) |\n", meta.TurnCount, meta.UserTurns, meta.AgentTurns)
	fmt.Fprintf(&b, "| Audio available | %s |\n\n", yesNo(result.AudioAvailable))

	b.WriteString("## Timing\n\n")
	b.WriteString("| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Agent talk | %.1fs (%s%%) |\n", timing.AgentTalkS, optNumber(timing.AgentRatioPct))
	fmt.Fprintf(&b, "| User talk | %.1fs |\n", timing.UserTalkS)
	fmt.Fprintf(&b, "| Max gap | %.1fs |\n", timing.MaxGapS)
	fmt.Fprintf(&b, "| Total duration | %s |\n\n", optSeconds(timing.TotalDurS))

	b.WriteString("## Timeline (PII-safe: no content)\n\n")
	b.WriteString(renderTimeline(result.Turns))

	b.WriteString("## Findings\n\n")
	b.WriteString(renderFindings(findings))

	if corr != nil {
		b.WriteString("## Audio Forensics\n\n")
		b.WriteString("| Metric | Value |\n|--------|-------|\n")
		fmt.Fprintf(&b, "| Recording words | %d |\n", corr.WordCount)
		fmt.Fprintf(&b, "| Triggers heard | %d |\n", corr.Summary.TriggersFound)
		fmt.Fprintf(&b, "| Handoff events | %d |\n", corr.Summary.HandoffsFound)
		fmt.Fprintf(&b, "| Speech gaps | %d |\n\n", corr.Summary.SpeechGapsFound)
	}

	if len(verdict.TopFixes) > 0 {
		b.WriteString("## Top Fixes\n\n")
		for i, fix := range verdict.TopFixes {
			fmt.Fprintf(&b, "%d. %s\n", i+1, fix)
		}
	}

	return b.String()
}

// renderTimeline renders the PII-safe turn table: index, role, timing,
// word count. Never transcript text.
func renderTimeline(turns []audit.Turn) string {
	if len(turns) == 0 {
		return "_No transcript turns available._\n\n"
	}

	var b strings.Builder
	b.WriteString("| # | Role | Start | Duration | Words | Gap before |\n")
	b.WriteString("|----|------|-------|----------|-------|------------|\n")
	for i, t := range turns {
		start := "?"
		if t.StartMs != nil {
			start = fmt.Sprintf("%.1fs", *t.StartMs/1000)
		}
		dur := "?"
		if t.DurationMs != nil {
			dur = fmt.Sprintf("%.1fs", *t.DurationMs/1000)
		}
		gap := "-"
		if i > 0 && turns[i-1].EndMs != nil && t.StartMs != nil {
			gap = fmt.Sprintf("%.1fs", (*t.StartMs-*turns[i-1].EndMs)/1000)
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %d | %s |\n", i+1, t.Role, start, dur, t.WordCount, gap)
	}
	b.WriteString("\n")
	return b.String()
}

func renderFindings(findings []audit.Finding) string {
	if len(findings) == 0 {
		return "_No findings._\n\n"
	}

	groups := map[audit.Severity][]audit.Finding{}
	for _, f := range findings {
		sev := f.Severity
		switch sev {
		case audit.SeverityCritical, audit.SeverityWarning, audit.SeverityInfo, audit.SeverityPass:
		default:
			sev = audit.SeverityInfo
		}
		groups[sev] = append(groups[sev], f)
	}

	var b strings.Builder
	for _, sev := range []audit.Severity{audit.SeverityCritical, audit.SeverityWarning, audit.SeverityInfo, audit.SeverityPass} {
		items := groups[sev]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s (%d)\n\n", severityBadge(sev), len(items))
		for _, f := range items {
			ts := ""
			if f.Timestamp != "" {
				ts = fmt.Sprintf(" @ %s", f.Timestamp)
			} else if f.TimestampSec != nil {
				ts = fmt.Sprintf(" @ %.1fs", *f.TimestampSec)
			}
			fmt.Fprintf(&b, "- **%s**%s\n", f.Title, ts)
			fmt.Fprintf(&b, "  %s\n", f.Detail)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func optSeconds(v *float64) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprintf("%.1fs", *v)
}

func optNumber(v *float64) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprintf("%.0f", *v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
