package audit

import (
	"fmt"
	"strings"

	"github.com/rohrwerk/callaudit/internal/call"
	"github.com/rohrwerk/callaudit/internal/triggers"
)

// findTrigger returns the first trigger phrase contained in text
// (case-insensitive substring match), or "".
func findTrigger(text string, phrases []string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)
	for _, kw := range phrases {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}

// checkTriggers scans user turns for language-handoff trigger phrases
// and cross-checks each hit against the call's handoff evidence.
//
// This is a false-negative detector for a safety-relevant behavior (the
// agent must hand off non-native speakers), so the tie-break is
// asymmetric: a hit with no handoff evidence anywhere is critical, not
// unknown.
func (a *Auditor) checkTriggers(turns []Turn, rec *call.Record) []Finding {
	var findings []Finding
	hasHandoff := rec.HandoffSignaled()
	phrases := triggers.TranscriptPhrases()

	for i, t := range turns {
		if t.Role != "user" {
			continue
		}
		kw := findTrigger(t.Content, phrases)
		if kw == "" {
			continue
		}
		if !hasHandoff {
			findings = append(findings, NewFinding(
				CategoryTriggerMissed,
				SeverityCritical,
				fmt.Sprintf("Trigger keyword '%s' in user turn %d but no transfer detected", kw, i+1),
				fmt.Sprintf("User turn %d contains language trigger. Expected %s event but none found in call metadata.", i+1, call.ReasonAgentTransfer),
				fmtClock(t.StartMs),
				map[string]any{"turn": i + 1, "keyword": kw, "transfer_event": false},
			))
		} else {
			findings = append(findings, NewFinding(
				CategoryTriggerMatched,
				SeverityPass,
				fmt.Sprintf("Trigger '%s' in turn %d → transfer occurred", kw, i+1),
				"Language trigger detected and transfer confirmed.",
				fmtClock(t.StartMs),
				map[string]any{"turn": i + 1, "keyword": kw, "transfer_event": true},
			))
		}
	}
	return findings
}

// checkTransfer flags handoffs that were initiated but did not complete.
func (a *Auditor) checkTransfer(rec *call.Record) []Finding {
	var findings []Finding
	if rec.HandoffInitiated() && rec.CallStatus == "error" {
		findings = append(findings, NewFinding(
			CategoryTransferFailed,
			SeverityCritical,
			"Transfer event exists but call ended in error",
			fmt.Sprintf("%s was initiated but call_status=error. The transfer may not have completed.", call.ReasonAgentTransfer),
			"",
			map[string]any{
				"call_status":          rec.CallStatus,
				"disconnection_reason": rec.DisconnectionReason,
			},
		))
	}
	return findings
}

// checkGibberish scores each user turn and flags likely ASR noise.
func (a *Auditor) checkGibberish(turns []Turn) []Finding {
	var findings []Finding
	cfg := a.config.Gibberish

	for i, t := range turns {
		if t.Role != "user" {
			continue
		}
		score := GibberishScore(t.Content, cfg)
		switch {
		case score >= cfg.CriticalScore:
			findings = append(findings, NewFinding(
				CategoryGibberishDetected,
				SeverityCritical,
				fmt.Sprintf("High gibberish score (%.2f) in user turn %d", score, i+1),
				fmt.Sprintf("User turn %d (%d words) scored %.2f on gibberish heuristic. Possible ASR drift from foreign language.", i+1, t.WordCount, score),
				fmtClock(t.StartMs),
				map[string]any{"turn": i + 1, "score": round2(score), "word_count": t.WordCount},
			))
		case score >= cfg.WarningScore:
			findings = append(findings, NewFinding(
				CategoryGibberishSuspect,
				SeverityWarning,
				fmt.Sprintf("Moderate gibberish score (%.2f) in user turn %d", score, i+1),
				fmt.Sprintf("User turn %d (%d words) scored %.2f. May be accented speech or ASR artifact.", i+1, t.WordCount, score),
				fmtClock(t.StartMs),
				map[string]any{"turn": i + 1, "score": round2(score), "word_count": t.WordCount},
			))
		}
	}
	return findings
}
