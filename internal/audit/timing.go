package audit

import (
	"fmt"
	"math"

	"github.com/rohrwerk/callaudit/internal/call"
)

// TimingConfig groups the talk-time and duration thresholds. Timing
// findings are informational only; timing alone is never a hard failure.
type TimingConfig struct {
	AgentRatioMax float64 // share of talk time above which the agent dominated
	TurnGapMs     float64 // inter-turn silence worth reporting
	MaxCallMs     float64 // call duration above which intake took too long
}

// DefaultTimingConfig returns the production thresholds.
func DefaultTimingConfig() TimingConfig {
	return TimingConfig{
		AgentRatioMax: 0.65,
		TurnGapMs:     5000,
		MaxCallMs:     240000,
	}
}

// checkTiming reports agent talk-time dominance, long inter-turn gaps,
// and overlong calls.
func (a *Auditor) checkTiming(turns []Turn, rec *call.Record) []Finding {
	var findings []Finding
	cfg := a.config.Timing

	agentTalkMs, userTalkMs := talkTime(turns)
	totalTalkMs := agentTalkMs + userTalkMs
	if totalTalkMs > 0 {
		ratio := agentTalkMs / totalTalkMs
		if ratio > cfg.AgentRatioMax {
			findings = append(findings, NewFinding(
				CategoryHighAgentRatio,
				SeverityInfo,
				fmt.Sprintf("Agent spoke %.0f%% of total talk time", ratio*100),
				"Agent dominated conversation. May indicate too many questions or long explanations.",
				"",
				map[string]any{
					"agent_ratio":  round2(ratio),
					"agent_talk_s": round1(agentTalkMs / 1000),
					"user_talk_s":  round1(userTalkMs / 1000),
				},
			))
		}
	}

	for i := 1; i < len(turns); i++ {
		prev, curr := turns[i-1], turns[i]
		if prev.EndMs == nil || curr.StartMs == nil {
			continue
		}
		gapMs := *curr.StartMs - *prev.EndMs
		if gapMs > cfg.TurnGapMs {
			findings = append(findings, NewFinding(
				CategoryTranscriptGap,
				SeverityInfo,
				fmt.Sprintf("%s gap between turns %d and %d", fmtSeconds(&gapMs), i, i+1),
				fmt.Sprintf("Transcript gap of %s between %s turn %d and %s turn %d. May be silence, processing delay, or unrecognized speech.",
					fmtSeconds(&gapMs), prev.Role, i, curr.Role, i+1),
				fmtClock(prev.EndMs),
				map[string]any{"gap_ms": math.Round(gapMs), "after_turn": i, "before_turn": i + 1},
			))
		}
	}

	if d := rec.DurationMillis(); d != nil && *d > cfg.MaxCallMs {
		findings = append(findings, NewFinding(
			CategoryCallTooLong,
			SeverityInfo,
			fmt.Sprintf("Call duration %s exceeds 4min threshold", fmtSeconds(d)),
			"Standard intake should complete within 3-4 minutes.",
			"",
			map[string]any{"duration_s": round1(*d / 1000)},
		))
	}

	return findings
}

// talkTime sums per-role talk time across turns with known durations.
func talkTime(turns []Turn) (agentMs, userMs float64) {
	for _, t := range turns {
		if t.DurationMs == nil {
			continue
		}
		if t.Role == "agent" {
			agentMs += *t.DurationMs
		} else {
			userMs += *t.DurationMs
		}
	}
	return agentMs, userMs
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
