// Package audit normalizes a call's transcript into uniform turns and
// runs the heuristic checks that produce quality findings. Everything
// here is a pure transformation: no I/O, no retained state between
// calls.
package audit

import (
	"fmt"
	"math"

	"github.com/rohrwerk/callaudit/internal/call"
	"github.com/rohrwerk/callaudit/pkg/logger"
)

// Config aggregates the per-heuristic threshold groups.
type Config struct {
	Gibberish GibberishConfig
	Flow      FlowConfig
	Timing    TimingConfig
}

// DefaultConfig returns the production thresholds for all heuristics.
func DefaultConfig() Config {
	return Config{
		Gibberish: DefaultGibberishConfig(),
		Flow:      DefaultFlowConfig(),
		Timing:    DefaultTimingConfig(),
	}
}

// Auditor runs the audit heuristics over normalized turns.
type Auditor struct {
	config Config
	logger *logger.Logger
}

// NewAuditor creates a new auditor.
func NewAuditor(config Config, logger *logger.Logger) *Auditor {
	return &Auditor{
		config: config,
		logger: logger.Named("auditor"),
	}
}

// Meta summarizes call-level metadata for reports. Never includes the
// recording URL.
type Meta struct {
	CallIDShort         string   `json:"call_id_short"`
	AgentName           string   `json:"agent_name"`
	CallStatus          string   `json:"call_status"`
	DisconnectionReason string   `json:"disconnection_reason"`
	DurationS           *float64 `json:"duration_s"`
	TurnCount           int      `json:"turn_count"`
	UserTurns           int      `json:"user_turns"`
	AgentTurns          int      `json:"agent_turns"`
}

// TimingSummary carries the talk-time KPIs for reports.
type TimingSummary struct {
	AgentTalkS    float64  `json:"agent_talk_s"`
	UserTalkS     float64  `json:"user_talk_s"`
	AgentRatioPct *float64 `json:"agent_ratio"`
	MaxGapS       float64  `json:"max_gap_s"`
	TotalDurS     *float64 `json:"total_duration_s"`
}

// Result is the full output of auditing one call.
type Result struct {
	Meta           Meta          `json:"call"`
	Turns          []Turn        `json:"turns"`
	Findings       []Finding     `json:"findings"`
	AudioAvailable bool          `json:"audio_available"`
	Timing         TimingSummary `json:"timing"`
}

// Analyze normalizes the call's transcript and runs all checks. The six
// checks are independent: each reads the same immutable turn list and
// appends to its own finding list, so their order only affects intra-run
// finding order, which the reporter re-groups by severity anyway.
func (a *Auditor) Analyze(rec *call.Record) Result {
	turns := NormalizeTurns(rec)

	findings := a.checkTriggers(turns, rec)
	findings = append(findings, a.checkTransfer(rec)...)
	findings = append(findings, a.checkGibberish(turns)...)
	findings = append(findings, a.checkFlow(turns)...)
	findings = append(findings, a.checkExtraction(rec)...)
	findings = append(findings, a.checkTiming(turns, rec)...)

	result := Result{
		Meta:           buildMeta(rec, turns),
		Turns:          turns,
		Findings:       findings,
		AudioAvailable: rec.RecordingAvailable(),
		Timing:         buildTiming(rec, turns),
	}

	a.logger.Debug("Analyzed call",
		logger.String("call_id", rec.ShortID()),
		logger.Int("turns", len(turns)),
		logger.Int("findings", len(findings)),
		logger.Bool("audio_available", result.AudioAvailable))

	return result
}

func buildMeta(rec *call.Record, turns []Turn) Meta {
	meta := Meta{
		CallIDShort:         rec.ShortID(),
		AgentName:           "unknown",
		CallStatus:          rec.CallStatus,
		DisconnectionReason: rec.DisconnectionReason,
		TurnCount:           len(turns),
	}
	if meta.CallStatus == "" {
		meta.CallStatus = "unknown"
	}
	if meta.DisconnectionReason == "" {
		meta.DisconnectionReason = "unknown"
	}
	if rec.AgentID != "" {
		id := rec.AgentID
		if len(id) > 8 {
			id = id[:8]
		}
		meta.AgentName = fmt.Sprintf("agent_%s", id)
	}
	if d := rec.DurationMillis(); d != nil {
		s := round1(*d / 1000)
		meta.DurationS = &s
	}
	for _, t := range turns {
		if t.Role == "user" {
			meta.UserTurns++
		} else {
			meta.AgentTurns++
		}
	}
	return meta
}

func buildTiming(rec *call.Record, turns []Turn) TimingSummary {
	agentTalkMs, userTalkMs := talkTime(turns)

	var maxGapMs float64
	for i := 1; i < len(turns); i++ {
		if turns[i-1].EndMs != nil && turns[i].StartMs != nil {
			if gap := *turns[i].StartMs - *turns[i-1].EndMs; gap > maxGapMs {
				maxGapMs = gap
			}
		}
	}

	timing := TimingSummary{
		AgentTalkS: round1(agentTalkMs / 1000),
		UserTalkS:  round1(userTalkMs / 1000),
		MaxGapS:    round1(maxGapMs / 1000),
	}
	if total := agentTalkMs + userTalkMs; total > 0 {
		pct := math.Round(agentTalkMs / total * 100)
		timing.AgentRatioPct = &pct
	}
	if d := rec.DurationMillis(); d != nil {
		s := round1(*d / 1000)
		timing.TotalDurS = &s
	}
	return timing
}
