package audit

import (
	"testing"

	"github.com/rohrwerk/callaudit/internal/call"
)

func TestCheckTimingAgentRatio(t *testing.T) {
	a := NewAuditor(DefaultConfig(), testLogger())
	rec := &call.Record{CallID: "call_timing"}

	// Agent talks 80s of 100s total.
	turns := []Turn{
		{Role: "agent", DurationMs: fptr(80000.0)},
		{Role: "user", DurationMs: fptr(20000.0)},
	}
	findings := a.checkTiming(turns, rec)
	if got := countBy(findings, CategoryHighAgentRatio, SeverityInfo); got != 1 {
		t.Fatalf("expected 1 high_agent_ratio info, got %d", got)
	}
	if findings[0].Evidence["agent_ratio"] != 0.8 {
		t.Errorf("agent_ratio = %v, want 0.8", findings[0].Evidence["agent_ratio"])
	}

	// Balanced split stays quiet.
	turns = []Turn{
		{Role: "agent", DurationMs: fptr(50000.0)},
		{Role: "user", DurationMs: fptr(50000.0)},
	}
	if findings := a.checkTiming(turns, rec); len(findings) != 0 {
		t.Errorf("balanced talk time must not be flagged, got %d findings", len(findings))
	}
}

func TestCheckTimingTurnGaps(t *testing.T) {
	a := NewAuditor(DefaultConfig(), testLogger())
	turns := []Turn{
		{Role: "agent", StartMs: fptr(0.0), EndMs: fptr(3000.0)},
		{Role: "user", StartMs: fptr(10000.0), EndMs: fptr(12000.0)}, // 7s gap
		{Role: "agent", StartMs: fptr(13000.0), EndMs: fptr(15000.0)},
	}
	findings := a.checkTiming(turns, &call.Record{CallID: "call_gaps"})
	if got := countBy(findings, CategoryTranscriptGap, SeverityInfo); got != 1 {
		t.Fatalf("expected 1 transcript_gap info, got %d", got)
	}
	if findings[0].Evidence["gap_ms"] != 7000.0 {
		t.Errorf("gap_ms = %v, want 7000", findings[0].Evidence["gap_ms"])
	}
}

func TestCheckTimingGapSkipsUnknownTimestamps(t *testing.T) {
	a := NewAuditor(DefaultConfig(), testLogger())
	turns := []Turn{
		{Role: "agent", StartMs: fptr(0.0)}, // no end timestamp
		{Role: "user", StartMs: fptr(60000.0), EndMs: fptr(62000.0)},
	}
	findings := a.checkTiming(turns, &call.Record{CallID: "call_nots"})
	if got := countBy(findings, CategoryTranscriptGap, SeverityInfo); got != 0 {
		t.Errorf("gaps need both timestamps, got %d findings", got)
	}
}

func TestCheckTimingCallTooLong(t *testing.T) {
	a := NewAuditor(DefaultConfig(), testLogger())
	rec := &call.Record{CallID: "call_long", DurationMs: fptr(300000.0)}
	findings := a.checkTiming(nil, rec)
	if got := countBy(findings, CategoryCallTooLong, SeverityInfo); got != 1 {
		t.Fatalf("expected 1 call_too_long info, got %d", got)
	}

	rec.DurationMs = fptr(240000.0) // at the threshold, not over it
	if findings := a.checkTiming(nil, rec); len(findings) != 0 {
		t.Errorf("duration at the threshold must not be flagged, got %d findings", len(findings))
	}
}

func TestTalkTime(t *testing.T) {
	turns := []Turn{
		{Role: "agent", DurationMs: fptr(5000.0)},
		{Role: "user", DurationMs: fptr(3000.0)},
		{Role: "user"}, // unknown duration ignored
		{Role: "agent", DurationMs: fptr(2000.0)},
	}
	agentMs, userMs := talkTime(turns)
	if agentMs != 7000 || userMs != 3000 {
		t.Errorf("talkTime = (%v, %v), want (7000, 3000)", agentMs, userMs)
	}
}
