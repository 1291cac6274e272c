// Package correlate cross-checks the primary call transcript against an
// independent word-level re-transcription of the call audio. The primary
// transcription can silently fail on exactly the speech that should
// trigger a language handoff; the secondary source is the higher
// fidelity check against that failure mode.
package correlate

import (
	"fmt"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/rohrwerk/callaudit/internal/audit"
	"github.com/rohrwerk/callaudit/internal/call"
	"github.com/rohrwerk/callaudit/internal/triggers"
	"github.com/rohrwerk/callaudit/pkg/logger"
)

// Config groups the correlation thresholds.
type Config struct {
	HandoffWindowS float64 // a handoff within this many seconds after a trigger counts as handled
	AgentBufferS   float64 // agent speech windows are expanded by this much on both sides
	DedupWindowS   float64 // same-keyword detections closer than this collapse to one
	GapBufferS     float64 // turn windows expand by this much for speech-gap matching
	EarlyWindowS   float64 // initial audio span checked for connection noise
	LowConfidence  float64 // per-word score below which a word counts as low confidence
	OverlapMin     int     // overlapping words above which crosstalk is reported
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		HandoffWindowS: 5.0,
		AgentBufferS:   0.5,
		DedupWindowS:   1.0,
		GapBufferS:     2.0,
		EarlyWindowS:   3.0,
		LowConfidence:  0.3,
		OverlapMin:     2,
	}
}

// Correlator aligns secondary-transcription trigger detections with the
// primary record's handoff events.
type Correlator struct {
	config Config
	logger *logger.Logger
}

// NewCorrelator creates a new correlator.
func NewCorrelator(config Config, logger *logger.Logger) *Correlator {
	return &Correlator{
		config: config,
		logger: logger.Named("correlator"),
	}
}

// Correlate runs the full cross-source correlation for one call. Purely
// computational; the artifact is written separately by the caller.
func (c *Correlator) Correlate(rec *call.Record, words []Word) Result {
	var findings []audit.Finding

	segments := rec.Segments()
	agentWindows := buildAgentWindows(segments)
	detections := c.findTriggerWords(words, agentWindows)
	events := handoffEvents(rec)
	hasHandoff := rec.DisconnectionReason == call.ReasonAgentTransfer || anyTransfer(events)

	for _, det := range detections {
		if det.AgentSpoken {
			// Never contributes to the critical count.
			findings = append(findings, audit.Finding{
				Category: CategoryTriggerAgentSpoken,
				Severity: audit.SeverityInfo,
				Title: fmt.Sprintf("'%s' [%s] @ %s — agent speech (filtered)",
					det.Keyword, det.Lang, fmtSec(det.StartS)),
				Detail:       "Trigger keyword detected in agent speech window. Not a caller trigger — filtered out.",
				TimestampSec: det.StartS,
				Evidence: map[string]any{
					"keyword":        det.Keyword,
					"lang":           det.Lang,
					"trigger_time_s": det.StartS,
					"agent_spoken":   true,
				},
			})
			continue
		}

		triggerTime := 0.0
		if det.StartS != nil {
			triggerTime = *det.StartS
		}

		if match := matchingHandoff(events, triggerTime, c.config.HandoffWindowS); match != nil {
			latency := *match.TimeS - triggerTime
			findings = append(findings, audit.Finding{
				Category: CategoryTriggerTransferOK,
				Severity: audit.SeverityPass,
				Title: fmt.Sprintf("Recording heard '%s' [%s] @ %s → transfer @ %.1fs",
					det.Keyword, det.Lang, fmtSec(det.StartS), *match.TimeS),
				Detail:       fmt.Sprintf("Trigger detected in recording and transfer occurred within %.0fs window.", c.config.HandoffWindowS),
				TimestampSec: det.StartS,
				Evidence: map[string]any{
					"keyword":         det.Keyword,
					"lang":            det.Lang,
					"trigger_time_s":  det.StartS,
					"transfer_time_s": *match.TimeS,
					"latency_s":       latency,
				},
			})
		} else if !hasHandoff {
			findings = append(findings, audit.Finding{
				Category: CategoryTriggerNoTransfer,
				Severity: audit.SeverityCritical,
				Title: fmt.Sprintf("Recording heard '%s' [%s] @ %s — NO transfer",
					det.Keyword, det.Lang, fmtSec(det.StartS)),
				Detail:       fmt.Sprintf("Trigger keyword detected in caller audio but no %s event found.", call.ReasonAgentTransfer),
				TimestampSec: det.StartS,
				Evidence: map[string]any{
					"keyword":        det.Keyword,
					"lang":           det.Lang,
					"trigger_time_s": det.StartS,
					"transfer_event": false,
				},
			})
		}
	}

	gaps := c.findSpeechGaps(words, segments)
	for _, gap := range gaps {
		heard := gap.HeardText
		if len(heard) > 50 {
			heard = heard[:50]
		}
		start := gap.TurnStartS
		findings = append(findings, audit.Finding{
			Category: CategorySpeechNoTranscript,
			Severity: audit.SeverityWarning,
			Title: fmt.Sprintf("Recording heard %q where transcript had %q",
				heard, gap.PrimaryContent),
			Detail: fmt.Sprintf("%d words detected in the recording in a region where the transcript was empty or inaudible.",
				gap.HeardWordCount),
			TimestampSec: &start,
			Evidence: map[string]any{
				"heard_text":       gap.HeardText,
				"primary_content":  gap.PrimaryContent,
				"window_start_s":   gap.TurnStartS,
				"window_end_s":     gap.TurnEndS,
				"text_similarity":  gap.Similarity,
			},
		})
	}

	findings = append(findings, c.checkInaudibleStart(words)...)
	findings = append(findings, c.checkOverlap(words, segments)...)

	result := Result{
		CallIDShort:       rec.ShortID(),
		WordCount:         len(words),
		TriggerDetections: detections,
		HandoffEvents:     events,
		SpeechGaps:        gaps,
		Findings:          findings,
		Summary:           summarize(detections, events, gaps, findings),
	}

	c.logger.Debug("Correlated call",
		logger.String("call_id", rec.ShortID()),
		logger.Int("words", len(words)),
		logger.Int("triggers", len(detections)),
		logger.Int("gaps", len(gaps)),
		logger.Int("findings", len(findings)))

	return result
}

// buildAgentWindows reconstructs per-turn agent speech intervals from
// the primary transcript. Single-channel audio interleaves both
// speakers, so these windows are what keeps the agent's own utterances
// from being flagged as caller triggers.
func buildAgentWindows(segments []call.Segment) []window {
	var windows []window
	for _, seg := range segments {
		if seg.SpeakerRole() != "agent" || len(seg.Words) == 0 {
			continue
		}
		start := seg.Words[0].StartTime()
		end := seg.Words[len(seg.Words)-1].EndTime()
		if start != nil && end != nil {
			windows = append(windows, window{start: *start, end: *end})
		}
	}
	return windows
}

// inAgentWindow reports whether a timestamp falls inside any agent
// window expanded by the buffer (inclusive at the buffer edge).
func inAgentWindow(timeS float64, windows []window, bufferS float64) bool {
	for _, w := range windows {
		if timeS >= w.start-bufferS && timeS <= w.end+bufferS {
			return true
		}
	}
	return false
}

// findTriggerWords scans the full secondary-transcription text for the
// recording-side vocabulary, maps each match back to an approximate
// word timestamp via cumulative character offsets, deduplicates within
// the dedup window, and tags agent-spoken matches.
func (c *Correlator) findTriggerWords(words []Word, agentWindows []window) []Detection {
	var detections []Detection
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Word
	}
	fullText := strings.ToLower(strings.Join(parts, " "))

	for _, phrase := range triggers.RecordingPhraseList() {
		searchFrom := 0
		for {
			rel := strings.Index(fullText[searchFrom:], phrase.Keyword)
			if rel < 0 {
				break
			}
			idx := searchFrom + rel
			searchFrom = idx + 1

			var matchStart, matchEnd *float64
			charPos := 0
			for _, w := range words {
				wordLen := len(w.Word) + 1 // +1 for the joining space
				if charPos+wordLen > idx && matchStart == nil {
					s := w.Start
					matchStart = &s
				}
				if charPos >= idx+len(phrase.Keyword) && matchEnd == nil {
					e := w.End
					matchEnd = &e
					break
				}
				charPos += wordLen
			}

			// Fallback: use the word closest to the match position.
			if matchStart == nil && len(words) > 0 {
				ratio := float64(idx) / float64(max(len(fullText), 1))
				wi := min(int(ratio*float64(len(words))), len(words)-1)
				s, e := words[wi].Start, words[wi].End
				matchStart, matchEnd = &s, &e
			}

			startVal := 0.0
			if matchStart != nil {
				startVal = *matchStart
			}

			detections = append(detections, Detection{
				Keyword:     phrase.Keyword,
				Lang:        phrase.Lang,
				StartS:      matchStart,
				EndS:        matchEnd,
				Confidence:  matchConfidence(words, matchStart, phrase.Keyword),
				AgentSpoken: inAgentWindow(startVal, agentWindows, c.config.AgentBufferS),
			})
		}
	}

	// Deduplicate: same keyword within the dedup window counts once.
	var deduped []Detection
	for _, d := range detections {
		dupe := false
		for _, prev := range deduped {
			if prev.Keyword == d.Keyword && absDiff(prev.StartS, d.StartS) < c.config.DedupWindowS {
				dupe = true
				break
			}
		}
		if !dupe {
			deduped = append(deduped, d)
		}
	}
	return deduped
}

func matchConfidence(words []Word, matchStart *float64, keyword string) *float64 {
	if matchStart == nil {
		return nil
	}
	head := strings.SplitN(keyword, " ", 2)[0]
	for _, w := range words {
		if w.Start == *matchStart && strings.Contains(strings.ToLower(w.Word), head) {
			return w.Score
		}
	}
	return nil
}

// handoffEvents extracts transfer-type signals from the call record's
// tool invocations and disconnection reason.
func handoffEvents(rec *call.Record) []HandoffEvent {
	var events []HandoffEvent
	for _, tc := range rec.ToolCalls {
		if tc.Name == call.ToolSwapIntlAgent || tc.Type == call.ToolTypeTransfer || tc.Name == call.ToolEndCall {
			typ := tc.Type
			if typ == "" {
				typ = tc.Name
			}
			events = append(events, HandoffEvent{Name: tc.Name, Type: typ, TimeS: tc.StartTimeSec})
		}
	}
	if rec.DisconnectionReason == call.ReasonAgentTransfer {
		var timeS *float64
		if rec.DurationMs != nil {
			t := *rec.DurationMs / 1000
			timeS = &t
		}
		events = append(events, HandoffEvent{Name: call.ReasonAgentTransfer, Type: "disconnection", TimeS: timeS})
	}
	return events
}

func anyTransfer(events []HandoffEvent) bool {
	for _, e := range events {
		if e.Name == call.ToolSwapIntlAgent || e.Type == call.ToolTypeTransfer {
			return true
		}
	}
	return false
}

// matchingHandoff returns the first qualifying handoff within windowS
// seconds after the trigger, or nil.
func matchingHandoff(events []HandoffEvent, triggerTime, windowS float64) *HandoffEvent {
	for i := range events {
		e := &events[i]
		if e.Name != call.ToolSwapIntlAgent && e.Type != call.ToolTypeTransfer {
			continue
		}
		if e.TimeS != nil && *e.TimeS >= triggerTime && *e.TimeS-triggerTime <= windowS {
			return e
		}
	}
	return nil
}

// findSpeechGaps locates user turns whose transcript text is empty or
// inaudible while the secondary transcription heard words in the same
// window.
func (c *Correlator) findSpeechGaps(words []Word, segments []call.Segment) []SpeechGap {
	var gaps []SpeechGap

	for _, seg := range segments {
		if seg.SpeakerRole() == "agent" {
			continue
		}
		content := seg.TextContent()
		empty := strings.TrimSpace(content) == "" ||
			strings.Contains(content, "(inaudible") ||
			strings.Contains(content, "(unhörbar")
		if !empty {
			continue
		}

		startS := segmentStartSeconds(seg)
		endS := segmentEndSeconds(seg)
		if startS == nil || endS == nil {
			continue
		}

		var heard []string
		for _, w := range words {
			if w.Start >= *startS-c.config.GapBufferS && w.End <= *endS+c.config.GapBufferS {
				heard = append(heard, w.Word)
			}
		}
		if len(heard) == 0 {
			continue
		}

		heardText := strings.Join(heard, " ")
		gaps = append(gaps, SpeechGap{
			TurnStartS:     *startS,
			TurnEndS:       *endS,
			PrimaryContent: content,
			HeardText:      heardText,
			HeardWordCount: len(heard),
			Similarity: levenshtein.RatioForStrings(
				[]rune(strings.ToLower(content)),
				[]rune(strings.ToLower(heardText)),
				levenshtein.DefaultOptions),
		})
	}
	return gaps
}

// checkInaudibleStart reports a silent or all-low-confidence opening span.
func (c *Correlator) checkInaudibleStart(words []Word) []audit.Finding {
	var early, lowConf int
	for _, w := range words {
		if w.Start <= c.config.EarlyWindowS {
			early++
			if w.Score != nil && *w.Score < c.config.LowConfidence {
				lowConf++
			}
		}
	}
	if early != 0 && lowConf != early {
		return nil
	}
	state := "all words low confidence"
	if early == 0 {
		state = "no words detected"
	}
	zero := 0.0
	return []audit.Finding{{
		Category:     CategoryInaudibleStart,
		Severity:     audit.SeverityInfo,
		Title:        fmt.Sprintf("First %.0fs: %s", c.config.EarlyWindowS, state),
		Detail:       "Audio start may have connection noise or silence.",
		TimestampSec: &zero,
		Evidence: map[string]any{
			"early_word_count":     early,
			"early_low_conf_count": lowConf,
		},
	}}
}

// checkOverlap counts secondary-source words inside unbuffered agent
// windows; more than the threshold hints at crosstalk or barge-in.
func (c *Correlator) checkOverlap(words []Word, segments []call.Segment) []audit.Finding {
	windows := buildAgentWindows(segments)
	overlap := 0
	for _, w := range words {
		if inAgentWindow(w.Start, windows, 0) {
			overlap++
		}
	}
	if overlap <= c.config.OverlapMin {
		return nil
	}
	return []audit.Finding{{
		Category: CategoryOverlapHint,
		Severity: audit.SeverityInfo,
		Title:    fmt.Sprintf("%d recording words overlap with agent speech windows", overlap),
		Detail:   "Possible crosstalk or barge-in detected.",
		Evidence: map[string]any{"overlap_word_count": overlap},
	}}
}

func summarize(detections []Detection, events []HandoffEvent, gaps []SpeechGap, findings []audit.Finding) Summary {
	s := Summary{
		TriggersFound:   len(detections),
		SpeechGapsFound: len(gaps),
	}
	for _, e := range events {
		if e.Name == call.ToolSwapIntlAgent || e.Type == call.ToolTypeTransfer {
			s.HandoffsFound++
		}
	}
	for _, f := range findings {
		switch f.Severity {
		case audit.SeverityCritical:
			s.CriticalCount++
		case audit.SeverityWarning:
			s.WarningCount++
		}
	}
	return s
}

func segmentStartSeconds(seg call.Segment) *float64 {
	if len(seg.Words) > 0 {
		if s := seg.Words[0].StartTime(); s != nil {
			return s
		}
	}
	if raw := seg.StartTime(); raw != nil {
		s := audit.NormalizeMillis(*raw) / 1000
		return &s
	}
	return nil
}

func segmentEndSeconds(seg call.Segment) *float64 {
	if len(seg.Words) > 0 {
		if e := seg.Words[len(seg.Words)-1].EndTime(); e != nil {
			return e
		}
	}
	if raw := seg.EndTime(); raw != nil {
		e := audit.NormalizeMillis(*raw) / 1000
		return &e
	}
	return nil
}

func absDiff(a, b *float64) float64 {
	av, bv := 0.0, 0.0
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	if av > bv {
		return av - bv
	}
	return bv - av
}

func fmtSec(s *float64) string {
	if s == nil {
		return "?"
	}
	return fmt.Sprintf("%.1fs", *s)
}
