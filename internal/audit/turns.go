package audit

import (
	"fmt"
	"math"
	"strings"

	"github.com/rohrwerk/callaudit/internal/call"
)

// Turn is one contiguous utterance by a single speaker role, normalized
// to a uniform shape. Turn order matches original transcript position;
// the gap and flow checks depend on that matching chronological order.
type Turn struct {
	Role       string   `json:"role"` // "agent" or "user"
	Content    string   `json:"content"`
	WordCount  int      `json:"word_count"`
	StartMs    *float64 `json:"start_ms"`
	EndMs      *float64 `json:"end_ms"`
	DurationMs *float64 `json:"duration_ms"`
}

// millisThreshold separates second-valued from millisecond-valued raw
// timestamps. See NormalizeMillis.
const millisThreshold = 10000

// NormalizeMillis reinterprets a raw turn timestamp as milliseconds.
// Values below 10,000 are assumed to be seconds and rescaled. This is a
// known approximation carried over from the upstream transcript format,
// which mixes units; a genuine millisecond value below the threshold
// (i.e. within the first ten seconds of a call) is misread. Downstream
// report formats depend on the exact threshold, so it must not change.
func NormalizeMillis(raw float64) float64 {
	if raw < millisThreshold {
		return raw * 1000
	}
	return raw
}

// NormalizeTurns converts a call's transcript into a uniform turn
// sequence. Both known transcript shapes are accepted; an absent,
// empty, or unparseable transcript yields an empty sequence, never an
// error.
func NormalizeTurns(rec *call.Record) []Turn {
	segments := rec.Segments()
	if len(segments) == 0 {
		return nil
	}

	turns := make([]Turn, 0, len(segments))
	for _, seg := range segments {
		role := "user"
		if seg.SpeakerRole() == "agent" {
			role = "agent"
		}
		content := seg.TextContent()

		startMs := seg.StartTime()
		endMs := seg.EndTime()
		if len(seg.Words) > 0 {
			if startMs == nil {
				startMs = seg.Words[0].StartTime()
			}
			if endMs == nil {
				last := seg.Words[len(seg.Words)-1]
				endMs = last.EndTime()
				if endMs == nil {
					endMs = last.StartTime()
				}
			}
		}
		if startMs != nil {
			v := NormalizeMillis(*startMs)
			startMs = &v
		}
		if endMs != nil {
			v := NormalizeMillis(*endMs)
			endMs = &v
		}

		wordCount := len(seg.Words)
		if wordCount == 0 {
			wordCount = len(strings.Fields(content))
		}

		var durationMs *float64
		if startMs != nil && endMs != nil {
			d := *endMs - *startMs
			durationMs = &d
		}

		turns = append(turns, Turn{
			Role:       role,
			Content:    content,
			WordCount:  wordCount,
			StartMs:    startMs,
			EndMs:      endMs,
			DurationMs: durationMs,
		})
	}
	return turns
}

// fmtClock renders a millisecond offset as mm:ss, or "??:??" when unknown.
func fmtClock(ms *float64) string {
	if ms == nil {
		return "??:??"
	}
	s := int(math.Floor(*ms / 1000))
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

// fmtSeconds renders a millisecond value as "N.Ns", or "?" when unknown.
func fmtSeconds(ms *float64) string {
	if ms == nil {
		return "?"
	}
	return fmt.Sprintf("%.1fs", *ms/1000)
}
