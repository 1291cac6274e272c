// Package call models the raw intake call record consumed by the audit
// pipeline. Records are produced and owned by the upstream intake
// platform; this package only decodes and reads them.
package call

import (
	"encoding/json"
	"strings"
)

// Disconnection reasons and tool names that signal a language handoff.
const (
	ReasonAgentTransfer = "agent_transfer"
	ToolSwapIntlAgent   = "swap_to_intl_agent"
	ToolTypeTransfer    = "transfer_call"
	ToolEndCall         = "end_call"
)

// Word is a single transcribed word with optional timing. Timestamps may
// arrive under either key depending on the transcript shape.
type Word struct {
	Word           string   `json:"word"`
	Start          *float64 `json:"start,omitempty"`
	StartTimestamp *float64 `json:"start_timestamp,omitempty"`
	End            *float64 `json:"end,omitempty"`
	EndTimestamp   *float64 `json:"end_timestamp,omitempty"`
}

// StartTime returns the word's start under whichever key is present.
func (w Word) StartTime() *float64 {
	if w.Start != nil {
		return w.Start
	}
	return w.StartTimestamp
}

// EndTime returns the word's end under whichever key is present.
func (w Word) EndTime() *float64 {
	if w.End != nil {
		return w.End
	}
	return w.EndTimestamp
}

// Segment is one transcript entry. The upstream platform delivers
// either object-per-turn segments (role + content + nested words) or
// flat word-array segments under alternate keys; both decode into this
// shape and are unified by the turn normalizer.
type Segment struct {
	Role           string   `json:"role,omitempty"`
	Speaker        string   `json:"speaker,omitempty"`
	Content        string   `json:"content,omitempty"`
	Text           string   `json:"text,omitempty"`
	Words          []Word   `json:"words,omitempty"`
	StartTimestamp *float64 `json:"start_timestamp,omitempty"`
	Start          *float64 `json:"start,omitempty"`
	EndTimestamp   *float64 `json:"end_timestamp,omitempty"`
	End            *float64 `json:"end,omitempty"`
}

// SpeakerRole returns the segment's role under whichever key is present.
func (s Segment) SpeakerRole() string {
	if s.Role != "" {
		return s.Role
	}
	return s.Speaker
}

// TextContent returns the segment's text under whichever key is present.
func (s Segment) TextContent() string {
	if s.Content != "" {
		return s.Content
	}
	return s.Text
}

// StartTime returns the segment-level start under whichever key is present.
func (s Segment) StartTime() *float64 {
	if s.StartTimestamp != nil {
		return s.StartTimestamp
	}
	return s.Start
}

// EndTime returns the segment-level end under whichever key is present.
func (s Segment) EndTime() *float64 {
	if s.EndTimestamp != nil {
		return s.EndTimestamp
	}
	return s.End
}

// ToolCall is a recorded tool/event invocation.
type ToolCall struct {
	Name         string   `json:"name,omitempty"`
	Type         string   `json:"type,omitempty"`
	StartTimeSec *float64 `json:"start_time_sec,omitempty"`
}

// Analysis carries the business fields extracted by the upstream platform.
type Analysis struct {
	CallSummary        string            `json:"call_summary,omitempty"`
	CustomAnalysisData map[string]string `json:"custom_analysis_data,omitempty"`
}

// Record is the raw call record. Immutable from the pipeline's point of
// view: every stage only reads it.
type Record struct {
	CallID              string     `json:"call_id"`
	AgentID             string     `json:"agent_id,omitempty"`
	CallType            string     `json:"call_type,omitempty"`
	CallStatus          string     `json:"call_status,omitempty"`
	DisconnectionReason string     `json:"disconnection_reason,omitempty"`
	StartTimestamp      *float64   `json:"start_timestamp,omitempty"`
	EndTimestamp        *float64   `json:"end_timestamp,omitempty"`
	DurationMs          *float64   `json:"duration_ms,omitempty"`
	Transcript          []Segment  `json:"transcript_object,omitempty"`
	TranscriptWithTools []Segment  `json:"transcript_with_tool_call,omitempty"`
	ToolCalls           []ToolCall `json:"tool_calls,omitempty"`
	Analysis            *Analysis  `json:"call_analysis,omitempty"`

	// RecordingURL is a signed URL carrying an auth token. It must never
	// be logged or written into any report; only its presence is surfaced.
	RecordingURL string `json:"recording_url,omitempty"`
	AudioURL     string `json:"audio_url,omitempty"`
}

// Decode parses a raw call record.
func Decode(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ShortID returns the call identifier truncated for report paths and logs.
func (r *Record) ShortID() string {
	id := r.CallID
	if id == "" {
		id = "unknown"
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

// Segments returns the transcript entries, preferring the plain
// transcript over the tool-call-interleaved variant.
func (r *Record) Segments() []Segment {
	if len(r.Transcript) > 0 {
		return r.Transcript
	}
	return r.TranscriptWithTools
}

// DurationMillis returns the call duration in ms, derived from the
// start/end timestamps when no explicit duration is present. Nil when
// neither is available.
func (r *Record) DurationMillis() *float64 {
	if r.DurationMs != nil {
		return r.DurationMs
	}
	if r.StartTimestamp != nil && r.EndTimestamp != nil {
		d := *r.EndTimestamp - *r.StartTimestamp
		return &d
	}
	return nil
}

// CallSummary returns the upstream summary text, or "".
func (r *Record) CallSummary() string {
	if r.Analysis == nil {
		return ""
	}
	return r.Analysis.CallSummary
}

// ExtractedFields returns the upstream-extracted business fields.
func (r *Record) ExtractedFields() map[string]string {
	if r.Analysis == nil {
		return nil
	}
	return r.Analysis.CustomAnalysisData
}

// HandoffSignaled reports whether anything in the record indicates a
// language handoff: transfer call type, transfer disconnection reason,
// or a summary that mentions a transfer. Deliberately broad: the
// trigger check treats absence of any such signal as a failure.
func (r *Record) HandoffSignaled() bool {
	return r.CallType == ReasonAgentTransfer ||
		r.DisconnectionReason == ReasonAgentTransfer ||
		strings.Contains(strings.ToLower(r.CallSummary()), "transfer")
}

// HandoffInitiated reports whether a handoff was actually started, per
// the call's own metadata only.
func (r *Record) HandoffInitiated() bool {
	return r.DisconnectionReason == ReasonAgentTransfer ||
		r.CallType == ReasonAgentTransfer
}

// RecordingAvailable reports whether a recording exists for the call.
// The URL itself stays inside the record.
func (r *Record) RecordingAvailable() bool {
	return r.RecordingURL != "" || r.AudioURL != ""
}
