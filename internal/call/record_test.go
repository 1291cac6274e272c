package call

import "testing"

func fptr(v float64) *float64 { return &v }

func TestDecodeRecord(t *testing.T) {
	data := []byte(`{
		"call_id": "call_decode_test_12345",
		"call_status": "ended",
		"disconnection_reason": "agent_transfer",
		"duration_ms": 92500,
		"transcript_object": [
			{"role": "agent", "content": "Grüezi", "start_timestamp": 0, "end_timestamp": 1500},
			{"role": "user", "content": "hallo", "words": [{"word": "hallo", "start": 1.6, "end": 2.0}]}
		],
		"call_analysis": {
			"call_summary": "Caller reported a leak.",
			"custom_analysis_data": {"plz": "8004"}
		},
		"recording_url": "https://example.invalid/rec?token=abc"
	}`)

	rec, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rec.CallID != "call_decode_test_12345" {
		t.Errorf("call id = %q", rec.CallID)
	}
	if len(rec.Transcript) != 2 || rec.Transcript[1].Words[0].Word != "hallo" {
		t.Errorf("transcript did not decode: %+v", rec.Transcript)
	}
	if rec.ExtractedFields()["plz"] != "8004" {
		t.Errorf("extracted fields = %v", rec.ExtractedFields())
	}
	if !rec.RecordingAvailable() {
		t.Error("recording must be reported available")
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode([]byte(`{"call_id": `)); err == nil {
		t.Error("truncated JSON must fail to decode")
	}
}

func TestShortID(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"", "unknown"},
		{"abc", "abc"},
		{"call_1234567890abcdef", "call_1234567"},
	}
	for _, tt := range tests {
		r := &Record{CallID: tt.id}
		if got := r.ShortID(); got != tt.want {
			t.Errorf("ShortID(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestSegmentsPreference(t *testing.T) {
	plain := []Segment{{Role: "user", Content: "a"}}
	tooled := []Segment{{Role: "user", Content: "b"}}

	r := &Record{Transcript: plain, TranscriptWithTools: tooled}
	if got := r.Segments(); got[0].Content != "a" {
		t.Error("plain transcript must win when both are present")
	}
	r = &Record{TranscriptWithTools: tooled}
	if got := r.Segments(); got[0].Content != "b" {
		t.Error("tool-call transcript must be the fallback")
	}
}

func TestDurationMillisFallback(t *testing.T) {
	r := &Record{DurationMs: fptr(5000)}
	if d := r.DurationMillis(); d == nil || *d != 5000 {
		t.Errorf("explicit duration = %v, want 5000", d)
	}

	r = &Record{StartTimestamp: fptr(1000), EndTimestamp: fptr(4000)}
	if d := r.DurationMillis(); d == nil || *d != 3000 {
		t.Errorf("derived duration = %v, want 3000", d)
	}

	if d := (&Record{}).DurationMillis(); d != nil {
		t.Errorf("no timestamps must yield nil, got %v", *d)
	}
}

func TestHandoffSignaled(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want bool
	}{
		{"no signal", Record{}, false},
		{"disconnection reason", Record{DisconnectionReason: ReasonAgentTransfer}, true},
		{"call type", Record{CallType: ReasonAgentTransfer}, true},
		{"summary mention", Record{Analysis: &Analysis{CallSummary: "Call was transferred to an English agent."}}, true},
		{"unrelated summary", Record{Analysis: &Analysis{CallSummary: "Caller booked an appointment."}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.HandoffSignaled(); got != tt.want {
				t.Errorf("HandoffSignaled = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandoffInitiatedNarrowerThanSignaled(t *testing.T) {
	// A summary mention alone signals a handoff but does not prove one
	// was initiated.
	r := Record{Analysis: &Analysis{CallSummary: "transfer requested"}}
	if !r.HandoffSignaled() || r.HandoffInitiated() {
		t.Errorf("signaled=%v initiated=%v, want true/false", r.HandoffSignaled(), r.HandoffInitiated())
	}
}

func TestWordAndSegmentAlternateKeys(t *testing.T) {
	w := Word{Start: fptr(1.0), EndTimestamp: fptr(2.0)}
	if s := w.StartTime(); s == nil || *s != 1.0 {
		t.Errorf("word start = %v, want 1.0", s)
	}
	if e := w.EndTime(); e == nil || *e != 2.0 {
		t.Errorf("word end = %v, want 2.0 from the alternate key", e)
	}

	seg := Segment{Speaker: "agent", Text: "hello"}
	if seg.SpeakerRole() != "agent" || seg.TextContent() != "hello" {
		t.Errorf("alternate segment keys not honored: %+v", seg)
	}
}
