package correlate

import (
	"encoding/json"

	"github.com/rohrwerk/callaudit/internal/audit"
)

// Finding categories produced by the correlator.
const (
	CategoryTriggerAgentSpoken = "trigger_agent_spoken"
	CategoryTriggerTransferOK  = "trigger_heard_transfer_ok"
	CategoryTriggerNoTransfer  = "trigger_heard_no_transfer"
	CategorySpeechNoTranscript = "speech_no_transcript"
	CategoryInaudibleStart     = "inaudible_start"
	CategoryOverlapHint        = "overlap_hint"
)

// Word is one entry of the secondary word-level transcription, in
// seconds. Score is the transcriber's per-word confidence; optional.
type Word struct {
	Word  string   `json:"word"`
	Start float64  `json:"start"`
	End   float64  `json:"end"`
	Score *float64 `json:"score,omitempty"`
}

// DecodeWords parses a secondary transcription word list.
func DecodeWords(data []byte) ([]Word, error) {
	var words []Word
	if err := json.Unmarshal(data, &words); err != nil {
		return nil, err
	}
	return words, nil
}

// window is an agent speech interval in seconds.
type window struct {
	start float64
	end   float64
}

// Detection is a located trigger phrase in the secondary transcription.
type Detection struct {
	Keyword     string   `json:"keyword"`
	Lang        string   `json:"lang"`
	StartS      *float64 `json:"start_s"`
	EndS        *float64 `json:"end_s"`
	Confidence  *float64 `json:"confidence"`
	AgentSpoken bool     `json:"agent_spoken"`
}

// HandoffEvent is a transfer-type signal extracted from the call record.
type HandoffEvent struct {
	Name  string   `json:"name"`
	Type  string   `json:"type"`
	TimeS *float64 `json:"time_s"`
}

// SpeechGap is a region where the secondary source heard words but the
// primary transcript recorded nothing usable.
type SpeechGap struct {
	TurnStartS     float64 `json:"turn_start_s"`
	TurnEndS       float64 `json:"turn_end_s"`
	PrimaryContent string  `json:"primary_content"`
	HeardText      string  `json:"heard_text"`
	HeardWordCount int     `json:"heard_word_count"`
	Similarity     float64 `json:"similarity"`
}

// Summary carries the correlation counters for the artifact.
type Summary struct {
	TriggersFound   int `json:"triggers_found"`
	HandoffsFound   int `json:"handoffs_found"`
	SpeechGapsFound int `json:"speech_gaps_found"`
	CriticalCount   int `json:"critical_count"`
	WarningCount    int `json:"warning_count"`
}

// Result is the full correlation output for one call.
type Result struct {
	CallIDShort       string          `json:"call_id_short"`
	WordCount         int             `json:"word_count"`
	TriggerDetections []Detection     `json:"trigger_detections"`
	HandoffEvents     []HandoffEvent  `json:"handoff_events"`
	SpeechGaps        []SpeechGap     `json:"speech_gaps"`
	Findings          []audit.Finding `json:"findings"`
	Summary           Summary         `json:"summary"`
}
