package audit

// Severity classifies a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
	SeverityPass     Severity = "pass"
)

// Finding category tags. These are stable machine strings; reports and
// the batch regression dedup key off them.
const (
	CategoryTriggerMissed     = "trigger_missed"
	CategoryTriggerMatched    = "trigger_matched"
	CategoryTransferFailed    = "transfer_failed"
	CategoryGibberishDetected = "gibberish_detected"
	CategoryGibberishSuspect  = "gibberish_suspected"
	CategoryDoubleQuestion    = "double_question"
	CategoryExpressIgnored    = "express_ignored"
	CategoryExtractionMissing = "extraction_missing"
	CategoryExtractionInvalid = "extraction_invalid"
	CategoryExtractionInfo    = "extraction_info"
	CategoryHighAgentRatio    = "high_agent_ratio"
	CategoryTranscriptGap     = "transcript_gap"
	CategoryCallTooLong       = "call_too_long"
)

// Finding is one atomic audit result. Findings are append-only within a
// run and never mutated after creation. Evidence must never contain
// secrets or recording URLs.
type Finding struct {
	Category     string         `json:"category"`
	Severity     Severity       `json:"severity"`
	Title        string         `json:"title"`
	Detail       string         `json:"detail"`
	Timestamp    string         `json:"timestamp,omitempty"`
	TimestampSec *float64       `json:"timestamp_s,omitempty"`
	Evidence     map[string]any `json:"evidence,omitempty"`
}

// NewFinding builds a finding with a clock-formatted timestamp.
func NewFinding(category string, severity Severity, title, detail, timestamp string, evidence map[string]any) Finding {
	return Finding{
		Category:  category,
		Severity:  severity,
		Title:     title,
		Detail:    detail,
		Timestamp: timestamp,
		Evidence:  evidence,
	}
}
