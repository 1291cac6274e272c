package audit

import (
	"testing"

	"github.com/rohrwerk/callaudit/internal/call"
)

func recWithAnalysis(data map[string]string) *call.Record {
	return &call.Record{
		CallID:   "call_extraction_test",
		Analysis: &call.Analysis{CustomAnalysisData: data},
	}
}

func TestCheckExtractionAllFieldsValid(t *testing.T) {
	a := NewAuditor(DefaultConfig(), testLogger())
	rec := recWithAnalysis(map[string]string{
		"plz":          "8004",
		"city":         "Zürich",
		"category":     "Rohrbruch",
		"urgency":      "notfall",
		"description":  "Wasser tritt in der Küche aus",
		"street":       "Langstrasse",
		"house_number": "12",
	})

	findings := a.checkExtraction(rec)
	if got := countBy(findings, CategoryExtractionMissing, SeverityWarning); got != 0 {
		t.Errorf("expected no missing-field warnings, got %d", got)
	}
	if got := countBy(findings, CategoryExtractionInvalid, SeverityWarning); got != 0 {
		t.Errorf("expected no invalid-field warnings, got %d", got)
	}
	// Optional fields always produce an info finding each.
	if got := countBy(findings, CategoryExtractionInfo, SeverityInfo); got != 2 {
		t.Errorf("expected 2 optional-field info findings, got %d", got)
	}
}

func TestCheckExtractionMissingRequired(t *testing.T) {
	a := NewAuditor(DefaultConfig(), testLogger())
	findings := a.checkExtraction(recWithAnalysis(map[string]string{
		"plz": "8004",
	}))
	if got := countBy(findings, CategoryExtractionMissing, SeverityWarning); got != 4 {
		t.Errorf("expected 4 missing-field warnings, got %d", got)
	}
}

func TestCheckExtractionInvalidValues(t *testing.T) {
	a := NewAuditor(DefaultConfig(), testLogger())
	tests := []struct {
		name string
		data map[string]string
	}{
		{"five digit plz", map[string]string{"plz": "80045"}},
		{"plz with letters", map[string]string{"plz": "80A4"}},
		{"unknown urgency", map[string]string{"urgency": "sofort"}},
		{"unknown category", map[string]string{"category": "Garten"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := a.checkExtraction(recWithAnalysis(tt.data))
			if got := countBy(findings, CategoryExtractionInvalid, SeverityWarning); got != 1 {
				t.Errorf("expected 1 invalid-field warning, got %d", got)
			}
		})
	}
}

func TestCheckExtractionUrgencyCaseInsensitive(t *testing.T) {
	a := NewAuditor(DefaultConfig(), testLogger())
	findings := a.checkExtraction(recWithAnalysis(map[string]string{"urgency": "Notfall"}))
	if got := countBy(findings, CategoryExtractionInvalid, SeverityWarning); got != 0 {
		t.Errorf("urgency comparison must ignore case, got %d invalid warnings", got)
	}
}

func TestCheckExtractionNoAnalysis(t *testing.T) {
	a := NewAuditor(DefaultConfig(), testLogger())
	findings := a.checkExtraction(&call.Record{CallID: "call_bare"})
	if got := countBy(findings, CategoryExtractionMissing, SeverityWarning); got != 5 {
		t.Errorf("expected 5 missing-field warnings, got %d", got)
	}
	if got := countBy(findings, CategoryExtractionInvalid, SeverityWarning); got != 0 {
		t.Errorf("absent fields are missing, not invalid; got %d invalid warnings", got)
	}
}
