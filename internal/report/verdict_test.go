package report

import (
	"reflect"
	"testing"

	"github.com/rohrwerk/callaudit/internal/audit"
)

func finding(category string, sev audit.Severity, title string) audit.Finding {
	return audit.Finding{Category: category, Severity: sev, Title: title}
}

func TestComputeVerdictScores(t *testing.T) {
	tests := []struct {
		name     string
		findings []audit.Finding
		want     string
	}{
		{"no findings", nil, "pass"},
		{"info only", []audit.Finding{
			finding("transcript_gap", audit.SeverityInfo, "gap"),
		}, "pass"},
		{"two warnings", []audit.Finding{
			finding("extraction_missing", audit.SeverityWarning, "a"),
			finding("extraction_missing", audit.SeverityWarning, "b"),
		}, "pass"},
		{"three warnings", []audit.Finding{
			finding("extraction_missing", audit.SeverityWarning, "a"),
			finding("extraction_missing", audit.SeverityWarning, "b"),
			finding("double_question", audit.SeverityWarning, "c"),
		}, "warn"},
		{"single critical outranks everything", []audit.Finding{
			finding("trigger_matched", audit.SeverityPass, "ok"),
			finding("trigger_missed", audit.SeverityCritical, "missed"),
		}, "fail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeVerdict(tt.findings).Score; got != tt.want {
				t.Errorf("Score = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComputeVerdictTopFixOrder(t *testing.T) {
	findings := []audit.Finding{
		finding("extraction_missing", audit.SeverityWarning, "warn one"),
		finding("trigger_missed", audit.SeverityCritical, "crit one"),
		finding("double_question", audit.SeverityWarning, "warn two"),
		finding("transfer_failed", audit.SeverityCritical, "crit two"),
	}
	v := ComputeVerdict(findings)

	// Criticals first in encounter order, then warnings, capped at three.
	want := []string{"crit one", "crit two", "warn one"}
	if !reflect.DeepEqual(v.TopFixes, want) {
		t.Errorf("TopFixes = %v, want %v", v.TopFixes, want)
	}
}

func TestComputeVerdictCounts(t *testing.T) {
	findings := []audit.Finding{
		finding("trigger_missed", audit.SeverityCritical, "c"),
		finding("extraction_missing", audit.SeverityWarning, "w"),
		finding("transcript_gap", audit.SeverityInfo, "i"),
		finding("trigger_matched", audit.SeverityPass, "p"),
	}
	v := ComputeVerdict(findings)
	if v.CriticalCount != 1 || v.WarningCount != 1 || v.InfoCount != 1 || v.PassCount != 1 {
		t.Errorf("counts = %d/%d/%d/%d, want 1/1/1/1",
			v.CriticalCount, v.WarningCount, v.InfoCount, v.PassCount)
	}
}

func TestComputeVerdictIdempotent(t *testing.T) {
	findings := []audit.Finding{
		finding("trigger_missed", audit.SeverityCritical, "missed"),
		finding("extraction_missing", audit.SeverityWarning, "plz"),
	}
	first := ComputeVerdict(findings)
	second := ComputeVerdict(findings)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("recomputed verdict differs: %+v vs %+v", first, second)
	}
}

func TestComputeVerdictAddingCriticalNeverImproves(t *testing.T) {
	base := []audit.Finding{
		finding("extraction_missing", audit.SeverityWarning, "w1"),
		finding("extraction_missing", audit.SeverityWarning, "w2"),
		finding("extraction_missing", audit.SeverityWarning, "w3"),
	}
	before := ComputeVerdict(base).Score
	after := ComputeVerdict(append(base, finding("trigger_missed", audit.SeverityCritical, "c"))).Score
	if before != "warn" || after != "fail" {
		t.Errorf("verdict went %q -> %q, want warn -> fail", before, after)
	}
}
