package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rohrwerk/callaudit/internal/audit"
	"github.com/rohrwerk/callaudit/internal/call"
	"github.com/rohrwerk/callaudit/internal/correlate"
	"github.com/rohrwerk/callaudit/internal/report"
	"github.com/rohrwerk/callaudit/pkg/logger"
)

func fptr(v float64) *float64 { return &v }

func testPipeline(t *testing.T) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	log := logger.NewNop()
	p := New(
		audit.NewAuditor(audit.DefaultConfig(), log),
		correlate.NewCorrelator(correlate.DefaultConfig(), log),
		report.NewReporter(dir, log),
		nil, // no run index
		dir,
		2,
		log,
	)
	return p, dir
}

func intakeRecord(id string, texts ...string) *call.Record {
	rec := &call.Record{CallID: id, CallStatus: "ended"}
	start := 15000.0
	for _, text := range texts {
		s, e := start, start+4000
		rec.Transcript = append(rec.Transcript, call.Segment{
			Role:           "user",
			Content:        text,
			StartTimestamp: fptr(s),
			EndTimestamp:   fptr(e),
		})
		start += 4500
	}
	return rec
}

func TestRunEndToEnd(t *testing.T) {
	p, dir := testPipeline(t)

	// A German-speaking caller who switches to English mid-call with no
	// handoff anywhere in the record.
	rec := intakeRecord("call_e2e_test_0001",
		"hallo ich habe ein Rohrbruch in der Küche",
		"can you speak english please",
	)

	run, err := p.Run(context.Background(), []Input{{Record: rec}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if run.Overall != "fail" {
		t.Errorf("overall = %q, want fail", run.Overall)
	}
	if run.Criticals != 1 {
		t.Errorf("criticals = %d, want exactly 1 (missed trigger)", run.Criticals)
	}
	if len(run.Calls) != 1 {
		t.Fatalf("expected 1 call result, got %d", len(run.Calls))
	}

	cr := run.Calls[0]
	if cr.Verdict.Score != "fail" {
		t.Errorf("call verdict = %q, want fail", cr.Verdict.Score)
	}
	if len(cr.Verdict.TopFixes) == 0 || !strings.Contains(cr.Verdict.TopFixes[0], "rigger") {
		t.Errorf("top fix = %v, want the trigger finding first", cr.Verdict.TopFixes)
	}

	// Both per-call artifacts and the batch summary must exist.
	if _, err := os.Stat(cr.ReportPath); err != nil {
		t.Errorf("call report missing: %v", err)
	}
	if _, err := os.Stat(run.SummaryPath); err != nil {
		t.Errorf("summary missing: %v", err)
	}
	if filepath.Dir(cr.ReportPath) != dir {
		t.Errorf("report written outside output dir: %s", cr.ReportPath)
	}
}

func TestRunWithSecondaryWords(t *testing.T) {
	p, dir := testPipeline(t)

	rec := intakeRecord("call_with_audio_01", "hallo ich brauche einen Termin")
	rec.RecordingURL = "https://example.invalid/recording?token=secret"
	words := []correlate.Word{
		{Word: "hallo", Start: 0.5, End: 0.9, Score: fptr(0.9)},
		{Word: "ich", Start: 1.0, End: 1.2, Score: fptr(0.9)},
		{Word: "emergency", Start: 10.0, End: 10.6, Score: fptr(0.85)},
	}

	run, err := p.Run(context.Background(), []Input{{Record: rec, SecondaryWords: words}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !run.Calls[0].Correlated {
		t.Error("call with secondary words must be marked correlated")
	}

	// The correlation artifact lands in the per-call directory.
	runDate := run.StartedAt.Format("2006-01-02")
	artifact := filepath.Join(dir, runDate+"_call_with_au", "correlation.json")
	if _, err := os.Stat(artifact); err != nil {
		t.Errorf("correlation artifact missing: %v", err)
	}

	// The recording URL carries an auth token; no written artifact may
	// contain it.
	var leaked []string
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if strings.Contains(string(data), "token=secret") {
			leaked = append(leaked, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walking output dir: %v", err)
	}
	if len(leaked) > 0 {
		t.Errorf("recording URL leaked into: %v", leaked)
	}
}

func TestRunBatchMixedVerdicts(t *testing.T) {
	p, _ := testPipeline(t)

	good := intakeRecord("call_batch_good_1", "hallo ich habe eine Frage zu meiner Rechnung")
	good.Analysis = &call.Analysis{CustomAnalysisData: map[string]string{
		"plz": "8004", "city": "Zürich", "category": "Leck",
		"urgency": "normal", "description": "tropfender Hahn",
	}}
	bad := intakeRecord("call_batch_bad_2", "do you speak english")

	run, err := p.Run(context.Background(), []Input{{Record: good}, {Record: bad}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(run.Calls) != 2 {
		t.Fatalf("expected 2 call results, got %d", len(run.Calls))
	}
	// Input order is preserved in the results.
	if run.Calls[0].CallID != "call_batch_good_1" || run.Calls[1].CallID != "call_batch_bad_2" {
		t.Errorf("result order changed: %s, %s", run.Calls[0].CallID, run.Calls[1].CallID)
	}
	if run.Calls[0].Verdict.Score != "pass" {
		t.Errorf("clean call verdict = %q, want pass", run.Calls[0].Verdict.Score)
	}
	if run.Calls[1].Verdict.Score != "fail" {
		t.Errorf("missed-trigger call verdict = %q, want fail", run.Calls[1].Verdict.Score)
	}
	if run.Overall != "fail" {
		t.Errorf("overall = %q, want fail", run.Overall)
	}
}

func TestRunEmptyBatch(t *testing.T) {
	p, _ := testPipeline(t)

	run, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Overall != "pass" {
		t.Errorf("empty batch overall = %q, want pass", run.Overall)
	}
	if _, err := os.Stat(run.SummaryPath); err != nil {
		t.Errorf("summary missing for empty batch: %v", err)
	}
}

func TestRunMalformedRecordDegrades(t *testing.T) {
	p, _ := testPipeline(t)

	// A record with nothing but an ID still produces a report.
	run, err := p.Run(context.Background(), []Input{{Record: &call.Record{CallID: "call_sparse"}}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Calls[0].Verdict.Score != "warn" {
		// Five required extraction fields are missing.
		t.Errorf("sparse record verdict = %q, want warn", run.Calls[0].Verdict.Score)
	}
	if _, err := os.Stat(run.Calls[0].ReportPath); err != nil {
		t.Errorf("sparse record report missing: %v", err)
	}
}
