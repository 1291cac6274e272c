// Package pipeline orchestrates the three audit stages for a batch of
// calls: heuristic audit, optional cross-source correlation, and
// reporting. Each call's run is independent with no shared mutable
// state, so calls are processed concurrently up to a configured bound.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rohrwerk/callaudit/internal/audit"
	"github.com/rohrwerk/callaudit/internal/call"
	"github.com/rohrwerk/callaudit/internal/correlate"
	"github.com/rohrwerk/callaudit/internal/report"
	"github.com/rohrwerk/callaudit/internal/storage/sqlite"
	"github.com/rohrwerk/callaudit/pkg/logger"
)

// Input is one call to audit: the raw record plus, when available, the
// independent word-level re-transcription of the call audio.
type Input struct {
	Record         *call.Record
	SecondaryWords []correlate.Word
}

// CallResult is the outcome of one call's full pipeline run.
type CallResult struct {
	CallID      string
	Verdict     report.Verdict
	ReportPath  string
	Correlated  bool
	AudioExists bool
	Err         error
}

// RunResult summarizes a batch run.
type RunResult struct {
	RunID       string
	StartedAt   time.Time
	Overall     string
	Criticals   int
	Warnings    int
	SummaryPath string
	Calls       []CallResult
}

// Pipeline wires the stages together.
type Pipeline struct {
	auditor        *audit.Auditor
	correlator     *correlate.Correlator
	reporter       *report.Reporter
	runs           *sqlite.RunStorage
	reportsDir     string
	maxConcurrency int
	logger         *logger.Logger
}

// New creates a pipeline. runs may be nil to skip run indexing.
func New(
	auditor *audit.Auditor,
	correlator *correlate.Correlator,
	reporter *report.Reporter,
	runs *sqlite.RunStorage,
	reportsDir string,
	maxConcurrency int,
	logger *logger.Logger,
) *Pipeline {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Pipeline{
		auditor:        auditor,
		correlator:     correlator,
		reporter:       reporter,
		runs:           runs,
		reportsDir:     reportsDir,
		maxConcurrency: maxConcurrency,
		logger:         logger.Named("pipeline"),
	}
}

// callOutput is the per-call intermediate carried to the summary stage.
type callOutput struct {
	analysis audit.Result
	corr     *correlate.Result
	result   CallResult
}

// Run executes the full pipeline over a batch and writes all report
// artifacts. Report write failures fail the run; malformed call inputs
// do not (they degrade to sparse reports).
func (p *Pipeline) Run(ctx context.Context, inputs []Input) (*RunResult, error) {
	runID := uuid.New().String()
	startedAt := time.Now().UTC()
	runDate := startedAt.Format("2006-01-02")

	p.logger.Info("Starting run",
		logger.String("run_id", runID),
		logger.Int("calls", len(inputs)))

	outputs := make([]callOutput, len(inputs))
	sem := make(chan struct{}, p.maxConcurrency)
	var wg sync.WaitGroup

	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outputs[i] = p.runCall(inputs[i], runID, runDate)
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outcomes := make([]report.CallOutcome, 0, len(outputs))
	results := make([]CallResult, 0, len(outputs))
	for _, out := range outputs {
		if out.result.Err != nil {
			return nil, out.result.Err
		}
		findings := out.analysis.Findings
		if out.corr != nil {
			findings = append(append([]audit.Finding{}, findings...), out.corr.Findings...)
		}
		outcomes = append(outcomes, report.CallOutcome{
			Meta:           out.analysis.Meta,
			Findings:       findings,
			AudioAvailable: out.analysis.AudioAvailable,
			Correlation:    out.corr,
		})
		results = append(results, out.result)
	}

	summaryPath, err := p.reporter.WriteSummary(outcomes, runID, runDate)
	if err != nil {
		return nil, err
	}

	run := &RunResult{
		RunID:       runID,
		StartedAt:   startedAt,
		SummaryPath: summaryPath,
		Calls:       results,
	}
	for _, res := range results {
		run.Criticals += res.Verdict.CriticalCount
		run.Warnings += res.Verdict.WarningCount
	}
	run.Overall = report.ComputeVerdict(allFindings(outcomes)).Score

	if p.runs != nil {
		if err := p.storeRun(run, results); err != nil {
			// The reports are already on disk; a failed index write is
			// logged, not fatal.
			p.logger.Error("Failed to index run", logger.Error(err))
		}
	}

	p.logger.Info("Run complete",
		logger.String("run_id", runID),
		logger.String("overall", run.Overall),
		logger.Int("criticals", run.Criticals),
		logger.Int("warnings", run.Warnings))

	return run, nil
}

// runCall executes stages 1 and 2 plus the per-call report for one call.
func (p *Pipeline) runCall(in Input, runID, runDate string) callOutput {
	analysis := p.auditor.Analyze(in.Record)

	var corr *correlate.Result
	if len(in.SecondaryWords) > 0 {
		c := p.correlator.Correlate(in.Record, in.SecondaryWords)
		corr = &c
		artifactDir := filepath.Join(p.reportsDir, fmt.Sprintf("%s_%s", runDate, in.Record.ShortID()))
		if _, err := corr.WriteArtifact(artifactDir); err != nil {
			return callOutput{result: CallResult{CallID: in.Record.CallID, Err: err}}
		}
	}

	mdPath, _, err := p.reporter.WriteCallReport(analysis, corr, runID, runDate)
	if err != nil {
		return callOutput{result: CallResult{CallID: in.Record.CallID, Err: err}}
	}

	findings := analysis.Findings
	if corr != nil {
		findings = append(append([]audit.Finding{}, findings...), corr.Findings...)
	}
	verdict := report.ComputeVerdict(findings)

	p.logger.Info("Audited call",
		logger.String("call_id", in.Record.ShortID()),
		logger.String("verdict", verdict.Score),
		logger.Int("findings", len(findings)),
		logger.Bool("correlated", corr != nil))

	return callOutput{
		analysis: analysis,
		corr:     corr,
		result: CallResult{
			CallID:      in.Record.CallID,
			Verdict:     verdict,
			ReportPath:  mdPath,
			Correlated:  corr != nil,
			AudioExists: analysis.AudioAvailable,
		},
	}
}

func (p *Pipeline) storeRun(run *RunResult, results []CallResult) error {
	record := &sqlite.RunRecord{
		RunID:       run.RunID,
		StartedAt:   run.StartedAt,
		Overall:     run.Overall,
		CallCount:   len(results),
		Criticals:   run.Criticals,
		Warnings:    run.Warnings,
		SummaryPath: run.SummaryPath,
	}
	calls := make([]sqlite.CallRecord, 0, len(results))
	for _, res := range results {
		calls = append(calls, sqlite.CallRecord{
			RunID:          run.RunID,
			CallID:         res.CallID,
			Verdict:        res.Verdict.Score,
			Criticals:      res.Verdict.CriticalCount,
			Warnings:       res.Verdict.WarningCount,
			ReportPath:     res.ReportPath,
			AudioAvailable: res.AudioExists,
			Correlated:     res.Correlated,
		})
	}
	return p.runs.StoreRun(record, calls)
}

func allFindings(outcomes []report.CallOutcome) []audit.Finding {
	var all []audit.Finding
	for _, o := range outcomes {
		all = append(all, o.Findings...)
	}
	return all
}
