// Package pipeline sequences the three stages: Extract, Transform, Load.
// Stages run strictly one after another; each stage's output is the next
// stage's input, and a fatal error in any stage moves the run to FAILED with
// no retries.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"heartetl/internal/extract"
	"heartetl/internal/metrics"
	"heartetl/internal/storage"
	"heartetl/internal/transform"
	"heartetl/pkg/records"
)

// State is the orchestrator's current position in the run.
type State string

const (
	StateIdle         State = "IDLE"
	StateExtracting   State = "EXTRACTING"
	StateTransforming State = "TRANSFORMING"
	StateLoading      State = "LOADING"
	StateDone         State = "DONE"
	StateFailed       State = "FAILED"
)

// Stages holds the three stage functions. Using functions keeps the
// orchestrator independent of the concrete components and easy to stub.
type Stages struct {
	Extract   func(ctx context.Context) (*records.Table, error)
	Transform func(t *records.Table) (*records.Table, *transform.Report, error)
	Load      func(ctx context.Context, t *records.Table) (int64, error)
}

// Pipeline is the run orchestrator.
type Pipeline struct {
	Job    string
	Stages Stages
	Logger *slog.Logger

	state State
}

// New constructs a Pipeline in the idle state.
func New(job string, stages Stages, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Job: job, Stages: stages, Logger: logger, state: StateIdle}
}

// State returns the current state.
func (p *Pipeline) State() State { return p.state }

// Run executes Extract, Transform, and Load in order. The first stage error
// aborts the run: the state becomes FAILED and the error is returned with
// the stage already logged.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()
	p.Logger.Info("pipeline starting", "job", p.Job)

	p.state = StateExtracting
	raw, err := p.timed(ctx, "extract", func(ctx context.Context) (*records.Table, error) {
		return p.Stages.Extract(ctx)
	})
	if err != nil {
		return p.fail("extract", err)
	}
	metrics.RecordRows(p.Job, "extracted", int64(raw.NumRows()))

	p.state = StateTransforming
	var report *transform.Report
	cleaned, err := p.timed(ctx, "transform", func(context.Context) (*records.Table, error) {
		var (
			t *records.Table
			e error
		)
		t, report, e = p.Stages.Transform(raw)
		return t, e
	})
	if err != nil {
		return p.fail("transform", err)
	}
	metrics.RecordRows(p.Job, "imputed", int64(report.TotalImputed()))
	metrics.RecordRows(p.Job, "dropped", int64(report.TotalDropped()))
	metrics.RecordRows(p.Job, "repaired", int64(report.TotalRepaired()))
	metrics.RecordRows(p.Job, "deduplicated", int64(report.Duplicates))

	p.state = StateLoading
	stageStart := time.Now()
	loaded, err := p.Stages.Load(ctx, cleaned)
	metrics.RecordStage(p.Job, "load", err, time.Since(stageStart))
	if err != nil {
		return p.fail("load", err)
	}
	metrics.RecordRows(p.Job, "loaded", loaded)

	p.state = StateDone
	p.Logger.Info("pipeline complete",
		"job", p.Job,
		"rows_loaded", loaded,
		"elapsed", time.Since(start).Truncate(time.Millisecond).String(),
	)
	return nil
}

// timed runs one table-producing stage with metrics and a log line.
func (p *Pipeline) timed(ctx context.Context, stage string, fn func(context.Context) (*records.Table, error)) (*records.Table, error) {
	p.Logger.Info("stage starting", "job", p.Job, "stage", stage)
	start := time.Now()
	t, err := fn(ctx)
	metrics.RecordStage(p.Job, stage, err, time.Since(start))
	if err == nil {
		p.Logger.Info("stage complete", "job", p.Job, "stage", stage,
			"rows", t.NumRows(), "elapsed", time.Since(start).Truncate(time.Millisecond).String())
	}
	return t, err
}

// fail records the terminal FAILED state and logs the stage, error kind, and
// cause before passing the error up.
func (p *Pipeline) fail(stage string, err error) error {
	p.state = StateFailed
	p.Logger.Error("pipeline failed",
		"job", p.Job,
		"stage", stage,
		"kind", errorKind(err),
		"error", err,
	)
	return err
}

// errorKind names the fatal error category for log output.
func errorKind(err error) string {
	var (
		extractErr *extract.ExtractionError
		schemaErr  *transform.SchemaError
		tfErr      *transform.TransformationError
		loadErr    *storage.LoadError
		verifyErr  *storage.VerificationError
	)
	switch {
	case errors.As(err, &extractErr):
		return "ExtractionError"
	case errors.As(err, &schemaErr):
		return "SchemaError"
	case errors.As(err, &tfErr):
		return "TransformationError"
	case errors.As(err, &loadErr):
		return "LoadError"
	case errors.As(err, &verifyErr):
		return "LoadVerificationError"
	default:
		return "Error"
	}
}
