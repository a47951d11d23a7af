package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"blurry/internal/fileutil"
	"blurry/internal/layout"
	"blurry/internal/logging"
	"blurry/internal/queue"
	"blurry/internal/services"
)

// ErrBusy is returned when Run is called while a batch is already in flight.
var ErrBusy = errors.New("batch already running")

// Options configures a Runner.
type Options struct {
	Logger   *slog.Logger
	Progress ProgressFunc
	// ClearDone removes done entries from the queue after a completed batch.
	ClearDone bool
}

// Runner executes redaction batches over a queue.
type Runner struct {
	store     *queue.Store
	policy    layout.Policy
	processor Processor
	logger    *slog.Logger
	progress  ProgressFunc
	clearDone bool
	state     atomic.Int32
}

type plan struct {
	entry *queue.Entry
	paths layout.Paths
	err   error
}

// NewRunner builds a runner. All arguments except opts are required.
func NewRunner(store *queue.Store, policy layout.Policy, processor Processor, opts Options) *Runner {
	return &Runner{
		store:     store,
		policy:    policy,
		processor: processor,
		logger:    logging.NewComponentLogger(opts.Logger, "workflow"),
		progress:  opts.Progress,
		clearDone: opts.ClearDone,
	}
}

// State reports where the runner is in its lifecycle.
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Run processes every queue entry that is not done. Layout validation, lock
// acquisition and queue read failures are returned as errors before anything
// is written. Per-entry failures are recorded in the Result and the queue.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if !r.enter() {
		return Result{}, ErrBusy
	}

	batchID := uuid.NewString()
	ctx = services.WithBatchID(ctx, batchID)
	logger := logging.WithContext(ctx, r.logger)
	result := Result{BatchID: batchID}

	release, err := r.store.Freeze()
	if err != nil {
		r.state.Store(int32(StateIdle))
		return result, fmt.Errorf("freeze queue: %w", err)
	}
	plans, err := r.prepare(ctx)
	if err != nil {
		r.state.Store(int32(StateIdle))
		if relErr := release(); relErr != nil {
			logger.Warn("batch lock release failed", logging.Error(relErr))
		}
		return result, err
	}

	r.state.Store(int32(StateRunning))
	started := time.Now()
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("videos", len(plans)),
		logging.String("layout", r.policy.Name()),
		logging.String("export_root", r.policy.Root()),
	)

	total := int64(len(plans))
	cancelled := false
	for i, p := range plans {
		r.emit(Event{Kind: EventVideoStarted, EntryID: p.entry.ID, Target: p.entry.TargetFilename, Index: int64(i + 1), Total: total})
		if ctx.Err() != nil {
			cancelled = true
			result.Skipped = len(plans) - i
			break
		}
		er := r.runEntry(ctx, p)
		result.Entries = append(result.Entries, er)
		switch er.Status {
		case queue.StatusDone:
			result.Done++
		case queue.StatusPartial:
			result.Partial++
		default:
			result.Failed++
		}
	}
	if !cancelled && ctx.Err() != nil && result.Partial > 0 {
		cancelled = true
	}

	if err := release(); err != nil {
		logger.Warn("batch lock release failed", logging.Error(err))
	}

	result.Outcome = OutcomeCompleted
	r.state.Store(int32(StateCompleted))
	if cancelled {
		result.Outcome = OutcomeCancelled
		r.state.Store(int32(StateCancelled))
	}

	if result.Outcome == OutcomeCompleted && r.clearDone && result.Done > 0 {
		removed, err := r.store.ClearDone(context.WithoutCancel(ctx))
		if err != nil {
			logger.Warn("clearing done entries failed", logging.Error(err))
		} else {
			logger.Debug("cleared done entries", logging.Int64("removed", removed))
		}
	}

	logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.String("outcome", string(result.Outcome)),
		logging.Int("done", result.Done),
		logging.Int("failed", result.Failed),
		logging.Int("partial", result.Partial),
		logging.Int("skipped", result.Skipped),
		logging.Duration("batch_duration", time.Since(started)),
	)
	return result, nil
}

func (r *Runner) enter() bool {
	for {
		current := State(r.state.Load())
		if current == StatePreparing || current == StateRunning {
			return false
		}
		if r.state.CompareAndSwap(int32(current), int32(StatePreparing)) {
			return true
		}
	}
}

// prepare validates the export root and derives output paths. Nothing is
// created on disk until validation passes.
func (r *Runner) prepare(ctx context.Context) ([]plan, error) {
	if err := r.policy.Validate(); err != nil {
		return nil, err
	}
	entries, err := r.store.Runnable(ctx)
	if err != nil {
		return nil, fmt.Errorf("list runnable entries: %w", err)
	}
	plans := make([]plan, 0, len(entries))
	for _, entry := range entries {
		p := plan{entry: entry}
		p.paths, p.err = r.policy.Paths(entry.TargetFilename, filepath.Ext(entry.SourcePath))
		if p.err == nil {
			p.err = layout.Ensure(p.paths)
		}
		if p.err != nil && !errors.Is(p.err, services.ErrMediaWrite) {
			p.err = services.Wrap(services.ErrValidation, "prepare", "derive paths", entry.TargetFilename, p.err)
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (r *Runner) runEntry(ctx context.Context, p plan) EntryResult {
	entry := p.entry
	ctx = services.WithRequestID(services.WithEntryID(ctx, entry.ID), uuid.NewString())
	logger := logging.WithContext(ctx, r.logger)
	persistCtx := context.WithoutCancel(ctx)

	er := EntryResult{
		ID:             entry.ID,
		SourcePath:     entry.SourcePath,
		TargetFilename: entry.TargetFilename,
		Paths:          p.paths,
	}
	started := time.Now()
	logger.Info("video started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("source_file", entry.SourcePath),
		logging.String("target", entry.TargetFilename),
	)

	progress := &entryProgress{runner: r, ctx: persistCtx, logger: logger, entry: entry, sampler: logging.NewProgressSampler(10)}
	err := p.err
	if err == nil {
		er.Copied, err = r.copyUntouched(persistCtx, entry, p.paths)
	}
	if err == nil {
		if updErr := r.store.UpdateStatus(persistCtx, entry.ID, queue.StatusEncoding, ""); updErr != nil {
			logger.Warn("status update failed", logging.String("status", string(queue.StatusEncoding)), logging.Error(updErr))
		}
		err = r.processor.Process(services.WithStage(ctx, "redact"), Job{
			EntryID:    entry.ID,
			SourcePath: entry.SourcePath,
			OutputPath: p.paths.RedactedPath,
			Progress:   progress,
		})
	}
	er.FramesDone = progress.done
	er.Err = err
	er.Status = services.FailureStatus(err)
	if progress.done > 0 || progress.total > 0 {
		if updErr := r.store.UpdateProgress(persistCtx, entry.ID, progress.done, progress.total); updErr != nil {
			logger.Warn("progress update failed", logging.Error(updErr))
		}
	}

	message := ""
	if err != nil {
		message = err.Error()
	}
	if updErr := r.store.UpdateStatus(persistCtx, entry.ID, er.Status, message); updErr != nil {
		logger.Error("status update failed", logging.String("status", string(er.Status)), logging.Error(updErr))
	}

	switch er.Status {
	case queue.StatusDone:
		logger.Info("video completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Int64("frames", progress.done),
			logging.String("redacted_path", p.paths.RedactedPath),
			logging.Duration("stage_duration", time.Since(started)),
		)
	case queue.StatusPartial:
		logging.WarnWithContext(logger, "video cancelled", "stage_cancelled",
			logging.Int64("frames", progress.done),
			logging.String("redacted_path", p.paths.RedactedPath),
			logging.String(logging.FieldImpact, "redacted output holds only the frames processed before cancel"),
			logging.String(logging.FieldErrorHint, "rerun the batch to redo this video"),
		)
	default:
		logging.ErrorWithContext(logger, "video failed", "stage_failure",
			logging.String("source_file", entry.SourcePath),
			logging.String("resolved_status", string(er.Status)),
			logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
			logging.Error(err),
		)
	}
	return er
}

func (r *Runner) copyUntouched(ctx context.Context, entry *queue.Entry, paths layout.Paths) (bool, error) {
	copied, err := fileutil.CopyIfMissing(entry.SourcePath, paths.UntouchedPath)
	if err != nil {
		return false, services.Wrap(services.ErrMediaWrite, "copy", "untouched copy", paths.UntouchedPath, err)
	}
	if err := r.store.UpdateStatus(ctx, entry.ID, queue.StatusCopied, ""); err != nil {
		return copied, fmt.Errorf("record copy: %w", err)
	}
	logging.WithContext(ctx, r.logger).Debug("untouched copy ready",
		logging.String("untouched_path", paths.UntouchedPath),
		logging.Bool("copied", copied),
	)
	return copied, nil
}

func (r *Runner) emit(ev Event) {
	if r.progress != nil {
		r.progress(ev)
	}
}

type entryProgress struct {
	runner  *Runner
	ctx     context.Context
	logger  *slog.Logger
	entry   *queue.Entry
	sampler *logging.ProgressSampler
	done    int64
	total   int64
}

func (p *entryProgress) FrameTotal(total int64) {
	p.total = total
	p.runner.emit(Event{Kind: EventFrameTotal, EntryID: p.entry.ID, Target: p.entry.TargetFilename, Total: total})
	if err := p.runner.store.UpdateProgress(p.ctx, p.entry.ID, 0, total); err != nil {
		p.logger.Warn("progress update failed", logging.Error(err))
	}
}

func (p *entryProgress) FrameDone(done, total int64) {
	p.done = done
	if total > 0 {
		p.total = total
	}
	p.runner.emit(Event{Kind: EventFrameDone, EntryID: p.entry.ID, Target: p.entry.TargetFilename, Index: done, Total: total})

	percent := -1.0
	if total > 0 {
		percent = float64(done) / float64(total) * 100
	}
	if !p.sampler.ShouldLog(p.entry.ID, percent) {
		return
	}
	p.logger.Info("redaction progress",
		logging.String(logging.FieldEventType, "progress"),
		logging.Int64("frames_done", done),
		logging.Int64("frames_total", total),
	)
	if err := p.runner.store.UpdateProgress(p.ctx, p.entry.ID, done, total); err != nil {
		p.logger.Warn("progress update failed", logging.Error(err))
	}
}
