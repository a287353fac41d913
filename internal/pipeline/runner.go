package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"nestling/internal/logging"
	"nestling/internal/services"
)

// RunnerConfig carries batch-level parameters.
type RunnerConfig struct {
	Executor         ExecutorConfig
	ProgressInterval time.Duration
}

// Runner iterates an ordered batch of tasks through the executor, one at a
// time, isolating per-task failure from the rest of the batch. It owns the
// cancellation scope: starting a new batch supersedes a running one.
type Runner struct {
	cfg      RunnerConfig
	services Services
	sink     ProgressSink
	logger   *slog.Logger
	scope    BatchScope
}

// NewRunner constructs a batch runner. The sink may be nil when no caller
// observes progress.
func NewRunner(cfg RunnerConfig, svcs Services, sink ProgressSink, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{cfg: cfg, services: svcs, sink: sink, logger: logger}
}

// Cancel aborts the batch currently in flight, if any.
func (r *Runner) Cancel() {
	r.scope.Cancel()
}

// Run processes raw items as one batch and returns the settled result. Tasks
// settle in submission order and each ends in exactly one terminal state.
// Per-task errors are absorbed and returned as retry entries; only
// cancellation is returned as an error, and even then the result is complete,
// with every unfinished task marked cancelled and present in the retry set.
func (r *Runner) Run(ctx context.Context, items []RawItem) (*BatchResult, error) {
	tasks := Normalize(items)
	batchID := uuid.NewString()

	batchCtx, release := r.scope.Start(ctx)
	defer release()
	batchCtx = services.WithBatchID(batchCtx, batchID)

	logger := logging.WithContext(batchCtx, r.logger)
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("tasks", len(tasks)),
	)

	emitter := NewProgressEmitter(r.sink, r.cfg.ProgressInterval)
	completed := 0

	executor := NewExecutor(r.cfg.Executor, r.services, r.logger)
	executor.SetProgress(func(task *Task) {
		r.notifyTask(task)
		emitter.Emit(r.snapshot(tasks, completed, task))
		if task.Stage.Terminal() {
			emitter.Flush()
		}
	})

	var cancelErr error
	for i, task := range tasks {
		err := executor.RunTask(batchCtx, task)
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			// Cancellation unwinds the whole batch; everything not yet
			// complete settles as cancelled with its best-known resume stage.
			r.cancelRemaining(tasks[i+1:])
			cancelErr = err
			break
		}
		if task.Stage == StageComplete {
			completed++
		}
	}

	final := r.finalSnapshot(tasks, completed)
	emitter.Emit(final)
	emitter.Flush()

	result := &BatchResult{
		BatchID:   batchID,
		Total:     len(tasks),
		Completed: completed,
		Tasks:     tasks,
		Failures:  BuildRetryEntries(tasks),
	}

	logger.Info("batch settled",
		logging.String(logging.FieldEventType, "batch_settled"),
		logging.Int("completed", completed),
		logging.Int("failures", len(result.Failures)),
		logging.Bool("cancelled", cancelErr != nil),
	)
	return result, cancelErr
}

func (r *Runner) cancelRemaining(tasks []*Task) {
	for _, task := range tasks {
		if task.Stage.Terminal() {
			continue
		}
		stopped := task.Stage
		if stopped == StageQueued {
			stopped = task.ResumeStage
		}
		task.Stage = StageCancelled
		task.ResumeStage = ResumeStageFor(stopped)
		r.notifyTask(task)
	}
}

func (r *Runner) notifyTask(task *Task) {
	if r.sink == nil {
		return
	}
	update := TaskUpdate{
		ID:         task.ID,
		Stage:      task.Stage,
		StageLabel: task.Stage.Label(),
		Percent:    int(task.Stage.fraction() * 100),
		Error:      task.ErrorMessage,
		Warning:    task.Warning,
	}
	r.sink.TaskUpdate(update)
}

// snapshot builds the batch-level progress view while current is in flight.
func (r *Runner) snapshot(tasks []*Task, completed int, current *Task) ProgressSnapshot {
	total := len(tasks)
	if current.Stage == StageComplete {
		completed++
	}
	progress := float64(completed)
	if !current.Stage.Terminal() {
		progress += current.Stage.fraction()
	}
	percent := 0
	if total > 0 {
		percent = int(progress * 100 / float64(total))
	}
	return ProgressSnapshot{
		Total:        total,
		Completed:    completed,
		CurrentLabel: current.DisplayLabel,
		Stage:        current.Stage,
		StageLabel:   current.Stage.Label(),
		Percent:      percent,
	}
}

func (r *Runner) finalSnapshot(tasks []*Task, completed int) ProgressSnapshot {
	total := len(tasks)
	stage := StageComplete
	label := ""
	for _, task := range tasks {
		if task.Stage == StageError {
			stage = StageError
			label = task.DisplayLabel
			break
		}
		if task.Stage == StageCancelled {
			stage = StageCancelled
			label = task.DisplayLabel
		}
	}
	percent := 100
	if total > 0 {
		percent = completed * 100 / total
	}
	if stage == StageComplete {
		percent = 100
	}
	return ProgressSnapshot{
		Total:        total,
		Completed:    completed,
		CurrentLabel: label,
		Stage:        stage,
		StageLabel:   stage.Label(),
		Percent:      percent,
	}
}
