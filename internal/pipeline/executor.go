package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"nestling/internal/logging"
	"nestling/internal/services"
	"nestling/internal/textutil"
)

// ConvertOptions tunes the local image transform.
type ConvertOptions struct {
	Quality      int
	MaxDimension int
}

// ConvertResult is the output of a successful conversion.
type ConvertResult struct {
	URI      string
	Bytes    int64
	Width    int
	Height   int
	FileName string
}

// Converter turns a picked-image reference into an upload-ready JPEG.
type Converter interface {
	Convert(ctx context.Context, sourceRef string, opts ConvertOptions) (ConvertResult, error)
}

// MintRequest asks the backend for an upload slot.
type MintRequest struct {
	Target   string
	BabyID   string
	AlbumID  string
	MimeType string
	Bytes    int64
	Filename string
}

// MintGrant is a one-time signed write URL plus the storage object key.
type MintGrant struct {
	UploadURL string
	ObjectKey string
}

// Minter obtains upload slots from the backend.
type Minter interface {
	Mint(ctx context.Context, req MintRequest) (MintGrant, error)
}

// BlobPutter transfers local bytes to a signed URL.
type BlobPutter interface {
	Put(ctx context.Context, uploadURL, localURI string) error
}

// FinalizeRequest commits an uploaded object as a media record.
type FinalizeRequest struct {
	BabyID    string
	AlbumID   string
	ObjectKey string
	Filename  string
	MimeType  string
	Bytes     int64
	Width     int
	Height    int
}

// FinalizeRecord is the committed server-side media record.
type FinalizeRecord struct {
	MediaID string
}

// Finalizer commits uploaded objects on the backend.
type Finalizer interface {
	Finalize(ctx context.Context, req FinalizeRequest) (FinalizeRecord, error)
}

// Refresher refreshes the cached album listing after a finalize.
type Refresher interface {
	RefreshAlbum(ctx context.Context, babyID, albumID string) error
}

// Services bundles the external collaborators the executor calls.
type Services struct {
	Converter Converter
	Minter    Minter
	Blob      BlobPutter
	Finalizer Finalizer
	Refresher Refresher
}

// ExecutorConfig carries the per-batch parameters of stage execution.
type ExecutorConfig struct {
	BabyID          string
	AlbumID         string
	Quality         int
	MaxDimension    int
	RefreshAttempts int
	RefreshBackoff  time.Duration
}

const mediaMimeType = "image/jpeg"

// Executor drives one task at a time through the stage sequence, calling the
// external services and recording per-task outcome on the task itself.
type Executor struct {
	cfg      ExecutorConfig
	services Services
	logger   *slog.Logger

	// progress is invoked after every stage transition; the runner wires it
	// to the progress emitter.
	progress func(*Task)
}

// NewExecutor constructs an executor over the given services.
func NewExecutor(cfg ExecutorConfig, svcs Services, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{cfg: cfg, services: svcs, logger: logger}
}

// SetProgress registers the stage-transition hook.
func (e *Executor) SetProgress(fn func(*Task)) {
	e.progress = fn
}

// RunTask advances a task from its resume stage to a terminal state. The
// returned error is non-nil only for cancellation (which the caller must not
// absorb) and for stage failures, which have already been recorded on the
// task; sibling tasks are unaffected either way.
func (e *Executor) RunTask(ctx context.Context, task *Task) error {
	start := task.ResumeStage
	if start == "" || start == StageQueued {
		start = StageConverting
	}

	entered := false
	for _, stage := range stageSequence {
		if stage == start {
			entered = true
		}
		if !entered {
			continue
		}

		// Cooperative cancellation check at every stage boundary.
		if err := ctx.Err(); err != nil {
			e.markCancelled(task, stage)
			return err
		}

		e.transition(ctx, task, stage)
		if err := e.runStage(ctx, task, stage); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				e.markCancelled(task, stage)
				return err
			}
			e.markFailed(ctx, task, stage, err)
			return err
		}
	}

	task.Stage = StageComplete
	task.ResumeStage = ""
	task.ErrorMessage = ""
	e.notify(task)
	return nil
}

func (e *Executor) runStage(ctx context.Context, task *Task, stage Stage) error {
	stageCtx := services.WithStage(services.WithTaskID(ctx, task.ID), string(stage))
	switch stage {
	case StageConverting:
		return e.runConvert(stageCtx, task)
	case StageMinting:
		return e.runMint(stageCtx, task)
	case StageUploading:
		return e.runUpload(stageCtx, task)
	case StageFinalizing:
		return e.runFinalize(stageCtx, task)
	default:
		return services.Wrap(services.ErrValidation, string(stage), "run stage", "unknown stage", nil)
	}
}

func (e *Executor) runConvert(ctx context.Context, task *Task) error {
	res, err := e.services.Converter.Convert(ctx, task.SourceRef, ConvertOptions{
		Quality:      e.cfg.Quality,
		MaxDimension: e.cfg.MaxDimension,
	})
	if err != nil {
		return services.Wrap(services.ErrConversion, string(StageConverting), "convert image", "", err)
	}

	task.Prepared = &Prepared{URI: res.URI, Bytes: res.Bytes, Width: res.Width, Height: res.Height}
	task.Bytes = res.Bytes
	task.Width = res.Width
	task.Height = res.Height
	if renamed := strings.TrimSpace(res.FileName); renamed != "" && renamed != task.FileName {
		task.FileName = textutil.SanitizeFileName(renamed)
		task.DisplayLabel = textutil.DisplayLabel(strings.TrimSuffix(task.FileName, ".jpg"))
	}
	return nil
}

func (e *Executor) runMint(ctx context.Context, task *Task) error {
	if task.Bytes <= 0 {
		return services.Wrap(services.ErrValidation, string(StageMinting), "check prepared bytes", "no bytes to upload", nil)
	}
	grant, err := e.services.Minter.Mint(ctx, MintRequest{
		Target:   "media",
		BabyID:   e.cfg.BabyID,
		AlbumID:  e.cfg.AlbumID,
		MimeType: mediaMimeType,
		Bytes:    task.Bytes,
		Filename: task.FileName,
	})
	if err != nil {
		return services.Wrap(services.ErrMint, string(StageMinting), "mint upload slot", "", err)
	}
	task.Minted = &Minted{UploadURL: grant.UploadURL, ObjectKey: grant.ObjectKey}
	return nil
}

func (e *Executor) runUpload(ctx context.Context, task *Task) error {
	if task.Minted == nil || strings.TrimSpace(task.Minted.UploadURL) == "" {
		return services.Wrap(services.ErrValidation, string(StageUploading), "check upload url", "no minted upload url", nil)
	}
	localURI := ""
	if task.Prepared != nil {
		localURI = task.Prepared.URI
	}
	if err := e.services.Blob.Put(ctx, task.Minted.UploadURL, localURI); err != nil {
		return services.Wrap(services.ErrUpload, string(StageUploading), "put bytes", "", err)
	}
	// The PUT is the longest call in the pipeline; observe cancellation
	// immediately after it completes rather than starting finalize work.
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (e *Executor) runFinalize(ctx context.Context, task *Task) error {
	if task.Minted == nil || strings.TrimSpace(task.Minted.ObjectKey) == "" {
		return services.Wrap(services.ErrValidation, string(StageFinalizing), "check object key", "no minted object key", nil)
	}
	record, err := e.services.Finalizer.Finalize(ctx, FinalizeRequest{
		BabyID:    e.cfg.BabyID,
		AlbumID:   e.cfg.AlbumID,
		ObjectKey: task.Minted.ObjectKey,
		Filename:  task.FileName,
		MimeType:  mediaMimeType,
		Bytes:     task.Bytes,
		Width:     task.Width,
		Height:    task.Height,
	})
	if err != nil {
		// The bytes are already durable at the provider; this failure means
		// the server-side commit is missing, not that data was lost.
		return services.Wrap(services.ErrFinalize, string(StageFinalizing), "commit media record", "", err)
	}

	logger := logging.WithContext(ctx, e.logger)
	logger.Info("media record committed",
		logging.String(logging.FieldEventType, "finalize_complete"),
		logging.String("media_id", record.MediaID),
		logging.String("object_key", task.Minted.ObjectKey),
	)

	e.refreshAlbum(ctx, task)
	return nil
}

// refreshAlbum retries the cached-list refresh a bounded number of times with
// a fixed backoff. Exhaustion is surfaced as a task warning, not a failure.
func (e *Executor) refreshAlbum(ctx context.Context, task *Task) {
	if e.services.Refresher == nil || e.cfg.RefreshAttempts <= 0 {
		return
	}
	logger := logging.WithContext(ctx, e.logger)
	var lastErr error
	for attempt := 1; attempt <= e.cfg.RefreshAttempts; attempt++ {
		lastErr = e.services.Refresher.RefreshAlbum(ctx, e.cfg.BabyID, e.cfg.AlbumID)
		if lastErr == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if attempt < e.cfg.RefreshAttempts {
			select {
			case <-time.After(e.cfg.RefreshBackoff):
			case <-ctx.Done():
				return
			}
		}
	}
	task.Warning = fmt.Sprintf("uploaded, but the album list may be out of date (refresh failed %d times)", e.cfg.RefreshAttempts)
	logger.Warn("album refresh exhausted",
		logging.String(logging.FieldEventType, "refresh_exhausted"),
		logging.Int("attempts", e.cfg.RefreshAttempts),
		logging.Error(lastErr),
	)
}

func (e *Executor) transition(ctx context.Context, task *Task, stage Stage) {
	task.Stage = stage
	logger := logging.WithContext(services.WithTaskID(ctx, task.ID), e.logger)
	logger.Debug("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String(logging.FieldStage, string(stage)),
		logging.String("file", task.FileName),
	)
	e.notify(task)
}

func (e *Executor) markFailed(ctx context.Context, task *Task, stage Stage, err error) {
	task.Stage = StageError
	task.ResumeStage = ResumeStageFor(stage)
	if errors.Is(err, services.ErrValidation) {
		// Carried state that fails its own precondition cannot be trusted;
		// the retry reconverts from the source.
		task.ResumeStage = StageConverting
		task.Prepared = nil
		task.Minted = nil
	}
	task.ErrorMessage = failureMessage(err)

	logger := logging.WithContext(services.WithTaskID(ctx, task.ID), e.logger)
	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldStage, string(stage)),
		logging.String("resume_stage", string(task.ResumeStage)),
		logging.Int("http_status", services.StatusCode(err)),
		logging.Error(err),
	)
	e.notify(task)
}

// markCancelled records cancellation observed at the given stage. Stages
// before it succeeded, so the resume mapping for that stage is the
// best-known re-entry point.
func (e *Executor) markCancelled(task *Task, stage Stage) {
	task.Stage = StageCancelled
	task.ResumeStage = ResumeStageFor(stage)
	e.notify(task)
}

func (e *Executor) notify(task *Task) {
	if e.progress != nil {
		e.progress(task)
	}
}

// failureMessage produces the sanitized user-facing text for a stage error.
func failureMessage(err error) string {
	if services.IsHEICOnWeb(err) {
		return "This photo is in HEIC format, which this browser cannot convert. Convert it to JPEG first, or upload from the mobile app."
	}
	return textutil.SanitizeMessage(err.Error())
}
