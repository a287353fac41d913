package pipeline

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stage represents the lifecycle of an upload task.
type Stage string

const (
	StageQueued     Stage = "queued"
	StageConverting Stage = "converting"
	StageMinting    Stage = "minting"
	StageUploading  Stage = "uploading"
	StageFinalizing Stage = "finalizing"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
	StageCancelled  Stage = "cancelled"
)

// stageSequence is the forward order a task moves through. Resume may only
// re-enter at the stage after the last successfully completed one.
var stageSequence = []Stage{
	StageConverting,
	StageMinting,
	StageUploading,
	StageFinalizing,
}

var stageSet = func() map[Stage]struct{} {
	set := make(map[Stage]struct{}, len(stageSequence)+4)
	for _, s := range stageSequence {
		set[s] = struct{}{}
	}
	for _, s := range []Stage{StageQueued, StageComplete, StageError, StageCancelled} {
		set[s] = struct{}{}
	}
	return set
}()

var labelCaser = cases.Title(language.English)

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stageSet[normalized]
	return normalized, ok
}

// Terminal reports whether a stage is a batch-settling terminal state.
func (s Stage) Terminal() bool {
	switch s {
	case StageComplete, StageError, StageCancelled:
		return true
	default:
		return false
	}
}

// Label returns the human-readable form used in progress UI.
func (s Stage) Label() string {
	return labelCaser.String(string(s))
}

// fraction is the share of a single task's progress attributed to reaching
// the given stage, used for smooth batch percentages.
func (s Stage) fraction() float64 {
	switch s {
	case StageConverting:
		return 0.10
	case StageMinting:
		return 0.40
	case StageUploading:
		return 0.55
	case StageFinalizing:
		return 0.85
	case StageComplete:
		return 1
	default:
		return 0
	}
}

// Prepared captures the output of a successful conversion.
type Prepared struct {
	URI    string `json:"uri"`
	Bytes  int64  `json:"bytes"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Minted captures a granted upload slot: a signed write URL plus the storage
// object key the finalize step commits.
type Minted struct {
	UploadURL string `json:"upload_url"`
	ObjectKey string `json:"object_key"`
}

// Task is one photo moving through the pipeline. It is created by Normalize,
// mutated in place by the executor, and discarded once the batch settles;
// callers persist only retry entries and the terminal progress snapshot.
type Task struct {
	ID           string
	SourceRef    string
	FileName     string
	DisplayLabel string
	Stage        Stage

	Prepared *Prepared
	Minted   *Minted

	Bytes  int64
	Width  int
	Height int

	// ResumeStage is the stage the task (re-)enters when executed. The
	// executor updates it on failure so a retry skips completed stages.
	ResumeStage Stage

	// ErrorMessage is the sanitized failure text, empty unless Stage is error.
	ErrorMessage string
	// Warning carries non-fatal trouble, such as an exhausted post-finalize
	// album refresh.
	Warning string
}

// ProgressSnapshot is the throttled batch-level progress view. Snapshots are
// complete values; consumers only ever read them, never mutate shared state.
type ProgressSnapshot struct {
	Total        int
	Completed    int
	CurrentLabel string
	Stage        Stage
	StageLabel   string
	Percent      int
}

// TaskUpdate is the per-task progress record delivered on stage transitions.
type TaskUpdate struct {
	ID         string
	Stage      Stage
	StageLabel string
	Percent    int
	Error      string
	Warning    string
}

// ProgressSink receives pipeline progress. Implementations are purely
// observational; the pipeline consumes no return values.
type ProgressSink interface {
	BatchUpdate(ProgressSnapshot)
	TaskUpdate(TaskUpdate)
}

// BatchResult reports a settled batch.
type BatchResult struct {
	BatchID   string
	Total     int
	Completed int
	Tasks     []*Task
	Failures  []RetryEntry
}
