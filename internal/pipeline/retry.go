package pipeline

// RetryEntry is the minimal resumable descriptor of a failed or cancelled
// task. It carries only the state legal for its resume stage: minted data
// only when resuming at finalizing, prepared output only when resuming at
// minting or finalizing. That restriction is what prevents duplicate
// remote-storage writes when the entry is resubmitted.
type RetryEntry struct {
	TaskID       string    `json:"task_id"`
	SourceRef    string    `json:"source_ref"`
	FileName     string    `json:"file_name"`
	DisplayLabel string    `json:"display_label"`
	ResumeStage  Stage     `json:"resume_stage"`
	Cancelled    bool      `json:"cancelled,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Prepared     *Prepared `json:"prepared,omitempty"`
	Minted       *Minted   `json:"minted,omitempty"`
	Bytes        int64     `json:"bytes,omitempty"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
}

// ResumeStageFor maps the stage where a task stopped to the stage a retry
// re-enters. Upload and mint failures re-mint defensively rather than trust
// a possibly expired signed URL; only a finalize failure resumes at
// finalizing, because by then the bytes are already durable.
func ResumeStageFor(stopped Stage) Stage {
	switch stopped {
	case StageFinalizing:
		return StageFinalizing
	case StageUploading, StageMinting:
		return StageMinting
	default:
		return StageConverting
	}
}

// BuildRetryEntries converts the failed and cancelled tasks of a settled
// batch into retry entries, applying the carry rules per resume stage.
func BuildRetryEntries(tasks []*Task) []RetryEntry {
	var entries []RetryEntry
	for _, task := range tasks {
		switch task.Stage {
		case StageError, StageCancelled:
		default:
			continue
		}
		entries = append(entries, buildEntry(task))
	}
	return entries
}

func buildEntry(task *Task) RetryEntry {
	resume := task.ResumeStage
	if resume == "" {
		resume = StageConverting
	}
	entry := RetryEntry{
		TaskID:       task.ID,
		SourceRef:    task.SourceRef,
		FileName:     task.FileName,
		DisplayLabel: task.DisplayLabel,
		ResumeStage:  resume,
		Cancelled:    task.Stage == StageCancelled,
		ErrorMessage: task.ErrorMessage,
		Bytes:        task.Bytes,
		Width:        task.Width,
		Height:       task.Height,
	}
	switch resume {
	case StageFinalizing:
		entry.Prepared = task.Prepared
		entry.Minted = task.Minted
	case StageMinting:
		entry.Prepared = task.Prepared
	}
	return entry
}

// RawItem converts a retry entry back into pipeline input for resubmission.
func (e RetryEntry) RawItem() RawItem {
	return RawItem{
		TaskID:      e.TaskID,
		SourceRef:   e.SourceRef,
		Label:       e.DisplayLabel,
		ResumeStage: e.ResumeStage,
		Prepared:    e.Prepared,
		Minted:      e.Minted,
		Bytes:       e.Bytes,
		Width:       e.Width,
		Height:      e.Height,
	}
}
