package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"nestling/internal/textutil"
)

// RawItem describes a picked image entering the pipeline, either fresh from
// the picker or reconstructed from a retry entry. A non-empty ResumeStage
// plus carried fields distinguishes a retry from a fresh upload.
type RawItem struct {
	// TaskID, when set, pins the task to an existing identity instead of
	// deriving one; retry entries use it so a resubmitted task settles under
	// the same key it was stored with.
	TaskID      string
	SourceRef   string
	Label       string
	ResumeStage Stage
	Prepared    *Prepared
	Minted      *Minted
	Bytes       int64
	Width       int
	Height      int
}

// Normalize turns raw picked items into canonical tasks: stable unique IDs,
// sanitized filenames, display labels, and a validated resume stage. It is a
// pure transform with no side effects.
func Normalize(items []RawItem) []*Task {
	tasks := make([]*Task, 0, len(items))
	seen := make(map[string]int, len(items))
	now := time.Now().UnixMilli()

	for i, item := range items {
		id := strings.TrimSpace(item.TaskID)
		if id == "" {
			id = deriveID(item.SourceRef, now, i)
		}
		if n, ok := seen[id]; ok {
			seen[id] = n + 1
			id = fmt.Sprintf("%s-%d", id, n+1)
		}
		seen[id] = 0

		fileName := textutil.SanitizeFileName(item.SourceRef)
		label := strings.TrimSpace(item.Label)
		if label == "" {
			label = strings.TrimSuffix(fileName, filepath.Ext(fileName))
		}
		if label == "" || label == "photo" {
			label = fmt.Sprintf("photo-%d", i+1)
		}

		task := &Task{
			ID:           id,
			SourceRef:    item.SourceRef,
			FileName:     fileName,
			DisplayLabel: textutil.DisplayLabel(label),
			Stage:        StageQueued,
			Bytes:        item.Bytes,
			Width:        item.Width,
			Height:       item.Height,
			ResumeStage:  normalizeResume(item),
		}

		// Carried fields are only legal for the resume stage that skips the
		// remote call producing them; anything else is dropped so a retry
		// cannot trust stale state.
		switch task.ResumeStage {
		case StageFinalizing:
			task.Prepared = item.Prepared
			task.Minted = item.Minted
		case StageMinting:
			task.Prepared = item.Prepared
		}
		if task.Prepared != nil && task.Bytes == 0 {
			task.Bytes = task.Prepared.Bytes
		}
		if task.Prepared != nil && task.Width == 0 {
			task.Width = task.Prepared.Width
			task.Height = task.Prepared.Height
		}

		tasks = append(tasks, task)
	}
	return tasks
}

func deriveID(sourceRef string, now int64, index int) string {
	base := strings.TrimSpace(filepath.Base(sourceRef))
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-' || r == '_':
			b.WriteRune(r)
		}
	}
	if id := b.String(); id != "" {
		return id
	}
	return fmt.Sprintf("%d-%d", now, index)
}

// normalizeResume validates a carried resume stage against the fields that
// must accompany it, falling back toward converting when state is missing.
func normalizeResume(item RawItem) Stage {
	stage := item.ResumeStage
	switch stage {
	case StageFinalizing:
		if item.Minted == nil || item.Minted.ObjectKey == "" {
			stage = StageMinting
		}
	case StageMinting, StageUploading:
		stage = StageMinting
	default:
		return StageConverting
	}
	if stage == StageMinting && (item.Prepared == nil || item.Prepared.URI == "") {
		return StageConverting
	}
	if stage == StageFinalizing && (item.Prepared == nil || item.Prepared.URI == "") {
		// Finalize only needs the object key and metadata; prepared output is
		// optional at this point since the bytes are already durable.
		return StageFinalizing
	}
	return stage
}
