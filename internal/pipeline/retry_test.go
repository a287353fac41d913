package pipeline_test

import (
	"testing"

	"nestling/internal/pipeline"
)

func TestResumeStageFor(t *testing.T) {
	cases := []struct {
		stopped pipeline.Stage
		want    pipeline.Stage
	}{
		{pipeline.StageConverting, pipeline.StageConverting},
		{pipeline.StageMinting, pipeline.StageMinting},
		{pipeline.StageUploading, pipeline.StageMinting},
		{pipeline.StageFinalizing, pipeline.StageFinalizing},
		{pipeline.StageQueued, pipeline.StageConverting},
	}
	for _, tc := range cases {
		if got := pipeline.ResumeStageFor(tc.stopped); got != tc.want {
			t.Errorf("ResumeStageFor(%q) = %q, want %q", tc.stopped, got, tc.want)
		}
	}
}

func TestBuildRetryEntriesSkipsCompleted(t *testing.T) {
	tasks := []*pipeline.Task{
		{ID: "a", Stage: pipeline.StageComplete},
		{ID: "b", Stage: pipeline.StageError, ResumeStage: pipeline.StageConverting, ErrorMessage: "boom"},
		{ID: "c", Stage: pipeline.StageCancelled, ResumeStage: pipeline.StageConverting},
	}
	entries := pipeline.BuildRetryEntries(tasks)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].TaskID != "b" || entries[0].Cancelled {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].TaskID != "c" || !entries[1].Cancelled {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestBuildRetryEntriesCarryRules(t *testing.T) {
	prepared := &pipeline.Prepared{URI: "file:///staging/a.jpg", Bytes: 10}
	minted := &pipeline.Minted{UploadURL: "https://blob/put", ObjectKey: "media/a"}

	finalizing := pipeline.BuildRetryEntries([]*pipeline.Task{{
		ID:          "a",
		Stage:       pipeline.StageError,
		ResumeStage: pipeline.StageFinalizing,
		Prepared:    prepared,
		Minted:      minted,
	}})[0]
	if finalizing.Prepared == nil || finalizing.Minted == nil {
		t.Fatal("finalizing entry must carry prepared and minted state")
	}

	minting := pipeline.BuildRetryEntries([]*pipeline.Task{{
		ID:          "a",
		Stage:       pipeline.StageError,
		ResumeStage: pipeline.StageMinting,
		Prepared:    prepared,
		Minted:      minted,
	}})[0]
	if minting.Prepared == nil {
		t.Fatal("minting entry must carry prepared output")
	}
	if minting.Minted != nil {
		t.Fatal("minting entry must not carry a stale grant")
	}

	converting := pipeline.BuildRetryEntries([]*pipeline.Task{{
		ID:          "a",
		Stage:       pipeline.StageCancelled,
		ResumeStage: pipeline.StageConverting,
		Prepared:    prepared,
		Minted:      minted,
	}})[0]
	if converting.Prepared != nil || converting.Minted != nil {
		t.Fatal("converting entry must carry no derived state")
	}
}

func TestRetryEntryRoundTrip(t *testing.T) {
	entry := pipeline.RetryEntry{
		TaskID:       "img_0001",
		SourceRef:    "/photos/IMG_0001.HEIC",
		FileName:     "IMG_0001.jpg",
		DisplayLabel: "IMG_0001",
		ResumeStage:  pipeline.StageMinting,
		Prepared:     &pipeline.Prepared{URI: "file:///staging/IMG_0001.jpg", Bytes: 42},
		Bytes:        42,
	}
	task := pipeline.Normalize([]pipeline.RawItem{entry.RawItem()})[0]
	if task.ID != "img_0001" {
		t.Fatalf("round trip lost task id: %q", task.ID)
	}
	if task.ResumeStage != pipeline.StageMinting {
		t.Fatalf("round trip lost resume stage: %q", task.ResumeStage)
	}
	if task.Prepared == nil || task.Prepared.URI != entry.Prepared.URI {
		t.Fatal("round trip lost prepared output")
	}
	if task.DisplayLabel != "IMG_0001" {
		t.Fatalf("round trip lost label: %q", task.DisplayLabel)
	}
}
