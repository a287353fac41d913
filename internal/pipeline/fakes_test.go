package pipeline_test

import (
	"context"
	"sync"
	"time"

	"nestling/internal/pipeline"
)

// fakeBackend implements every pipeline service interface with scriptable
// failures and per-call counters.
type fakeBackend struct {
	mu            sync.Mutex
	convertCalls  int
	mintCalls     int
	putCalls      int
	finalizeCalls int
	refreshCalls  int

	failConvert  map[string]error // keyed by source ref
	failMint     map[string]error // keyed by filename
	failPut      map[string]error // keyed by upload url
	failFinalize map[string]error // keyed by object key
	refreshErr   error

	onConvert func(calls int)
	onPut     func(ctx context.Context) error
}

func (f *fakeBackend) services() pipeline.Services {
	return pipeline.Services{
		Converter: f,
		Minter:    f,
		Blob:      f,
		Finalizer: f,
		Refresher: f,
	}
}

func (f *fakeBackend) Convert(ctx context.Context, sourceRef string, opts pipeline.ConvertOptions) (pipeline.ConvertResult, error) {
	f.mu.Lock()
	f.convertCalls++
	calls := f.convertCalls
	hook := f.onConvert
	err := f.failConvert[sourceRef]
	f.mu.Unlock()

	if hook != nil {
		hook(calls)
	}
	if cerr := ctx.Err(); cerr != nil {
		return pipeline.ConvertResult{}, cerr
	}
	if err != nil {
		return pipeline.ConvertResult{}, err
	}
	return pipeline.ConvertResult{
		URI:    "file:///staging/" + sourceRef,
		Bytes:  1000,
		Width:  1200,
		Height: 900,
	}, nil
}

func (f *fakeBackend) Mint(ctx context.Context, req pipeline.MintRequest) (pipeline.MintGrant, error) {
	f.mu.Lock()
	f.mintCalls++
	err := f.failMint[req.Filename]
	f.mu.Unlock()

	if err != nil {
		return pipeline.MintGrant{}, err
	}
	return pipeline.MintGrant{
		UploadURL: "https://blob.example/put/" + req.Filename,
		ObjectKey: "media/" + req.Filename,
	}, nil
}

func (f *fakeBackend) Put(ctx context.Context, uploadURL, localURI string) error {
	f.mu.Lock()
	f.putCalls++
	err := f.failPut[uploadURL]
	hook := f.onPut
	f.mu.Unlock()

	if hook != nil {
		if herr := hook(ctx); herr != nil {
			return herr
		}
	}
	return err
}

func (f *fakeBackend) Finalize(ctx context.Context, req pipeline.FinalizeRequest) (pipeline.FinalizeRecord, error) {
	f.mu.Lock()
	f.finalizeCalls++
	err := f.failFinalize[req.ObjectKey]
	f.mu.Unlock()

	if err != nil {
		return pipeline.FinalizeRecord{}, err
	}
	return pipeline.FinalizeRecord{MediaID: "media-" + req.ObjectKey}, nil
}

func (f *fakeBackend) RefreshAlbum(ctx context.Context, babyID, albumID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	return f.refreshErr
}

func (f *fakeBackend) counts() (convert, mint, put, finalize int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.convertCalls, f.mintCalls, f.putCalls, f.finalizeCalls
}

// recordSink captures every delivered batch snapshot and task update.
type recordSink struct {
	mu      sync.Mutex
	batches []pipeline.ProgressSnapshot
	tasks   []pipeline.TaskUpdate
}

func (s *recordSink) BatchUpdate(snap pipeline.ProgressSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, snap)
}

func (s *recordSink) TaskUpdate(update pipeline.TaskUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, update)
}

func (s *recordSink) lastBatch() (pipeline.ProgressSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		return pipeline.ProgressSnapshot{}, false
	}
	return s.batches[len(s.batches)-1], true
}

func (s *recordSink) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func testRunnerConfig() pipeline.RunnerConfig {
	return pipeline.RunnerConfig{
		Executor: pipeline.ExecutorConfig{
			BabyID:       "baby-1",
			AlbumID:      "album-1",
			Quality:      85,
			MaxDimension: 2048,
		},
		ProgressInterval: time.Millisecond,
	}
}
