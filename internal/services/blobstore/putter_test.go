package blobstore_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"nestling/internal/services"
	"nestling/internal/services/blobstore"
)

func stageFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staged.jpg")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPutStreamsFile(t *testing.T) {
	var gotBody string
	var gotMethod, gotContentType string
	var gotLength int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotLength = r.ContentLength
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	putter := blobstore.New(blobstore.Config{})
	path := stageFile(t, "jpeg bytes here")
	if err := putter.Put(context.Background(), server.URL, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Fatalf("expected PUT, got %s", gotMethod)
	}
	if gotBody != "jpeg bytes here" {
		t.Fatalf("unexpected body: %q", gotBody)
	}
	if gotContentType != "image/jpeg" {
		t.Fatalf("unexpected content type: %q", gotContentType)
	}
	if gotLength != int64(len("jpeg bytes here")) {
		t.Fatalf("unexpected content length: %d", gotLength)
	}
}

func TestPutRejectedBySignedURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "signature expired", http.StatusForbidden)
	}))
	defer server.Close()

	putter := blobstore.New(blobstore.Config{})
	path := stageFile(t, "bytes")
	err := putter.Put(context.Background(), server.URL, path)
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := services.StatusCode(err); got != http.StatusForbidden {
		t.Fatalf("expected status 403 in chain, got %d (%v)", got, err)
	}
}

func TestPutMissingFile(t *testing.T) {
	putter := blobstore.New(blobstore.Config{})
	if err := putter.Put(context.Background(), "https://blob.example/put", "/nonexistent/staged.jpg"); err == nil {
		t.Fatal("expected an error for a missing staged file")
	}
}

func TestPutEmptyURL(t *testing.T) {
	putter := blobstore.New(blobstore.Config{})
	if err := putter.Put(context.Background(), "  ", stageFile(t, "x")); err == nil {
		t.Fatal("expected an error for an empty upload url")
	}
}
