// Package blobstore streams staged files to the provider's signed URLs.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"nestling/internal/convert"
	"nestling/internal/services"
)

const defaultHTTPTimeout = 5 * time.Minute

// Putter uploads local files to one-time signed write URLs. It implements
// pipeline.BlobPutter.
type Putter struct {
	http     *http.Client
	mimeType string
}

// Config tunes the uploader.
type Config struct {
	HTTPClient *http.Client
	// MimeType is sent as the Content-Type of every PUT. Defaults to
	// image/jpeg, the only format the pipeline stages.
	MimeType string
}

// New constructs a Putter.
func New(cfg Config) *Putter {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	mimeType := strings.TrimSpace(cfg.MimeType)
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return &Putter{http: client, mimeType: mimeType}
}

// Put streams the file at localURI to uploadURL. The file is not loaded into
// memory; the request body reads straight from disk.
func (p *Putter) Put(ctx context.Context, uploadURL, localURI string) error {
	if strings.TrimSpace(uploadURL) == "" {
		return errors.New("blobstore: upload url is empty")
	}
	path := convert.LocalPath(localURI)
	if strings.TrimSpace(path) == "" {
		return errors.New("blobstore: local file is empty")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("blobstore: open staged file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("blobstore: stat staged file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, f)
	if err != nil {
		return fmt.Errorf("blobstore: build upload request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", p.mimeType)

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("blobstore: upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &services.StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return nil
}
