// Package nest wraps the photo backend's REST API: minting upload slots,
// committing media records, and refreshing cached album listings.
package nest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nestling/internal/pipeline"
	"nestling/internal/services"
)

const (
	defaultBaseURL     = "https://api.nestling.app/v1"
	defaultHTTPTimeout = 45 * time.Second
)

// Config describes the backend client configuration.
type Config struct {
	BaseURL    string
	APIToken   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client talks to the photo backend. It implements pipeline.Minter,
// pipeline.Finalizer, and pipeline.Refresher.
type Client struct {
	token   string
	baseURL *url.URL
	http    *http.Client
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	token := strings.TrimSpace(cfg.APIToken)
	if token == "" {
		return nil, errors.New("nest: api token is required")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("nest: parse base url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{token: token, baseURL: baseURL, http: client}, nil
}

type mintPayload struct {
	Target   string `json:"target"`
	AlbumID  string `json:"album_id,omitempty"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Bytes    int64  `json:"bytes"`
}

type mintResponse struct {
	UploadURL string `json:"upload_url"`
	ObjectKey string `json:"object_key"`
}

// Mint requests a one-time signed upload URL for a pending media object.
func (c *Client) Mint(ctx context.Context, req pipeline.MintRequest) (pipeline.MintGrant, error) {
	if c == nil {
		return pipeline.MintGrant{}, errors.New("nest: client is nil")
	}
	endpoint := c.baseURL.JoinPath("babies", req.BabyID, "media", "mint")
	payload := mintPayload{
		Target:   req.Target,
		AlbumID:  req.AlbumID,
		Filename: req.Filename,
		MimeType: req.MimeType,
		Bytes:    req.Bytes,
	}

	var out mintResponse
	if err := c.postJSON(ctx, endpoint, payload, &out); err != nil {
		return pipeline.MintGrant{}, fmt.Errorf("nest: mint upload slot: %w", err)
	}
	if out.UploadURL == "" || out.ObjectKey == "" {
		return pipeline.MintGrant{}, errors.New("nest: mint response missing upload url or object key")
	}
	return pipeline.MintGrant{UploadURL: out.UploadURL, ObjectKey: out.ObjectKey}, nil
}

type finalizePayload struct {
	AlbumID   string `json:"album_id,omitempty"`
	ObjectKey string `json:"object_key"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	Bytes     int64  `json:"bytes"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

type finalizeResponse struct {
	MediaID string `json:"media_id"`
}

// Finalize commits an uploaded object as a media record on the backend.
func (c *Client) Finalize(ctx context.Context, req pipeline.FinalizeRequest) (pipeline.FinalizeRecord, error) {
	if c == nil {
		return pipeline.FinalizeRecord{}, errors.New("nest: client is nil")
	}
	endpoint := c.baseURL.JoinPath("babies", req.BabyID, "media")
	payload := finalizePayload{
		AlbumID:   req.AlbumID,
		ObjectKey: req.ObjectKey,
		Filename:  req.Filename,
		MimeType:  req.MimeType,
		Bytes:     req.Bytes,
		Width:     req.Width,
		Height:    req.Height,
	}

	var out finalizeResponse
	if err := c.postJSON(ctx, endpoint, payload, &out); err != nil {
		return pipeline.FinalizeRecord{}, fmt.Errorf("nest: commit media record: %w", err)
	}
	if out.MediaID == "" {
		return pipeline.FinalizeRecord{}, errors.New("nest: finalize response missing media id")
	}
	return pipeline.FinalizeRecord{MediaID: out.MediaID}, nil
}

// RefreshAlbum asks the backend to rebuild the cached album listing.
func (c *Client) RefreshAlbum(ctx context.Context, babyID, albumID string) error {
	if c == nil {
		return errors.New("nest: client is nil")
	}
	endpoint := c.baseURL.JoinPath("babies", babyID, "albums", albumID, "refresh")
	if err := c.postJSON(ctx, endpoint, struct{}{}, nil); err != nil {
		return fmt.Errorf("nest: refresh album: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, endpoint *url.URL, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &services.StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
