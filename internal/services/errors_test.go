package services_test

import (
	"errors"
	"strings"
	"testing"

	"nestling/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("boom")
	err := services.Wrap(services.ErrMint, "minting", "request upload slot", "backend rejected request", cause)
	if !errors.Is(err, services.ErrMint) {
		t.Fatalf("expected ErrMint marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "minting: request upload slot") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient fallback, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestStatusCode(t *testing.T) {
	inner := &services.StatusError{Status: 503, Body: "unavailable"}
	err := services.Wrap(services.ErrUpload, "uploading", "put bytes", "", inner)
	if got := services.StatusCode(err); got != 503 {
		t.Fatalf("expected 503, got %d", got)
	}
	if services.StatusCode(errors.New("plain")) != 0 {
		t.Fatal("expected 0 for error without status")
	}
}

func TestIsHEICOnWeb(t *testing.T) {
	heic := &services.ConversionError{IsHEIC: true, Platform: "web", SourceURI: "IMG_0001.heic"}
	wrapped := services.Wrap(services.ErrConversion, "converting", "decode image", "", heic)
	if !services.IsHEICOnWeb(wrapped) {
		t.Fatal("expected HEIC-on-web detection through wrap chain")
	}

	native := &services.ConversionError{IsHEIC: true, Platform: "native"}
	if services.IsHEICOnWeb(native) {
		t.Fatal("native platform should be retryable")
	}
	jpeg := &services.ConversionError{IsHEIC: false, Platform: "web"}
	if services.IsHEICOnWeb(jpeg) {
		t.Fatal("non-HEIC conversion failure should not be flagged")
	}
}
