package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation = errors.New("validation error")
	ErrConversion = errors.New("conversion error")
	ErrMint       = errors.New("mint error")
	ErrUpload     = errors.New("upload error")
	ErrFinalize   = errors.New("finalize error")
	ErrTransient  = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// StatusError carries the HTTP status of a failed remote call. Mint, upload,
// and finalize clients wrap it under their respective sentinel markers.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("http status %d", e.Status)
	}
	return fmt.Sprintf("http status %d: %s", e.Status, e.Body)
}

// StatusCode extracts the HTTP status from an error chain. Returns 0 when the
// chain carries no StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// ConversionError describes a failed local image transform. IsHEIC marks
// inputs in Apple's HEIC/HEIF container, which has no decoder on the web
// platform; those failures are not retryable in place.
type ConversionError struct {
	IsHEIC    bool
	Platform  string
	SourceURI string
	Err       error
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("convert %s: %v", e.SourceURI, e.Err)
	}
	return fmt.Sprintf("convert %s failed", e.SourceURI)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// IsHEICOnWeb reports whether the error is a HEIC conversion failure on the
// web platform, where no decoder is available and retrying cannot help.
func IsHEICOnWeb(err error) bool {
	var ce *ConversionError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.IsHEIC && strings.EqualFold(ce.Platform, "web")
}
