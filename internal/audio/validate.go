// Package audio holds the upload validator and the microphone recorder.
package audio

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MaxBytes is the hard cap on accepted audio payloads.
const MaxBytes = 100 << 20 // 100 MiB

// allowedMIMEs maps the accepted MIME types to their file extensions.
var allowedMIMEs = map[string]string{
	"audio/mp3": ".mp3",
	"audio/wav": ".wav",
	"audio/m4a": ".m4a",
	"audio/ogg": ".ogg",
}

// ValidationError rejects an audio payload with a human-readable reason.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Validate accepts an audio payload only if it is within the size cap and
// its declared MIME type is on the allow-list. It performs no I/O.
func Validate(size int64, mimeType string) error {
	if size > MaxBytes {
		return &ValidationError{Reason: "File size exceeds 100MB limit"}
	}
	if _, ok := allowedMIMEs[strings.ToLower(strings.TrimSpace(mimeType))]; !ok {
		return &ValidationError{Reason: "Unsupported audio format"}
	}
	return nil
}

// ExtensionForMIME returns the canonical file extension for an accepted MIME
// type, or an error for types outside the allow-list.
func ExtensionForMIME(mimeType string) (string, error) {
	ext, ok := allowedMIMEs[strings.ToLower(strings.TrimSpace(mimeType))]
	if !ok {
		return "", fmt.Errorf("unsupported audio mime type: %s", mimeType)
	}
	return ext, nil
}

// MIMEForFilename maps a stored filename back to its MIME type, for the
// worker re-reading an uploaded object.
func MIMEForFilename(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	for mimeType, e := range allowedMIMEs {
		if e == ext {
			return mimeType, true
		}
	}
	return "", false
}
