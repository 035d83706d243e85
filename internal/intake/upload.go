package intake

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxUploadBytes bounds the size of one uploaded image.
const DefaultMaxUploadBytes int64 = 10 << 20

// Accepted image encodings, by detected MIME type
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// UploadErrorKind classifies a rejected upload.
type UploadErrorKind string

// Upload rejection kinds
const (
	UploadMissing     UploadErrorKind = "missing"
	UploadTooLarge    UploadErrorKind = "too_large"
	UploadUnsupported UploadErrorKind = "unsupported_type"
	UploadUndecodable UploadErrorKind = "undecodable"
)

// UploadError rejects a request before anything is persisted.
type UploadError struct {
	Kind   UploadErrorKind
	Reason string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("invalid upload (%s): %s", e.Kind, e.Reason)
}

// ClassificationError reports that a classifier could not be reached or
// answered with an error.
type ClassificationError struct {
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed: %v", e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// CheckUpload sniffs the content type of data and enforces the byte limit.
// It returns the detected MIME type. The declared type of the upload is
// ignored.
func CheckUpload(data []byte, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if len(data) == 0 {
		return "", &UploadError{Kind: UploadMissing, Reason: "image is empty"}
	}
	if int64(len(data)) > maxBytes {
		return "", &UploadError{
			Kind:   UploadTooLarge,
			Reason: fmt.Sprintf("image is %d bytes, limit is %d", len(data), maxBytes),
		}
	}

	mt := mimetype.Detect(data)
	if !allowedTypes[mt.String()] {
		return "", &UploadError{
			Kind:   UploadUnsupported,
			Reason: fmt.Sprintf("unsupported image type %s, expected jpeg, png or webp", mt.String()),
		}
	}
	return mt.String(), nil
}
