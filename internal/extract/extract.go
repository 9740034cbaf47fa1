// Package extract turns stored document bytes into model-ready text.
//
// Only text-native formats are supported: anything under text/, JSON,
// and XML. Binary document formats (PDF, Office) are rejected with an
// *Error, which the task pipeline treats as a task failure. Uploads are
// produced by an out-of-band path, so rejection here is the contract
// for documents this service cannot read, not a missing feature of the
// upload flow.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"
)

// Error describes a failed extraction. The task that needed the text
// fails with this error's message.
type Error struct {
	MIMEType string
	Reason   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("cannot extract text from %q: %s", e.MIMEType, e.Reason)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extractor converts document bytes to text based on the stored mime
// type.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the document's text content. The mime type may carry
// parameters (e.g. "text/plain; charset=utf-8").
func (x *Extractor) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	mediaType := normalizeMediaType(mimeType)
	if !supported(mediaType) {
		return "", &Error{MIMEType: mimeType, Reason: "unsupported document format"}
	}

	if len(data) == 0 {
		return "", &Error{MIMEType: mimeType, Reason: "document is empty"}
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", &Error{MIMEType: mimeType, Reason: "content is not valid UTF-8"}
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", &Error{MIMEType: mimeType, Reason: "document contains no text"}
	}
	return text, nil
}

func normalizeMediaType(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return mediaType
}

func supported(mediaType string) bool {
	if strings.HasPrefix(mediaType, "text/") {
		return true
	}
	switch mediaType {
	case "application/json", "application/xml", "application/x-ndjson":
		return true
	}
	return false
}
