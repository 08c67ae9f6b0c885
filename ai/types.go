package ai

import (
	"errors"
	"fmt"
)

// ParseRequest is a document submitted to the parsing service.
type ParseRequest struct {
	// FileBytes is the raw document content.
	FileBytes []byte

	// Filename is the original name, used by the service for format hints.
	Filename string

	// ContentType is the MIME type of the upload.
	ContentType string
}

// ParseResult is the extracted output of a successful parse.
type ParseResult struct {
	// Text is the full extracted text.
	Text string

	// Metadata carries service-reported document properties
	// (page count, detected language, and so on).
	Metadata map[string]string
}

// PermanentError marks a failure that retrying cannot fix: malformed
// input, an unsupported content type, or insufficient extracted text.
type PermanentError struct {
	Reason string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent parse failure: %s", e.Reason)
}

// IsPermanent reports whether an error is a permanent input error.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
