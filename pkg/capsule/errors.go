package capsule

import (
	"errors"
	"fmt"
)

// Decode failures. Match them with errors.Is.
var (
	// ErrPayloadNotFound means the document carries no export payload marker.
	ErrPayloadNotFound = errors.New("export payload not found")
	// ErrPayloadMalformed means the payload is not valid JSON.
	ErrPayloadMalformed = errors.New("export payload malformed")
	// ErrPayloadInvalid means the payload parsed but is not an export bundle.
	ErrPayloadInvalid = errors.New("export payload invalid")
)

// PayloadError describes why a document could not be decoded.
type PayloadError struct {
	Kind   error  // one of the ErrPayload* sentinels
	Field  string // violated field path, for ErrPayloadInvalid
	Reason string
	Err    error // underlying parse error, if any
}

func (e *PayloadError) Error() string {
	msg := e.Kind.Error()
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Field)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *PayloadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
