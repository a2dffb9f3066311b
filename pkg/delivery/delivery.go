// Package delivery moves time-capsule documents between the application and
// the user: saving an export somewhere and reading an import back.
package delivery

import (
	"context"
	"errors"
)

// Outcome is the result of a delivery attempt that did not fail.
type Outcome int

const (
	// OutcomeDelivered means the text reached its destination.
	OutcomeDelivered Outcome = iota
	// OutcomeCancelled means the user dismissed the save interaction. Nothing was written.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Acquire failures. Neither has side effects on the desk.
var (
	ErrNoFileSelected = errors.New("no file selected")
	ErrReadFailed     = errors.New("read failed")
)

// Deliverer hands generated text to the user under a suggested file name.
type Deliverer interface {
	DeliverText(ctx context.Context, content, suggestedName string) (Outcome, error)
}

// Acquirer obtains the full text of a user-selected source.
type Acquirer interface {
	AcquireText(ctx context.Context) (string, error)
}

// Capabilities describes what the running environment offers.
type Capabilities struct {
	// NativeDialogs is set when the user can pick a destination path.
	NativeDialogs bool
}

// Select returns native when the environment can prompt for a location,
// download otherwise.
func Select(caps Capabilities, native, download Deliverer) Deliverer {
	if caps.NativeDialogs && native != nil {
		return native
	}
	return download
}
