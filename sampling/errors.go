package sampling

import (
	"errors"
	"fmt"
)

// Kind classifies terminal loop failures.
//
// Tool execution failures are deliberately absent: a failing tool is fed
// back into the conversation as an error-flagged result for the model to
// react to, never surfaced through RunError.
type Kind string

const (
	// KindProviderFailure: the completion call failed, or the provider
	// returned a result the protocol forbids.
	KindProviderFailure Kind = "provider_failure"
	// KindUnknownTool: the model requested a tool outside the configured
	// set. A contract violation by the provider.
	KindUnknownTool Kind = "unknown_tool"
	// KindTurnLimit: the run hit its turn budget while the model still
	// wanted tool calls.
	KindTurnLimit Kind = "turn_limit"
	// KindCancelled: the caller cancelled the run.
	KindCancelled Kind = "cancelled"
)

// RunError is the terminal failure of a loop run.
type RunError struct {
	Kind  Kind
	Cause error
}

func (e *RunError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("sampling run failed (%s): %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("sampling run failed (%s)", e.Kind)
}

func (e *RunError) Unwrap() error {
	return e.Cause
}

// KindOf returns the failure kind of err, or "" if err is not a RunError.
func KindOf(err error) Kind {
	var re *RunError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
