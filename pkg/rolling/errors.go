package rolling

import (
	"fmt"
	"strings"
)

type PreconditionError struct {
	Reason string
	Err    error
}

func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("precondition failed: %s: %v", e.Reason, e.Err)
	}
	return "precondition failed: " + e.Reason
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// ScriptFatalError stops the run: a pre or post script reported a fatal
// verdict for a batch.
type ScriptFatalError struct {
	Script string
	Batch  int
	Result ScriptResult
}

func (e *ScriptFatalError) Error() string {
	return fmt.Sprintf(
		"script %s failed fatally on batch %d (exit code %d): %s",
		e.Script,
		e.Batch,
		e.Result.ExitCode,
		strings.TrimSpace(e.Result.Output),
	)
}

type ActionFailure struct {
	Action string
	Batch  int
	Err    error
}

func (e *ActionFailure) Error() string {
	return fmt.Sprintf("action %s failed on batch %d: %v", e.Action, e.Batch, e.Err)
}

func (e *ActionFailure) Unwrap() error {
	return e.Err
}

// RecoveryTimeout means the hosts of a batch were never confirmed healthy
// again after the action.
type RecoveryTimeout struct {
	Action string
	Batch  int
	Err    error
}

func (e *RecoveryTimeout) Error() string {
	return fmt.Sprintf("hosts of batch %d did not recover after %s: %v", e.Batch, e.Action, e.Err)
}

func (e *RecoveryTimeout) Unwrap() error {
	return e.Err
}
