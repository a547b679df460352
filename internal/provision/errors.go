package provision

import (
	"errors"
	"fmt"
)

// ErrBusy means another operation held the provisioning lock for the
// whole wait window. The caller should retry later.
var ErrBusy = errors.New("provisioning lock busy")

// Stage names the pipeline step an operation failed in.
type Stage string

const (
	StageLoad   Stage = "load"
	StageMutate Stage = "mutate"
	StageBackup Stage = "backup"
	StageWrite  Stage = "write"
	StageVerify Stage = "verify"
	StageReload Stage = "reload"
)

// StageError wraps a failure with the pipeline stage it occurred in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IntegrityError means the file read back after a write did not match
// what was written. The previous content has been restored.
type IntegrityError struct {
	Path     string
	Restored bool
}

func (e *IntegrityError) Error() string {
	if e.Restored {
		return fmt.Sprintf("verification of %s failed after write; previous content restored", e.Path)
	}
	return fmt.Sprintf("verification of %s failed after write; restore also failed, manual intervention required", e.Path)
}
