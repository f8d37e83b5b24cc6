package oscwc

import (
	"errors"
	"fmt"
	"strings"
)

// Misuse errors (spec's ValueError(message) kind): calling an operation on
// a package whose tracked/untracked state makes it invalid.
var (
	ErrNotTracked           = errors.New("oscwc: package is not tracked")
	ErrAlreadyTracked       = errors.New("oscwc: package is already tracked")
	ErrPackageDirMissing    = errors.New("oscwc: package directory does not exist")
	ErrNotDirectory         = errors.New("oscwc: path is not a directory")
	ErrAlreadyWorkingCopy   = errors.New("oscwc: path is already a working copy")
	ErrPackageHandleMissing = errors.New("oscwc: package working copy handle unavailable")
)

// PendingTransactionError is returned when update/commit is invoked while a
// transaction of the other kind is outstanding and cannot be rolled back
// (irreversible work has already begun). The caller must resolve it,
// typically by re-invoking that other operation to resume and complete it.
type PendingTransactionError struct {
	Kind string
}

func (e *PendingTransactionError) Error() string {
	return fmt.Sprintf("oscwc: a %s transaction is pending and must be completed first (re-run %s)", e.Kind, e.Kind)
}

// FileConflictError lists packages whose local state prevents the
// requested update/commit. Surfaced before any mutation takes place.
type FileConflictError struct {
	Names []string
}

func (e *FileConflictError) Error() string {
	return fmt.Sprintf("oscwc: conflicting packages: %s", strings.Join(e.Names, ", "))
}
