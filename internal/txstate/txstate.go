// Package txstate implements the transaction state store: a typed,
// serialisable record of an in-progress update or commit, read back on
// startup so the project engine can resume after a crash.
//
// The state machine itself (phase reset to the kind's first phase after
// every Processed call, rollback only possible from that first phase) is
// grounded on original_source/osc/wc/project.py's ProjectUpdateState and
// ProjectCommitState, translated from a live-XML-tree mutation model into a
// plain value type serialised at the edge, per the project's own design
// notes on recasting that idiom.
package txstate

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"github.com/calvinalkan/oscwc/internal/store"
)

// Kind names which operation a transaction record belongs to.
type Kind string

// The two kinds of transaction.
const (
	KindUpdate Kind = "update"
	KindCommit Kind = "commit"
)

// Update state machine phases (spec.md §4.5).
const (
	UpdatePrepare  = "PREPARE"
	UpdateUpdating = "UPDATING"
)

// Commit state machine phases (spec.md §4.6).
const (
	CommitTransfer   = "TRANSFER"
	CommitCommitting = "COMMITTING"
)

// Errors.
var (
	ErrTransactionExists = errors.New("txstate: a transaction is already in progress")
	ErrListsNotEmpty     = errors.New("txstate: cannot cleanup while work remains")
	ErrWrongKind         = errors.New("txstate: transaction record is of a different kind")
	ErrInvalidRecord     = errors.New("txstate: invalid transaction record")
)

// Record is an in-progress update or commit transaction.
type Record struct {
	Kind  Kind
	Phase string
	// FirstPhase is the kind's initial phase; Processed resets Phase back to
	// it after every package, and Rollback is only possible while
	// Phase == FirstPhase (no irreversible work has begun).
	FirstPhase string
	// ListNames gives the fixed, ordered set of work-list names for this
	// kind (e.g. "added", "deleted", "candidates" for the engine's update).
	ListNames []string
	// Lists holds the remaining (not-yet-processed) packages per list name.
	Lists map[string][]string
	// EntryStates accumulates package -> final manifest state as each
	// package is processed; nil means "remove from the manifest".
	EntryStates map[string]*store.EntryState
	// PriorStates snapshots each tracked package's manifest state at the
	// moment the transaction began. It is persisted with the record; the
	// engine does not read it back.
	PriorStates map[string]store.EntryState
	// Location is a scratch directory for staged package adds, suffixed
	// with a fresh UUID so that a new transaction begun after a cleanup never
	// reuses a stale scratch path a killed process left behind. A resumed
	// transaction keeps using the Location stored in its record.
	Location string
}

// NewLocation returns a fresh scratch-directory name rooted under root.
func NewLocation(root string) string {
	return root + "-" + uuid.NewString()
}

// ReadState returns the current transaction record, or nil if none exists.
func ReadState(path string, layout store.Layout) (*Record, error) {
	data, err := os.ReadFile(layout.TransactionPath(path)) //nolint:gosec // path from layout
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil //nolint:nilnil // absence is a valid, expected outcome
		}

		return nil, fmt.Errorf("reading transaction record: %w", err)
	}

	var doc xmlTransaction

	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	return fromXML(doc), nil
}

// Begin writes a fresh transaction record. It fails if one already exists.
func Begin(
	path string, layout store.Layout, kind Kind, listNames []string,
	lists map[string][]string, firstPhase, location string, prior map[string]store.EntryState,
) (*Record, error) {
	existing, err := ReadState(path, layout)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return nil, ErrTransactionExists
	}

	rec := &Record{
		Kind:        kind,
		Phase:       firstPhase,
		FirstPhase:  firstPhase,
		ListNames:   append([]string(nil), listNames...),
		Lists:       copyLists(lists),
		EntryStates: map[string]*store.EntryState{},
		PriorStates: prior,
		Location:    location,
	}

	if err := persist(path, layout, rec); err != nil {
		return nil, err
	}

	return rec, nil
}

// SetPhase persists a phase transition (e.g. PREPARE -> UPDATING) without
// touching any work-list.
func (r *Record) SetPhase(path string, layout store.Layout, phase string) error {
	r.Phase = phase

	return persist(path, layout, r)
}

// Processed moves pkg out of whichever work-list currently holds it,
// records its final manifest state (nil meaning "drop from the manifest"),
// resets Phase back to FirstPhase, and persists atomically.
func (r *Record) Processed(path string, layout store.Layout, pkg string, newState *store.EntryState) error {
	r.removeFromLists(pkg)

	if r.EntryStates == nil {
		r.EntryStates = map[string]*store.EntryState{}
	}

	r.EntryStates[pkg] = newState
	r.Phase = r.FirstPhase

	return persist(path, layout, r)
}

// ClearInfo discards the head entry of whichever work-list the engine was
// mid-transition on when it crashed (resume semantics, spec.md §4.5). It
// does not record an entry state for the discarded package; the caller is
// expected to re-derive and re-process it from scratch.
func (r *Record) ClearInfo(path string, layout store.Layout) error {
	for _, name := range r.ListNames {
		if len(r.Lists[name]) > 0 {
			r.Lists[name] = r.Lists[name][1:]

			break
		}
	}

	return persist(path, layout, r)
}

// Head returns the package at the front of the first non-empty work-list,
// in ListNames order, and that list's name. ok is false if every list is empty.
func (r *Record) Head() (pkg, list string, ok bool) {
	for _, name := range r.ListNames {
		if len(r.Lists[name]) > 0 {
			return r.Lists[name][0], name, true
		}
	}

	return "", "", false
}

// Empty reports whether every work-list has been fully processed.
func (r *Record) Empty() bool {
	for _, name := range r.ListNames {
		if len(r.Lists[name]) > 0 {
			return false
		}
	}

	return true
}

// Cleanup removes the transaction record. Valid only once every work-list
// is empty.
func (r *Record) Cleanup(path string, layout store.Layout) error {
	if !r.Empty() {
		return ErrListsNotEmpty
	}

	if err := os.Remove(layout.TransactionPath(path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing transaction record: %w", err)
	}

	return nil
}

// Rollback erases rec if it is still in its first phase (no irreversible
// work has begun) and reports true. Otherwise it reports false without
// modifying anything.
func Rollback(path string, layout store.Layout, rec *Record) (bool, error) {
	if rec.Phase != rec.FirstPhase {
		return false, nil
	}

	if err := os.Remove(layout.TransactionPath(path)); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("removing transaction record: %w", err)
	}

	return true, nil
}

func (r *Record) removeFromLists(pkg string) {
	for _, name := range r.ListNames {
		list := r.Lists[name]
		for i, p := range list {
			if p == pkg {
				r.Lists[name] = append(list[:i:i], list[i+1:]...)

				return
			}
		}
	}
}

func copyLists(lists map[string][]string) map[string][]string {
	out := make(map[string][]string, len(lists))
	for k, v := range lists {
		out[k] = append([]string(nil), v...)
	}

	return out
}

func persist(path string, layout store.Layout, r *Record) error {
	data := toXML(r)

	if err := atomic.WriteFile(layout.TransactionPath(path), strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("writing transaction record: %w", err)
	}

	if err := os.Chmod(layout.TransactionPath(path), 0o600); err != nil {
		return fmt.Errorf("chmod transaction record: %w", err)
	}

	return nil
}
