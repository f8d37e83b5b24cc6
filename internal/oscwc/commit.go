package oscwc

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/calvinalkan/oscwc/internal/classify"
	"github.com/calvinalkan/oscwc/internal/lockfile"
	"github.com/calvinalkan/oscwc/internal/store"
	"github.com/calvinalkan/oscwc/internal/txstate"
)

// commitListNames is the fixed phase order a commit transaction drives its
// work-lists in: adds, then deletes, then modifieds (spec.md §4.6).
var commitListNames = []string{"added", "deleted", "modified"}

// Commit sends the project's locally-added, locally-deleted and locally-
// modified packages to the remote, optionally restricted to selection. It
// resumes a crashed commit transaction if one is outstanding. An
// outstanding update transaction still in its first phase is rolled back
// (its record erased) and a fresh commit begins; otherwise a
// PendingTransactionError is returned.
func (p *Project) Commit(ctx context.Context, selection ...string) error {
	return lockfile.With(p.layout.LockPath(p.path), p.lockTimeout, func() error {
		rec, err := p.resolveTransaction(txstate.KindCommit)
		if err != nil {
			return err
		}

		if rec == nil {
			rec, err = p.beginCommit(selection)
			if err != nil {
				return err
			}

			if rec == nil {
				return nil
			}
		}

		return p.driveCommit(ctx, rec)
	})
}

func (p *Project) beginCommit(selection []string) (*txstate.Record, error) {
	probe := &engineProbe{p: p}
	info := classify.ClassifyCommit(p.Packages(), probe, selection)

	if len(info.Conflicted) > 0 {
		return nil, &FileConflictError{Names: info.Conflicted}
	}

	if len(info.Added) == 0 && len(info.Deleted) == 0 && len(info.Modified) == 0 {
		return nil, nil //nolint:nilnil // nothing to do
	}

	lists := map[string][]string{
		"added":    info.Added,
		"deleted":  info.Deleted,
		"modified": info.Modified,
	}

	location := txstate.NewLocation(filepath.Join(p.layout.StoreDir(p.path), "commit-tx"))

	p.notifyBegin("commit", info)

	rec, err := txstate.Begin(
		p.path, p.layout, txstate.KindCommit, commitListNames, lists,
		txstate.CommitTransfer, location, p.snapshotStates(),
	)
	if err != nil {
		return nil, err
	}

	return rec, nil
}

func (p *Project) driveCommit(ctx context.Context, rec *txstate.Record) error {
	for {
		pkg, list, ok := rec.Head()
		if !ok {
			break
		}

		var err error

		switch list {
		case "added":
			err = p.performCommitAdd(ctx, rec, pkg)
		case "deleted":
			err = p.performCommitDelete(rec, pkg)
		case "modified":
			err = p.performCommitModified(ctx, rec, pkg)
		}

		if err != nil {
			p.notifyFinished("commit", true)

			return err
		}
	}

	if err := p.finalizeTransaction(rec); err != nil {
		p.notifyFinished("commit", true)

		return err
	}

	p.notifyFinished("commit", false)

	return nil
}

// performCommitAdd creates the remote package record if it doesn't exist
// yet (an idempotent check, so a resumed commit never double-creates it),
// commits the package WC, then transitions to COMMITTING.
func (p *Project) performCommitAdd(ctx context.Context, rec *txstate.Record, pkg string) error {
	if rec.Phase == txstate.CommitTransfer {
		exists, err := p.remote.PackageExists(p.name, pkg)
		if err != nil {
			return fmt.Errorf("checking remote package %s: %w", pkg, err)
		}

		if !exists {
			if err := p.remote.StorePackage(p.name, pkg); err != nil {
				return fmt.Errorf("storing remote package %s: %w", pkg, err)
			}
		}
	}

	handle, err := p.openHandleIfPresent(pkg)
	if err != nil || handle == nil {
		return fmt.Errorf("%w: %s", ErrPackageHandleMissing, pkg)
	}

	handle.SetNotifier(p.notifier)

	if err := handle.Commit(ctx); err != nil {
		return fmt.Errorf("committing package %s: %w", pkg, err)
	}

	if err := rec.SetPhase(p.path, p.layout, txstate.CommitCommitting); err != nil {
		return err
	}

	newState := entryStateRef(store.StateUnchanged)
	if err := rec.Processed(p.path, p.layout, pkg, newState); err != nil {
		return err
	}

	p.notifyProcessed(pkg, entryStateToString(newState))

	return nil
}

// performCommitDelete deletes the remote package record, transitions to
// COMMITTING, then removes the local package directory.
func (p *Project) performCommitDelete(rec *txstate.Record, pkg string) error {
	if rec.Phase == txstate.CommitTransfer {
		if err := p.remote.DeletePackage(p.name, pkg); err != nil {
			return fmt.Errorf("deleting remote package %s: %w", pkg, err)
		}

		if err := rec.SetPhase(p.path, p.layout, txstate.CommitCommitting); err != nil {
			return err
		}
	}

	if err := p.removeWCDir(pkg); err != nil {
		return fmt.Errorf("removing package %s: %w", pkg, err)
	}

	if err := rec.Processed(p.path, p.layout, pkg, nil); err != nil {
		return err
	}

	p.notifyProcessed(pkg, nil)

	return nil
}

// performCommitModified commits a package's local changes and transitions
// to COMMITTING.
func (p *Project) performCommitModified(ctx context.Context, rec *txstate.Record, pkg string) error {
	handle, err := p.openHandleIfPresent(pkg)
	if err != nil || handle == nil {
		return fmt.Errorf("%w: %s", ErrPackageHandleMissing, pkg)
	}

	handle.SetNotifier(p.notifier)

	if rec.Phase == txstate.CommitTransfer {
		if err := handle.Commit(ctx); err != nil {
			return fmt.Errorf("committing package %s: %w", pkg, err)
		}

		if err := rec.SetPhase(p.path, p.layout, txstate.CommitCommitting); err != nil {
			return err
		}
	}

	newState := entryStateRef(store.StateUnchanged)
	if err := rec.Processed(p.path, p.layout, pkg, newState); err != nil {
		return err
	}

	p.notifyProcessed(pkg, entryStateToString(newState))

	return nil
}
