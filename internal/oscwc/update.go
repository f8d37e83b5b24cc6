package oscwc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/calvinalkan/oscwc/internal/classify"
	"github.com/calvinalkan/oscwc/internal/lockfile"
	"github.com/calvinalkan/oscwc/internal/store"
	"github.com/calvinalkan/oscwc/internal/txstate"
)

// updateListNames is the fixed phase order an update transaction drives
// its work-lists in: adds, then deletes, then candidates (spec.md §4.5).
var updateListNames = []string{"added", "deleted", "candidates"}

// Update reconciles the project's local packages against the remote
// listing, optionally restricted to selection. It resumes a crashed update
// transaction if one is outstanding. An outstanding commit transaction that
// hasn't started irreversible work yet is rolled back (its record erased)
// and a fresh update begins; otherwise a PendingTransactionError is returned.
func (p *Project) Update(ctx context.Context, selection ...string) error {
	return lockfile.With(p.layout.LockPath(p.path), p.lockTimeout, func() error {
		rec, err := p.resolveTransaction(txstate.KindUpdate)
		if err != nil {
			return err
		}

		if rec == nil {
			rec, err = p.beginUpdate(selection)
			if err != nil {
				return err
			}

			if rec == nil {
				return nil
			}
		}

		return p.driveUpdate(ctx, rec)
	})
}

func (p *Project) beginUpdate(selection []string) (*txstate.Record, error) {
	remote, err := p.lister.ListPackages(p.name)
	if err != nil {
		return nil, fmt.Errorf("listing remote packages: %w", err)
	}

	probe := &engineProbe{p: p}
	info := classify.ClassifyUpdate(remote, p.Packages(), probe, selection)

	if len(info.Conflicted) > 0 {
		return nil, &FileConflictError{Names: info.Conflicted}
	}

	if len(info.Added) == 0 && len(info.Deleted) == 0 && len(info.Candidates) == 0 {
		return nil, nil //nolint:nilnil // nothing to do
	}

	lists := map[string][]string{
		"added":      info.Added,
		"deleted":    info.Deleted,
		"candidates": info.Candidates,
	}

	location := txstate.NewLocation(filepath.Join(p.layout.StoreDir(p.path), "update-tx"))

	p.notifyBegin("update", info)

	rec, err := txstate.Begin(
		p.path, p.layout, txstate.KindUpdate, updateListNames, lists,
		txstate.UpdatePrepare, location, p.snapshotStates(),
	)
	if err != nil {
		return nil, err
	}

	return rec, nil
}

func (p *Project) driveUpdate(ctx context.Context, rec *txstate.Record) error {
	for {
		pkg, list, ok := rec.Head()
		if !ok {
			break
		}

		var err error

		switch list {
		case "added":
			err = p.performAdd(ctx, rec, pkg)
		case "deleted":
			err = p.performDelete(rec, pkg)
		case "candidates":
			err = p.performCandidate(ctx, rec, pkg)
		}

		if err != nil {
			p.notifyFinished("update", true)

			return err
		}
	}

	if err := p.finalizeTransaction(rec); err != nil {
		p.notifyFinished("update", true)

		return err
	}

	p.notifyFinished("update", false)

	return nil
}

// performAdd drives one remote-only package through the add phase: create
// its external store and a scratch-dir package WC in PREPARE, run its
// update, transition to UPDATING, then fix up the scratch dir into its
// final location. Safe to re-enter after a crash in either phase.
func (p *Project) performAdd(ctx context.Context, rec *txstate.Record, pkg string) error {
	externalStore := p.layout.PackageDataDir(p.path, pkg)
	scratchPath := filepath.Join(rec.Location, pkg)
	finalPath := filepath.Join(p.path, pkg)

	if rec.Phase == txstate.UpdatePrepare {
		if err := os.MkdirAll(externalStore, dirPerms); err != nil {
			return fmt.Errorf("creating external store for %s: %w", pkg, err)
		}

		if err := os.MkdirAll(rec.Location, dirPerms); err != nil {
			return fmt.Errorf("creating scratch dir for %s: %w", pkg, err)
		}

		handle, err := p.factory.InitPackage(scratchPath, p.name, pkg, p.apiURL, externalStore)
		if err != nil {
			return fmt.Errorf("initializing new package %s: %w", pkg, err)
		}

		handle.SetNotifier(p.notifier)

		if err := handle.Update(ctx); err != nil {
			return fmt.Errorf("updating new package %s: %w", pkg, err)
		}

		if err := rec.SetPhase(p.path, p.layout, txstate.UpdateUpdating); err != nil {
			return err
		}
	}

	if err := p.fixupAddScratch(scratchPath, finalPath, externalStore); err != nil {
		return fmt.Errorf("finalizing new package %s: %w", pkg, err)
	}

	newState := entryStateRef(store.StateUnchanged)
	if err := rec.Processed(p.path, p.layout, pkg, newState); err != nil {
		return err
	}

	p.notifyProcessed(pkg, entryStateToString(newState))

	return nil
}

// fixupAddScratch ensures the package WC's store symlink points at its
// external store (by a relative path, so the working copy stays
// relocatable) and moves the scratch dir into its final location. If the
// scratch dir is already gone and the final location already exists, a
// prior crashed attempt already completed this step.
func (p *Project) fixupAddScratch(scratchPath, finalPath, externalStore string) error {
	if _, err := os.Stat(scratchPath); os.IsNotExist(err) {
		if _, finalErr := os.Stat(finalPath); finalErr == nil {
			return nil
		}

		return fmt.Errorf("scratch dir missing and final location absent: %s", scratchPath)
	}

	// The symlink is created here in scratchPath but must resolve correctly
	// once the rename below moves it to finalPath, so its relative target
	// is computed against finalPath, not the directory it's created in.
	rel, err := filepath.Rel(finalPath, externalStore)
	if err != nil {
		return fmt.Errorf("computing relative external store path: %w", err)
	}

	symlinkPath := filepath.Join(scratchPath, p.layout.StoreDirName)
	_ = os.Remove(symlinkPath)

	if err := os.Symlink(rel, symlinkPath); err != nil {
		return fmt.Errorf("linking external store: %w", err)
	}

	if err := os.Rename(scratchPath, finalPath); err != nil {
		return fmt.Errorf("moving package into place: %w", err)
	}

	return nil
}

// performDelete drives one locally-deleted package through the delete
// phase: remove its tracked files, store symlink, directory and external
// store.
func (p *Project) performDelete(rec *txstate.Record, pkg string) error {
	if rec.Phase == txstate.UpdatePrepare {
		if err := rec.SetPhase(p.path, p.layout, txstate.UpdateUpdating); err != nil {
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

// performCandidate drives one already-tracked package through an ordinary
// update: it must already have a package WC; there is no create/fix-up
// two-step here, so no phase transition is needed.
func (p *Project) performCandidate(ctx context.Context, rec *txstate.Record, pkg string) error {
	handle, err := p.openHandleIfPresent(pkg)
	if err != nil || handle == nil {
		return fmt.Errorf("%w: %s", ErrPackageHandleMissing, pkg)
	}

	handle.SetNotifier(p.notifier)

	if err := handle.Update(ctx); err != nil {
		return fmt.Errorf("updating package %s: %w", pkg, err)
	}

	newState := entryStateRef(store.StateUnchanged)
	if err := rec.Processed(p.path, p.layout, pkg, newState); err != nil {
		return err
	}

	p.notifyProcessed(pkg, entryStateToString(newState))

	return nil
}
