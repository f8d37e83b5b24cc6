package oscwc

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/calvinalkan/oscwc/internal/store"
	"github.com/calvinalkan/oscwc/internal/txstate"
)

// resolveTransaction reads any existing transaction record and decides how
// to proceed for the requested kind:
//   - no record: nothing to resolve, caller classifies and begins fresh.
//   - same kind: resume. If the record is past its first phase, a package
//     was genuinely mid-transition when the process died; ClearInfo
//     discards that head entry (spec.md §4.5's resume semantics) before
//     the remainder of the lists are re-driven.
//   - different kind: try to roll it back (only possible from its first
//     phase, i.e. no irreversible work has begun). A failed rollback is a
//     PendingTransactionError the caller must resolve.
func (p *Project) resolveTransaction(kind txstate.Kind) (*txstate.Record, error) {
	rec, err := txstate.ReadState(p.path, p.layout)
	if err != nil {
		return nil, err
	}

	if rec == nil {
		return nil, nil //nolint:nilnil // absence is a valid, expected outcome
	}

	if rec.Kind == kind {
		if rec.Phase != rec.FirstPhase {
			if err := rec.ClearInfo(p.path, p.layout); err != nil {
				return nil, err
			}
		}

		return rec, nil
	}

	rolledBack, err := txstate.Rollback(p.path, p.layout, rec)
	if err != nil {
		return nil, err
	}

	if !rolledBack {
		return nil, &PendingTransactionError{Kind: string(rec.Kind)}
	}

	return nil, nil //nolint:nilnil // rolled back; caller starts fresh
}

// finalizeTransaction merges the transaction's accumulated entry states
// into the manifest, persists it, and removes the transaction record. Only
// called once every work-list is empty.
func (p *Project) finalizeTransaction(rec *txstate.Record) error {
	p.mu.Lock()
	p.manifest.Merge(rec.EntryStates)
	manifest := p.manifest
	p.mu.Unlock()

	if err := store.WriteManifest(p.path, p.layout, manifest); err != nil {
		return err
	}

	return rec.Cleanup(p.path, p.layout)
}

// removeWCDir removes a package's tracked files, unlinks its store
// symlink, removes the now-empty directory, and deletes its external
// store. Grounded on original_source/osc/wc/project.py's _remove_wc_dir.
func (p *Project) removeWCDir(pkg string) error {
	pkgPath := filepath.Join(p.path, pkg)

	handle, err := p.openHandleIfPresent(pkg)
	if err == nil && handle != nil {
		files, filesErr := handle.Files()
		if filesErr == nil {
			for _, f := range files {
				if rmErr := handle.Remove(f); rmErr != nil {
					return fmt.Errorf("removing tracked file %s: %w", f, rmErr)
				}
			}
		}
	}

	_ = os.Remove(filepath.Join(pkgPath, p.layout.StoreDirName))

	if entries, readErr := os.ReadDir(pkgPath); readErr == nil && len(entries) == 0 {
		_ = os.Remove(pkgPath)
	}

	if err := os.RemoveAll(p.layout.PackageDataDir(p.path, pkg)); err != nil {
		return fmt.Errorf("removing external store for %s: %w", pkg, err)
	}

	return nil
}

func entryStateRef(s store.EntryState) *store.EntryState {
	return &s
}

func entryStateToString(s *store.EntryState) *string {
	if s == nil {
		return nil
	}

	str := s.String()

	return &str
}
