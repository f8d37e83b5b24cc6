package oscwccli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/calvinalkan/oscwc/internal/oscwc"
)

// localFactory is the CLI's built-in PackageHandle/PackageFactory: the
// actual package-internal transfer to and from the remote is out of scope
// for this repo (spec.md §1), so this factory only tracks each package's
// plain local file listing under storeDirName's marker convention, letting
// the CLI drive the full update/commit state machine end to end.
type localFactory struct {
	storeDirName string
}

func newLocalFactory(storeDirName string) *localFactory {
	return &localFactory{storeDirName: storeDirName}
}

func (f *localFactory) InitPackage(path, _, _, _, externalStore string) (oscwc.PackageHandle, error) {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(path, externalStore)
	if err != nil {
		return nil, err
	}

	marker := filepath.Join(path, f.storeDirName)
	_ = os.Remove(marker)

	if err := os.Symlink(rel, marker); err != nil {
		return nil, err
	}

	return &localHandle{path: path, storeDirName: f.storeDirName}, nil
}

func (f *localFactory) OpenPackage(path, _, _, _, _ string) (oscwc.PackageHandle, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil //nolint:nilnil // absence is a valid, expected outcome
	}

	return &localHandle{path: path, storeDirName: f.storeDirName}, nil
}

// localHandle treats whatever is already on disk as the package's content.
// Update/Commit are no-ops: there is no remote transport to synchronize
// against, so the only observable effects of a transaction are the ones
// the project engine itself drives (external store bookkeeping, manifest
// state).
type localHandle struct {
	path         string
	storeDirName string
	notifier     oscwc.Notifier
}

func (h *localHandle) Path() string { return h.path }

func (h *localHandle) Update(context.Context) error { return nil }
func (h *localHandle) Commit(context.Context) error { return nil }

func (h *localHandle) IsUpdateable() bool { return true }
func (h *localHandle) IsCommitable() bool { return true }

// IsModified always reports false: this factory keeps no baseline revision
// to diff the working directory against.
func (h *localHandle) IsModified() bool { return false }

func (h *localHandle) Files() ([]string, error) {
	entries, err := os.ReadDir(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	var files []string

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		files = append(files, e.Name())
	}

	return files, nil
}

func (h *localHandle) Remove(filename string) error {
	err := os.Remove(filepath.Join(h.path, filename))
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	return err
}

func (h *localHandle) SetNotifier(n oscwc.Notifier) { h.notifier = n }
