// Package store implements the on-disk conventions of a project working
// copy's hidden metadata directory: atomic reads/writes of the small text
// files and the packages manifest, and the wc_check consistency probe.
package store

import (
	"os"
	"path/filepath"
)

// Layout names the files and directories that make up a working copy's
// hidden store. The defaults match the conventional ".osc" layout; callers
// embedding this engine under a different tool name may override any field.
type Layout struct {
	// StoreDirName is the hidden metadata directory, e.g. ".osc".
	StoreDirName string
	// DataSubdir holds per-package external stores, under the store dir.
	DataSubdir string
	// ManifestFile is the packages manifest file name, under the store dir.
	ManifestFile string
	// LockFile is the advisory lock file name, under the store dir.
	LockFile string
	// TransactionFile is the in-flight transaction record, under the store dir.
	TransactionFile string
}

// DefaultLayout returns the conventional ".osc" layout.
func DefaultLayout() Layout {
	return Layout{
		StoreDirName:    ".osc",
		DataSubdir:      "data",
		ManifestFile:    "_packages",
		LockFile:        "_lock",
		TransactionFile: "_transaction",
	}
}

// StoreDir returns the hidden metadata directory for a working copy rooted at path.
func (l Layout) StoreDir(path string) string {
	return filepath.Join(path, l.StoreDirName)
}

// ProjectFile returns the path to the "_project" file.
func (l Layout) ProjectFile(path string) string {
	return filepath.Join(l.StoreDir(path), "_project")
}

// APIURLFile returns the path to the "_apiurl" file.
func (l Layout) APIURLFile(path string) string {
	return filepath.Join(l.StoreDir(path), "_apiurl")
}

// ManifestPath returns the path to the packages manifest.
func (l Layout) ManifestPath(path string) string {
	return filepath.Join(l.StoreDir(path), l.ManifestFile)
}

// LockPath returns the path the lock manager should lock for this working copy.
func (l Layout) LockPath(path string) string {
	return filepath.Join(l.StoreDir(path), l.LockFile)
}

// TransactionPath returns the path to the transaction record.
func (l Layout) TransactionPath(path string) string {
	return filepath.Join(l.StoreDir(path), l.TransactionFile)
}

// DataDir returns the root directory for all per-package external stores.
func (l Layout) DataDir(path string) string {
	return filepath.Join(l.StoreDir(path), l.DataSubdir)
}

// PackageDataDir returns the external store directory for a single package.
func (l Layout) PackageDataDir(path, pkg string) string {
	return filepath.Join(l.DataDir(path), pkg)
}

// HasStoreMarker reports whether path already looks like an initialized
// working copy (project or package - both conventionally use the same
// hidden store directory name). Used by Project.Add to refuse adopting a
// directory that is already some other kind of working copy.
func (l Layout) HasStoreMarker(path string) bool {
	_, err := os.Stat(l.StoreDir(path))
	return err == nil
}
