// Package oscwc implements the project working-copy engine: the
// update/commit transactional drivers, the user-facing operations
// (add/remove/status/package), and the error types they surface. It is the
// component that ties internal/store, internal/lockfile, internal/txstate
// and internal/classify together into one consistent, crash-recoverable
// Project.
//
// Grounded on original_source/osc/wc/project.py's Project class: the phase
// ordering (adds, then deletes, then candidates for update; adds, deletes,
// modifieds for commit), the locking discipline around every mutating
// operation, and the add/remove/status rules are carried over, translated
// from the Python mixin/attribute style into explicit constructor-injected
// interfaces (PackageFactory, PackageHandle, RemoteModel) per the project's
// own design notes on replacing a global singleton HTTP client.
package oscwc

import "context"

// PackageHandle is the package-level working copy, treated as an opaque
// black box by the project engine (spec's package WC contract).
type PackageHandle interface {
	// Path returns the package working copy's root directory.
	Path() string
	// Update brings the package WC up to date with the remote.
	Update(ctx context.Context) error
	// Commit sends the package WC's local changes to the remote.
	Commit(ctx context.Context) error
	// IsUpdateable reports whether the package can currently be updated.
	IsUpdateable() bool
	// IsCommitable reports whether the package can currently be committed.
	IsCommitable() bool
	// IsModified reports whether the package has uncommitted local changes.
	IsModified() bool
	// Files lists the package's tracked file names.
	Files() ([]string, error)
	// Remove deletes one tracked file from the package WC.
	Remove(filename string) error
	// SetNotifier threads the project engine's lifecycle sink down into
	// the package WC, so package-internal progress reaches the same
	// observer as project-level begin/processed/finished events.
	SetNotifier(n Notifier)
}

// PackageFactory creates and opens package working copies. path is always
// the package's intended root directory (which, during an update's add
// phase, is a scratch directory rather than the package's final location).
type PackageFactory interface {
	// InitPackage creates a brand-new package WC rooted at path.
	InitPackage(path, project, name, apiURL, externalStore string) (PackageHandle, error)
	// OpenPackage opens an existing package WC rooted at path. It returns
	// (nil, nil), not an error, when no package WC exists at path.
	OpenPackage(path, project, name, apiURL, externalStore string) (PackageHandle, error)
}

// RemoteModel is the remote service's project/package model, consumed as
// the opaque find/store/delete/exists contract (spec's remote model
// black box), grounded on original_source/osc/remote.py's RemoteProject
// and RemotePackage.
type RemoteModel interface {
	// PackageExists reports whether a package already exists remotely.
	PackageExists(project, name string) (bool, error)
	// StorePackage creates the remote package record.
	StorePackage(project, name string) error
	// DeletePackage removes the remote package record.
	DeletePackage(project, name string) error
}

// RemoteLister lists the packages that exist on the remote for a project.
// Same shape as classify.RemoteLister; kept as its own named interface here
// so callers constructing a Project don't need to import internal/classify.
type RemoteLister interface {
	ListPackages(project string) ([]string, error)
}
