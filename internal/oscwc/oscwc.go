package oscwc

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/calvinalkan/oscwc/internal/classify"
	"github.com/calvinalkan/oscwc/internal/lockfile"
	"github.com/calvinalkan/oscwc/internal/store"
)

// statusWorkers bounds the fan-out used by StatusMany, mirroring the
// teacher's cacheBuildWorkers cap on its own parallel file-parsing pool.
const statusWorkers = 8

// Deps are the collaborators a Project needs beyond the filesystem: the
// package and remote black boxes, plus optional overrides.
type Deps struct {
	Layout      store.Layout
	Factory     PackageFactory
	Lister      RemoteLister
	Remote      RemoteModel
	Notifier    Notifier
	LockTimeout time.Duration
}

func withDefaults(deps Deps) Deps {
	if deps.Layout == (store.Layout{}) {
		deps.Layout = store.DefaultLayout()
	}

	if deps.Notifier == nil {
		deps.Notifier = NoopNotifier{}
	}

	if deps.LockTimeout == 0 {
		deps.LockTimeout = lockfile.DefaultTimeout
	}

	return deps
}

// Project is an open project working copy.
type Project struct {
	path   string
	layout store.Layout

	name   string
	apiURL string

	mu       sync.Mutex
	manifest store.Manifest

	factory     PackageFactory
	lister      RemoteLister
	remote      RemoteModel
	notifier    Notifier
	lockTimeout time.Duration
}

// Init creates a fresh project working copy at path with an empty manifest,
// then opens it.
func Init(path, project, apiURL string, deps Deps) (*Project, error) {
	deps = withDefaults(deps)

	if err := store.Init(path, deps.Layout, project, apiURL); err != nil {
		return nil, err
	}

	return Open(path, deps)
}

// Open opens an existing project working copy at path, validating store
// consistency and reading its metadata under the project lock.
func Open(path string, deps Deps) (*Project, error) {
	deps = withDefaults(deps)

	p := &Project{
		path:        path,
		layout:      deps.Layout,
		factory:     deps.Factory,
		lister:      deps.Lister,
		remote:      deps.Remote,
		notifier:    deps.Notifier,
		lockTimeout: deps.LockTimeout,
	}

	err := lockfile.With(deps.Layout.LockPath(path), deps.LockTimeout, func() error {
		if err := store.Consistent(path, deps.Layout); err != nil {
			return err
		}

		name, err := store.ReadProjectName(path, deps.Layout)
		if err != nil {
			return err
		}

		apiURL, err := store.ReadAPIURL(path, deps.Layout)
		if err != nil {
			return err
		}

		manifest, err := store.ReadManifest(path, deps.Layout)
		if err != nil {
			return err
		}

		p.name = name
		p.apiURL = apiURL
		p.manifest = manifest

		return nil
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

// Path returns the project working copy's root directory.
func (p *Project) Path() string { return p.path }

// Name returns the project's name, as recorded in the "_project" store file.
func (p *Project) Name() string { return p.name }

// APIURL returns the remote service base URL, as recorded in "_apiurl".
func (p *Project) APIURL() string { return p.apiURL }

// Packages returns the tracked package names in manifest order.
func (p *Project) Packages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.manifest.Names()
}

// Status returns the derived status of a package name: the total function
// of its manifest entry (if any) and whether its directory exists on disk.
func (p *Project) Status(name string) classify.Status {
	p.mu.Lock()
	entry, tracked := p.manifest.Find(name)
	p.mu.Unlock()

	if !tracked {
		return classify.StatusUntracked
	}

	if !dirExists(filepath.Join(p.path, name)) && entry.State != store.StateDeleted {
		return classify.StatusMissing
	}

	return classify.Status(entry.State)
}

// StatusMany computes the derived status of many package names
// concurrently. It takes no lock and mutates nothing; it exists purely to
// speed up bulk diagnostic/listing queries, not to participate in any
// transaction.
func (p *Project) StatusMany(names ...string) map[string]classify.Status {
	results := make([]classify.Status, len(names))

	workerCount := min(len(names), statusWorkers)
	if workerCount == 0 {
		return map[string]classify.Status{}
	}

	jobCh := make(chan int, workerCount)

	var waitGroup sync.WaitGroup

	waitGroup.Add(workerCount)

	worker := func() {
		defer waitGroup.Done()

		for idx := range jobCh {
			results[idx] = p.Status(names[idx])
		}
	}

	for range workerCount {
		go worker()
	}

	for i := range names {
		jobCh <- i
	}

	close(jobCh)
	waitGroup.Wait()

	out := make(map[string]classify.Status, len(names))
	for i, n := range names {
		out[n] = results[i]
	}

	return out
}

// Package returns the package's opaque working copy handle, or (nil, nil)
// if status(name) is '!' or '?', or is 'D' with no package WC present.
func (p *Project) Package(name string) (PackageHandle, error) {
	status := p.Status(name)
	if status == classify.StatusMissing || status == classify.StatusUntracked {
		return nil, nil //nolint:nilnil // absence is a valid, expected outcome
	}

	pkgPath := filepath.Join(p.path, name)

	if status == classify.StatusDeleted && !p.layout.HasStoreMarker(pkgPath) {
		return nil, nil //nolint:nilnil // absence is a valid, expected outcome
	}

	handle, err := p.factory.OpenPackage(pkgPath, p.name, name, p.apiURL, p.layout.PackageDataDir(p.path, name))
	if err != nil {
		return nil, fmt.Errorf("opening package %s: %w", name, err)
	}

	if handle != nil {
		handle.SetNotifier(p.notifier)
	}

	return handle, nil
}

// Add starts tracking an existing untracked directory as a package working
// copy, scheduled for the next commit.
func (p *Project) Add(pkg string) error {
	return lockfile.With(p.layout.LockPath(p.path), p.lockTimeout, func() error {
		if status := p.Status(pkg); status != classify.StatusUntracked {
			return fmt.Errorf("%w: %s (status %s)", ErrAlreadyTracked, pkg, status)
		}

		pkgPath := filepath.Join(p.path, pkg)

		info, err := os.Stat(pkgPath)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrPackageDirMissing, pkg)
		}

		if !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrNotDirectory, pkg)
		}

		if p.layout.HasStoreMarker(pkgPath) {
			return fmt.Errorf("%w: %s", ErrAlreadyWorkingCopy, pkg)
		}

		externalStore := p.layout.PackageDataDir(p.path, pkg)
		if err := os.MkdirAll(externalStore, dirPerms); err != nil {
			return fmt.Errorf("creating external store for %s: %w", pkg, err)
		}

		handle, err := p.factory.InitPackage(pkgPath, p.name, pkg, p.apiURL, externalStore)
		if err != nil {
			return fmt.Errorf("initializing package %s: %w", pkg, err)
		}

		handle.SetNotifier(p.notifier)

		p.mu.Lock()
		p.manifest.Add(pkg, store.StateAdded)
		manifest := p.manifest
		p.mu.Unlock()

		return store.WriteManifest(p.path, p.layout, manifest)
	})
}

// Remove schedules a tracked package for deletion on the next commit: an
// 'A' entry (never committed) is dropped outright, any other entry is set
// to 'D'.
func (p *Project) Remove(pkg string) error {
	return lockfile.With(p.layout.LockPath(p.path), p.lockTimeout, func() error {
		p.mu.Lock()
		defer p.mu.Unlock()

		entry, tracked := p.manifest.Find(pkg)
		if !tracked {
			return fmt.Errorf("%w: %s", ErrNotTracked, pkg)
		}

		if entry.State == store.StateAdded {
			p.manifest.Remove(pkg)
		} else {
			p.manifest.Set(pkg, store.StateDeleted)
		}

		return store.WriteManifest(p.path, p.layout, p.manifest)
	})
}

// HasConflicts reports packages currently blocking an update or a commit:
// the union of the update and commit classifiers' conflicted buckets
// against the project's present local state. The original always returns
// an empty list (a stub); this recomputes the live answer from the
// classifier instead, which our typed, in-memory manifest makes cheap.
func (p *Project) HasConflicts() ([]string, error) {
	remote, err := p.lister.ListPackages(p.name)
	if err != nil {
		return nil, fmt.Errorf("listing remote packages: %w", err)
	}

	probe := &engineProbe{p: p}

	p.mu.Lock()
	names := p.manifest.Names()
	p.mu.Unlock()

	updateInfo := classify.ClassifyUpdate(remote, names, probe, nil)
	commitInfo := classify.ClassifyCommit(names, probe, nil)

	seen := make(map[string]bool)

	var out []string

	for _, pkg := range updateInfo.Conflicted {
		if !seen[pkg] {
			seen[pkg] = true

			out = append(out, pkg)
		}
	}

	for _, pkg := range commitInfo.Conflicted {
		if !seen[pkg] {
			seen[pkg] = true

			out = append(out, pkg)
		}
	}

	return out, nil
}

// engineProbe adapts a Project to classify.PackageProbe, so the classifier
// never touches a filesystem or package handle directly.
type engineProbe struct {
	p *Project
}

func (e *engineProbe) StatusOf(name string) classify.Status { return e.p.Status(name) }

func (e *engineProbe) DirExists(name string) bool {
	return dirExists(filepath.Join(e.p.path, name))
}

func (e *engineProbe) IsUpdateable(name string) (handleExists, updateable bool) {
	handle, err := e.p.openHandleIfPresent(name)
	if err != nil || handle == nil {
		return false, false
	}

	return true, handle.IsUpdateable()
}

func (e *engineProbe) IsCommitable(name string) (handleExists, commitable, modified bool) {
	handle, err := e.p.openHandleIfPresent(name)
	if err != nil || handle == nil {
		return false, false, false
	}

	return true, handle.IsCommitable(), handle.IsModified()
}

// openHandleIfPresent opens a package WC regardless of its manifest
// status, unlike Package (which applies the public '!'/'?' absence rule).
// The classifier needs to know whether a handle merely *exists on disk*,
// independent of the status-derived visibility rule.
func (p *Project) openHandleIfPresent(name string) (PackageHandle, error) {
	pkgPath := filepath.Join(p.path, name)
	if !p.layout.HasStoreMarker(pkgPath) {
		return nil, nil //nolint:nilnil // absence is a valid, expected outcome
	}

	return p.factory.OpenPackage(pkgPath, p.name, name, p.apiURL, p.layout.PackageDataDir(p.path, name))
}

func (p *Project) snapshotStates() map[string]store.EntryState {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]store.EntryState, len(p.manifest.Entries))
	for _, e := range p.manifest.Entries {
		out[e.Name] = e.State
	}

	return out
}

func dirExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

const dirPerms = 0o750
