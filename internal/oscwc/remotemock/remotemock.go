// Package remotemock is an in-memory double for internal/oscwc's
// RemoteLister and RemoteModel contracts, grounded on
// original_source/osc/remote.py's RemoteProject (project package listing)
// and RemotePackage (exists/store/delete) classes. It lets
// internal/oscwc's tests exercise commit's add/delete/modify phases
// without a live HTTP server, which the marshalling layer behind the real
// remote model is explicitly out of scope for.
package remotemock

import (
	"fmt"
	"sort"
	"sync"
)

// Remote is a single in-memory remote service: a set of packages per
// project.
type Remote struct {
	mu       sync.Mutex
	packages map[string]map[string]bool
}

// New returns an empty Remote.
func New() *Remote {
	return &Remote{packages: map[string]map[string]bool{}}
}

// Seed pre-populates project with the given package names, as if they
// already existed remotely before the test began.
func (r *Remote) Seed(project string, names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensureProject(project)

	for _, name := range names {
		r.packages[project][name] = true
	}
}

// ListPackages implements oscwc.RemoteLister and classify.RemoteLister.
func (r *Remote) ListPackages(project string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.packages[project]))
	for name := range r.packages[project] {
		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}

// PackageExists implements oscwc.RemoteModel.
func (r *Remote) PackageExists(project, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.packages[project][name], nil
}

// StorePackage implements oscwc.RemoteModel.
func (r *Remote) StorePackage(project, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensureProject(project)
	r.packages[project][name] = true

	return nil
}

// DeletePackage implements oscwc.RemoteModel.
func (r *Remote) DeletePackage(project, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.packages[project][name] {
		return fmt.Errorf("remotemock: package %s/%s does not exist", project, name)
	}

	delete(r.packages[project], name)

	return nil
}

func (r *Remote) ensureProject(project string) {
	if r.packages[project] == nil {
		r.packages[project] = map[string]bool{}
	}
}
