package oscwccli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"
)

// localRemote is the CLI's stand-in for a real build-service connection: a
// JSON file recording which package names are known "remotely", scoped to
// one project working copy. The wire protocol that would actually talk to
// a build service is out of scope for this repo (spec.md §1's remote model
// black box); this exists so a CLI session exercises update/commit against
// durable state across repeated invocations instead of an always-empty
// in-memory double.
type localRemote struct {
	path string
}

func newLocalRemote(storeDir string) *localRemote {
	return &localRemote{path: filepath.Join(storeDir, "_remote.json")}
}

func (r *localRemote) read() (map[string]bool, error) {
	data, err := os.ReadFile(r.path) //nolint:gosec // path built from the working copy's own store dir
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}

		return nil, fmt.Errorf("reading remote record: %w", err)
	}

	var names []string

	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("parsing remote record: %w", err)
	}

	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}

	return set, nil
}

func (r *localRemote) write(set map[string]bool) error {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}

	sort.Strings(names)

	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("formatting remote record: %w", err)
	}

	if err := atomic.WriteFile(r.path, strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("writing remote record: %w", err)
	}

	return nil
}

// ListPackages implements oscwc.RemoteLister.
func (r *localRemote) ListPackages(string) ([]string, error) {
	set, err := r.read()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}

	sort.Strings(names)

	return names, nil
}

// PackageExists implements oscwc.RemoteModel.
func (r *localRemote) PackageExists(_, name string) (bool, error) {
	set, err := r.read()
	if err != nil {
		return false, err
	}

	return set[name], nil
}

// StorePackage implements oscwc.RemoteModel.
func (r *localRemote) StorePackage(_, name string) error {
	set, err := r.read()
	if err != nil {
		return err
	}

	set[name] = true

	return r.write(set)
}

// DeletePackage implements oscwc.RemoteModel.
func (r *localRemote) DeletePackage(_, name string) error {
	set, err := r.read()
	if err != nil {
		return err
	}

	delete(set, name)

	return r.write(set)
}
