package classify_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/oscwc/internal/classify"
)

// fakeProbe reproduces the scenario-4 fixture from spec.md §8: a manifest
// with foo=' ', bar='A', abc='D', xxx=' ' (dir missing), del='D' (dir
// missing), and an untracked directory asdf/.
type fakeProbe struct {
	entries map[string]classify.Status // tracked -> manifest state (' '/'A'/'D')
	dirs    map[string]bool
	// updateable/commitable overrides per package; default true when a
	// handle exists.
	notUpdateable map[string]bool
	notCommitable map[string]bool
	modified      map[string]bool
	noHandle      map[string]bool
}

func scenario4Probe() *fakeProbe {
	return &fakeProbe{
		entries: map[string]classify.Status{
			"foo": classify.StatusUnchanged,
			"bar": classify.StatusAdded,
			"abc": classify.StatusDeleted,
			"xxx": classify.StatusUnchanged,
			"del": classify.StatusDeleted,
		},
		dirs: map[string]bool{
			"foo":  true,
			"bar":  true,
			"abc":  true,
			"asdf": true,
			// xxx and del directories are missing.
		},
	}
}

func (p *fakeProbe) StatusOf(name string) classify.Status {
	st, ok := p.entries[name]
	if !ok {
		return classify.StatusUntracked
	}

	if !p.dirs[name] && st != classify.StatusDeleted {
		return classify.StatusMissing
	}

	return st
}

func (p *fakeProbe) DirExists(name string) bool { return p.dirs[name] }

func (p *fakeProbe) IsUpdateable(name string) (handleExists, updateable bool) {
	_, tracked := p.entries[name]
	if !tracked || p.noHandle[name] {
		return false, false
	}

	return true, !p.notUpdateable[name]
}

func (p *fakeProbe) IsCommitable(name string) (handleExists, commitable, modified bool) {
	_, tracked := p.entries[name]
	if !tracked || p.noHandle[name] {
		return false, false, false
	}

	return true, !p.notCommitable[name], p.modified[name]
}

func TestStatusLadder(t *testing.T) {
	probe := scenario4Probe()

	require.Equal(t, classify.StatusUnchanged, probe.StatusOf("foo"))
	require.Equal(t, classify.StatusAdded, probe.StatusOf("bar"))
	require.Equal(t, classify.StatusDeleted, probe.StatusOf("abc"))
	require.Equal(t, classify.StatusMissing, probe.StatusOf("xxx"))
	require.Equal(t, classify.StatusDeleted, probe.StatusOf("del"))
	require.Equal(t, classify.StatusUntracked, probe.StatusOf("asdf"))
}

// TestClassifyUpdateScenario1 mirrors the scenario-1 fixture. "xxx" (status
// '!') only reaches "conflicted" by first becoming a candidate (remote and
// local both list it) and then failing the candidates re-scan (§4.4 step 3:
// status in {A,!} moves a candidate to conflicted) - so the remote listing
// here must include "xxx", matching original_source/test/wc/test_project.py
// test7's fixture-backed result (candidates=[foo,abc], conflicted=[xxx])
// more precisely than spec.md's prose remote set of {foo,abc,osc}, which
// drops "xxx" from the listing. See DESIGN.md.
func TestClassifyUpdateScenario1(t *testing.T) {
	probe := scenario4Probe()
	local := []string{"foo", "bar", "abc", "xxx", "del"}
	remote := []string{"foo", "abc", "osc", "xxx"}

	info := classify.ClassifyUpdate(remote, local, probe, nil)

	require.Equal(t, []string{"foo", "abc"}, info.Candidates)
	require.Equal(t, []string{"osc"}, info.Added)
	require.Equal(t, []string{"del"}, info.Deleted)
	require.Equal(t, []string{"xxx"}, info.Conflicted)
}

func TestClassifyUpdateScenario2(t *testing.T) {
	probe := scenario4Probe()
	local := []string{"foo", "bar", "abc", "xxx", "del"}
	remote := []string{"foo", "bar", "osc"}

	info := classify.ClassifyUpdate(remote, local, probe, nil)

	require.ElementsMatch(t, []string{"foo"}, info.Candidates)
	require.ElementsMatch(t, []string{"osc"}, info.Added)
	require.ElementsMatch(t, []string{"abc", "xxx", "del"}, info.Deleted)
	require.ElementsMatch(t, []string{"bar"}, info.Conflicted)
}

func TestClassifyUpdateEmptyRemote(t *testing.T) {
	probe := scenario4Probe()
	local := []string{"foo", "bar", "abc", "xxx", "del"}

	info := classify.ClassifyUpdate(nil, local, probe, nil)

	require.Empty(t, info.Candidates)
	require.Empty(t, info.Added)
	require.ElementsMatch(t, []string{"foo", "abc", "xxx", "del"}, info.Deleted)
	require.Empty(t, info.Conflicted, "the 'A' entry is neither deleted nor conflicted")
}

func TestClassifyUpdateAddedNameCollision(t *testing.T) {
	probe := &fakeProbe{
		entries: map[string]classify.Status{},
		dirs:    map[string]bool{"newpkg": true},
	}

	info := classify.ClassifyUpdate([]string{"newpkg"}, nil, probe, nil)

	require.Empty(t, info.Added)
	require.Equal(t, []string{"newpkg"}, info.Conflicted)
}

func TestClassifyUpdateSelectionFilters(t *testing.T) {
	probe := scenario4Probe()
	local := []string{"foo", "bar", "abc", "xxx", "del"}
	remote := []string{"foo", "abc", "osc"}

	info := classify.ClassifyUpdate(remote, local, probe, []string{"foo", "del"})

	require.Equal(t, []string{"foo"}, info.Candidates)
	require.Empty(t, info.Added)
	require.Equal(t, []string{"del"}, info.Deleted)
	require.Empty(t, info.Conflicted)
}

func TestClassifyUpdateNotUpdateableConflicts(t *testing.T) {
	probe := scenario4Probe()
	probe.notUpdateable = map[string]bool{"foo": true}
	local := []string{"foo", "abc"}
	remote := []string{"foo", "abc"}

	info := classify.ClassifyUpdate(remote, local, probe, nil)

	require.Equal(t, []string{"abc"}, info.Candidates)
	require.Equal(t, []string{"foo"}, info.Conflicted)
}

func TestClassifyCommit(t *testing.T) {
	probe := &fakeProbe{
		entries: map[string]classify.Status{
			"added":   classify.StatusAdded,
			"deleted": classify.StatusDeleted,
			"clean":   classify.StatusUnchanged,
			"dirty":   classify.StatusUnchanged,
			"stuck":   classify.StatusUnchanged,
			"ghost":   classify.StatusUnchanged,
		},
		dirs: map[string]bool{
			"added": true, "deleted": true, "clean": true, "dirty": true, "stuck": true, "ghost": true,
		},
		modified:      map[string]bool{"dirty": true},
		notCommitable: map[string]bool{"stuck": true},
		noHandle:      map[string]bool{"ghost": true},
	}

	info := classify.ClassifyCommit(
		[]string{"added", "deleted", "clean", "dirty", "stuck", "ghost"}, probe, nil)

	require.Equal(t, []string{"added"}, info.Added)
	require.Equal(t, []string{"deleted"}, info.Deleted)
	require.Equal(t, []string{"clean"}, info.Unchanged)
	require.Equal(t, []string{"dirty"}, info.Modified)
	require.ElementsMatch(t, []string{"stuck", "ghost"}, info.Conflicted)
}

func TestClassifyCommitSelection(t *testing.T) {
	probe := &fakeProbe{
		entries: map[string]classify.Status{
			"a": classify.StatusUnchanged,
			"b": classify.StatusUnchanged,
		},
		dirs: map[string]bool{"a": true, "b": true},
	}

	info := classify.ClassifyCommit([]string{"a", "b"}, probe, []string{"a"})
	require.Equal(t, []string{"a"}, info.Unchanged)
	require.Empty(t, info.Deleted)
}

func TestClassifyUpdateDisjointnessPanicsOnBug(t *testing.T) {
	// Sanity check that the internal assertion actually fires: a
	// duplicate across buckets is a programming error, not user input, so
	// this is exercised indirectly through a crafted probe rather than by
	// calling the unexported assert function.
	probe := &flipProbe{fakeProbe: scenario4Probe(), calls: map[string]int{}}
	local := []string{"foo", "foo"}

	require.Panics(t, func() {
		classify.ClassifyUpdate(nil, local, probe, nil)
	})
}

// flipProbe reports a package as not updateable on its first IsUpdateable
// call and updateable afterwards, so a name listed twice locally lands in
// both the conflicted and the deleted bucket.
type flipProbe struct {
	*fakeProbe
	calls map[string]int
}

func (p *flipProbe) IsUpdateable(name string) (handleExists, updateable bool) {
	p.calls[name]++

	return true, p.calls[name] > 1
}
