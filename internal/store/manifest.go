package store

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// EntryState is a package's recorded state in the manifest.
type EntryState byte

// Manifest entry states (spec.md glossary).
const (
	StateUnchanged EntryState = ' '
	StateAdded     EntryState = 'A'
	StateDeleted   EntryState = 'D'
)

// Valid reports whether s is one of the three manifest states.
func (s EntryState) Valid() bool {
	switch s {
	case StateUnchanged, StateAdded, StateDeleted:
		return true
	default:
		return false
	}
}

func (s EntryState) String() string {
	return string(rune(s))
}

// ManifestEntry is one tracked package and its manifest state.
type ManifestEntry struct {
	Name  string
	State EntryState
}

// Manifest is the packages manifest: an ordered collection of entries, each
// with exactly one state. The manifest is the sole authority on which
// packages are tracked - disk presence of a package directory is not.
type Manifest struct {
	Entries []ManifestEntry
}

// Names returns the tracked package names in manifest order.
func (m Manifest) Names() []string {
	names := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		names = append(names, e.Name)
	}

	return names
}

// Find returns the entry for name and whether it exists.
func (m Manifest) Find(name string) (ManifestEntry, bool) {
	for _, e := range m.Entries {
		if e.Name == name {
			return e, true
		}
	}

	return ManifestEntry{}, false
}

// Add appends a new entry. Callers must ensure name is not already tracked.
func (m *Manifest) Add(name string, state EntryState) {
	m.Entries = append(m.Entries, ManifestEntry{Name: name, State: state})
}

// Remove drops the entry for name entirely, if present.
func (m *Manifest) Remove(name string) {
	for i, e := range m.Entries {
		if e.Name == name {
			m.Entries = append(m.Entries[:i], m.Entries[i+1:]...)

			return
		}
	}
}

// Set updates the state of an existing entry. Callers must ensure name is tracked.
func (m *Manifest) Set(name string, state EntryState) {
	for i, e := range m.Entries {
		if e.Name == name {
			m.Entries[i].State = state

			return
		}
	}
}

// Merge applies entryStates (package -> final state, nil meaning "drop the
// entry") on top of the manifest, in the order transactions apply them at
// end-of-transaction.
func (m *Manifest) Merge(entryStates map[string]*EntryState) {
	for name, state := range entryStates {
		if state == nil {
			m.Remove(name)

			continue
		}

		if _, ok := m.Find(name); ok {
			m.Set(name, *state)
		} else {
			m.Add(name, *state)
		}
	}
}

type xmlManifest struct {
	XMLName  xml.Name          `xml:"packages"`
	Packages []xmlPackageEntry `xml:"package"`
}

type xmlPackageEntry struct {
	Name  string `xml:"name,attr"`
	State string `xml:"state,attr"`
}

// ErrManifestInvalid is returned (wrapped) when _packages cannot be parsed as XML.
var ErrManifestInvalid = fmt.Errorf("invalid packages manifest")

// ParseManifest parses the _packages XML document.
func ParseManifest(raw []byte) (Manifest, error) {
	var doc xmlManifest

	if err := xml.Unmarshal(raw, &doc); err != nil {
		return Manifest{}, fmt.Errorf("%w: %w", ErrManifestInvalid, err)
	}

	m := Manifest{Entries: make([]ManifestEntry, 0, len(doc.Packages))}

	for _, p := range doc.Packages {
		if len(p.State) != 1 {
			return Manifest{}, fmt.Errorf("%w: package %q has invalid state %q", ErrManifestInvalid, p.Name, p.State)
		}

		state := EntryState(p.State[0])
		if !state.Valid() {
			return Manifest{}, fmt.Errorf("%w: package %q has invalid state %q", ErrManifestInvalid, p.Name, p.State)
		}

		m.Entries = append(m.Entries, ManifestEntry{Name: p.Name, State: state})
	}

	return m, nil
}

// FormatManifest renders the manifest as the _packages XML document.
func FormatManifest(m Manifest) []byte {
	doc := xmlManifest{Packages: make([]xmlPackageEntry, 0, len(m.Entries))}
	for _, e := range m.Entries {
		doc.Packages = append(doc.Packages, xmlPackageEntry{Name: e.Name, State: e.State.String()})
	}

	var buf bytes.Buffer

	if len(doc.Packages) == 0 {
		buf.WriteString("<packages/>\n")

		return buf.Bytes()
	}

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "")

	_ = enc.Encode(doc)
	_ = enc.Flush()
	buf.WriteString("\n")

	return buf.Bytes()
}

// ensureTrailingNewline is used when formatting single-line store files.
func ensureTrailingNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}

	return s + "\n"
}
