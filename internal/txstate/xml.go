package txstate

import (
	"encoding/xml"

	"github.com/calvinalkan/oscwc/internal/store"
)

// xmlTransaction is the on-disk shape of a Record, written to the store's
// "_transaction" file. One <list> element per work-list (even when empty,
// so ListNames survives a round trip), one <state> per recorded final
// entry state, one <prior> per snapshotted starting state.
type xmlTransaction struct {
	XMLName    xml.Name       `xml:"transaction"`
	Kind       string         `xml:"kind,attr"`
	Phase      string         `xml:"phase,attr"`
	FirstPhase string         `xml:"first-phase,attr"`
	Location   string         `xml:"location,attr"`
	Lists      []xmlList      `xml:"list"`
	States     []xmlState     `xml:"state"`
	Priors     []xmlPrior     `xml:"prior"`
}

type xmlList struct {
	Name     string          `xml:"name,attr"`
	Packages []xmlPackageRef `xml:"package"`
}

type xmlPackageRef struct {
	Name string `xml:"name,attr"`
}

type xmlState struct {
	Package string `xml:"package,attr"`
	Deleted bool   `xml:"deleted,attr,omitempty"`
	Value   string `xml:"value,attr,omitempty"`
}

type xmlPrior struct {
	Package string `xml:"package,attr"`
	Value   string `xml:"value,attr"`
}

func toXML(r *Record) []byte {
	doc := xmlTransaction{
		Kind:       string(r.Kind),
		Phase:      r.Phase,
		FirstPhase: r.FirstPhase,
		Location:   r.Location,
	}

	for _, name := range r.ListNames {
		list := xmlList{Name: name}
		for _, pkg := range r.Lists[name] {
			list.Packages = append(list.Packages, xmlPackageRef{Name: pkg})
		}

		doc.Lists = append(doc.Lists, list)
	}

	for _, pkg := range sortedKeys(r.EntryStates) {
		state := r.EntryStates[pkg]
		if state == nil {
			doc.States = append(doc.States, xmlState{Package: pkg, Deleted: true})

			continue
		}

		doc.States = append(doc.States, xmlState{Package: pkg, Value: state.String()})
	}

	for _, pkg := range sortedPriorKeys(r.PriorStates) {
		doc.Priors = append(doc.Priors, xmlPrior{Package: pkg, Value: r.PriorStates[pkg].String()})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		// doc contains only strings and bytes; marshalling cannot fail.
		panic(err)
	}

	return append(out, '\n')
}

func fromXML(doc xmlTransaction) *Record {
	r := &Record{
		Kind:        Kind(doc.Kind),
		Phase:       doc.Phase,
		FirstPhase:  doc.FirstPhase,
		Location:    doc.Location,
		Lists:       map[string][]string{},
		EntryStates: map[string]*store.EntryState{},
		PriorStates: map[string]store.EntryState{},
	}

	for _, list := range doc.Lists {
		r.ListNames = append(r.ListNames, list.Name)

		names := make([]string, 0, len(list.Packages))
		for _, pkg := range list.Packages {
			names = append(names, pkg.Name)
		}

		r.Lists[list.Name] = names
	}

	for _, s := range doc.States {
		if s.Deleted {
			r.EntryStates[s.Package] = nil

			continue
		}

		state := store.EntryState(s.Value[0])
		r.EntryStates[s.Package] = &state
	}

	for _, p := range doc.Priors {
		r.PriorStates[p.Package] = store.EntryState(p.Value[0])
	}

	return r
}

func sortedKeys(m map[string]*store.EntryState) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	insertionSort(keys)

	return keys
}

func sortedPriorKeys(m map[string]store.EntryState) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	insertionSort(keys)

	return keys
}

// insertionSort keeps the XML output deterministic across runs without
// pulling in "sort" for what is always a small, short-lived list.
func insertionSort(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
