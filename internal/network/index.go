package network

// Index resolves line endpoints by substation name. It is built once per
// load; lookups are O(1).
type Index struct {
	byName map[string]Substation
}

// NewIndex builds the lookup table. When two substations share a name the
// first one wins.
func NewIndex(subs []Substation) *Index {
	idx := &Index{byName: make(map[string]Substation, len(subs))}
	for _, s := range subs {
		if _, exists := idx.byName[s.Name]; exists {
			continue
		}
		idx.byName[s.Name] = s
	}
	return idx
}

func (i *Index) Lookup(name string) (Substation, bool) {
	if i == nil {
		return Substation{}, false
	}
	s, ok := i.byName[name]
	return s, ok
}

func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.byName)
}

// Resolve returns both endpoints of a line. ok is false when either name is
// unknown.
func (i *Index) Resolve(l Line) (from, to Substation, ok bool) {
	from, fromOK := i.Lookup(l.FromBus)
	to, toOK := i.Lookup(l.ToBus)
	if !fromOK || !toOK {
		return Substation{}, Substation{}, false
	}
	return from, to, true
}

// FlatSubstations returns the flat document's substations in the order they
// were decoded. Documents built in memory have no such order and are returned
// by code.
func (d FlatDocument) FlatSubstations() []Substation {
	codes := d.order
	if len(codes) != len(d.Substations) {
		codes = d.SortedCodes()
	}
	out := make([]Substation, 0, len(codes))
	for _, code := range codes {
		s, ok := d.Substations[code]
		if !ok {
			return d.sortedSubstations()
		}
		out = append(out, s)
	}
	return out
}

func (d FlatDocument) sortedSubstations() []Substation {
	codes := d.SortedCodes()
	out := make([]Substation, 0, len(codes))
	for _, code := range codes {
		out = append(out, d.Substations[code])
	}
	return out
}
