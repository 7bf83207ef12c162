package config

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Entry is one key/value pair of a Document.
type Entry struct {
	Key   Key
	Value Value
}

// section holds the keys of one table in insertion order.
type section struct {
	name   string
	keys   []string
	values map[string]Value
}

func newSection(name string) *section {
	return &section{name: name, values: make(map[string]Value)}
}

// Document is an ordered, sectioned configuration. Top-level keys come first;
// named sections follow in the declared section order. A Document is not safe
// for concurrent mutation.
type Document struct {
	// order is the declared section order, e.g. llvm, build, rust, target.
	order []string
	// top holds sectionless keys.
	top *section
	// sections holds named sections in insertion order.
	sections []*section
	index    map[string]*section
}

// NewDocument returns an empty Document whose sections are written in
// sectionOrder. Sections not listed are written after the listed ones.
func NewDocument(sectionOrder ...string) *Document {
	return &Document{
		order: slices.Clone(sectionOrder),
		top:   newSection(""),
		index: make(map[string]*section),
	}
}

// SectionOrder returns the declared section order.
func (d *Document) SectionOrder() []string {
	return slices.Clone(d.order)
}

// Set assigns v to k, replacing any previous value for the same key. Setting
// an absent Value removes the key. A key whose path is a prefix of another
// key's path (a value where a table is needed, or the reverse) is rejected,
// since it could not be written as TOML.
func (d *Document) Set(k Key, v Value) error {
	if k.Leaf == "" {
		return fmt.Errorf("key has an empty leaf name")
	}
	if v.IsAbsent() {
		d.Unset(k)
		return nil
	}
	if other, ok := d.conflict(k); ok {
		return fmt.Errorf("key '%s' conflicts with existing key '%s'", k.Path(), other.Path())
	}

	s := d.section(k.Section, true)
	if _, exists := s.values[k.Leaf]; !exists {
		s.keys = append(s.keys, k.Leaf)
	}
	s.values[k.Leaf] = v
	return nil
}

// Unset removes k and reports whether it was present. Sections left empty are
// dropped.
func (d *Document) Unset(k Key) bool {
	s := d.section(k.Section, false)
	if s == nil {
		return false
	}
	if _, exists := s.values[k.Leaf]; !exists {
		return false
	}
	delete(s.values, k.Leaf)
	s.keys = slices.DeleteFunc(s.keys, func(leaf string) bool { return leaf == k.Leaf })
	if len(s.keys) == 0 && s.name != "" {
		delete(d.index, s.name)
		d.sections = slices.DeleteFunc(d.sections, func(x *section) bool { return x == s })
	}
	return true
}

// Lookup returns the value of leaf in section, or in the top-level keys when
// section is "". There is no fallback between the two. The boolean is false
// when the key is not set.
func (d *Document) Lookup(leaf, section string) (Value, bool) {
	s := d.section(section, false)
	if s == nil {
		return Value{}, false
	}
	v, ok := s.values[leaf]
	return v, ok
}

// LookupKey is Lookup for a parsed Key.
func (d *Document) LookupKey(k Key) (Value, bool) {
	return d.Lookup(k.Leaf, k.Section)
}

// LookupPath parses a dotted path with ParseKey and looks it up. Malformed
// paths are simply not found.
func (d *Document) LookupPath(path string) (Value, bool) {
	k, err := ParseKey(path)
	if err != nil {
		return Value{}, false
	}
	return d.LookupKey(k)
}

// Keys returns the leaf names of section in insertion order.
func (d *Document) Keys(section string) []string {
	s := d.section(section, false)
	if s == nil {
		return nil
	}
	return slices.Clone(s.keys)
}

// Sections returns the names of all non-empty named sections in output order.
func (d *Document) Sections() []string {
	ordered := d.orderedSections()
	names := make([]string, 0, len(ordered))
	for _, s := range ordered {
		names = append(names, s.name)
	}
	return names
}

// Entries returns every key/value pair in output order.
func (d *Document) Entries() []Entry {
	var entries []Entry
	appendSection := func(s *section) {
		for _, leaf := range s.keys {
			entries = append(entries, Entry{Key: Key{Section: s.name, Leaf: leaf}, Value: s.values[leaf]})
		}
	}
	appendSection(d.top)
	for _, s := range d.orderedSections() {
		appendSection(s)
	}
	return entries
}

// Len returns the number of keys set.
func (d *Document) Len() int {
	n := len(d.top.keys)
	for _, s := range d.sections {
		n += len(s.keys)
	}
	return n
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	c := NewDocument(d.order...)
	for _, e := range d.Entries() {
		// Entries of a valid Document never conflict with each other.
		_ = c.Set(e.Key, e.Value)
	}
	return c
}

// section returns the named section, creating it when create is set.
func (d *Document) section(name string, create bool) *section {
	if name == "" {
		return d.top
	}
	if s, ok := d.index[name]; ok {
		return s
	}
	if !create {
		return nil
	}
	s := newSection(name)
	d.index[name] = s
	d.sections = append(d.sections, s)
	return s
}

// conflict finds an existing key whose segment path is a strict prefix of
// k's path, or has k's path as a strict prefix.
func (d *Document) conflict(k Key) (Key, bool) {
	want := k.Segments()
	for _, e := range d.Entries() {
		have := e.Key.Segments()
		if len(have) == len(want) {
			continue
		}
		shorter, longer := have, want
		if len(want) < len(have) {
			shorter, longer = want, have
		}
		if slices.Equal(shorter, longer[:len(shorter)]) {
			return e.Key, true
		}
	}
	return Key{}, false
}

// slot returns the position of a section in the declared order: an exact
// match first, then its first segment (so target.<triple> sits at the
// "target" slot), then after every declared section.
func (d *Document) slot(name string) int {
	if i := slices.Index(d.order, name); i >= 0 {
		return i
	}
	first, _, _ := strings.Cut(name, ".")
	if i := slices.Index(d.order, first); i >= 0 {
		return i
	}
	return len(d.order)
}

// orderedSections returns non-empty named sections sorted by slot, keeping
// insertion order within a slot.
func (d *Document) orderedSections() []*section {
	ordered := make([]*section, 0, len(d.sections))
	for _, s := range d.sections {
		if len(s.keys) > 0 {
			ordered = append(ordered, s)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return d.slot(ordered[i].name) < d.slot(ordered[j].name)
	})
	return ordered
}

// toMap converts d into nested maps keyed by segment, the shape a TOML or
// JSON reader would produce.
func (d *Document) toMap() map[string]any {
	root := make(map[string]any)
	for _, e := range d.Entries() {
		table := root
		for _, seg := range sectionSegments(e.Key.Section) {
			next, ok := table[seg].(map[string]any)
			if !ok {
				next = make(map[string]any)
				table[seg] = next
			}
			table = next
		}
		table[e.Key.Leaf] = e.Value.native()
	}
	return root
}
