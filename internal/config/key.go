package config

import (
	"fmt"
	"regexp"
	"strings"
)

// bareKeyRegex matches TOML bare keys; anything else is written quoted.
var bareKeyRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Key addresses one configuration value. Section is "" for top-level keys and
// may itself be dotted ("target.x86_64-unknown-linux-gnu").
type Key struct {
	Section string
	Leaf    string
}

// ParseKey splits a dotted path: the last segment is the leaf, the segments
// before it, joined by ".", are the section. A path without "." is a
// top-level key. Empty paths and empty segments are rejected.
func ParseKey(path string) (Key, error) {
	if path == "" {
		return Key{}, fmt.Errorf("empty key")
	}
	segments := strings.Split(path, ".")
	for i, seg := range segments {
		if seg == "" {
			return Key{}, fmt.Errorf("key '%s' has an empty segment at position %d", path, i)
		}
	}
	last := len(segments) - 1
	return Key{Section: strings.Join(segments[:last], "."), Leaf: segments[last]}, nil
}

// Path joins the key back into dotted form.
func (k Key) Path() string {
	if k.Section == "" {
		return k.Leaf
	}
	return k.Section + "." + k.Leaf
}

func (k Key) String() string { return k.Path() }

// Segments returns every segment of the key, section segments first.
func (k Key) Segments() []string {
	return strings.Split(k.Path(), ".")
}

// sectionSegments splits a section name; the top level has none.
func sectionSegments(section string) []string {
	if section == "" {
		return nil
	}
	return strings.Split(section, ".")
}
