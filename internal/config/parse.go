package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	stage0errors "github.com/gxo-labs/stage0/pkg/stage0/v1/errors"
)

// Parse reads a TOML document. Nested tables become dotted section names;
// keys keep their order of appearance. Values must be bools, integers,
// strings or arrays of strings. sectionOrder sets the output order of the
// returned Document.
func Parse(data []byte, sectionOrder ...string) (*Document, error) {
	var raw map[string]any
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, stage0errors.NewConfigError("failed to parse TOML configuration", err)
	}

	doc := NewDocument(sectionOrder...)
	for _, tk := range md.Keys() {
		segments := []string(tk)
		switch typ := md.Type(segments...); typ {
		case "Hash":
			continue
		case "ArrayHash":
			return nil, stage0errors.NewConfigError(fmt.Sprintf("key '%s': arrays of tables are not supported", tk), nil)
		}

		for _, seg := range segments {
			if seg == "" || strings.Contains(seg, ".") {
				return nil, stage0errors.NewConfigError(fmt.Sprintf("key '%s': segment %q cannot be addressed as a dotted path", tk, seg), nil)
			}
		}

		v, err := valueFromNative(rawValue(raw, segments))
		if err != nil {
			return nil, stage0errors.NewConfigError(fmt.Sprintf("key '%s'", tk), err)
		}
		last := len(segments) - 1
		k := Key{Section: strings.Join(segments[:last], "."), Leaf: segments[last]}
		if err := doc.Set(k, v); err != nil {
			return nil, stage0errors.NewConfigError(fmt.Sprintf("key '%s'", tk), err)
		}
	}
	return doc, nil
}

// rawValue walks the decoded tables down to segments.
func rawValue(raw map[string]any, segments []string) any {
	table := raw
	for _, seg := range segments[:len(segments)-1] {
		next, ok := table[seg].(map[string]any)
		if !ok {
			return nil
		}
		table = next
	}
	return table[segments[len(segments)-1]]
}
