package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	stage0errors "github.com/gxo-labs/stage0/pkg/stage0/v1/errors"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// SupportedOptionsVersion is the major version of option tables this build
// understands.
const SupportedOptionsVersion = "v1"

//go:embed options.yaml
var defaultOptionsYAML []byte

// Type is the declared type of a configuration key.
type Type string

const (
	TypeAny    Type = ""
	TypeBool   Type = "bool"
	TypeInt    Type = "int"
	TypeString Type = "string"
	TypeList   Type = "list"
)

// Assignment is one key/value pair in the option table.
type Assignment struct {
	Key   string `yaml:"key"`
	Value any    `yaml:"value"`
}

// Flag maps a command-line option onto one configuration key. Bool flags
// become --enable-NAME and --disable-NAME; value flags become --NAME=VALUE.
type Flag struct {
	Name  string `yaml:"name"`
	Key   string `yaml:"key"`
	Value bool   `yaml:"value,omitempty"`
	Help  string `yaml:"help"`
}

// Composite is an --enable-NAME flag with a fixed expansion into several
// assignments.
type Composite struct {
	Name string       `yaml:"name"`
	Help string       `yaml:"help"`
	Set  []Assignment `yaml:"set"`
}

// Options is the immutable option table: section order, baseline defaults,
// declared key types and the flags that feed overrides. Treat a loaded
// Options as read-only.
type Options struct {
	SchemaVersion string          `yaml:"schemaVersion"`
	SectionOrder  []string        `yaml:"sectionOrder"`
	Defaults      []Assignment    `yaml:"defaults"`
	Types         map[string]Type `yaml:"types"`
	Flags         []Flag          `yaml:"flags"`
	Composites    []Composite     `yaml:"composites"`

	baseline   *Document
	expansions map[string][]Entry
}

var (
	defaultOptions     *Options
	defaultOptionsOnce sync.Once
	defaultOptionsErr  error
)

// DefaultOptions returns the embedded option table, loaded once.
func DefaultOptions() (*Options, error) {
	defaultOptionsOnce.Do(func() {
		defaultOptions, defaultOptionsErr = LoadOptions(defaultOptionsYAML)
	})
	return defaultOptions, defaultOptionsErr
}

// LoadOptions decodes and checks an option table. Unknown fields, an
// incompatible schemaVersion, unknown types, malformed keys and defaults or
// expansions that do not fit their declared type are all errors.
func LoadOptions(data []byte) (*Options, error) {
	if len(data) == 0 {
		return nil, stage0errors.NewConfigError("option table cannot be empty", nil)
	}

	var opts Options
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&opts); err != nil {
		return nil, stage0errors.NewConfigError("failed to parse option table", err)
	}

	version := opts.SchemaVersion
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	if !semver.IsValid(version) {
		return nil, stage0errors.NewValidationError(fmt.Sprintf("option table has invalid schemaVersion '%s'", opts.SchemaVersion), nil)
	}
	if semver.Major(version) != SupportedOptionsVersion {
		return nil, stage0errors.NewValidationError(
			fmt.Sprintf("option table schemaVersion '%s' is not compatible with '%s'", opts.SchemaVersion, SupportedOptionsVersion), nil)
	}

	if err := opts.check(); err != nil {
		return nil, err
	}
	return &opts, nil
}

// check validates the table and precomputes the baseline and expansions.
func (o *Options) check() error {
	for pattern, typ := range o.Types {
		switch typ {
		case TypeBool, TypeInt, TypeString, TypeList:
		default:
			return stage0errors.NewValidationError(fmt.Sprintf("option table declares unknown type '%s' for '%s'", typ, pattern), nil)
		}
	}

	o.baseline = NewDocument(o.SectionOrder...)
	for _, a := range o.Defaults {
		k, v, err := o.typedAssignment(a)
		if err != nil {
			return stage0errors.NewValidationError("invalid default", err)
		}
		if err := o.baseline.Set(k, v); err != nil {
			return stage0errors.NewValidationError("invalid default", err)
		}
	}

	seen := make(map[string]bool)
	for _, f := range o.Flags {
		if f.Name == "" || seen[f.Name] {
			return stage0errors.NewValidationError(fmt.Sprintf("flag name '%s' is empty or duplicated", f.Name), nil)
		}
		seen[f.Name] = true
		if _, err := ParseKey(f.Key); err != nil {
			return stage0errors.NewValidationError(fmt.Sprintf("flag '%s'", f.Name), err)
		}
	}

	o.expansions = make(map[string][]Entry, len(o.Composites))
	for _, c := range o.Composites {
		if c.Name == "" || seen[c.Name] {
			return stage0errors.NewValidationError(fmt.Sprintf("composite name '%s' is empty or duplicated", c.Name), nil)
		}
		seen[c.Name] = true
		for _, a := range c.Set {
			k, v, err := o.typedAssignment(a)
			if err != nil {
				return stage0errors.NewValidationError(fmt.Sprintf("composite '%s'", c.Name), err)
			}
			o.expansions[c.Name] = append(o.expansions[c.Name], Entry{Key: k, Value: v})
		}
	}
	return nil
}

// typedAssignment converts a table assignment into a Key and a Value that
// fits the key's declared type.
func (o *Options) typedAssignment(a Assignment) (Key, Value, error) {
	k, err := ParseKey(a.Key)
	if err != nil {
		return Key{}, Value{}, err
	}
	v, err := valueFromNative(a.Value)
	if err != nil {
		return Key{}, Value{}, fmt.Errorf("key '%s': %w", a.Key, err)
	}
	if typ := o.TypeOf(k); typ != TypeAny && Type(v.Kind().String()) != typ {
		return Key{}, Value{}, fmt.Errorf("key '%s' is declared %s but the table gives a %s", a.Key, typ, v.Kind())
	}
	return k, v, nil
}

// Baseline returns a fresh copy of the default document. Callers may mutate
// it freely.
func (o *Options) Baseline() *Document {
	if o.baseline == nil {
		return NewDocument(o.SectionOrder...)
	}
	return o.baseline.Clone()
}

// TypeOf returns the declared type of k, or TypeAny when undeclared. Exact
// declarations win over wildcard patterns.
func (o *Options) TypeOf(k Key) Type {
	path := k.Path()
	if typ, ok := o.Types[path]; ok {
		return typ
	}
	segments := k.Segments()
	for pattern, typ := range o.Types {
		if matchPattern(strings.Split(pattern, "."), segments) {
			return typ
		}
	}
	return TypeAny
}

// Flag returns the bool or value flag named name.
func (o *Options) Flag(name string) (Flag, bool) {
	for _, f := range o.Flags {
		if f.Name == name {
			return f, true
		}
	}
	return Flag{}, false
}

// Expansion returns the fixed assignments of the composite named name.
func (o *Options) Expansion(name string) ([]Entry, bool) {
	entries, ok := o.expansions[name]
	return entries, ok
}

// matchPattern reports whether segments match pattern segment by segment,
// with "*" matching any single segment.
func matchPattern(pattern, segments []string) bool {
	if len(pattern) != len(segments) {
		return false
	}
	for i, p := range pattern {
		if p != "*" && p != segments[i] {
			return false
		}
	}
	return true
}

// valueFromNative converts a decoded YAML/TOML value into a Value.
func valueFromNative(raw any) (Value, error) {
	switch x := raw.(type) {
	case bool:
		return BoolValue(x), nil
	case int:
		return IntValue(int64(x)), nil
	case int64:
		return IntValue(x), nil
	case string:
		return StringValue(x), nil
	case []any:
		items := make([]string, 0, len(x))
		for i, item := range x {
			s, ok := item.(string)
			if !ok {
				return Value{}, fmt.Errorf("list element %d is %T, want string", i, item)
			}
			items = append(items, s)
		}
		return ListValue(items...), nil
	case []string:
		return ListValue(x...), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}
