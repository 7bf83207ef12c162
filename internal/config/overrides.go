package config

import (
	"fmt"
	"strconv"
	"strings"

	stage0errors "github.com/gxo-labs/stage0/pkg/stage0/v1/errors"
)

// Origins of an applied assignment, reported to ApplyFunc.
const (
	OriginComposite = "composite"
	OriginFlag      = "flag"
	OriginSet       = "set"
)

// FlagSetting is one option or composite flag given on the command line.
// Value is "true"/"false" for bool flags, the argument for value flags, and
// ignored for composites.
type FlagSetting struct {
	Name  string
	Value string
}

// Overrides are the command-line inputs to ApplyOverrides. Flags are applied
// first, in order; Sets are raw --set arguments applied after every flag.
type Overrides struct {
	Flags []FlagSetting
	Sets  []string
}

// IsEmpty reports whether there is nothing to apply.
func (ov Overrides) IsEmpty() bool {
	return len(ov.Flags) == 0 && len(ov.Sets) == 0
}

// ApplyFunc observes each assignment as it is made.
type ApplyFunc func(origin string, k Key, v Value)

// ApplyOverrides returns a copy of base with ov applied. base is never
// modified. The first malformed override aborts with an *OverrideError.
func ApplyOverrides(base *Document, opts *Options, ov Overrides) (*Document, error) {
	return applyOverrides(base, opts, ov, nil)
}

func applyOverrides(base *Document, opts *Options, ov Overrides, observe ApplyFunc) (*Document, error) {
	var doc *Document
	switch {
	case base != nil:
		doc = base.Clone()
	case opts != nil:
		doc = NewDocument(opts.SectionOrder...)
	default:
		doc = NewDocument()
	}
	if opts == nil {
		opts = &Options{}
	}

	assign := func(origin, arg string, k Key, v Value) error {
		if err := doc.Set(k, v); err != nil {
			return stage0errors.NewOverrideError(arg, "cannot assign key", err)
		}
		if observe != nil {
			observe(origin, k, v)
		}
		return nil
	}

	for _, fs := range ov.Flags {
		if entries, ok := opts.Expansion(fs.Name); ok {
			for _, e := range entries {
				if err := assign(OriginComposite, "--enable-"+fs.Name, e.Key, e.Value); err != nil {
					return nil, err
				}
			}
			continue
		}
		flag, ok := opts.Flag(fs.Name)
		if !ok {
			return nil, stage0errors.NewOverrideError("--"+fs.Name, "unknown option", nil)
		}
		k, err := ParseKey(flag.Key)
		if err != nil {
			return nil, stage0errors.NewOverrideError("--"+fs.Name, "invalid key", err)
		}
		v, err := coerce(opts.TypeOf(k), fs.Value)
		if err != nil {
			return nil, stage0errors.NewOverrideError("--"+fs.Name+"="+fs.Value, err.Error(), nil)
		}
		if err := assign(OriginFlag, "--"+fs.Name, k, v); err != nil {
			return nil, err
		}
	}

	for _, arg := range ov.Sets {
		k, v, err := ParseOverride(arg, opts)
		if err != nil {
			return nil, err
		}
		if err := assign(OriginSet, arg, k, v); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// ParseOverride parses one --set argument: KEY=VALUE, or a bare KEY meaning
// true. The value is typed by the key's declared type in opts (which may be
// nil).
func ParseOverride(arg string, opts *Options) (Key, Value, error) {
	path, raw, hasValue := strings.Cut(arg, "=")
	if path == "" {
		return Key{}, Value{}, stage0errors.NewOverrideError(arg, "missing key", nil)
	}
	k, err := ParseKey(path)
	if err != nil {
		return Key{}, Value{}, stage0errors.NewOverrideError(arg, "invalid key", err)
	}

	typ := TypeAny
	if opts != nil {
		typ = opts.TypeOf(k)
	}
	if !hasValue {
		if typ != TypeAny && typ != TypeBool {
			return Key{}, Value{}, stage0errors.NewOverrideError(arg, fmt.Sprintf("key '%s' is a %s and needs a value", path, typ), nil)
		}
		return k, BoolValue(true), nil
	}

	v, err := coerce(typ, raw)
	if err != nil {
		return Key{}, Value{}, stage0errors.NewOverrideError(arg, err.Error(), nil)
	}
	return k, v, nil
}

// coerce converts the textual form of a value to typ. TypeAny maps "true"
// and "false" to bools and keeps everything else as a string; integers are
// only produced for keys declared int.
func coerce(typ Type, raw string) (Value, error) {
	switch typ {
	case TypeBool:
		switch raw {
		case "true":
			return BoolValue(true), nil
		case "false":
			return BoolValue(false), nil
		}
		return Value{}, fmt.Errorf("'%s' is not a boolean (want true or false)", raw)
	case TypeInt:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("'%s' is not an integer", raw)
		}
		return IntValue(i), nil
	case TypeList:
		return ListValue(splitList(raw)...), nil
	case TypeString:
		return StringValue(raw), nil
	default:
		switch raw {
		case "true":
			return BoolValue(true), nil
		case "false":
			return BoolValue(false), nil
		}
		return StringValue(raw), nil
	}
}

// splitList splits on "," keeping order and duplicates, dropping empty items.
func splitList(raw string) []string {
	items := make([]string, 0, strings.Count(raw, ",")+1)
	for _, item := range strings.Split(raw, ",") {
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
