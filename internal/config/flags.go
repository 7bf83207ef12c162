package config

import (
	"strconv"

	"github.com/spf13/pflag"
)

// FlagBinder holds the pflag values registered for an option table.
type FlagBinder struct {
	opts       *Options
	fs         *pflag.FlagSet
	enable     map[string]*bool
	disable    map[string]*bool
	values     map[string]*string
	composites map[string]*bool
	sets       *[]string
}

// BindFlags registers the table's flags on fs: --enable-NAME and
// --disable-NAME for bool options, --NAME=VALUE for value options,
// --enable-NAME for composites, and a repeatable --set.
func (o *Options) BindFlags(fs *pflag.FlagSet) *FlagBinder {
	b := &FlagBinder{
		opts:       o,
		fs:         fs,
		enable:     make(map[string]*bool),
		disable:    make(map[string]*bool),
		values:     make(map[string]*string),
		composites: make(map[string]*bool),
	}
	for _, c := range o.Composites {
		b.composites[c.Name] = fs.Bool("enable-"+c.Name, false, c.Help)
	}
	for _, f := range o.Flags {
		if f.Value {
			b.values[f.Name] = fs.String(f.Name, "", f.Help)
			continue
		}
		b.enable[f.Name] = fs.Bool("enable-"+f.Name, false, f.Help)
		b.disable[f.Name] = fs.Bool("disable-"+f.Name, false, "disable: "+f.Help)
	}
	b.sets = fs.StringArray("set", nil, "set arbitrary key/value pairs (KEY=VALUE, or KEY for true)")
	return b
}

// Overrides collects the flags given on the command line. Composites come
// first, then option flags in table order, so a single option can refine a
// composite. --disable-NAME wins over --enable-NAME.
func (b *FlagBinder) Overrides() Overrides {
	var ov Overrides
	for _, c := range b.opts.Composites {
		if b.fs.Changed("enable-"+c.Name) && *b.composites[c.Name] {
			ov.Flags = append(ov.Flags, FlagSetting{Name: c.Name})
		}
	}
	for _, f := range b.opts.Flags {
		if f.Value {
			if b.fs.Changed(f.Name) {
				ov.Flags = append(ov.Flags, FlagSetting{Name: f.Name, Value: *b.values[f.Name]})
			}
			continue
		}
		switch {
		case b.fs.Changed("disable-"+f.Name) && *b.disable[f.Name]:
			ov.Flags = append(ov.Flags, FlagSetting{Name: f.Name, Value: strconv.FormatBool(false)})
		case b.fs.Changed("enable-"+f.Name):
			ov.Flags = append(ov.Flags, FlagSetting{Name: f.Name, Value: strconv.FormatBool(*b.enable[f.Name])})
		}
	}
	ov.Sets = append(ov.Sets, *b.sets...)
	return ov
}
