package config_test

import (
	"errors"
	"testing"

	"github.com/gxo-labs/stage0/internal/config"
	stage0errors "github.com/gxo-labs/stage0/pkg/stage0/v1/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultOptions(t *testing.T) *config.Options {
	t.Helper()
	opts, err := config.DefaultOptions()
	require.NoError(t, err)
	return opts
}

// configure applies --set arguments to the default baseline.
func configure(t *testing.T, sets ...string) *config.Document {
	t.Helper()
	opts := defaultOptions(t)
	doc, err := config.ApplyOverrides(opts.Baseline(), opts, config.Overrides{Sets: sets})
	require.NoError(t, err)
	return doc
}

func lookup(t *testing.T, doc *config.Document, leaf, section string) string {
	t.Helper()
	v, ok := doc.Lookup(leaf, section)
	require.True(t, ok, "expected %s in section %q", leaf, section)
	return v.String()
}

func TestApplyOverrides_Defaults(t *testing.T) {
	doc := configure(t)

	assert.Equal(t, "2", lookup(t, doc, "changelog-seen", ""))
	assert.Equal(t, "user", lookup(t, doc, "profile", ""))
	_, ok := doc.Lookup("download-ci-llvm", "llvm")
	assert.False(t, ok)
}

func TestApplyOverrides_SectionBoolShorthand(t *testing.T) {
	doc := configure(t, "llvm.download-ci-llvm")

	assert.Equal(t, "true", lookup(t, doc, "download-ci-llvm", "llvm"))
	v, _ := doc.Lookup("download-ci-llvm", "llvm")
	b, ok := v.Bool()
	assert.True(t, ok)
	assert.True(t, b)
}

func TestApplyOverrides_TargetSection(t *testing.T) {
	doc := configure(t, "target.x86_64-unknown-linux-gnu.cc=gcc")
	assert.Equal(t, "gcc", lookup(t, doc, "cc", "target.x86_64-unknown-linux-gnu"))
}

func TestApplyOverrides_TopLevel(t *testing.T) {
	doc := configure(t, "profile=compiler")
	assert.Equal(t, "compiler", lookup(t, doc, "profile", ""))
}

func TestApplyOverrides_ListKeepsOrder(t *testing.T) {
	doc := configure(t, "rust.codegen-backends=cranelift,llvm,cranelift")

	v, ok := doc.Lookup("codegen-backends", "rust")
	require.True(t, ok)
	list, ok := v.List()
	require.True(t, ok)
	assert.Equal(t, []string{"cranelift", "llvm", "cranelift"}, list, "no sorting, no dedup")
}

func TestApplyOverrides_ListDropsEmptyItems(t *testing.T) {
	doc := configure(t, "build.target=a,,b,", "build.tools=")

	target, _ := doc.Lookup("target", "build")
	list, _ := target.List()
	assert.Equal(t, []string{"a", "b"}, list)

	tools, ok := doc.Lookup("tools", "build")
	require.True(t, ok)
	assert.Equal(t, config.KindList, tools.Kind())
	list, _ = tools.List()
	assert.Empty(t, list)
}

func TestApplyOverrides_DeclaredTypes(t *testing.T) {
	doc := configure(t, "llvm.link-jobs=4", "install.prefix=123", "rust.debug=false")

	jobs, _ := doc.Lookup("link-jobs", "llvm")
	assert.Equal(t, config.KindInt, jobs.Kind())

	prefix, _ := doc.Lookup("prefix", "install")
	assert.Equal(t, config.KindString, prefix.Kind(), "declared strings are never inferred")
	assert.Equal(t, "123", prefix.String())

	debug, _ := doc.Lookup("debug", "rust")
	b, ok := debug.Bool()
	assert.True(t, ok)
	assert.False(t, b)
}

func TestApplyOverrides_InferredTypes(t *testing.T) {
	doc := configure(t, "extra.count=12", "extra.name=hello", "extra.off=false", "extra.empty=")

	testCases := []struct {
		leaf string
		kind config.Kind
	}{
		{"count", config.KindString},
		{"name", config.KindString},
		{"off", config.KindBool},
		{"empty", config.KindString},
	}
	for _, tc := range testCases {
		v, ok := doc.Lookup(tc.leaf, "extra")
		require.True(t, ok, tc.leaf)
		assert.Equal(t, tc.kind, v.Kind(), tc.leaf)
	}
}

func TestApplyOverrides_UndeclaredNumbersStayStrings(t *testing.T) {
	doc := configure(t, "llvm.version-suffix=007", "rust.description=2024")

	assert.Equal(t, "007", lookup(t, doc, "version-suffix", "llvm"))
	suffix, _ := doc.Lookup("version-suffix", "llvm")
	assert.Equal(t, config.KindString, suffix.Kind())

	out := string(config.Serialize(doc))
	assert.Contains(t, out, "version-suffix = '007'\n")
	assert.Contains(t, out, "description = '2024'\n")

	parsed := roundTrip(t, doc)
	assert.Equal(t, "007", lookup(t, parsed, "version-suffix", "llvm"))

	jobs, _ := configure(t, "llvm.link-jobs=007").Lookup("link-jobs", "llvm")
	assert.Equal(t, config.KindInt, jobs.Kind(), "declared ints are still parsed")
	assert.Equal(t, "7", jobs.String())
}

func TestApplyOverrides_LaterSetWins(t *testing.T) {
	doc := configure(t, "profile=compiler", "profile=library")
	assert.Equal(t, "library", lookup(t, doc, "profile", ""))
}

func TestApplyOverrides_Idempotent(t *testing.T) {
	sets := []string{"llvm.download-ci-llvm", "rust.codegen-backends=cranelift,llvm", "profile=compiler"}
	once := configure(t, sets...)
	twice := configure(t, append(sets, sets...)...)
	assert.Equal(t, string(config.Serialize(once)), string(config.Serialize(twice)))

	opts := defaultOptions(t)
	again, err := config.ApplyOverrides(once, opts, config.Overrides{Sets: sets})
	require.NoError(t, err)
	assert.Equal(t, string(config.Serialize(once)), string(config.Serialize(again)))
}

func TestApplyOverrides_BaseIsNotMutated(t *testing.T) {
	opts := defaultOptions(t)
	base := opts.Baseline()

	_, err := config.ApplyOverrides(base, opts, config.Overrides{Sets: []string{"llvm.download-ci-llvm", "profile=compiler"}})
	require.NoError(t, err)

	assert.Equal(t, 2, base.Len())
	assert.Equal(t, "user", lookup(t, base, "profile", ""))
	_, ok := base.Lookup("download-ci-llvm", "llvm")
	assert.False(t, ok)
}

func TestApplyOverrides_AlternateBaseline(t *testing.T) {
	opts := defaultOptions(t)
	base := config.NewDocument(opts.SectionOrder...)
	require.NoError(t, base.Set(config.Key{Leaf: "profile"}, config.StringValue("dist")))

	doc, err := config.ApplyOverrides(base, opts, config.Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "dist", lookup(t, doc, "profile", ""))
	_, ok := doc.Lookup("changelog-seen", "")
	assert.False(t, ok)
}

func TestApplyOverrides_FullTools(t *testing.T) {
	opts := defaultOptions(t)
	doc, err := config.ApplyOverrides(opts.Baseline(), opts, config.Overrides{
		Flags: []config.FlagSetting{{Name: "full-tools"}},
	})
	require.NoError(t, err)

	v, _ := doc.Lookup("codegen-backends", "rust")
	list, ok := v.List()
	require.True(t, ok)
	assert.Equal(t, []string{"llvm"}, list)
	assert.Equal(t, "true", lookup(t, doc, "lld", "rust"))
	assert.Equal(t, "true", lookup(t, doc, "llvm-tools", "rust"))
	assert.Equal(t, "true", lookup(t, doc, "extended", "build"))
}

func TestApplyOverrides_ExplicitSetBeatsComposite(t *testing.T) {
	opts := defaultOptions(t)
	doc, err := config.ApplyOverrides(opts.Baseline(), opts, config.Overrides{
		Flags: []config.FlagSetting{{Name: "full-tools"}},
		Sets:  []string{"rust.codegen-backends=cranelift,llvm"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cranelift,llvm", lookup(t, doc, "codegen-backends", "rust"))
	assert.Equal(t, "true", lookup(t, doc, "lld", "rust"))
}

func TestApplyOverrides_OptionFlags(t *testing.T) {
	opts := defaultOptions(t)
	doc, err := config.ApplyOverrides(opts.Baseline(), opts, config.Overrides{
		Flags: []config.FlagSetting{
			{Name: "debug", Value: "true"},
			{Name: "prefix", Value: "/opt/rust"},
			{Name: "host", Value: "x86_64-unknown-linux-gnu,aarch64-unknown-linux-gnu"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "true", lookup(t, doc, "debug", "rust"))
	assert.Equal(t, "/opt/rust", lookup(t, doc, "prefix", "install"))
	assert.Equal(t, "x86_64-unknown-linux-gnu,aarch64-unknown-linux-gnu", lookup(t, doc, "host", "build"))
}

func TestApplyOverrides_Malformed(t *testing.T) {
	opts := defaultOptions(t)
	testCases := []struct {
		name string
		ov   config.Overrides
		arg  string
	}{
		{"missing key", config.Overrides{Sets: []string{"=x"}}, "=x"},
		{"empty segment", config.Overrides{Sets: []string{"llvm..ccache=true"}}, "llvm..ccache=true"},
		{"bad bool", config.Overrides{Sets: []string{"rust.debug=yes"}}, "rust.debug=yes"},
		{"bad int", config.Overrides{Sets: []string{"llvm.link-jobs=four"}}, "llvm.link-jobs=four"},
		{"list needs value", config.Overrides{Sets: []string{"rust.codegen-backends"}}, "rust.codegen-backends"},
		{"value over table", config.Overrides{Sets: []string{"llvm.ccache", "llvm=1"}}, "llvm=1"},
		{"table over value", config.Overrides{Sets: []string{"llvm.ccache", "llvm.ccache.x=1"}}, "llvm.ccache.x=1"},
		{"unknown flag", config.Overrides{Flags: []config.FlagSetting{{Name: "nope", Value: "true"}}}, "--nope"},
		{"bad flag value", config.Overrides{Flags: []config.FlagSetting{{Name: "debug", Value: "maybe"}}}, "--debug=maybe"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := config.ApplyOverrides(opts.Baseline(), opts, tc.ov)
			require.Error(t, err)
			assert.Nil(t, doc)

			var overrideErr *stage0errors.OverrideError
			require.True(t, errors.As(err, &overrideErr), "expected *OverrideError, got %T", err)
			assert.Equal(t, tc.arg, overrideErr.Arg)
		})
	}
}

func TestParseOverride_WithoutOptions(t *testing.T) {
	k, v, err := config.ParseOverride("rust.codegen-backends=cranelift,llvm", nil)
	require.NoError(t, err)
	assert.Equal(t, "rust", k.Section)
	assert.Equal(t, config.KindString, v.Kind(), "undeclared keys never become lists")

	_, v, err = config.ParseOverride("anything", nil)
	require.NoError(t, err)
	assert.True(t, v.Equal(config.BoolValue(true)))
}
