package config_test

import (
	"io"
	"testing"

	"github.com/gxo-labs/stage0/internal/config"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseConfigureFlags(t *testing.T, args ...string) (*config.Options, config.Overrides) {
	t.Helper()
	opts := defaultOptions(t)
	fs := pflag.NewFlagSet("configure", pflag.ContinueOnError)
	binder := opts.BindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return opts, binder.Overrides()
}

func TestBindFlags_NothingGiven(t *testing.T) {
	_, ov := parseConfigureFlags(t)
	assert.True(t, ov.IsEmpty())
}

func TestBindFlags_CollectsInOrder(t *testing.T) {
	opts, ov := parseConfigureFlags(t,
		"--set", "rust.codegen-backends=cranelift",
		"--prefix=/opt/rust",
		"--disable-lld",
		"--enable-full-tools",
		"--set=llvm.download-ci-llvm",
	)

	assert.Equal(t, []config.FlagSetting{
		{Name: "full-tools"},
		{Name: "lld", Value: "false"},
		{Name: "prefix", Value: "/opt/rust"},
	}, ov.Flags)
	assert.Equal(t, []string{"rust.codegen-backends=cranelift", "llvm.download-ci-llvm"}, ov.Sets)

	doc, err := config.ApplyOverrides(opts.Baseline(), opts, ov)
	require.NoError(t, err)
	assert.Equal(t, "false", lookup(t, doc, "lld", "rust"), "a single option refines the composite")
	assert.Equal(t, "cranelift", lookup(t, doc, "codegen-backends", "rust"), "--set wins over flags")
	assert.Equal(t, "true", lookup(t, doc, "extended", "build"))
	assert.Equal(t, "/opt/rust", lookup(t, doc, "prefix", "install"))
	assert.Equal(t, "true", lookup(t, doc, "download-ci-llvm", "llvm"))
}

func TestBindFlags_DisableWins(t *testing.T) {
	_, ov := parseConfigureFlags(t, "--enable-debug", "--disable-debug")
	assert.Equal(t, []config.FlagSetting{{Name: "debug", Value: "false"}}, ov.Flags)
}

func TestBindFlags_ExplicitFalse(t *testing.T) {
	_, ov := parseConfigureFlags(t, "--enable-ccache=false", "--disable-vendor=false")
	assert.Equal(t, []config.FlagSetting{{Name: "ccache", Value: "false"}}, ov.Flags)
}

func TestBindFlags_UnknownFlag(t *testing.T) {
	opts := defaultOptions(t)
	fs := pflag.NewFlagSet("configure", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	opts.BindFlags(fs)
	assert.Error(t, fs.Parse([]string{"--enable-warp-drive"}))
}
