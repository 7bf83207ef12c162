package checksum_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gxo-labs/stage0/internal/checksum"
	"github.com/gxo-labs/stage0/internal/logger"
	"github.com/gxo-labs/stage0/internal/metrics"
	stage0errors "github.com/gxo-labs/stage0/pkg/stage0/v1/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFile creates name under dir with content and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func sha256Hex(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func TestVerify_ValidFile(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "src.txt", "Hello world")

	ok, err := checksum.Verify(src, sha256Hex("Hello world"), false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.txt", "Hello!")

	ok, err := checksum.Verify(bad, sha256Hex("Hello world"), false)
	require.NoError(t, err, "a mismatch is not an error")
	assert.False(t, ok)
}

func TestVerify_SingleByteMutation(t *testing.T) {
	content := []byte("rust-std-1.72.0-x86_64-unknown-linux-gnu.tar.xz payload")
	expected := sha256Hex(string(content))
	dir := t.TempDir()

	for i := range content {
		mutated := bytes.Clone(content)
		mutated[i] ^= 0x01
		path := writeFile(t, dir, "artifact", string(mutated))

		ok, err := checksum.Verify(path, expected, false)
		require.NoError(t, err)
		assert.False(t, ok, "mutation at byte %d must not verify", i)
	}
}

func TestVerify_CaseInsensitiveExpected(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a", "abc")
	ok, err := checksum.Verify(path, "  "+strings.ToUpper(sha256Hex("abc"))+"\n", false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_MissingFilePropagates(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.tar.xz")

	ok, err := checksum.Verify(missing, sha256Hex(""), false)
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, stage0errors.IsNotFound(err))

	var ioErr *stage0errors.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, missing, ioErr.Path)
}

func TestVerifier_VerboseLogsMismatchOnly(t *testing.T) {
	var buf bytes.Buffer
	dir := t.TempDir()
	good := writeFile(t, dir, "good", "Hello world")
	v := &checksum.Verifier{Log: logger.NewLogger("info", "text", &buf), Verbose: true}

	ok, err := v.Verify(good, sha256Hex("Hello world"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, buf.String(), "no diagnostic on success")

	ok, err = v.Verify(good, sha256Hex("other"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "invalid checksum")
	assert.Contains(t, buf.String(), sha256Hex("other"))
	assert.Contains(t, buf.String(), sha256Hex("Hello world"))
}

func TestVerifier_QuietDoesNotLog(t *testing.T) {
	var buf bytes.Buffer
	path := writeFile(t, t.TempDir(), "f", "x")
	v := &checksum.Verifier{Log: logger.NewLogger("debug", "text", &buf)}

	ok, err := v.Verify(path, sha256Hex("y"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, buf.String())
}

func TestVerifier_CountsOutcomes(t *testing.T) {
	p := metrics.NewPrometheusRegistryProvider()
	dir := t.TempDir()
	path := writeFile(t, dir, "f", "x")
	v := &checksum.Verifier{Metrics: p}

	_, _ = v.Verify(path, sha256Hex("x"))
	_, _ = v.Verify(path, sha256Hex("y"))
	_, _ = v.Verify(filepath.Join(dir, "missing"), sha256Hex("x"))

	families, err := p.Registry().Gather()
	require.NoError(t, err)
	got := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "stage0_checksum_verifications_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			got[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"match": 1, "mismatch": 1, "error": 1}, got)
}

func TestFileAndBytesAgree(t *testing.T) {
	path := writeFile(t, t.TempDir(), "f", "stage0")
	digest, err := checksum.File(path)
	require.NoError(t, err)
	assert.Equal(t, checksum.Bytes([]byte("stage0")), digest)
	assert.Len(t, digest, 64)
}
