// Package checksum verifies downloaded toolchain artifacts against a
// known-good SHA-256 digest.
//
// A mismatch is an expected outcome, reported as false rather than an error;
// the caller decides whether to download again. Only failures to read the
// artifact are errors.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gxo-labs/stage0/internal/logger"
	"github.com/gxo-labs/stage0/internal/metrics"
	stage0errors "github.com/gxo-labs/stage0/pkg/stage0/v1/errors"
	stage0log "github.com/gxo-labs/stage0/pkg/stage0/v1/log"
)

// File returns the lowercase hex SHA-256 digest of the file at path. The file
// is streamed through the hash so large tarballs are not held in memory.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", stage0errors.NewIOError("open", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", stage0errors.NewIOError("read", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Bytes returns the lowercase hex SHA-256 digest of b.
func Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Matches reports whether actual and expected name the same digest. Case and
// surrounding whitespace in expected are ignored.
func Matches(actual, expected string) bool {
	return strings.EqualFold(actual, strings.TrimSpace(expected))
}

// Verify reports whether the SHA-256 of the file at path equals expected.
// When verbose is set, a mismatch is logged to stderr with both digests.
func Verify(path, expected string, verbose bool) (bool, error) {
	v := &Verifier{Verbose: verbose}
	if verbose {
		v.Log = logger.NewDefaultLogger("info")
	}
	return v.Verify(path, expected)
}

// Verifier bundles the collaborators used while verifying artifacts. The zero
// value is usable and silent.
type Verifier struct {
	// Log receives mismatch diagnostics when Verbose is set.
	Log stage0log.Logger
	// Verbose enables expected/actual diagnostics on mismatch.
	Verbose bool
	// Metrics, when set, counts verification outcomes.
	Metrics *metrics.PrometheusRegistryProvider
}

// Verify hashes path and compares it with expected. The boolean is never
// influenced by logging.
func (v *Verifier) Verify(path, expected string) (bool, error) {
	actual, err := File(path)
	if err != nil {
		v.count(metrics.ResultError)
		return false, err
	}

	if Matches(actual, expected) {
		v.count(metrics.ResultMatch)
		return true, nil
	}

	v.count(metrics.ResultMismatch)
	if v.Verbose {
		logger.OrDiscard(v.Log).Log(slog.LevelWarn, "invalid checksum",
			"path", path,
			"expected", strings.ToLower(strings.TrimSpace(expected)),
			"found", actual,
		)
	}
	return false, nil
}

func (v *Verifier) count(result string) {
	if v.Metrics != nil {
		v.Metrics.Verifications.WithLabelValues(result).Inc()
	}
}
