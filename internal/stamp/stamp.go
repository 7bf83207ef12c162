// Package stamp decides whether a cached build product is out of date by
// comparing a persisted stamp record with the identity the current build
// requires.
//
// A stamp file holds exactly one record and nothing else: the snapshot date
// followed by an optional discriminator (typically a target triple), or the
// literal "None" when there is no discriminator. The record is rewritten in
// full after every successful build step. Stamps give no mutual exclusion
// between two bootstrap runs sharing a build directory.
package stamp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	stage0errors "github.com/gxo-labs/stage0/pkg/stage0/v1/errors"
)

// NoneSentinel is written in place of an absent discriminator.
const NoneSentinel = "None"

// dateLayout is the layout of the identity date at the start of a record.
const dateLayout = "2006-01-02"

// ErrSentinelDiscriminator is returned by NewKey for a discriminator that
// would be indistinguishable from an absent one once written.
var ErrSentinelDiscriminator = errors.New("discriminator must not equal the None sentinel")

// Key is the identity of a build product. Two keys are equal when every field
// is equal; an absent discriminator never equals a present one.
type Key struct {
	Date             string
	Discriminator    string
	HasDiscriminator bool
}

// NewKey builds a key from a date and an optional discriminator. An empty
// discriminator means absent.
func NewKey(date, discriminator string) (Key, error) {
	if discriminator == NoneSentinel {
		return Key{}, ErrSentinelDiscriminator
	}
	return Key{Date: date, Discriminator: discriminator, HasDiscriminator: discriminator != ""}, nil
}

// Encode renders the persisted record: the date immediately followed by the
// discriminator or NoneSentinel.
func (k Key) Encode() string {
	if k.HasDiscriminator {
		return k.Date + k.Discriminator
	}
	return k.Date + NoneSentinel
}

func (k Key) String() string { return k.Encode() }

// Equal compares keys field by field.
func (k Key) Equal(o Key) bool {
	if k.Date != o.Date || k.HasDiscriminator != o.HasDiscriminator {
		return false
	}
	return !k.HasDiscriminator || k.Discriminator == o.Discriminator
}

// Decode splits a persisted record into a Key. It succeeds only when the
// record starts with a YYYY-MM-DD date; the remainder is the discriminator,
// with NoneSentinel meaning absent. Records written for keys whose date is
// longer than a plain date do not decode back to the same key.
func Decode(record string) (Key, bool) {
	if len(record) < len(dateLayout) {
		return Key{}, false
	}
	date := record[:len(dateLayout)]
	if !isPlainDate(date) {
		return Key{}, false
	}
	rest := record[len(dateLayout):]
	if rest == NoneSentinel {
		return Key{Date: date}, true
	}
	return Key{Date: date, Discriminator: rest, HasDiscriminator: true}, true
}

// Path returns the conventional stamp location for a component built in
// stage under buildDir, e.g. <build>/stage0/.rustc-stamp.
func Path(buildDir, stage, component string) string {
	return filepath.Join(buildDir, stage, "."+component+"-stamp")
}

// Read returns the raw record stored at path. A missing file is reported
// with found=false and no error; any other failure is returned.
func Read(path string) (record []byte, found bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if stage0errors.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, stage0errors.NewIOError("open", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false, stage0errors.NewIOError("read", path, err)
	}
	return data, true, nil
}

// IsOutOfDate reports whether the product recorded at path must be rebuilt
// for key. No stamp file means out of date. The record must equal key's
// encoding byte for byte; dates are opaque, so "2024-01-01-beta.1" is never
// split into a date and a discriminator. When key's date is a plain
// YYYY-MM-DD date the decoded record must also match field by field.
func IsOutOfDate(path string, key Key) (bool, error) {
	record, found, err := Read(path)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	if !bytes.Equal(record, []byte(key.Encode())) {
		return true, nil
	}
	if isPlainDate(key.Date) {
		if persisted, ok := Decode(string(record)); ok {
			return !persisted.Equal(key), nil
		}
	}
	return false, nil
}

// isPlainDate reports whether date is exactly a YYYY-MM-DD date.
func isPlainDate(date string) bool {
	if len(date) != len(dateLayout) {
		return false
	}
	_, err := time.Parse(dateLayout, date)
	return err == nil
}

// RecordCurrent overwrites the stamp at path with key's record. The write is
// not atomic; a crash mid-write leaves a record that simply reads as stale.
func RecordCurrent(path string, key Key) (err error) {
	if err := key.validate(); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return stage0errors.NewIOError("open", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = stage0errors.NewIOError("close", path, cerr)
		}
	}()

	if _, err := io.WriteString(f, key.Encode()); err != nil {
		return stage0errors.NewIOError("write", path, err)
	}
	return nil
}

// Remove deletes the stamp at path, forcing the next check to report stale.
// Removing a missing stamp is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !stage0errors.IsNotFound(err) {
		return stage0errors.NewIOError("remove", path, err)
	}
	return nil
}

// validate rejects keys that cannot round-trip through a record.
func (k Key) validate() error {
	if k.HasDiscriminator && k.Discriminator == NoneSentinel {
		return ErrSentinelDiscriminator
	}
	if k.HasDiscriminator && k.Discriminator == "" {
		return fmt.Errorf("key has an empty discriminator marked present")
	}
	return nil
}
