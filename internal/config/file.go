package config

import (
	"fmt"
	"io"
	"os"

	stage0errors "github.com/gxo-labs/stage0/pkg/stage0/v1/errors"
)

// WriteFile serializes doc to path, truncating any existing file.
func WriteFile(path string, doc *Document) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return stage0errors.NewIOError("create", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = stage0errors.NewIOError("close", path, cerr)
		}
	}()

	if _, err := doc.WriteTo(f); err != nil {
		return stage0errors.NewIOError("write", path, err)
	}
	return nil
}

// LoadFile reads and parses the TOML document at path. A missing file is an
// *IOError for which IsNotFound reports true.
func LoadFile(path string, sectionOrder ...string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, stage0errors.NewIOError("open", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, stage0errors.NewIOError("read", path, err)
	}
	doc, err := Parse(data, sectionOrder...)
	if err != nil {
		return nil, stage0errors.NewConfigError(fmt.Sprintf("configuration file '%s'", path), err)
	}
	return doc, nil
}

// LoadFileOrBaseline is LoadFile where a missing file means no overrides:
// it returns the baseline of opts. Other errors propagate.
func LoadFileOrBaseline(path string, opts *Options) (*Document, error) {
	doc, err := LoadFile(path, opts.SectionOrder...)
	if stage0errors.IsNotFound(err) {
		return opts.Baseline(), nil
	}
	return doc, err
}
