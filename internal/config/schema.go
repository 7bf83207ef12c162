package config

import (
	_ "embed"
	"fmt"
	"sync"

	stage0errors "github.com/gxo-labs/stage0/pkg/stage0/v1/errors"
	"github.com/xeipuuv/gojsonschema"
)

// config_schema.json describes the well-known keys of config.toml: their
// types, and the allowed profile and channel names. Unknown keys pass.
//
//go:embed config_schema.json
var documentSchemaBytes []byte

var (
	documentSchema     *gojsonschema.Schema
	documentSchemaOnce sync.Once
	documentSchemaErr  error
)

// loadDocumentSchema compiles the embedded schema once.
func loadDocumentSchema() (*gojsonschema.Schema, error) {
	documentSchemaOnce.Do(func() {
		if len(documentSchemaBytes) == 0 {
			documentSchemaErr = stage0errors.NewConfigError("embedded schema 'config_schema.json' is empty", nil)
			return
		}
		documentSchema, documentSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(documentSchemaBytes))
		if documentSchemaErr != nil {
			documentSchemaErr = stage0errors.NewConfigError("failed to compile embedded schema 'config_schema.json'", documentSchemaErr)
		}
	})
	return documentSchema, documentSchemaErr
}

// Validate checks doc against the embedded JSON schema. Every violation is
// listed in the returned *ValidationError.
func Validate(doc *Document) error {
	schema, err := loadDocumentSchema()
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc.toMap()))
	if err != nil {
		return stage0errors.NewConfigError("schema validation process failed", err)
	}
	if result.Valid() {
		return nil
	}

	msg := "configuration failed schema validation:"
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "(root)" || field == "" {
			field = desc.Context().String()
		}
		msg += fmt.Sprintf("\n  - Field '%s': %s", field, desc.Description())
	}
	return stage0errors.NewValidationError(msg, nil)
}
