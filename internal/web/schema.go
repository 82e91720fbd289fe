package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/experiment-designer/internal/domain"
)

// Request schema names
const (
	SchemaParse        = "parse"
	SchemaBatch        = "batch"
	SchemaCombinations = "combinations"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemaOnce     sync.Once
	compiledSchema map[string]*jsonschema.Schema
	schemaErr      error
)

func loadSchemas() (map[string]*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema = make(map[string]*jsonschema.Schema)
		for _, name := range []string{SchemaParse, SchemaBatch, SchemaCombinations} {
			file := name + ".json"
			raw, err := schemaFS.ReadFile("schemas/" + file)
			if err != nil {
				schemaErr = fmt.Errorf("read schema %s: %w", file, err)
				return
			}
			s, err := jsonschema.CompileString(file, string(raw))
			if err != nil {
				schemaErr = fmt.Errorf("compile schema %s: %w", file, err)
				return
			}
			compiledSchema[name] = s
		}
	})
	return compiledSchema, schemaErr
}

// ValidatePayload checks a raw JSON body against the named request schema.
// Any failure wraps domain.ErrInvalidInput.
func ValidatePayload(name string, body []byte) error {
	schemas, err := loadSchemas()
	if err != nil {
		return err
	}
	schema, ok := schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("%w: malformed JSON: %v", domain.ErrInvalidInput, err)
	}
	if err := schema.Validate(decoded); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, firstCause(ve))
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// firstCause returns the innermost message with its instance location
func firstCause(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return loc + ": " + ve.Message
}

// DecodeBody validates body against the schema then decodes it into dst
func DecodeBody(name string, body []byte, dst any) error {
	if name != "" {
		if err := ValidatePayload(name, body); err != nil {
			return err
		}
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// readBody reads at most limit bytes from the request
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: body exceeds %d bytes", domain.ErrBatchTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return body, nil
}
