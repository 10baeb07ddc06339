package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	schemafs "github.com/kbasefaqs/sr-acceptor/schema"
)

var (
	catalogSchema *jsonschema.Schema
	compileOnce   sync.Once
	compileErr    error
)

// compileSchema compiles the embedded catalog schema once.
func compileSchema() error {
	compileOnce.Do(func() {
		data, err := schemafs.FS.ReadFile(schemafs.CatalogSchema)
		if err != nil {
			compileErr = fmt.Errorf("read catalog schema: %w", err)
			return
		}

		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal catalog schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemafs.CatalogSchema, doc); err != nil {
			compileErr = fmt.Errorf("add catalog schema resource: %w", err)
			return
		}

		catalogSchema, err = compiler.Compile(schemafs.CatalogSchema)
		if err != nil {
			compileErr = fmt.Errorf("compile catalog schema: %w", err)
		}
	})

	return compileErr
}

// ValidateCatalog validates YAML (or JSON) catalog data against the catalog schema.
func ValidateCatalog(data []byte) error {
	if err := compileSchema(); err != nil {
		return err
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}

	// Round-trip through JSON so the validator sees JSON-native types.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("catalog is not representable as JSON: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := catalogSchema.Validate(doc); err != nil {
		return fmt.Errorf("catalog validation failed: %w", err)
	}
	return nil
}
