package registry

import (
	"fmt"
	"strings"

	"github.com/festa-dev/festa/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// validateConfig checks an agent configuration against its JSON schema.
func validateConfig(schema *models.JSONSchema, config map[string]any) error {
	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}
