package gemini

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed content_schema.json
var contentSchema string

// ValidationError reports generated content that does not conform to
// the content schema.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("gemini: content failed schema validation: %s", strings.Join(e.Issues, "; "))
}

// validateContent checks a JSON document against the embedded content
// schema.
func validateContent(jsonText string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(contentSchema),
		gojsonschema.NewStringLoader(jsonText))
	if err != nil {
		return fmt.Errorf("gemini: validate content: %w", err)
	}
	if result.Valid() {
		return nil
	}

	ve := &ValidationError{Issues: make([]string, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		ve.Issues = append(ve.Issues, fmt.Sprintf("%s: %s", field, desc.Description()))
	}
	return ve
}
