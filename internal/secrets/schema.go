package secrets

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildBundleJSONSchema describes the keys the pipeline reads. Unknown keys are
// allowed so one secret can be shared with other services.
func BuildBundleJSONSchema() map[string]any {
	str := map[string]any{"type": "string"}
	creds := map[string]any{
		"oneOf": []any{
			map[string]any{"type": "string", "minLength": 2},
			map[string]any{
				"type":     "object",
				"required": []string{"type"},
				"properties": map[string]any{
					"type":         str,
					"client_email": str,
					"private_key":  str,
				},
			},
		},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			KeyGoogleCreds:     creds,
			KeyLegacyCreds:     map[string]any{"type": "string"},
			KeySheetID:         str,
			KeyDriveFolderID:   str,
			KeySenderEmail:     str,
			KeyRecipientEmail:  str,
			KeySMTPUsername:    str,
			KeySMTPPassword:    str,
			KeyDatabaseDSN:     str,
			KeyIdentifierLabel: str,
		},
	}
}

var bundleSchema *jsonschema.Schema

func init() {
	b, err := json.Marshal(BuildBundleJSONSchema())
	if err != nil {
		panic(fmt.Sprintf("marshal bundle schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("bundle.json", bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add bundle schema: %v", err))
	}
	bundleSchema = compiler.MustCompile("bundle.json")
}

// ValidateBundle checks a raw secret document against the bundle schema.
func ValidateBundle(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal secret: %w", err)
	}
	if err := bundleSchema.Validate(v); err != nil {
		return fmt.Errorf("secret does not match schema: %w", err)
	}
	return nil
}
