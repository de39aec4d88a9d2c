package secrets

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Well-known bundle keys.
const (
	KeyGoogleCreds     = "google_creds"
	KeyLegacyCreds     = "credentials"
	KeySheetID         = "google_sheet_id"
	KeyDriveFolderID   = "google_drive_folder_id"
	KeySenderEmail     = "sender_email"
	KeyRecipientEmail  = "recipient_email"
	KeySMTPUsername    = "smtp_username"
	KeySMTPPassword    = "smtp_password"
	KeyDatabaseDSN     = "database_dsn"
	KeyIdentifierLabel = "identifier_label"
)

// Bundle is a merged view over one or more fetched secret documents.
type Bundle map[string]any

// ParseBundle decodes one secret document and checks it against the bundle schema.
func ParseBundle(name string, raw []byte) (Bundle, error) {
	if err := ValidateBundle(raw); err != nil {
		return nil, fmt.Errorf("secret %s: %w", name, err)
	}
	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("secret %s: decode: %w", name, err)
	}
	return b, nil
}

// Merge returns a new bundle with the keys of others applied left to right.
func Merge(bundles ...Bundle) Bundle {
	out := Bundle{}
	for _, b := range bundles {
		for k, v := range b {
			out[k] = v
		}
	}
	return out
}

// String returns the trimmed string value for key, or "" when absent or not a string.
func (b Bundle) String(key string) string {
	v, ok := b[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// JSON returns the raw JSON for key. String values are assumed to already hold
// a JSON document; objects are re-encoded.
func (b Bundle) JSON(key string) ([]byte, bool, error) {
	v, ok := b[key]
	if !ok || v == nil {
		return nil, false, nil
	}
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, false, nil
		}
		if !json.Valid([]byte(t)) {
			return nil, true, fmt.Errorf("%s is not valid JSON", key)
		}
		return []byte(t), true, nil
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return nil, true, fmt.Errorf("encode %s: %w", key, err)
		}
		return raw, true, nil
	}
}

// Keys lists the bundle keys; values are never logged.
func (b Bundle) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	return keys
}
