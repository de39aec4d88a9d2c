package gcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/joseph-ayodele/gradebook-relay/internal/secrets"
)

// Scopes requested for the service account.
var Scopes = []string{sheets.SpreadsheetsScope, drive.DriveScope}

// ErrNoCredentials is returned when the bundle has neither credential key.
var ErrNoCredentials = errors.New("no Google credentials in secret bundle")

// CredentialsJSON returns the service account key from the bundle. google_creds
// may hold an object or a JSON string; the legacy credentials key is the fallback.
func CredentialsJSON(b secrets.Bundle) ([]byte, error) {
	for _, key := range []string{secrets.KeyGoogleCreds, secrets.KeyLegacyCreds} {
		raw, ok, err := b.JSON(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if probe.Type == "" {
			return nil, fmt.Errorf("%s: missing credential type", key)
		}
		return raw, nil
	}
	return nil, ErrNoCredentials
}

// Clients bundles the Google API services built from one credential.
type Clients struct {
	Sheets *sheets.Service
	Drive  *drive.Service
}

// NewClients builds Sheets and Drive services. Extra options (endpoints, HTTP
// clients) are appended after the credentials.
func NewClients(ctx context.Context, credJSON []byte, extra ...option.ClientOption) (*Clients, error) {
	opts := append([]option.ClientOption{
		option.WithCredentialsJSON(credJSON),
		option.WithScopes(Scopes...),
	}, extra...)

	sheetsSvc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &Clients{Sheets: sheetsSvc, Drive: driveSvc}, nil
}
