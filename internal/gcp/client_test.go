package gcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/gradebook-relay/internal/secrets"
)

func TestCredentialsJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		bundle  secrets.Bundle
		want    string
		wantErr error
		errText string
	}{
		{
			name:   "object",
			bundle: secrets.Bundle{"google_creds": map[string]any{"type": "service_account"}},
			want:   `{"type":"service_account"}`,
		},
		{
			name:   "json string",
			bundle: secrets.Bundle{"google_creds": `{"type":"service_account","project_id":"p"}`},
			want:   `{"type":"service_account","project_id":"p"}`,
		},
		{
			name:   "legacy key",
			bundle: secrets.Bundle{"credentials": `{"type":"service_account"}`},
			want:   `{"type":"service_account"}`,
		},
		{
			name: "google_creds preferred over legacy",
			bundle: secrets.Bundle{
				"google_creds": map[string]any{"type": "service_account", "client_email": "new"},
				"credentials":  `{"type":"service_account","client_email":"old"}`,
			},
			want: `{"type":"service_account","client_email":"new"}`,
		},
		{
			name:    "missing",
			bundle:  secrets.Bundle{"google_sheet_id": "x"},
			wantErr: ErrNoCredentials,
		},
		{
			name:    "no type",
			bundle:  secrets.Bundle{"google_creds": `{"project_id":"p"}`},
			errText: "missing credential type",
		},
		{
			name:    "invalid json string",
			bundle:  secrets.Bundle{"google_creds": `{oops`},
			errText: "not valid JSON",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := CredentialsJSON(tt.bundle)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errText != "":
				assert.ErrorContains(t, err, tt.errText)
			default:
				require.NoError(t, err)
				assert.JSONEq(t, tt.want, string(got))
			}
		})
	}
}
