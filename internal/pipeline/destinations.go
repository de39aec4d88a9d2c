package pipeline

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/joseph-ayodele/gradebook-relay/internal/common"
	"github.com/joseph-ayodele/gradebook-relay/internal/secrets"
)

// Destinations are the bundle values the enabled stages write to.
type Destinations struct {
	SheetsOn bool
	UploadOn bool
	NotifyOn bool

	SheetID   string `validate:"required_if=SheetsOn true"`
	FolderID  string `validate:"required_if=UploadOn true"`
	Sender    string `validate:"required_if=NotifyOn true"`
	Recipient string `validate:"required_if=NotifyOn true"`
}

// destinationKeys maps struct fields back to the secret keys operators set.
var destinationKeys = map[string]string{
	"SheetID":   secrets.KeySheetID,
	"FolderID":  secrets.KeyDriveFolderID,
	"Sender":    secrets.KeySenderEmail,
	"Recipient": secrets.KeyRecipientEmail,
}

// DestinationsFrom reads the destination values out of bundle.
func DestinationsFrom(b secrets.Bundle, sheetsOn, uploadOn, notifyOn bool) Destinations {
	return Destinations{
		SheetsOn:  sheetsOn,
		UploadOn:  uploadOn,
		NotifyOn:  notifyOn,
		SheetID:   b.String(secrets.KeySheetID),
		FolderID:  b.String(secrets.KeyDriveFolderID),
		Sender:    b.String(secrets.KeySenderEmail),
		Recipient: b.String(secrets.KeyRecipientEmail),
	}
}

// Validate returns a MISSING_CONFIGURATION error naming every absent key.
func (d Destinations) Validate() error {
	err := common.Validator().Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return common.NewAppError(common.CodeMissingConfiguration, err.Error(), nil)
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if key, ok := destinationKeys[fe.StructField()]; ok {
			missing = append(missing, key)
		}
	}
	return common.MissingConfigurationError(missing)
}
