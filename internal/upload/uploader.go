package upload

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/joseph-ayodele/gradebook-relay/constants"
	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
)

// ObjectUploader stores the raw log file in a folder of some file store.
type ObjectUploader interface {
	Upload(ctx context.Context, folderID, name string, content []byte) (*entity.UploadRef, error)
}

// UniqueName prefixes the base name of key with the upload time, e.g.
// 20261019_083000_run.log.
func UniqueName(now time.Time, key string) string {
	base := path.Base(strings.ReplaceAll(key, `\`, "/"))
	if base == "." || base == "/" {
		base = "upload.log"
	}
	return fmt.Sprintf("%s_%s", now.Format(constants.UploadNameLayout), base)
}

// Description is attached to every uploaded file.
func Description(now time.Time) string {
	return "Log file uploaded at " + now.Format(constants.RecordTimeLayout)
}
