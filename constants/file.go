package constants

import "strings"

// AllowedExtensions holds the log file extensions picked up by local ingestion.
var AllowedExtensions = map[string]struct{}{
	"log": {},
	"txt": {},
}

// LogContentType is the MIME type used when the raw log is uploaded or attached.
const LogContentType = "text/plain"

// MaxBusAttachmentBytes is the inclusive ceiling for a raw file carried over the message bus.
const MaxBusAttachmentBytes = 204800

// Timestamp layouts shared by the extractor, uploader and result assembly.
const (
	RecordTimeLayout = "2006-01-02 15:04:05"
	UploadNameLayout = "20060102_150405"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
