package constants

// NotAvailable is the sentinel for any record field the log did not provide.
const NotAvailable = "N/A"

// PassingScore is the minimum score that derives a passing status.
const PassingScore = 70

// GradeStatus is the derived grading verdict written to the sheet and email.
type GradeStatus string

// Stable values (these exact strings end up in the spreadsheet).
const (
	GradePassed GradeStatus = "Lulus"       // score >= PassingScore
	GradeFailed GradeStatus = "Tidak Lulus" // score < PassingScore
)

// StatusForScore derives the grading verdict from a numeric score.
func StatusForScore(score int) GradeStatus {
	if score >= PassingScore {
		return GradePassed
	}
	return GradeFailed
}

// Stage names the steps of one pipeline run, in execution order.
type Stage string

const (
	StageValidateEvent        Stage = "validate_event"
	StageFetchSecrets         Stage = "fetch_secrets"
	StageInitServices         Stage = "init_services"
	StageReadObject           Stage = "read_object"
	StageExtract              Stage = "extract"
	StageValidateDestinations Stage = "validate_destinations"
	StageAppendSheet          Stage = "append_sheet"
	StageUploadFile           Stage = "upload_file"
	StageNotify               Stage = "notify"
)
