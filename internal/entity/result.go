package entity

import (
	"github.com/joseph-ayodele/gradebook-relay/constants"
)

// OutcomeKind is the result class of one pipeline stage.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailed  OutcomeKind = "failed"
)

// Outcome records what happened in one stage of a run.
type Outcome struct {
	Stage  constants.Stage `json:"stage"`
	Kind   OutcomeKind     `json:"outcome"`
	Reason string          `json:"reason,omitempty"`
}

func Succeeded(stage constants.Stage) Outcome {
	return Outcome{Stage: stage, Kind: OutcomeSuccess}
}

func Skipped(stage constants.Stage, reason string) Outcome {
	return Outcome{Stage: stage, Kind: OutcomeSkipped, Reason: reason}
}

func Failed(stage constants.Stage, err error) Outcome {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return Outcome{Stage: stage, Kind: OutcomeFailed, Reason: reason}
}

// OK reports whether the stage succeeded.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// UploadRef identifies a file stored by an ObjectUploader.
type UploadRef struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	Link     string `json:"link,omitempty"`
}

// PipelineResult is the sole product of a successful run.
type PipelineResult struct {
	RunID         string    `json:"run_id"`
	FileProcessed string    `json:"file_processed"`
	DataExtracted LogRecord `json:"data_extracted"`
	SheetUpdated  bool      `json:"sheet_updated"`
	DriveUploaded bool      `json:"drive_uploaded"`
	DriveLink     string    `json:"drive_link,omitempty"`
	EmailSent     bool      `json:"email_sent"`
	Timestamp     string    `json:"timestamp"`
	Stages        []Outcome `json:"stages"`
}

// Outcome returns the recorded outcome for stage, if any.
func (r *PipelineResult) Outcome(stage constants.Stage) (Outcome, bool) {
	for _, o := range r.Stages {
		if o.Stage == stage {
			return o, true
		}
	}
	return Outcome{}, false
}
