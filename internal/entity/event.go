package entity

// ObjectRef identifies one newly created object in storage.
type ObjectRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// TriggerEvent is the upload notification that starts a run.
type TriggerEvent struct {
	Records []ObjectRef `json:"records"`
}

// Response is the invocation result handed back to the runtime.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// SuccessBody is the decoded body of a 200 response.
type SuccessBody struct {
	Message string          `json:"message"`
	Results *PipelineResult `json:"results"`
}

// FailureBody is the decoded body of a 500 response.
type FailureBody struct {
	Error string `json:"error"`
	File  string `json:"file"`
}
