package model

import "time"

// RecordingArtifact is the finalized screen recording attached to a
// submission. Immutable once the session is terminal.
type RecordingArtifact struct {
	Blob      []byte `json:"-"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// PracticalSubmission describes one practical answer in the payload's
// practicalSubmissions JSON field.
type PracticalSubmission struct {
	QuestionID string   `json:"questionId"`
	FileNames  []string `json:"fileNames"`
	Status     string   `json:"status"`
}

// SubmissionPayload is the assembled multipart submission handed to the
// evaluation service.
type SubmissionPayload struct {
	TestID  string
	UserID  string
	Score   int
	Passed  bool
	// Answers holds one option index per multiple-choice question in
	// definition order; -1 marks an unanswered question.
	Answers              []int
	PracticalSubmissions []PracticalSubmission
	// FileParts maps multipart part names to stored file references.
	FileParts map[string]FileRef
	Recording *RecordingArtifact
	// RequiresEvaluation is set when practical answers need human grading.
	RequiresEvaluation bool
}

// SubmissionReceipt is the evaluation service's acknowledgement.
type SubmissionReceipt struct {
	Message     string    `json:"message"`
	ResultID    string    `json:"result"`
	CompletedAt time.Time `json:"completed_at"`
}

// AttemptStatus is the evaluation service's answer to the attempt pre-check.
type AttemptStatus struct {
	HasAttempted bool       `json:"hasAttempted"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	Score        *float64   `json:"score,omitempty"`
	Passed       *bool      `json:"passed,omitempty"`
}
