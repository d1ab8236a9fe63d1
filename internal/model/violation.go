package model

import "time"

// ViolationReason classifies an integrity-policy breach observed client-side.
type ViolationReason string

const (
	ViolationNoFace        ViolationReason = "no-face-detected"
	ViolationMultipleFaces ViolationReason = "multiple-faces-detected"
	ViolationFocusLost     ViolationReason = "focus-lost"
)

// Violation is a single recorded breach with its wall-clock occurrence.
type Violation struct {
	Reason     ViolationReason `json:"reason"`
	OccurredAt time.Time       `json:"occurred_at"`
}
