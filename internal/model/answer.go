package model

// AnswerKind discriminates the answer union.
type AnswerKind string

const (
	AnswerKindChoice AnswerKind = "CHOICE"
	AnswerKindFile   AnswerKind = "FILE"
)

// Answer is a tagged union: OptionIndex is set for CHOICE answers,
// Files for FILE answers.
type Answer struct {
	Kind        AnswerKind `json:"kind"`
	OptionIndex int        `json:"option_index,omitempty"`
	Files       []FileRef  `json:"files,omitempty"`
}

// FileRef is a stored practical-answer file: its original name plus the
// durable blob reference returned by storage.
type FileRef struct {
	Name      string `json:"name"`
	BlobRef   string `json:"blob_ref"`
	SizeBytes int64  `json:"size_bytes"`
}

// ChoiceAnswer builds a multiple-choice answer.
func ChoiceAnswer(optionIndex int) Answer {
	return Answer{Kind: AnswerKindChoice, OptionIndex: optionIndex}
}

// FileAnswer builds a practical answer from stored file references.
func FileAnswer(files []FileRef) Answer {
	return Answer{Kind: AnswerKindFile, Files: files}
}
