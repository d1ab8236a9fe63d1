package model

// TestDefinition is an immutable test supplied by the external catalog
// service: ordered questions, a time limit and a passing threshold.
type TestDefinition struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Questions    []Question `json:"questions"`
	DurationMins int        `json:"duration_minutes"`
	PassingScore int        `json:"passing_score"`
}

// QuestionType discriminates the question union.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypePractical      QuestionType = "PRACTICAL"
)

// Question is a tagged union: multiple-choice fields are set for
// MULTIPLE_CHOICE, practical fields for PRACTICAL.
type Question struct {
	ID     string       `json:"id"`
	Type   QuestionType `json:"type"`
	Prompt string       `json:"prompt"`

	// Multiple choice
	Options            []string `json:"options,omitempty"`
	CorrectOptionIndex int      `json:"correct_option_index,omitempty"`
	Points             int      `json:"points,omitempty"`

	// Practical
	Requirements          string   `json:"requirements,omitempty"`
	AllowedFileExtensions []string `json:"allowed_file_extensions,omitempty"`
	MaxFileSizeMB         int      `json:"max_file_size_mb,omitempty"`
}

// IsChoice reports whether the question is scored automatically.
func (q *Question) IsChoice() bool {
	return q.Type == QuestionTypeMultipleChoice
}

// QuestionForCandidate is a question with the correct answer stripped,
// safe to send to the exam client.
type QuestionForCandidate struct {
	ID                    string       `json:"id"`
	Type                  QuestionType `json:"type"`
	Prompt                string       `json:"prompt"`
	Options               []string     `json:"options,omitempty"`
	Points                int          `json:"points,omitempty"`
	Requirements          string       `json:"requirements,omitempty"`
	AllowedFileExtensions []string     `json:"allowed_file_extensions,omitempty"`
	MaxFileSizeMB         int          `json:"max_file_size_mb,omitempty"`
}

// ForCandidate strips grading data from the definition's questions.
func (t *TestDefinition) ForCandidate() []QuestionForCandidate {
	out := make([]QuestionForCandidate, 0, len(t.Questions))
	for _, q := range t.Questions {
		out = append(out, QuestionForCandidate{
			ID:                    q.ID,
			Type:                  q.Type,
			Prompt:                q.Prompt,
			Options:               q.Options,
			Points:                q.Points,
			Requirements:          q.Requirements,
			AllowedFileExtensions: q.AllowedFileExtensions,
			MaxFileSizeMB:         q.MaxFileSizeMB,
		})
	}
	return out
}

// QuestionByID returns the question with the given ID, or nil.
func (t *TestDefinition) QuestionByID(id string) *Question {
	for i := range t.Questions {
		if t.Questions[i].ID == id {
			return &t.Questions[i]
		}
	}
	return nil
}
