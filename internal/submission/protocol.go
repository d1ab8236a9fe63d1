package submission

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/skillproof/proctor-backend/internal/evaluation"
	"github.com/skillproof/proctor-backend/internal/model"
)

// ErrAlreadyAttempted re-exports the evaluation sentinel so callers do not
// need to import the transport package to classify the outcome.
var ErrAlreadyAttempted = evaluation.ErrAlreadyAttempted

// Protocol turns a finished session into a durably recorded attempt:
// pre-check, scoring, multipart assembly, and the idempotent creation
// request. The evaluation service's uniqueness constraint — not the
// pre-check — is the correctness mechanism for at-most-once.
type Protocol struct {
	eval *evaluation.Client
	log  zerolog.Logger
}

// NewProtocol creates a submission protocol.
func NewProtocol(eval *evaluation.Client, log zerolog.Logger) *Protocol {
	return &Protocol{
		eval: eval,
		log:  log.With().Str("component", "submission_protocol").Logger(),
	}
}

// Score computes the multiple-choice percentage score and the pass flag.
// Malformed questions (no options, or a correct index outside the option
// range) are logged by the caller's ledger of record — here they simply
// contribute nothing to either side of the division.
func Score(def *model.TestDefinition, answers map[string]model.Answer) (score int, passed bool) {
	total := 0
	earned := 0
	for i := range def.Questions {
		q := &def.Questions[i]
		if !q.IsChoice() {
			continue
		}
		if len(q.Options) == 0 || q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= len(q.Options) {
			continue
		}
		total += q.Points
		ans, ok := answers[q.ID]
		if ok && ans.Kind == model.AnswerKindChoice && ans.OptionIndex == q.CorrectOptionIndex {
			earned += q.Points
		}
	}
	if total == 0 {
		return 0, def.PassingScore <= 0
	}
	score = int(math.Round(100 * float64(earned) / float64(total)))
	return score, score >= def.PassingScore
}

// Assemble builds the full submission payload from the session's answer
// store and the finalized recording artifact. The payload is retained by
// the caller across retries so a network failure never costs answers.
func Assemble(def *model.TestDefinition, userID string, answers map[string]model.Answer, recording *model.RecordingArtifact) *model.SubmissionPayload {
	score, passed := Score(def, answers)

	payload := &model.SubmissionPayload{
		TestID:    def.ID,
		UserID:    userID,
		Score:     score,
		Passed:    passed,
		FileParts: make(map[string]model.FileRef),
		Recording: recording,
	}

	for i := range def.Questions {
		q := &def.Questions[i]
		switch {
		case q.IsChoice():
			idx := -1
			if ans, ok := answers[q.ID]; ok && ans.Kind == model.AnswerKindChoice {
				idx = ans.OptionIndex
			}
			payload.Answers = append(payload.Answers, idx)
		case q.Type == model.QuestionTypePractical:
			ans, ok := answers[q.ID]
			if !ok || ans.Kind != model.AnswerKindFile || len(ans.Files) == 0 {
				continue
			}
			sub := model.PracticalSubmission{
				QuestionID: q.ID,
				Status:     "pending",
			}
			for j, f := range ans.Files {
				sub.FileNames = append(sub.FileNames, f.Name)
				partName := fmt.Sprintf("practical_%s_%d", q.ID, j)
				payload.FileParts[partName] = f
			}
			payload.PracticalSubmissions = append(payload.PracticalSubmissions, sub)
			payload.RequiresEvaluation = true
		}
	}

	return payload
}

// Submit runs the protocol: pre-check, then the creation POST. A transient
// failure is retried once automatically with the same payload; after that
// the error is surfaced for a manual retry. AlreadyAttempted aborts
// immediately — the result already exists.
func (p *Protocol) Submit(ctx context.Context, payload *model.SubmissionPayload) (*model.SubmissionReceipt, error) {
	status, err := p.eval.CheckAttempt(ctx, payload.TestID, payload.UserID)
	if err != nil {
		// The pre-check is an optimization, not a correctness mechanism:
		// when it cannot be reached, proceed and let the storage-layer
		// constraint arbitrate.
		p.log.Warn().Err(err).Msg("attempt pre-check unavailable, proceeding to POST")
	} else if status.HasAttempted {
		return nil, ErrAlreadyAttempted
	}

	receipt, err := p.eval.SubmitAttempt(ctx, payload)
	if err == nil {
		return receipt, nil
	}
	if errors.Is(err, evaluation.ErrAlreadyAttempted) || errors.Is(err, evaluation.ErrRejected) {
		return nil, err
	}

	p.log.Warn().Err(err).Msg("submission failed, retrying once")
	receipt, retryErr := p.eval.SubmitAttempt(ctx, payload)
	if retryErr == nil {
		return receipt, nil
	}
	return nil, fmt.Errorf("submit attempt: %w", retryErr)
}
