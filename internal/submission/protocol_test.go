package submission

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/skillproof/proctor-backend/internal/blobstore"
	"github.com/skillproof/proctor-backend/internal/evaluation"
	"github.com/skillproof/proctor-backend/internal/model"
)

func choiceDef() *model.TestDefinition {
	return &model.TestDefinition{
		ID:           "go-fundamentals",
		PassingScore: 60,
		Questions: []model.Question{
			{ID: "q1", Type: model.QuestionTypeMultipleChoice, Options: []string{"a", "b"}, CorrectOptionIndex: 0, Points: 2},
			{ID: "q2", Type: model.QuestionTypeMultipleChoice, Options: []string{"a", "b"}, CorrectOptionIndex: 1, Points: 3},
		},
	}
}

func TestScoreWeightsByPoints(t *testing.T) {
	def := choiceDef()

	// Only the 2-point question answered correctly: 2/5 of the weight.
	answers := map[string]model.Answer{
		"q1": model.ChoiceAnswer(0),
		"q2": model.ChoiceAnswer(0),
	}
	score, passed := Score(def, answers)
	if score != 40 {
		t.Fatalf("score = %d, want 40", score)
	}
	if passed {
		t.Fatal("40 against a passing score of 60 reported as passed")
	}
}

func TestScorePerfect(t *testing.T) {
	def := choiceDef()
	answers := map[string]model.Answer{
		"q1": model.ChoiceAnswer(0),
		"q2": model.ChoiceAnswer(1),
	}
	score, passed := Score(def, answers)
	if score != 100 || !passed {
		t.Fatalf("score = (%d, %t), want (100, true)", score, passed)
	}
}

func TestScoreUnansweredCountsAsIncorrect(t *testing.T) {
	score, passed := Score(choiceDef(), nil)
	if score != 0 || passed {
		t.Fatalf("empty answers = (%d, %t), want (0, false)", score, passed)
	}
}

func TestScoreSkipsMalformedQuestions(t *testing.T) {
	def := &model.TestDefinition{
		ID:           "broken",
		PassingScore: 50,
		Questions: []model.Question{
			{ID: "ok", Type: model.QuestionTypeMultipleChoice, Options: []string{"a", "b"}, CorrectOptionIndex: 0, Points: 1},
			{ID: "no-options", Type: model.QuestionTypeMultipleChoice, Points: 5},
			{ID: "bad-index", Type: model.QuestionTypeMultipleChoice, Options: []string{"a"}, CorrectOptionIndex: 3, Points: 5},
		},
	}
	score, _ := Score(def, map[string]model.Answer{"ok": model.ChoiceAnswer(0)})
	if score != 100 {
		t.Fatalf("score = %d, want 100 with malformed questions excluded", score)
	}
}

func TestScoreNoGradableQuestions(t *testing.T) {
	def := &model.TestDefinition{
		ID:           "practical-only",
		PassingScore: 60,
		Questions: []model.Question{
			{ID: "p1", Type: model.QuestionTypePractical},
		},
	}
	score, passed := Score(def, nil)
	if score != 0 || passed {
		t.Fatalf("practical-only = (%d, %t), want (0, false) with a positive bar", score, passed)
	}
}

func TestAssembleOrdersAnswersAndMarksUnanswered(t *testing.T) {
	def := choiceDef()
	def.Questions = append(def.Questions, model.Question{ID: "p1", Type: model.QuestionTypePractical})

	answers := map[string]model.Answer{
		"q2": model.ChoiceAnswer(1),
		"p1": model.FileAnswer([]model.FileRef{{Name: "main.go", BlobRef: "ref-1"}}),
	}
	payload := Assemble(def, "user-1", answers, nil)

	if len(payload.Answers) != 2 || payload.Answers[0] != -1 || payload.Answers[1] != 1 {
		t.Fatalf("answers = %v, want [-1 1]", payload.Answers)
	}
	if !payload.RequiresEvaluation {
		t.Fatal("practical submission did not flag RequiresEvaluation")
	}
	if len(payload.PracticalSubmissions) != 1 || payload.PracticalSubmissions[0].Status != "pending" {
		t.Fatalf("practical submissions = %+v", payload.PracticalSubmissions)
	}
	if _, ok := payload.FileParts["practical_p1_0"]; !ok {
		t.Fatalf("file parts = %v, missing practical_p1_0", payload.FileParts)
	}
}

func TestAssembleWithoutPracticalsNeedsNoEvaluation(t *testing.T) {
	payload := Assemble(choiceDef(), "user-1", map[string]model.Answer{"q1": model.ChoiceAnswer(0)}, nil)
	if payload.RequiresEvaluation {
		t.Fatal("choice-only payload flagged RequiresEvaluation")
	}
}

func newProtocol(t *testing.T, url string) *Protocol {
	t.Helper()
	blobs, err := blobstore.NewLocal(t.TempDir(), 1024*1024)
	if err != nil {
		t.Fatalf("blobstore: %v", err)
	}
	return NewProtocol(evaluation.NewClient(url, blobs, zerolog.Nop()), zerolog.Nop())
}

func TestSubmitPreCheckShortCircuits(t *testing.T) {
	var posts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode(model.AttemptStatus{HasAttempted: true})
			return
		}
		posts.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	p := newProtocol(t, srv.URL)
	_, err := p.Submit(context.Background(), Assemble(choiceDef(), "user-1", nil, nil))
	if !errors.Is(err, ErrAlreadyAttempted) {
		t.Fatalf("err = %v, want ErrAlreadyAttempted", err)
	}
	if posts.Load() != 0 {
		t.Fatal("pre-check hit did not prevent the POST")
	}
}

func TestSubmitProceedsWhenPreCheckDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	p := newProtocol(t, srv.URL)
	if _, err := p.Submit(context.Background(), Assemble(choiceDef(), "user-1", nil, nil)); err != nil {
		t.Fatalf("submit with dead pre-check: %v", err)
	}
}

func TestSubmitConflictWinsOverRetry(t *testing.T) {
	var posts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		posts.Add(1)
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	p := newProtocol(t, srv.URL)
	_, err := p.Submit(context.Background(), Assemble(choiceDef(), "user-1", nil, nil))
	if !errors.Is(err, ErrAlreadyAttempted) {
		t.Fatalf("err = %v, want ErrAlreadyAttempted", err)
	}
	if posts.Load() != 1 {
		t.Fatalf("conflict was retried: %d POSTs", posts.Load())
	}
}

func TestSubmitRacersGetExactlyOneSuccess(t *testing.T) {
	// First-write-wins uniqueness at the evaluation service, like the
	// real storage constraint.
	var won atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if won.CompareAndSwap(false, true) {
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	p := newProtocol(t, srv.URL)
	payload := Assemble(choiceDef(), "user-1", nil, nil)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := p.Submit(context.Background(), payload)
			errs <- err
		}()
	}

	var successes, conflicts int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			successes++
		case errors.Is(err, ErrAlreadyAttempted):
			conflicts++
		default:
			t.Fatalf("racing submit error = %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("racing submits = %d successes, %d conflicts, want exactly one of each", successes, conflicts)
	}
}

func TestSubmitTransientFailureRetriedOnce(t *testing.T) {
	var posts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if posts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	p := newProtocol(t, srv.URL)
	if _, err := p.Submit(context.Background(), Assemble(choiceDef(), "user-1", nil, nil)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if posts.Load() != 2 {
		t.Fatalf("POST count = %d, want 2 (original + one retry)", posts.Load())
	}
}

func TestSubmitMultipartCarriesResultAndRecording(t *testing.T) {
	var seen struct {
		score     string
		passed    string
		answers   string
		recording []byte
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		seen.score = r.FormValue("score")
		seen.passed = r.FormValue("passed")
		seen.answers = r.FormValue("answers")
		if f, _, err := r.FormFile("screenRecording"); err == nil {
			buf := new(strings.Builder)
			b := make([]byte, 64)
			for {
				n, err := f.Read(b)
				buf.Write(b[:n])
				if err != nil {
					break
				}
			}
			seen.recording = []byte(buf.String())
			f.Close()
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	p := newProtocol(t, srv.URL)
	payload := Assemble(choiceDef(), "user-1",
		map[string]model.Answer{"q1": model.ChoiceAnswer(0), "q2": model.ChoiceAnswer(1)},
		&model.RecordingArtifact{Blob: []byte("recorded-bytes"), MimeType: "video/webm", SizeBytes: 14},
	)
	if _, err := p.Submit(context.Background(), payload); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if seen.score != "100" || seen.passed != "true" {
		t.Fatalf("multipart result = (%s, %s), want (100, true)", seen.score, seen.passed)
	}
	if seen.answers != "[0,1]" {
		t.Fatalf("answers field = %s, want [0,1]", seen.answers)
	}
	if string(seen.recording) != "recorded-bytes" {
		t.Fatalf("recording part = %q", seen.recording)
	}
}
