package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/skillproof/proctor-backend/internal/blobstore"
	"github.com/skillproof/proctor-backend/internal/config"
	"github.com/skillproof/proctor-backend/internal/model"
)

var (
	// ErrAlreadyAttempted maps the service's uniqueness-constraint conflict:
	// a completed attempt for (userId, testId) already exists. Terminal and
	// non-retryable.
	ErrAlreadyAttempted = errors.New("test already attempted")
	// ErrRejected covers validation failures: the payload will not be
	// accepted no matter how often it is resent.
	ErrRejected = errors.New("submission rejected")
	// ErrUnavailable covers network and storage failures where a retry with
	// the same payload can succeed.
	ErrUnavailable = errors.New("evaluation service unavailable")
)

// Client talks to the evaluation/persistence service: the attempt
// pre-check and the multipart submission POST. The service's storage-layer
// uniqueness constraint on (userId, testId) is the single source of truth
// for at-most-once completion.
type Client struct {
	baseURL string
	http    *http.Client
	blobs   blobstore.Store
	log     zerolog.Logger
}

// NewClient creates an evaluation client. blobs is used to stream stored
// practical-answer files into the multipart body.
func NewClient(baseURL string, blobs blobstore.Store, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: config.HTTPClientTimeout},
		blobs:   blobs,
		log:     log.With().Str("component", "evaluation_client").Logger(),
	}
}

// CheckAttempt queries for an existing completed attempt by (userID, testID).
func (c *Client) CheckAttempt(ctx context.Context, testID, userID string) (*model.AttemptStatus, error) {
	url := fmt.Sprintf("%s/tests/%s/attempts/%s", c.baseURL, testID, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// No attempt record at all.
		return &model.AttemptStatus{HasAttempted: false}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: pre-check returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var status model.AttemptStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode attempt status: %w", err)
	}
	return &status, nil
}

// SubmitAttempt POSTs the assembled multipart payload. A duplicate or
// racing submission loses the storage-layer uniqueness race and comes back
// as a conflict, which is mapped to ErrAlreadyAttempted rather than a
// generic error.
func (c *Client) SubmitAttempt(ctx context.Context, payload *model.SubmissionPayload) (*model.SubmissionReceipt, error) {
	body, contentType, err := c.encodeMultipart(payload)
	if err != nil {
		return nil, fmt.Errorf("assemble multipart: %w", err)
	}

	url := fmt.Sprintf("%s/tests/%s/attempts", c.baseURL, payload.TestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusCreated:
		var receipt model.SubmissionReceipt
		if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
			// The write landed; a malformed body must not trigger a resend.
			c.log.Warn().Err(err).Msg("submission accepted but receipt undecodable")
			return &model.SubmissionReceipt{Message: "accepted"}, nil
		}
		return &receipt, nil
	case resp.StatusCode == http.StatusConflict:
		return nil, ErrAlreadyAttempted
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, msg)
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
}

func (c *Client) encodeMultipart(payload *model.SubmissionPayload) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	fields := map[string]string{
		"skillId":            payload.TestID,
		"userId":             payload.UserID,
		"score":              strconv.Itoa(payload.Score),
		"passed":             strconv.FormatBool(payload.Passed),
		"requiresEvaluation": strconv.FormatBool(payload.RequiresEvaluation),
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	answers, err := json.Marshal(payload.Answers)
	if err != nil {
		return nil, "", err
	}
	if err := w.WriteField("answers", string(answers)); err != nil {
		return nil, "", err
	}

	practicals, err := json.Marshal(payload.PracticalSubmissions)
	if err != nil {
		return nil, "", err
	}
	if err := w.WriteField("practicalSubmissions", string(practicals)); err != nil {
		return nil, "", err
	}

	for partName, ref := range payload.FileParts {
		if err := c.writeBlobPart(w, partName, ref); err != nil {
			return nil, "", err
		}
	}

	if payload.Recording != nil {
		part, err := w.CreateFormFile("screenRecording", "recording")
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(payload.Recording.Blob); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

func (c *Client) writeBlobPart(w *multipart.Writer, partName string, ref model.FileRef) error {
	f, err := c.blobs.Open(ref.BlobRef)
	if err != nil {
		return fmt.Errorf("open blob %s: %w", ref.BlobRef, err)
	}
	defer f.Close()

	part, err := w.CreateFormFile(partName, ref.Name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copy blob %s: %w", ref.BlobRef, err)
	}
	return nil
}
