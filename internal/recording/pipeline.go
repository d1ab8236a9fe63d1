package recording

import (
	"bytes"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/skillproof/proctor-backend/internal/model"
)

// DefaultTargetBytes is the size the pipeline compresses recordings toward.
const DefaultTargetBytes = 2 * 1024 * 1024

var (
	// ErrNotRecording is returned for chunk appends outside Start..Stop.
	ErrNotRecording = errors.New("pipeline is not recording")
	// ErrStreamEnded is the fatal error surfaced when the capture stream
	// ends prematurely (the user revoked permission). The exam cannot
	// continue without an active recording.
	ErrStreamEnded = errors.New("capture stream ended prematurely")
)

// Plan is the re-encode parameter set computed when a recording exceeds
// the target size: a uniform scale factor for both video dimensions and a
// bitrate derived from the target size over the recording duration.
type Plan struct {
	ScaleFactor float64
	BitrateBPS  int64
}

// BuildPlan computes the re-encode plan for a recording of originalBytes
// that should shrink toward targetBytes.
func BuildPlan(targetBytes, originalBytes int64, duration time.Duration) Plan {
	scale := math.Sqrt(float64(targetBytes) / float64(originalBytes))
	if scale > 1 {
		scale = 1
	}
	secs := duration.Seconds()
	if secs <= 0 {
		secs = 1
	}
	return Plan{
		ScaleFactor: scale,
		BitrateBPS:  int64(float64(targetBytes*8) / secs),
	}
}

// Transcoder re-encodes a finished recording according to a Plan. A failed
// transcode is recovered by keeping the original artifact; it never fails
// the submission.
type Transcoder interface {
	Transcode(blob []byte, mimeType string, plan Plan) ([]byte, string, error)
}

// Pipeline buffers incrementally recorded chunks in memory and produces a
// single RecordingArtifact on stop, compressed toward the target size.
type Pipeline struct {
	mu          sync.Mutex
	buf         bytes.Buffer
	mimeType    string
	startedAt   time.Time
	recording   bool
	streamEnded bool

	targetBytes int64
	transcoder  Transcoder
	log         zerolog.Logger
}

// NewPipeline creates a pipeline with the given compression target. A nil
// transcoder disables re-encoding (artifacts are returned raw).
func NewPipeline(targetBytes int64, transcoder Transcoder, log zerolog.Logger) *Pipeline {
	if targetBytes <= 0 {
		targetBytes = DefaultTargetBytes
	}
	return &Pipeline{
		targetBytes: targetBytes,
		transcoder:  transcoder,
		log:         log.With().Str("component", "recording_pipeline").Logger(),
	}
}

// Start begins accepting chunks for a stream of the given MIME type.
func (p *Pipeline) Start(mimeType string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if mimeType == "" {
		mimeType = "video/webm"
	}
	p.mimeType = mimeType
	p.startedAt = time.Now()
	p.recording = true
}

// Append buffers one emitted chunk.
func (p *Pipeline) Append(chunk []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.recording {
		return ErrNotRecording
	}
	_, err := p.buf.Write(chunk)
	return err
}

// StreamEnded marks the capture stream as prematurely dead. Subsequent
// Stop calls still return whatever was buffered.
func (p *Pipeline) StreamEnded() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streamEnded = true
	p.recording = false
}

// Stop finalizes the recording and returns the artifact, compressed toward
// the target size when oversized. Stop is idempotent in effect: after the
// first call the pipeline no longer accepts chunks.
func (p *Pipeline) Stop() *model.RecordingArtifact {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recording = false

	raw := p.buf.Bytes()
	artifact := &model.RecordingArtifact{
		Blob:      raw,
		MimeType:  p.mimeType,
		SizeBytes: int64(len(raw)),
	}

	if artifact.SizeBytes <= p.targetBytes || p.transcoder == nil {
		// Undersized input passes through byte-identical.
		return artifact
	}

	plan := BuildPlan(p.targetBytes, artifact.SizeBytes, time.Since(p.startedAt))
	blob, mime, err := p.transcoder.Transcode(raw, p.mimeType, plan)
	if err != nil || int64(len(blob)) >= artifact.SizeBytes {
		// Compression failure is recovered locally: the uncompressed
		// artifact is attached rather than failing the submission.
		p.log.Warn().Err(err).
			Int64("size", artifact.SizeBytes).
			Msg("recording compression failed, keeping original")
		return artifact
	}

	return &model.RecordingArtifact{
		Blob:      blob,
		MimeType:  mime,
		SizeBytes: int64(len(blob)),
	}
}

// Size returns the bytes buffered so far.
func (p *Pipeline) Size() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int64(p.buf.Len())
}
