package recording

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestBuildPlanScaleAndBitrate(t *testing.T) {
	plan := BuildPlan(2_000_000, 8_000_000, 100*time.Second)

	if math.Abs(plan.ScaleFactor-0.5) > 1e-9 {
		t.Fatalf("scale = %f, want 0.5 for a 4x oversize", plan.ScaleFactor)
	}
	if plan.BitrateBPS != 160_000 {
		t.Fatalf("bitrate = %d, want 160000", plan.BitrateBPS)
	}
}

func TestBuildPlanNeverUpscales(t *testing.T) {
	plan := BuildPlan(2_000_000, 1_000_000, time.Minute)
	if plan.ScaleFactor != 1 {
		t.Fatalf("scale = %f, want capped at 1", plan.ScaleFactor)
	}
}

func TestBuildPlanZeroDuration(t *testing.T) {
	plan := BuildPlan(2_000_000, 8_000_000, 0)
	if plan.BitrateBPS != 16_000_000 {
		t.Fatalf("bitrate for zero duration = %d, want 16000000 (1s floor)", plan.BitrateBPS)
	}
}

func TestAppendOutsideRecording(t *testing.T) {
	p := NewPipeline(0, nil, zerolog.Nop())
	if err := p.Append([]byte("x")); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("append before start err = %v, want ErrNotRecording", err)
	}

	p.Start("video/webm")
	if err := p.Append([]byte("x")); err != nil {
		t.Fatalf("append while recording: %v", err)
	}

	p.Stop()
	if err := p.Append([]byte("x")); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("append after stop err = %v, want ErrNotRecording", err)
	}
}

func TestUndersizedRecordingPassesThroughUnchanged(t *testing.T) {
	p := NewPipeline(1024, ZstdTranscoder{}, zerolog.Nop())
	p.Start("video/webm")

	original := []byte("small recording payload")
	p.Append(original)

	artifact := p.Stop()
	if !bytes.Equal(artifact.Blob, original) {
		t.Fatal("undersized recording was modified")
	}
	if artifact.MimeType != "video/webm" {
		t.Fatalf("mime = %s, want video/webm", artifact.MimeType)
	}
	if artifact.SizeBytes != int64(len(original)) {
		t.Fatalf("size = %d, want %d", artifact.SizeBytes, len(original))
	}
}

func TestOversizedRecordingIsCompressed(t *testing.T) {
	p := NewPipeline(1024, ZstdTranscoder{}, zerolog.Nop())
	p.Start("video/webm")

	// Highly compressible payload well over the target.
	chunk := bytes.Repeat([]byte("abcdefgh"), 1024)
	p.Append(chunk)

	artifact := p.Stop()
	if artifact.SizeBytes >= int64(len(chunk)) {
		t.Fatalf("compressed size %d not smaller than original %d", artifact.SizeBytes, len(chunk))
	}
	if artifact.MimeType != "video/webm+zstd" {
		t.Fatalf("mime = %s, want video/webm+zstd", artifact.MimeType)
	}
}

type failingTranscoder struct{}

func (failingTranscoder) Transcode([]byte, string, Plan) ([]byte, string, error) {
	return nil, "", errors.New("encoder crashed")
}

func TestTranscodeFailureKeepsOriginal(t *testing.T) {
	p := NewPipeline(16, failingTranscoder{}, zerolog.Nop())
	p.Start("video/webm")

	original := []byte("this recording exceeds the tiny target")
	p.Append(original)

	artifact := p.Stop()
	if !bytes.Equal(artifact.Blob, original) {
		t.Fatal("failed transcode did not fall back to the original blob")
	}
	if artifact.MimeType != "video/webm" {
		t.Fatalf("mime after fallback = %s, want video/webm", artifact.MimeType)
	}
}

type inflatingTranscoder struct{}

func (inflatingTranscoder) Transcode(blob []byte, mime string, _ Plan) ([]byte, string, error) {
	return append(blob, blob...), mime + "+x", nil
}

func TestNonShrinkingTranscodeKeepsOriginal(t *testing.T) {
	p := NewPipeline(16, inflatingTranscoder{}, zerolog.Nop())
	p.Start("video/webm")

	original := []byte("this recording exceeds the tiny target")
	p.Append(original)

	artifact := p.Stop()
	if !bytes.Equal(artifact.Blob, original) {
		t.Fatal("non-shrinking transcode result was kept")
	}
}

func TestStreamEndedStopsAcceptingChunks(t *testing.T) {
	p := NewPipeline(0, nil, zerolog.Nop())
	p.Start("video/webm")
	p.Append([]byte("before"))

	p.StreamEnded()
	if err := p.Append([]byte("after")); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("append after stream end err = %v, want ErrNotRecording", err)
	}

	artifact := p.Stop()
	if string(artifact.Blob) != "before" {
		t.Fatalf("artifact = %q, want the pre-end bytes", artifact.Blob)
	}
}

func TestDefaultMimeType(t *testing.T) {
	p := NewPipeline(0, nil, zerolog.Nop())
	p.Start("")
	if artifact := p.Stop(); artifact.MimeType != "video/webm" {
		t.Fatalf("default mime = %s, want video/webm", artifact.MimeType)
	}
}
