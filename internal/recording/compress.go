package recording

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// ZstdTranscoder is the default Transcoder. Media containers such as webm
// are already entropy-coded, so a true re-encode belongs to an external
// transcoder; zstd still strips container redundancy and its level can be
// steered by the plan's derived bitrate. The encoded stream carries a
// distinguishing MIME suffix so the evaluation side can unwrap it.
type ZstdTranscoder struct{}

// Transcode compresses the blob with a zstd level picked from the plan's
// scale factor: the more aggressive the plan, the higher the level.
func (ZstdTranscoder) Transcode(blob []byte, mimeType string, plan Plan) ([]byte, string, error) {
	level := zstd.SpeedDefault
	if plan.ScaleFactor < 0.5 {
		level = zstd.SpeedBestCompression
	}

	var out bytes.Buffer
	enc, err := zstd.NewWriter(&out, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, "", fmt.Errorf("create encoder: %w", err)
	}
	if _, err := enc.Write(blob); err != nil {
		enc.Close()
		return nil, "", fmt.Errorf("compress recording: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, "", fmt.Errorf("flush encoder: %w", err)
	}

	return out.Bytes(), mimeType + "+zstd", nil
}
