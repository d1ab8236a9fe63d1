package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// sampleStaleness is how old a client-reported sample may be before the
// feed is considered dead.
const sampleStaleness = 3 * time.Second

// ErrFeedStale is returned when the client has stopped reporting samples.
var ErrFeedStale = errors.New("presence feed stale")

// SampleFeed is the production FrameClassifier: the exam client reports a
// face-count classification roughly once per second over the stream, and
// the detector loop reads the latest one.
type SampleFeed struct {
	mu         sync.Mutex
	faces      int
	reportedAt time.Time
	now        func() time.Time
}

// NewSampleFeed creates an empty feed.
func NewSampleFeed() *SampleFeed {
	return &SampleFeed{now: time.Now}
}

// Report records the client's latest classification.
func (f *SampleFeed) Report(faces int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faces = faces
	f.reportedAt = f.now()
}

// Classify returns the latest reported face count, or ErrFeedStale when the
// client has gone quiet.
func (f *SampleFeed) Classify(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reportedAt.IsZero() || f.now().Sub(f.reportedAt) > sampleStaleness {
		return 0, ErrFeedStale
	}
	return f.faces, nil
}
