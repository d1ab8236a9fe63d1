package session

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/skillproof/proctor-backend/internal/model"
)

// PresenceInterval is the fixed sampling cadence of the detector loop.
const PresenceInterval = time.Second

// debounceTicks is how many consecutive anomalous samples are required
// before a violation is raised. A single transient misclassification from
// the face model is ignored.
const debounceTicks = 2

// ErrDetectorUnavailable is reported when the face detection feed cannot be
// established. The session must not start without presence monitoring.
var ErrDetectorUnavailable = errors.New("presence detector unavailable")

// FrameClassifier supplies the latest face-count classification of the
// capture feed: 0, 1, or more faces. In production it is backed by the
// client-reported sample feed; tests supply a fake.
type FrameClassifier interface {
	Classify(ctx context.Context) (int, error)
}

// PresenceDetector runs a one-second sampling loop over a FrameClassifier
// and raises debounced violations into the session.
type PresenceDetector struct {
	classifier FrameClassifier
	raise      func(model.ViolationReason)
	monitored  func() bool
	log        zerolog.Logger

	noFaceStreak    int
	multiFaceStreak int
}

// NewPresenceDetector wires a detector to its classification source.
// raise is called for each debounced violation; monitored gates sampling so
// the detector is inert outside monitored phases.
func NewPresenceDetector(classifier FrameClassifier, raise func(model.ViolationReason), monitored func() bool, log zerolog.Logger) *PresenceDetector {
	return &PresenceDetector{
		classifier: classifier,
		raise:      raise,
		monitored:  monitored,
		log:        log.With().Str("component", "presence_detector").Logger(),
	}
}

// Run samples once per second until the context is cancelled.
func (d *PresenceDetector) Run(ctx context.Context) {
	ticker := time.NewTicker(PresenceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !d.monitored() {
				// The practical sandbox legitimately permits looking away.
				d.resetStreaks()
				continue
			}
			faces, err := d.classifier.Classify(ctx)
			if err != nil {
				// A dead feed counts as a miss; sustained absence debounces
				// into a no-face violation like any other.
				d.log.Debug().Err(err).Msg("classification unavailable, sampling as no-face")
				faces = 0
			}
			d.observe(faces)
		}
	}
}

// observe advances the debounce state machine for one sample. Anomalies
// must persist for two consecutive ticks before raising; after a raise the
// streak resets so a sustained condition cannot flood the ledger.
func (d *PresenceDetector) observe(faces int) {
	switch {
	case faces == 0:
		d.multiFaceStreak = 0
		d.noFaceStreak++
		if d.noFaceStreak >= debounceTicks {
			d.noFaceStreak = 0
			d.raise(model.ViolationNoFace)
		}
	case faces > 1:
		d.noFaceStreak = 0
		d.multiFaceStreak++
		if d.multiFaceStreak >= debounceTicks {
			d.multiFaceStreak = 0
			d.raise(model.ViolationMultipleFaces)
		}
	default:
		d.resetStreaks()
	}
}

func (d *PresenceDetector) resetStreaks() {
	d.noFaceStreak = 0
	d.multiFaceStreak = 0
}
