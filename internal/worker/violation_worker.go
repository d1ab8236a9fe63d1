package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skillproof/proctor-backend/internal/config"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ViolationWorker drains the violation queue into the durable audit
// trail. Sessions enqueue fire-and-forget; this worker owns persistence,
// batching, and retry.
type ViolationWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewViolationWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ViolationWorker {
	return &ViolationWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "violation_worker").Logger(),
	}
}

type violationPayload struct {
	SessionID string `json:"session_id"`
	TestID    string `json:"test_id"`
	UserID    string `json:"user_id"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

func (w *ViolationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ViolationWorker started")

	buffer := make([]*violationPayload, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Check Flush Conditions (Time or Size)
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0] // Clear buffer, keep capacity
				lastFlushTime = time.Now()
			}
		}

		// 2. Check Context (Graceful Shutdown)
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
			// Continue
		}

		// 3. Fetch from Redis
		// BLPop blocks for 1 second. Returns immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistViolationsQueue).Result()

		if err != nil {
			if err == redis.Nil {
				continue // Timeout (Queue empty), loop back to check flush timer
			}
			if ctx.Err() != nil {
				return // Context cancelled
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		// 4. Process Data
		if len(result) < 2 {
			continue
		}

		var payload violationPayload
		if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
			// If JSON is malformed, we CANNOT retry it. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, &payload)
	}
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *ViolationWorker) flushSafe(ctx context.Context, batch []*violationPayload) {
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *ViolationWorker) bulkInsert(ctx context.Context, batch []*violationPayload) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, p := range batch {
		sessionID, err := uuid.Parse(p.SessionID)
		if err != nil {
			// Trigger fallback, which handles the bad row individually.
			return err
		}
		rows = append(rows, []interface{}{
			sessionID, p.TestID, p.UserID, p.Reason, time.Unix(p.Timestamp, 0),
		})
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"proctor_violations"},
		[]string{"session_id", "test_id", "user_id", "reason", "occurred_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (w *ViolationWorker) fallbackInsert(ctx context.Context, batch []*violationPayload) {
	requeueList := make([]*violationPayload, 0)

	for _, p := range batch {
		sessionID, err := uuid.Parse(p.SessionID)
		if err != nil {
			w.log.Error().Str("session_id", p.SessionID).Msg("Dropping violation with invalid session UUID")
			continue
		}

		_, err = w.pool.Exec(ctx,
			`INSERT INTO proctor_violations (session_id, test_id, user_id, reason, occurred_at)
             VALUES ($1, $2, $3, $4, $5)`,
			sessionID, p.TestID, p.UserID, p.Reason, time.Unix(p.Timestamp, 0),
		)

		if err != nil {
			w.log.Error().Err(err).Str("user_id", p.UserID).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, p)
		}
	}

	// If we have items to requeue (DB was down), push them back to Redis
	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ViolationWorker) requeue(ctx context.Context, items []*violationPayload) {
	pipe := w.rdb.Pipeline()
	for _, p := range items {
		data, _ := json.Marshal(p)
		pipe.RPush(ctx, config.WorkerKey.PersistViolationsQueue, data)
	}
	_, err := pipe.Exec(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
	} else {
		w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
		// Back off while the DB is down rather than thrashing.
		time.Sleep(2 * time.Second)
	}
}

func (w *ViolationWorker) shutdown(buffer []*violationPayload) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	// Give it 5 seconds to flush to DB
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
