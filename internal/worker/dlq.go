package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Failed jobs are parked on a per-queue dead-letter list (dlq:<queue>) for
// manual inspection and replay.

const dlqPrefix = "dlq:"

// DeadLetter wraps a failed job with the context needed to replay it.
type DeadLetter struct {
	Queue    string          `json:"queue"`
	JobType  string          `json:"job_type"`
	Payload  json.RawMessage `json:"payload"`
	Cause    string          `json:"cause"`
	FailedAt time.Time       `json:"failed_at"`
}

// Park moves a failed job to the queue's dead-letter list. Best-effort: a
// park failure is logged, the job is lost.
func Park(ctx context.Context, rdb *redis.Client, queue, jobType string, payload json.RawMessage, cause string) {
	letter := DeadLetter{
		Queue:    queue,
		JobType:  jobType,
		Payload:  payload,
		Cause:    cause,
		FailedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(letter)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dead-letter marshal failed")
		return
	}
	if err := rdb.LPush(ctx, dlqPrefix+queue, data).Err(); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dead-letter push failed")
		return
	}
	log.Warn().
		Str("queue", queue).
		Str("job_type", jobType).
		Str("cause", cause).
		Msg("job parked on dead-letter list")
}

// ParkedCount returns the dead-letter list length for a queue.
func ParkedCount(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, dlqPrefix+queue).Result()
}
