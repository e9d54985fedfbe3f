// Package queue hands export jobs to workers through Redis. Ready jobs sit in
// a list; retries wait in a sorted set scored by their due time.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/logbook-automation/pkg/config"
	"github.com/logbook-automation/pkg/logger"
)

type Job struct {
	ID         string    `json:"id"`
	EntryID    string    `json:"entry_id"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func NewJob(entryID string) Job {
	return Job{
		ID:         uuid.NewString(),
		EntryID:    entryID,
		Attempt:    1,
		EnqueuedAt: time.Now(),
	}
}

type RedisQueue struct {
	client  *redis.Client
	ready   string
	delayed string
	log     *logger.Logger
}

func New(ctx context.Context, cfg *config.QueueConfig) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewWithClient(client, cfg.KeyPrefix), nil
}

func NewWithClient(client *redis.Client, prefix string) *RedisQueue {
	if prefix == "" {
		prefix = "logbook"
	}
	return &RedisQueue{
		client:  client,
		ready:   prefix + ":jobs:ready",
		delayed: prefix + ":jobs:delayed",
		log:     logger.WithComponent("queue"),
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := q.client.LPush(ctx, q.ready, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}
	q.log.Debug("Enqueued job %s for entry %s (attempt %d)", job.ID, job.EntryID, job.Attempt)
	return nil
}

// EnqueueAt parks job until at, when Promote moves it to the ready list.
func (q *RedisQueue) EnqueueAt(ctx context.Context, job Job, at time.Time) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	err = q.client.ZAdd(ctx, q.delayed, redis.Z{Score: float64(at.UnixMilli()), Member: data}).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", job.ID, err)
	}
	q.log.Debug("Scheduled job %s for entry %s at %s", job.ID, job.EntryID, at.Format(time.RFC3339))
	return nil
}

// Promote moves every delayed job due at or before now onto the ready list.
// A job removed by a concurrent promoter is skipped.
func (q *RedisQueue) Promote(ctx context.Context, now time.Time) (int, error) {
	due, err := q.client.ZRangeByScore(ctx, q.delayed, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read delayed jobs: %w", err)
	}

	promoted := 0
	for _, member := range due {
		removed, err := q.client.ZRem(ctx, q.delayed, member).Result()
		if err != nil {
			return promoted, fmt.Errorf("failed to claim delayed job: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.ready, member).Err(); err != nil {
			return promoted, fmt.Errorf("failed to promote delayed job: %w", err)
		}
		promoted++
	}
	return promoted, nil
}

// Dequeue blocks up to timeout for a ready job. It returns nil, nil when the
// wait ends empty.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	if _, err := q.Promote(ctx, time.Now()); err != nil {
		q.log.Warn("Promote failed: %v", err)
	}

	res, err := q.client.BRPop(ctx, timeout, q.ready).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	// res is [key, value]
	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &job, nil
}

type Stats struct {
	Ready   int64 `json:"ready"`
	Delayed int64 `json:"delayed"`
}

func (q *RedisQueue) Stats(ctx context.Context) (Stats, error) {
	ready, err := q.client.LLen(ctx, q.ready).Result()
	if err != nil {
		return Stats{}, err
	}
	delayed, err := q.client.ZCard(ctx, q.delayed).Result()
	if err != nil {
		return Stats{}, err
	}
	return Stats{Ready: ready, Delayed: delayed}, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
