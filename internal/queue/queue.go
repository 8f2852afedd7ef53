// Package queue pushes persistence payloads onto the Redis worker queues.
// Everything here is fire-and-forget from the hot path: workers drain the
// queues into PostgreSQL, and queue unavailability never fails the caller's
// primary flow.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/proctorly/proctorly-backend/internal/config"
	"github.com/proctorly/proctorly-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// Queue produces onto the worker queues.
type Queue struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// PersistAnswer queues one answer record for upsert.
func (q *Queue) PersistAnswer(ctx context.Context, examID string, a model.Answer) error {
	payload, err := json.Marshal(answerPayload{
		ExamID:          examID,
		Section:         string(a.Section),
		QuestionID:      a.QuestionID,
		UserAnswer:      a.UserAnswer,
		Status:          string(a.Status),
		MarkedForReview: a.MarkedForReview,
		TimeSpent:       a.TimeSpent,
	})
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err()
}

// PersistViolations queues a violation batch. Implements violation.Sink.
func (q *Queue) PersistViolations(ctx context.Context, violations []model.Violation) error {
	pipe := q.rdb.Pipeline()
	for _, v := range violations {
		payload, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal violation: %w", err)
		}
		pipe.RPush(ctx, config.WorkerKey.PersistViolationsQueue, payload)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// PersistResult queues the finalized exam result.
func (q *Queue) PersistResult(ctx context.Context, result model.ExamResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, payload).Err()
}

// answerPayload is the wire shape consumed by the answer worker.
type answerPayload struct {
	ExamID          string `json:"exam_id"`
	Section         string `json:"section"`
	QuestionID      int    `json:"question_id"`
	UserAnswer      string `json:"user_answer"`
	Status          string `json:"status"`
	MarkedForReview bool   `json:"marked_for_review"`
	TimeSpent       int64  `json:"time_spent"`
}
