package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorly/proctorly-backend/internal/config"
	"github.com/proctorly/proctorly-backend/internal/logger"
	"github.com/proctorly/proctorly-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ResultWorker consumes persist_results_queue and UPSERTs finalized exam
// results into PostgreSQL.
type ResultWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewResultWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		pool: pool,
		rdb:  rdb,
		log:  logger.Component(log, "result_worker"),
	}
}

func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *ResultWorker) processNext(ctx context.Context) {
	item, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistResultsQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(item) < 2 {
		return
	}

	var result model.ExamResult
	if err := json.Unmarshal([]byte(item[1]), &result); err != nil {
		w.log.Error().Err(err).Msg("Invalid JSON payload")
		return
	}

	if err := w.persistResult(ctx, &result); err != nil {
		w.log.Error().Err(err).Str("exam_id", result.ExamID).Msg("Persist error, requeueing")
		w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, item[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *ResultWorker) persistResult(ctx context.Context, r *model.ExamResult) error {
	// The first finalization wins: termination is irreversible, so a
	// completed/violated row is never downgraded by a late duplicate.
	_, err := w.pool.Exec(ctx,
		`INSERT INTO exam_results (exam_id, status, score, total_questions, correct_answers, termination_reason, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (exam_id) DO NOTHING`,
		r.ExamID, string(r.Status), r.Score, r.TotalQuestions, r.CorrectAnswers, r.TerminationReason, r.FinishedAt,
	)
	return err
}

func (w *ResultWorker) drain(ctx context.Context) {
	drained := 0
	for {
		item, err := w.rdb.LPop(ctx, config.WorkerKey.PersistResultsQueue).Result()
		if err != nil {
			break
		}

		var result model.ExamResult
		if err := json.Unmarshal([]byte(item), &result); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persistResult(ctx, &result); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, item)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining results")
	}
}
