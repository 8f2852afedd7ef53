package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorly/proctorly-backend/internal/model"
)

// QuestionRepository mirrors generated question batches into PostgreSQL.
// The mirror is write-only from the exam core's perspective and never
// authoritative for the live flow.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// MirrorSectionQuestions replaces the mirrored batch for one section.
// Implements session.Mirror.
func (r *QuestionRepository) MirrorSectionQuestions(ctx context.Context, examID string, section model.Section, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM section_questions WHERE exam_id = $1 AND section = $2`,
		examID, section,
	); err != nil {
		return fmt.Errorf("clear section: %w", err)
	}

	rows := make([][]interface{}, 0, len(questions))
	for _, q := range questions {
		payload, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("marshal question: %w", err)
		}
		rows = append(rows, []interface{}{examID, string(section), q.ID, payload})
	}

	if _, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"section_questions"},
		[]string{"exam_id", "section", "question_id", "payload"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copy questions: %w", err)
	}

	return tx.Commit(ctx)
}
