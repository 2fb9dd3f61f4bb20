package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"study-quiz-service/internal/domain"
)

const quizColumns = `id, category, question, options_json, correct_index, explanation, created_at_unix_ms, updated_at_unix_ms`

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if err := domain.ValidateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	optionsJSON, err := json.Marshal(quiz.Options)
	if err != nil {
		return domain.Quiz{}, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	quiz.Category = quiz.CategoryOrDefault()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO quizzes (category, question, options_json, correct_index, explanation, created_at_unix_ms, updated_at_unix_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		quiz.Category, quiz.Question, string(optionsJSON), quiz.CorrectOptionIndex, quiz.Explanation, now.UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("insert quiz: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.ID = id
	quiz.CreatedAt = now
	quiz.UpdatedAt = now
	return quiz, nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (domain.Quiz, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id = ?`, id)
	quiz, err := scanQuiz(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, false, nil
	}
	if err != nil {
		return domain.Quiz{}, false, err
	}
	return quiz, true, nil
}

func (s *Store) ListByCategory(ctx context.Context, category string) ([]domain.Quiz, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if category == domain.AllCategories {
		rows, err = s.db.QueryContext(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY id`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE category = ? ORDER BY id`, category)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quizzes := make([]domain.Quiz, 0)
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}

// DeleteQuiz removes a quiz row. Results referencing it are kept.
func (s *Store) DeleteQuiz(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete quiz %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuiz(row rowScanner) (domain.Quiz, error) {
	var (
		quiz        domain.Quiz
		optionsJSON string
		createdAt   int64
		updatedAt   int64
	)
	if err := row.Scan(&quiz.ID, &quiz.Category, &quiz.Question, &optionsJSON, &quiz.CorrectOptionIndex, &quiz.Explanation, &createdAt, &updatedAt); err != nil {
		return domain.Quiz{}, err
	}
	if err := json.Unmarshal([]byte(optionsJSON), &quiz.Options); err != nil {
		return domain.Quiz{}, fmt.Errorf("decode options for quiz %d: %w", quiz.ID, err)
	}
	quiz.CreatedAt = time.UnixMilli(createdAt).UTC()
	quiz.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return quiz, nil
}
