package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"study-quiz-service/internal/domain"
)

// Store persists quizzes, sessions and results in Postgres. It implements
// app.QuizStore, app.QuizWriter, app.SessionLedger and app.ResultLog.
// The schema comes from the migrations package.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const quizColumns = `id, category, question, options, correct_option_index, explanation, created_at, updated_at`

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if err := domain.ValidateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	quiz.Category = quiz.CategoryOrDefault()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO quizzes (category, question, options, correct_option_index, explanation)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		quiz.Category, quiz.Question, quiz.Options, quiz.CorrectOptionIndex, quiz.Explanation,
	).Scan(&quiz.ID, &quiz.CreatedAt, &quiz.UpdatedAt)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("insert quiz: %w", err)
	}
	return quiz, nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (domain.Quiz, bool, error) {
	quiz, err := scanQuiz(s.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, false, nil
	}
	if err != nil {
		return domain.Quiz{}, false, fmt.Errorf("load quiz: %w", err)
	}
	return quiz, true, nil
}

func (s *Store) ListByCategory(ctx context.Context, category string) ([]domain.Quiz, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if category == domain.AllCategories {
		rows, err = s.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY id`)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE category=$1 ORDER BY id`, category)
	}
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
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
	tag, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete quiz %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var (
		quiz    domain.Quiz
		correct int16
	)
	if err := row.Scan(&quiz.ID, &quiz.Category, &quiz.Question, &quiz.Options, &correct, &quiz.Explanation, &quiz.CreatedAt, &quiz.UpdatedAt); err != nil {
		return domain.Quiz{}, err
	}
	quiz.CorrectOptionIndex = int(correct)
	return quiz, nil
}

const sessionColumns = `id, started_at, ended_at, quiz_ids, category, total_questions, score`

func (s *Store) CreateSession(ctx context.Context, session domain.Session) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quiz_sessions (id, started_at, quiz_ids, category, total_questions) VALUES ($1, $2, $3, $4, $5)`,
		session.ID, session.StartedAt, session.QuizIDs, session.Category, session.TotalQuestions,
	)
	return err
}

func (s *Store) UpdateSession(ctx context.Context, id string, update domain.SessionUpdate) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE quiz_sessions SET ended_at=$2, score=$3 WHERE id=$1`,
		id, update.EndedAt, update.Score,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (domain.Session, bool, error) {
	session, err := scanSession(s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM quiz_sessions WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("load session: %w", err)
	}
	return session, true, nil
}

func (s *Store) ListSessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+sessionColumns+` FROM quiz_sessions ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session; its results go with it via ON DELETE CASCADE.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM quiz_sessions WHERE id=$1`, id)
	return err
}

func (s *Store) AppendResult(ctx context.Context, result domain.Result) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quiz_results (id, session_id, quiz_id, selected_option_index, is_correct, answered_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (session_id, quiz_id) DO NOTHING`,
		result.ID, result.SessionID, result.QuizID, result.SelectedOptionIndex, result.IsCorrect, result.AnsweredAt,
	)
	return err
}

func (s *Store) ListResultsBySession(ctx context.Context, sessionID string) ([]domain.Result, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, quiz_id, selected_option_index, is_correct, answered_at
		 FROM quiz_results WHERE session_id=$1 ORDER BY answered_at, id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	results := make([]domain.Result, 0)
	for rows.Next() {
		var (
			result   domain.Result
			selected int16
		)
		if err := rows.Scan(&result.ID, &result.SessionID, &result.QuizID, &selected, &result.IsCorrect, &result.AnsweredAt); err != nil {
			return nil, err
		}
		result.SelectedOptionIndex = int(selected)
		results = append(results, result)
	}
	return results, rows.Err()
}

func scanSession(row pgx.Row) (domain.Session, error) {
	var (
		session domain.Session
		endedAt *time.Time
		score   *int32
	)
	if err := row.Scan(&session.ID, &session.StartedAt, &endedAt, &session.QuizIDs, &session.Category, &session.TotalQuestions, &score); err != nil {
		return domain.Session{}, err
	}
	session.EndedAt = endedAt
	if score != nil {
		v := int(*score)
		session.Score = &v
	}
	return session, nil
}
