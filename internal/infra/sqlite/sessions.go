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

const sessionColumns = `id, started_at_unix_ms, ended_at_unix_ms, quiz_ids_json, category, total_questions, score`

func (s *Store) CreateSession(ctx context.Context, session domain.Session) error {
	idsJSON, err := json.Marshal(session.QuizIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO sessions (id, started_at_unix_ms, quiz_ids_json, category, total_questions) VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.StartedAt.UnixMilli(), string(idsJSON), session.Category, session.TotalQuestions,
	)
	return err
}

func (s *Store) UpdateSession(ctx context.Context, id string, update domain.SessionUpdate) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE sessions SET ended_at_unix_ms = ?, score = ? WHERE id = ?`,
		update.EndedAt.UnixMilli(), update.Score, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (domain.Session, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}
	return session, true, nil
}

func (s *Store) ListSessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY started_at_unix_ms`)
	if err != nil {
		return nil, err
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

// DeleteSession removes the session together with any results it has.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE session_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// AppendResult inserts a result. A second result for the same (session, quiz)
// pair is ignored, so a retried write cannot double count.
func (s *Store) AppendResult(ctx context.Context, result domain.Result) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO results (id, session_id, quiz_id, selected_option_index, is_correct, answered_at_unix_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		result.ID, result.SessionID, result.QuizID, result.SelectedOptionIndex, boolToInt(result.IsCorrect), result.AnsweredAt.UnixMilli(),
	)
	return err
}

func (s *Store) ListResultsBySession(ctx context.Context, sessionID string) ([]domain.Result, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, session_id, quiz_id, selected_option_index, is_correct, answered_at_unix_ms
		 FROM results WHERE session_id = ? ORDER BY answered_at_unix_ms, rowid`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Result, 0)
	for rows.Next() {
		var (
			result     domain.Result
			isCorrect  int
			answeredAt int64
		)
		if err := rows.Scan(&result.ID, &result.SessionID, &result.QuizID, &result.SelectedOptionIndex, &isCorrect, &answeredAt); err != nil {
			return nil, err
		}
		result.IsCorrect = isCorrect == 1
		result.AnsweredAt = time.UnixMilli(answeredAt).UTC()
		results = append(results, result)
	}
	return results, rows.Err()
}

func scanSession(row rowScanner) (domain.Session, error) {
	var (
		session   domain.Session
		startedAt int64
		endedAt   sql.NullInt64
		idsJSON   string
		score     sql.NullInt64
	)
	if err := row.Scan(&session.ID, &startedAt, &endedAt, &idsJSON, &session.Category, &session.TotalQuestions, &score); err != nil {
		return domain.Session{}, err
	}
	if err := json.Unmarshal([]byte(idsJSON), &session.QuizIDs); err != nil {
		return domain.Session{}, fmt.Errorf("decode quiz ids for session %s: %w", session.ID, err)
	}
	session.StartedAt = time.UnixMilli(startedAt).UTC()
	if endedAt.Valid {
		t := time.UnixMilli(endedAt.Int64).UTC()
		session.EndedAt = &t
	}
	if score.Valid {
		v := int(score.Int64)
		session.Score = &v
	}
	return session, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
