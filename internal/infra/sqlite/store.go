package sqlite

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Store keeps quizzes, sessions and results in one SQLite file. It implements
// app.QuizStore, app.QuizWriter, app.SessionLedger and app.ResultLog.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = "quiz.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// a single writer keeps result inserts and session updates serialized
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &Store{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	// No FK from results to quizzes: deleting a quiz must leave history intact.
	statements := []string{
		`CREATE TABLE IF NOT EXISTS quizzes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category TEXT NOT NULL,
			question TEXT NOT NULL,
			options_json TEXT NOT NULL,
			correct_index INTEGER NOT NULL,
			explanation TEXT NOT NULL DEFAULT '',
			created_at_unix_ms INTEGER NOT NULL,
			updated_at_unix_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at_unix_ms INTEGER NOT NULL,
			ended_at_unix_ms INTEGER,
			quiz_ids_json TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			total_questions INTEGER NOT NULL,
			score INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			quiz_id INTEGER NOT NULL,
			selected_option_index INTEGER NOT NULL,
			is_correct INTEGER NOT NULL,
			answered_at_unix_ms INTEGER NOT NULL,
			UNIQUE (session_id, quiz_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_quizzes_category ON quizzes(category);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at_unix_ms);`,
		`CREATE INDEX IF NOT EXISTS idx_results_session ON results(session_id, answered_at_unix_ms);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
