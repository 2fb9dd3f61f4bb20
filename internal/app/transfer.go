package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"study-quiz-service/internal/domain"
)

// ExportVersion is the only quiz file version accepted by import.
const ExportVersion = "1.0"

// ExportedQuiz is the portable form of a quiz, without ids or timestamps.
type ExportedQuiz struct {
	Category           string   `json:"category"`
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
	Explanation        string   `json:"explanation,omitempty"`
}

// ExportFile is the quiz export/import document.
type ExportFile struct {
	Version    string         `json:"version"`
	ExportedAt time.Time      `json:"exportedAt"`
	Quizzes    []ExportedQuiz `json:"quizzes"`
}

func (e ExportedQuiz) toQuiz() domain.Quiz {
	options := make([]string, len(e.Options))
	copy(options, e.Options)
	return domain.Quiz{
		Category:           e.Category,
		Question:           e.Question,
		Options:            options,
		CorrectOptionIndex: e.CorrectOptionIndex,
		Explanation:        e.Explanation,
	}
}

// ExportQuizzes builds an export document for a category ("all" for everything).
func ExportQuizzes(ctx context.Context, store QuizStore, category string, now time.Time) (ExportFile, error) {
	quizzes, err := store.ListByCategory(ctx, normalizeCategory(category))
	if err != nil {
		return ExportFile{}, fmt.Errorf("list quizzes: %w", err)
	}
	file := ExportFile{
		Version:    ExportVersion,
		ExportedAt: now.UTC(),
		Quizzes:    make([]ExportedQuiz, 0, len(quizzes)),
	}
	for _, q := range quizzes {
		options := make([]string, len(q.Options))
		copy(options, q.Options)
		file.Quizzes = append(file.Quizzes, ExportedQuiz{
			Category:           q.CategoryOrDefault(),
			Question:           q.Question,
			Options:            options,
			CorrectOptionIndex: q.CorrectOptionIndex,
			Explanation:        q.Explanation,
		})
	}
	return file, nil
}

// DecodeExport parses and validates an export document.
func DecodeExport(r io.Reader) (ExportFile, error) {
	var file ExportFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return ExportFile{}, fmt.Errorf("decode quiz file: %w", err)
	}
	if file.Version != ExportVersion {
		return ExportFile{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedExportVersion, file.Version)
	}
	if file.Quizzes == nil {
		return ExportFile{}, fmt.Errorf("%w: quizzes missing", domain.ErrInvalidQuiz)
	}
	for i, q := range file.Quizzes {
		if err := domain.ValidateQuiz(q.toQuiz()); err != nil {
			return ExportFile{}, fmt.Errorf("quiz %d: %w", i, err)
		}
	}
	return file, nil
}

// ImportQuizzes creates every quiz in the document and returns how many were written.
func ImportQuizzes(ctx context.Context, writer QuizWriter, file ExportFile) (int, error) {
	for i, q := range file.Quizzes {
		if _, err := writer.CreateQuiz(ctx, q.toQuiz()); err != nil {
			return i, fmt.Errorf("import quiz %d: %w", i, err)
		}
	}
	return len(file.Quizzes), nil
}
