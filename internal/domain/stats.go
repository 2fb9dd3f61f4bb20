package domain

import "time"

// AnsweredQuiz pairs a result with the quiz it answers. Quiz is nil when the
// quiz was deleted after the result was written.
type AnsweredQuiz struct {
	Result      Result `json:"result"`
	Quiz        *Quiz  `json:"quiz,omitempty"`
	QuizMissing bool   `json:"quizMissing,omitempty"`
}

// SessionSummary is the end-of-session view keyed by session id.
type SessionSummary struct {
	Session         Session        `json:"session"`
	Answers         []AnsweredQuiz `json:"answers"`
	Score           int            `json:"score"`
	TotalQuestions  int            `json:"totalQuestions"`
	Percentage      int            `json:"percentage"`
	DurationSeconds int64          `json:"durationSeconds"`
}

// HistoryEntry is one row of the session history list.
type HistoryEntry struct {
	Session         Session `json:"session"`
	Completed       bool    `json:"completed"`
	Score           int     `json:"score"`
	TotalQuestions  int     `json:"totalQuestions"`
	Percentage      int     `json:"percentage"`
	DurationSeconds int64   `json:"durationSeconds"`
}

// CategoryStat is per-category accuracy grouped by the answered quiz's category.
type CategoryStat struct {
	Category   string  `json:"category"`
	Answered   int     `json:"answered"`
	Correct    int     `json:"correct"`
	Accuracy   float64 `json:"accuracy"`
	Percentage int     `json:"percentage"`
}

// DailyStat aggregates completed sessions started on the same calendar day.
type DailyStat struct {
	Date     string  `json:"date"`
	Sessions int     `json:"sessions"`
	Score    int     `json:"score"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}

// Overview is the cross-session aggregate over completed sessions only.
type Overview struct {
	CompletedSessions int            `json:"completedSessions"`
	TotalAnswered     int            `json:"totalAnswered"`
	Correct           int            `json:"correct"`
	Incorrect         int            `json:"incorrect"`
	Accuracy          float64        `json:"accuracy"`
	Percentage        int            `json:"percentage"`
	Categories        []CategoryStat `json:"categories"`
	Daily             []DailyStat    `json:"daily"`
	GeneratedAt       time.Time      `json:"generatedAt"`
}
