package cli

import "study-quiz-service/internal/domain"

// sampleQuizzes seeds the in-memory quiz store so the server is playable
// without a database. Import a quiz file into SQLite or Postgres for real use.
func sampleQuizzes() []domain.Quiz {
	return []domain.Quiz{
		{
			ID:                 1,
			Category:           "geography",
			Question:           "What is the capital of France?",
			Options:            []string{"Paris", "Lyon", "Nice", "Lille"},
			CorrectOptionIndex: 0,
			Explanation:        "Paris has been the capital since the 10th century.",
		},
		{
			ID:                 2,
			Category:           "geography",
			Question:           "Which river flows through Vienna?",
			Options:            []string{"Rhine", "Danube", "Elbe", "Vistula"},
			CorrectOptionIndex: 1,
		},
		{
			ID:                 3,
			Category:           "math",
			Question:           "What is 7 x 8?",
			Options:            []string{"54", "56", "58", "64"},
			CorrectOptionIndex: 1,
		},
		{
			ID:                 4,
			Category:           "math",
			Question:           "What is the square root of 144?",
			Options:            []string{"11", "14", "12", "13"},
			CorrectOptionIndex: 2,
		},
		{
			ID:                 5,
			Category:           "science",
			Question:           "What is the chemical symbol for gold?",
			Options:            []string{"Ag", "Gd", "Go", "Au"},
			CorrectOptionIndex: 3,
			Explanation:        "Au comes from the Latin aurum.",
		},
	}
}
