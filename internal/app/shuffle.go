package app

import "study-quiz-service/internal/domain"

// ShuffleOptions returns a fresh display order for the quiz options. Each
// entry keeps the option's original index, which is the only way callers
// should map a display position back to correctness.
func ShuffleOptions(quiz domain.Quiz, rnd Random) []domain.ShuffledOption {
	options := make([]domain.ShuffledOption, len(quiz.Options))
	for i, text := range quiz.Options {
		options[i] = domain.ShuffledOption{OriginalIndex: i, Text: text}
	}
	fisherYates(len(options), rnd, func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options
}

// fisherYates swaps from the last index down, drawing each partner from [0, i].
func fisherYates(n int, rnd Random, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		swap(i, j)
	}
}
