package domain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func quizValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ValidateQuiz checks the four-option shape and the correct index range.
func ValidateQuiz(q Quiz) error {
	q.Question = strings.TrimSpace(q.Question)
	if err := quizValidator().Struct(q); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuiz, err)
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("%w: option %d is blank", ErrInvalidQuiz, i)
		}
	}
	return nil
}
