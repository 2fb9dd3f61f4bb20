package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"study-quiz-service/internal/domain"
)

// QuizDeleter removes quizzes. An unknown id yields domain.ErrQuizNotFound.
type QuizDeleter interface {
	DeleteQuiz(ctx context.Context, id int64) error
}

// CacheInvalidator drops one quiz from a read cache.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, id int64) error
}

// Catalog manages quizzes outside of play.
type Catalog struct {
	deleter QuizDeleter
	caches  []CacheInvalidator
	opts    options
}

func NewCatalog(deleter QuizDeleter, caches []CacheInvalidator, opts ...Option) *Catalog {
	return &Catalog{deleter: deleter, caches: caches, opts: buildOptions(opts)}
}

// DeleteQuiz removes a quiz and evicts it from every read cache, so sessions
// loaded afterwards drop it. Results already written for it are kept.
func (c *Catalog) DeleteQuiz(ctx context.Context, id int64) error {
	err := c.deleter.DeleteQuiz(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrQuizNotFound) {
		return fmt.Errorf("delete quiz %d: %w", id, err)
	}

	// evict even when the store had no row; a cache may still hold it
	for _, cache := range c.caches {
		if ierr := cache.Invalidate(ctx, id); ierr != nil {
			c.opts.recorder.PersistenceFailed("invalidate quiz")
			c.opts.log.WithError(ierr).WithField("quiz_id", id).Warn("quiz cache invalidation failed")
		}
	}
	if err != nil {
		return err
	}

	c.opts.log.WithFields(logrus.Fields{"quiz_id": id}).Info("quiz deleted")
	return nil
}
