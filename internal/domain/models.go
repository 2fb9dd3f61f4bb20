package domain

import "time"

// OptionCount is the fixed number of options every quiz carries.
const OptionCount = 4

// NoAnswer is stored in Result.SelectedOptionIndex when the timer expired.
const NoAnswer = -1

// DefaultCategory is used when a quiz carries no category label.
const DefaultCategory = "general"

// AllCategories selects every quiz regardless of category.
const AllCategories = "all"

// Quiz is a single four-option multiple-choice question.
type Quiz struct {
	ID                 int64     `json:"id"`
	Category           string    `json:"category"`
	Question           string    `json:"question" validate:"required"`
	Options            []string  `json:"options" validate:"len=4,dive,required"`
	CorrectOptionIndex int       `json:"correctOptionIndex" validate:"min=0,max=3"`
	Explanation        string    `json:"explanation,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// CategoryOrDefault returns the quiz category, falling back to the general bucket.
func (q Quiz) CategoryOrDefault() string {
	if q.Category == "" {
		return DefaultCategory
	}
	return q.Category
}

// Session is one play-through over a fixed, ordered list of quizzes.
// EndedAt and Score are set together exactly once when the session finishes.
type Session struct {
	ID             string     `json:"id"`
	StartedAt      time.Time  `json:"startedAt"`
	EndedAt        *time.Time `json:"endedAt,omitempty"`
	QuizIDs        []int64    `json:"quizIds"`
	Category       string     `json:"category,omitempty"`
	TotalQuestions int        `json:"totalQuestions"`
	Score          *int       `json:"score,omitempty"`
}

// Completed reports whether the session reached the end of play.
func (s Session) Completed() bool {
	return s.EndedAt != nil && s.Score != nil
}

// SessionUpdate carries the fields written when a session finishes.
type SessionUpdate struct {
	EndedAt time.Time
	Score   int
}

// Result is the outcome of one answered or timed-out question.
type Result struct {
	ID                  string    `json:"id"`
	SessionID           string    `json:"sessionId"`
	QuizID              int64     `json:"quizId"`
	SelectedOptionIndex int       `json:"selectedOptionIndex"`
	IsCorrect           bool      `json:"isCorrect"`
	AnsweredAt          time.Time `json:"answeredAt"`
}

// TimedOut reports whether no option was chosen before the timer expired.
func (r Result) TimedOut() bool {
	return r.SelectedOptionIndex == NoAnswer
}

// ShuffledOption is one entry of a per-question display order.
// OriginalIndex points back into Quiz.Options.
type ShuffledOption struct {
	OriginalIndex int    `json:"-"`
	Text          string `json:"text"`
}
