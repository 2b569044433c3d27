package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"prepx/internal/stats"
)

// OptionCount is the number of answer options every question carries
const OptionCount = 4

// Question is a multiple-choice practice question
type Question struct {
	ID                 int            `json:"id" yaml:"id"`
	Subject            string         `json:"subject" yaml:"subject"`
	Topic              string         `json:"topic" yaml:"topic"`
	Difficulty         string         `json:"difficulty" yaml:"difficulty"`
	QuestionText       string         `json:"questionText" yaml:"question_text"`
	Options            []string       `json:"options" yaml:"options"`
	CorrectOptionIndex int            `json:"correctOptionIndex" yaml:"correct_option_index"`
	Explanation        sql.NullString `json:"explanation" yaml:"explanation"`
	CreatedBy          sql.NullInt64  `json:"createdBy" yaml:"-"`
	IsActive           bool           `json:"isActive" yaml:"-"`
	TotalAttempts      int            `json:"totalAttempts" yaml:"-"`
	CorrectAttempts    int            `json:"correctAttempts" yaml:"-"`
	CreatedAt          time.Time      `json:"createdAt" yaml:"-"`
	UpdatedAt          time.Time      `json:"updatedAt" yaml:"-"`
}

// Accuracy is the share of all recorded attempts on this question that were correct
func (q Question) Accuracy() int {
	return stats.Accuracy(q.CorrectAttempts, q.TotalAttempts)
}

// MarshalJSON is the admin view of a question, including the answer
func (q Question) MarshalJSON() ([]byte, error) {
	var createdBy *int64
	if q.CreatedBy.Valid {
		createdBy = &q.CreatedBy.Int64
	}
	return json.Marshal(&struct {
		ID                 int       `json:"id"`
		Subject            string    `json:"subject"`
		Topic              string    `json:"topic"`
		Difficulty         string    `json:"difficulty"`
		QuestionText       string    `json:"questionText"`
		Options            []string  `json:"options"`
		CorrectOptionIndex int       `json:"correctOptionIndex"`
		Explanation        *string   `json:"explanation"`
		CreatedBy          *int64    `json:"createdBy"`
		IsActive           bool      `json:"isActive"`
		TotalAttempts      int       `json:"totalAttempts"`
		CorrectAttempts    int       `json:"correctAttempts"`
		Accuracy           int       `json:"accuracy"`
		CreatedAt          time.Time `json:"createdAt"`
		UpdatedAt          time.Time `json:"updatedAt"`
	}{
		ID:                 q.ID,
		Subject:            q.Subject,
		Topic:              q.Topic,
		Difficulty:         q.Difficulty,
		QuestionText:       q.QuestionText,
		Options:            q.Options,
		CorrectOptionIndex: q.CorrectOptionIndex,
		Explanation:        nullStringToPointer(q.Explanation),
		CreatedBy:          createdBy,
		IsActive:           q.IsActive,
		TotalAttempts:      q.TotalAttempts,
		CorrectAttempts:    q.CorrectAttempts,
		Accuracy:           q.Accuracy(),
		CreatedAt:          q.CreatedAt,
		UpdatedAt:          q.UpdatedAt,
	})
}

// PublicView hides the correct answer and explanation
func (q Question) PublicView() QuestionView {
	return QuestionView{
		ID:            q.ID,
		Subject:       q.Subject,
		Topic:         q.Topic,
		Difficulty:    q.Difficulty,
		QuestionText:  q.QuestionText,
		Options:       q.Options,
		TotalAttempts: q.TotalAttempts,
		Accuracy:      q.Accuracy(),
		CreatedAt:     q.CreatedAt,
	}
}

// QuestionView is a question as shown to someone who has not answered it yet
type QuestionView struct {
	ID            int       `json:"id"`
	Subject       string    `json:"subject"`
	Topic         string    `json:"topic"`
	Difficulty    string    `json:"difficulty"`
	QuestionText  string    `json:"questionText"`
	Options       []string  `json:"options"`
	TotalAttempts int       `json:"totalAttempts"`
	Accuracy      int       `json:"accuracy"`
	IsBookmarked  *bool     `json:"isBookmarked,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// QuestionFilter narrows question listings
type QuestionFilter struct {
	Subject         string
	Topic           string
	Difficulty      string
	IncludeInactive bool
	Page            int
	Limit           int
}

// QuestionInput is the body of the admin create and update endpoints, and the shape of seed files
type QuestionInput struct {
	Subject            string   `json:"subject" yaml:"subject" binding:"required"`
	Topic              string   `json:"topic" yaml:"topic" binding:"required,max=100"`
	Difficulty         string   `json:"difficulty" yaml:"difficulty" binding:"required,oneof=easy medium hard"`
	QuestionText       string   `json:"questionText" yaml:"question_text" binding:"required,max=2000"`
	Options            []string `json:"options" yaml:"options" binding:"required,len=4,dive,required"`
	CorrectOptionIndex *int     `json:"correctOptionIndex" yaml:"correct_option_index" binding:"required,min=0,max=3"`
	Explanation        string   `json:"explanation" yaml:"explanation"`
}

// SubjectCount is a configured subject with its number of active questions
type SubjectCount struct {
	Subject       string `json:"subject"`
	QuestionCount int    `json:"questionCount"`
}
