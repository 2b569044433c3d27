package services

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"prepx/internal/models"
	contextutils "prepx/internal/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var questionColumns = []string{
	"id", "subject", "topic", "difficulty", "question_text", "options", "correct_option_index", "explanation",
	"created_by", "is_active", "total_attempts", "correct_attempts", "created_at", "updated_at",
}

func questionRow(id int, active bool) []interface{} {
	return []interface{}{
		id, "DBMS", "Normalization", "medium", "Which normal form removes transitive dependencies?",
		"{1NF,2NF,3NF,BCNF}", 2, "3NF removes transitive dependencies", nil, active, 10, 7, fixedNow, fixedNow,
	}
}

func validInput() models.QuestionInput {
	return models.QuestionInput{
		Subject:            "DBMS",
		Topic:              "Normalization",
		Difficulty:         "medium",
		QuestionText:       "Which normal form removes transitive dependencies?",
		Options:            []string{"1NF", "2NF", "3NF", "BCNF"},
		CorrectOptionIndex: intPtr(2),
	}
}

func TestValidateQuestionInput(t *testing.T) {
	svc := NewQuestionServiceWithLogger(nil, testConfig(), testLogger())

	require.NoError(t, svc.ValidateQuestionInput(validInput()))

	tests := []struct {
		name   string
		mutate func(*models.QuestionInput)
	}{
		{"unknown subject", func(in *models.QuestionInput) { in.Subject = "Astrology" }},
		{"unknown difficulty", func(in *models.QuestionInput) { in.Difficulty = "brutal" }},
		{"blank topic", func(in *models.QuestionInput) { in.Topic = "  " }},
		{"blank text", func(in *models.QuestionInput) { in.QuestionText = "" }},
		{"three options", func(in *models.QuestionInput) { in.Options = in.Options[:3] }},
		{"empty option", func(in *models.QuestionInput) { in.Options[1] = " " }},
		{"missing answer", func(in *models.QuestionInput) { in.CorrectOptionIndex = nil }},
		{"answer out of range", func(in *models.QuestionInput) { in.CorrectOptionIndex = intPtr(4) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			in.Options = append([]string(nil), in.Options...)
			tt.mutate(&in)
			err := svc.ValidateQuestionInput(in)
			assert.Equal(t, contextutils.ErrorCodeInvalidInput, contextutils.GetErrorCode(err))
		})
	}
}

func TestGetQuestionByID(t *testing.T) {
	t.Run("active", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewQuestionServiceWithLogger(db, testConfig(), testLogger())
		mock.ExpectQuery(regexp.QuoteMeta(`FROM questions WHERE id = $1`)).WithArgs(3).
			WillReturnRows(sqlmock.NewRows(questionColumns).AddRow(toDriverValues(questionRow(3, true))...))

		q, err := svc.GetQuestionByID(context.Background(), 3, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"1NF", "2NF", "3NF", "BCNF"}, q.Options)
		assert.Equal(t, 70, q.Accuracy())
		assert.False(t, q.CreatedBy.Valid)
	})

	t.Run("inactive hidden unless requested", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewQuestionServiceWithLogger(db, testConfig(), testLogger())
		mock.ExpectQuery(regexp.QuoteMeta(`FROM questions WHERE id = $1`)).WithArgs(3).
			WillReturnRows(sqlmock.NewRows(questionColumns).AddRow(toDriverValues(questionRow(3, false))...))
		mock.ExpectQuery(regexp.QuoteMeta(`FROM questions WHERE id = $1`)).WithArgs(3).
			WillReturnRows(sqlmock.NewRows(questionColumns).AddRow(toDriverValues(questionRow(3, false))...))

		_, err := svc.GetQuestionByID(context.Background(), 3, false)
		assert.True(t, errors.Is(err, contextutils.ErrQuestionNotFound))

		q, err := svc.GetQuestionByID(context.Background(), 3, true)
		require.NoError(t, err)
		assert.False(t, q.IsActive)
	})
}

func TestGetRandomQuestion(t *testing.T) {
	t.Run("filters", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewQuestionServiceWithLogger(db, testConfig(), testLogger())
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE is_active = TRUE AND subject = $1 AND difficulty = $2 ORDER BY RANDOM() LIMIT 1`)).
			WithArgs("DBMS", "medium").
			WillReturnRows(sqlmock.NewRows(questionColumns).AddRow(toDriverValues(questionRow(3, true))...))

		q, err := svc.GetRandomQuestion(context.Background(), "DBMS", "medium")
		require.NoError(t, err)
		assert.Equal(t, 3, q.ID)
	})

	t.Run("none available", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewQuestionServiceWithLogger(db, testConfig(), testLogger())
		mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY RANDOM() LIMIT 1`)).WillReturnRows(sqlmock.NewRows(questionColumns))

		_, err := svc.GetRandomQuestion(context.Background(), "", "")
		assert.True(t, errors.Is(err, contextutils.ErrNoQuestionsAvailable))
	})

	t.Run("invalid subject", func(t *testing.T) {
		svc := NewQuestionServiceWithLogger(nil, testConfig(), testLogger())
		_, err := svc.GetRandomQuestion(context.Background(), "Astrology", "")
		assert.Equal(t, contextutils.ErrorCodeInvalidInput, contextutils.GetErrorCode(err))
	})
}

func TestGetSubjects_ConfiguredOrder(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewQuestionServiceWithLogger(db, testConfig(), testLogger())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT subject, COUNT(*) FROM questions WHERE is_active = TRUE GROUP BY subject`)).
		WillReturnRows(sqlmock.NewRows([]string{"subject", "count"}).AddRow("DBMS", 12).AddRow("Aptitude", 4))

	subjects, err := svc.GetSubjects(context.Background())
	require.NoError(t, err)
	require.Len(t, subjects, len(testConfig().Quiz.Subjects))
	assert.Equal(t, models.SubjectCount{Subject: "Aptitude", QuestionCount: 4}, subjects[0])
	assert.Equal(t, models.SubjectCount{Subject: "Computer Networks", QuestionCount: 0}, subjects[1])
	assert.Equal(t, models.SubjectCount{Subject: "DBMS", QuestionCount: 12}, subjects[2])
}

func TestImportQuestions_ValidatesBeforeWriting(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewQuestionServiceWithLogger(db, testConfig(), testLogger())

	bad := validInput()
	bad.Difficulty = "impossible"
	_, err := svc.ImportQuestions(context.Background(), 1, []models.QuestionInput{validInput(), bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "question 2")
}

func TestImportQuestions_Transactional(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewQuestionServiceWithLogger(db, testConfig(), testLogger())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO questions`)).
		WillReturnRows(sqlmock.NewRows(questionColumns).AddRow(toDriverValues(questionRow(1, true))...))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO questions`)).
		WillReturnRows(sqlmock.NewRows(questionColumns).AddRow(toDriverValues(questionRow(2, true))...))
	mock.ExpectCommit()

	n, err := svc.ImportQuestions(context.Background(), 1, []models.QuestionInput{validInput(), validInput()})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
