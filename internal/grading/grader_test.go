package grading

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Kadalzz/edu-project-sub000/internal/models"
)

func strPtr(s string) *string { return &s }

func TestScoreSingleChoice(t *testing.T) {
	question := models.Question{
		Kind:          models.QuestionKindSingleChoice,
		CorrectAnswer: strPtr("4"),
		Weight:        10,
	}

	require.Equal(t, 10, Score(question, "4"))
	require.Equal(t, 0, Score(question, "5"))
	require.Equal(t, 0, Score(question, ""))
}

func TestScoreBooleanCaseSensitive(t *testing.T) {
	question := models.Question{
		Kind:          models.QuestionKindBoolean,
		CorrectAnswer: strPtr("Benar"),
		Weight:        5,
	}

	require.Equal(t, 5, Score(question, "Benar"))
	require.Equal(t, 0, Score(question, "benar"))
	require.Equal(t, 0, Score(question, "Salah"))
}

func TestScoreFreeTextAlwaysZero(t *testing.T) {
	question := models.Question{
		Kind:   models.QuestionKindFreeText,
		Weight: 15,
	}

	require.Equal(t, 0, Score(question, "any essay text"))
}

func TestScoreMissingCanonicalAnswer(t *testing.T) {
	question := models.Question{
		Kind:   models.QuestionKindSingleChoice,
		Weight: 10,
	}

	require.Equal(t, 0, Score(question, "anything"))
}

func TestClampPoints(t *testing.T) {
	require.Equal(t, 15, ClampPoints(20, 15))
	require.Equal(t, 0, ClampPoints(-3, 15))
	require.Equal(t, 12, ClampPoints(12, 15))
	require.Equal(t, 0, ClampPoints(0, 15))
	require.Equal(t, 15, ClampPoints(15, 15))
}

func TestHasFreeText(t *testing.T) {
	withFree := []models.Question{
		{Kind: models.QuestionKindBoolean},
		{Kind: models.QuestionKindFreeText},
	}
	withoutFree := []models.Question{
		{Kind: models.QuestionKindBoolean},
		{Kind: models.QuestionKindSingleChoice},
	}

	require.True(t, HasFreeText(withFree))
	require.False(t, HasFreeText(withoutFree))
	require.False(t, HasFreeText(nil))
}

func TestAllFreeTextGraded(t *testing.T) {
	questions := []models.Question{
		{ID: 1, Kind: models.QuestionKindFreeText},
		{ID: 2, Kind: models.QuestionKindBoolean},
		{ID: 3, Kind: models.QuestionKindFreeText},
	}

	// Zero points with the manual flag set is a real grade.
	answers := []models.Answer{
		{QuestionID: 1, Points: 0, ManuallyGraded: true},
		{QuestionID: 2, Points: 5},
		{QuestionID: 3, Points: 8, ManuallyGraded: true},
	}
	require.True(t, AllFreeTextGraded(questions, answers))

	ungraded := []models.Answer{
		{QuestionID: 1, Points: 0, ManuallyGraded: true},
		{QuestionID: 2, Points: 5},
		{QuestionID: 3, Points: 0},
	}
	require.False(t, AllFreeTextGraded(questions, ungraded))

	// A free-text question never answered is still pending.
	require.False(t, AllFreeTextGraded(questions, nil))
}

func TestAggregate(t *testing.T) {
	answers := []models.Answer{
		{Points: 10},
		{Points: 0},
	}

	score, grade := Aggregate(answers, 20)
	require.Equal(t, 10, score)
	require.Equal(t, 50, grade)
}

func TestAggregateRounds(t *testing.T) {
	answers := []models.Answer{{Points: 17}}

	score, grade := Aggregate(answers, 20)
	require.Equal(t, 17, score)
	require.Equal(t, 85, grade)

	_, grade = Aggregate([]models.Answer{{Points: 1}}, 3)
	require.Equal(t, 33, grade)

	_, grade = Aggregate([]models.Answer{{Points: 2}}, 3)
	require.Equal(t, 67, grade)
}

func TestAggregateZeroMaxScore(t *testing.T) {
	score, grade := Aggregate([]models.Answer{{Points: 5}}, 0)
	require.Equal(t, 5, score)
	require.Equal(t, 0, grade)
}
