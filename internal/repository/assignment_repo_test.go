package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Kadalzz/edu-project-sub000/internal/models"
)

func TestAssignmentRepositoryReplaceQuestions(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	assignment := seedAssignment(t, db)

	benar := "Benar"
	replacement := []models.Question{
		{
			Position:      1,
			Prompt:        "Bumi itu bulat.",
			Kind:          models.QuestionKindBoolean,
			CorrectAnswer: &benar,
			Weight:        5,
			Choices: []models.QuestionChoice{
				{Position: 1, Label: "Benar"},
				{Position: 2, Label: "Salah"},
			},
		},
		{
			Position: 2,
			Prompt:   "Jelaskan proses fotosintesis.",
			Kind:     models.QuestionKindFreeText,
			Weight:   15,
		},
	}

	require.NoError(t, repo.ReplaceQuestions(context.Background(), assignment.ID, replacement))

	reloaded, err := repo.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Questions, 2)
	require.Equal(t, models.QuestionKindBoolean, reloaded.Questions[0].Kind)
	require.Len(t, reloaded.Questions[0].Choices, 2)
	require.Equal(t, 20, reloaded.MaxScore())

	// Choices of the old question set are gone.
	var orphaned int64
	require.NoError(t, db.Model(&models.QuestionChoice{}).Count(&orphaned).Error)
	require.Equal(t, int64(2), orphaned)
}

func TestAssignmentRepositoryDeleteCascade(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	attempts := NewAttemptRepository(db)
	assignment := seedAssignment(t, db)

	attempt := models.Attempt{AssignmentID: assignment.ID, StudentID: 3, StartedAt: time.Now(), MaxScore: 10}
	require.NoError(t, attempts.Create(context.Background(), &attempt))
	require.NoError(t, attempts.UpsertAnswer(context.Background(), &models.Answer{
		AttemptID:  attempt.ID,
		QuestionID: assignment.Questions[0].ID,
		Value:      "4",
		Points:     10,
	}))

	require.NoError(t, repo.DeleteCascade(context.Background(), assignment.ID))

	for _, model := range []interface{}{
		&models.Assignment{}, &models.Question{}, &models.QuestionChoice{},
		&models.Attempt{}, &models.Answer{},
	} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		require.Zero(t, count)
	}
}

func TestAssignmentRepositoryHasSubmittedAttempts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	attempts := NewAttemptRepository(db)
	assignment := seedAssignment(t, db)

	attempt := models.Attempt{AssignmentID: assignment.ID, StudentID: 3, StartedAt: time.Now(), MaxScore: 10}
	require.NoError(t, attempts.Create(context.Background(), &attempt))

	has, err := repo.HasSubmittedAttempts(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.False(t, has, "in-progress attempts do not block deletion")

	submitted, err := attempts.MarkSubmitted(context.Background(), attempt.ID, FinalizeUpdate{SubmittedAt: time.Now(), Score: 10})
	require.NoError(t, err)
	require.True(t, submitted)

	has, err = repo.HasSubmittedAttempts(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.True(t, has)
}

func TestAssignmentRepositoryListVisibleOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)

	soon := time.Now().Add(24 * time.Hour)
	later := time.Now().Add(48 * time.Hour)
	records := []models.Assignment{
		{Title: "No deadline", Subject: "IPA", Mode: models.ModeTakeHome, Status: models.AssignmentStatusActive, TeacherID: 1, ClassID: 5},
		{Title: "Later", Subject: "IPA", Mode: models.ModeTakeHome, Status: models.AssignmentStatusActive, Deadline: &later, TeacherID: 1, ClassID: 5},
		{Title: "Soon", Subject: "IPA", Mode: models.ModeTakeHome, Status: models.AssignmentStatusActive, Deadline: &soon, TeacherID: 1, ClassID: 5},
		{Title: "Draft", Subject: "IPA", Mode: models.ModeTakeHome, Status: models.AssignmentStatusDraft, TeacherID: 1, ClassID: 5},
		{Title: "Other class", Subject: "IPA", Mode: models.ModeTakeHome, Status: models.AssignmentStatusActive, TeacherID: 1, ClassID: 6},
	}
	for i := range records {
		require.NoError(t, repo.Create(context.Background(), &records[i]))
	}

	visible, err := repo.ListVisibleToClass(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, visible, 3)
	require.Equal(t, "Soon", visible[0].Title)
	require.Equal(t, "Later", visible[1].Title)
	require.Equal(t, "No deadline", visible[2].Title, "null deadlines sort last")
}

func TestAssignmentRepositoryCountAttempts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	attempts := NewAttemptRepository(db)
	assignment := seedAssignment(t, db)

	for student := uint(1); student <= 3; student++ {
		attempt := models.Attempt{AssignmentID: assignment.ID, StudentID: student, StartedAt: time.Now(), MaxScore: 10}
		require.NoError(t, attempts.Create(context.Background(), &attempt))
	}

	counts, err := repo.CountAttempts(context.Background(), []uint{assignment.ID, 999})
	require.NoError(t, err)
	require.Equal(t, int64(3), counts[assignment.ID])
	require.Zero(t, counts[999])
}
