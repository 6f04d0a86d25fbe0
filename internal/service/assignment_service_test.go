package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Kadalzz/edu-project-sub000/internal/apperr"
	"github.com/Kadalzz/edu-project-sub000/internal/dto"
	"github.com/Kadalzz/edu-project-sub000/internal/models"
)

func newAssignmentFixture(t *testing.T, cache *redis.Client) (*fakeAssignmentRepo, *assignmentService) {
	t.Helper()

	repo := newFakeAssignmentRepo()
	students := newFakeStudentRepo(
		models.Student{ID: 42, Name: "Budi", ClassID: 3},
	)

	svc := NewAssignmentService(repo, students, cache, time.Minute, NewValidator(), testLogger()).(*assignmentService)
	return repo, svc
}

func validCreateRequest() dto.AssignmentCreateRequest {
	duration := 45
	return dto.AssignmentCreateRequest{
		Title:           "Ulangan Harian Bab 2",
		Subject:         "Matematika",
		Mode:            models.ModeTimed,
		Status:          models.AssignmentStatusActive,
		DurationMinutes: &duration,
		PIN:             "1234",
		ClassID:         3,
		Questions: []dto.QuestionInput{
			{
				Prompt:        "2 + 2 = ?",
				Kind:          models.QuestionKindSingleChoice,
				Choices:       []string{"3", "4", "5"},
				CorrectAnswer: strPtr("4"),
				Weight:        10,
			},
			{
				Prompt:        "Bumi itu datar.",
				Kind:          models.QuestionKindBoolean,
				Choices:       []string{"Benar", "Salah"},
				CorrectAnswer: strPtr("Salah"),
				Weight:        10,
			},
		},
	}
}

func TestCreateAssignment(t *testing.T) {
	repo, svc := newAssignmentFixture(t, nil)

	response, err := svc.Create(context.Background(), 7, validCreateRequest())
	require.NoError(t, err)
	require.Equal(t, models.AssignmentStatusActive, response.Status)
	require.Equal(t, 20, response.MaxScore)
	require.Len(t, response.Questions, 2)
	require.Equal(t, 1, response.Questions[0].Position)
	require.Len(t, repo.assignments, 1)
}

func TestCreateAssignmentCollectsEveryViolation(t *testing.T) {
	_, svc := newAssignmentFixture(t, nil)

	duration := 2
	payload := validCreateRequest()
	payload.DurationMinutes = &duration
	payload.PIN = ""
	payload.Questions = []dto.QuestionInput{
		{Prompt: "Pilih salah satu.", Kind: models.QuestionKindSingleChoice, Weight: 0},
	}

	_, err := svc.Create(context.Background(), 7, payload)
	require.True(t, apperr.IsValidation(err))

	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)

	violated := make(map[string]bool, len(verr.Fields))
	for _, field := range verr.Fields {
		violated[field.Field] = true
	}
	require.True(t, violated["duration_minutes"])
	require.True(t, violated["pin"])
	require.True(t, violated["questions[0].weight"])
	require.True(t, violated["questions[0].choices"])
	require.True(t, violated["questions[0].correct_answer"])
}

func TestCreateAssignmentCanonicalAnswerMustBeAChoice(t *testing.T) {
	_, svc := newAssignmentFixture(t, nil)

	payload := validCreateRequest()
	payload.Questions[0].CorrectAnswer = strPtr("7")

	_, err := svc.Create(context.Background(), 7, payload)
	require.True(t, apperr.IsValidation(err))
}

func TestCreateAssignmentPastDeadline(t *testing.T) {
	_, svc := newAssignmentFixture(t, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }

	payload := validCreateRequest()
	payload.Deadline = strPtr("2026-03-01T08:00:00Z")

	_, err := svc.Create(context.Background(), 7, payload)
	require.True(t, apperr.IsValidation(err))
}

func TestUpdateAssignmentForeignTeacher(t *testing.T) {
	repo, svc := newAssignmentFixture(t, nil)
	repo.add(models.Assignment{ID: 1, Title: "Latihan", Subject: "IPA", Mode: models.ModeTakeHome, Status: models.AssignmentStatusDraft, TeacherID: 7, ClassID: 3})

	_, err := svc.Update(context.Background(), 8, 1, dto.AssignmentUpdateRequest{Title: strPtr("Lain")})
	require.True(t, apperr.IsAuthorization(err))
}

func TestUpdateAssignmentStatusOnlyMovesForward(t *testing.T) {
	repo, svc := newAssignmentFixture(t, nil)
	repo.add(models.Assignment{ID: 1, Title: "Latihan", Subject: "IPA", Mode: models.ModeTakeHome, Status: models.AssignmentStatusClosed, TeacherID: 7, ClassID: 3})

	status := models.AssignmentStatusActive
	_, err := svc.Update(context.Background(), 7, 1, dto.AssignmentUpdateRequest{Status: &status})
	require.True(t, apperr.IsConflict(err))
}

func TestUpdateAssignmentDraftCannotSkipToClosed(t *testing.T) {
	repo, svc := newAssignmentFixture(t, nil)
	repo.add(models.Assignment{ID: 1, Title: "Latihan", Subject: "IPA", Mode: models.ModeTakeHome, Status: models.AssignmentStatusDraft, TeacherID: 7, ClassID: 3})

	status := models.AssignmentStatusClosed
	_, err := svc.Update(context.Background(), 7, 1, dto.AssignmentUpdateRequest{Status: &status})
	require.True(t, apperr.IsConflict(err))

	// Each named step still works.
	active := models.AssignmentStatusActive
	_, err = svc.Update(context.Background(), 7, 1, dto.AssignmentUpdateRequest{Status: &active})
	require.NoError(t, err)
	_, err = svc.Update(context.Background(), 7, 1, dto.AssignmentUpdateRequest{Status: &status})
	require.NoError(t, err)
}

func TestUpdateAssignmentReplacesQuestions(t *testing.T) {
	repo, svc := newAssignmentFixture(t, nil)
	created, err := svc.Create(context.Background(), 7, validCreateRequest())
	require.NoError(t, err)

	questions := []dto.QuestionInput{
		{Prompt: "Sebutkan ibukota provinsi Jawa Barat.", Kind: models.QuestionKindFreeText, Weight: 25},
	}
	updated, err := svc.Update(context.Background(), 7, created.ID, dto.AssignmentUpdateRequest{Questions: &questions})
	require.NoError(t, err)
	require.Len(t, updated.Questions, 1)
	require.Equal(t, 25, updated.MaxScore)
	require.Len(t, repo.assignments[created.ID].Questions, 1)
}

func TestDeleteAssignmentWithSubmittedAttempts(t *testing.T) {
	repo, svc := newAssignmentFixture(t, nil)
	repo.add(models.Assignment{ID: 1, Title: "Latihan", Subject: "IPA", Mode: models.ModeTakeHome, Status: models.AssignmentStatusActive, TeacherID: 7, ClassID: 3})
	repo.hasSubmitted = true

	err := svc.Delete(context.Background(), 7, 1)
	require.True(t, apperr.IsConflict(err))

	// Refused deletes must not touch the assignment.
	require.Len(t, repo.assignments, 1)
	require.Zero(t, repo.deleteCalls)
}

func TestDeleteAssignment(t *testing.T) {
	repo, svc := newAssignmentFixture(t, nil)
	repo.add(models.Assignment{ID: 1, Title: "Latihan", Subject: "IPA", Mode: models.ModeTakeHome, Status: models.AssignmentStatusActive, TeacherID: 7, ClassID: 3})

	require.NoError(t, svc.Delete(context.Background(), 7, 1))
	require.Empty(t, repo.assignments)
}

func TestListByTeacherCarriesAttemptCounts(t *testing.T) {
	repo, svc := newAssignmentFixture(t, nil)
	repo.add(models.Assignment{ID: 1, Title: "Latihan", Subject: "IPA", Mode: models.ModeTakeHome, Status: models.AssignmentStatusActive, TeacherID: 7, ClassID: 3})
	repo.add(models.Assignment{ID: 2, Title: "Esai", Subject: "IPA", Mode: models.ModeTakeHome, Status: models.AssignmentStatusDraft, TeacherID: 7, ClassID: 3})
	repo.attemptCounts = map[uint]int64{1: 4}

	responses, err := svc.ListByTeacher(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, responses, 2)

	counts := map[uint]int64{}
	for _, response := range responses {
		counts[response.ID] = response.AttemptCount
	}
	require.Equal(t, int64(4), counts[1])
	require.Zero(t, counts[2])
}

func TestListVisibleToFiltersScheduledAssignments(t *testing.T) {
	repo, svc := newAssignmentFixture(t, nil)
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	repo.add(models.Assignment{ID: 1, Title: "Sudah tayang", Subject: "IPA", Mode: models.ModeTakeHome, Status: models.AssignmentStatusActive, ClassID: 3, TeacherID: 7})
	repo.add(models.Assignment{ID: 2, Title: "Belum tayang", Subject: "IPA", Mode: models.ModeTakeHome, Status: models.AssignmentStatusActive, ClassID: 3, TeacherID: 7, VisibleFrom: timePtr(now.Add(time.Hour))})
	repo.add(models.Assignment{ID: 3, Title: "Kelas lain", Subject: "IPA", Mode: models.ModeTakeHome, Status: models.AssignmentStatusActive, ClassID: 4, TeacherID: 7})

	visible, err := svc.ListVisibleTo(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, uint(1), visible[0].ID)
}

func TestListVisibleToUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	repo, svc := newAssignmentFixture(t, cache)
	repo.add(models.Assignment{ID: 1, Title: "Latihan", Subject: "IPA", Mode: models.ModeTakeHome, Status: models.AssignmentStatusActive, ClassID: 3, TeacherID: 7})

	ctx := context.Background()
	first, err := svc.ListVisibleTo(ctx, 42)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.ListVisibleTo(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.listVisibleCalls)

	// Any write for the class drops the cached list.
	_, err = svc.Update(ctx, 7, 1, dto.AssignmentUpdateRequest{Title: strPtr("Latihan Baru")})
	require.NoError(t, err)

	third, err := svc.ListVisibleTo(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, "Latihan Baru", third[0].Title)
	require.Equal(t, 2, repo.listVisibleCalls)
}
