package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Kadalzz/edu-project-sub000/internal/apperr"
	"github.com/Kadalzz/edu-project-sub000/internal/dto"
	"github.com/Kadalzz/edu-project-sub000/internal/models"
	"github.com/Kadalzz/edu-project-sub000/internal/repository"
)

// AssignmentService exposes the author-time assignment use cases.
type AssignmentService interface {
	Create(ctx context.Context, teacherID uint, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Get(ctx context.Context, teacherID, id uint) (dto.AssignmentResponse, error)
	ListByTeacher(ctx context.Context, teacherID uint) ([]dto.AssignmentResponse, error)
	Update(ctx context.Context, teacherID, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, teacherID, id uint) error
	ListVisibleTo(ctx context.Context, studentID uint) ([]dto.StudentAssignmentResponse, error)
}

type assignmentService struct {
	repo      repository.AssignmentRepository
	students  repository.StudentRepository
	cache     *redis.Client
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAssignmentService builds a new assignment service. The redis client may
// be nil, in which case the visible-list cache is disabled.
func NewAssignmentService(repo repository.AssignmentRepository, students repository.StudentRepository, cache *redis.Client, cacheTTL time.Duration, validate *validator.Validate, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		repo:      repo,
		students:  students,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger.With().Str("component", "assignment_service").Logger(),
		now:       time.Now,
	}
}

func (s *assignmentService) Create(ctx context.Context, teacherID uint, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	fields := s.collectCreateViolations(payload)
	if len(fields) > 0 {
		return dto.AssignmentResponse{}, apperr.Validation(fields...)
	}

	assignment := models.Assignment{
		Title:           payload.Title,
		Subject:         payload.Subject,
		Mode:            payload.Mode,
		Status:          payload.Status,
		DurationMinutes: payload.DurationMinutes,
		PIN:             payload.PIN,
		TeacherID:       teacherID,
		ClassID:         payload.ClassID,
		Questions:       buildQuestions(payload.Questions),
	}

	if payload.VisibleFrom != nil {
		visibleFrom, _ := time.Parse(time.RFC3339, *payload.VisibleFrom)
		assignment.VisibleFrom = &visibleFrom
	}
	if payload.Deadline != nil {
		deadline, _ := time.Parse(time.RFC3339, *payload.Deadline)
		assignment.Deadline = &deadline
	}

	if err := s.repo.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.invalidateVisibleCache(ctx, assignment.ClassID)
	s.logger.Info().Uint("assignment_id", assignment.ID).Str("status", assignment.Status).Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), nil
}

// collectCreateViolations gathers every violated field at once so a form can
// highlight all of them, not just the first.
func (s *assignmentService) collectCreateViolations(payload dto.AssignmentCreateRequest) []apperr.FieldError {
	var fields []apperr.FieldError
	if err := s.validator.Struct(payload); err != nil {
		fields = structFieldErrors(err)
	}

	if payload.Mode == models.ModeTimed {
		if payload.DurationMinutes == nil {
			fields = append(fields, apperr.FieldError{Field: "duration_minutes", Message: "required for timed mode"})
		} else if *payload.DurationMinutes < models.MinTimedDurationMinutes {
			fields = append(fields, apperr.FieldError{
				Field:   "duration_minutes",
				Message: fmt.Sprintf("must be at least %d minutes", models.MinTimedDurationMinutes),
			})
		}
		if payload.PIN == "" {
			fields = append(fields, apperr.FieldError{Field: "pin", Message: "required for timed mode"})
		}
	}

	var visibleFrom, deadline *time.Time
	if payload.VisibleFrom != nil {
		if parsed, err := time.Parse(time.RFC3339, *payload.VisibleFrom); err == nil {
			visibleFrom = &parsed
		}
	}
	if payload.Deadline != nil {
		if parsed, err := time.Parse(time.RFC3339, *payload.Deadline); err == nil {
			deadline = &parsed
		}
	}
	if deadline != nil {
		if deadline.Before(s.now()) {
			fields = append(fields, apperr.FieldError{Field: "deadline", Message: "must not be in the past"})
		}
		if visibleFrom != nil && !deadline.After(*visibleFrom) {
			fields = append(fields, apperr.FieldError{Field: "deadline", Message: "must be after visible_from"})
		}
	}

	return append(fields, questionViolations(payload.Questions)...)
}

// questionViolations checks the question-set invariants: positive weights and,
// for choice kinds, a canonical answer present among non-empty choices.
func questionViolations(questions []dto.QuestionInput) []apperr.FieldError {
	var fields []apperr.FieldError
	for i, question := range questions {
		name := fmt.Sprintf("questions[%d]", i)
		if question.Weight <= 0 {
			fields = append(fields, apperr.FieldError{Field: name + ".weight", Message: "must be positive"})
		}

		if question.Kind != models.QuestionKindSingleChoice && question.Kind != models.QuestionKindBoolean {
			continue
		}
		if len(question.Choices) == 0 {
			fields = append(fields, apperr.FieldError{Field: name + ".choices", Message: "must not be empty"})
		}
		if question.CorrectAnswer == nil {
			fields = append(fields, apperr.FieldError{Field: name + ".correct_answer", Message: "required for choice questions"})
			continue
		}
		found := false
		for _, choice := range question.Choices {
			if choice == *question.CorrectAnswer {
				found = true
				break
			}
		}
		if !found {
			fields = append(fields, apperr.FieldError{Field: name + ".correct_answer", Message: "must be one of the choices"})
		}
	}
	return fields
}

func buildQuestions(inputs []dto.QuestionInput) []models.Question {
	questions := make([]models.Question, 0, len(inputs))
	for i, input := range inputs {
		question := models.Question{
			Position: i + 1,
			Prompt:   input.Prompt,
			Kind:     input.Kind,
			Weight:   input.Weight,
		}
		if input.Kind != models.QuestionKindFreeText {
			question.CorrectAnswer = input.CorrectAnswer
			for j, label := range input.Choices {
				question.Choices = append(question.Choices, models.QuestionChoice{Position: j + 1, Label: label})
			}
		}
		questions = append(questions, question)
	}
	return questions
}

func (s *assignmentService) Get(ctx context.Context, teacherID, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.ownedAssignment(ctx, teacherID, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) ListByTeacher(ctx context.Context, teacherID uint) ([]dto.AssignmentResponse, error) {
	assignments, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(assignments))
	for _, assignment := range assignments {
		ids = append(ids, assignment.ID)
	}
	counts, err := s.repo.CountAttempts(ctx, ids)
	if err != nil {
		return nil, err
	}

	responses := dto.NewAssignmentResponseSlice(assignments)
	for i := range responses {
		responses[i].AttemptCount = counts[responses[i].ID]
	}
	return responses, nil
}

func (s *assignmentService) Update(ctx context.Context, teacherID, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, apperr.Validation(structFieldErrors(err)...)
	}

	assignment, err := s.ownedAssignment(ctx, teacherID, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if payload.Status != nil && !statusTransitionAllowed(assignment.Status, *payload.Status) {
		return dto.AssignmentResponse{}, apperr.Conflict("assignment", id,
			fmt.Sprintf("status cannot move from %s to %s", assignment.Status, *payload.Status))
	}

	if payload.Title != nil {
		assignment.Title = *payload.Title
	}
	if payload.Subject != nil {
		assignment.Subject = *payload.Subject
	}
	if payload.Status != nil {
		assignment.Status = *payload.Status
	}
	if payload.PIN != nil {
		assignment.PIN = *payload.PIN
	}
	if payload.DurationMinutes != nil {
		if assignment.Mode == models.ModeTimed && *payload.DurationMinutes < models.MinTimedDurationMinutes {
			return dto.AssignmentResponse{}, apperr.Validation(apperr.FieldError{
				Field:   "duration_minutes",
				Message: fmt.Sprintf("must be at least %d minutes", models.MinTimedDurationMinutes),
			})
		}
		assignment.DurationMinutes = payload.DurationMinutes
	}
	if payload.VisibleFrom != nil {
		visibleFrom, parseErr := time.Parse(time.RFC3339, *payload.VisibleFrom)
		if parseErr != nil {
			return dto.AssignmentResponse{}, apperr.Validation(apperr.FieldError{Field: "visible_from", Message: "invalid timestamp"})
		}
		assignment.VisibleFrom = &visibleFrom
	}
	if payload.Deadline != nil {
		deadline, parseErr := time.Parse(time.RFC3339, *payload.Deadline)
		if parseErr != nil {
			return dto.AssignmentResponse{}, apperr.Validation(apperr.FieldError{Field: "deadline", Message: "invalid timestamp"})
		}
		if assignment.VisibleFrom != nil && !deadline.After(*assignment.VisibleFrom) {
			return dto.AssignmentResponse{}, apperr.Validation(apperr.FieldError{Field: "deadline", Message: "must be after visible_from"})
		}
		assignment.Deadline = &deadline
	}

	if payload.Questions != nil {
		if fields := questionViolations(*payload.Questions); len(fields) > 0 {
			return dto.AssignmentResponse{}, apperr.Validation(fields...)
		}
		if err := s.repo.ReplaceQuestions(ctx, assignment.ID, buildQuestions(*payload.Questions)); err != nil {
			return dto.AssignmentResponse{}, err
		}
	}

	if err := s.repo.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	updated, err := s.repo.GetByID(ctx, assignment.ID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.invalidateVisibleCache(ctx, assignment.ClassID)
	s.logger.Info().Uint("assignment_id", assignment.ID).Msg("assignment updated")

	return dto.NewAssignmentResponse(updated), nil
}

func (s *assignmentService) Delete(ctx context.Context, teacherID, id uint) error {
	assignment, err := s.ownedAssignment(ctx, teacherID, id)
	if err != nil {
		return err
	}

	hasResults, err := s.repo.HasSubmittedAttempts(ctx, id)
	if err != nil {
		return err
	}
	if hasResults {
		return apperr.Conflict("assignment", id, "has submitted attempts, archive instead of deleting")
	}

	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("assignment", id)
		}
		return err
	}

	s.invalidateVisibleCache(ctx, assignment.ClassID)
	s.logger.Info().Uint("assignment_id", id).Msg("assignment deleted")

	return nil
}

func (s *assignmentService) ListVisibleTo(ctx context.Context, studentID uint) ([]dto.StudentAssignmentResponse, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("student", studentID)
		}
		return nil, err
	}

	if cached, ok := s.cachedVisibleList(ctx, student.ClassID); ok {
		return cached, nil
	}

	assignments, err := s.repo.ListVisibleToClass(ctx, student.ClassID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	visible := make([]models.Assignment, 0, len(assignments))
	for _, assignment := range assignments {
		if assignment.IsVisibleAt(now) {
			visible = append(visible, assignment)
		}
	}

	responses := dto.NewStudentAssignmentResponseSlice(visible)
	s.storeVisibleList(ctx, student.ClassID, responses)

	return responses, nil
}

func (s *assignmentService) ownedAssignment(ctx context.Context, teacherID, id uint) (models.Assignment, error) {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, apperr.NotFound("assignment", id)
		}
		return models.Assignment{}, err
	}

	if assignment.TeacherID != teacherID {
		return models.Assignment{}, apperr.Authorization("assignment belongs to another teacher")
	}

	return assignment, nil
}

// statusTransitionAllowed permits exactly draft -> active -> closed. A draft
// cannot jump straight to closed; it is deleted instead.
func statusTransitionAllowed(from, to string) bool {
	switch from {
	case models.AssignmentStatusDraft:
		return to == models.AssignmentStatusActive
	case models.AssignmentStatusActive:
		return to == models.AssignmentStatusClosed
	default:
		return false
	}
}

func visibleCacheKey(classID uint) string {
	return fmt.Sprintf("tugas:visible:%d", classID)
}

func (s *assignmentService) cachedVisibleList(ctx context.Context, classID uint) ([]dto.StudentAssignmentResponse, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, visibleCacheKey(classID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("visible list cache read failed")
		}
		return nil, false
	}

	var responses []dto.StudentAssignmentResponse
	if err := json.Unmarshal(raw, &responses); err != nil {
		return nil, false
	}
	return responses, true
}

func (s *assignmentService) storeVisibleList(ctx context.Context, classID uint, responses []dto.StudentAssignmentResponse) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(responses)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, visibleCacheKey(classID), raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("visible list cache write failed")
	}
}

func (s *assignmentService) invalidateVisibleCache(ctx context.Context, classID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, visibleCacheKey(classID)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("visible list cache invalidation failed")
	}
}
