package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/Kadalzz/edu-project-sub000/internal/apperr"
	"github.com/Kadalzz/edu-project-sub000/internal/dto"
	"github.com/Kadalzz/edu-project-sub000/internal/grading"
	"github.com/Kadalzz/edu-project-sub000/internal/models"
	"github.com/Kadalzz/edu-project-sub000/internal/observability"
	"github.com/Kadalzz/edu-project-sub000/internal/repository"
)

// GradingService is the teacher-facing reconciliation step for attempts that
// contain free-text answers. Completing it re-runs the same aggregation the
// finalizer uses, so the grade always converges to one computation.
type GradingService interface {
	ListPending(ctx context.Context, teacherID, assignmentID uint) ([]dto.AttemptResponse, error)
	GetAttempt(ctx context.Context, teacherID, attemptID uint) (dto.AttemptResponse, error)
	SetManualPoints(ctx context.Context, teacherID, attemptID, questionID uint, payload dto.SetManualPointsRequest) (dto.AttemptResponse, error)
	CompleteGrading(ctx context.Context, teacherID, attemptID uint, payload dto.CompleteGradingRequest) (dto.AttemptResponse, error)
}

type gradingService struct {
	attempts    repository.AttemptRepository
	assignments repository.AssignmentRepository
	students    repository.StudentRepository
	notifier    Notifier
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewGradingService constructs the manual grading service.
func NewGradingService(attempts repository.AttemptRepository, assignments repository.AssignmentRepository, students repository.StudentRepository, notify Notifier, validate *validator.Validate, logger zerolog.Logger) GradingService {
	return &gradingService{
		attempts:    attempts,
		assignments: assignments,
		students:    students,
		notifier:    notify,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "grading_service").Logger(),
		tracer:      otel.Tracer("github.com/Kadalzz/edu-project-sub000/internal/service/grading"),
		now:         time.Now,
	}
}

func (s *gradingService) ListPending(ctx context.Context, teacherID, assignmentID uint) ([]dto.AttemptResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("assignment", assignmentID)
		}
		return nil, err
	}
	if assignment.TeacherID != teacherID {
		return nil, apperr.Authorization("assignment belongs to another teacher")
	}

	attempts, err := s.attempts.ListPendingByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	return dto.NewAttemptResponseSlice(attempts, s.now()), nil
}

func (s *gradingService) GetAttempt(ctx context.Context, teacherID, attemptID uint) (dto.AttemptResponse, error) {
	attempt, err := s.gradableAttempt(ctx, teacherID, attemptID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}

	return dto.NewAttemptResponse(attempt, s.now()), nil
}

func (s *gradingService) SetManualPoints(ctx context.Context, teacherID, attemptID, questionID uint, payload dto.SetManualPointsRequest) (dto.AttemptResponse, error) {
	attempt, err := s.gradableAttempt(ctx, teacherID, attemptID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}
	if !attempt.IsSubmitted() {
		return dto.AttemptResponse{}, apperr.Conflict("attempt", attemptID, "is not submitted yet")
	}

	var question *models.Question
	for i := range attempt.Assignment.Questions {
		if attempt.Assignment.Questions[i].ID == questionID {
			question = &attempt.Assignment.Questions[i]
			break
		}
	}
	if question == nil {
		return dto.AttemptResponse{}, apperr.NotFound("question", questionID)
	}
	if question.Kind != models.QuestionKindFreeText {
		return dto.AttemptResponse{}, apperr.Conflict("question", questionID, "is auto-graded, only free-text answers take manual points")
	}

	// A skipped question has no answer row; the repository upserts one so the
	// attempt can always reach a final grade.
	points := grading.ClampPoints(payload.Points, question.Weight)
	if err := s.attempts.UpdateAnswerPoints(ctx, attemptID, questionID, points); err != nil {
		return dto.AttemptResponse{}, err
	}

	s.logger.Info().
		Uint("attempt_id", attemptID).
		Uint("question_id", questionID).
		Int("points", points).
		Msg("manual points set")

	updated, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}

	return dto.NewAttemptResponse(updated, s.now()), nil
}

func (s *gradingService) CompleteGrading(ctx context.Context, teacherID, attemptID uint, payload dto.CompleteGradingRequest) (dto.AttemptResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.complete")
	span.SetAttributes(
		attribute.Int64("grading.attempt_id", int64(attemptID)),
		attribute.Int64("grading.teacher_id", int64(teacherID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.AttemptResponse{}, apperr.Validation(structFieldErrors(err)...)
	}

	attempt, err := s.gradableAttempt(ctx, teacherID, attemptID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "attempt_lookup_failed")
		return dto.AttemptResponse{}, err
	}
	if !attempt.IsSubmitted() {
		return dto.AttemptResponse{}, apperr.Conflict("attempt", attemptID, "is not submitted yet")
	}

	if !grading.AllFreeTextGraded(attempt.Assignment.Questions, attempt.Answers) {
		err := apperr.Conflict("attempt", attemptID, "has free-text answers without manual points")
		span.RecordError(err)
		span.SetStatus(codes.Error, "ungraded_answers")
		return dto.AttemptResponse{}, err
	}

	regrade := attempt.IsGraded()

	// Same aggregation as the finalizer, re-run over the updated answers.
	score, computedGrade := grading.Aggregate(attempt.Answers, attempt.MaxScore)
	attempt.Score = score
	attempt.Grade = &computedGrade
	gradedAt := s.now()
	attempt.GradedAt = &gradedAt
	if payload.Note != nil {
		attempt.Note = s.sanitizer.Sanitize(*payload.Note)
	}

	if err := s.attempts.Update(ctx, &attempt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grading_write_failed")
		return dto.AttemptResponse{}, err
	}

	observability.GradingCompleted().WithLabelValues(fmt.Sprintf("%t", regrade)).Inc()
	s.logger.Info().
		Uint("attempt_id", attemptID).
		Int("score", score).
		Int("grade", computedGrade).
		Bool("regrade", regrade).
		Msg("grading completed")

	s.notifyParent(ctx, attempt)

	span.SetAttributes(
		attribute.Int("grading.score", score),
		attribute.Int("grading.grade", computedGrade),
	)

	return dto.NewAttemptResponse(attempt, s.now()), nil
}

func (s *gradingService) gradableAttempt(ctx context.Context, teacherID, attemptID uint) (models.Attempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Attempt{}, apperr.NotFound("attempt", attemptID)
		}
		return models.Attempt{}, err
	}

	if attempt.Assignment.TeacherID != teacherID {
		return models.Attempt{}, apperr.Authorization("attempt belongs to another teacher's assignment")
	}

	return attempt, nil
}

func (s *gradingService) notifyParent(ctx context.Context, attempt models.Attempt) {
	if s.notifier == nil {
		return
	}

	student, err := s.students.GetByID(ctx, attempt.StudentID)
	if err != nil || student.ParentID == nil {
		return
	}

	title := "Nilai tugas tersedia"
	body := attempt.Assignment.Title
	if err := s.notifier.Notify(ctx, *student.ParentID, title, body, attemptLink(attempt.ID)); err != nil {
		s.logger.Warn().Err(err).Uint("attempt_id", attempt.ID).Msg("grade notification failed")
	}
}

func attemptLink(id uint) string {
	return fmt.Sprintf("/attempts/%d", id)
}
