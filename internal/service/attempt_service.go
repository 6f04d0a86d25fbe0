package service

import (
	"context"
	"errors"
	"mime/multipart"
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

// AttemptService drives a student's attempt through its lifecycle:
// start, incremental answering, and idempotent finalization.
type AttemptService interface {
	Start(ctx context.Context, studentID, assignmentID uint, payload dto.StartAttemptRequest) (dto.AttemptResponse, error)
	Get(ctx context.Context, studentID, attemptID uint) (dto.AttemptResponse, error)
	RecordAnswer(ctx context.Context, studentID, attemptID, questionID uint, payload dto.RecordAnswerRequest) (dto.AttemptResponse, error)
	Finalize(ctx context.Context, studentID, attemptID uint, evidence *multipart.FileHeader) (dto.AttemptResponse, error)
}

type attemptService struct {
	attempts    repository.AttemptRepository
	assignments repository.AssignmentRepository
	students    repository.StudentRepository
	uploader    FileUploader
	notifier    Notifier
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewAttemptService constructs an AttemptService instance.
func NewAttemptService(attempts repository.AttemptRepository, assignments repository.AssignmentRepository, students repository.StudentRepository, uploader FileUploader, notify Notifier, validate *validator.Validate, logger zerolog.Logger) AttemptService {
	return &attemptService{
		attempts:    attempts,
		assignments: assignments,
		students:    students,
		uploader:    uploader,
		notifier:    notify,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "attempt_service").Logger(),
		tracer:      otel.Tracer("github.com/Kadalzz/edu-project-sub000/internal/service/attempt"),
		now:         time.Now,
	}
}

func (s *attemptService) Start(ctx context.Context, studentID, assignmentID uint, payload dto.StartAttemptRequest) (dto.AttemptResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AttemptResponse{}, apperr.Validation(structFieldErrors(err)...)
	}

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttemptResponse{}, apperr.NotFound("assignment", assignmentID)
		}
		return dto.AttemptResponse{}, err
	}

	now := s.now()
	if assignment.Status != models.AssignmentStatusActive {
		return dto.AttemptResponse{}, apperr.Conflict("assignment", assignmentID, "is not active")
	}
	if !assignment.IsOpenAt(now) {
		return dto.AttemptResponse{}, apperr.Conflict("assignment", assignmentID, "is outside its visibility window")
	}

	// PIN mismatch must leave no partial state: checked before any write.
	if assignment.Mode == models.ModeTimed && payload.PIN != assignment.PIN {
		return dto.AttemptResponse{}, apperr.Authorization("wrong PIN")
	}

	existing, err := s.attempts.CountByAssignmentAndStudent(ctx, assignmentID, studentID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}
	if existing > 0 {
		return dto.AttemptResponse{}, apperr.Conflict("attempt", 0, "an attempt already exists for this assignment")
	}

	attempt := models.Attempt{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		StartedAt:    now,
		MaxScore:     assignment.MaxScore(),
	}

	if err := s.attempts.Create(ctx, &attempt); err != nil {
		// The unique index closes the check-then-create race.
		if count, countErr := s.attempts.CountByAssignmentAndStudent(ctx, assignmentID, studentID); countErr == nil && count > 0 {
			return dto.AttemptResponse{}, apperr.Conflict("attempt", 0, "an attempt already exists for this assignment")
		}
		return dto.AttemptResponse{}, err
	}

	observability.AttemptsStarted().WithLabelValues(assignment.Mode).Inc()
	s.logger.Info().
		Uint("attempt_id", attempt.ID).
		Uint("assignment_id", assignmentID).
		Int("max_score", attempt.MaxScore).
		Msg("attempt started")

	attempt.Assignment = assignment
	return dto.NewAttemptResponse(attempt, now), nil
}

func (s *attemptService) Get(ctx context.Context, studentID, attemptID uint) (dto.AttemptResponse, error) {
	attempt, err := s.ownAttempt(ctx, studentID, attemptID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}

	return dto.NewAttemptResponse(attempt, s.now()), nil
}

func (s *attemptService) RecordAnswer(ctx context.Context, studentID, attemptID, questionID uint, payload dto.RecordAnswerRequest) (dto.AttemptResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AttemptResponse{}, apperr.Validation(structFieldErrors(err)...)
	}

	attempt, err := s.ownAttempt(ctx, studentID, attemptID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}
	if attempt.IsSubmitted() {
		return dto.AttemptResponse{}, apperr.Conflict("attempt", attemptID, "is already submitted")
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

	value := payload.Value
	if question.Kind == models.QuestionKindFreeText {
		value = s.sanitizer.Sanitize(value)
	}

	// Objective kinds are scored immediately; free text stays at 0 so sums
	// remain well-defined until manual grading assigns the real points.
	answer := models.Answer{
		AttemptID:  attemptID,
		QuestionID: questionID,
		Value:      value,
		Points:     grading.Score(*question, value),
	}

	if err := s.attempts.UpsertAnswer(ctx, &answer); err != nil {
		return dto.AttemptResponse{}, err
	}

	updated, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}

	return dto.NewAttemptResponse(updated, s.now()), nil
}

func (s *attemptService) Finalize(ctx context.Context, studentID, attemptID uint, evidence *multipart.FileHeader) (dto.AttemptResponse, error) {
	ctx, span := s.tracer.Start(ctx, "attempt.finalize")
	span.SetAttributes(
		attribute.Int64("attempt.id", int64(attemptID)),
		attribute.Int64("attempt.student_id", int64(studentID)),
	)
	defer span.End()

	attempt, err := s.ownAttempt(ctx, studentID, attemptID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "attempt_lookup_failed")
		return dto.AttemptResponse{}, err
	}

	// Idempotent: a second call observes the stored result without rescoring.
	if attempt.IsSubmitted() {
		span.SetAttributes(attribute.Bool("attempt.already_submitted", true))
		return dto.NewAttemptResponse(attempt, s.now()), nil
	}

	evidenceURL := ""
	if evidence != nil {
		if attempt.Assignment.Mode != models.ModeTakeHome {
			return dto.AttemptResponse{}, apperr.Conflict("attempt", attemptID, "evidence is only accepted for take-home assignments")
		}
		evidenceURL, err = uploadEvidence(ctx, s.uploader, evidence)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "evidence_upload_failed")
			return dto.AttemptResponse{}, apperr.Validation(apperr.FieldError{Field: "evidence", Message: err.Error()})
		}
	}

	score, computedGrade := grading.Aggregate(attempt.Answers, attempt.MaxScore)
	pending := grading.HasFreeText(attempt.Assignment.Questions)

	update := repository.FinalizeUpdate{
		SubmittedAt: s.now(),
		Score:       score,
		EvidenceURL: evidenceURL,
	}
	if !pending {
		update.Grade = &computedGrade
	}

	swapped, err := s.attempts.MarkSubmitted(ctx, attemptID, update)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "finalize_write_failed")
		return dto.AttemptResponse{}, err
	}

	final, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}

	if swapped {
		observability.AttemptsFinalized().WithLabelValues(finalizeOutcome(pending)).Inc()
		s.logger.Info().
			Uint("attempt_id", attemptID).
			Int("score", score).
			Bool("pending_manual", pending).
			Msg("attempt finalized")

		if !pending {
			s.notifyGradePublished(ctx, final)
		}
	}

	span.SetAttributes(
		attribute.Int("attempt.score", final.Score),
		attribute.Bool("attempt.pending_manual", pending),
	)

	return dto.NewAttemptResponse(final, s.now()), nil
}

func (s *attemptService) ownAttempt(ctx context.Context, studentID, attemptID uint) (models.Attempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Attempt{}, apperr.NotFound("attempt", attemptID)
		}
		return models.Attempt{}, err
	}

	if attempt.StudentID != studentID {
		return models.Attempt{}, apperr.Authorization("attempt belongs to another student")
	}

	return attempt, nil
}

// notifyGradePublished tells the student's linked parent that a grade is
// available. Failures are logged and swallowed; grading is never rolled back
// by a notification failure.
func (s *attemptService) notifyGradePublished(ctx context.Context, attempt models.Attempt) {
	if s.notifier == nil || attempt.Grade == nil {
		return
	}

	student, err := s.students.GetByID(ctx, attempt.StudentID)
	if err != nil || student.ParentID == nil {
		return
	}

	title := "Nilai tugas tersedia"
	body := attempt.Assignment.Title
	link := attemptLink(attempt.ID)
	if err := s.notifier.Notify(ctx, *student.ParentID, title, body, link); err != nil {
		s.logger.Warn().Err(err).Uint("attempt_id", attempt.ID).Msg("grade notification failed")
	}
}

func finalizeOutcome(pending bool) string {
	if pending {
		return "pending_manual"
	}
	return "auto_graded"
}
