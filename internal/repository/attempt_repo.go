package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Kadalzz/edu-project-sub000/internal/models"
)

// FinalizeUpdate carries the aggregate written when an attempt is submitted.
type FinalizeUpdate struct {
	SubmittedAt time.Time
	Score       int
	Grade       *int
	EvidenceURL string
}

// AttemptRepository defines persistence operations for attempts and answers.
type AttemptRepository interface {
	GetByID(ctx context.Context, id uint) (models.Attempt, error)
	CountByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (int64, error)
	ListPendingByAssignment(ctx context.Context, assignmentID uint) ([]models.Attempt, error)
	Create(ctx context.Context, attempt *models.Attempt) error
	Update(ctx context.Context, attempt *models.Attempt) error
	UpsertAnswer(ctx context.Context, answer *models.Answer) error
	UpdateAnswerPoints(ctx context.Context, attemptID, questionID uint, points int) error
	MarkSubmitted(ctx context.Context, id uint, update FinalizeUpdate) (bool, error)
}

type attemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository instantiates the repository.
func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Attempt{}).
		Preload("Answers").
		Preload("Assignment").
		Preload("Assignment.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Assignment.Questions.Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})
}

func (r *attemptRepository) GetByID(ctx context.Context, id uint) (models.Attempt, error) {
	var attempt models.Attempt
	if err := r.baseQuery(ctx).First(&attempt, id).Error; err != nil {
		return models.Attempt{}, err
	}

	return attempt, nil
}

func (r *attemptRepository) CountByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("assignment_id = ?", assignmentID).
		Where("student_id = ?", studentID).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

func (r *attemptRepository) ListPendingByAssignment(ctx context.Context, assignmentID uint) ([]models.Attempt, error) {
	var attempts []models.Attempt
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("submitted_at IS NOT NULL").
		Where("grade IS NULL").
		Order("submitted_at ASC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}

	return attempts, nil
}

func (r *attemptRepository) Create(ctx context.Context, attempt *models.Attempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *attemptRepository) Update(ctx context.Context, attempt *models.Attempt) error {
	return r.db.WithContext(ctx).
		Omit("Answers", "Assignment").
		Save(attempt).Error
}

// UpsertAnswer writes the latest value for one (attempt, question) pair. Last
// write wins; the unique index keeps at most one row per pair.
func (r *attemptRepository) UpsertAnswer(ctx context.Context, answer *models.Answer) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "points", "manually_graded", "updated_at"}),
		}).
		Create(answer).Error
}

// UpdateAnswerPoints stores manually assigned points for one question. A
// skipped question has no answer row yet, so this is an upsert: the row is
// created with an empty value rather than refused, otherwise the attempt
// could never leave manual grading.
func (r *attemptRepository) UpdateAnswerPoints(ctx context.Context, attemptID, questionID uint, points int) error {
	answer := models.Answer{
		AttemptID:      attemptID,
		QuestionID:     questionID,
		Points:         points,
		ManuallyGraded: true,
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"points", "manually_graded", "updated_at"}),
		}).
		Create(&answer).Error
}

// MarkSubmitted records the finalization aggregate with a compare-and-swap on
// "submitted_at IS NULL". It returns false when another caller already
// finalized the attempt, which makes finalize idempotent under concurrent
// double submission.
func (r *attemptRepository) MarkSubmitted(ctx context.Context, id uint, update FinalizeUpdate) (bool, error) {
	values := map[string]interface{}{
		"submitted_at": update.SubmittedAt,
		"score":        update.Score,
		"grade":        update.Grade,
	}
	if update.EvidenceURL != "" {
		values["evidence_url"] = update.EvidenceURL
	}

	result := r.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("id = ?", id).
		Where("submitted_at IS NULL").
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
