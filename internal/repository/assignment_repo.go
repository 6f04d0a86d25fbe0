package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Kadalzz/edu-project-sub000/internal/models"
)

// AssignmentRepository defines persistence operations for assignments and
// their question sets.
type AssignmentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	ListByTeacher(ctx context.Context, teacherID uint) ([]models.Assignment, error)
	ListVisibleToClass(ctx context.Context, classID uint) ([]models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	ReplaceQuestions(ctx context.Context, assignmentID uint, questions []models.Question) error
	DeleteCascade(ctx context.Context, id uint) error
	HasSubmittedAttempts(ctx context.Context, id uint) (bool, error)
	CountAttempts(ctx context.Context, assignmentIDs []uint) (map[uint]int64, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Questions.Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.baseQuery(ctx).First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) ListByTeacher(ctx context.Context, teacherID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.baseQuery(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) ListVisibleToClass(ctx context.Context, classID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.baseQuery(ctx).
		Where("class_id = ?", classID).
		Where("status = ?", models.AssignmentStatusActive).
		Order("CASE WHEN deadline IS NULL THEN 1 ELSE 0 END, deadline ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Omit("Questions").Save(assignment).Error
}

// ReplaceQuestions swaps the whole question set in one transaction. There is
// no partial question edit; replacing the list wholesale avoids reconciling
// ordinal gaps.
func (r *assignmentRepository) ReplaceQuestions(ctx context.Context, assignmentID uint, questions []models.Question) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("question_id IN (?)", tx.Model(&models.Question{}).Select("id").Where("assignment_id = ?", assignmentID)).
			Delete(&models.QuestionChoice{}).Error; err != nil {
			return err
		}

		if err := tx.Where("assignment_id = ?", assignmentID).Delete(&models.Question{}).Error; err != nil {
			return err
		}

		for i := range questions {
			questions[i].ID = 0
			questions[i].AssignmentID = assignmentID
			for j := range questions[i].Choices {
				questions[i].Choices[j].ID = 0
				questions[i].Choices[j].QuestionID = 0
			}
		}

		if len(questions) == 0 {
			return nil
		}

		return tx.Create(&questions).Error
	})
}

// DeleteCascade removes the assignment and every dependent row in a single
// transaction, children before parents, so a crash mid-delete cannot leave
// orphaned answers or questions.
func (r *assignmentRepository) DeleteCascade(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("attempt_id IN (?)", tx.Model(&models.Attempt{}).Select("id").Where("assignment_id = ?", id)).
			Delete(&models.Answer{}).Error; err != nil {
			return err
		}

		if err := tx.Where("assignment_id = ?", id).Delete(&models.Attempt{}).Error; err != nil {
			return err
		}

		if err := tx.
			Where("question_id IN (?)", tx.Model(&models.Question{}).Select("id").Where("assignment_id = ?", id)).
			Delete(&models.QuestionChoice{}).Error; err != nil {
			return err
		}

		if err := tx.Where("assignment_id = ?", id).Delete(&models.Question{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Assignment{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// CountAttempts returns the number of attempts per assignment for the given
// identifiers. Assignments without attempts are absent from the map.
func (r *assignmentRepository) CountAttempts(ctx context.Context, assignmentIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(assignmentIDs))
	if len(assignmentIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		AssignmentID uint
		Total        int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Select("assignment_id, COUNT(*) AS total").
		Where("assignment_id IN ?", assignmentIDs).
		Group("assignment_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.AssignmentID] = row.Total
	}
	return counts, nil
}

func (r *assignmentRepository) HasSubmittedAttempts(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("assignment_id = ?", id).
		Where("submitted_at IS NOT NULL").
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}
