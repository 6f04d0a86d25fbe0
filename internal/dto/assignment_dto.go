package dto

import (
	"time"

	"github.com/Kadalzz/edu-project-sub000/internal/models"
)

// QuestionInput describes one question in a create or replace payload. The
// whole list is always supplied; there is no partial question edit.
type QuestionInput struct {
	Prompt        string   `json:"prompt" validate:"required"`
	Kind          string   `json:"kind" validate:"required,oneof=single_choice free_text boolean"`
	Choices       []string `json:"choices" validate:"omitempty,dive,required"`
	CorrectAnswer *string  `json:"correct_answer"`
	Weight        int      `json:"weight"`
}

// AssignmentCreateRequest is the closed payload for authoring an assignment.
// "Publish" and "save as draft" are the same operation with a different status.
type AssignmentCreateRequest struct {
	Title           string          `json:"title" validate:"required,min=3"`
	Subject         string          `json:"subject" validate:"required"`
	Mode            string          `json:"mode" validate:"required,oneof=timed takehome"`
	Status          string          `json:"status" validate:"required,oneof=draft active"`
	VisibleFrom     *string         `json:"visible_from" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Deadline        *string         `json:"deadline" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	DurationMinutes *int            `json:"duration_minutes"`
	PIN             string          `json:"pin" validate:"omitempty,min=4,max=16"`
	ClassID         uint            `json:"class_id" validate:"required,gt=0"`
	Questions       []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

// AssignmentUpdateRequest carries a partial update; only present fields change.
// A questions list, when present, replaces the whole set.
type AssignmentUpdateRequest struct {
	Title           *string          `json:"title" validate:"omitempty,min=3"`
	Subject         *string          `json:"subject" validate:"omitempty,min=1"`
	Status          *string          `json:"status" validate:"omitempty,oneof=active closed"`
	VisibleFrom     *string          `json:"visible_from" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Deadline        *string          `json:"deadline" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	DurationMinutes *int             `json:"duration_minutes"`
	PIN             *string          `json:"pin" validate:"omitempty,min=4,max=16"`
	Questions       *[]QuestionInput `json:"questions" validate:"omitempty,min=1,dive"`
}

// QuestionResponse serializes a question for the owning teacher, canonical
// answer included.
type QuestionResponse struct {
	ID            uint     `json:"id"`
	Position      int      `json:"position"`
	Prompt        string   `json:"prompt"`
	Kind          string   `json:"kind"`
	Choices       []string `json:"choices"`
	CorrectAnswer *string  `json:"correct_answer,omitempty"`
	Weight        int      `json:"weight"`
}

// StudentQuestionResponse serializes a question for students, without the
// canonical answer.
type StudentQuestionResponse struct {
	ID       uint     `json:"id"`
	Position int      `json:"position"`
	Prompt   string   `json:"prompt"`
	Kind     string   `json:"kind"`
	Choices  []string `json:"choices"`
	Weight   int      `json:"weight"`
}

// AssignmentResponse is the teacher-facing representation.
type AssignmentResponse struct {
	ID              uint               `json:"id"`
	Title           string             `json:"title"`
	Subject         string             `json:"subject"`
	Mode            string             `json:"mode"`
	Status          string             `json:"status"`
	VisibleFrom     *time.Time         `json:"visible_from"`
	Deadline        *time.Time         `json:"deadline"`
	DurationMinutes *int               `json:"duration_minutes"`
	ClassID         uint               `json:"class_id"`
	MaxScore        int                `json:"max_score"`
	AttemptCount    int64              `json:"attempt_count"`
	Questions       []QuestionResponse `json:"questions"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// StudentAssignmentResponse is the student-facing representation: no PIN, no
// canonical answers.
type StudentAssignmentResponse struct {
	ID              uint                      `json:"id"`
	Title           string                    `json:"title"`
	Subject         string                    `json:"subject"`
	Mode            string                    `json:"mode"`
	VisibleFrom     *time.Time                `json:"visible_from"`
	Deadline        *time.Time                `json:"deadline"`
	DurationMinutes *int                      `json:"duration_minutes"`
	MaxScore        int                       `json:"max_score"`
	Questions       []StudentQuestionResponse `json:"questions"`
}

func choiceLabels(choices []models.QuestionChoice) []string {
	labels := make([]string, 0, len(choices))
	for _, choice := range choices {
		labels = append(labels, choice.Label)
	}
	return labels
}

// NewQuestionResponse converts a question model into its teacher DTO.
func NewQuestionResponse(model models.Question) QuestionResponse {
	return QuestionResponse{
		ID:            model.ID,
		Position:      model.Position,
		Prompt:        model.Prompt,
		Kind:          model.Kind,
		Choices:       choiceLabels(model.Choices),
		CorrectAnswer: model.CorrectAnswer,
		Weight:        model.Weight,
	}
}

// NewAssignmentResponse converts a model into the teacher DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	questions := make([]QuestionResponse, 0, len(model.Questions))
	for _, question := range model.Questions {
		questions = append(questions, NewQuestionResponse(question))
	}

	return AssignmentResponse{
		ID:              model.ID,
		Title:           model.Title,
		Subject:         model.Subject,
		Mode:            model.Mode,
		Status:          model.Status,
		VisibleFrom:     model.VisibleFrom,
		Deadline:        model.Deadline,
		DurationMinutes: model.DurationMinutes,
		ClassID:         model.ClassID,
		MaxScore:        model.MaxScore(),
		Questions:       questions,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts a slice of models into teacher DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}

// NewStudentAssignmentResponse converts a model into the student DTO.
func NewStudentAssignmentResponse(model models.Assignment) StudentAssignmentResponse {
	questions := make([]StudentQuestionResponse, 0, len(model.Questions))
	for _, question := range model.Questions {
		questions = append(questions, StudentQuestionResponse{
			ID:       question.ID,
			Position: question.Position,
			Prompt:   question.Prompt,
			Kind:     question.Kind,
			Choices:  choiceLabels(question.Choices),
			Weight:   question.Weight,
		})
	}

	return StudentAssignmentResponse{
		ID:              model.ID,
		Title:           model.Title,
		Subject:         model.Subject,
		Mode:            model.Mode,
		VisibleFrom:     model.VisibleFrom,
		Deadline:        model.Deadline,
		DurationMinutes: model.DurationMinutes,
		MaxScore:        model.MaxScore(),
		Questions:       questions,
	}
}

// NewStudentAssignmentResponseSlice converts models into student DTOs.
func NewStudentAssignmentResponseSlice(assignments []models.Assignment) []StudentAssignmentResponse {
	responses := make([]StudentAssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewStudentAssignmentResponse(assignment))
	}

	return responses
}
