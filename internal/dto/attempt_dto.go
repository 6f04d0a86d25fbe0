package dto

import (
	"time"

	"github.com/Kadalzz/edu-project-sub000/internal/models"
)

// Attempt lifecycle states as exposed to clients.
const (
	AttemptStateInProgress    = "in_progress"
	AttemptStatePendingManual = "pending_manual"
	AttemptStateFinalized     = "finalized"
)

// StartAttemptRequest opens an attempt. The PIN is required for timed mode
// and ignored otherwise.
type StartAttemptRequest struct {
	PIN string `json:"pin" validate:"omitempty,min=4,max=16"`
}

// RecordAnswerRequest upserts the answer for one question.
type RecordAnswerRequest struct {
	Value string `json:"value" validate:"required"`
}

// AnswerResponse serializes one stored answer.
type AnswerResponse struct {
	QuestionID     uint   `json:"question_id"`
	Value          string `json:"value"`
	Points         int    `json:"points"`
	ManuallyGraded bool   `json:"manually_graded"`
}

// AttemptResponse serializes an attempt with its derived state.
type AttemptResponse struct {
	ID               uint             `json:"id"`
	AssignmentID     uint             `json:"assignment_id"`
	StudentID        uint             `json:"student_id"`
	State            string           `json:"state"`
	StartedAt        time.Time        `json:"started_at"`
	SubmittedAt      *time.Time       `json:"submitted_at"`
	Score            int              `json:"score"`
	MaxScore         int              `json:"max_score"`
	Grade            *int             `json:"grade"`
	Note             string           `json:"note"`
	GradedAt         *time.Time       `json:"graded_at"`
	EvidenceURL      string           `json:"evidence_url"`
	RemainingSeconds *int             `json:"remaining_seconds,omitempty"`
	Answers          []AnswerResponse `json:"answers"`
}

// AttemptState derives the client-visible state of an attempt.
func AttemptState(attempt models.Attempt) string {
	switch {
	case !attempt.IsSubmitted():
		return AttemptStateInProgress
	case attempt.Grade == nil:
		return AttemptStatePendingManual
	default:
		return AttemptStateFinalized
	}
}

// NewAttemptResponse converts an attempt into its DTO. The remaining-seconds
// countdown is only populated for in-progress timed attempts.
func NewAttemptResponse(attempt models.Attempt, now time.Time) AttemptResponse {
	answers := make([]AnswerResponse, 0, len(attempt.Answers))
	for _, answer := range attempt.Answers {
		answers = append(answers, AnswerResponse{
			QuestionID:     answer.QuestionID,
			Value:          answer.Value,
			Points:         answer.Points,
			ManuallyGraded: answer.ManuallyGraded,
		})
	}

	response := AttemptResponse{
		ID:           attempt.ID,
		AssignmentID: attempt.AssignmentID,
		StudentID:    attempt.StudentID,
		State:        AttemptState(attempt),
		StartedAt:    attempt.StartedAt,
		SubmittedAt:  attempt.SubmittedAt,
		Score:        attempt.Score,
		MaxScore:     attempt.MaxScore,
		Grade:        attempt.Grade,
		Note:         attempt.Note,
		GradedAt:     attempt.GradedAt,
		EvidenceURL:  attempt.EvidenceURL,
		Answers:      answers,
	}

	if !attempt.IsSubmitted() &&
		attempt.Assignment.Mode == models.ModeTimed &&
		attempt.Assignment.DurationMinutes != nil {
		remaining := attempt.RemainingSeconds(*attempt.Assignment.DurationMinutes, now)
		response.RemainingSeconds = &remaining
	}

	return response
}

// NewAttemptResponseSlice converts attempts into DTOs.
func NewAttemptResponseSlice(attempts []models.Attempt, now time.Time) []AttemptResponse {
	responses := make([]AttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		responses = append(responses, NewAttemptResponse(attempt, now))
	}

	return responses
}
