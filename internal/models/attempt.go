package models

import "time"

// Attempt is a single student's working instance of an assignment. At most one
// attempt exists per (assignment, student) pair.
//
// MaxScore is frozen at start time: an attempt is always graded against the
// question set as it existed when the student began, even if the teacher edits
// the assignment afterwards.
type Attempt struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AssignmentID uint       `gorm:"not null;uniqueIndex:idx_attempt_assignment_student" json:"assignment_id"`
	StudentID    uint       `gorm:"not null;uniqueIndex:idx_attempt_assignment_student" json:"student_id"`
	StartedAt    time.Time  `gorm:"not null" json:"started_at"`
	SubmittedAt  *time.Time `json:"submitted_at"`
	Score        int        `gorm:"not null;default:0" json:"score"`
	MaxScore     int        `gorm:"not null" json:"max_score"`
	Grade        *int       `json:"grade"`
	Note         string     `gorm:"type:text" json:"note"`
	GradedAt     *time.Time `json:"graded_at"`
	EvidenceURL  string     `gorm:"size:512" json:"evidence_url"`
	Answers      []Answer   `gorm:"constraint:OnDelete:CASCADE" json:"answers"`
	Assignment   Assignment `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsSubmitted reports whether the attempt has been finalized for answering.
func (a Attempt) IsSubmitted() bool {
	return a.SubmittedAt != nil
}

// IsGraded reports whether a final grade has been computed and published.
func (a Attempt) IsGraded() bool {
	return a.Grade != nil
}

// RemainingSeconds returns the countdown for a timed attempt at the given
// instant. The timer is cooperative: the client calls submit when it reaches
// zero, the server enforces nothing beyond idempotent finalization.
func (a Attempt) RemainingSeconds(durationMinutes int, reference time.Time) int {
	deadline := a.StartedAt.Add(time.Duration(durationMinutes) * time.Minute)
	remaining := int(deadline.Sub(reference).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Answer is the latest submitted value for one question of an attempt. Later
// writes overwrite earlier ones, so only the newest value is ever kept.
//
// Points is 0 for a free-text answer until a teacher grades it; ManuallyGraded
// distinguishes "not yet graded" from a genuine score of zero.
type Answer struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AttemptID      uint      `gorm:"not null;uniqueIndex:idx_answer_attempt_question" json:"attempt_id"`
	QuestionID     uint      `gorm:"not null;uniqueIndex:idx_answer_attempt_question" json:"question_id"`
	Value          string    `gorm:"type:text;not null" json:"value"`
	Points         int       `gorm:"not null;default:0" json:"points"`
	ManuallyGraded bool      `gorm:"not null;default:false" json:"manually_graded"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
