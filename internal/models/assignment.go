package models

import "time"

// Delivery modes for an assignment.
const (
	// ModeTimed is a synchronous, duration-bounded session gated by a PIN.
	ModeTimed = "timed"
	// ModeTakeHome is an asynchronous assignment bounded by a deadline.
	ModeTakeHome = "takehome"
)

// Assignment lifecycle statuses. Transitions only move forward:
// draft -> active -> closed.
const (
	AssignmentStatusDraft  = "draft"
	AssignmentStatusActive = "active"
	AssignmentStatusClosed = "closed"
)

// MinTimedDurationMinutes is the smallest allowed duration for a timed assignment.
const MinTimedDurationMinutes = 5

// Assignment is an authored unit of work owned by a teacher and targeted at a
// single class.
type Assignment struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Title           string     `gorm:"size:255;not null" json:"title"`
	Subject         string     `gorm:"size:255;not null" json:"subject"`
	Mode            string     `gorm:"size:16;not null" json:"mode"`
	Status          string     `gorm:"size:16;not null" json:"status"`
	VisibleFrom     *time.Time `json:"visible_from"`
	Deadline        *time.Time `json:"deadline"`
	DurationMinutes *int       `json:"duration_minutes"`
	PIN             string     `gorm:"size:16" json:"-"`
	TeacherID       uint       `gorm:"not null;index" json:"teacher_id"`
	ClassID         uint       `gorm:"not null;index" json:"class_id"`
	Questions       []Question `gorm:"constraint:OnDelete:CASCADE" json:"questions"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsVisibleAt reports whether the assignment may be shown to students at the
// given instant.
func (a Assignment) IsVisibleAt(reference time.Time) bool {
	return a.VisibleFrom == nil || !a.VisibleFrom.After(reference)
}

// IsOpenAt reports whether an attempt may be started at the given instant.
func (a Assignment) IsOpenAt(reference time.Time) bool {
	if !a.IsVisibleAt(reference) {
		return false
	}
	if a.Deadline != nil && reference.After(*a.Deadline) {
		return false
	}
	return true
}

// MaxScore sums the weights of the current question set. Attempts freeze their
// own copy at start time; this value is display-only and must be recomputed
// from the live questions, never cached.
func (a Assignment) MaxScore() int {
	total := 0
	for _, q := range a.Questions {
		total += q.Weight
	}
	return total
}

// HasFreeText reports whether the current question set contains at least one
// free-text question, which forces manual grading after submission.
func (a Assignment) HasFreeText() bool {
	for _, q := range a.Questions {
		if q.Kind == QuestionKindFreeText {
			return true
		}
	}
	return false
}
