package models

import "time"

// Question answer kinds.
const (
	QuestionKindSingleChoice = "single_choice"
	QuestionKindFreeText     = "free_text"
	QuestionKindBoolean      = "boolean"
)

// Question is one entry in an assignment's ordered question set. Questions are
// replaced wholesale when edited; there is no partial mutation.
type Question struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	AssignmentID  uint             `gorm:"not null;index" json:"assignment_id"`
	Position      int              `gorm:"not null" json:"position"`
	Prompt        string           `gorm:"type:text;not null" json:"prompt"`
	Kind          string           `gorm:"size:16;not null" json:"kind"`
	Choices       []QuestionChoice `gorm:"constraint:OnDelete:CASCADE" json:"choices"`
	CorrectAnswer *string          `gorm:"size:255" json:"-"`
	Weight        int              `gorm:"not null" json:"weight"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// QuestionChoice is a selectable label for single-choice and boolean questions.
type QuestionChoice struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	Position   int    `gorm:"not null" json:"position"`
	Label      string `gorm:"size:255;not null" json:"label"`
}

// HasChoice reports whether the given label is among the question's choices.
func (q Question) HasChoice(label string) bool {
	for _, choice := range q.Choices {
		if choice.Label == label {
			return true
		}
	}
	return false
}
