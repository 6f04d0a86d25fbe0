package dto

// SetManualPointsRequest assigns points to one free-text answer. Out-of-range
// values are clamped to [0, question weight], not rejected.
type SetManualPointsRequest struct {
	Points int `json:"points"`
}

// CompleteGradingRequest closes the manual grading workflow for an attempt.
type CompleteGradingRequest struct {
	Note *string `json:"note" validate:"omitempty,max=2000"`
}
