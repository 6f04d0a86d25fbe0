// Package grading holds the pure scoring rules for assignment answers. It has
// no I/O and no dependencies on storage so the rules stay unit-testable with
// bare values.
package grading

import "github.com/Kadalzz/edu-project-sub000/internal/models"

// Score returns the points earned by a raw answer against a question.
//
// Single-choice and boolean answers score the full weight on a case-sensitive
// exact match with the canonical answer and zero otherwise. No normalization
// is applied; labels are compared byte for byte to avoid locale ambiguity.
//
// Free-text answers always score zero here. Their real score is assigned in
// the manual grading workflow and clamped there.
func Score(question models.Question, raw string) int {
	switch question.Kind {
	case models.QuestionKindSingleChoice, models.QuestionKindBoolean:
		if question.CorrectAnswer != nil && raw == *question.CorrectAnswer {
			return question.Weight
		}
		return 0
	default:
		return 0
	}
}

// ClampPoints bounds manually assigned points to [0, weight].
func ClampPoints(points, weight int) int {
	if points < 0 {
		return 0
	}
	if points > weight {
		return weight
	}
	return points
}

// HasFreeText reports whether any question in the set requires manual grading.
func HasFreeText(questions []models.Question) bool {
	for _, q := range questions {
		if q.Kind == models.QuestionKindFreeText {
			return true
		}
	}
	return false
}

// AllFreeTextGraded reports whether every free-text question has a manually
// graded answer. A stored score of zero is a real score, so the check uses the
// ManuallyGraded flag rather than points.
func AllFreeTextGraded(questions []models.Question, answers []models.Answer) bool {
	graded := make(map[uint]bool, len(answers))
	for _, answer := range answers {
		if answer.ManuallyGraded {
			graded[answer.QuestionID] = true
		}
	}
	for _, q := range questions {
		if q.Kind == models.QuestionKindFreeText && !graded[q.ID] {
			return false
		}
	}
	return true
}

// Aggregate sums earned points across answers and derives the 0-100 grade
// against the attempt's frozen max score. It returns the summed score and the
// rounded grade.
func Aggregate(answers []models.Answer, maxScore int) (score, grade int) {
	for _, answer := range answers {
		score += answer.Points
	}
	if maxScore <= 0 {
		return score, 0
	}
	grade = (score*100 + maxScore/2) / maxScore
	return score, grade
}
