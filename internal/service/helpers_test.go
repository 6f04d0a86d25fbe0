package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Kadalzz/edu-project-sub000/internal/models"
	"github.com/Kadalzz/edu-project-sub000/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type fakeAssignmentRepo struct {
	assignments      map[uint]models.Assignment
	nextID           uint
	hasSubmitted     bool
	deleteCalls      int
	listVisibleCalls int
	attemptCounts    map[uint]int64
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{assignments: make(map[uint]models.Assignment), nextID: 1}
}

func (f *fakeAssignmentRepo) add(assignment models.Assignment) models.Assignment {
	if assignment.ID == 0 {
		assignment.ID = f.nextID
		f.nextID++
	} else if assignment.ID >= f.nextID {
		f.nextID = assignment.ID + 1
	}
	f.assignments[assignment.ID] = assignment
	return assignment
}

func (f *fakeAssignmentRepo) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, ok := f.assignments[id]
	if !ok {
		return models.Assignment{}, gorm.ErrRecordNotFound
	}
	return assignment, nil
}

func (f *fakeAssignmentRepo) ListByTeacher(ctx context.Context, teacherID uint) ([]models.Assignment, error) {
	var result []models.Assignment
	for _, assignment := range f.assignments {
		if assignment.TeacherID == teacherID {
			result = append(result, assignment)
		}
	}
	return result, nil
}

func (f *fakeAssignmentRepo) ListVisibleToClass(ctx context.Context, classID uint) ([]models.Assignment, error) {
	f.listVisibleCalls++
	var result []models.Assignment
	for _, assignment := range f.assignments {
		if assignment.ClassID == classID && assignment.Status == models.AssignmentStatusActive {
			result = append(result, assignment)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		left, right := result[i].Deadline, result[j].Deadline
		switch {
		case left == nil:
			return false
		case right == nil:
			return true
		default:
			return left.Before(*right)
		}
	})
	return result, nil
}

func (f *fakeAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	*assignment = f.add(*assignment)
	return nil
}

func (f *fakeAssignmentRepo) Update(ctx context.Context, assignment *models.Assignment) error {
	if _, ok := f.assignments[assignment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := f.assignments[assignment.ID]
	questions := stored.Questions
	f.assignments[assignment.ID] = *assignment
	record := f.assignments[assignment.ID]
	record.Questions = questions
	f.assignments[assignment.ID] = record
	return nil
}

func (f *fakeAssignmentRepo) ReplaceQuestions(ctx context.Context, assignmentID uint, questions []models.Question) error {
	assignment, ok := f.assignments[assignmentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range questions {
		questions[i].ID = uint(i + 1)
		questions[i].AssignmentID = assignmentID
	}
	assignment.Questions = questions
	f.assignments[assignmentID] = assignment
	return nil
}

func (f *fakeAssignmentRepo) DeleteCascade(ctx context.Context, id uint) error {
	if _, ok := f.assignments[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.assignments, id)
	f.deleteCalls++
	return nil
}

func (f *fakeAssignmentRepo) HasSubmittedAttempts(ctx context.Context, id uint) (bool, error) {
	return f.hasSubmitted, nil
}

func (f *fakeAssignmentRepo) CountAttempts(ctx context.Context, assignmentIDs []uint) (map[uint]int64, error) {
	return f.attemptCounts, nil
}

type answerKey struct {
	attemptID  uint
	questionID uint
}

type fakeAttemptRepo struct {
	assignments         *fakeAssignmentRepo
	attempts            map[uint]models.Attempt
	answers             map[answerKey]models.Answer
	nextID              uint
	markSubmittedCalls  int
	upsertCalls         int
	failCreateDuplicate bool
}

func newFakeAttemptRepo(assignments *fakeAssignmentRepo) *fakeAttemptRepo {
	return &fakeAttemptRepo{
		assignments: assignments,
		attempts:    make(map[uint]models.Attempt),
		answers:     make(map[answerKey]models.Answer),
		nextID:      1,
	}
}

func (f *fakeAttemptRepo) hydrate(attempt models.Attempt) models.Attempt {
	if f.assignments != nil {
		if assignment, ok := f.assignments.assignments[attempt.AssignmentID]; ok {
			attempt.Assignment = assignment
		}
	}
	var answers []models.Answer
	for key, answer := range f.answers {
		if key.attemptID == attempt.ID {
			answers = append(answers, answer)
		}
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].QuestionID < answers[j].QuestionID })
	attempt.Answers = answers
	return attempt
}

func (f *fakeAttemptRepo) GetByID(ctx context.Context, id uint) (models.Attempt, error) {
	attempt, ok := f.attempts[id]
	if !ok {
		return models.Attempt{}, gorm.ErrRecordNotFound
	}
	return f.hydrate(attempt), nil
}

func (f *fakeAttemptRepo) CountByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (int64, error) {
	var count int64
	for _, attempt := range f.attempts {
		if attempt.AssignmentID == assignmentID && attempt.StudentID == studentID {
			count++
		}
	}
	return count, nil
}

func (f *fakeAttemptRepo) ListPendingByAssignment(ctx context.Context, assignmentID uint) ([]models.Attempt, error) {
	var result []models.Attempt
	for _, attempt := range f.attempts {
		if attempt.AssignmentID == assignmentID && attempt.SubmittedAt != nil && attempt.Grade == nil {
			result = append(result, f.hydrate(attempt))
		}
	}
	return result, nil
}

func (f *fakeAttemptRepo) Create(ctx context.Context, attempt *models.Attempt) error {
	if f.failCreateDuplicate {
		return errors.New("UNIQUE constraint failed: attempts.assignment_id, attempts.student_id")
	}
	attempt.ID = f.nextID
	f.nextID++
	f.attempts[attempt.ID] = *attempt
	return nil
}

func (f *fakeAttemptRepo) Update(ctx context.Context, attempt *models.Attempt) error {
	if _, ok := f.attempts[attempt.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *attempt
	stored.Answers = nil
	stored.Assignment = models.Assignment{}
	f.attempts[attempt.ID] = stored
	return nil
}

func (f *fakeAttemptRepo) UpsertAnswer(ctx context.Context, answer *models.Answer) error {
	f.upsertCalls++
	f.answers[answerKey{answer.AttemptID, answer.QuestionID}] = *answer
	return nil
}

func (f *fakeAttemptRepo) UpdateAnswerPoints(ctx context.Context, attemptID, questionID uint, points int) error {
	key := answerKey{attemptID, questionID}
	answer, ok := f.answers[key]
	if !ok {
		answer = models.Answer{AttemptID: attemptID, QuestionID: questionID}
	}
	answer.Points = points
	answer.ManuallyGraded = true
	f.answers[key] = answer
	return nil
}

func (f *fakeAttemptRepo) MarkSubmitted(ctx context.Context, id uint, update repository.FinalizeUpdate) (bool, error) {
	f.markSubmittedCalls++
	attempt, ok := f.attempts[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if attempt.SubmittedAt != nil {
		return false, nil
	}
	submittedAt := update.SubmittedAt
	attempt.SubmittedAt = &submittedAt
	attempt.Score = update.Score
	attempt.Grade = update.Grade
	if update.EvidenceURL != "" {
		attempt.EvidenceURL = update.EvidenceURL
	}
	f.attempts[id] = attempt
	return true, nil
}

type fakeStudentRepo struct {
	students map[uint]models.Student
}

func newFakeStudentRepo(students ...models.Student) *fakeStudentRepo {
	repo := &fakeStudentRepo{students: make(map[uint]models.Student)}
	for _, student := range students {
		repo.students[student.ID] = student
	}
	return repo
}

func (f *fakeStudentRepo) GetByID(ctx context.Context, id uint) (models.Student, error) {
	student, ok := f.students[id]
	if !ok {
		return models.Student{}, gorm.ErrRecordNotFound
	}
	return student, nil
}

type sentNotification struct {
	UserID uint
	Title  string
	Body   string
	Link   string
}

type fakeNotifier struct {
	sent []sentNotification
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, userID uint, title, body, link string) error {
	f.sent = append(f.sent, sentNotification{UserID: userID, Title: title, Body: body, Link: link})
	return f.err
}

func uintPtr(v uint) *uint           { return &v }
func strPtr(v string) *string        { return &v }
func timePtr(v time.Time) *time.Time { return &v }
