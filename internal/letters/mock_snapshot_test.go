package letters

import (
	"context"
	"errors"
)

// mockSnapshot is an in-memory Snapshot for store tests.
type mockSnapshot struct {
	letters      []Letter
	lettersSet   bool
	students     []Student
	studentsSet  bool
	reviewers    []Reviewer
	reviewersSet bool
	session      *Reviewer

	failSaves bool
	saves     int
}

var errSaveFailed = errors.New("save failed")

func newMockSnapshot() *mockSnapshot {
	return &mockSnapshot{}
}

func (m *mockSnapshot) LoadLetters(context.Context) ([]Letter, bool, error) {
	return m.letters, m.lettersSet, nil
}

func (m *mockSnapshot) SaveLetters(_ context.Context, ls []Letter) error {
	if m.failSaves {
		return errSaveFailed
	}
	m.letters = ls
	m.lettersSet = true
	m.saves++
	return nil
}

func (m *mockSnapshot) LoadStudents(context.Context) ([]Student, bool, error) {
	return m.students, m.studentsSet, nil
}

func (m *mockSnapshot) SaveStudents(_ context.Context, students []Student) error {
	if m.failSaves {
		return errSaveFailed
	}
	m.students = students
	m.studentsSet = true
	m.saves++
	return nil
}

func (m *mockSnapshot) LoadReviewers(context.Context) ([]Reviewer, bool, error) {
	return m.reviewers, m.reviewersSet, nil
}

func (m *mockSnapshot) SaveReviewers(_ context.Context, reviewers []Reviewer) error {
	if m.failSaves {
		return errSaveFailed
	}
	m.reviewers = reviewers
	m.reviewersSet = true
	m.saves++
	return nil
}

func (m *mockSnapshot) LoadCurrentReviewer(context.Context) (*Reviewer, error) {
	return m.session, nil
}

func (m *mockSnapshot) SaveCurrentReviewer(_ context.Context, r Reviewer) error {
	if m.failSaves {
		return errSaveFailed
	}
	m.session = &r
	return nil
}

func (m *mockSnapshot) ClearCurrentReviewer(context.Context) error {
	m.session = nil
	return nil
}
