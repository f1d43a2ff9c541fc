package letters

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"excusedesk/internal/metrics"
	"excusedesk/internal/queue"
)

// Snapshot persists the store's collections between runs. Implementations
// must write full snapshots; the store never asks for partial updates.
type Snapshot interface {
	LoadLetters(ctx context.Context) ([]Letter, bool, error)
	SaveLetters(ctx context.Context, letters []Letter) error
	LoadStudents(ctx context.Context) ([]Student, bool, error)
	SaveStudents(ctx context.Context, students []Student) error
	LoadReviewers(ctx context.Context) ([]Reviewer, bool, error)
	SaveReviewers(ctx context.Context, reviewers []Reviewer) error
	LoadCurrentReviewer(ctx context.Context) (*Reviewer, error)
	SaveCurrentReviewer(ctx context.Context, r Reviewer) error
	ClearCurrentReviewer(ctx context.Context) error
}

// Options configures a Store.
type Options struct {
	Snapshot Snapshot
	Events   queue.Queue // optional; mutation events are best-effort
	Logger   *zap.Logger
	Now      func() time.Time
}

// Store owns the letters, students and reviewers collections plus the
// current reviewer session. Every successful mutation is followed by a full
// snapshot write; a failed mutation leaves the in-memory state untouched.
type Store struct {
	mu        sync.RWMutex
	letters   []Letter
	students  []Student
	reviewers []Reviewer
	current   *Reviewer

	snaps  Snapshot
	events queue.Queue
	logger *zap.Logger
	now    func() time.Time
}

// New builds a Store from the persisted snapshot, seeding any collection
// that has no snapshot yet.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Snapshot == nil {
		return nil, errors.New("letters: snapshot backend required")
	}
	s := &Store{
		snaps:  opts.Snapshot,
		events: opts.Events,
		logger: opts.Logger,
		now:    opts.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}

	ls, ok, err := s.snaps.LoadLetters(ctx)
	if err != nil {
		return nil, fmt.Errorf("load letters snapshot: %w", err)
	}
	if !ok {
		ls = SeedLetters(s.now())
	}
	s.letters = ls

	students, ok, err := s.snaps.LoadStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load students snapshot: %w", err)
	}
	if !ok {
		students = SeedStudents()
	}
	s.students = students

	reviewers, ok, err := s.snaps.LoadReviewers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reviewers snapshot: %w", err)
	}
	if !ok {
		reviewers = SeedReviewers()
	}
	s.reviewers = reviewers

	cur, err := s.snaps.LoadCurrentReviewer(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session snapshot: %w", err)
	}
	s.current = cur

	s.logger.Info("store initialized",
		zap.Int("letters", len(s.letters)),
		zap.Int("students", len(s.students)),
		zap.Int("reviewers", len(s.reviewers)),
		zap.Bool("session_restored", cur != nil),
	)
	return s, nil
}

// SubmitInput carries a new letter submission.
type SubmitInput struct {
	StudentID     string
	AbsenceDate   time.Time
	Reason        string
	AttachmentURL string
	Date          time.Time // submission timestamp; zero means now
}

// SubmitLetter validates the input, creates a pending letter and prepends it
// to the collection.
func (s *Store) SubmitLetter(ctx context.Context, in SubmitInput) (Letter, error) {
	if in.StudentID == "" || in.Reason == "" || in.AbsenceDate.IsZero() {
		return Letter{}, fmt.Errorf("%w: student id, absence date and reason are required", ErrValidation)
	}
	now := s.now()
	if dayOf(in.AbsenceDate).Before(dayOf(now)) {
		return Letter{}, fmt.Errorf("%w: absence date must not be in the past", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	student, ok := s.findStudent(in.StudentID)
	if !ok {
		return Letter{}, fmt.Errorf("%w: student %s", ErrNotFound, in.StudentID)
	}

	date := in.Date
	if date.IsZero() {
		date = now
	}
	letter := Letter{
		ID:            uuid.NewString(),
		StudentID:     student.ID,
		StudentName:   student.Name,
		Class:         student.Class,
		Date:          date,
		AbsenceDate:   in.AbsenceDate,
		Reason:        in.Reason,
		AttachmentURL: in.AttachmentURL,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	next := make([]Letter, 0, len(s.letters)+1)
	next = append(next, letter)
	next = append(next, s.letters...)
	if err := s.saveLetters(ctx, next); err != nil {
		return Letter{}, err
	}
	s.letters = next

	metrics.SubmissionsTotal.Inc()
	s.emit(ctx, Event{Action: EventLetterSubmitted, LetterID: letter.ID, Subject: letter.StudentID})
	s.logger.Info("letter submitted", zap.String("letter_id", letter.ID), zap.String("student_id", letter.StudentID))
	return letter, nil
}

// UpdateLetterStatus records a review decision. It requires an active
// reviewer session. A missing letter id is a silent no-op (ok=false).
func (s *Store) UpdateLetterStatus(ctx context.Context, letterID string, status Status, feedback string) (Letter, bool, error) {
	if status != StatusApproved && status != StatusDenied {
		return Letter{}, false, fmt.Errorf("%w: status must be approved or denied", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Letter{}, false, fmt.Errorf("%w: reviewer session required", ErrUnauthorized)
	}

	idx := s.findLetter(letterID)
	if idx < 0 {
		return Letter{}, false, nil
	}
	if s.letters[idx].Status != StatusPending {
		return Letter{}, false, fmt.Errorf("%w: letter %s already reviewed", ErrValidation, letterID)
	}

	next := make([]Letter, len(s.letters))
	copy(next, s.letters)
	l := &next[idx]
	l.Status = status
	if feedback != "" {
		l.Feedback = feedback
	}
	l.ReviewerID = s.current.ID
	l.ReviewerName = s.current.Name
	l.UpdatedAt = s.now()

	if err := s.saveLetters(ctx, next); err != nil {
		return Letter{}, false, err
	}
	s.letters = next

	metrics.ReviewsTotal.WithLabelValues(string(status)).Inc()
	s.emit(ctx, Event{Action: EventLetterReviewed, LetterID: letterID, Actor: s.current.ID, Status: status})
	s.logger.Info("letter reviewed",
		zap.String("letter_id", letterID),
		zap.String("status", string(status)),
		zap.String("reviewer_id", s.current.ID),
	)
	return next[idx], true, nil
}

// LetterUpdate carries a partial letter edit. Nil fields are left unchanged.
type LetterUpdate struct {
	AbsenceDate   *time.Time
	Reason        *string
	AttachmentURL *string
}

// UpdateLetter merges the provided fields into the matching letter and
// refreshes its UpdatedAt. A missing id is a silent no-op (ok=false).
func (s *Store) UpdateLetter(ctx context.Context, id string, upd LetterUpdate) (Letter, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findLetter(id)
	if idx < 0 {
		return Letter{}, false, nil
	}

	next := make([]Letter, len(s.letters))
	copy(next, s.letters)
	l := &next[idx]
	if upd.AbsenceDate != nil {
		l.AbsenceDate = *upd.AbsenceDate
	}
	if upd.Reason != nil {
		l.Reason = *upd.Reason
	}
	if upd.AttachmentURL != nil {
		l.AttachmentURL = *upd.AttachmentURL
	}
	l.UpdatedAt = s.now()

	if err := s.saveLetters(ctx, next); err != nil {
		return Letter{}, false, err
	}
	s.letters = next

	s.emit(ctx, Event{Action: EventLetterUpdated, LetterID: id})
	return next[idx], true, nil
}

// DeleteLetter removes the matching letter. Deleting an unknown id is a
// no-op, not an error.
func (s *Store) DeleteLetter(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findLetter(id)
	if idx < 0 {
		return nil
	}

	next := make([]Letter, 0, len(s.letters)-1)
	next = append(next, s.letters[:idx]...)
	next = append(next, s.letters[idx+1:]...)
	if err := s.saveLetters(ctx, next); err != nil {
		return err
	}
	s.letters = next

	s.emit(ctx, Event{Action: EventLetterDeleted, LetterID: id})
	s.logger.Info("letter deleted", zap.String("letter_id", id))
	return nil
}

// AccountUpdate carries a partial student or reviewer edit. Password, when
// set, is stored as a bcrypt hash.
type AccountUpdate struct {
	Name     *string
	Class    *string // students only
	Password *string
}

// UpdateStudent merges fields into the matching student.
func (s *Store) UpdateStudent(ctx context.Context, id string, upd AccountUpdate) (Student, error) {
	hash, err := hashIfSet(upd.Password)
	if err != nil {
		return Student{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.students {
		if s.students[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Student{}, fmt.Errorf("%w: student %s", ErrNotFound, id)
	}

	next := make([]Student, len(s.students))
	copy(next, s.students)
	st := &next[idx]
	if upd.Name != nil {
		st.Name = *upd.Name
	}
	if upd.Class != nil {
		st.Class = *upd.Class
	}
	if hash != "" {
		st.PasswordHash = hash
	}

	if err := s.snaps.SaveStudents(ctx, next); err != nil {
		return Student{}, fmt.Errorf("save students snapshot: %w", err)
	}
	s.students = next
	metrics.SnapshotWritesTotal.Inc()

	s.emit(ctx, Event{Action: EventAccountUpdated, Subject: id})
	s.logger.Info("student updated", zap.String("student_id", id))
	return next[idx], nil
}

// UpdateReviewer merges fields into the matching reviewer. If the updated
// reviewer is the active session, the session copy is refreshed too.
func (s *Store) UpdateReviewer(ctx context.Context, id string, upd AccountUpdate) (Reviewer, error) {
	hash, err := hashIfSet(upd.Password)
	if err != nil {
		return Reviewer{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.reviewers {
		if s.reviewers[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Reviewer{}, fmt.Errorf("%w: reviewer %s", ErrNotFound, id)
	}

	next := make([]Reviewer, len(s.reviewers))
	copy(next, s.reviewers)
	r := &next[idx]
	if upd.Name != nil {
		r.Name = *upd.Name
	}
	if hash != "" {
		r.PasswordHash = hash
	}

	if err := s.snaps.SaveReviewers(ctx, next); err != nil {
		return Reviewer{}, fmt.Errorf("save reviewers snapshot: %w", err)
	}
	s.reviewers = next
	metrics.SnapshotWritesTotal.Inc()

	if s.current != nil && s.current.ID == id {
		cur := next[idx]
		s.current = &cur
		if err := s.snaps.SaveCurrentReviewer(ctx, cur); err != nil {
			s.logger.Warn("refresh session snapshot failed", zap.Error(err))
		}
	}

	s.emit(ctx, Event{Action: EventAccountUpdated, Subject: id})
	s.logger.Info("reviewer updated", zap.String("reviewer_id", id))
	return next[idx], nil
}

// Login sets the current reviewer session after verifying the credential.
// Until a password is set, the reviewer id itself is the accepted credential.
func (s *Store) Login(ctx context.Context, reviewerID, password string) (Reviewer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *Reviewer
	for i := range s.reviewers {
		if s.reviewers[i].ID == reviewerID {
			found = &s.reviewers[i]
			break
		}
	}
	if found == nil {
		return Reviewer{}, fmt.Errorf("%w: reviewer %s", ErrNotFound, reviewerID)
	}
	if !verifyCredential(found.PasswordHash, found.ID, password) {
		metrics.AuthFailuresTotal.Inc()
		return Reviewer{}, fmt.Errorf("%w: invalid credentials", ErrValidation)
	}

	cur := *found
	if err := s.snaps.SaveCurrentReviewer(ctx, cur); err != nil {
		return Reviewer{}, fmt.Errorf("save session snapshot: %w", err)
	}
	s.current = &cur

	s.emit(ctx, Event{Action: EventSessionLogin, Actor: cur.ID})
	s.logger.Info("reviewer logged in", zap.String("reviewer_id", cur.ID), zap.String("role", string(cur.Role)))
	return cur, nil
}

// Logout clears the current reviewer session unconditionally.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var actor string
	if s.current != nil {
		actor = s.current.ID
	}
	if err := s.snaps.ClearCurrentReviewer(ctx); err != nil {
		return fmt.Errorf("clear session snapshot: %w", err)
	}
	s.current = nil

	s.emit(ctx, Event{Action: EventSessionLogout, Actor: actor})
	return nil
}

// AuthenticateStudent verifies a student credential for the status-check
// flow. Until a password is set, the student id itself is the credential.
func (s *Store) AuthenticateStudent(ctx context.Context, id, password string) (Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	student, ok := s.findStudent(id)
	if !ok {
		return Student{}, fmt.Errorf("%w: student %s", ErrNotFound, id)
	}
	if !verifyCredential(student.PasswordHash, student.ID, password) {
		metrics.AuthFailuresTotal.Inc()
		return Student{}, fmt.Errorf("%w: invalid credentials", ErrValidation)
	}
	return student, nil
}

// CurrentReviewer returns a copy of the active session reviewer, or nil.
func (s *Store) CurrentReviewer() *Reviewer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cur := *s.current
	return &cur
}

// IsAdmin reports whether the active session reviewer has the admin role.
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil && s.current.Role == RoleAdmin
}

// Letters returns a copy of the letters collection in insertion order
// (newest first).
func (s *Store) Letters() []Letter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Letter, len(s.letters))
	copy(out, s.letters)
	return out
}

// LettersForStudent returns the student's letters, newest first.
func (s *Store) LettersForStudent(studentID string) []Letter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Letter
	for _, l := range s.letters {
		if l.StudentID == studentID {
			out = append(out, l)
		}
	}
	return out
}

// Students returns a copy of the student roster.
func (s *Store) Students() []Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Student, len(s.students))
	copy(out, s.students)
	return out
}

// Reviewers returns a copy of the staff roster.
func (s *Store) Reviewers() []Reviewer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Reviewer, len(s.reviewers))
	copy(out, s.reviewers)
	return out
}

// StudentByID looks up a student.
func (s *Store) StudentByID(id string) (Student, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findStudent(id)
}

// ReviewerByID looks up a reviewer.
func (s *Store) ReviewerByID(id string) (Reviewer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reviewers {
		if r.ID == id {
			return r, true
		}
	}
	return Reviewer{}, false
}

// findStudent must be called with the lock held.
func (s *Store) findStudent(id string) (Student, bool) {
	for _, st := range s.students {
		if st.ID == id {
			return st, true
		}
	}
	return Student{}, false
}

// findLetter must be called with the lock held.
func (s *Store) findLetter(id string) int {
	for i := range s.letters {
		if s.letters[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) saveLetters(ctx context.Context, next []Letter) error {
	if err := s.snaps.SaveLetters(ctx, next); err != nil {
		return fmt.Errorf("save letters snapshot: %w", err)
	}
	metrics.SnapshotWritesTotal.Inc()
	return nil
}

func hashIfSet(password *string) (string, error) {
	if password == nil {
		return "", nil
	}
	if *password == "" {
		return "", fmt.Errorf("%w: password must not be empty", ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// verifyCredential checks the stored bcrypt hash, falling back to the
// account id when no password has been set (demo default).
func verifyCredential(hash, fallbackID, given string) bool {
	if hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(given)) == nil
	}
	return given == fallbackID
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
