package letters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *mockSnapshot) {
	t.Helper()
	snaps := newMockSnapshot()
	st, err := New(context.Background(), Options{Snapshot: snaps})
	require.NoError(t, err)
	return st, snaps
}

func tomorrow() time.Time {
	return time.Now().Add(24 * time.Hour)
}

func TestNew_SeedsWhenSnapshotEmpty(t *testing.T) {
	st, _ := newTestStore(t)

	assert.Len(t, st.Letters(), 3)
	assert.Len(t, st.Students(), 3)
	assert.Len(t, st.Reviewers(), 3)
	assert.Nil(t, st.CurrentReviewer())
}

func TestNew_PrefersSnapshotOverSeed(t *testing.T) {
	snaps := newMockSnapshot()
	snaps.letters = []Letter{}
	snaps.lettersSet = true
	snaps.session = &Reviewer{ID: "R003", Name: "Dr. Carter", Role: RoleAdmin}

	st, err := New(context.Background(), Options{Snapshot: snaps})
	require.NoError(t, err)

	assert.Empty(t, st.Letters(), "persisted empty collection must not be re-seeded")
	require.NotNil(t, st.CurrentReviewer())
	assert.Equal(t, "R003", st.CurrentReviewer().ID)
	assert.True(t, st.IsAdmin())
}

func TestSubmitLetter_CreatesPending(t *testing.T) {
	st, _ := newTestStore(t)
	before := st.Letters()

	letter, err := st.SubmitLetter(context.Background(), SubmitInput{
		StudentID:   "S001",
		AbsenceDate: tomorrow(),
		Reason:      "Medical appointment",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, letter.Status)
	assert.NotEmpty(t, letter.ID)
	assert.Empty(t, letter.ReviewerID)
	assert.Empty(t, letter.ReviewerName)
	assert.Equal(t, "John Doe", letter.StudentName)
	assert.Equal(t, "12A", letter.Class)

	after := st.Letters()
	require.Len(t, after, len(before)+1)
	assert.Equal(t, letter.ID, after[0].ID, "new letters are prepended")
	for _, old := range before {
		assert.NotEqual(t, old.ID, letter.ID)
	}
}

func TestSubmitLetter_UnknownStudent(t *testing.T) {
	st, _ := newTestStore(t)
	before := st.Letters()

	_, err := st.SubmitLetter(context.Background(), SubmitInput{
		StudentID:   "S999",
		AbsenceDate: tomorrow(),
		Reason:      "Medical appointment",
	})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, before, st.Letters())
}

func TestSubmitLetter_PastAbsenceDate(t *testing.T) {
	st, _ := newTestStore(t)

	_, err := st.SubmitLetter(context.Background(), SubmitInput{
		StudentID:   "S001",
		AbsenceDate: time.Now().Add(-48 * time.Hour),
		Reason:      "Medical appointment",
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestSubmitLetter_TodayIsAllowed(t *testing.T) {
	st, _ := newTestStore(t)

	_, err := st.SubmitLetter(context.Background(), SubmitInput{
		StudentID:   "S001",
		AbsenceDate: time.Now(),
		Reason:      "Medical appointment",
	})
	require.NoError(t, err)
}

func TestSubmitLetter_MissingFields(t *testing.T) {
	st, _ := newTestStore(t)

	_, err := st.SubmitLetter(context.Background(), SubmitInput{StudentID: "S001"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestSubmitLetter_SaveFailureLeavesStoreUnchanged(t *testing.T) {
	st, snaps := newTestStore(t)
	before := st.Letters()
	snaps.failSaves = true

	_, err := st.SubmitLetter(context.Background(), SubmitInput{
		StudentID:   "S001",
		AbsenceDate: tomorrow(),
		Reason:      "Medical appointment",
	})
	require.Error(t, err)
	assert.Equal(t, before, st.Letters())
}

func TestUpdateLetterStatus_RequiresSession(t *testing.T) {
	st, _ := newTestStore(t)
	before := st.Letters()
	target := before[0].ID

	_, _, err := st.UpdateLetterStatus(context.Background(), target, StatusApproved, "ok")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, before, st.Letters())
}

func TestUpdateLetterStatus_SubmitThenApprove(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	letter, err := st.SubmitLetter(ctx, SubmitInput{
		StudentID:   "S001",
		AbsenceDate: tomorrow(),
		Reason:      "Medical appointment",
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, letter.Status)

	_, err = st.Login(ctx, "R001", "R001")
	require.NoError(t, err)

	reviewed, ok, err := st.UpdateLetterStatus(ctx, letter.ID, StatusApproved, "Get well soon")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, StatusApproved, reviewed.Status)
	assert.Equal(t, "Get well soon", reviewed.Feedback)
	assert.Equal(t, "R001", reviewed.ReviewerID)
	assert.Equal(t, "Ms. Peterson", reviewed.ReviewerName)
	assert.True(t, reviewed.UpdatedAt.After(letter.UpdatedAt) || reviewed.UpdatedAt.Equal(letter.UpdatedAt))
}

func TestUpdateLetterStatus_ReviewerSetIffReviewed(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	_, err := st.Login(ctx, "R002", "R002")
	require.NoError(t, err)

	for _, l := range st.Letters() {
		if l.Status == StatusPending {
			assert.Empty(t, l.ReviewerID)
			assert.Empty(t, l.ReviewerName)
		} else {
			assert.NotEmpty(t, l.ReviewerID)
			assert.NotEmpty(t, l.ReviewerName)
		}
	}
}

func TestUpdateLetterStatus_UnknownIDIsNoop(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	_, err := st.Login(ctx, "R001", "R001")
	require.NoError(t, err)
	before := st.Letters()

	_, ok, err := st.UpdateLetterStatus(ctx, "not-an-id", StatusApproved, "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, before, st.Letters())
}

func TestUpdateLetterStatus_RejectsSecondReview(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	_, err := st.Login(ctx, "R001", "R001")
	require.NoError(t, err)

	letter, err := st.SubmitLetter(ctx, SubmitInput{
		StudentID:   "S002",
		AbsenceDate: tomorrow(),
		Reason:      "Dentist",
	})
	require.NoError(t, err)

	_, ok, err := st.UpdateLetterStatus(ctx, letter.ID, StatusDenied, "no")
	require.NoError(t, err)
	require.True(t, ok)

	_, _, err = st.UpdateLetterStatus(ctx, letter.ID, StatusApproved, "changed my mind")
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateLetterStatus_RejectsPendingTarget(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	_, err := st.Login(ctx, "R001", "R001")
	require.NoError(t, err)

	_, _, err = st.UpdateLetterStatus(ctx, st.Letters()[0].ID, StatusPending, "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateLetterStatus_KeepsExistingFeedbackWhenEmpty(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	_, err := st.Login(ctx, "R001", "R001")
	require.NoError(t, err)

	letter, err := st.SubmitLetter(ctx, SubmitInput{
		StudentID:   "S003",
		AbsenceDate: tomorrow(),
		Reason:      "Flu",
	})
	require.NoError(t, err)

	_, ok, err := st.UpdateLetter(ctx, letter.ID, LetterUpdate{})
	require.NoError(t, err)
	require.True(t, ok)

	reviewed, ok, err := st.UpdateLetterStatus(ctx, letter.ID, StatusApproved, "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, reviewed.Feedback)
}

func TestUpdateLetter_MergesFields(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	letter, err := st.SubmitLetter(ctx, SubmitInput{
		StudentID:   "S001",
		AbsenceDate: tomorrow(),
		Reason:      "Medical appointment",
	})
	require.NoError(t, err)

	newReason := "Dental appointment"
	newDate := tomorrow().Add(24 * time.Hour)
	updated, ok, err := st.UpdateLetter(ctx, letter.ID, LetterUpdate{
		Reason:      &newReason,
		AbsenceDate: &newDate,
	})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "Dental appointment", updated.Reason)
	assert.True(t, updated.AbsenceDate.Equal(newDate))
	assert.Equal(t, letter.AttachmentURL, updated.AttachmentURL, "unset fields untouched")
}

func TestUpdateLetter_UnknownIDIsNoop(t *testing.T) {
	st, _ := newTestStore(t)
	before := st.Letters()

	_, ok, err := st.UpdateLetter(context.Background(), "not-an-id", LetterUpdate{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, before, st.Letters())
}

func TestDeleteLetter_RemovesMatch(t *testing.T) {
	st, _ := newTestStore(t)
	before := st.Letters()
	target := before[1].ID

	require.NoError(t, st.DeleteLetter(context.Background(), target))

	after := st.Letters()
	require.Len(t, after, len(before)-1)
	for _, l := range after {
		assert.NotEqual(t, target, l.ID)
	}
}

func TestDeleteLetter_UnknownIDIsNoop(t *testing.T) {
	st, snaps := newTestStore(t)
	before := st.Letters()
	savesBefore := snaps.saves

	require.NoError(t, st.DeleteLetter(context.Background(), "not-an-id"))
	assert.Equal(t, before, st.Letters())
	assert.Equal(t, savesBefore, snaps.saves, "no snapshot write for a no-op")
}

func TestUpdateStudent_NotFound(t *testing.T) {
	st, _ := newTestStore(t)

	_, err := st.UpdateStudent(context.Background(), "S999", AccountUpdate{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStudent_SetsPassword(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	pw := "opensesame"
	_, err := st.UpdateStudent(ctx, "S001", AccountUpdate{Password: &pw})
	require.NoError(t, err)

	_, err = st.AuthenticateStudent(ctx, "S001", "opensesame")
	require.NoError(t, err)

	_, err = st.AuthenticateStudent(ctx, "S001", "S001")
	require.ErrorIs(t, err, ErrValidation, "id credential stops working once a password is set")
}

func TestUpdateStudent_RejectsEmptyPassword(t *testing.T) {
	st, _ := newTestStore(t)

	empty := ""
	_, err := st.UpdateStudent(context.Background(), "S001", AccountUpdate{Password: &empty})
	require.ErrorIs(t, err, ErrValidation)
}

func TestAuthenticateStudent_DefaultCredentialIsID(t *testing.T) {
	st, _ := newTestStore(t)

	student, err := st.AuthenticateStudent(context.Background(), "S002", "S002")
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", student.Name)

	_, err = st.AuthenticateStudent(context.Background(), "S002", "wrong")
	require.ErrorIs(t, err, ErrValidation)

	_, err = st.AuthenticateStudent(context.Background(), "S999", "S999")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLogin_UnknownReviewer(t *testing.T) {
	st, snaps := newTestStore(t)

	_, err := st.Login(context.Background(), "R999", "R999")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, st.CurrentReviewer())
	assert.Nil(t, snaps.session)
}

func TestLogin_WrongPassword(t *testing.T) {
	st, _ := newTestStore(t)

	_, err := st.Login(context.Background(), "R001", "nope")
	require.ErrorIs(t, err, ErrValidation)
	assert.Nil(t, st.CurrentReviewer())
}

func TestLoginLogout_PersistsSession(t *testing.T) {
	st, snaps := newTestStore(t)
	ctx := context.Background()

	reviewer, err := st.Login(ctx, "R001", "R001")
	require.NoError(t, err)
	assert.Equal(t, RoleTeacher, reviewer.Role)
	require.NotNil(t, snaps.session)
	assert.Equal(t, "R001", snaps.session.ID)
	assert.False(t, st.IsAdmin())

	require.NoError(t, st.Logout(ctx))
	assert.Nil(t, st.CurrentReviewer())
	assert.Nil(t, snaps.session)

	// Logging out while logged out is fine.
	require.NoError(t, st.Logout(ctx))
}

func TestIsAdmin(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	assert.False(t, st.IsAdmin())

	_, err := st.Login(ctx, "R003", "R003")
	require.NoError(t, err)
	assert.True(t, st.IsAdmin())
}

func TestUpdateReviewer_RefreshesActiveSession(t *testing.T) {
	st, snaps := newTestStore(t)
	ctx := context.Background()

	_, err := st.Login(ctx, "R001", "R001")
	require.NoError(t, err)

	name := "Ms. Peterson-Lee"
	_, err = st.UpdateReviewer(ctx, "R001", AccountUpdate{Name: &name})
	require.NoError(t, err)

	require.NotNil(t, st.CurrentReviewer())
	assert.Equal(t, "Ms. Peterson-Lee", st.CurrentReviewer().Name)
	require.NotNil(t, snaps.session)
	assert.Equal(t, "Ms. Peterson-Lee", snaps.session.Name)
}

func TestUpdateReviewer_PasswordChange(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	pw := "newsecret"
	_, err := st.UpdateReviewer(ctx, "R002", AccountUpdate{Password: &pw})
	require.NoError(t, err)

	_, err = st.Login(ctx, "R002", "R002")
	require.ErrorIs(t, err, ErrValidation)

	_, err = st.Login(ctx, "R002", "newsecret")
	require.NoError(t, err)
}
