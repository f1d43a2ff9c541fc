package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"excusedesk/internal/letters"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLetters_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, ok, err := s.LoadLetters(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "fresh store has no letters snapshot")

	in := letters.SeedLetters(time.Now())
	require.NoError(t, s.SaveLetters(ctx, in))

	out, ok, err := s.LoadLetters(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, in[i].ID, out[i].ID)
		assert.Equal(t, in[i].Status, out[i].Status)
		assert.Equal(t, in[i].Reason, out[i].Reason)
		assert.Equal(t, in[i].ReviewerID, out[i].ReviewerID)
		assert.True(t, in[i].AbsenceDate.Equal(out[i].AbsenceDate))
		assert.True(t, in[i].CreatedAt.Equal(out[i].CreatedAt))
	}
}

func TestLetters_EmptyCollectionRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveLetters(ctx, []letters.Letter{}))

	out, ok, err := s.LoadLetters(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "an explicitly saved empty collection is still a snapshot")
	assert.Empty(t, out)
}

func TestLetters_UnknownSchemaVersionRejected(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.put(keyLetters, lettersEnvelope{SchemaVersion: 99}))

	_, _, err := s.LoadLetters(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema version")
}

func TestStudents_RoundTripKeepsPasswordHash(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := letters.SeedStudents()
	in[0].PasswordHash = "$2a$10$fakehashfakehashfakehash"
	require.NoError(t, s.SaveStudents(ctx, in))

	out, ok, err := s.LoadStudents(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestReviewers_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := letters.SeedReviewers()
	require.NoError(t, s.SaveReviewers(ctx, in))

	out, ok, err := s.LoadReviewers(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestCurrentReviewer_SaveLoadClear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cur, err := s.LoadCurrentReviewer(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur, "fresh store has no session")

	r := letters.Reviewer{ID: "R003", Name: "Dr. Carter", Role: letters.RoleAdmin}
	require.NoError(t, s.SaveCurrentReviewer(ctx, r))

	cur, err = s.LoadCurrentReviewer(ctx)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, r, *cur)

	require.NoError(t, s.ClearCurrentReviewer(ctx))
	cur, err = s.LoadCurrentReviewer(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)

	// Clearing twice is fine.
	require.NoError(t, s.ClearCurrentReviewer(ctx))
}
