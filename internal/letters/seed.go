package letters

import (
	"time"

	"github.com/google/uuid"
)

// SeedStudents returns the demo student roster.
func SeedStudents() []Student {
	return []Student{
		{ID: "S001", Name: "John Doe", Class: "12A"},
		{ID: "S002", Name: "Jane Smith", Class: "11B"},
		{ID: "S003", Name: "Alex Johnson", Class: "10C"},
	}
}

// SeedReviewers returns the demo staff roster.
func SeedReviewers() []Reviewer {
	return []Reviewer{
		{ID: "R001", Name: "Ms. Peterson", Role: RoleTeacher},
		{ID: "R002", Name: "Mr. Williams", Role: RoleGuidance},
		{ID: "R003", Name: "Dr. Carter", Role: RoleAdmin},
	}
}

// SeedLetters returns a small demo set covering all three statuses, dated
// relative to now so the dashboard has something recent to show.
func SeedLetters(now time.Time) []Letter {
	day := 24 * time.Hour
	return []Letter{
		{
			ID:            uuid.NewString(),
			StudentID:     "S001",
			StudentName:   "John Doe",
			Class:         "12A",
			Date:          now,
			AbsenceDate:   now.Add(-2 * day),
			Reason:        "Medical appointment",
			AttachmentURL: "/medical-note.pdf",
			Status:        StatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			ID:           uuid.NewString(),
			StudentID:    "S002",
			StudentName:  "Jane Smith",
			Class:        "11B",
			Date:         now.Add(-day),
			AbsenceDate:  now.Add(-3 * day),
			Reason:       "Family emergency",
			Status:       StatusApproved,
			ReviewerID:   "R001",
			ReviewerName: "Ms. Peterson",
			Feedback:     "Approved. Please catch up on missed work.",
			CreatedAt:    now.Add(-day),
			UpdatedAt:    now,
		},
		{
			ID:           uuid.NewString(),
			StudentID:    "S003",
			StudentName:  "Alex Johnson",
			Class:        "10C",
			Date:         now.Add(-2 * day),
			AbsenceDate:  now.Add(-4 * day),
			Reason:       "Transportation issues",
			Status:       StatusDenied,
			ReviewerID:   "R002",
			ReviewerName: "Mr. Williams",
			Feedback:     "Insufficient explanation. Please provide more details.",
			CreatedAt:    now.Add(-2 * day),
			UpdatedAt:    now,
		},
	}
}
