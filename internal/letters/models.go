package letters

import "time"

// Status is the review state of an excuse letter.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDenied:
		return true
	}
	return false
}

// Role is a staff account role.
type Role string

const (
	RoleTeacher  Role = "teacher"
	RoleGuidance Role = "guidance"
	RoleAdmin    Role = "admin"
)

// Student is a student account. PasswordHash is empty until an admin sets a
// password; until then the student id itself is the accepted credential.
type Student struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Class        string `json:"class"`
	PasswordHash string `json:"-"`
}

// Reviewer is a staff account allowed to approve or deny letters.
type Reviewer struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
	PasswordHash string `json:"-"`
}

// Letter is a submitted excuse letter. StudentName and Class are display
// snapshots taken at submission time; filtering always resolves class through
// the live student record.
type Letter struct {
	ID            string    `json:"id"`
	StudentID     string    `json:"studentId"`
	StudentName   string    `json:"studentName"`
	Class         string    `json:"class"`
	Date          time.Time `json:"date"`
	AbsenceDate   time.Time `json:"absenceDate"`
	Reason        string    `json:"reason"`
	AttachmentURL string    `json:"attachmentUrl,omitempty"`
	Status        Status    `json:"status"`
	ReviewerID    string    `json:"reviewerId,omitempty"`
	ReviewerName  string    `json:"reviewerName,omitempty"`
	Feedback      string    `json:"feedback,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
