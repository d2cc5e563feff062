package enrollment

import (
	"errors"
	"time"
)

// Status is the enrollment lifecycle. COMPLETED is the only access-granting
// state; FAILED and REFUNDED revoke access going forward but leave progress
// rows untouched.
type Status string

const (
	Pending   Status = "PENDING"
	Completed Status = "COMPLETED"
	Failed    Status = "FAILED"
	Refunded  Status = "REFUNDED"
)

// Rank orders statuses by authority. A redelivered or late event only wins
// when its resulting status outranks the stored one, so arrival order never
// decides the outcome.
func (s Status) Rank() int {
	switch s {
	case Pending:
		return 0
	case Failed:
		return 1
	case Completed:
		return 2
	case Refunded:
		return 3
	}
	return -1
}

// Overrides reports whether s may replace cur.
func (s Status) Overrides(cur Status) bool {
	return s.Rank() > cur.Rank()
}

var ErrAlreadyEnrolled = errors.New("already enrolled in this course")

// Enrollment is the authoritative record of paid access, one row per
// (user, course). All writes are upserts keyed on that pair.
type Enrollment struct {
	UserID     string    `json:"userId" db:"user_id"`
	CourseID   string    `json:"courseId" db:"course_id"`
	Status     Status    `json:"status" db:"status"`
	Amount     int       `json:"amount" db:"amount"`
	PaymentRef *string   `json:"paymentRef" db:"payment_ref"`
	SessionRef *string   `json:"sessionRef" db:"session_ref"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}
