package enrollment

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Upsert applies e to the ledger atomically. The conflict clause encodes the
// status precedence, so a weaker redelivered event leaves the row untouched
// and two concurrent deliveries resolve the same way regardless of arrival
// order. References are kept once learned.
//
// The one move precedence alone would forbid is re-granting after a refund:
// a completed event carrying a payment reference different from the stored
// one is an explicit new payment and supersedes REFUNDED. A replay of the
// refunded payment's own completion carries the same reference and stays a
// no-op.
func Upsert(ctx context.Context, db sqlx.ExtContext, e Enrollment) error {
	const q = `
	INSERT INTO enrollments
		(user_id, course_id, status, amount, payment_ref, session_ref, created_at, updated_at)
	VALUES
		(:user_id, :course_id, :status, :amount, :payment_ref, :session_ref, :created_at, :updated_at)
	ON CONFLICT (user_id, course_id) DO UPDATE SET
		status      = EXCLUDED.status,
		amount      = EXCLUDED.amount,
		payment_ref = COALESCE(EXCLUDED.payment_ref, enrollments.payment_ref),
		session_ref = COALESCE(EXCLUDED.session_ref, enrollments.session_ref),
		updated_at  = EXCLUDED.updated_at
	WHERE CASE enrollments.status WHEN 'PENDING' THEN 0 WHEN 'FAILED' THEN 1 WHEN 'COMPLETED' THEN 2 ELSE 3 END
	    < CASE EXCLUDED.status    WHEN 'PENDING' THEN 0 WHEN 'FAILED' THEN 1 WHEN 'COMPLETED' THEN 2 ELSE 3 END
	   OR (enrollments.status = 'REFUNDED' AND EXCLUDED.status = 'COMPLETED'
	       AND EXCLUDED.payment_ref IS NOT NULL
	       AND EXCLUDED.payment_ref IS DISTINCT FROM enrollments.payment_ref)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, e); err != nil {
		return fmt.Errorf("upserting enrollment[%s,%s]: %w", e.UserID, e.CourseID, err)
	}

	return nil
}

// RecordCheckout binds the latest checkout attempt to the pair: the PENDING
// row on first contact, and on an existing row a refresh of the session
// reference and amount with the stored status left alone. Capture by
// reference then resolves whichever order the user actually paid for, even
// when an earlier checkout was abandoned or the enrollment sits REFUNDED.
// Already COMPLETED pairs are never touched.
func RecordCheckout(ctx context.Context, db sqlx.ExtContext, e Enrollment) error {
	const q = `
	INSERT INTO enrollments
		(user_id, course_id, status, amount, payment_ref, session_ref, created_at, updated_at)
	VALUES
		(:user_id, :course_id, :status, :amount, :payment_ref, :session_ref, :created_at, :updated_at)
	ON CONFLICT (user_id, course_id) DO UPDATE SET
		amount      = EXCLUDED.amount,
		session_ref = EXCLUDED.session_ref,
		updated_at  = EXCLUDED.updated_at
	WHERE enrollments.status <> 'COMPLETED'`

	if _, err := sqlx.NamedExecContext(ctx, db, q, e); err != nil {
		return fmt.Errorf("recording checkout for enrollment[%s,%s]: %w", e.UserID, e.CourseID, err)
	}

	return nil
}

// Insert creates the row only when the (user, course) pair is free. It
// reports whether a row was created; directEnroll turns false into
// ErrAlreadyEnrolled.
func Insert(ctx context.Context, db sqlx.ExtContext, e Enrollment) (bool, error) {
	const q = `
	INSERT INTO enrollments
		(user_id, course_id, status, amount, payment_ref, session_ref, created_at, updated_at)
	VALUES
		(:user_id, :course_id, :status, :amount, :payment_ref, :session_ref, :created_at, :updated_at)
	ON CONFLICT (user_id, course_id) DO NOTHING`

	res, err := sqlx.NamedExecContext(ctx, db, q, e)
	if err != nil {
		return false, fmt.Errorf("inserting enrollment[%s,%s]: %w", e.UserID, e.CourseID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}

	return n == 1, nil
}

// UpdateStatusByPaymentRef is the narrow transition used for failure and
// refund events. The allowed set pins down which stored statuses the
// transition may leave from; matching on payment_ref ties the event to the
// same payment attempt. Returns the number of rows moved, zero when the
// event references a payment the ledger never saw.
func UpdateStatusByPaymentRef(ctx context.Context, db sqlx.ExtContext, paymentRef string, to Status, allowed ...Status) (int64, error) {
	const q = `
	UPDATE enrollments SET
		status     = $2,
		updated_at = $3
	WHERE payment_ref = $1 AND status = ANY($4)`

	from := make([]string, 0, len(allowed))
	for _, s := range allowed {
		from = append(from, string(s))
	}

	res, err := db.ExecContext(ctx, q, paymentRef, to, time.Now().UTC(), pq.Array(from))
	if err != nil {
		return 0, fmt.Errorf("updating enrollments of payment[%s] to %s: %w", paymentRef, to, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}

	return n, nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, userID, courseID string) (Enrollment, error) {
	const q = `SELECT * FROM enrollments WHERE user_id = $1 AND course_id = $2`

	var e Enrollment
	if err := sqlx.GetContext(ctx, db, &e, q, userID, courseID); err != nil {
		return Enrollment{}, fmt.Errorf("fetching enrollment[%s,%s]: %w", userID, courseID, err)
	}

	return e, nil
}

func FetchByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]Enrollment, error) {
	const q = `SELECT * FROM enrollments WHERE user_id = $1 ORDER BY created_at DESC`

	enrollments := []Enrollment{}
	if err := sqlx.SelectContext(ctx, db, &enrollments, q, userID); err != nil {
		return nil, fmt.Errorf("fetching enrollments of user[%s]: %w", userID, err)
	}

	return enrollments, nil
}

func FetchBySessionRef(ctx context.Context, db sqlx.ExtContext, sessionRef string) (Enrollment, error) {
	const q = `SELECT * FROM enrollments WHERE session_ref = $1`

	var e Enrollment
	if err := sqlx.GetContext(ctx, db, &e, q, sessionRef); err != nil {
		return Enrollment{}, fmt.Errorf("fetching enrollment of session[%s]: %w", sessionRef, err)
	}

	return e, nil
}
