package enrollment

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/ziadayman00/learning-platform/core/course"
	"github.com/ziadayman00/learning-platform/database"
	"github.com/ziadayman00/learning-platform/random"
)

// Reconcile absorbs one provider event into the ledger. It is idempotent
// under redelivery: replaying any event sequence leaves exactly one row per
// (user, course) in the state implied by the strongest event seen. Unknown
// event types are logged and dropped. Transient store conflicts are retried
// here, never surfaced.
func Reconcile(ctx context.Context, db *sqlx.DB, log logrus.FieldLogger, evt PaymentEvent) error {
	return database.Retry(func() error {
		return apply(ctx, db, log, evt)
	})
}

func apply(ctx context.Context, db *sqlx.DB, log logrus.FieldLogger, evt PaymentEvent) error {
	switch evt.Type {
	case EventCheckoutCompleted:
		now := time.Now().UTC()
		e := Enrollment{
			UserID:     evt.UserID,
			CourseID:   evt.CourseID,
			Status:     Completed,
			Amount:     evt.Amount,
			PaymentRef: nullable(evt.PaymentRef),
			SessionRef: nullable(evt.SessionRef),
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		if err := Upsert(ctx, db, e); err != nil {
			return fmt.Errorf("absorbing completed checkout[%s]: %w", evt.SessionRef, err)
		}
		return nil

	case EventCheckoutExpired:
		// Informational. The pending row stays pending; a later payment for
		// the same pair still completes it.
		log.WithField("session_ref", evt.SessionRef).Info("checkout expired")
		return nil

	case EventPaymentFailed:
		n, err := MarkFailed(ctx, db, evt.PaymentRef)
		if err != nil {
			return err
		}
		if n == 0 {
			log.WithField("payment_ref", evt.PaymentRef).Info("payment failure for unknown or settled payment")
		}
		return nil

	case EventChargeRefunded:
		n, err := MarkRefunded(ctx, db, evt.PaymentRef)
		if err != nil {
			return err
		}
		if n == 0 {
			log.WithField("payment_ref", evt.PaymentRef).Info("refund for unknown payment")
		}
		return nil
	}

	// Forward compatibility: the provider vocabulary grows without breaking
	// this receiver.
	log.WithField("type", string(evt.Type)).Info("unhandled payment event type")
	return nil
}

// PrepareCheckout records the checkout the moment its session is created,
// binding the provider session reference to the pair. The newest reference
// always wins on a not-yet-completed row, so capture-by-reference stays
// total across abandoned sessions and refunded enrollments; a COMPLETED
// enrollment is never downgraded by starting a fresh checkout.
func PrepareCheckout(ctx context.Context, db *sqlx.DB, userID string, crs course.Course, sessionRef string) error {
	now := time.Now().UTC()
	e := Enrollment{
		UserID:     userID,
		CourseID:   crs.ID,
		Status:     Pending,
		Amount:     crs.Price,
		SessionRef: nullable(sessionRef),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	return database.Retry(func() error {
		return RecordCheckout(ctx, db, e)
	})
}

// DirectEnroll grants free access, bypassing payment. It refuses when any
// enrollment exists for the pair, whatever its status: re-granting after a
// refund takes an explicit new payment, not a free enroll.
func DirectEnroll(ctx context.Context, db *sqlx.DB, userID string, crs course.Course) (Enrollment, error) {
	now := time.Now().UTC()
	e := Enrollment{
		UserID:     userID,
		CourseID:   crs.ID,
		Status:     Completed,
		Amount:     crs.Price,
		PaymentRef: nullable("free-" + random.String(16)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var created bool
	err := database.Retry(func() error {
		var err error
		created, err = Insert(ctx, db, e)
		return err
	})
	if err != nil {
		return Enrollment{}, err
	}

	if !created {
		return Enrollment{}, ErrAlreadyEnrolled
	}

	return e, nil
}

// MarkFailed moves the enrollments of one payment attempt to FAILED. The
// payment_ref match ties the transition to the same attempt, so a failure
// from an abandoned retry never touches an enrollment completed by a
// different, successful payment.
func MarkFailed(ctx context.Context, db sqlx.ExtContext, paymentRef string) (int64, error) {
	return UpdateStatusByPaymentRef(ctx, db, paymentRef, Failed, Pending, Completed)
}

// MarkRefunded moves the enrollments of one payment to REFUNDED, revoking
// access and certificate eligibility from that point on. Progress rows are
// left in place.
func MarkRefunded(ctx context.Context, db sqlx.ExtContext, paymentRef string) (int64, error) {
	return UpdateStatusByPaymentRef(ctx, db, paymentRef, Refunded, Pending, Completed)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
