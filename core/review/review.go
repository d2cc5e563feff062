package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ziadayman00/learning-platform/core/enrollment"
)

type Review struct {
	UserID    string    `json:"userId" db:"user_id"`
	CourseID  string    `json:"courseId" db:"course_id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type ReviewNew struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// CanReview is the eligibility predicate: only a currently COMPLETED
// enrollment may review the course.
func CanReview(ctx context.Context, db sqlx.ExtContext, userID, courseID string) (bool, error) {
	e, err := enrollment.Fetch(ctx, db, userID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return e.Status == enrollment.Completed, nil
}

// Upsert writes the single review per (user, course), replacing rating and
// comment in place on resubmission.
func Upsert(ctx context.Context, db sqlx.ExtContext, rev Review) error {
	const q = `
	INSERT INTO reviews
		(user_id, course_id, rating, comment, created_at, updated_at)
	VALUES
		(:user_id, :course_id, :rating, :comment, :created_at, :updated_at)
	ON CONFLICT (user_id, course_id) DO UPDATE SET
		rating     = EXCLUDED.rating,
		comment    = EXCLUDED.comment,
		updated_at = EXCLUDED.updated_at`

	if _, err := sqlx.NamedExecContext(ctx, db, q, rev); err != nil {
		return fmt.Errorf("upserting review[%s,%s]: %w", rev.UserID, rev.CourseID, err)
	}

	return nil
}

func FetchByCourse(ctx context.Context, db sqlx.ExtContext, courseID string) ([]Review, error) {
	const q = `SELECT * FROM reviews WHERE course_id = $1 ORDER BY updated_at DESC`

	reviews := []Review{}
	if err := sqlx.SelectContext(ctx, db, &reviews, q, courseID); err != nil {
		return nil, fmt.Errorf("fetching reviews of course[%s]: %w", courseID, err)
	}

	return reviews, nil
}
