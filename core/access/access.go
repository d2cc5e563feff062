package access

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/ziadayman00/learning-platform/core/course"
	"github.com/ziadayman00/learning-platform/core/enrollment"
)

// CanAccessLearningView is the single gate in front of non-free lesson
// content: a COMPLETED enrollment, or being the course's instructor.
func CanAccessLearningView(ctx context.Context, db sqlx.ExtContext, userID string, crs course.Course) (bool, error) {
	if userID == crs.InstructorID {
		return true, nil
	}

	e, err := enrollment.Fetch(ctx, db, userID, crs.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return e.Status == enrollment.Completed, nil
}

// CanPreview holds for free lessons only. It never consults enrollment, so
// anonymous callers preview for free exactly like enrolled ones.
func CanPreview(l course.Lesson) bool {
	return l.Free
}
