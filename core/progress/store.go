package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// RecordPosition upserts the resume position. The statement never mentions
// the completed column, so a stale in-flight ping can race markComplete for
// the same pair without ever clobbering completion. Last write wins on
// position, which is all the resume state needs.
func RecordPosition(ctx context.Context, db sqlx.ExtContext, userID, lessonID string, position int) error {
	if position < 0 {
		position = 0
	}

	const q = `
	INSERT INTO lesson_progress
		(user_id, lesson_id, position, created_at, updated_at)
	VALUES
		($1, $2, $3, $4, $4)
	ON CONFLICT (user_id, lesson_id) DO UPDATE SET
		position   = EXCLUDED.position,
		updated_at = EXCLUDED.updated_at`

	if _, err := db.ExecContext(ctx, q, userID, lessonID, position, time.Now().UTC()); err != nil {
		return fmt.Errorf("recording position of lesson[%s] for user[%s]: %w", lessonID, userID, err)
	}

	return nil
}

// MarkComplete flips the monotonic completion flag. Re-marking is a no-op
// success, and completed_at is pinned to the first time the flag flipped so
// later position updates never move the completion date.
func MarkComplete(ctx context.Context, db sqlx.ExtContext, userID, lessonID string) error {
	const q = `
	INSERT INTO lesson_progress
		(user_id, lesson_id, completed, completed_at, created_at, updated_at)
	VALUES
		($1, $2, TRUE, $3, $3, $3)
	ON CONFLICT (user_id, lesson_id) DO UPDATE SET
		completed    = TRUE,
		completed_at = COALESCE(lesson_progress.completed_at, EXCLUDED.completed_at),
		updated_at   = EXCLUDED.updated_at`

	if _, err := db.ExecContext(ctx, q, userID, lessonID, time.Now().UTC()); err != nil {
		return fmt.Errorf("marking lesson[%s] complete for user[%s]: %w", lessonID, userID, err)
	}

	return nil
}

// FetchByCourse returns the user's progress rows across one course.
func FetchByCourse(ctx context.Context, db sqlx.ExtContext, userID, courseID string) ([]Progress, error) {
	const q = `
	SELECT p.* FROM lesson_progress AS p
	JOIN lessons AS l ON l.lesson_id = p.lesson_id
	JOIN sections AS s ON s.section_id = l.section_id
	WHERE p.user_id = $1 AND s.course_id = $2`

	rows := []Progress{}
	if err := sqlx.SelectContext(ctx, db, &rows, q, userID, courseID); err != nil {
		return nil, fmt.Errorf("fetching progress of course[%s] for user[%s]: %w", courseID, userID, err)
	}

	return rows, nil
}

// ComputeCompletion aggregates completion over the course's current catalog
// structure, left-joining progress so lessons without a row count as
// incomplete. Users with zero progress rows still get a correct total.
func ComputeCompletion(ctx context.Context, db sqlx.ExtContext, userID, courseID string) (Completion, error) {
	const q = `
	SELECT
		COUNT(l.lesson_id)                    AS total_lessons,
		COUNT(*) FILTER (WHERE p.completed)   AS completed_lessons
	FROM lessons AS l
	JOIN sections AS s ON s.section_id = l.section_id
	LEFT JOIN lesson_progress AS p ON p.lesson_id = l.lesson_id AND p.user_id = $1
	WHERE s.course_id = $2`

	var c Completion
	if err := sqlx.GetContext(ctx, db, &c, q, userID, courseID); err != nil {
		return Completion{}, fmt.Errorf("computing completion of course[%s] for user[%s]: %w", courseID, userID, err)
	}

	c.Percentage = Percent(c.CompletedLessons, c.TotalLessons)
	return c, nil
}

// CompletionDate returns the latest pinned completion timestamp across the
// course, or false when no lesson carries one.
func CompletionDate(ctx context.Context, db sqlx.ExtContext, userID, courseID string) (time.Time, bool, error) {
	const q = `
	SELECT MAX(p.completed_at) FROM lesson_progress AS p
	JOIN lessons AS l ON l.lesson_id = p.lesson_id
	JOIN sections AS s ON s.section_id = l.section_id
	WHERE p.user_id = $1 AND s.course_id = $2 AND p.completed`

	var max *time.Time
	if err := sqlx.GetContext(ctx, db, &max, q, userID, courseID); err != nil {
		return time.Time{}, false, fmt.Errorf("fetching completion date of course[%s] for user[%s]: %w", courseID, userID, err)
	}

	if max == nil {
		return time.Time{}, false, nil
	}

	return *max, true, nil
}
