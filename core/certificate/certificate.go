package certificate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ziadayman00/learning-platform/core/course"
	"github.com/ziadayman00/learning-platform/core/enrollment"
	"github.com/ziadayman00/learning-platform/core/progress"
	"github.com/ziadayman00/learning-platform/core/user"
)

var ErrNotEligible = errors.New("course not eligible for a certificate")

// Descriptor is derived, never stored. The same (user, course, progress)
// inputs always produce the same descriptor, so issuing is free of
// sequence-allocation races and safe to repeat.
type Descriptor struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	CourseID       string    `json:"courseId"`
	StudentName    string    `json:"studentName"`
	CourseTitle    string    `json:"courseTitle"`
	InstructorName string    `json:"instructorName"`
	CompletionDate time.Time `json:"completionDate"`
}

// DescriptorID derives the fixed-format certificate id from truncated
// course and user ids. No counter, no persisted sequence.
func DescriptorID(courseID, userID string) string {
	return fmt.Sprintf("CERT-%s-%s", strings.ToUpper(truncate(courseID, 8)), strings.ToUpper(truncate(userID, 8)))
}

func truncate(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

// Eligible is true only for a currently COMPLETED enrollment on a course
// whose every lesson is complete by exact count. A refund after full
// completion revokes eligibility; a course with zero lessons never grants
// it. The rounded percentage plays no part here.
func Eligible(ctx context.Context, db *sqlx.DB, userID, courseID string) (bool, error) {
	e, err := enrollment.Fetch(ctx, db, userID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	if e.Status != enrollment.Completed {
		return false, nil
	}

	c, err := progress.ComputeCompletion(ctx, db, userID, courseID)
	if err != nil {
		return false, err
	}

	return c.Complete(), nil
}

// Issue derives the certificate descriptor or fails with ErrNotEligible. No
// descriptor field leaks on the failure path. The completion date is the
// latest pinned lesson completion; current time only in the degenerate case
// of no recorded timestamps.
func Issue(ctx context.Context, db *sqlx.DB, userID, courseID string) (Descriptor, error) {
	ok, err := Eligible(ctx, db, userID, courseID)
	if err != nil {
		return Descriptor{}, err
	}

	if !ok {
		return Descriptor{}, ErrNotEligible
	}

	crs, err := course.Fetch(ctx, db, courseID)
	if err != nil {
		return Descriptor{}, err
	}

	student, err := user.Fetch(ctx, db, userID)
	if err != nil {
		return Descriptor{}, err
	}

	instructor, err := user.Fetch(ctx, db, crs.InstructorID)
	if err != nil {
		return Descriptor{}, err
	}

	completedAt, found, err := progress.CompletionDate(ctx, db, userID, courseID)
	if err != nil {
		return Descriptor{}, err
	}
	if !found {
		completedAt = time.Now().UTC()
	}

	return Descriptor{
		ID:             DescriptorID(courseID, userID),
		UserID:         userID,
		CourseID:       courseID,
		StudentName:    student.Name,
		CourseTitle:    crs.Title,
		InstructorName: instructor.Name,
		CompletionDate: completedAt,
	}, nil
}
