package access

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/ziadayman00/learning-platform/api/web"
	"github.com/ziadayman00/learning-platform/api/weberr"
	"github.com/ziadayman00/learning-platform/core/certificate"
	"github.com/ziadayman00/learning-platform/core/claims"
	"github.com/ziadayman00/learning-platform/core/course"
	"github.com/ziadayman00/learning-platform/core/enrollment"
	"github.com/ziadayman00/learning-platform/core/progress"
	"github.com/ziadayman00/learning-platform/validate"
)

type stream struct {
	URL string `json:"url"`
}

// HandleStreamLesson exposes the raw video URL behind the learning-view
// gate. Free lessons pass without the enrollment check.
func HandleStreamLesson(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		lessonID := web.Param(r, "id")
		if err := validate.CheckID(lessonID); err != nil {
			return weberr.BadRequest(err)
		}

		l, err := course.FetchLesson(ctx, db, lessonID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if CanPreview(l) {
			return web.Respond(ctx, w, stream{URL: l.URL}, http.StatusOK)
		}

		crs, err := course.FetchCourseOfLesson(ctx, db, lessonID)
		if err != nil {
			return err
		}

		ok, err := CanAccessLearningView(ctx, db, clm.UserID, crs)
		if err != nil {
			return err
		}

		if !ok {
			return weberr.Forbidden(errors.New("no completed enrollment for lesson's course"), "enroll in the course to watch this lesson")
		}

		return web.Respond(ctx, w, stream{URL: l.URL}, http.StatusOK)
	}
}

// HandlePreviewLesson serves free-preview lessons to anyone, including
// anonymous callers. It never reads enrollment state.
func HandlePreviewLesson(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		lessonID := web.Param(r, "id")
		if err := validate.CheckID(lessonID); err != nil {
			return weberr.BadRequest(err)
		}

		l, err := course.FetchLesson(ctx, db, lessonID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if !CanPreview(l) {
			return weberr.Forbidden(errors.New("lesson is not free to preview"), "this lesson has no free preview")
		}

		return web.Respond(ctx, w, stream{URL: l.URL}, http.StatusOK)
	}
}

// LessonState is the per-lesson slice of the learning summary.
type LessonState struct {
	Completed bool `json:"completed"`
	Position  int  `json:"position"`
}

// Summary is the query surface the presentation layer renders the learning
// view from: one call, everything derived.
type Summary struct {
	Course              course.Course            `json:"course"`
	Sections            []course.SectionContent  `json:"sections"`
	EnrollmentStatus    string                   `json:"enrollmentStatus"`
	Progress            map[string]LessonState   `json:"progress"`
	Completion          progress.Completion      `json:"completion"`
	CanAccess           bool                     `json:"canAccess"`
	CertificateEligible bool                     `json:"certificateEligible"`
	Certificate         *certificate.Descriptor  `json:"certificate,omitempty"`
}

func HandleLearningSummary(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		crs, err := course.Fetch(ctx, db, courseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		sum := Summary{Course: crs, Progress: map[string]LessonState{}}

		sum.CanAccess, err = CanAccessLearningView(ctx, db, clm.UserID, crs)
		if err != nil {
			return err
		}

		e, err := enrollment.Fetch(ctx, db, clm.UserID, crs.ID)
		switch {
		case err == nil:
			sum.EnrollmentStatus = string(e.Status)
		case errors.Is(err, sql.ErrNoRows):
			// No enrollment, e.g. the instructor's own course.
		default:
			return err
		}

		sum.Sections, err = course.FetchContent(ctx, db, crs.ID)
		if err != nil {
			return err
		}

		rows, err := progress.FetchByCourse(ctx, db, clm.UserID, crs.ID)
		if err != nil {
			return err
		}
		for _, p := range rows {
			sum.Progress[p.LessonID] = LessonState{Completed: p.Completed, Position: p.Position}
		}

		sum.Completion, err = progress.ComputeCompletion(ctx, db, clm.UserID, crs.ID)
		if err != nil {
			return err
		}

		sum.CertificateEligible, err = certificate.Eligible(ctx, db, clm.UserID, crs.ID)
		if err != nil {
			return err
		}

		if sum.CertificateEligible {
			desc, err := certificate.Issue(ctx, db, clm.UserID, crs.ID)
			if err != nil {
				return err
			}
			sum.Certificate = &desc
		}

		return web.Respond(ctx, w, sum, http.StatusOK)
	}
}
