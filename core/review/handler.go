package review

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ziadayman00/learning-platform/api/web"
	"github.com/ziadayman00/learning-platform/api/weberr"
	"github.com/ziadayman00/learning-platform/core/claims"
	"github.com/ziadayman00/learning-platform/core/course"
	"github.com/ziadayman00/learning-platform/database"
	"github.com/ziadayman00/learning-platform/validate"
)

func HandleUpsert(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		if _, err := course.Fetch(ctx, db, courseID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		var rnew ReviewNew
		if err := web.Decode(w, r, &rnew); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(rnew); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		ok, err := CanReview(ctx, db, clm.UserID, courseID)
		if err != nil {
			return err
		}

		if !ok {
			return weberr.Forbidden(errors.New("reviewer has no completed enrollment"), "you must purchase the course to review it")
		}

		now := time.Now().UTC()
		rev := Review{
			UserID:    clm.UserID,
			CourseID:  courseID,
			Rating:    rnew.Rating,
			Comment:   rnew.Comment,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = database.Retry(func() error {
			return Upsert(ctx, db, rev)
		})
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, rev, http.StatusOK)
	}
}

func HandleListByCourse(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		reviews, err := FetchByCourse(ctx, db, courseID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, reviews, http.StatusOK)
	}
}
