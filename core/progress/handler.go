package progress

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/ziadayman00/learning-platform/api/background"
	"github.com/ziadayman00/learning-platform/api/web"
	"github.com/ziadayman00/learning-platform/api/weberr"
	"github.com/ziadayman00/learning-platform/core/claims"
	"github.com/ziadayman00/learning-platform/core/course"
	"github.com/ziadayman00/learning-platform/database"
	"github.com/ziadayman00/learning-platform/notify"
	"github.com/ziadayman00/learning-platform/validate"
)

type Handlers struct {
	DB       *sqlx.DB
	Bg       *background.Background
	Notifier notify.Notifier
}

// HandleRecordPosition is hit on a timer while media plays, every 10s or so
// per client. Bursts and out-of-order retries are expected and harmless.
func (h Handlers) HandleRecordPosition() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		lessonID := web.Param(r, "id")
		if err := validate.CheckID(lessonID); err != nil {
			return weberr.BadRequest(err)
		}

		var up PositionUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(err)
		}

		if _, err := course.FetchLesson(ctx, h.DB, lessonID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		err = database.Retry(func() error {
			return RecordPosition(ctx, h.DB, clm.UserID, lessonID, up.Position)
		})
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func (h Handlers) HandleMarkComplete() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		lessonID := web.Param(r, "id")
		if err := validate.CheckID(lessonID); err != nil {
			return weberr.BadRequest(err)
		}

		if _, err := course.FetchLesson(ctx, h.DB, lessonID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		err = database.Retry(func() error {
			return MarkComplete(ctx, h.DB, clm.UserID, lessonID)
		})
		if err != nil {
			return err
		}

		h.Bg.Add(func() error {
			h.Notifier.ProgressChanged(clm.UserID, lessonID)
			return nil
		})

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func (h Handlers) HandleCourseCompletion() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		if _, err := course.Fetch(ctx, h.DB, courseID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		completion, err := ComputeCompletion(ctx, h.DB, clm.UserID, courseID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, completion, http.StatusOK)
	}
}
