package certificate

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/ziadayman00/learning-platform/api/web"
	"github.com/ziadayman00/learning-platform/api/weberr"
	"github.com/ziadayman00/learning-platform/core/claims"
	"github.com/ziadayman00/learning-platform/core/course"
	"github.com/ziadayman00/learning-platform/validate"
)

// HandleIssue returns the derived certificate, or a 403 with no descriptor
// fields when the course is not fully complete. Repeat calls return the
// identical descriptor id.
func HandleIssue(db *sqlx.DB) web.Handler {
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

		desc, err := Issue(ctx, db, clm.UserID, courseID)
		if err != nil {
			if errors.Is(err, ErrNotEligible) {
				return weberr.Forbidden(err, "complete all lessons to get your certificate")
			}
			return err
		}

		return web.Respond(ctx, w, desc, http.StatusOK)
	}
}
