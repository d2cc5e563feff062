package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/ziadayman00/learning-platform/api/web"
	"github.com/ziadayman00/learning-platform/api/weberr"
	"github.com/ziadayman00/learning-platform/cache"
	"github.com/ziadayman00/learning-platform/core/user"
	"github.com/ziadayman00/learning-platform/validate"
)

// LoginKey is the cache key the identity service deposits one-time login
// codes under, per user.
func LoginKey(userID string) string {
	return "login:" + userID
}

type exchange struct {
	UserID string `json:"userId" validate:"required"`
	Code   string `json:"code" validate:"required"`
}

// HandleExchange consumes a one-time login code and establishes the session.
// The atomic check-and-consume means a replayed exchange fails.
func HandleExchange(db *sqlx.DB, session *scs.SessionManager, codes cache.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var ex exchange
		if err := web.Decode(w, r, &ex); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(ex); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		ok, err := codes.TakeIfMatch(ctx, LoginKey(ex.UserID), ex.Code)
		if err != nil {
			return fmt.Errorf("consuming login code: %w", err)
		}

		if !ok {
			return weberr.NotAuthorized(errors.New("invalid or expired login code"))
		}

		usr, err := user.Fetch(ctx, db, ex.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotAuthorized(errors.New("unknown user"))
			}
			return err
		}

		if err := StartSession(r.Context(), session, usr.ID, usr.Role); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleLogout(session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := session.Destroy(r.Context()); err != nil {
			return fmt.Errorf("destroying session: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
