// Package auth binds the externally issued identity to a server-side
// session. Credential verification (passwords, OAuth) lives in the identity
// service; it deposits a one-time code in the shared cache and the exchange
// endpoint consumes it to establish the session.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/ziadayman00/learning-platform/api/web"
	"github.com/ziadayman00/learning-platform/api/weberr"
	"github.com/ziadayman00/learning-platform/core/claims"
)

const (
	sessionUserID = "user_id"
	sessionRole   = "role"
)

// LoadAndSave adapts the scs session middleware to the web.Handler chain.
func LoadAndSave(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var err error

			sh := session.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				err = handler(r.Context(), w, r)
			}))

			sh.ServeHTTP(w, r.WithContext(ctx))
			return err
		}
		return h
	}
	return m
}

// Authenticate requires a session-resolved user and lifts it into claims.
func Authenticate(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			userID := session.GetString(r.Context(), sessionUserID)
			if userID == "" {
				return weberr.NotAuthorized(errors.New("no user in session"))
			}

			clm := claims.Claims{
				UserID: userID,
				Role:   session.GetString(r.Context(), sessionRole),
			}

			return handler(claims.Set(ctx, clm), w, r)
		}
		return h
	}
	return m
}

// StartSession records the resolved identity in the session store.
func StartSession(ctx context.Context, session *scs.SessionManager, userID, role string) error {
	if err := session.RenewToken(ctx); err != nil {
		return errors.New("renewing session token")
	}

	session.Put(ctx, sessionUserID, userID)
	session.Put(ctx, sessionRole, role)
	return nil
}
