package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/ziadayman00/learning-platform/api/web"
	"github.com/ziadayman00/learning-platform/api/weberr"
	"github.com/ziadayman00/learning-platform/core/claims"
	"github.com/ziadayman00/learning-platform/rate"
)

// RateLimit caps the cadence of calls per authenticated user. It sits on the
// position-ping endpoint, which clients fire on a timer while media plays.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			key := r.RemoteAddr
			if clm, err := claims.Get(ctx); err == nil {
				key = clm.UserID
			}

			if !lim.Check(key) {
				err := errors.New("too many requests")
				return weberr.NewError(err, err.Error(), http.StatusTooManyRequests)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
