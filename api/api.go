package api

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/ziadayman00/learning-platform/api/background"
	"github.com/ziadayman00/learning-platform/api/middleware"
	"github.com/ziadayman00/learning-platform/api/web"
	"github.com/ziadayman00/learning-platform/cache"
	"github.com/ziadayman00/learning-platform/config"
	"github.com/ziadayman00/learning-platform/core/access"
	"github.com/ziadayman00/learning-platform/core/auth"
	"github.com/ziadayman00/learning-platform/core/certificate"
	"github.com/ziadayman00/learning-platform/core/course"
	"github.com/ziadayman00/learning-platform/core/enrollment"
	"github.com/ziadayman00/learning-platform/core/progress"
	"github.com/ziadayman00/learning-platform/core/review"
	"github.com/ziadayman00/learning-platform/notify"
	"github.com/ziadayman00/learning-platform/rate"
)

type APIConfig struct {
	CorsOrigin string
	Log        logrus.FieldLogger
	DB         *sqlx.DB
	Session    *scs.SessionManager
	Background *background.Background
	Cache      cache.Store
	EventTTL   time.Duration
	Notifier   notify.Notifier
	Paypal     *paypal.Client
	Stripe     *stripecl.API
	StripeCfg  config.Stripe
	PingLimit  *rate.Limiter
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	pinged := middleware.RateLimit(cfg.PingLimit)

	enr := enrollment.Handlers{
		DB:        cfg.DB,
		Log:       cfg.Log,
		Stripe:    cfg.Stripe,
		StripeCfg: cfg.StripeCfg,
		Paypal:    cfg.Paypal,
		Seen:      cfg.Cache,
		SeenTTL:   cfg.EventTTL,
		Bg:        cfg.Background,
		Notifier:  cfg.Notifier,
	}

	prg := progress.Handlers{
		DB:       cfg.DB,
		Bg:       cfg.Background,
		Notifier: cfg.Notifier,
	}

	a.Handle(http.MethodPost, "/auth/session", auth.HandleExchange(cfg.DB, cfg.Session, cfg.Cache))
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))

	a.Handle(http.MethodGet, "/courses/{id}/lessons", course.HandleListContent(cfg.DB))
	a.Handle(http.MethodGet, "/courses/{id}/progress", prg.HandleCourseCompletion(), authen)
	a.Handle(http.MethodGet, "/courses/{id}/certificate", certificate.HandleIssue(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/{id}/learn", access.HandleLearningSummary(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/{id}/reviews", review.HandleListByCourse(cfg.DB))
	a.Handle(http.MethodPost, "/courses/{id}/reviews", review.HandleUpsert(cfg.DB), authen)
	a.Handle(http.MethodPost, "/courses/{id}/sections", course.HandleCreateSection(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/{id}", course.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/courses", course.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/courses", course.HandleCreate(cfg.DB), authen)

	a.Handle(http.MethodPost, "/sections/{id}/lessons", course.HandleCreateLesson(cfg.DB), authen)

	a.Handle(http.MethodPut, "/lessons/{id}/position", prg.HandleRecordPosition(), authen, pinged)
	a.Handle(http.MethodPut, "/lessons/{id}/complete", prg.HandleMarkComplete(), authen)
	a.Handle(http.MethodGet, "/lessons/{id}/stream", access.HandleStreamLesson(cfg.DB), authen)
	a.Handle(http.MethodGet, "/lessons/{id}/preview", access.HandlePreviewLesson(cfg.DB))

	a.Handle(http.MethodPost, "/enrollments/{course_id}", enr.HandleDirectEnroll(), authen)
	a.Handle(http.MethodGet, "/enrollments", enr.HandleList(), authen)

	a.Handle(http.MethodPost, "/payments/stripe/checkout", enr.HandleStripeCheckout(), authen)
	a.Handle(http.MethodPost, "/payments/stripe/webhook", enr.HandleStripeWebhook())
	a.Handle(http.MethodPost, "/payments/paypal", enr.HandlePaypalCheckout(), authen)
	a.Handle(http.MethodPost, "/payments/paypal/{id}/capture", enr.HandlePaypalCapture(), authen)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
