package enrollment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
	"github.com/ziadayman00/learning-platform/api/background"
	"github.com/ziadayman00/learning-platform/api/web"
	"github.com/ziadayman00/learning-platform/api/weberr"
	"github.com/ziadayman00/learning-platform/cache"
	"github.com/ziadayman00/learning-platform/config"
	"github.com/ziadayman00/learning-platform/core/claims"
	"github.com/ziadayman00/learning-platform/core/course"
	"github.com/ziadayman00/learning-platform/notify"
	"github.com/ziadayman00/learning-platform/validate"
)

// Handlers carries the collaborators of the enrollment endpoints.
type Handlers struct {
	DB        *sqlx.DB
	Log       logrus.FieldLogger
	Stripe    *stripecl.API
	StripeCfg config.Stripe
	Paypal    *paypal.Client
	Seen      cache.Store
	SeenTTL   time.Duration
	Bg        *background.Background
	Notifier  notify.Notifier
}

func (h Handlers) notifyEnrollment(userID, courseID string, status Status) {
	h.Bg.Add(func() error {
		h.Notifier.EnrollmentChanged(userID, courseID, string(status))
		return nil
	})
}

// HandleDirectEnroll is the free path: an immediately COMPLETED enrollment
// at the course's current list price, with a synthetic payment reference.
func (h Handlers) HandleDirectEnroll() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		crs, err := course.Fetch(ctx, h.DB, courseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		e, err := DirectEnroll(ctx, h.DB, clm.UserID, crs)
		if err != nil {
			if errors.Is(err, ErrAlreadyEnrolled) {
				return weberr.Conflict(err, "you are already enrolled in this course")
			}
			return err
		}

		h.notifyEnrollment(e.UserID, e.CourseID, e.Status)

		return web.Respond(ctx, w, e, http.StatusCreated)
	}
}

func (h Handlers) HandleList() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		enrollments, err := FetchByUser(ctx, h.DB, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, enrollments, http.StatusOK)
	}
}

type checkoutNew struct {
	CourseID string `json:"courseId" validate:"required,uuid"`
}

// HandleStripeCheckout creates a single-course checkout session carrying the
// (user, course) pair as metadata and records the PENDING enrollment bound
// to the session reference.
func (h Handlers) HandleStripeCheckout() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var cnew checkoutNew
		if err := web.Decode(w, r, &cnew); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(cnew); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		crs, err := course.Fetch(ctx, h.DB, cnew.CourseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		params := &stripe.CheckoutSessionParams{
			SuccessURL: stripe.String(h.StripeCfg.SuccessURL),
			CancelURL:  stripe.String(h.StripeCfg.CancelURL),
			Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),

			LineItems: []*stripe.CheckoutSessionLineItemParams{{
				Quantity: stripe.Int64(1),

				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String("usd"),
					UnitAmount: stripe.Int64(int64(crs.Price)),

					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(crs.Title),
						Description: stripe.String(crs.Description),
					},
				},
			}},

			Params: stripe.Params{
				Metadata: map[string]string{
					"course_id": crs.ID,
					"user_id":   clm.UserID,
				},
			},
		}

		s, err := h.Stripe.CheckoutSessions.New(params)
		if err != nil {
			return fmt.Errorf("creating stripe session: %w", err)
		}

		if err := PrepareCheckout(ctx, h.DB, clm.UserID, crs, s.ID); err != nil {
			return fmt.Errorf("recording pending enrollment for session[%s]: %w", s.ID, err)
		}

		return web.Respond(ctx, w, s.URL, http.StatusOK)
	}
}

// HandleStripeWebhook receives signed provider events. Redelivery is the
// normal case here: a short-TTL seen-event marker short-circuits tight
// retries, and the precedence upsert makes replays harmless either way.
// Malformed-but-authentic events are logged and acknowledged, a crash-retry
// loop with the provider helps nobody.
func (h Handlers) HandleStripeWebhook() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		sig := r.Header.Get("Stripe-Signature")
		if sig == "" {
			return weberr.BadRequest(errors.New("received stripe event is not signed"))
		}

		event, err := webhook.ConstructEvent(b, sig, h.StripeCfg.WebhookSecret)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot construct stripe event: %w", err))
		}

		if event.ID != "" {
			fresh, err := h.Seen.Add(ctx, "stripe-event:"+event.ID, "1", h.SeenTTL)
			if err != nil {
				// The cache is an optimization; the upsert rules carry
				// correctness on their own.
				h.Log.WithField("event_id", event.ID).Warnf("seen-event cache unavailable: %v", err)
			} else if !fresh {
				return web.Respond(ctx, w, nil, http.StatusNoContent)
			}
		}

		evt, err := mapStripeEvent(event)
		if err != nil {
			h.Log.WithFields(logrus.Fields{
				"event_id": event.ID,
				"type":     string(event.Type),
			}).Warnf("dropping invalid payment event: %v", err)
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		if err := Reconcile(ctx, h.DB, h.Log, evt); err != nil {
			// The event was claimed but not applied. Release the marker so
			// the provider's retry is processed instead of short-circuited
			// as already seen: answering 2xx here would lose the event for
			// good.
			if event.ID != "" {
				if _, rerr := h.Seen.TakeIfMatch(ctx, "stripe-event:"+event.ID, "1"); rerr != nil {
					h.Log.WithField("event_id", event.ID).Warnf("releasing seen-event marker: %v", rerr)
				}
			}
			return fmt.Errorf("reconciling event[%s]: %w", event.ID, err)
		}

		if evt.Type == EventCheckoutCompleted {
			h.notifyEnrollment(evt.UserID, evt.CourseID, Completed)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// mapStripeEvent translates the provider vocabulary into the reconciler's.
// Unknown types map to themselves and fall through Reconcile's default arm.
func mapStripeEvent(event stripe.Event) (PaymentEvent, error) {
	switch event.Type {
	case "checkout.session.completed":
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return PaymentEvent{}, fmt.Errorf("decoding checkout session: %w", err)
		}

		if s.Mode != stripe.CheckoutSessionModePayment {
			return PaymentEvent{Type: EventType(event.Type)}, nil
		}

		userID := s.Metadata["user_id"]
		courseID := s.Metadata["course_id"]
		if userID == "" || courseID == "" {
			return PaymentEvent{}, fmt.Errorf("session[%s] is missing enrollment metadata", s.ID)
		}

		evt := PaymentEvent{
			Type:       EventCheckoutCompleted,
			SessionRef: s.ID,
			UserID:     userID,
			CourseID:   courseID,
			Amount:     int(s.AmountTotal),
		}
		if s.PaymentIntent != nil {
			evt.PaymentRef = s.PaymentIntent.ID
		}
		return evt, nil

	case "checkout.session.expired":
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return PaymentEvent{}, fmt.Errorf("decoding expired session: %w", err)
		}
		return PaymentEvent{Type: EventCheckoutExpired, SessionRef: s.ID}, nil

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return PaymentEvent{}, fmt.Errorf("decoding payment intent: %w", err)
		}
		return PaymentEvent{
			Type:       EventPaymentFailed,
			PaymentRef: pi.ID,
			UserID:     pi.Metadata["user_id"],
			CourseID:   pi.Metadata["course_id"],
		}, nil

	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return PaymentEvent{}, fmt.Errorf("decoding charge: %w", err)
		}

		evt := PaymentEvent{Type: EventChargeRefunded}
		if ch.PaymentIntent != nil {
			evt.PaymentRef = ch.PaymentIntent.ID
		}
		return evt, nil
	}

	return PaymentEvent{Type: EventType(event.Type)}, nil
}

// HandlePaypalCheckout opens a PayPal order for one course and records the
// PENDING enrollment bound to the order id, the same flow the Stripe path
// follows.
func (h Handlers) HandlePaypalCheckout() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var cnew checkoutNew
		if err := web.Decode(w, r, &cnew); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(cnew); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		crs, err := course.Fetch(ctx, h.DB, cnew.CourseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		value := fmt.Sprintf("%d.%02d", crs.Price/100, crs.Price%100)

		units := []paypal.PurchaseUnitRequest{{
			Items: []paypal.Item{{
				Quantity:    "1",
				Name:        crs.Title,
				Description: crs.Description,

				UnitAmount: &paypal.Money{
					Currency: "USD",
					Value:    value,
				},
			}},

			Amount: &paypal.PurchaseUnitAmount{
				Currency: "USD",
				Value:    value,

				Breakdown: &paypal.PurchaseUnitAmountBreakdown{ItemTotal: &paypal.Money{
					Currency: "USD",
					Value:    value,
				}},
			},
		}}

		ord, err := h.Paypal.CreateOrder(ctx, "CAPTURE", units, nil, &paypal.ApplicationContext{})
		if err != nil {
			return fmt.Errorf("creating paypal order: %w", err)
		}

		if err := PrepareCheckout(ctx, h.DB, clm.UserID, crs, ord.ID); err != nil {
			return fmt.Errorf("recording pending enrollment for order[%s]: %w", ord.ID, err)
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

// HandlePaypalCapture captures a previously created order and feeds the
// result through the same reconciler as a webhook delivery would.
func (h Handlers) HandlePaypalCapture() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		orderID := web.Param(r, "id")

		resp, err := h.Paypal.CaptureOrder(ctx, orderID, paypal.CaptureOrderRequest{})
		if err != nil {
			return fmt.Errorf("capturing paypal order[%s]: %w", orderID, err)
		}

		if resp.Status != "COMPLETED" {
			return fmt.Errorf("captured order[%s] with status[%s] different from 'COMPLETED'", orderID, resp.Status)
		}

		pend, err := FetchBySessionRef(ctx, h.DB, orderID)
		if err != nil {
			return fmt.Errorf("the order was payed but no enrollment is bound to it: %w", err)
		}

		evt := PaymentEvent{
			Type:       EventCheckoutCompleted,
			SessionRef: orderID,
			PaymentRef: "paypal-" + orderID,
			UserID:     pend.UserID,
			CourseID:   pend.CourseID,
			Amount:     pend.Amount,
		}

		if err := Reconcile(ctx, h.DB, h.Log, evt); err != nil {
			return fmt.Errorf("the order was payed but its reconciliation failed: %w", err)
		}

		h.notifyEnrollment(pend.UserID, pend.CourseID, Completed)

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
