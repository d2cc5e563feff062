package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/plutov/paypal/v4"
	mock "github.com/stripe/stripe-mock/param"
	"github.com/ziadayman00/learning-platform/api/web"
	"github.com/ziadayman00/learning-platform/core/course"
	"github.com/ziadayman00/learning-platform/random"
)

// mockPaypal validates the single-course order against the expected course
// and hands back canned provider responses, token endpoint included.
type mockPaypal struct {
	expectedCourse course.Course
}

func (m *mockPaypal) handle() http.Handler {
	token := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := map[string]any{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		web.Respond(context.Background(), w, res, 200)
	})

	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var pu struct {
			Units []paypal.PurchaseUnitRequest `json:"purchase_units"`
		}
		if err := json.NewDecoder(r.Body).Decode(&pu); err != nil {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if len(pu.Units) != 1 || len(pu.Units[0].Items) != 1 {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		p := m.expectedCourse.Price
		value := fmt.Sprintf("%d.%02d", p/100, p%100)

		if pu.Units[0].Amount.Value != value {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if pu.Units[0].Items[0].Name != m.expectedCourse.Title {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		ord := paypal.Order{ID: "PAY-" + random.String(12), Status: "CREATED"}
		web.Respond(context.Background(), w, ord, 200)
	})

	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := map[string]any{
			"id":     web.Param(r, "id"),
			"status": "COMPLETED",
		}
		web.Respond(context.Background(), w, res, 200)
	})

	r := mux.NewRouter()
	r.Handle("/v1/oauth2/token", token).Methods("POST")
	r.Handle("/v2/checkout/orders", checkout).Methods("POST")
	r.Handle("/v2/checkout/orders/{id}/capture", capture).Methods("POST")
	return r
}

// mockStripe validates the checkout session parameters, metadata included,
// and returns a session whose URL ends in the session id so tests can bind
// webhook events to it.
type mockStripe struct {
	expectedCourse course.Course
	expectedUserID string
}

func (m *mockStripe) handle() http.Handler {
	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, err := mock.ParseParams(r)
		if err != nil {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if params["mode"] != "payment" {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		lines, ok := params["line_items"].(map[string]any)
		if !ok || len(lines) != 1 {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		for _, li := range lines {
			it := li.(map[string]any)

			if it["quantity"] != "1" {
				web.Respond(context.Background(), w, nil, 400)
				return
			}

			pd := it["price_data"].(map[string]any)
			amount, err := strconv.Atoi(pd["unit_amount"].(string))
			if err != nil || amount != m.expectedCourse.Price {
				web.Respond(context.Background(), w, nil, 400)
				return
			}
		}

		meta, ok := params["metadata"].(map[string]any)
		if !ok {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if meta["course_id"] != m.expectedCourse.ID || meta["user_id"] != m.expectedUserID {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		id := "cs_" + random.String(14)
		s := map[string]any{"id": id, "url": "https://checkout.test/pay/" + id}
		web.Respond(context.Background(), w, s, 200)
	})

	r := mux.NewRouter()
	r.Handle("/v1/checkout/sessions", checkout).Methods("POST")
	return r
}
