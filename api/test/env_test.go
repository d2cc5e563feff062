package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
	"github.com/ziadayman00/learning-platform/api"
	"github.com/ziadayman00/learning-platform/api/background"
	"github.com/ziadayman00/learning-platform/cache"
	"github.com/ziadayman00/learning-platform/config"
	"github.com/ziadayman00/learning-platform/core/auth"
	"github.com/ziadayman00/learning-platform/core/course"
	"github.com/ziadayman00/learning-platform/core/user"
	"github.com/ziadayman00/learning-platform/database"
	"github.com/ziadayman00/learning-platform/notify"
	"github.com/ziadayman00/learning-platform/random"
	"github.com/ziadayman00/learning-platform/rate"
	"github.com/ziadayman00/learning-platform/validate"
)

// TestEnv is one complete api instance over its own database, with the
// payment providers replaced by local mocks.
type TestEnv struct {
	DB            *sqlx.DB
	URL           string
	Server        *httptest.Server
	Cache         cache.Store
	Paypal        *mockPaypal
	Stripe        *mockStripe
	WebhookSecret string

	client *http.Client
}

func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	admin, err := adminDB()
	if err != nil {
		return nil, fmt.Errorf("opening admin connection: %w", err)
	}
	defer admin.Close()

	if _, err := admin.Exec("CREATE DATABASE " + name); err != nil {
		return nil, fmt.Errorf("creating database %s: %w", name, err)
	}

	cfg := adminConfig()
	cfg.Name = name

	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrating %s: %w", name, err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	session := scs.New()
	transient := cache.NewMemory()
	bg := background.New(logger)

	mp := &mockPaypal{}
	pps := httptest.NewServer(mp.handle())
	t.Cleanup(pps.Close)

	pp, err := paypal.NewClient("client", "secret", pps.URL)
	if err != nil {
		return nil, fmt.Errorf("building paypal client: %w", err)
	}
	if _, err := pp.GetAccessToken(context.Background()); err != nil {
		return nil, fmt.Errorf("getting paypal token: %w", err)
	}

	ms := &mockStripe{}
	sts := httptest.NewServer(ms.handle())
	t.Cleanup(sts.Close)

	sb := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL: stripe.String(sts.URL),
	})

	strp := &stripecl.API{}
	strp.Init("sk_test_123", &stripe.Backends{API: sb, Connect: sb, Uploads: sb})

	stripeCfg := config.Stripe{
		APISecret:     "sk_test_123",
		WebhookSecret: "whsec_" + random.String(24),
		SuccessURL:    "http://localhost/success",
		CancelURL:     "http://localhost/cancel",
	}

	mux := api.APIMux(api.APIConfig{
		Log:        logger,
		DB:         db,
		Session:    session,
		Background: bg,
		Cache:      transient,
		EventTTL:   time.Minute,
		Notifier:   notify.Log{Logger: logger},
		Paypal:     pp,
		Stripe:     strp,
		StripeCfg:  stripeCfg,
		PingLimit:  rate.NewLimiter(1000, 30, rate.Every(time.Millisecond)),
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("building cookie jar: %w", err)
	}

	return &TestEnv{
		DB:            db,
		URL:           server.URL,
		Server:        server,
		Cache:         transient,
		Paypal:        mp,
		Stripe:        ms,
		WebhookSecret: stripeCfg.WebhookSecret,
		client:        &http.Client{Jar: jar},
	}, nil
}

// Client returns the cookie-holding client, the one logged-in requests
// must go through.
func (env *TestEnv) Client() *http.Client {
	return env.client
}

// Login deposits a one-time code the way the identity service does and
// exchanges it for a session.
func (env *TestEnv) Login(t *testing.T, userID string) {
	t.Helper()

	code := random.String(24)
	if err := env.Cache.Put(context.Background(), auth.LoginKey(userID), code, time.Minute); err != nil {
		t.Fatalf("depositing login code: %v", err)
	}

	body, err := json.Marshal(map[string]string{"userId": userID, "code": code})
	if err != nil {
		t.Fatal(err)
	}

	w, err := env.client.Post(env.URL+"/auth/session", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusNoContent {
		t.Fatalf("can't login user[%s]: status code %s", userID, w.Status)
	}
}

func (env *TestEnv) Logout(t *testing.T) {
	t.Helper()

	w, err := env.client.Post(env.URL+"/auth/logout", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusNoContent {
		t.Fatalf("can't logout: status code %s", w.Status)
	}
}

func (env *TestEnv) CreateUser(t *testing.T, name, role string) user.User {
	t.Helper()

	now := time.Now().UTC()
	u := user.User{
		ID:        validate.GenerateID(),
		Name:      name,
		Email:     random.String(8) + "@test.io",
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Create(context.Background(), env.DB, u); err != nil {
		t.Fatalf("seeding user: %v", err)
	}

	return u
}

func (env *TestEnv) CreateCourse(t *testing.T, instructorID string, price int) course.Course {
	t.Helper()

	now := time.Now().UTC()
	c := course.Course{
		ID:           validate.GenerateID(),
		InstructorID: instructorID,
		Slug:         "course-" + random.String(8),
		Title:        "Course " + random.String(4),
		Description:  "Seeded course",
		Price:        price,
		Published:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := course.Create(context.Background(), env.DB, c); err != nil {
		t.Fatalf("seeding course: %v", err)
	}

	return c
}

// CreateLessons seeds one section holding len(free) lessons, one per entry,
// each entry deciding whether that lesson is a free preview.
func (env *TestEnv) CreateLessons(t *testing.T, courseID string, free []bool) []course.Lesson {
	t.Helper()

	now := time.Now().UTC()
	s := course.Section{
		ID:        validate.GenerateID(),
		CourseID:  courseID,
		Title:     "Main section",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := course.CreateSection(context.Background(), env.DB, s); err != nil {
		t.Fatalf("seeding section: %v", err)
	}

	lessons := make([]course.Lesson, 0, len(free))
	for i, f := range free {
		l := course.Lesson{
			ID:        validate.GenerateID(),
			SectionID: s.ID,
			Title:     fmt.Sprintf("Lesson %d", i+1),
			Position:  i,
			Free:      f,
			URL:       "https://cdn.test.io/" + random.String(12) + ".mp4",
			Duration:  300,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := course.CreateLesson(context.Background(), env.DB, l); err != nil {
			t.Fatalf("seeding lesson: %v", err)
		}

		lessons = append(lessons, l)
	}

	return lessons
}

// SendStripeEvent signs and delivers one provider event to the webhook,
// returning the response status code. The event id matters: redelivering
// the same id exercises the seen-event cache, a fresh id exercises the
// reconciler itself.
func (env *TestEnv) SendStripeEvent(t *testing.T, id, typ string, object map[string]any) int {
	t.Helper()

	raw, err := json.Marshal(object)
	if err != nil {
		t.Fatal(err)
	}

	evt := stripe.Event{
		ID:         id,
		APIVersion: "2022-11-15",
		Type:       typ,
		Data: &stripe.EventData{
			Raw: json.RawMessage(raw),
		},
	}

	b, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   b,
		Secret:    env.WebhookSecret,
		Timestamp: time.Now(),
	})

	r, err := http.NewRequest(http.MethodPost, env.URL+"/payments/stripe/webhook", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Stripe-Signature", signed.Header)

	w, err := env.client.Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	return w.StatusCode
}
