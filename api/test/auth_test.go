package test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/ziadayman00/learning-platform/core/auth"
	"github.com/ziadayman00/learning-platform/core/claims"
	"github.com/ziadayman00/learning-platform/random"
)

func TestAuth(t *testing.T) {
	env, err := NewTestEnv(t, "auth_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	u := env.CreateUser(t, "Riley", claims.RoleUser)

	// Session-gated routes refuse without a session.
	w, err := env.Client().Get(env.URL + "/enrollments")
	if err != nil {
		t.Fatal(err)
	}
	w.Body.Close()
	if w.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list: status code %s", w.Status)
	}

	// A wrong code never opens a session.
	exchangeStatus(t, env, u.ID, "not-the-code", http.StatusUnauthorized)

	code := random.String(24)
	if err := env.Cache.Put(context.Background(), auth.LoginKey(u.ID), code, time.Minute); err != nil {
		t.Fatalf("depositing login code: %v", err)
	}

	exchangeStatus(t, env, u.ID, code, http.StatusNoContent)

	w, err = env.Client().Get(env.URL + "/enrollments")
	if err != nil {
		t.Fatal(err)
	}
	w.Body.Close()
	if w.StatusCode != http.StatusOK {
		t.Fatalf("authenticated list: status code %s", w.Status)
	}

	// The code is one-shot: replaying the exchange fails even while the
	// first session lives.
	exchangeStatus(t, env, u.ID, code, http.StatusUnauthorized)

	env.Logout(t)

	w, err = env.Client().Get(env.URL + "/enrollments")
	if err != nil {
		t.Fatal(err)
	}
	w.Body.Close()
	if w.StatusCode != http.StatusUnauthorized {
		t.Fatalf("post-logout list: status code %s", w.Status)
	}
}

func exchangeStatus(t *testing.T, env *TestEnv, userID, code string, want int) {
	t.Helper()

	body, err := json.Marshal(map[string]string{"userId": userID, "code": code})
	if err != nil {
		t.Fatal(err)
	}

	w, err := env.Client().Post(env.URL+"/auth/session", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != want {
		t.Fatalf("exchanging login code: status code %d, want %d", w.StatusCode, want)
	}
}
