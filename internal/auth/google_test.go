package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"golang.org/x/oauth2"

	sharedauth "casa-backend/internal/shared/auth"
	"casa-backend/internal/users"
)

func fakeGoogle(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":      "1077",
			"email":   "lab@example.com",
			"name":    "Lab User",
			"picture": "https://example.com/p.png",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(t *testing.T, clock clockwork.Clock, userSvc *users.Service) (*GoogleService, *gin.Engine) {
	t.Helper()
	srv := fakeGoogle(t)
	svc := NewGoogleService(GoogleConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/cb",
		UIRedirect:   "https://app.example.com/auth/done",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
		UserInfoURL:  srv.URL + "/userinfo",
		Clock:        clock,
	}, userSvc)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc.RegisterRoutes(r.Group("/api/v1"))
	return svc, r
}

func startLogin(t *testing.T, r *gin.Engine, next string) string {
	t.Helper()
	target := "/api/v1/auth/google/start"
	if next != "" {
		target += "?next=" + url.QueryEscape(next)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
	if resp.Code != http.StatusFound {
		t.Fatalf("start: expected 302, got %d", resp.Code)
	}
	loc, err := url.Parse(resp.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	return loc.Query().Get("state")
}

func TestSignInIssuesTokenAndStoresProfile(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ENV", "dev")
	userSvc := users.NewService(users.NewMemoryRepo())
	_, r := newTestService(t, clockwork.NewFakeClock(), userSvc)

	state := startLogin(t, r, "/results/abc")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state="+state+"&code=good-code", nil))
	if resp.Code != http.StatusFound {
		t.Fatalf("callback: expected 302, got %d: %s", resp.Code, resp.Body.String())
	}

	loc, _ := url.Parse(resp.Header().Get("Location"))
	if loc.Host != "app.example.com" || loc.Query().Get("next") != "/results/abc" {
		t.Fatalf("unexpected redirect %s", loc)
	}
	claims, err := sharedauth.VerifyJWT(loc.Query().Get("token"))
	if err != nil {
		t.Fatalf("VerifyJWT: %v", err)
	}
	if claims.Subject != "google:1077" || claims.Email != "lab@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	stored, err := userSvc.GetByID(context.Background(), "google:1077")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.FullName != "Lab User" || stored.PictureURL != "https://example.com/p.png" {
		t.Fatalf("unexpected stored user %+v", stored)
	}
}

func TestCallbackRejectsReplayedAndExpiredState(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	clock := clockwork.NewFakeClock()
	_, r := newTestService(t, clock, nil)

	callback := func(state, code string) int {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state="+state+"&code="+code, nil))
		return resp.Code
	}

	state := startLogin(t, r, "")
	if got := callback(state, "good-code"); got != http.StatusFound {
		t.Fatalf("first callback: expected 302, got %d", got)
	}
	if got := callback(state, "good-code"); got != http.StatusBadRequest {
		t.Fatalf("replay: expected 400, got %d", got)
	}

	stale := startLogin(t, r, "")
	clock.Advance(6 * time.Minute)
	if got := callback(stale, "good-code"); got != http.StatusBadRequest {
		t.Fatalf("expired: expected 400, got %d", got)
	}
	if got := callback("nope", "c"); got != http.StatusBadRequest {
		t.Fatalf("unknown: expected 400, got %d", got)
	}
}

func TestCallbackRejectsBadCode(t *testing.T) {
	_, r := newTestService(t, clockwork.NewFakeClock(), nil)
	state := startLogin(t, r, "")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state="+state+"&code=bad", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestStartWithoutCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewGoogleService(GoogleConfig{}, nil).RegisterRoutes(r.Group("/api/v1"))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))
	if resp.Code != http.StatusInternalServerError || !strings.Contains(resp.Body.String(), "auth_not_configured") {
		t.Fatalf("expected auth_not_configured, got %d %s", resp.Code, resp.Body.String())
	}
}

func TestStartDefaultsToGoogle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewGoogleService(GoogleConfig{ClientID: "c", ClientSecret: "s", RedirectURL: "http://localhost/cb"}, nil).
		RegisterRoutes(r.Group("/api/v1"))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))
	if !strings.HasPrefix(resp.Header().Get("Location"), "https://accounts.google.com/") {
		t.Fatalf("unexpected location %s", resp.Header().Get("Location"))
	}
}

func TestSafeNext(t *testing.T) {
	cases := map[string]string{
		"/results/1":         "/results/1",
		"":                   "",
		"https://evil.com/x": "",
		"//evil.com":         "",
		`/\evil.com`:         "",
		"results":            "",
	}
	for in, want := range cases {
		if got := safeNext(in); got != want {
			t.Fatalf("safeNext(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStateStorePrunesExpired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newStateStore(clock, time.Minute)
	store.put("a", "")
	clock.Advance(2 * time.Minute)
	store.put("b", "/x")

	if store.size() != 1 {
		t.Fatalf("expected expired state pruned, have %d", store.size())
	}
	if next, ok := store.consume("b"); !ok || next != "/x" {
		t.Fatalf("expected b valid with next, got %q %v", next, ok)
	}
}

func TestUIRedirectKeepsExistingQuery(t *testing.T) {
	out, err := uiRedirect("https://app.example.com/login?lang=fr", "tok", "")
	if err != nil {
		t.Fatalf("uiRedirect: %v", err)
	}
	u, _ := url.Parse(out)
	if u.Query().Get("token") != "tok" || u.Query().Get("lang") != "fr" || u.Query().Has("next") {
		t.Fatalf("unexpected url %s", out)
	}
	if _, err := uiRedirect("", "tok", ""); err == nil {
		t.Fatalf("expected error for empty redirect")
	}
}
