package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"warbler/internal/cache"
	"warbler/internal/config"
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

// testEnv is a running app backed by an in-memory SQLite database and a
// miniredis instance, plus a tiny cookie jar so requests share a session.
type testEnv struct {
	t       *testing.T
	db      *gorm.DB
	mr      *miniredis.Miniredis
	srv     *Server
	app     *fiber.App
	cookies map[string]string
}

func testConfig() *config.Config {
	return &config.Config{
		Env:             "test",
		Port:            "0",
		JWTSecret:       testSecret,
		DBDriver:        "sqlite",
		SessionTTLHours: 1,
		BcryptCost:      bcrypt.MinCost,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithConfig(t, testConfig())
}

func newTestEnvWithConfig(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})

	db := testutil.NewTestDB(t)
	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	return &testEnv{
		t:       t,
		db:      db,
		mr:      mr,
		srv:     srv,
		app:     srv.NewApp(),
		cookies: map[string]string{},
	}
}

// loginAs installs a valid session cookie for user without going through the
// login form.
func (e *testEnv) loginAs(user *models.User) {
	e.t.Helper()
	token, _, err := e.srv.sessions.Issue(user.ID)
	require.NoError(e.t, err)
	e.cookies[middleware.SessionCookieName] = token
}

func (e *testEnv) do(method, target string, form url.Values) *http.Response {
	e.t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	}
	for name, value := range e.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)

	for _, ck := range resp.Cookies() {
		expired := !ck.Expires.IsZero() && ck.Expires.Before(time.Now())
		if ck.Value == "" || expired || ck.MaxAge < 0 {
			delete(e.cookies, ck.Name)
			continue
		}
		e.cookies[ck.Name] = ck.Value
	}
	return resp
}

func (e *testEnv) get(target string) *http.Response {
	return e.do(http.MethodGet, target, nil)
}

func (e *testEnv) post(target string, form url.Values) *http.Response {
	return e.do(http.MethodPost, target, form)
}

// follow issues the request and then follows redirects with GETs, returning
// the final response and its body.
func (e *testEnv) follow(method, target string, form url.Values) (*http.Response, string) {
	e.t.Helper()

	resp := e.do(method, target, form)
	for hops := 0; resp.StatusCode >= 300 && resp.StatusCode < 400; hops++ {
		require.Less(e.t, hops, 10, "too many redirects")
		resp = e.get(resp.Header.Get(fiber.HeaderLocation))
	}
	return resp, readBody(e.t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

// requireRedirectHome asserts the anonymous-user bounce to the landing page.
func requireRedirectHome(t *testing.T, resp *http.Response) {
	t.Helper()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))
}
