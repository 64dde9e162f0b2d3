package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.inout.gg/passport/internal/httperror"
	"go.inout.gg/passport/passportcsrf"
	"go.inout.gg/passport/passportpassword"
	"go.inout.gg/passport/passportsession/serversession"
)

//nolint:gochecknoglobals
var testHasher = passportpassword.NewArgon2PasswordHasher(passportpassword.Argon2Params{
	Memory:      64,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
})

var (
	sessionColumns = []string{"id", "user_id", "created_at", "expires_at"}
	loginColumns   = []string{"id", "username", "email", "password_hash"}
)

type testEnv struct {
	mock    pgxmock.PgxPoolIface
	handler http.Handler

	csrfCookie *http.Cookie
	csrfToken  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	srv, err := New(mock, NewConfig(func(c *Config) {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		c.CSRFSecret = "test-secret"
		c.PasswordHasher = testHasher
		c.Registry = prometheus.NewRegistry()
	}))
	require.NoError(t, err)

	env := &testEnv{mock: mock, handler: srv.Handler()}

	w := env.serve(httptest.NewRequest(http.MethodGet, "/csrf", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body csrfResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.NotEmpty(t, body.Token)

	for _, c := range w.Result().Cookies() {
		if c.Name == passportcsrf.DefaultCookieName {
			env.csrfCookie = c
		}
	}

	require.NotNil(t, env.csrfCookie)
	env.csrfToken = body.Token

	return env
}

func (e *testEnv) serve(r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)

	return w
}

// post sends a CSRF protected request, extra cookies are attached as is.
func (e *testEnv) post(path, contentType, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", contentType)
	r.Header.Set(passportcsrf.DefaultHeaderName, e.csrfToken)
	r.AddCookie(e.csrfCookie)

	for _, c := range cookies {
		r.AddCookie(c)
	}

	return e.serve(r)
}

func (e *testEnv) postForm(path string, values url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return e.post(path, "application/x-www-form-urlencoded", values.Encode(), cookies...)
}

func (e *testEnv) postJSON(path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return e.post(path, "application/json", body, cookies...)
}

func (e *testEnv) expectSessionIssued(userID string) {
	e.mock.ExpectQuery(`INSERT INTO user_sessions`).
		WithArgs(pgxmock.AnyArg(), userID, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(sessionColumns).
			AddRow("sid", userID, time.Now(), time.Now().Add(serversession.DefaultExpiresIn)))
}

func (e *testEnv) expectSessionFound(userID string) {
	e.mock.ExpectQuery(`FROM user_sessions`).
		WithArgs("sid").
		WillReturnRows(pgxmock.NewRows(sessionColumns).
			AddRow("sid", userID, time.Now(), time.Now().Add(serversession.DefaultExpiresIn)))
}

func uniqueViolation(constraint string) error {
	//nolint:exhaustruct
	return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraint}
}

// anyArgs matches n arguments of any value.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}

	return args
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range w.Result().Cookies() {
		if c.Name == serversession.DefaultCookieName {
			return c
		}
	}

	require.FailNow(t, "session cookie not set")

	return nil
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) httperror.Response {
	t.Helper()

	var body httperror.Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))

	return body
}

func TestSignup(t *testing.T) {
	t.Parallel()

	t.Run("json sign-up issues a session and redirects", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.mock.ExpectQuery(`INSERT INTO users`).
			WithArgs(anyArgs(7)...).
			WillReturnRows(pgxmock.NewRows([]string{"id", "username", "email"}).
				AddRow("uid", "alice", "alice@example.com"))
		env.expectSessionIssued("uid")

		w := env.postJSON("/signup", `{"username":"alice","email":"alice@example.com","password":"Secret123!"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var body redirectResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "/", body.Redirect)

		cookie := sessionCookie(t, w)
		assert.Equal(t, "sid", cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("form sign-up redirects with see other", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.mock.ExpectQuery(`INSERT INTO users`).
			WithArgs(anyArgs(7)...).
			WillReturnRows(pgxmock.NewRows([]string{"id", "username", "email"}).
				AddRow("uid", "alice", "alice@example.com"))
		env.expectSessionIssued("uid")

		w := env.postForm("/signup", url.Values{
			"username": {"alice"},
			"email":    {"alice@example.com"},
			"password": {"Secret123!"},
		})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})

	t.Run("taken username", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.mock.ExpectQuery(`INSERT INTO users`).
			WithArgs(anyArgs(7)...).
			WillReturnError(uniqueViolation("users_username_key_unique"))

		w := env.postJSON("/signup", `{"username":"ALICE","email":"bob@example.com","password":"Secret123!"}`)
		require.Equal(t, http.StatusConflict, w.Code)

		assert.Equal(t, "Username already taken", decodeError(t, w).Error)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)

		w := env.postJSON("/signup", `{"username":"al ice","email":"alice@example.com","password":"Secret123!"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)

		body := decodeError(t, w)
		assert.Contains(t, body.Fields, "username")
	})

	t.Run("missing CSRF token", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		r := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{}`))
		r.Header.Set("Content-Type", "application/json")

		w := env.serve(r)
		assert.Equal(t, http.StatusForbidden, w.Code)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	hash, err := testHasher.Hash("Secret123!")
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.mock.ExpectQuery(`FROM users`).
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows(loginColumns).AddRow("uid", "alice", "alice@example.com", hash))
		env.expectSessionIssued("uid")

		w := env.postForm("/login", url.Values{"username": {"alice"}, "password": {"Secret123!"}})
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "sid", sessionCookie(t, w).Value)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("wrong password offers reset", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.mock.ExpectQuery(`FROM users`).
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows(loginColumns).AddRow("uid", "alice", "alice@example.com", hash))

		w := env.postJSON("/login", `{"username":"alice","password":"Wrong123!"}`)
		require.Equal(t, http.StatusUnauthorized, w.Code)

		body := decodeError(t, w)
		assert.Equal(t, "Incorrect password", body.Error)
		assert.Equal(t, -1, body.ErrType)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.mock.ExpectQuery(`FROM users`).WithArgs("nobody").WillReturnError(pgx.ErrNoRows)

		w := env.postJSON("/login", `{"username":"nobody","password":"Secret123!"}`)
		require.Equal(t, http.StatusUnauthorized, w.Code)

		body := decodeError(t, w)
		assert.Equal(t, "Invalid username or password", body.Error)
		assert.Zero(t, body.ErrType)
	})

	t.Run("signed-in user is redirected away", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.expectSessionFound("uid")

		w := env.postForm("/login", url.Values{"username": {"alice"}, "password": {"Secret123!"}},
			&http.Cookie{Name: serversession.DefaultCookieName, Value: "sid"})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
		require.NoError(t, env.mock.ExpectationsWereMet())
	})
}

func TestMeAndLogout(t *testing.T) {
	t.Parallel()

	t.Run("me returns the signed-in user", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.expectSessionFound("uid")
		env.mock.ExpectQuery(`WHERE id = \$1`).
			WithArgs("uid").
			WillReturnRows(pgxmock.NewRows([]string{"id", "username", "display_name", "email"}).
				AddRow("uid", "alice", "alice", "alice@example.com"))

		r := httptest.NewRequest(http.MethodGet, "/me", nil)
		r.AddCookie(&http.Cookie{Name: serversession.DefaultCookieName, Value: "sid"})

		w := env.serve(r)
		require.Equal(t, http.StatusOK, w.Code)

		var body meResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, meResponse{ID: "uid", Username: "alice", Email: "alice@example.com"}, body)
	})

	t.Run("me requires a session", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)

		w := env.serve(httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("logout deletes the session", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.expectSessionFound("uid")
		env.mock.ExpectExec(`DELETE FROM user_sessions`).
			WithArgs("sid").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		w := env.postForm("/logout", url.Values{}, &http.Cookie{Name: serversession.DefaultCookieName, Value: "sid"})
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
		assert.Negative(t, sessionCookie(t, w).MaxAge)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})
}

func TestPasswordReset(t *testing.T) {
	t.Parallel()

	t.Run("lookup then reset", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.mock.ExpectBegin()
		env.mock.ExpectQuery(`FROM users`).
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows(loginColumns).AddRow("uid", "alice", "alice@example.com", "hash"))
		env.mock.ExpectExec(`UPDATE password_reset_tickets`).
			WithArgs("uid").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		env.mock.ExpectQuery(`INSERT INTO password_reset_tickets`).
			WithArgs(pgxmock.AnyArg(), "uid", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "token", "created_at", "expires_at"}).
				AddRow(uuid.New(), "uid", "tok", time.Now(), time.Now().Add(15*time.Minute)))
		env.mock.ExpectCommit()

		w := env.postJSON("/reset/lookup", `{"username":"alice"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var lookup lookupResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&lookup))
		assert.Equal(t, "alice", lookup.UserInfo.Username)
		assert.Equal(t, "alice@example.com", lookup.UserInfo.Email)
		require.Equal(t, "tok", lookup.Ticket.Token)

		env.mock.ExpectBegin()
		env.mock.ExpectQuery(`WHERE token = \$1`).
			WithArgs("tok").
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id"}).AddRow(uuid.New(), "uid"))
		env.mock.ExpectQuery(`UPDATE users`).
			WithArgs("uid", pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id", "username", "email"}).
				AddRow("uid", "alice", "alice@example.com"))
		env.mock.ExpectExec(`DELETE FROM user_sessions`).
			WithArgs("uid").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		env.mock.ExpectCommit()

		w = env.postForm("/reset", url.Values{"ticket": {"tok"}, "password": {"NewSecret123!"}})
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))

		for _, c := range w.Result().Cookies() {
			assert.NotEqual(t, serversession.DefaultCookieName, c.Name, "reset must not sign the user in")
		}

		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("lookup of unknown username", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.mock.ExpectBegin()
		env.mock.ExpectQuery(`FROM users`).WithArgs("nobody").WillReturnError(pgx.ErrNoRows)
		env.mock.ExpectRollback()

		w := env.postJSON("/reset/lookup", `{"username":"nobody"}`)
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "username not exist", decodeError(t, w).Error)
	})
}

func TestOperationalRoutes(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	w := env.serve(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	env.mock.ExpectQuery(`FROM users`).WithArgs("nobody").WillReturnError(pgx.ErrNoRows)
	env.postJSON("/login", `{"username":"nobody","password":"Secret123!"}`)

	w = env.serve(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `passport_logins_total{result="invalid_credentials"} 1`)
	assert.Contains(t, w.Body.String(), `passport_http_request_duration_seconds`)
}

func TestResultOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ok", resultOf(nil))
	assert.Equal(t, "conflict", resultOf(httperror.FromError(assert.AnError, http.StatusConflict)))
	assert.Equal(t, "reset_required", resultOf(
		httperror.FromError(assert.AnError, http.StatusUnauthorized).WithType(passportpassword.ErrTypePasswordReset),
	))
	assert.Equal(t, "error", resultOf(assert.AnError))
}
