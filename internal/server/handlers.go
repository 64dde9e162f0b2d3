package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"go.inout.gg/passport"
	"go.inout.gg/passport/internal/dbsqlc"
	"go.inout.gg/passport/internal/httperror"
	"go.inout.gg/passport/internal/metrics"
	"go.inout.gg/passport/internal/sqldb"
	"go.inout.gg/passport/passportcsrf"
	"go.inout.gg/passport/passportpassword"
	"go.inout.gg/passport/passportpasswordreset"
	"go.inout.gg/passport/passportsession"
)

// Reset steps recorded by the password reset counter.
const (
	stepLookup = "lookup"
	stepReset  = "reset"
)

type csrfResponse struct {
	Token string `json:"token"`
}

type redirectResponse struct {
	Redirect string `json:"redirect"`
}

type lookupResponse struct {
	UserInfo passportpasswordreset.UserInfo `json:"userInfo"`
	Ticket   passportpasswordreset.Ticket   `json:"ticket"`
}

type meResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.config.Logger.WarnContext(
			r.Context(),
			"Failed to write response",
			slog.Any("error", err),
		)
	}
}

// redirect sends a 303 to form submissions and a {"redirect": url} body to
// JSON clients.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, url string) {
	if passportpassword.IsJSONRequest(r) {
		s.writeJSON(w, r, http.StatusOK, redirectResponse{Redirect: url})
		return
	}

	http.Redirect(w, r, url, http.StatusSeeOther)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleCSRF(w http.ResponseWriter, r *http.Request) {
	tok, err := passportcsrf.FromRequest(r)
	if err != nil {
		s.errorHandler.ServeHTTP(w, r, err)
		return
	}

	passportcsrf.SetToken(w, tok)
	s.writeJSON(w, r, http.StatusOK, csrfResponse{Token: tok.String()})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	_, err := s.password.HandleUserRegistration(w, r)
	s.metrics.SignupsTotal.WithLabelValues(resultOf(err)).Inc()

	if err != nil {
		s.errorHandler.ServeHTTP(w, r, err)
		return
	}

	s.redirect(w, r, RedirectAfterAuth)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	_, err := s.password.HandleUserLogin(w, r)
	s.metrics.LoginsTotal.WithLabelValues(resultOf(err)).Inc()

	if err != nil {
		s.errorHandler.ServeHTTP(w, r, err)
		return
	}

	s.redirect(w, r, RedirectAfterAuth)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.logout.Logout(w, r); err != nil {
		s.errorHandler.ServeHTTP(w, r, err)
		return
	}

	s.redirect(w, r, RedirectAfterLogout)
}

func (s *Server) handleResetLookup(w http.ResponseWriter, r *http.Request) {
	info, ticket, err := s.reset.HandleUserLookup(r)
	s.metrics.PasswordResetsTotal.WithLabelValues(stepLookup, resultOf(err)).Inc()

	if err != nil {
		s.errorHandler.ServeHTTP(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, lookupResponse{UserInfo: info, Ticket: ticket})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	err := s.reset.HandlePasswordReset(r)
	s.metrics.PasswordResetsTotal.WithLabelValues(stepReset, resultOf(err)).Inc()

	if err != nil {
		s.errorHandler.ServeHTTP(w, r, err)
		return
	}

	s.redirect(w, r, RedirectAfterAuth)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, err := passportsession.FromRequest(r)
	if err != nil {
		s.errorHandler.ServeHTTP(w, r, httperror.FromError(err, http.StatusUnauthorized))
		return
	}

	user, err := dbsqlc.New().FindUserByID(r.Context(), s.db, sess.UserID)
	if err != nil {
		if sqldb.IsNotFoundError(err) {
			s.errorHandler.ServeHTTP(w, r, httperror.FromError(passport.ErrUserNotFound, http.StatusUnauthorized))
			return
		}

		s.errorHandler.ServeHTTP(w, r, httperror.FromError(err, http.StatusInternalServerError))

		return
	}

	s.writeJSON(w, r, http.StatusOK, meResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !passportsession.IsAuthenticated(r.Context()) {
			s.errorHandler.ServeHTTP(
				w,
				r,
				httperror.FromError(passport.ErrUnauthenticatedUser, http.StatusUnauthorized),
			)

			return
		}

		next.ServeHTTP(w, r)
	})
}

// instrument records the latency of every request.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		elapsed := time.Since(start)
		s.metrics.RequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(status)).
			Observe(elapsed.Seconds())

		s.config.Logger.DebugContext(
			r.Context(),
			"Handled request",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("elapsed", elapsed),
		)
	})
}

// resultOf classifies the outcome of a handler for the metrics.
func resultOf(err error) string {
	if err == nil {
		return metrics.ResultOK
	}

	if errors.Is(err, passportpasswordreset.ErrInvalidTicket) {
		return metrics.ResultInvalidTicket
	}

	var herr *httperror.HTTPError
	if !errors.As(err, &herr) {
		return metrics.ResultUnexpectedError
	}

	switch herr.StatusCode {
	case http.StatusBadRequest:
		return metrics.ResultInvalidInput
	case http.StatusUnauthorized:
		if herr.Type == passportpassword.ErrTypePasswordReset {
			return metrics.ResultResetRequired
		}

		return metrics.ResultInvalidLogin
	case http.StatusForbidden:
		return metrics.ResultForbidden
	case http.StatusNotFound:
		return metrics.ResultNotFound
	case http.StatusConflict:
		return metrics.ResultConflict
	default:
		return metrics.ResultUnexpectedError
	}
}
