package serversession

import (
	"fmt"
	"net/http"

	"go.inout.gg/passport"
	"go.inout.gg/passport/internal/dbsqlc"
	"go.inout.gg/passport/internal/httperror"
	"go.inout.gg/passport/passportsession"
)

// LogoutHandler is a handler that logs out the user and deletes the session.
type LogoutHandler struct {
	db     passport.DB
	config *Config
}

func NewLogoutHandler(db passport.DB, config *Config) *LogoutHandler {
	if config == nil {
		config = NewConfig()
	}

	return &LogoutHandler{db, config}
}

// Logout logs out the user and deletes the session.
func (h *LogoutHandler) Logout(
	w http.ResponseWriter,
	r *http.Request,
) error {
	ctx := r.Context()

	sess, err := passportsession.FromRequest(r)
	if err != nil {
		return httperror.FromError(err, http.StatusUnauthorized)
	}

	if err := dbsqlc.New().DeleteUserSessionByID(ctx, h.db, sess.ID); err != nil {
		return fmt.Errorf(
			"passport/session: failed to delete session: %w",
			err,
		)
	}

	deleteCookie(w, h.config)

	return nil
}
