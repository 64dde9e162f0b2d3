package passportsession

import (
	"net/http"
	"time"

	"go.inout.gg/passport"
)

// Session is a session that is issued when a user is authenticated.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time

	// Fresh is set when the session was issued or extended by the request.
	Fresh bool
}

// Authenticator authenticates the user.
type Authenticator interface {
	// Issue creates a new session for the given user and hands it to the
	// client.
	Issue(http.ResponseWriter, *http.Request, passport.User) (Session, error)

	// Authenticate authenticates the user.
	//
	// It returns a session if the user is authenticated, otherwise it returns
	// a passport.ErrUnauthenticatedUser error.
	Authenticate(http.ResponseWriter, *http.Request) (Session, error)
}
