package serversession

import (
	"net/http"
	"time"
)

func setCookie(w http.ResponseWriter, config *Config, value string, expiresAt time.Time) {
	//nolint:exhaustruct
	http.SetCookie(w, &http.Cookie{
		Name:     config.CookieName,
		Value:    value,
		Path:     config.CookiePath,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: config.CookieSameSite,
	})
}

func deleteCookie(w http.ResponseWriter, config *Config) {
	//nolint:exhaustruct
	http.SetCookie(w, &http.Cookie{
		Name:     config.CookieName,
		Value:    "",
		Path:     config.CookiePath,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: config.CookieSameSite,
	})
}
