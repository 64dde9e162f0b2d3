package passportcsrf

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.inout.gg/foundations/must"

	"go.inout.gg/passport/internal/random"
)

var (
	ErrInvalidToken  = errors.New("passport/csrf: invalid token")
	ErrTokenMismatch = errors.New("passport/csrf: token mismatch")
)

type tokenConfig struct {
	ChecksumSecret string
	HeaderName     string
	FieldName      string
	CookieName     string
	TokenLength    int
	CookieSameSite http.SameSite
	CookieSecure   bool
}

func (c *tokenConfig) cookieName() string {
	if c.CookieSecure {
		return "__Secure-" + c.CookieName
	}

	return c.CookieName
}

// Token is a CSRF token signed with the checksum secret.
type Token struct {
	config   *tokenConfig
	value    string
	checksum string
}

func newToken(c *tokenConfig) (*Token, error) {
	val, err := random.SecureHexString(c.TokenLength)
	if err != nil {
		return nil, fmt.Errorf("passport/csrf: failed to create CSRF token: %w", err)
	}

	return &Token{
		config:   c,
		value:    val,
		checksum: computeChecksum(val, c.ChecksumSecret),
	}, nil
}

// fromRequest reads the token from the request cookie and checks its
// signature.
func fromRequest(r *http.Request, c *tokenConfig) (*Token, error) {
	cookie, err := r.Cookie(c.cookieName())
	if err != nil {
		return nil, fmt.Errorf("passport/csrf: unable to retrieve cookie: %w", err)
	}

	value, checksum, err := decodeCookieValue(cookie.Value)
	if err != nil {
		return nil, err
	}

	tok := &Token{config: c, value: value, checksum: checksum}
	if !tok.validChecksum() {
		return nil, ErrInvalidToken
	}

	return tok, nil
}

// maxFormSize caps the body read when the token is looked up in the form.
const maxFormSize = 4 << 10

// validateRequest returns the cookie token if the request echoes it in the
// header or the form field.
func validateRequest(r *http.Request, c *tokenConfig) (*Token, error) {
	tok, err := fromRequest(r, c)
	if err != nil {
		return nil, err
	}

	submitted := r.Header.Get(c.HeaderName)
	if submitted == "" {
		r.Body = http.MaxBytesReader(nil, r.Body, maxFormSize)
		submitted = r.PostFormValue(c.FieldName)
	}

	if submitted == "" && r.MultipartForm != nil {
		if vals := r.MultipartForm.Value[c.FieldName]; len(vals) > 0 {
			submitted = vals[0]
		}
	}

	if subtle.ConstantTimeCompare([]byte(tok.value), []byte(submitted)) != 1 {
		return nil, ErrTokenMismatch
	}

	return tok, nil
}

func (t *Token) validChecksum() bool {
	expected := computeChecksum(t.value, t.config.ChecksumSecret)
	return hmac.Equal([]byte(t.checksum), []byte(expected))
}

// String returns the CSRF token value.
func (t *Token) String() string {
	return t.value
}

func (t *Token) cookie() *http.Cookie {
	//nolint:exhaustruct
	return &http.Cookie{
		Name:     t.config.cookieName(),
		Value:    t.cookieValue(),
		Path:     "/",
		HttpOnly: true,
		Secure:   t.config.CookieSecure,
		SameSite: t.config.CookieSameSite,
	}
}

func (t *Token) cookieValue() string {
	return base64.URLEncoding.EncodeToString([]byte(t.value + "|" + t.checksum))
}

func decodeCookieValue(val string) (string, string, error) {
	raw, err := base64.URLEncoding.DecodeString(val)
	if err != nil {
		return "", "", ErrInvalidToken
	}

	value, checksum, ok := strings.Cut(string(raw), "|")
	if !ok || value == "" {
		return "", "", ErrInvalidToken
	}

	return value, checksum, nil
}

// computeChecksum returns the HMAC-SHA256 of val keyed with secret.
func computeChecksum(val, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	_ = must.Must(h.Write([]byte(val)))

	return hex.EncodeToString(h.Sum(nil))
}
