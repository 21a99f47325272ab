// Package identity carries the anonymous author token in a browser cookie.
//
// The token is a bearer capability: whoever presents it owns every item created
// with it. Nothing is stored server side; the token only lives in the cookie and in
// the session_token column of the items it authored.
package identity

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	CookieName = "vc_session"
	MaxAge     = 365 * 24 * time.Hour
)

// Current returns the token presented by the request, or "".
func Current(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// Resolve returns the request's token, minting a new one when the browser has none.
func Resolve(r *http.Request) (token string, minted bool) {
	if token = Current(r); token != "" {
		return token, false
	}
	return NewToken(), true
}

func NewToken() string {
	return uuid.NewString()
}

// Issue writes token back to the browser, renewing its expiry.
func Issue(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(MaxAge / time.Second),
		Expires:  time.Now().Add(MaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
