package http

import (
	"net/http"

	"saaspulse/internal/session"
)

// SessionCookie binds browser sessions to the in-memory data store via
// an opaque HTTP-only cookie.
type SessionCookie struct {
	name string
}

// NewSessionCookie creates a session cookie helper
func NewSessionCookie(name string) *SessionCookie {
	return &SessionCookie{name: name}
}

// Get returns the request's session ID, if any.
func (c *SessionCookie) Get(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(c.name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// Ensure returns the request's session ID, minting and setting a new
// one when the request carries none.
func (c *SessionCookie) Ensure(w http.ResponseWriter, r *http.Request) string {
	if id, ok := c.Get(r); ok {
		return id
	}

	id := session.NewSessionID()
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
