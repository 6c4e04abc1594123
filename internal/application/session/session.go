// Package session resolves and maintains the anonymous cart session carried
// in the caller's cookies.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/storefront/backend/internal/domain/checkout"
)

// Cookie names holding the cart session
const (
	CookieCartID           = "cart_id"
	CookieCartToken        = "cart_token"
	CookieCartRefreshToken = "cart_refresh_token"
)

// CookieWriter receives the cookies a session operation wants to set
type CookieWriter interface {
	SetCookie(cookie *http.Cookie)
}

// CookieWriterFunc adapts a function to CookieWriter
type CookieWriterFunc func(cookie *http.Cookie)

// SetCookie calls f(cookie)
func (f CookieWriterFunc) SetCookie(cookie *http.Cookie) {
	f(cookie)
}

// SessionContext is the cart identity of one inbound request together with
// the writer used to update it. It is built once per request by the transport.
type SessionContext struct {
	CartID           string
	CartToken        string
	CartRefreshToken string
	Writer           CookieWriter
}

// CookieReader looks up a request cookie by name
type CookieReader interface {
	Cookie(name string) (string, error)
}

// FromCookies builds a SessionContext from request cookies. Missing cookies
// leave the matching field empty.
func FromCookies(r CookieReader, w CookieWriter) SessionContext {
	read := func(name string) string {
		v, err := r.Cookie(name)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(v)
	}
	return SessionContext{
		CartID:           read(CookieCartID),
		CartToken:        read(CookieCartToken),
		CartRefreshToken: read(CookieCartRefreshToken),
		Writer:           w,
	}
}

// CartSession returns the identifiers as a domain value
func (sc SessionContext) CartSession() checkout.CartSession {
	return checkout.CartSession{
		CartID:           sc.CartID,
		CartToken:        sc.CartToken,
		CartRefreshToken: sc.CartRefreshToken,
	}
}

// CookiePolicy controls the attributes of the session cookies
type CookiePolicy struct {
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

// DefaultCookiePolicy returns the policy used when nothing is configured
func DefaultCookiePolicy() CookiePolicy {
	return CookiePolicy{
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   30 * 24 * time.Hour,
	}
}

func (p CookiePolicy) cookie(name, value string) *http.Cookie {
	path := p.Path
	if path == "" {
		path = "/"
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   p.Domain,
		MaxAge:   int(p.MaxAge / time.Second),
		Secure:   p.Secure,
		HttpOnly: true,
		SameSite: p.SameSite,
	}
}

func (p CookiePolicy) expired(name string) *http.Cookie {
	c := p.cookie(name, "")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}

// Fingerprint returns a short hash of a token, safe to log
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:4])
}

// BearerToken returns the token of an Authorization header value. The scheme
// is matched case-insensitively; any other scheme yields an empty token.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
