package httpserver

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/hkdf"

	"github.com/yndnr/attrmesh/internal/core/domain"
)

const (
	hashKeyInfo  = "attrmesh cookie hmac"
	blockKeyInfo = "attrmesh cookie aes"
)

// CookieCodec encodes session IDs into signed and encrypted cookies.
type CookieCodec struct {
	name   string
	secure bool
	maxAge time.Duration
	sc     *securecookie.SecureCookie
}

// NewCookieCodec derives the HMAC and AES keys from secret with HKDF-SHA256.
// A zero maxAge makes the cookie a browser-session cookie.
func NewCookieCodec(secret []byte, name string, secure bool, maxAge time.Duration) (*CookieCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("cookie secret must not be empty")
	}

	hashKey, err := deriveKey(secret, hashKeyInfo, 64)
	if err != nil {
		return nil, err
	}
	blockKey, err := deriveKey(secret, blockKeyInfo, 32)
	if err != nil {
		return nil, err
	}

	sc := securecookie.New(hashKey, blockKey)
	// The session's own inactivity interval bounds its life; the cookie
	// timestamp check only rejects very old cookies.
	sc.MaxAge(int((24 * time.Hour * 30).Seconds()))

	return &CookieCodec{
		name:   name,
		secure: secure,
		maxAge: maxAge,
		sc:     sc,
	}, nil
}

func deriveKey(secret []byte, info string, size int) ([]byte, error) {
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("derive cookie key: %w", err)
	}
	return key, nil
}

// Name returns the cookie name.
func (c *CookieCodec) Name() string {
	return c.name
}

// SessionID extracts the session ID from the request cookie. It returns ""
// when the cookie is absent, tampered with or malformed.
func (c *CookieCodec) SessionID(r *http.Request) string {
	cookie, err := r.Cookie(c.name)
	if err != nil {
		return ""
	}

	var id string
	if err := c.sc.Decode(c.name, cookie.Value, &id); err != nil {
		return ""
	}
	if !domain.IsValidSessionID(id) {
		return ""
	}
	return id
}

// Cookie builds the cookie carrying id.
func (c *CookieCodec) Cookie(id string) (*http.Cookie, error) {
	value, err := c.sc.Encode(c.name, id)
	if err != nil {
		return nil, fmt.Errorf("encode session cookie: %w", err)
	}

	cookie := &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if c.maxAge > 0 {
		cookie.MaxAge = int(c.maxAge.Seconds())
	}
	return cookie, nil
}

// Expired builds a cookie that deletes the session cookie.
func (c *CookieCodec) Expired() *http.Cookie {
	return &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// GenerateSecret returns a random secret suitable for NewCookieCodec.
func GenerateSecret() []byte {
	return securecookie.GenerateRandomKey(32)
}
