// Package token picks the session token out of a Garmin Connect session.
package token

import (
	"github.com/pkg/errors"

	"github.com/sstent/garmin-token/internal/garmin"
)

var ErrNotFound = errors.New("session token not found")

// Source is one place a token may live in a session.
type Source struct {
	Name   string
	Cookie bool
	Lookup func(*garmin.Session) string
}

// DataKey looks the token up in the session attributes.
func DataKey(key string) Source {
	return Source{
		Name:   "session data " + key,
		Lookup: func(s *garmin.Session) string { return s.Get(key) },
	}
}

// CookieName looks the token up in the session cookie jar.
func CookieName(name string) Source {
	return Source{
		Name:   "cookie " + name,
		Cookie: true,
		Lookup: func(s *garmin.Session) string { return s.Cookie(name) },
	}
}

// DefaultSources is the lookup order: attributes first, then cookies.
var DefaultSources = []Source{
	DataKey("sessionId"),
	DataKey("token"),
	DataKey("SESSIONID"),
	CookieName("SESSIONID"),
	CookieName("sessionId"),
}

type Result struct {
	Token  string
	Source Source
}

// FromCookie reports whether the token was found only after every
// attribute lookup missed.
func (r Result) FromCookie() bool {
	return r.Source.Cookie
}

// Find returns the first non-empty value in sources order.
func Find(sess *garmin.Session, sources []Source) (Result, error) {
	if sess == nil {
		return Result{}, errors.Wrap(ErrNotFound, "no session")
	}
	for _, src := range sources {
		if v := src.Lookup(sess); v != "" {
			return Result{Token: v, Source: src}, nil
		}
	}
	return Result{}, ErrNotFound
}
