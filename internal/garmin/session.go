package garmin

import "net/http"

// Session is what a successful Login leaves behind.
//
// Data holds the cookies set by the final response of the ticket exchange,
// plus the service ticket under "ticket". Cookies holds everything the jar
// collected for the Connect site, which includes cookies set on redirect
// hops that never show up in Data.
type Session struct {
	Data    map[string]string
	Cookies []*http.Cookie
}

// Cookie returns the value of the named cookie, or "" when it is absent.
func (s *Session) Cookie(name string) string {
	if s == nil {
		return ""
	}
	for _, c := range s.Cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// Get returns Data[key], tolerating a nil session.
func (s *Session) Get(key string) string {
	if s == nil || s.Data == nil {
		return ""
	}
	return s.Data[key]
}
