package token

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstent/garmin-token/internal/garmin"
)

func TestFindPriorityOrder(t *testing.T) {
	tests := []struct {
		name       string
		session    *garmin.Session
		want       string
		wantSource string
		fromCookie bool
	}{
		{
			name: "sessionId attribute wins over everything",
			session: &garmin.Session{
				Data:    map[string]string{"sessionId": "a", "token": "b", "SESSIONID": "c"},
				Cookies: []*http.Cookie{{Name: "SESSIONID", Value: "d"}},
			},
			want:       "a",
			wantSource: "session data sessionId",
		},
		{
			name:       "token attribute before SESSIONID attribute",
			session:    &garmin.Session{Data: map[string]string{"token": "b", "SESSIONID": "c"}},
			want:       "b",
			wantSource: "session data token",
		},
		{
			name: "SESSIONID attribute before cookies",
			session: &garmin.Session{
				Data:    map[string]string{"SESSIONID": "c"},
				Cookies: []*http.Cookie{{Name: "SESSIONID", Value: "d"}},
			},
			want:       "c",
			wantSource: "session data SESSIONID",
		},
		{
			name: "SESSIONID cookie before sessionId cookie",
			session: &garmin.Session{
				Data:    map[string]string{"ticket": "ST-1"},
				Cookies: []*http.Cookie{{Name: "sessionId", Value: "e"}, {Name: "SESSIONID", Value: "d"}},
			},
			want:       "d",
			wantSource: "cookie SESSIONID",
			fromCookie: true,
		},
		{
			name:       "sessionId cookie last",
			session:    &garmin.Session{Cookies: []*http.Cookie{{Name: "sessionId", Value: "e"}}},
			want:       "e",
			wantSource: "cookie sessionId",
			fromCookie: true,
		},
		{
			name: "empty values are skipped",
			session: &garmin.Session{
				Data:    map[string]string{"sessionId": "", "token": "tok"},
				Cookies: []*http.Cookie{{Name: "SESSIONID", Value: ""}},
			},
			want:       "tok",
			wantSource: "session data token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Find(tt.session, DefaultSources)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Token)
			assert.Equal(t, tt.wantSource, res.Source.Name)
			assert.Equal(t, tt.fromCookie, res.FromCookie())
		})
	}
}

func TestFindNotFound(t *testing.T) {
	sess := &garmin.Session{
		Data:    map[string]string{"ticket": "ST-1"},
		Cookies: []*http.Cookie{{Name: "GARMIN-SSO", Value: "1"}},
	}
	_, err := Find(sess, DefaultSources)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = Find(nil, DefaultSources)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = Find(&garmin.Session{}, DefaultSources)
	assert.True(t, errors.Is(err, ErrNotFound))
}
