package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstent/garmin-token/internal/config"
	"github.com/sstent/garmin-token/internal/garmin"
)

type fakeClient struct {
	session     *garmin.Session
	loginErr    error
	activities  []garmin.Activity
	activityErr error
	notAuthed   bool

	loginCalls    int
	activityCalls int
	gotEmail      string
	gotPassword   string
	gotLimit      int
}

func (f *fakeClient) Login(_ context.Context, email, password string) (*garmin.Session, error) {
	f.loginCalls++
	f.gotEmail, f.gotPassword = email, password
	return f.session, f.loginErr
}

func (f *fakeClient) IsAuthenticated() bool {
	return f.loginCalls > 0 && f.loginErr == nil && !f.notAuthed
}

func (f *fakeClient) GetActivities(_ context.Context, _, limit int) ([]garmin.Activity, error) {
	f.activityCalls++
	f.gotLimit = limit
	return f.activities, f.activityErr
}

type fakePrompter struct {
	email, password string
	err             error
	asked           []string
}

func (p *fakePrompter) Email() (string, error) {
	p.asked = append(p.asked, "email")
	return p.email, p.err
}

func (p *fakePrompter) Password() (string, error) {
	p.asked = append(p.asked, "password")
	return p.password, p.err
}

type fakeRecorder struct {
	saved []garmin.Activity
	known map[int64]bool
	err   error
}

func (r *fakeRecorder) ActivityExists(activityID int64) (bool, error) {
	return r.known[activityID], nil
}

func (r *fakeRecorder) SaveActivities(activities []garmin.Activity) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.saved = append(r.saved, activities...)
	return len(activities), nil
}

type harness struct {
	app    *App
	client *fakeClient
	prompt *fakePrompter
	out    *bytes.Buffer
	errOut *bytes.Buffer
	logs   *bytes.Buffer
}

func newHarness(cfg *config.Config, client *fakeClient, prompt *fakePrompter) *harness {
	if cfg.CheckLimit == 0 {
		cfg.CheckLimit = 1
	}
	h := &harness{
		client: client,
		prompt: prompt,
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
		logs:   &bytes.Buffer{},
	}
	log := logrus.New()
	log.SetOutput(h.logs)
	log.SetLevel(logrus.DebugLevel)
	h.app = New(cfg, client, prompt, h.out, h.errOut, log)
	return h
}

func sessionWith(data map[string]string, cookies ...*http.Cookie) *garmin.Session {
	return &garmin.Session{Data: data, Cookies: cookies}
}

func TestRunMissingCredentialsExitsBeforeLogin(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.Config
		prompt fakePrompter
	}{
		{"no email", config.Config{Password: "pw"}, fakePrompter{}},
		{"no password", config.Config{Email: "a@b.c"}, fakePrompter{}},
		{"blank email after prompt", config.Config{}, fakePrompter{email: "   ", password: "pw"}},
		{"prompt error", config.Config{}, fakePrompter{err: io.ErrUnexpectedEOF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{session: sessionWith(map[string]string{"sessionId": "x"})}
			prompt := tt.prompt
			h := newHarness(&tt.cfg, client, &prompt)

			code := h.app.Run(context.Background())

			assert.Equal(t, ExitCodeError, code)
			assert.Zero(t, client.loginCalls)
			assert.Contains(t, h.errOut.String(), "Email and password are required")
		})
	}
}

func TestRunPromptsOnlyForMissingValues(t *testing.T) {
	client := &fakeClient{session: sessionWith(map[string]string{"sessionId": "tok"})}
	prompt := &fakePrompter{email: "ignored@example.com", password: "typed-secret"}
	h := newHarness(&config.Config{Email: "cfg@example.com", SkipCheck: true}, client, prompt)

	require.Equal(t, ExitCodeOk, h.app.Run(context.Background()))
	assert.Equal(t, []string{"password"}, prompt.asked)
	assert.Equal(t, "cfg@example.com", client.gotEmail)
	assert.Equal(t, "typed-secret", client.gotPassword)
}

func TestRunLoginErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		hint string
	}{
		{"bad password", garmin.ErrInvalidCredentials, ""},
		{"mfa", errors.Wrap(garmin.ErrMFARequired, "sso sign-in"), "Two-factor authentication is enabled"},
		{"locked", garmin.ErrAccountLocked, "account is locked"},
		{"network", errors.New("dial tcp: connection refused"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{loginErr: tt.err}
			h := newHarness(&config.Config{Email: "a@b.c", Password: "pw"}, client, &fakePrompter{})

			code := h.app.Run(context.Background())

			assert.Equal(t, ExitCodeError, code)
			assert.Contains(t, h.errOut.String(), "Error connecting to Garmin: "+tt.err.Error())
			assert.Contains(t, h.errOut.String(), "Possible issues:")
			if tt.hint != "" {
				assert.Contains(t, h.errOut.String(), tt.hint)
			}
			assert.NotContains(t, h.out.String(), "Session Token")
			assert.Zero(t, client.activityCalls)
		})
	}
}

func TestRunPrintsTokenFromEachSource(t *testing.T) {
	tests := []struct {
		name    string
		session *garmin.Session
		want    string
		warned  bool
	}{
		{"sessionId", sessionWith(map[string]string{"sessionId": "tok-1"}), "tok-1", false},
		{"token", sessionWith(map[string]string{"token": "tok-2"}), "tok-2", false},
		{"SESSIONID", sessionWith(map[string]string{"SESSIONID": "tok-3"}), "tok-3", false},
		{"cookie", sessionWith(map[string]string{"ticket": "ST-1"}, &http.Cookie{Name: "SESSIONID", Value: "tok-4"}), "tok-4", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{session: tt.session}
			h := newHarness(&config.Config{Email: "a@b.c", Password: "pw", SkipCheck: true}, client, &fakePrompter{})

			require.Equal(t, ExitCodeOk, h.app.Run(context.Background()))
			assert.Contains(t, h.out.String(), "Connection successful!")
			assert.Contains(t, h.out.String(), "Session Token:\n   "+tt.want+"\n")
			assert.Equal(t, tt.warned, strings.Contains(h.logs.String(), "using cookie jar"))
			assert.Zero(t, client.activityCalls)
		})
	}
}

func TestRunTokenNotFound(t *testing.T) {
	client := &fakeClient{session: sessionWith(map[string]string{"ticket": "ST-1"}, &http.Cookie{Name: "GARMIN-SSO", Value: "1"})}
	h := newHarness(&config.Config{Email: "a@b.c", Password: "pw"}, client, &fakePrompter{})

	assert.Equal(t, ExitCodeError, h.app.Run(context.Background()))
	assert.Contains(t, h.errOut.String(), "Could not retrieve session token")
	assert.NotContains(t, h.out.String(), "Session Token")
	assert.Zero(t, client.activityCalls)
}

func TestRunActivityCheck(t *testing.T) {
	client := &fakeClient{
		session:    sessionWith(map[string]string{"sessionId": "tok"}),
		activities: []garmin.Activity{{ActivityID: 1, ActivityName: "Run"}},
	}
	h := newHarness(&config.Config{Email: "a@b.c", Password: "pw", CheckLimit: 3}, client, &fakePrompter{})

	require.Equal(t, ExitCodeOk, h.app.Run(context.Background()))
	assert.Equal(t, 1, client.activityCalls)
	assert.Equal(t, 3, client.gotLimit)
	assert.Contains(t, h.out.String(), "Test: Found 1 recent activity/activities")
}

func TestRunActivityCheckFailureKeepsExitCodeAndToken(t *testing.T) {
	client := &fakeClient{
		session:     sessionWith(map[string]string{"sessionId": "tok-keep"}),
		activityErr: &garmin.StatusError{Method: "GET", URL: "/modern/proxy", Code: 403},
	}
	h := newHarness(&config.Config{Email: "a@b.c", Password: "pw"}, client, &fakePrompter{})

	assert.Equal(t, ExitCodeOk, h.app.Run(context.Background()))
	assert.Contains(t, h.out.String(), "   tok-keep\n")
	assert.Contains(t, h.errOut.String(), "Could not test activity retrieval")
	assert.Contains(t, h.errOut.String(), "status 403")
}

func TestRunQuiet(t *testing.T) {
	client := &fakeClient{
		session:    sessionWith(map[string]string{"sessionId": "tok-quiet"}),
		activities: []garmin.Activity{{ActivityID: 1}},
	}
	h := newHarness(&config.Config{Email: "a@b.c", Password: "pw", Quiet: true}, client, &fakePrompter{})

	require.Equal(t, ExitCodeOk, h.app.Run(context.Background()))
	assert.Equal(t, "tok-quiet\n", h.out.String())
}

func TestRunRecordsActivities(t *testing.T) {
	acts := []garmin.Activity{{ActivityID: 1}, {ActivityID: 2}}
	client := &fakeClient{session: sessionWith(map[string]string{"sessionId": "tok"}), activities: acts}
	rec := &fakeRecorder{known: map[int64]bool{2: true}}
	h := newHarness(&config.Config{Email: "a@b.c", Password: "pw"}, client, &fakePrompter{})
	h.app.WithRecorder(rec)

	require.Equal(t, ExitCodeOk, h.app.Run(context.Background()))
	assert.Equal(t, acts, rec.saved)
	assert.Contains(t, h.out.String(), "Recorded 1 new, 1 already recorded")
}

func TestRunNotAuthenticatedAfterLogin(t *testing.T) {
	client := &fakeClient{session: sessionWith(map[string]string{"sessionId": "tok"}), notAuthed: true}
	h := newHarness(&config.Config{Email: "a@b.c", Password: "pw"}, client, &fakePrompter{})

	assert.Equal(t, ExitCodeError, h.app.Run(context.Background()))
	assert.Contains(t, h.errOut.String(), "Session not authenticated")
	assert.NotContains(t, h.out.String(), "tok")
	assert.Zero(t, client.activityCalls)
}

func TestRunRecorderFailureIsOnlyLogged(t *testing.T) {
	client := &fakeClient{
		session:    sessionWith(map[string]string{"sessionId": "tok"}),
		activities: []garmin.Activity{{ActivityID: 1}},
	}
	h := newHarness(&config.Config{Email: "a@b.c", Password: "pw"}, client, &fakePrompter{})
	h.app.WithRecorder(&fakeRecorder{err: errors.New("disk full")})

	assert.Equal(t, ExitCodeOk, h.app.Run(context.Background()))
	assert.Contains(t, h.logs.String(), "failed to record activities")
}
