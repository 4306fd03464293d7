package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sstent/garmin-token/internal/config"
	"github.com/sstent/garmin-token/internal/garmin"
	"github.com/sstent/garmin-token/internal/token"
)

const (
	ExitCodeOk    = 0
	ExitCodeError = 1
)

type Authenticator interface {
	Login(ctx context.Context, email, password string) (*garmin.Session, error)
	GetActivities(ctx context.Context, start, limit int) ([]garmin.Activity, error)
	IsAuthenticated() bool
}

type CredentialPrompter interface {
	Email() (string, error)
	Password() (string, error)
}

type ActivityRecorder interface {
	SaveActivities(activities []garmin.Activity) (int, error)
	ActivityExists(activityID int64) (bool, error)
}

// App runs one sign-in and prints the resulting session token.
type App struct {
	cfg      *config.Config
	client   Authenticator
	prompter CredentialPrompter
	recorder ActivityRecorder
	out      io.Writer
	errOut   io.Writer
	log      *logrus.Logger
}

func New(cfg *config.Config, client Authenticator, prompter CredentialPrompter, out, errOut io.Writer, log *logrus.Logger) *App {
	return &App{
		cfg:      cfg,
		client:   client,
		prompter: prompter,
		out:      out,
		errOut:   errOut,
		log:      log,
	}
}

// WithRecorder saves the activities fetched by the post-login check.
func (a *App) WithRecorder(r ActivityRecorder) *App {
	a.recorder = r
	return a
}

// Run returns the process exit code.
func (a *App) Run(ctx context.Context) int {
	email, password, err := a.credentials()
	if err != nil {
		a.log.WithError(err).Debug("credential prompt failed")
		fmt.Fprintln(a.errOut, "Error: Email and password are required")
		return ExitCodeError
	}

	a.info("Connecting to Garmin Connect...")
	sess, err := a.client.Login(ctx, email, password)
	if err != nil {
		a.loginFailed(err)
		return ExitCodeError
	}
	if !a.client.IsAuthenticated() {
		fmt.Fprintln(a.errOut, "Error: Session not authenticated after successful login")
		return ExitCodeError
	}

	res, err := token.Find(sess, token.DefaultSources)
	if err != nil {
		fmt.Fprintln(a.errOut, "Error: Could not retrieve session token.")
		fmt.Fprintln(a.errOut, "   The Garmin Connect sign-in flow may have changed.")
		fmt.Fprintln(a.errOut, "   Run again with --debug to see what the session contained.")
		a.log.WithField("keys", sessionKeys(sess)).Debug("no token in session")
		return ExitCodeError
	}
	if res.FromCookie() {
		a.log.WithField("source", res.Source.Name).Warn("Could not find session token in session data, using cookie jar")
	}
	a.log.WithField("source", res.Source.Name).Debug("found session token")

	a.printToken(res.Token)

	if !a.cfg.SkipCheck {
		a.checkActivities(ctx)
	}
	return ExitCodeOk
}

func (a *App) credentials() (string, string, error) {
	email, password := strings.TrimSpace(a.cfg.Email), a.cfg.Password

	var err error
	if email == "" {
		if email, err = a.prompter.Email(); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = a.prompter.Password(); err != nil {
			return "", "", err
		}
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", "", errors.New("email and password are required")
	}
	return email, password, nil
}

func (a *App) loginFailed(err error) {
	fmt.Fprintf(a.errOut, "Error connecting to Garmin: %v\n", err)

	switch {
	case errors.Is(err, garmin.ErrMFARequired):
		fmt.Fprintln(a.errOut, "\nTwo-factor authentication is enabled on this account and cannot be completed here.")
	case errors.Is(err, garmin.ErrAccountLocked):
		fmt.Fprintln(a.errOut, "\nThe account is locked. Unlock it on the Garmin Connect website and try again.")
	}

	fmt.Fprintln(a.errOut, "\nPossible issues:")
	fmt.Fprintln(a.errOut, "  - Incorrect email or password")
	fmt.Fprintln(a.errOut, "  - Two-factor authentication enabled (may need to use app password)")
	fmt.Fprintln(a.errOut, "  - Network connectivity issues")
	fmt.Fprintln(a.errOut, "  - Garmin Connect service temporarily unavailable")
}

func (a *App) printToken(tok string) {
	if a.cfg.Quiet {
		fmt.Fprintln(a.out, tok)
		return
	}
	fmt.Fprintln(a.out, "\nConnection successful!")
	fmt.Fprintln(a.out, "\nSession Token:")
	fmt.Fprintf(a.out, "   %s\n", tok)
	fmt.Fprintln(a.out, "\nCopy the token above and paste it into the Garmin connection section in the app.")
}

// info prints progress for the user; suppressed by --quiet.
func (a *App) info(format string, args ...interface{}) {
	if a.cfg.Quiet {
		return
	}
	fmt.Fprintf(a.out, format+"\n", args...)
}

func sessionKeys(sess *garmin.Session) []string {
	if sess == nil {
		return nil
	}
	keys := make([]string, 0, len(sess.Data)+len(sess.Cookies))
	for k := range sess.Data {
		keys = append(keys, k)
	}
	for _, c := range sess.Cookies {
		keys = append(keys, "cookie:"+c.Name)
	}
	return keys
}
