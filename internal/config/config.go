package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/sstent/garmin-token/internal/garmin"
)

var version = "0.1.0"

type Config struct {
	Email      string
	Password   string
	SSOURL     string
	ConnectURL string
	Timeout    time.Duration

	SkipCheck  bool
	CheckLimit int
	DBPath     string

	Quiet     bool
	Debug     bool
	LogFormat string
}

// LoadDotEnv loads variables from a .env file into the process
// environment. Variables already set are left alone. A missing file is not
// an error; it only reports loaded=false.
func LoadDotEnv(files ...string) (loaded bool, err error) {
	if err := godotenv.Load(files...); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to parse .env")
	}
	return true, nil
}

// Parse reads flags from args, falling back to the environment.
func Parse(args []string) (*Config, error) {
	cfg := &Config{}
	app := kingpin.New("garmin-token", "Sign in to Garmin Connect and print the session token.")
	app.Version(version)

	app.Flag("email", "Garmin Connect account email. Prompted for when empty.").
		Envar("GARMIN_EMAIL").StringVar(&cfg.Email)
	app.Flag("password", "Garmin Connect password. Prompted for without echo when empty.").
		Envar("GARMIN_PASSWORD").StringVar(&cfg.Password)
	app.Flag("sso-url", "Garmin SSO base URL.").
		Default(garmin.DefaultSSOURL).Envar("GARMIN_SSO_URL").StringVar(&cfg.SSOURL)
	app.Flag("connect-url", "Garmin Connect base URL.").
		Default(garmin.DefaultConnectURL).Envar("GARMIN_CONNECT_URL").StringVar(&cfg.ConnectURL)
	app.Flag("timeout", "Timeout for each HTTP request.").
		Default("30s").Envar("GARMIN_TIMEOUT").DurationVar(&cfg.Timeout)
	app.Flag("skip-check", "Do not fetch activities after signing in.").
		Default("false").Envar("SKIP_ACTIVITY_CHECK").BoolVar(&cfg.SkipCheck)
	app.Flag("check-limit", "Number of activities fetched by the post-login check.").
		Default("1").Envar("ACTIVITY_CHECK_LIMIT").IntVar(&cfg.CheckLimit)
	app.Flag("db-path", "Record activities fetched by the check in this SQLite database.").
		Envar("DB_PATH").StringVar(&cfg.DBPath)
	app.Flag("quiet", "Print only the token on stdout.").
		Default("false").Envar("QUIET").BoolVar(&cfg.Quiet)
	app.Flag("debug", "Enable debug logging.").
		Default("false").Envar("DEBUG").BoolVar(&cfg.Debug)
	app.Flag("log-format", "Log formatter type, text or json.").
		Default("text").Envar("LOG_FORMATTER_TYPE").EnumVar(&cfg.LogFormat, "text", "json")

	if _, err := app.Parse(args); err != nil {
		return nil, errors.Wrap(err, "invalid arguments")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return errors.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.CheckLimit < 1 {
		return errors.Errorf("check-limit must be at least 1, got %d", c.CheckLimit)
	}
	return nil
}
