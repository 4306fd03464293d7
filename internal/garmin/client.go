// internal/garmin/client.go
package garmin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSSOURL     = "https://sso.garmin.com/sso"
	DefaultConnectURL = "https://connect.garmin.com"
	DefaultTimeout    = 30 * time.Second
	DefaultUserAgent  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	SSOURL     string
	ConnectURL string
	Timeout    time.Duration
	UserAgent  string
	Logger     *logrus.Logger
}

type Client struct {
	httpClient *http.Client
	jar        http.CookieJar
	ssoURL     *url.URL
	connectURL *url.URL
	userAgent  string
	log        *logrus.Logger
	session    *Session
}

type Activity struct {
	ActivityID     int64        `json:"activityId"`
	ActivityName   string       `json:"activityName"`
	StartTimeLocal string       `json:"startTimeLocal"`
	ActivityType   ActivityType `json:"activityType"`
	Distance       float64      `json:"distance"`
	Duration       float64      `json:"duration"`
	MaxHR          float64      `json:"maxHR"`
	AvgHR          float64      `json:"averageHR"`
	Calories       float64      `json:"calories"`
	ElevationGain  float64      `json:"elevationGain"`
}

type ActivityType struct {
	TypeID  int    `json:"typeId"`
	TypeKey string `json:"typeKey"`
}

// NewClient creates a new Garmin Connect client with its own cookie jar
func NewClient(opts Options) (*Client, error) {
	if opts.SSOURL == "" {
		opts.SSOURL = DefaultSSOURL
	}
	if opts.ConnectURL == "" {
		opts.ConnectURL = DefaultConnectURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
		opts.Logger.SetOutput(io.Discard)
	}

	ssoURL, err := parseBaseURL(opts.SSOURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid SSO URL")
	}
	connectURL, err := parseBaseURL(opts.ConnectURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid Connect URL")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cookie jar")
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Jar:     jar,
		},
		jar:        jar,
		ssoURL:     ssoURL,
		connectURL: connectURL,
		userAgent:  opts.UserAgent,
		log:        opts.Logger,
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.Errorf("missing host in %q", raw)
	}
	return u, nil
}

// IsAuthenticated reports whether Login has completed on this client.
func (c *Client) IsAuthenticated() bool {
	return c.session != nil
}

// GetCookies returns the cookies currently held for the Connect site,
// including those scoped to the /modern service path.
func (c *Client) GetCookies() []*http.Cookie {
	return c.cookiesFor(c.connectPath("/modern/"), c.connectPath("/"))
}

func (c *Client) connectPath(p string) *url.URL {
	u := *c.connectURL
	u.Path = strings.TrimRight(u.Path, "/") + p
	u.RawQuery = ""
	return &u
}

// cookiesFor merges the jar's cookies for each URL. The jar sorts by path
// length, so the first cookie seen for a name is the most specific one.
func (c *Client) cookiesFor(urls ...*url.URL) []*http.Cookie {
	seen := make(map[string]bool)
	var cookies []*http.Cookie
	for _, u := range urls {
		for _, ck := range c.jar.Cookies(u) {
			if seen[ck.Name] {
				continue
			}
			seen[ck.Name] = true
			cookies = append(cookies, ck)
		}
	}
	return cookies
}

// GetActivities retrieves one page of activities, most recent first
func (c *Client) GetActivities(ctx context.Context, start, limit int) ([]Activity, error) {
	endpoint := fmt.Sprintf("%s/modern/proxy/activitylist-service/activities/search/activities?start=%d&limit=%d",
		c.connectURL.String(), start, limit)

	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("NK", "NT")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "activity request failed")
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var activities []Activity
	if err := json.NewDecoder(resp.Body).Decode(&activities); err != nil {
		return nil, errors.Wrap(err, "failed to decode activities")
	}

	c.log.WithField("count", len(activities)).Debug("fetched activities")
	return activities, nil
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build %s request", method)
	}
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{
		Method: resp.Request.Method,
		URL:    resp.Request.URL.Path,
		Code:   resp.StatusCode,
		Body:   strings.TrimSpace(string(body)),
	}
}
