package garmin

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

var ticketPattern = regexp.MustCompile(`embed\?ticket=([^"]+)"`)

// Login signs in through Garmin SSO and exchanges the service ticket at
// Connect. It makes exactly one attempt.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if err := c.embed(ctx); err != nil {
		return nil, err
	}

	csrf, err := c.signinPage(ctx)
	if err != nil {
		return nil, err
	}

	ticket, err := c.submitCredentials(ctx, email, password, csrf)
	if err != nil {
		return nil, err
	}

	session, err := c.exchangeTicket(ctx, ticket)
	if err != nil {
		return nil, err
	}

	c.session = session
	c.log.WithField("cookies", len(session.Cookies)).Debug("login complete")
	return session, nil
}

func (c *Client) ssoEndpoint(path string, query url.Values) string {
	u := *c.ssoURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) signinParams() url.Values {
	service := c.connectURL.String() + "/modern/"
	sso := c.ssoURL.String()
	return url.Values{
		"service":                         {service},
		"webhost":                         {c.connectURL.String()},
		"source":                          {c.connectURL.String() + "/signin/"},
		"redirectAfterAccountLoginUrl":    {service},
		"redirectAfterAccountCreationUrl": {service},
		"gauthHost":                       {sso},
		"locale":                          {"en_US"},
		"id":                              {"gauth-widget"},
		"clientId":                        {"GarminConnect"},
		"rememberMeShown":                 {"true"},
		"rememberMeChecked":               {"false"},
		"createAccountShown":              {"true"},
		"openCreateAccount":               {"false"},
		"displayNameShown":                {"false"},
		"consumeServiceTicket":            {"false"},
		"initialFocus":                    {"true"},
		"embedWidget":                     {"false"},
		"generateExtraServiceTicket":      {"true"},
		"generateTwoExtraServiceTickets":  {"false"},
		"generateNoServiceTicket":         {"false"},
		"connectLegalTerms":               {"true"},
		"showPassword":                    {"true"},
	}
}

// embed primes the SSO cookies.
func (c *Client) embed(ctx context.Context) error {
	target := c.ssoEndpoint("/embed", url.Values{
		"id":          {"gauth-widget"},
		"embedWidget": {"true"},
		"gauthHost":   {c.ssoURL.String()},
	})
	_, err := c.fetch(ctx, http.MethodGet, target, nil, "")
	return errors.Wrap(err, "sso embed")
}

func (c *Client) signinPage(ctx context.Context) (string, error) {
	target := c.ssoEndpoint("/signin", c.signinParams())
	body, err := c.fetch(ctx, http.MethodGet, target, nil, c.ssoEndpoint("/embed", nil))
	if err != nil {
		return "", errors.Wrap(err, "sso sign-in page")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse sign-in page")
	}
	csrf, ok := doc.Find(`input[name="_csrf"]`).Attr("value")
	if !ok || csrf == "" {
		return "", ErrNoCSRF
	}
	c.log.Debug("found CSRF token on sign-in page")
	return csrf, nil
}

func (c *Client) submitCredentials(ctx context.Context, email, password, csrf string) (string, error) {
	target := c.ssoEndpoint("/signin", c.signinParams())
	form := url.Values{
		"username": {email},
		"password": {password},
		"embed":    {"true"},
		"_csrf":    {csrf},
	}

	body, err := c.fetch(ctx, http.MethodPost, target, strings.NewReader(form.Encode()), target)
	if err != nil {
		return "", errors.Wrap(err, "sso sign-in")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse sign-in response")
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	c.log.WithField("title", title).Debug("sign-in response")

	switch {
	case title == "Success":
	case strings.Contains(title, "MFA"):
		return "", ErrMFARequired
	case strings.Contains(title, "Locked"):
		return "", ErrAccountLocked
	default:
		return "", ErrInvalidCredentials
	}

	m := ticketPattern.FindSubmatch(body)
	if m == nil {
		return "", ErrNoTicket
	}
	return string(m[1]), nil
}

func (c *Client) exchangeTicket(ctx context.Context, ticket string) (*Session, error) {
	target := c.connectURL.String() + "/modern/?" + url.Values{"ticket": {ticket}}.Encode()

	req, err := c.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "ticket exchange failed")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if err := checkStatus(resp); err != nil {
		return nil, errors.Wrap(err, "ticket exchange")
	}

	data := map[string]string{"ticket": ticket}
	for _, ck := range resp.Cookies() {
		if ck.Value != "" {
			data[ck.Name] = ck.Value
		}
	}

	return &Session{
		Data:    data,
		Cookies: c.cookiesFor(resp.Request.URL, c.connectPath("/modern/"), c.connectPath("/")),
	}, nil
}

// fetch performs a request and returns the whole body. A non-empty referer
// also sets Origin, which the SSO form post requires.
func (c *Client) fetch(ctx context.Context, method, target string, body io.Reader, referer string) ([]byte, error) {
	req, err := c.newRequest(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
		req.Header.Set("Origin", c.ssoURL.Scheme+"://"+c.ssoURL.Host)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	return data, nil
}
