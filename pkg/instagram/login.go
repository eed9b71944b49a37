package instagram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	errs "igfetch/pkg/errors"
)

// LoginResult carries the session cookies established by a successful
// login. These are what gets persisted for reuse; the password never
// leaves the login call.
type LoginResult struct {
	Username  string
	SessionID string
	CSRFToken string
}

// TwoFactorChallenge identifies a pending two-factor verification.
type TwoFactorChallenge struct {
	Username   string
	Identifier string
}

// Login performs a password login. When the account has two-factor
// authentication enabled, the returned error is classified as
// two_factor_required and the challenge is returned alongside it;
// complete the login with TwoFactorLogin.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, *TwoFactorChallenge, error) {
	csrf, err := c.fetchCSRFToken(ctx)
	if err != nil {
		return nil, nil, err
	}

	form := url.Values{}
	form.Set("username", username)
	// The web login endpoint expects the password wrapped in this
	// envelope; version 0 means plaintext-over-TLS.
	form.Set("enc_password", fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), password))
	form.Set("queryParams", "{}")
	form.Set("optIntoOneTap", "false")

	var response loginResponse
	if err := c.postForm(ctx, c.baseURL+LoginEndpoint, csrf, form, &response); err != nil {
		return nil, nil, err
	}

	if response.TwoFactorRequired {
		challenge := &TwoFactorChallenge{
			Username:   username,
			Identifier: response.TwoFactorInfo.TwoFactorIdentifier,
		}
		return nil, challenge, errs.New(errs.ErrorTypeTwoFactor, "two-factor authentication required")
	}
	if !response.Authenticated {
		return nil, nil, errs.New(errs.ErrorTypeAuthExpired, "login failed: wrong username or password")
	}

	result, err := c.sessionFromCookies(username)
	if err != nil {
		return nil, nil, err
	}

	c.logger.InfoWithFields("login successful", map[string]interface{}{
		"username": username,
	})
	return result, nil, nil
}

// TwoFactorLogin completes a login that required a verification code.
func (c *Client) TwoFactorLogin(ctx context.Context, challenge *TwoFactorChallenge, code string) (*LoginResult, error) {
	csrf, err := c.fetchCSRFToken(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("username", challenge.Username)
	form.Set("identifier", challenge.Identifier)
	form.Set("verificationCode", strings.TrimSpace(code))

	var response loginResponse
	if err := c.postForm(ctx, c.baseURL+TwoFactorEndpoint, csrf, form, &response); err != nil {
		return nil, err
	}

	if !response.Authenticated {
		return nil, errs.New(errs.ErrorTypeAuthExpired, "two-factor verification failed")
	}

	result, err := c.sessionFromCookies(challenge.Username)
	if err != nil {
		return nil, err
	}

	c.logger.InfoWithFields("two-factor login successful", map[string]interface{}{
		"username": challenge.Username,
	})
	return result, nil
}

// fetchCSRFToken primes the cookie jar by loading the base page and
// returns the csrftoken cookie the login endpoints require.
func (c *Client) fetchCSRFToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return "", err
	}
	resp.Body.Close()

	if token := c.cookieValue("csrftoken"); token != "" {
		return token, nil
	}
	return "", errs.New(errs.ErrorTypeAuthExpired, "could not obtain a csrf token")
}

// postForm submits a login form and decodes the JSON response.
func (c *Client) postForm(ctx context.Context, endpoint, csrf string, form url.Values, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRFToken", csrf)

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	return decodeJSON(resp, target)
}

// sessionFromCookies extracts the session cookies the login set.
func (c *Client) sessionFromCookies(username string) (*LoginResult, error) {
	sessionID := c.cookieValue("sessionid")
	csrfToken := c.cookieValue("csrftoken")
	if sessionID == "" || csrfToken == "" {
		return nil, errs.New(errs.ErrorTypeAuthExpired, "login did not establish a session")
	}

	c.UseSession(sessionID, csrfToken)
	return &LoginResult{
		Username:  username,
		SessionID: sessionID,
		CSRFToken: csrfToken,
	}, nil
}

// cookieValue reads a cookie for the client's base URL from the jar.
func (c *Client) cookieValue(name string) string {
	u, err := url.Parse(c.baseURL)
	if err != nil || c.httpClient.Jar == nil {
		return ""
	}
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}
