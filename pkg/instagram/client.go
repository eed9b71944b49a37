// Package instagram implements the platform session: authentication,
// post listing and media retrieval over Instagram's web API. The rest
// of the application only sees it through the narrow interfaces the
// consuming packages declare, so everything here can be swapped for a
// fake in tests.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	errs "igfetch/pkg/errors"
	"igfetch/pkg/logger"
	"igfetch/pkg/models"
)

// Client talks to the Instagram web API. All methods issue exactly one
// HTTP request; pacing and retries are the caller's concern.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	logger     logger.Logger
}

// NewClient creates an unauthenticated client. Call Login or UseSession
// before fetching anything beyond public profile data.
func NewClient(timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	// The jar collects csrftoken/sessionid cookies during login.
	jar, _ := cookiejar.New(nil)

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		headers: map[string]string{
			"User-Agent":       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			"Accept":           "*/*",
			"Accept-Language":  "en-US,en;q=0.9",
			"X-IG-App-ID":      "936619743392459",
			"X-Requested-With": "XMLHttpRequest",
			"Referer":          BaseURL + "/",
		},
		baseURL: BaseURL,
		logger:  log,
	}
}

// SetHeader sets a custom header on every subsequent request.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetBaseURL points the client at a different host. Used by tests.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// UseSession attaches a previously established session to the client.
func (c *Client) UseSession(sessionID, csrfToken string) {
	c.headers["Cookie"] = fmt.Sprintf("sessionid=%s; csrftoken=%s", sessionID, csrfToken)
	c.headers["X-CSRFToken"] = csrfToken
}

// doRequest performs an HTTP request with the configured headers and
// maps transport failures to the error taxonomy.
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "request failed")
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// checkResponseStatus maps HTTP status codes to the error taxonomy.
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return &errs.Error{Type: errs.ErrorTypeAuthExpired, Message: "session is no longer valid", Code: resp.StatusCode}
	case resp.StatusCode == http.StatusForbidden:
		return &errs.Error{Type: errs.ErrorTypeAccessDenied, Message: "access denied by the platform", Code: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound:
		return &errs.Error{Type: errs.ErrorTypeNotFound, Message: "resource not found", Code: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &errs.Error{Type: errs.ErrorTypeRateLimited, Message: "rate limit exceeded", Code: resp.StatusCode}
	case resp.StatusCode >= 500:
		return &errs.Error{Type: errs.ErrorTypeServerError, Message: "server error", Code: resp.StatusCode}
	case resp.StatusCode >= 400:
		return &errs.Error{Type: errs.ErrorTypeUnknown, Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode), Code: resp.StatusCode}
	default:
		return nil
	}
}

// getJSON performs a GET request and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	if err := decodeJSON(resp, target); err != nil {
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":    url,
			"status": resp.StatusCode,
			"error":  err.Error(),
		})
		return err
	}
	return nil
}

// decodeJSON reads and unmarshals a response body.
func decodeJSON(resp *http.Response, target interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read response body")
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errs.Wrap(errs.ErrorTypeUnknown, err, "failed to parse JSON")
	}
	return nil
}

// FetchProfile fetches an account's profile, including its visibility
// and whether the session follows it.
func (c *Client) FetchProfile(ctx context.Context, username string) (models.Account, error) {
	c.logger.DebugWithFields("fetching profile", map[string]interface{}{
		"username": username,
	})

	var response profileResponse
	if err := c.getJSON(ctx, c.profileURL(username), &response); err != nil {
		return models.Account{}, err
	}

	if response.RequiresToLogin {
		return models.Account{}, &errs.Error{
			Type:    errs.ErrorTypeAuthExpired,
			Message: "the platform requires authentication to view this profile",
			Code:    http.StatusUnauthorized,
		}
	}
	if response.Data.User.ID == "" {
		return models.Account{}, errs.Newf(errs.ErrorTypeNotFound, "profile %q does not exist", username)
	}

	account := response.Data.User.toAccount()
	if account.Username == "" {
		account.Username = username
	}
	return account, nil
}

// FetchPosts fetches one page of an account's timeline, newest first.
// An empty cursor requests the first page.
func (c *Client) FetchPosts(ctx context.Context, userID, after string) (models.Page, error) {
	c.logger.DebugWithFields("fetching posts page", map[string]interface{}{
		"user_id": userID,
		"after":   after,
	})

	var response profileResponse
	if err := c.getJSON(ctx, c.mediaURL(userID, after), &response); err != nil {
		return models.Page{}, err
	}

	page := response.Data.User.EdgeOwnerToTimelineMedia.toPage()
	c.logger.DebugWithFields("posts page fetched", map[string]interface{}{
		"user_id":  userID,
		"count":    len(page.Posts),
		"has_more": page.HasMore,
	})

	return page, nil
}

// FetchMedia downloads one media payload.
func (c *Client) FetchMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}
	req.Header.Set("Accept", "image/webp,video/mp4,*/*")

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read media payload")
	}

	c.logger.DebugWithFields("media downloaded", map[string]interface{}{
		"url":  mediaURL,
		"size": len(payload),
	})

	return payload, nil
}

// CurrentUser returns the username owning the attached session. A
// classified AuthExpired error means the session is stale.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	var response currentUserResponse
	if err := c.getJSON(ctx, c.baseURL+CurrentUserEndpoint, &response); err != nil {
		return "", err
	}
	if response.User.Username == "" {
		return "", errs.New(errs.ErrorTypeAuthExpired, "session does not resolve to a user")
	}
	return response.User.Username, nil
}
