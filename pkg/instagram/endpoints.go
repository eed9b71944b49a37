package instagram

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the base URL for Instagram.
	BaseURL = "https://www.instagram.com"

	// ProfileEndpoint serves user profile info including visibility.
	ProfileEndpoint = "/api/v1/users/web_profile_info/"

	// MediaEndpoint is the GraphQL endpoint for paginated timeline media.
	MediaEndpoint = "/graphql/query/"

	// LoginEndpoint accepts password logins.
	LoginEndpoint = "/api/v1/web/accounts/login/ajax/"

	// TwoFactorEndpoint completes a two-factor login.
	TwoFactorEndpoint = "/api/v1/web/accounts/login/ajax/two_factor/"

	// CurrentUserEndpoint identifies the session owner; used to check
	// that a stored session is still valid.
	CurrentUserEndpoint = "/api/v1/accounts/current_user/"

	// MediaQueryHash is the query hash for fetching timeline media.
	MediaQueryHash = "e769aa130647d2354c40ea6a439bfc08"

	// MediaPageSize is the number of posts requested per page.
	MediaPageSize = 12
)

// profileURL constructs the URL for fetching a user's profile.
func (c *Client) profileURL(username string) string {
	params := url.Values{}
	params.Set("username", username)
	return fmt.Sprintf("%s%s?%s", c.baseURL, ProfileEndpoint, params.Encode())
}

// mediaURL constructs the URL for one page of a user's timeline.
func (c *Client) mediaURL(userID, after string) string {
	params := url.Values{}
	params.Set("query_hash", MediaQueryHash)
	params.Set("variables", fmt.Sprintf(`{"id":"%s","first":%d,"after":"%s"}`, userID, MediaPageSize, after))
	return fmt.Sprintf("%s%s?%s", c.baseURL, MediaEndpoint, params.Encode())
}

// IsValidUsername checks a username against Instagram's character rules.
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}
	return true
}

// SanitizeUsername strips decorations users paste in: a leading @,
// trailing slashes and whitespace.
func SanitizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, "@")
	username = strings.TrimRight(username, "/ ")
	return username
}
