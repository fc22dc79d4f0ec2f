package lib

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoToken is returned when the login response carries no usable bearer
// token under any of the keys WPMS has been observed to use.
var ErrNoToken = errors.New("login response contains no usable token")

// tokenKeys is the lookup order for the bearer token in a login response.
var tokenKeys = []string{"token", "access_token", "accessToken"}

// LoginOptions carries the two escape hatches of the login handshake: an
// explicit nonce (tests, replay of a captured exchange) and skipping the
// double-MD5 for endpoints that expect the plaintext password.
type LoginOptions struct {
	Nonce    string
	SkipHash bool
}

// Login performs the challenge-response handshake and returns the bearer
// token for the run. The login call is deliberately not retried: repeated
// failed logins can trigger an account lockout on the WPMS side.
func Login(exec *Executor, endpoint string, username string, password string, opts LoginOptions) (string, error) {
	if password == "" {
		return "", fmt.Errorf("no usable password supplied for user %s", username)
	}

	nonce := opts.Nonce
	if nonce == "" {
		nonce = Nonce(16)
	}

	credential := password
	if !opts.SkipHash {
		hashed, err := HashPassword(password, nonce)
		if err != nil {
			return "", fmt.Errorf("error hashing password: %w", err)
		}
		credential = hashed
	}

	result := exec.Execute(Request{
		Method: http.MethodPost,
		URL:    endpoint,
		Body: map[string]string{
			"username": username,
			"password": credential,
			"nonce":    nonce,
		},
		RetryCount: -1,
	})
	if !result.Success {
		return "", fmt.Errorf("login request failed: %s", result.Error)
	}

	return extractToken(result.ParsedContent)
}

// extractToken looks for the token under each known key in order. A
// response with no string token under any of them is an error: a non-string
// token is never usable by the caller, so it is surfaced here rather than
// passed along.
func extractToken(parsed interface{}) (string, error) {
	response, ok := parsed.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("%w: response body is not a JSON object", ErrNoToken)
	}

	for _, key := range tokenKeys {
		if token, ok := response[key].(string); ok && token != "" {
			return token, nil
		}
	}
	return "", ErrNoToken
}
