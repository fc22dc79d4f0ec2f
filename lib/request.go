package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/warelink/wpmsync/models"
	log "github.com/sirupsen/logrus"
)

const (
	defaultTimeoutSeconds    = 60
	defaultRetryCount        = 2
	defaultRetryDelaySeconds = 2
)

// Request describes one HTTP call to the WPMS API. Zero values for the
// timeout and retry fields fall back to the defaults above; a negative
// RetryCount disables retries entirely.
type Request struct {
	Method            string
	URL               string
	Query             map[string]interface{}
	Headers           map[string]string
	Body              interface{}
	BearerToken       string
	TimeoutSeconds    int
	RetryCount        int
	RetryDelaySeconds int
}

// Executor issues requests and classifies their outcomes. The zero value is
// usable; Client and Log exist so tests can inject their own.
type Executor struct {
	Client *http.Client
	Log    log.FieldLogger
}

func (e *Executor) client() *http.Client {
	if e.Client != nil {
		return e.Client
	}
	return http.DefaultClient
}

func (e *Executor) logger() log.FieldLogger {
	if e.Log != nil {
		return e.Log
	}
	return log.StandardLogger()
}

// Execute performs the call, retrying on connection-level failures and 5xx
// responses only. Any 4xx is terminal. The returned result is always fully
// populated for exactly one of the success/failure shapes.
func (e *Executor) Execute(req Request) models.RequestResult {
	retryCount := req.RetryCount
	if retryCount == 0 {
		retryCount = defaultRetryCount
	} else if retryCount < 0 {
		retryCount = 0
	}
	retryDelay := req.RetryDelaySeconds
	if retryDelay == 0 {
		retryDelay = defaultRetryDelaySeconds
	}

	var result models.RequestResult
	for attempt := 0; attempt <= retryCount; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(retryDelay) * time.Second)
			e.logger().WithFields(log.Fields{
				"url":     req.URL,
				"attempt": attempt + 1,
			}).Warn("retrying request")
		}

		var retryable bool
		result, retryable = e.attempt(req)
		if result.Success || !retryable {
			return result
		}
	}
	return result
}

// attempt performs a single call and reports whether a failure is retryable:
// only connection-level failures (no status at all) and 5xx responses are.
func (e *Executor) attempt(req Request) (models.RequestResult, bool) {
	timeout := req.TimeoutSeconds
	if timeout == 0 {
		timeout = defaultTimeoutSeconds
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	httpReq, err := e.buildRequest(ctx, req)
	if err != nil {
		return models.RequestResult{Error: err.Error()}, false
	}

	resp, err := e.client().Do(httpReq)
	if err != nil {
		return models.RequestResult{Error: err.Error()}, true
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.RequestResult{StatusCode: resp.StatusCode, Error: err.Error()}, true
	}

	result := models.RequestResult{
		StatusCode: resp.StatusCode,
		RawBody:    string(rawBody),
	}
	result.ParsedContent = parseBody(resp.Header.Get("Content-Type"), rawBody)

	if resp.StatusCode >= 400 {
		result.Error = fmt.Sprintf("http status %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		return result, resp.StatusCode >= 500 && resp.StatusCode < 600
	}

	result.Success = true
	return result, false
}

func (e *Executor) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	fullURL, err := appendQuery(req.URL, req.Query)
	if err != nil {
		return nil, fmt.Errorf("error building request url: %w", err)
	}

	var body io.Reader
	hasBody := req.Body != nil
	if hasBody {
		switch b := req.Body.(type) {
		case string:
			body = strings.NewReader(b)
		case []byte:
			body = strings.NewReader(string(b))
		default:
			encoded, err := json.Marshal(req.Body)
			if err != nil {
				return nil, fmt.Errorf("error encoding request body: %w", err)
			}
			body = strings.NewReader(string(encoded))
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("accept", "application/json")
	if hasBody {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.BearerToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.BearerToken)
	}

	return httpReq, nil
}

// appendQuery URL-encodes the query parameters onto uri, serializing any
// structured value to compact JSON first and preserving a query string
// already present in the URI.
func appendQuery(uri string, query map[string]interface{}) (string, error) {
	if len(query) == 0 {
		return uri, nil
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return "", err
	}

	values := parsed.Query()
	for name, value := range query {
		switch v := value.(type) {
		case string:
			values.Set(name, v)
		case nil:
			values.Set(name, "")
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return "", fmt.Errorf("error encoding parameter %s: %w", name, err)
			}
			values.Set(name, string(encoded))
		}
	}
	parsed.RawQuery = values.Encode()

	return parsed.String(), nil
}

// parseBody attempts JSON parsing only when the response declares a JSON
// content type or the trimmed body looks like JSON. Parse failures are
// swallowed; the raw body still carries the text.
func parseBody(contentType string, rawBody []byte) interface{} {
	trimmed := strings.TrimSpace(string(rawBody))
	looksJSON := strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
	if !strings.Contains(contentType, "json") && !looksJSON {
		return nil
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return nil
	}
	return parsed
}
