// Package source provides Source implementations for the refresher.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avermeer/confresh/internal/config"
	"github.com/avermeer/confresh/internal/resilience"
	"github.com/avermeer/confresh/internal/types"
)

// Protocol headers.
const (
	headerToken        = "X-Configuration-Token"
	headerNextToken    = "X-Next-Token"
	headerVersionLabel = "X-Version-Label"
	headerPollInterval = "X-Poll-Interval-Seconds"
	headerClientID     = "X-Client-Id"
)

// maxErrorBody bounds how much of an error response lands in logs and
// error messages.
const maxErrorBody = 512

// HTTPSource speaks the configuration service's HTTP protocol. A session is
// opened with POST /sessions and polled with GET /configuration; the service
// rotates the continuation token and suggests the next poll interval through
// response headers.
//
// Every instance carries a stable client ID so the service can tell
// individual pollers apart. Requests run under the retry policy; the
// refresher only ever sees the final outcome of an attempt series.
type HTTPSource struct {
	client   *http.Client
	retry    resilience.RetryExecutor
	logger   *slog.Logger
	baseURL  string
	username string
	password config.SecretString
	clientID string
}

var _ types.Source = (*HTTPSource)(nil)

type sessionRequest struct {
	Application                string `json:"application"`
	Environment                string `json:"environment"`
	Profile                    string `json:"profile"`
	ClientID                   string `json:"clientId"`
	RequiredMinIntervalSeconds int64  `json:"requiredMinIntervalSeconds,omitempty"`
}

type sessionResponse struct {
	InitialToken string `json:"initialToken"`
}

// NewHTTPSource creates an HTTP source from the source and retry sections of
// the configuration.
func NewHTTPSource(cfg *config.Config, logger *slog.Logger) (*HTTPSource, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := strings.TrimRight(cfg.Source.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: http source requires a base URL", types.ErrContract)
	}

	timeout := cfg.Source.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var retry resilience.RetryExecutor
	if cfg.Retry.Enabled {
		retry = resilience.NewRetryPolicy(cfg.Retry)
	} else {
		retry = resilience.NewDisabledRetryPolicy()
	}

	s := &HTTPSource{
		client:   &http.Client{Timeout: timeout},
		retry:    retry,
		baseURL:  baseURL,
		username: cfg.Source.Username,
		password: cfg.Source.Password,
		clientID: uuid.NewString(),
	}
	s.logger = logger.With("component", "http-source", "client_id", s.clientID)

	return s, nil
}

// ClientID returns the per-instance identifier sent with every request.
func (s *HTTPSource) ClientID() string {
	return s.clientID
}

// StartSession opens a polling session and returns the initial continuation
// token. An empty token in the response passes through unchanged; the caller
// decides whether that is acceptable.
func (s *HTTPSource) StartSession(ctx context.Context, params types.SessionParams) (string, error) {
	body, err := json.Marshal(sessionRequest{
		Application:                params.Application,
		Environment:                params.Environment,
		Profile:                    params.Profile,
		ClientID:                   s.clientID,
		RequiredMinIntervalSeconds: int64(params.RequiredMinInterval / time.Second),
	})
	if err != nil {
		return "", fmt.Errorf("encode session request: %w", err)
	}

	v, err := s.retry.ExecuteWithResult(ctx, func(ctx context.Context) (any, error) {
		return s.startSessionOnce(ctx, body)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *HTTPSource) startSessionOnce(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/sessions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.setCommonHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", s.apiErrorFrom(resp)
	}

	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("decode session response: %w", err)
	}

	s.logger.Debug("Session opened", "token_present", sr.InitialToken != "")
	return sr.InitialToken, nil
}

// FetchLatest polls for the latest configuration. A 204 response means the
// configuration is unchanged and yields a nil payload; a 200 response carries
// the full payload in the body. Both rotate the token and may suggest the
// next poll interval through headers.
func (s *HTTPSource) FetchLatest(ctx context.Context, token string) (types.FetchResult, error) {
	v, err := s.retry.ExecuteWithResult(ctx, func(ctx context.Context) (any, error) {
		return s.fetchOnce(ctx, token)
	})
	if err != nil {
		return types.FetchResult{}, err
	}
	return v.(types.FetchResult), nil
}

func (s *HTTPSource) fetchOnce(ctx context.Context, token string) (types.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/configuration", nil)
	if err != nil {
		return types.FetchResult{}, fmt.Errorf("build fetch request: %w", err)
	}
	req.Header.Set(headerToken, token)
	s.setCommonHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return types.FetchResult{}, fmt.Errorf("fetch configuration: %w", err)
	}
	defer resp.Body.Close()

	result := types.FetchResult{
		NextToken:         resp.Header.Get(headerNextToken),
		Version:           resp.Header.Get(headerVersionLabel),
		SuggestedInterval: s.suggestedInterval(resp.Header),
	}

	switch resp.StatusCode {
	case http.StatusNoContent:
		return result, nil
	case http.StatusOK:
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return types.FetchResult{}, fmt.Errorf("read configuration payload: %w", err)
		}
		result.Payload = payload
		return result, nil
	default:
		return types.FetchResult{}, s.apiErrorFrom(resp)
	}
}

func (s *HTTPSource) setCommonHeaders(req *http.Request) {
	req.Header.Set(headerClientID, s.clientID)
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password.Value())
	}
}

// suggestedInterval reads the service's poll interval suggestion. A missing
// or malformed header means no suggestion.
func (s *HTTPSource) suggestedInterval(h http.Header) time.Duration {
	v := h.Get(headerPollInterval)
	if v == "" {
		return 0
	}

	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil || secs <= 0 {
		s.logger.Debug("Ignoring unusable poll interval header", "value", v)
		return 0
	}
	return time.Duration(secs) * time.Second
}

func (s *HTTPSource) apiErrorFrom(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &apiError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// apiError is a non-2xx response from the service. Server-side errors and
// rate limiting are worth retrying; other statuses are terminal for the
// attempt series.
type apiError struct {
	Body   string
	Status int
}

func (e *apiError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("source returned status %d", e.Status)
	}
	return fmt.Sprintf("source returned status %d: %s", e.Status, e.Body)
}

func (e *apiError) Retryable() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}
