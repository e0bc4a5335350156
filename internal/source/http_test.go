package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/avermeer/confresh/internal/config"
	"github.com/avermeer/confresh/internal/refresh"
	"github.com/avermeer/confresh/internal/types"
)

// TestNewHTTPSource tests source construction.
func TestNewHTTPSource(t *testing.T) {
	t.Run("requires a base URL", func(t *testing.T) {
		cfg := config.ForTesting()

		_, err := NewHTTPSource(cfg, nil)
		if !errors.Is(err, types.ErrContract) {
			t.Errorf("NewHTTPSource error = %v, want ErrContract", err)
		}
	})

	t.Run("strips a trailing slash from the base URL", func(t *testing.T) {
		cfg := config.ForTesting()
		cfg.Source.BaseURL = "http://example.test/"

		s, err := NewHTTPSource(cfg, nil)
		if err != nil {
			t.Fatalf("NewHTTPSource failed: %v", err)
		}
		if s.baseURL != "http://example.test" {
			t.Errorf("baseURL = %q, want trailing slash removed", s.baseURL)
		}
	})

	t.Run("generates a unique client id", func(t *testing.T) {
		cfg := config.ForTesting()
		cfg.Source.BaseURL = "http://example.test"

		first, err := NewHTTPSource(cfg, nil)
		if err != nil {
			t.Fatalf("NewHTTPSource failed: %v", err)
		}
		second, err := NewHTTPSource(cfg, nil)
		if err != nil {
			t.Fatalf("NewHTTPSource failed: %v", err)
		}

		if _, err := uuid.Parse(first.ClientID()); err != nil {
			t.Errorf("ClientID %q is not a UUID: %v", first.ClientID(), err)
		}
		if first.ClientID() == second.ClientID() {
			t.Error("two sources share a client id")
		}
	})
}

// TestStartSession tests the session handshake.
func TestStartSession(t *testing.T) {
	t.Run("exchanges parameters for a token", func(t *testing.T) {
		var got sessionRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			if r.URL.Path != "/sessions" {
				t.Errorf("path = %s, want /sessions", r.URL.Path)
			}
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("decode request: %v", err)
			}
			writeJSON(t, w, sessionResponse{InitialToken: "tok-abc"})
		}))
		defer server.Close()

		s := newTestSource(t, server.URL, nil)

		params := types.SessionParams{
			Application:         "checkout",
			Environment:         "production",
			Profile:             "payments",
			RequiredMinInterval: 30 * time.Second,
		}
		token, err := s.StartSession(context.Background(), params)
		if err != nil {
			t.Fatalf("StartSession failed: %v", err)
		}
		if token != "tok-abc" {
			t.Errorf("token = %q, want %q", token, "tok-abc")
		}
		if got.Application != "checkout" || got.Environment != "production" || got.Profile != "payments" {
			t.Errorf("request = %+v, want session parameters carried", got)
		}
		if got.RequiredMinIntervalSeconds != 30 {
			t.Errorf("RequiredMinIntervalSeconds = %d, want 30", got.RequiredMinIntervalSeconds)
		}
		if got.ClientID != s.ClientID() {
			t.Errorf("ClientID = %q, want %q", got.ClientID, s.ClientID())
		}
	})

	t.Run("sends basic auth when configured", func(t *testing.T) {
		var user, pass string
		var ok bool
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok = r.BasicAuth()
			writeJSON(t, w, sessionResponse{InitialToken: "tok"})
		}))
		defer server.Close()

		s := newTestSource(t, server.URL, func(cfg *config.Config) {
			cfg.Source.Username = "svc-user"
			cfg.Source.Password = config.NewSecretString("svc-pass")
		})

		if _, err := s.StartSession(context.Background(), types.SessionParams{Profile: "p"}); err != nil {
			t.Fatalf("StartSession failed: %v", err)
		}
		if !ok {
			t.Fatal("no basic auth header sent")
		}
		if user != "svc-user" || pass != "svc-pass" {
			t.Errorf("basic auth = %q/%q, want svc-user/svc-pass", user, pass)
		}
	})

	t.Run("passes an empty token through", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, sessionResponse{})
		}))
		defer server.Close()

		s := newTestSource(t, server.URL, nil)

		token, err := s.StartSession(context.Background(), types.SessionParams{Profile: "p"})
		if err != nil {
			t.Fatalf("StartSession failed: %v", err)
		}
		if token != "" {
			t.Errorf("token = %q, want empty", token)
		}
	})

	t.Run("terminal status fails without retry", func(t *testing.T) {
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			http.Error(w, "bad request", http.StatusBadRequest)
		}))
		defer server.Close()

		s := newTestSource(t, server.URL, withFastRetry)

		_, err := s.StartSession(context.Background(), types.SessionParams{Profile: "p"})
		if err == nil {
			t.Fatal("StartSession succeeded against a 400 response")
		}
		if !strings.Contains(err.Error(), "400") {
			t.Errorf("error %q does not name the status", err)
		}
		if requests.Load() != 1 {
			t.Errorf("requests = %d, want 1 (no retry on 4xx)", requests.Load())
		}
	})

	t.Run("retries server errors until success", func(t *testing.T) {
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requests.Add(1) < 3 {
				http.Error(w, "overloaded", http.StatusInternalServerError)
				return
			}
			writeJSON(t, w, sessionResponse{InitialToken: "tok-after-retry"})
		}))
		defer server.Close()

		s := newTestSource(t, server.URL, withFastRetry)

		token, err := s.StartSession(context.Background(), types.SessionParams{Profile: "p"})
		if err != nil {
			t.Fatalf("StartSession failed: %v", err)
		}
		if token != "tok-after-retry" {
			t.Errorf("token = %q, want %q", token, "tok-after-retry")
		}
		if requests.Load() != 3 {
			t.Errorf("requests = %d, want 3", requests.Load())
		}
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		s := newTestSource(t, server.URL, withFastRetry)

		_, err := s.StartSession(context.Background(), types.SessionParams{Profile: "p"})
		if err == nil {
			t.Fatal("StartSession succeeded against a failing service")
		}
		if requests.Load() != 3 {
			t.Errorf("requests = %d, want max attempts", requests.Load())
		}
	})
}

// TestFetchLatest tests configuration polling.
func TestFetchLatest(t *testing.T) {
	t.Run("returns payload and protocol headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("method = %s, want GET", r.Method)
			}
			if r.URL.Path != "/configuration" {
				t.Errorf("path = %s, want /configuration", r.URL.Path)
			}
			w.Header().Set(headerNextToken, "tok-2")
			w.Header().Set(headerVersionLabel, "v5")
			w.Header().Set(headerPollInterval, "45")
			_, _ = w.Write([]byte("payload data"))
		}))
		defer server.Close()

		s := newTestSource(t, server.URL, nil)

		result, err := s.FetchLatest(context.Background(), "tok-1")
		if err != nil {
			t.Fatalf("FetchLatest failed: %v", err)
		}
		if string(result.Payload) != "payload data" {
			t.Errorf("Payload = %q, want %q", result.Payload, "payload data")
		}
		if result.NextToken != "tok-2" {
			t.Errorf("NextToken = %q, want %q", result.NextToken, "tok-2")
		}
		if result.Version != "v5" {
			t.Errorf("Version = %q, want %q", result.Version, "v5")
		}
		if result.SuggestedInterval != 45*time.Second {
			t.Errorf("SuggestedInterval = %v, want 45s", result.SuggestedInterval)
		}
	})

	t.Run("reports unchanged with nil payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(headerNextToken, "tok-2")
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		s := newTestSource(t, server.URL, nil)

		result, err := s.FetchLatest(context.Background(), "tok-1")
		if err != nil {
			t.Fatalf("FetchLatest failed: %v", err)
		}
		if result.Payload != nil {
			t.Errorf("Payload = %q, want nil", result.Payload)
		}
		if result.NextToken != "tok-2" {
			t.Errorf("NextToken = %q, want carried on 204", result.NextToken)
		}
	})

	t.Run("sends the session token", func(t *testing.T) {
		var gotToken string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotToken = r.Header.Get(headerToken)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		s := newTestSource(t, server.URL, nil)

		if _, err := s.FetchLatest(context.Background(), "tok-77"); err != nil {
			t.Fatalf("FetchLatest failed: %v", err)
		}
		if gotToken != "tok-77" {
			t.Errorf("token header = %q, want %q", gotToken, "tok-77")
		}
	})

	t.Run("client id is stable across requests", func(t *testing.T) {
		var mu sync.Mutex
		var ids []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			ids = append(ids, r.Header.Get(headerClientID))
			mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		s := newTestSource(t, server.URL, nil)

		for i := 0; i < 3; i++ {
			if _, err := s.FetchLatest(context.Background(), "tok"); err != nil {
				t.Fatalf("FetchLatest failed: %v", err)
			}
		}

		mu.Lock()
		defer mu.Unlock()
		for i, id := range ids {
			if id == "" {
				t.Errorf("request %d sent no client id", i)
			}
			if id != ids[0] {
				t.Errorf("request %d client id = %q, want %q", i, id, ids[0])
			}
		}
	})

	t.Run("retries rate limiting", func(t *testing.T) {
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requests.Add(1) == 1 {
				http.Error(w, "slow down", http.StatusTooManyRequests)
				return
			}
			w.Header().Set(headerVersionLabel, "v1")
			_, _ = w.Write([]byte("cfg"))
		}))
		defer server.Close()

		s := newTestSource(t, server.URL, withFastRetry)

		result, err := s.FetchLatest(context.Background(), "tok")
		if err != nil {
			t.Fatalf("FetchLatest failed: %v", err)
		}
		if string(result.Payload) != "cfg" {
			t.Errorf("Payload = %q, want %q", result.Payload, "cfg")
		}
		if requests.Load() != 2 {
			t.Errorf("requests = %d, want 2", requests.Load())
		}
	})

	t.Run("ignores malformed interval header", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(headerPollInterval, "soon")
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		s := newTestSource(t, server.URL, nil)

		result, err := s.FetchLatest(context.Background(), "tok")
		if err != nil {
			t.Fatalf("FetchLatest failed: %v", err)
		}
		if result.SuggestedInterval != 0 {
			t.Errorf("SuggestedInterval = %v, want 0", result.SuggestedInterval)
		}
	})
}

// TestHTTPSourceWithRefresher runs a refresher against a fake configuration
// service end to end.
func TestHTTPSourceWithRefresher(t *testing.T) {
	svc := newFakeService("initial config", "v1")
	server := httptest.NewServer(svc)
	defer server.Close()

	cfg := config.ForTesting()
	cfg.Source.BaseURL = server.URL

	s, err := NewHTTPSource(cfg, nil)
	if err != nil {
		t.Fatalf("NewHTTPSource failed: %v", err)
	}

	params := types.SessionParams{Application: "app", Environment: "env", Profile: "e2e"}
	r, err := refresh.New(cfg, s, params, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = r.Close() }()

	outcome, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !outcome.InitiallySucceeded {
		t.Fatalf("first cycle failed: %v", outcome.Err)
	}

	entry, err := r.RawValue()
	if err != nil {
		t.Fatalf("RawValue failed: %v", err)
	}
	if entry.Value != "initial config" {
		t.Errorf("Value = %q, want %q", entry.Value, "initial config")
	}
	if entry.Version != "v1" {
		t.Errorf("Version = %q, want %q", entry.Version, "v1")
	}

	// Publish a new version and wait for the poller to pick it up.
	svc.publish("updated config", "v2")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		entry, err = r.RawValue()
		if err == nil && entry.Value == "updated config" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if entry.Value != "updated config" {
		t.Fatalf("Value = %q, updated config never arrived", entry.Value)
	}
	if entry.Version != "v2" {
		t.Errorf("Version = %q, want %q", entry.Version, "v2")
	}

	if svc.sessionCount() != 1 {
		t.Errorf("sessions = %d, want 1", svc.sessionCount())
	}
	if !svc.sawRotatedToken() {
		t.Error("service never saw a rotated token")
	}
}

// Helper functions and mocks

// newTestSource builds an HTTPSource against the given server URL. The
// mutate hook adjusts the configuration before construction.
func newTestSource(t *testing.T, baseURL string, mutate func(*config.Config)) *HTTPSource {
	t.Helper()

	cfg := config.ForTesting()
	cfg.Source.BaseURL = baseURL
	if mutate != nil {
		mutate(cfg)
	}

	s, err := NewHTTPSource(cfg, nil)
	if err != nil {
		t.Fatalf("NewHTTPSource failed: %v", err)
	}
	return s
}

// withFastRetry enables the retry policy with short backoffs.
func withFastRetry(cfg *config.Config) {
	cfg.Retry.Enabled = true
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.InitialBackoff = 5 * time.Millisecond
	cfg.Retry.MaxBackoff = 20 * time.Millisecond
	cfg.Retry.Multiplier = 2.0
	cfg.Retry.Jitter = false
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

// fakeService implements the configuration service protocol with a mutable
// published payload and per-fetch token rotation.
type fakeService struct {
	mu       sync.Mutex
	payload  string
	version  string
	sessions int
	tokenSeq int
	rotated  bool
}

func newFakeService(payload, version string) *fakeService {
	return &fakeService{payload: payload, version: version}
}

func (f *fakeService) publish(payload, version string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payload = payload
	f.version = version
}

func (f *fakeService) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions
}

func (f *fakeService) sawRotatedToken() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rotated
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/sessions":
		f.sessions++
		f.tokenSeq++
		_ = json.NewEncoder(w).Encode(sessionResponse{
			InitialToken: f.tokenName(f.tokenSeq),
		})
	case "/configuration":
		current := r.Header.Get(headerToken)
		if current != f.tokenName(f.tokenSeq) {
			http.Error(w, "unknown token", http.StatusForbidden)
			return
		}
		if f.tokenSeq > 1 {
			f.rotated = true
		}
		f.tokenSeq++
		w.Header().Set(headerNextToken, f.tokenName(f.tokenSeq))
		w.Header().Set(headerVersionLabel, f.version)
		_, _ = w.Write([]byte(f.payload))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeService) tokenName(seq int) string {
	return "tok-" + strconv.Itoa(seq)
}
