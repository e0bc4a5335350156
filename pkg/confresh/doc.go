// Package confresh provides a background configuration refresh client with
// session-based polling and graceful degradation.
//
// confresh keeps a remote configuration profile continuously refreshed in
// the background: it opens a session with the configuration service, polls
// on a self-adjusting schedule, and serves the latest payload from an
// in-process dual cache (the raw string and an optionally parsed object).
// When the service becomes unreachable it keeps serving the last known good
// values, marked stale with the cause attached.
//
// # Features
//
//   - Session Polling: Continuation-token protocol with automatic session
//     restart after a failed fetch
//   - Dual Cache: Raw string tier plus a parsed object tier with
//     independent staleness tracking
//   - Graceful Degradation: Last known good values survive outages; a Redis
//     snapshot store warms restarts with the previous payload
//   - Version History: Recently seen payloads addressable by version label
//     (bigcache)
//   - Observability: Health reports, pluggable metrics recording, DataDog
//     statsd publishing
//   - Retries: Exponential backoff with jitter around the HTTP source
//
// # Quick Start
//
// Create a refresher against the built-in HTTP source and start it:
//
//	cfg := confresh.Config()
//	cfg.Source.BaseURL = "https://config.example.com"
//
//	r, err := confresh.NewHTTP(cfg, confresh.SessionParams{
//	    Application: "checkout",
//	    Environment: "production",
//	    Profile:     "main",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	outcome, err := r.Start(ctx)
//	if err != nil {
//	    log.Fatal(err) // contract misuse, e.g. starting twice
//	}
//	if !outcome.InitiallySucceeded {
//	    log.Printf("first fetch failed, retrying in background: %v", outcome.Err)
//	}
//
// Any type with StartSession and FetchLatest works as a source; SourceFuncs
// adapts two plain functions for tests and simple wiring.
//
// # Reading Values
//
// Value reads never block and never trigger a fetch:
//
//	raw, err := r.RawValue()
//	if err == nil && raw.StaleCause != nil {
//	    log.Printf("serving stale config (age %v): %v", raw.Age(), raw.StaleCause)
//	}
//
// With a parser configured, the parsed tier serves the decoded form:
//
//	r, err := confresh.NewHTTP(cfg, params, confresh.WithParser(func(raw string) (any, error) {
//	    var s Settings
//	    err := json.Unmarshal([]byte(raw), &s)
//	    return s, err
//	}))
//
//	parsed, err := r.ParsedValue()
//	settings := parsed.Value.(Settings)
//
// For schemaless JSON, the bundled JSONParser decodes into generic maps and
// slices.
//
// A payload that fetches cleanly but fails to parse keeps the previous
// parsed value in place, stale, while the raw tier stays fresh.
//
// # Version History
//
// Recently seen payloads remain addressable by their version label:
//
//	previous, err := r.History("v41")
//
// # Options
//
// Use functional options to customize a refresher at construction:
//
//	r, err := confresh.New(src, params,
//	    confresh.WithParser(parseSettings),
//	    confresh.WithSnapshotAddress("redis:6379"),
//	)
//
// # Groups
//
// Applications tracking several profiles register them in a Group:
//
//	g := confresh.NewGroup()
//	g.Register("payments", payments)
//	g.Register("checkout", checkout)
//	outcomes, err := g.StartAll(ctx)
//	defer g.CloseAll()
//
// # Health Checks
//
// Health reporting is valid in every phase, including before Start:
//
//	report := r.Health()
//	if report.Status != confresh.HealthStatusHealthy {
//	    log.Printf("refresher %s: %s", report.Profile, report.Status)
//	}
//
// # Configuration
//
// Load configuration from a JSON file with environment overrides:
//
//	r, err := confresh.NewFromFile("config.json", src, params)
//
// Or use the default configuration:
//
//	cfg := confresh.Config()
//	// Customize cfg...
//	r, err := confresh.NewFromConfig(cfg, src, params)
//
// For testing, use the test configuration:
//
//	cfg := confresh.TestConfig()
//
// # Thread Safety
//
// All operations are thread-safe and can be used concurrently from multiple goroutines.
package confresh
