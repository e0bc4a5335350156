package confresh_test

import (
	"context"
	"testing"

	"github.com/avermeer/confresh/pkg/confresh"
)

func startBenchRefresher(b *testing.B, opts ...confresh.Option) confresh.Refresher {
	b.Helper()

	src := staticSource(`{"name": "db", "port": 5432}`, "v1")
	r, err := confresh.NewFromConfig(confresh.TestConfig(), src, testParams(), opts...)
	if err != nil {
		b.Fatal(err)
	}

	outcome, err := r.Start(context.Background())
	if err != nil {
		b.Fatal(err)
	}
	if !outcome.InitiallySucceeded {
		b.Fatalf("first refresh failed: %v", outcome.Err)
	}
	return r
}

func BenchmarkRawValue(b *testing.B) {
	r := startBenchRefresher(b)
	defer r.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.RawValue()
	}
}

func BenchmarkParsedValue(b *testing.B) {
	r := startBenchRefresher(b, confresh.WithParser(confresh.JSONParser))
	defer r.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.ParsedValue()
	}
}

func BenchmarkHealth(b *testing.B) {
	r := startBenchRefresher(b)
	defer r.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Health()
	}
}
