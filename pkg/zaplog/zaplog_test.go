package zaplog_test

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/avermeer/confresh/pkg/confresh"
	"github.com/avermeer/confresh/pkg/zaplog"
)

// TestLogger tests the zap adapter.
func TestLogger(t *testing.T) {
	t.Run("forwards levels and fields", func(t *testing.T) {
		core, logs := observer.New(zap.DebugLevel)
		l := zaplog.New(zap.New(core))

		l.Debug("debug line", "k", "v")
		l.Info("info line", "count", 3)
		l.Warn("warn line")
		l.Error("error line")

		entries := logs.All()
		if len(entries) != 4 {
			t.Fatalf("expected 4 entries, got %d", len(entries))
		}

		if entries[0].Level != zap.DebugLevel || entries[0].Message != "debug line" {
			t.Errorf("unexpected first entry: %v", entries[0])
		}
		if entries[0].ContextMap()["k"] != "v" {
			t.Errorf("field not forwarded: %v", entries[0].ContextMap())
		}
		if entries[1].Level != zap.InfoLevel || entries[1].ContextMap()["count"] != int64(3) {
			t.Errorf("unexpected second entry: %v", entries[1])
		}
		if entries[2].Level != zap.WarnLevel || entries[3].Level != zap.ErrorLevel {
			t.Errorf("levels not forwarded: %v, %v", entries[2].Level, entries[3].Level)
		}
	})

	t.Run("plugs into a refresher", func(t *testing.T) {
		core, logs := observer.New(zap.DebugLevel)
		l := zaplog.New(zap.New(core))

		src := confresh.SourceFuncs{
			StartSessionFunc: func(ctx context.Context, params confresh.SessionParams) (string, error) {
				return "token-1", nil
			},
			FetchLatestFunc: func(ctx context.Context, token string) (confresh.FetchResult, error) {
				return confresh.FetchResult{Payload: []byte("zap payload"), Version: "v1"}, nil
			},
		}

		r, err := confresh.NewFromConfig(confresh.TestConfig(), src, confresh.SessionParams{
			Application: "checkout",
			Environment: "production",
			Profile:     "zap",
		}, confresh.WithLogger(l))
		if err != nil {
			t.Fatalf("NewFromConfig failed: %v", err)
		}
		defer r.Close()

		if _, err := r.Start(context.Background()); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		if logs.FilterMessage("Refresher active").Len() == 0 {
			t.Error("expected refresher logging to reach the zap core")
		}
		active := logs.FilterMessage("Refresher active").All()[0]
		if active.ContextMap()["profile"] != "zap" {
			t.Errorf("expected the profile attribute, got %v", active.ContextMap())
		}
	})
}
