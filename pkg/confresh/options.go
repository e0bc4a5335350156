package confresh

import (
	"encoding/json"

	"github.com/avermeer/confresh/internal/types"
)

// RefresherOptions holds dependency overrides collected from Options.
type RefresherOptions = types.RefresherOptions

// Option configures a refresher at construction.
type Option func(*RefresherOptions)

// JSONParser is a ready-made ParseFunc for sources that serve JSON. It
// decodes into generic maps and slices; callers with a schema should supply
// their own parser instead.
func JSONParser(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func WithLogger(logger Logger) Option {
	return func(o *RefresherOptions) {
		o.Logger = logger
	}
}

func WithMetrics(metrics MetricsRecorder) Option {
	return func(o *RefresherOptions) {
		o.Metrics = metrics
	}
}

func WithParser(parser ParseFunc) Option {
	return func(o *RefresherOptions) {
		o.Parser = parser
	}
}

func WithProfile(profile string) Option {
	return func(o *RefresherOptions) {
		o.Profile = profile
	}
}

func WithSnapshotAddress(addr string) Option {
	return func(o *RefresherOptions) {
		o.SnapshotAddress = addr
	}
}

func WithSnapshotPassword(password string) Option {
	return func(o *RefresherOptions) {
		o.SnapshotPassword = types.NewSecretString(password)
	}
}

func WithSnapshotDB(db int) Option {
	return func(o *RefresherOptions) {
		o.SnapshotDB = db
	}
}

func WithoutSnapshots() Option {
	return func(o *RefresherOptions) {
		o.DisableSnapshots = true
	}
}

func WithoutHistory() Option {
	return func(o *RefresherOptions) {
		o.DisableHistory = true
	}
}
