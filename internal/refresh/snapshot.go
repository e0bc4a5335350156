package refresh

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avermeer/confresh/internal/config"
	"github.com/avermeer/confresh/internal/types"
)

const (
	disconnectErrorThreshold = 5
)

// RedisSnapshotStore persists the last successful fetch per profile so a
// restart can serve last-known-good data before the first poll completes.
// Saves go through a bounded async queue so a slow or absent Redis never
// stalls a refresh cycle; loads are synchronous because they happen once,
// at startup.
type RedisSnapshotStore struct {
	client *redis.Client
	config config.SnapshotConfig
	logger *slog.Logger

	mu            sync.RWMutex
	connected     atomic.Bool
	lastError     error
	lastErrorTime time.Time
	errorCount    atomic.Int64

	writeQueue    chan snapshotWrite
	pendingWrites atomic.Int32
	droppedWrites atomic.Int64
	stopCh        chan struct{}
	wg            sync.WaitGroup

	healthCheckStopCh chan struct{}
	healthCheckWg     sync.WaitGroup
}

type snapshotWrite struct {
	key  string
	data []byte
	ttl  time.Duration
}

func NewRedisSnapshotStore(cfg config.SnapshotConfig, logger *slog.Logger) (*RedisSnapshotStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password.Value(),
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
	}

	if cfg.EnableTLS {
		opts.TLSConfig = &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify,
		}
		if cfg.TLSSkipVerify {
			logger.Warn("TLS certificate verification is disabled - this is insecure for production use")
		}
	}

	client := redis.NewClient(opts)

	s := &RedisSnapshotStore{
		client:            client,
		config:            cfg,
		logger:            logger.With("component", "snapshot-store"),
		writeQueue:        make(chan snapshotWrite, cfg.MaxPendingWrites),
		stopCh:            make(chan struct{}),
		healthCheckStopCh: make(chan struct{}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		s.logger.Warn("Redis initial connection failed", "error", err)
		s.setError(err)
		// Don't return error - the refresher runs fine without snapshots
	} else {
		s.connected.Store(true)
		s.logger.Info("Redis connected", "address", cfg.Address)
	}

	s.wg.Add(1)
	go s.asyncWriteWorker()

	if cfg.HealthCheckInterval > 0 {
		s.healthCheckWg.Add(1)
		go s.healthCheckWorker()
	}

	return s, nil
}

func (s *RedisSnapshotStore) IsAvailable() bool {
	return s.connected.Load()
}

func (s *RedisSnapshotStore) key(profile string) string {
	return s.config.KeyPrefix + profile
}

// Save queues a snapshot write and returns immediately. The write lands in
// the background, or is dropped when the store is down or the queue is full.
func (s *RedisSnapshotStore) Save(ctx context.Context, profile string, snap types.Snapshot) error {
	if !s.connected.Load() {
		return types.ErrStoreUnavailable
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	select {
	case s.writeQueue <- snapshotWrite{key: s.key(profile), data: data, ttl: s.config.TTL}:
		s.pendingWrites.Add(1)
		return nil
	default:
		s.droppedWrites.Add(1)
		s.logger.Warn("Write queue full, dropping snapshot",
			"profile", profile,
			"dropped_total", s.droppedWrites.Load(),
		)
		return types.ErrWriteQueueFull
	}
}

// Load reads the stored snapshot for a profile. A profile that was never
// saved reports ErrNoSnapshot.
func (s *RedisSnapshotStore) Load(ctx context.Context, profile string) (types.Snapshot, error) {
	if !s.connected.Load() {
		return types.Snapshot{}, types.ErrStoreUnavailable
	}

	data, err := s.client.Get(ctx, s.key(profile)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.Snapshot{}, types.ErrNoSnapshot
		}
		s.handleError(err)
		return types.Snapshot{}, fmt.Errorf("load snapshot for %q: %w", profile, err)
	}

	s.clearError()

	var snap types.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return types.Snapshot{}, fmt.Errorf("unmarshal snapshot for %q: %w", profile, err)
	}

	return snap, nil
}

func (s *RedisSnapshotStore) asyncWriteWorker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			for {
				select {
				case write := <-s.writeQueue:
					s.executeWrite(write)
				default:
					return
				}
			}
		case write := <-s.writeQueue:
			s.executeWrite(write)
		}
	}
}

func (s *RedisSnapshotStore) executeWrite(write snapshotWrite) {
	defer s.pendingWrites.Add(-1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.client.Set(ctx, write.key, write.data, write.ttl).Err(); err != nil {
		s.handleError(err)
		s.logger.Debug("Snapshot write failed", "key", write.key, "error", err)
	} else {
		s.clearError()
	}
}

func (s *RedisSnapshotStore) healthCheckWorker() {
	defer s.healthCheckWg.Done()

	ticker := time.NewTicker(s.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.healthCheckStopCh:
			return
		case <-ticker.C:
			s.performHealthCheck()
		}
	}
}

func (s *RedisSnapshotStore) performHealthCheck() {
	wasConnected := s.connected.Load()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.DialTimeout)
	defer cancel()

	err := s.client.Ping(ctx).Err()
	if err != nil {
		if wasConnected {
			s.logger.Warn("Redis health check failed", "error", err)
			s.setError(err)
		}
		return
	}

	if !wasConnected {
		s.connected.Store(true)
		s.errorCount.Store(0)
		s.logger.Info("Redis connection restored via health check")
	}
}

func (s *RedisSnapshotStore) Close() error {
	s.connected.Store(false)

	close(s.healthCheckStopCh)
	s.healthCheckWg.Wait()

	close(s.stopCh)
	s.wg.Wait()

	return s.client.Close()
}

func (s *RedisSnapshotStore) PendingWrites() int {
	return int(s.pendingWrites.Load())
}

func (s *RedisSnapshotStore) DroppedWrites() int64 {
	return s.droppedWrites.Load()
}

func (s *RedisSnapshotStore) handleError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastError = err
	s.lastErrorTime = time.Now()
	count := s.errorCount.Add(1)

	if count >= disconnectErrorThreshold {
		if s.connected.CompareAndSwap(true, false) {
			s.logger.Warn("Redis marked as disconnected after errors",
				"error_count", count,
				"last_error", err,
			)
		}
	}
}

func (s *RedisSnapshotStore) clearError() {
	if s.errorCount.Swap(0) > 0 {
		if s.connected.CompareAndSwap(false, true) {
			s.logger.Info("Redis connection restored")
		}
	}
}

func (s *RedisSnapshotStore) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err
	s.lastErrorTime = time.Now()
	s.connected.Store(false)
}

// LastError reports the most recent store error and when it happened.
func (s *RedisSnapshotStore) LastError() (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErrorTime, s.lastError
}

func (s *RedisSnapshotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ types.SnapshotStore = (*RedisSnapshotStore)(nil)
