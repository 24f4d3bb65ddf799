package cache

import (
	"context"
	"time"
)

// ReportCache caches serialized report payloads (dashboard stats, tax
// reports) keyed per owner. Misses and cache errors are equivalent to the
// caller: recompute from storage.
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return nil
}

func (NoopReportCache) Del(_ context.Context, _ ...string) error {
	return nil
}
