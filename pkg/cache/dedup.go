// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/redis/go-redis/v9"
)

const (
	dedupPrefix   = "conveyor:dedup:"
	dedupMaxBytes = 8 * 1024 * 1024
)

// Deduper remembers keys for a while. Seen reports whether key was already
// recorded within ttl and records it otherwise.
type Deduper interface {
	Seen(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// ProvideDeduper shares the redis client when one is configured so replicas
// agree on what was seen, and falls back to an in-process cache.
func ProvideDeduper(client *redis.Client) Deduper {
	if client == nil {
		return NewLocalDeduper(0)
	}
	return NewRedisDeduper(client)
}

// LocalDeduper keeps keys in a fastcache. Old entries are evicted once the
// cache is full, so a key may be forgotten before its ttl.
type LocalDeduper struct {
	mu    sync.Mutex
	cache *fastcache.Cache
	now   func() time.Time
}

func NewLocalDeduper(maxBytes int) *LocalDeduper {
	if maxBytes <= 0 {
		maxBytes = dedupMaxBytes
	}
	return &LocalDeduper{cache: fastcache.New(maxBytes), now: time.Now}
}

func (d *LocalDeduper) Seen(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	k := []byte(key)
	if v, ok := d.cache.HasGet(nil, k); ok && len(v) == 8 {
		if now.UnixNano() < int64(binary.BigEndian.Uint64(v)) {
			return true, nil
		}
	}
	deadline := make([]byte, 8)
	binary.BigEndian.PutUint64(deadline, uint64(now.Add(ttl).UnixNano()))
	d.cache.Set(k, deadline)
	return false, nil
}

// RedisDeduper records keys with SET NX
type RedisDeduper struct {
	client *redis.Client
}

func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

func (d *RedisDeduper) Seen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	created, err := d.client.SetNX(ctx, dedupPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, err
	}
	return !created, nil
}
