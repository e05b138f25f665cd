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

package approval

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "conveyor:approval:"
	redisIndexKey  = "conveyor:approvals"
)

// RedisStore shares approvals between processes, so a decision taken by
// one server is observed by the process waiting on it
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func approvalKey(id string) string {
	return redisKeyPrefix + id
}

func (s *RedisStore) Create(ctx context.Context, a *Approval) error {
	data, err := sonic.Marshal(a)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, approvalKey(a.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("approval %s already exists", a.ID)
	}
	return s.client.SAdd(ctx, redisIndexKey, a.ID).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Approval, error) {
	data, err := s.client.Get(ctx, approvalKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var a Approval
	if err := sonic.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode approval %s: %w", id, err)
	}
	return &a, nil
}

func (s *RedisStore) Update(ctx context.Context, a *Approval, expect Status) error {
	key := approvalKey(a.ID)
	data, err := sonic.Marshal(a)
	if err != nil {
		return err
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", ErrNotFound, a.ID)
		}
		if err != nil {
			return err
		}
		var stored Approval
		if err := sonic.Unmarshal(cur, &stored); err != nil {
			return err
		}
		if stored.Status != expect {
			return fmt.Errorf("%w: %s is %s", ErrConflict, a.ID, stored.Status)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: %s", ErrConflict, a.ID)
	}
	return err
}

func (s *RedisStore) List(ctx context.Context, f Filter) ([]*Approval, error) {
	ids, err := s.client.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Approval, 0, len(ids))
	for _, id := range ids {
		a, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if f.match(a) {
			out = append(out, a)
		}
	}
	sortApprovals(out)
	return out, nil
}
