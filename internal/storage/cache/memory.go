// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// 内存缓存默认容量与过期清理间隔
const (
	DefaultMaxEntries    = 10000
	defaultSweepInterval = time.Minute
)

// MemoryStore 进程内缓存：读取时惰性清理过期项，写入时按间隔整体清扫，
// 容量满时随机淘汰一项
type MemoryStore struct {
	items      map[string]cacheItem
	mu         sync.Mutex
	now        func() time.Time
	maxEntries int
	lastSweep  time.Time
}

type cacheItem struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore 创建内存缓存，maxEntries <= 0 时使用 DefaultMaxEntries
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{items: make(map[string]cacheItem), now: time.Now, maxEntries: maxEntries}
}

// Set 设置缓存
func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	now := s.now()
	item := cacheItem{value: data}
	if expiration > 0 {
		item.expiresAt = now.Add(expiration)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastSweep) >= defaultSweepInterval {
		s.sweep(now)
	}
	if _, exists := s.items[key]; !exists && len(s.items) >= s.maxEntries {
		for k := range s.items {
			if len(s.items) < s.maxEntries {
				break
			}
			delete(s.items, k)
		}
	}
	s.items[key] = item
	return nil
}

// sweep 删除全部过期项，调用方持有锁
func (s *MemoryStore) sweep(now time.Time) {
	for k, item := range s.items {
		if !item.expiresAt.IsZero() && !now.Before(item.expiresAt) {
			delete(s.items, k)
		}
	}
	s.lastSweep = now
}

// Len 当前缓存项数（含尚未清理的过期项）
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Get 获取缓存
func (s *MemoryStore) Get(ctx context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	item, ok := s.items[key]
	if ok && !item.expiresAt.IsZero() && !s.now().Before(item.expiresAt) {
		delete(s.items, key)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return ErrMiss
	}
	if err := json.Unmarshal(item.value, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

// Delete 删除缓存，不存在时不报错
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Close 关闭缓存连接
func (s *MemoryStore) Close() error {
	return nil
}
