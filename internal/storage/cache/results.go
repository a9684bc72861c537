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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"media-inference/internal/model"
	"media-inference/pkg/metrics"
)

// Results 推理结果缓存：以模态与输入内容哈希为键，只缓存成功结果
type Results struct {
	store Store
	ttl   time.Duration
}

// NewResults 创建结果缓存
func NewResults(store Store, ttl time.Duration) *Results {
	return &Results{store: store, ttl: ttl}
}

// WrapText 为文本模态加缓存
func (r *Results) WrapText(modality string, next model.TextModel) model.TextModel {
	return model.TextModelFunc(func(ctx context.Context, text string) model.Result {
		return r.lookup(ctx, modality, []byte(text), func() model.Result { return next.Infer(ctx, text) })
	})
}

// WrapMedia 为上传模态加缓存
func (r *Results) WrapMedia(modality string, next model.MediaModel) model.MediaModel {
	return model.MediaModelFunc(func(ctx context.Context, payload []byte) model.Result {
		return r.lookup(ctx, modality, payload, func() model.Result { return next.Infer(ctx, payload) })
	})
}

func (r *Results) lookup(ctx context.Context, modality string, input []byte, infer func() model.Result) model.Result {
	key := Key(modality, input)

	var cached json.RawMessage
	err := r.store.Get(ctx, key, &cached)
	if err == nil {
		metrics.CacheLookupsTotal.WithLabelValues(modality, "hit").Inc()
		return model.OK(cached)
	}
	if !errors.Is(err, ErrMiss) {
		slog.WarnContext(ctx, "inference cache read failed", "modality", modality, "error", err)
	}
	metrics.CacheLookupsTotal.WithLabelValues(modality, "miss").Inc()

	res := infer()
	if res.IsOK() {
		if err := r.store.Set(ctx, key, res.Value(), r.ttl); err != nil {
			slog.WarnContext(ctx, "inference cache write failed", "modality", modality, "error", err)
		}
	}
	return res
}

// Key modality:sha256(input)
func Key(modality string, input []byte) string {
	sum := sha256.Sum256(input)
	return modality + ":" + hex.EncodeToString(sum[:])
}
