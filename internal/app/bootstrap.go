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

package app

import (
	"context"
	"fmt"
	"time"

	"media-inference/internal/model"
	"media-inference/internal/model/backend"
	"media-inference/internal/storage/cache"
	"media-inference/pkg/config"
	"media-inference/pkg/log"
	"media-inference/pkg/secrets"
	"media-inference/pkg/utils"
)

// Models 已启用模态的 adapter，未启用为 nil
type Models struct {
	Tone  model.TextModel
	Image model.MediaModel
	Audio model.MediaModel
	Video model.MediaModel
}

// Bootstrap 统一初始化：在服务接收流量前构造全部模型句柄
type Bootstrap struct {
	Config   *config.Config
	Logger   *log.Logger
	Secrets  secrets.Store
	Registry *model.Registry
	Models   Models
	Cache    cache.Store

	handles []backend.Handle
}

// NewBootstrap 根据配置创建 Bootstrap（Logger/Secrets/Models/Cache）
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	store, err := secrets.NewStore(secrets.Config{
		Provider: cfg.Secrets.Provider,
		Vault: secrets.VaultConfig{
			Address:    cfg.Secrets.Vault.Address,
			Token:      cfg.Secrets.Vault.Token,
			PathPrefix: cfg.Secrets.Vault.PathPrefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 secret store 失败: %w", err)
	}

	b := &Bootstrap{Config: cfg, Logger: logger, Secrets: store}
	if err := b.loadModels(ctx); err != nil {
		_ = b.Close()
		return nil, err
	}

	if cfg.Storage.Cache.Enable {
		if err := b.enableCache(ctx); err != nil {
			_ = b.Close()
			return nil, err
		}
	}
	return b, nil
}

func (b *Bootstrap) loadModels(ctx context.Context) error {
	mc := b.Config.Models
	var descs []model.Descriptor

	if mc.Tone.Enabled() {
		m, h, err := newToneModel(ctx, mc.Tone, b.Secrets)
		if err != nil {
			return fmt.Errorf("初始化 tone 模型失败: %w", err)
		}
		b.Models.Tone = m
		b.track(ctx, "tone", h)
		descs = append(descs, model.Descriptor{Name: config.ModalityTone, Description: mc.Tone.Description})
	}
	if mc.Image.Enabled() {
		m, h, err := newImageModel(ctx, mc.Image, b.Secrets)
		if err != nil {
			return fmt.Errorf("初始化 image 模型失败: %w", err)
		}
		b.Models.Image = m
		b.track(ctx, "image", h)
		descs = append(descs, model.Descriptor{Name: config.ModalityImage, Description: mc.Image.Description})
	}
	if mc.Audio.Enabled() {
		m, h, err := newAudioModel(ctx, mc.Audio, b.Secrets)
		if err != nil {
			return fmt.Errorf("初始化 audio 模型失败: %w", err)
		}
		b.Models.Audio = m
		b.track(ctx, "audio", h)
		descs = append(descs, model.Descriptor{Name: config.ModalityAudio, Description: mc.Audio.Description})
	}
	if mc.Video.Enabled() {
		m, h, err := newVideoModel(ctx, mc.Video, b.Secrets, b.Logger)
		if err != nil {
			return fmt.Errorf("初始化 video 模型失败: %w", err)
		}
		b.Models.Video = m
		b.track(ctx, "video", h)
		descs = append(descs, model.Descriptor{Name: config.ModalityVideo, Description: mc.Video.Description})
	}

	b.Registry = model.NewRegistry(descs...)
	return nil
}

// track 记录句柄以便关闭；支持探活的后端在启动时检查一次，失败只告警
func (b *Bootstrap) track(ctx context.Context, modality string, h backend.Handle) {
	b.handles = append(b.handles, h)
	b.Logger.Info("模型句柄已创建", "modality", modality, "provider", h.Provider())

	checker, ok := h.(backend.Checker)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := checker.Ready(ctx); err != nil {
		b.Logger.Warn("模型后端未就绪", "modality", modality, "provider", h.Provider(), "error", err)
	}
}

func (b *Bootstrap) enableCache(ctx context.Context) error {
	cc := b.Config.Storage.Cache
	store, err := cache.NewCache(ctx, cc)
	if err != nil {
		return fmt.Errorf("初始化推理缓存失败: %w", err)
	}
	b.Cache = store
	results := cache.NewResults(store, utils.ParseDuration(cc.TTL, 10*time.Minute))

	if b.Models.Tone != nil {
		b.Models.Tone = results.WrapText(config.ModalityTone, b.Models.Tone)
	}
	if b.Models.Image != nil {
		b.Models.Image = results.WrapMedia(config.ModalityImage, b.Models.Image)
	}
	if b.Models.Audio != nil {
		b.Models.Audio = results.WrapMedia(config.ModalityAudio, b.Models.Audio)
	}
	if b.Models.Video != nil {
		b.Models.Video = results.WrapMedia(config.ModalityVideo, b.Models.Video)
	}
	b.Logger.Info("推理结果缓存已启用", "type", cc.Type, "ttl", cc.TTL)
	return nil
}

// Close 释放模型句柄与缓存连接
func (b *Bootstrap) Close() error {
	var firstErr error
	for _, h := range b.handles {
		if err := h.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.handles = nil
	if b.Cache != nil {
		if err := b.Cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		b.Cache = nil
	}
	return firstErr
}
