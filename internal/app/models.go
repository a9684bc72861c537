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
	"os/exec"
	"time"

	"media-inference/internal/model"
	"media-inference/internal/model/audio"
	"media-inference/internal/model/backend"
	"media-inference/internal/model/tone"
	"media-inference/internal/model/video"
	"media-inference/internal/model/vision"
	"media-inference/pkg/config"
	"media-inference/pkg/log"
	"media-inference/pkg/secrets"
	"media-inference/pkg/utils"
)

// imagenetClasses 未配置标签文件时的类别数
const imagenetClasses = 1000

// backendOptions 将配置转换为后端参数，api_key 中的 vault:/secret: 引用在此解析
func backendOptions(ctx context.Context, bc config.BackendConfig, store secrets.Store) (backend.Options, error) {
	apiKey, err := secrets.Resolve(ctx, store, bc.APIKey)
	if err != nil {
		return backend.Options{}, fmt.Errorf("解析 api_key 失败: %w", err)
	}
	return backend.Options{
		BaseURL: bc.BaseURL,
		Model:   bc.Model,
		APIKey:  apiKey,
		Timeout: utils.ParseDuration(bc.Timeout, 60*time.Second),
		Retries: bc.Retries,
		Command: bc.Command,
		Input:   bc.Input,
		Output:  bc.Output,
	}, nil
}

func newToneModel(ctx context.Context, cfg config.ToneConfig, store secrets.Store) (model.TextModel, backend.Handle, error) {
	opts, err := backendOptions(ctx, cfg.Backend, store)
	if err != nil {
		return nil, nil, err
	}
	cls, err := backend.NewTextClassifier(cfg.Backend.Provider, opts)
	if err != nil {
		return nil, nil, err
	}
	return tone.NewAdapter(cls), cls, nil
}

func newImageModel(ctx context.Context, cfg config.ImageConfig, store secrets.Store) (model.MediaModel, backend.Handle, error) {
	labels := vision.GenericLabels(imagenetClasses)
	if cfg.LabelsFile != "" {
		var err error
		if labels, err = vision.LoadLabels(cfg.LabelsFile); err != nil {
			return nil, nil, err
		}
	}
	opts, err := backendOptions(ctx, cfg.Backend, store)
	if err != nil {
		return nil, nil, err
	}
	cls, err := backend.NewTensorClassifier(cfg.Backend.Provider, opts, len(labels))
	if err != nil {
		return nil, nil, err
	}
	prep := vision.Preprocessor{ResizeTo: cfg.ResizeTo, CropSize: cfg.CropSize}
	return vision.NewAdapter(cls, prep, labels), cls, nil
}

func newAudioModel(ctx context.Context, cfg config.AudioConfig, store secrets.Store) (model.MediaModel, backend.Handle, error) {
	opts, err := backendOptions(ctx, cfg.Backend, store)
	if err != nil {
		return nil, nil, err
	}
	rec, err := backend.NewSpeechRecognizer(cfg.Backend.Provider, opts)
	if err != nil {
		return nil, nil, err
	}
	return audio.NewAdapter(rec, cfg.SampleRate), rec, nil
}

func newVideoModel(ctx context.Context, cfg config.VideoConfig, store secrets.Store, logger *log.Logger) (model.MediaModel, backend.Handle, error) {
	opts, err := backendOptions(ctx, cfg.Backend, store)
	if err != nil {
		return nil, nil, err
	}
	cls, err := backend.NewLabeledClassifier(cfg.Backend.Provider, opts)
	if err != nil {
		return nil, nil, err
	}
	for _, bin := range []string{cfg.FFmpegPath, cfg.FFprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			logger.Warn("视频解码工具不可用，/video/ 请求将返回错误", "binary", bin, "error", err)
		}
	}
	source := video.FFmpegSource{FFmpeg: cfg.FFmpegPath, FFprobe: cfg.FFprobePath}
	return video.NewAdapter(cls, source, video.Options{
		NumFrames: cfg.NumFrames,
		FrameSize: cfg.FrameSize,
		TempDir:   cfg.TempDir,
	}), cls, nil
}
