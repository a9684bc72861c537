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

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/go-resty/resty/v2"
)

const (
	providerHuggingFace   = "huggingface"
	defaultHuggingFaceURL = "https://api-inference.huggingface.co"
)

// HuggingFaceClient Hugging Face Inference API 客户端（文本分类、语音识别）
type HuggingFaceClient struct {
	baseURL string
	model   string
	client  *resty.Client
}

// NewHuggingFaceClient 创建客户端；baseURL 为空时用公共 Inference API 或 HF_INFERENCE_URL
func NewHuggingFaceClient(opts Options) (*HuggingFaceClient, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("huggingface: model is required")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultHuggingFaceURL
		if envURL := os.Getenv("HF_INFERENCE_URL"); envURL != "" {
			baseURL = envURL
		}
	}
	return &HuggingFaceClient{
		baseURL: trimBase(baseURL),
		model:   opts.Model,
		client:  newRestyClient(opts),
	}, nil
}

// Provider implements Handle
func (c *HuggingFaceClient) Provider() string { return providerHuggingFace }

// Close implements Handle
func (c *HuggingFaceClient) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}

// Classify 文本分类，返回得分最高的一项
func (c *HuggingFaceClient) Classify(ctx context.Context, text string) (Prediction, error) {
	resp, err := call(ctx, providerHuggingFace, c.model, func(ctx context.Context) (*resty.Response, error) {
		return c.client.R().
			SetContext(ctx).
			SetBody(map[string]any{"inputs": text}).
			Post(c.modelURL())
	})
	if err != nil {
		return Prediction{}, err
	}

	// 单条输入时 API 可能返回 [[...]] 或 [...]
	var nested [][]Prediction
	if err := json.Unmarshal(resp.Body(), &nested); err == nil && len(nested) > 0 {
		return top(nested[0])
	}
	var flat []Prediction
	if err := json.Unmarshal(resp.Body(), &flat); err != nil {
		return Prediction{}, fmt.Errorf("%w: failed to decode classification response: %w", ErrBackendProtocol, err)
	}
	return top(flat)
}

// Transcribe 将波形编码为 16-bit PCM WAV 上传，返回 {"text": ...}
func (c *HuggingFaceClient) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	body, err := encodeWAV(samples, sampleRate)
	if err != nil {
		return "", err
	}
	resp, err := call(ctx, providerHuggingFace, c.model, func(ctx context.Context) (*resty.Response, error) {
		return c.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "audio/wav").
			SetBody(body).
			Post(c.modelURL())
	})
	if err != nil {
		return "", err
	}
	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("%w: failed to decode transcription response: %w", ErrBackendProtocol, err)
	}
	return result.Text, nil
}

func (c *HuggingFaceClient) modelURL() string {
	return c.baseURL + "/models/" + c.model
}

func top(preds []Prediction) (Prediction, error) {
	if len(preds) == 0 {
		return Prediction{}, fmt.Errorf("%w: empty classification response", ErrBackendProtocol)
	}
	best := preds[0]
	for _, p := range preds[1:] {
		if p.Score > best.Score {
			best = p
		}
	}
	return best, nil
}

// encodeWAV go-audio 编码器需要 io.WriteSeeker，借助临时文件
func encodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	f, err := os.CreateTemp("", "transcribe-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp wav: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		buf.Data[i] = int(s * 32767)
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	return os.ReadFile(f.Name())
}
