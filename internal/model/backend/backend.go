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

// Package backend 模型句柄：对黑盒推理后端（KServe/Triton v2、Hugging Face Inference API、
// 本地 bridge 子进程、stub）的客户端封装。预处理在各模态 adapter 中完成，这里只负责调用。
package backend

import (
	"context"
	"errors"
)

var (
	ErrBackendUnavailable = errors.New("inference backend unavailable")
	ErrBackendInference   = errors.New("inference backend inference failed")
	ErrBackendProtocol    = errors.New("inference backend protocol failed")
)

// Prediction 分类结果
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Tensor 行优先的 float32 张量
type Tensor struct {
	Shape []int64
	Data  []float32
}

// NumElements 按 Shape 计算元素个数
func (t Tensor) NumElements() int64 {
	if len(t.Shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Handle 所有后端的公共部分
type Handle interface {
	// Provider 后端类型，如 kserve / huggingface / bridge / stub
	Provider() string
	// Close 释放连接等资源
	Close() error
}

// TextClassifier 文本分类（tone）
type TextClassifier interface {
	Handle
	Classify(ctx context.Context, text string) (Prediction, error)
}

// TensorClassifier 返回 logits，由调用方 argmax 并查表（image）
type TensorClassifier interface {
	Handle
	Logits(ctx context.Context, input Tensor) ([]float32, error)
}

// LabeledClassifier 使用模型自带标签表直接返回标签（video）
type LabeledClassifier interface {
	Handle
	ClassifyTensor(ctx context.Context, input Tensor) (Prediction, error)
}

// SpeechRecognizer 语音转写（audio），samples 为 [-1,1] 单声道
type SpeechRecognizer interface {
	Handle
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error)
}
