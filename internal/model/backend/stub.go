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
	"fmt"
	"hash/fnv"
	"math"
)

const providerStub = "stub"

// StubClient 确定性的本地实现，无需任何模型即可跑通全链路
type StubClient struct {
	numClasses int
}

// 前若干个 Kinetics-400 动作类别
var stubActions = []string{
	"abseiling", "air drumming", "answering questions", "applauding",
	"applying cream", "archery", "arm wrestling", "arranging flowers",
}

// NewStubClient numClasses<=0 时为 1000（ImageNet 类别数）
func NewStubClient(numClasses int) *StubClient {
	if numClasses <= 0 {
		numClasses = 1000
	}
	return &StubClient{numClasses: numClasses}
}

// Provider implements Handle
func (s *StubClient) Provider() string { return providerStub }

// Close implements Handle
func (s *StubClient) Close() error { return nil }

// Classify 文本哈希决定标签，得分落在 [0.5, 1)
func (s *StubClient) Classify(ctx context.Context, text string) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	sum := h.Sum32()
	label := "POSITIVE"
	if sum%2 == 1 {
		label = "NEGATIVE"
	}
	return Prediction{Label: label, Score: 0.5 + float64(sum%500)/1000}, nil
}

// Logits 仅在由输入决定的一个下标处取高值
func (s *StubClient) Logits(ctx context.Context, input Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if int64(len(input.Data)) != input.NumElements() {
		return nil, fmt.Errorf("%w: tensor shape %v does not match %d values", ErrBackendInference, input.Shape, len(input.Data))
	}
	logits := make([]float32, s.numClasses)
	logits[tensorBucket(input.Data, s.numClasses)] = 10
	return logits, nil
}

// ClassifyTensor 返回内置动作标签之一
func (s *StubClient) ClassifyTensor(ctx context.Context, input Tensor) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	if len(input.Data) == 0 {
		return Prediction{}, fmt.Errorf("%w: empty tensor", ErrBackendInference)
	}
	return Prediction{Label: stubActions[tensorBucket(input.Data, len(stubActions))], Score: 0.9}, nil
}

// Transcribe 返回描述音频时长的固定文本
func (s *StubClient) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if sampleRate <= 0 {
		return "", fmt.Errorf("%w: invalid sample rate %d", ErrBackendInference, sampleRate)
	}
	var energy float64
	for _, v := range samples {
		energy += float64(v) * float64(v)
	}
	if len(samples) == 0 || energy/float64(len(samples)) < 1e-8 {
		return "", nil
	}
	return fmt.Sprintf("STUB TRANSCRIPT OF %.1f SECONDS", float64(len(samples))/float64(sampleRate)), nil
}

func tensorBucket(data []float32, n int) int {
	h := fnv.New32a()
	step := len(data)/4096 + 1
	var b [4]byte
	for i := 0; i < len(data); i += step {
		bits := math.Float32bits(data[i])
		b[0], b[1], b[2], b[3] = byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24)
		_, _ = h.Write(b[:])
	}
	return int(h.Sum32() % uint32(n))
}
