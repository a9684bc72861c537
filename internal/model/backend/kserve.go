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
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

const providerKServe = "kserve"

// KServeClient Open Inference Protocol (KServe v2 / Triton) HTTP 客户端
type KServeClient struct {
	baseURL string
	model   string
	input   string
	output  string
	client  *resty.Client
}

type v2Tensor struct {
	Name       string         `json:"name"`
	Shape      []int64        `json:"shape"`
	Datatype   string         `json:"datatype"`
	Data       any            `json:"data,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type v2InferRequest struct {
	Inputs  []v2Tensor       `json:"inputs"`
	Outputs []v2OutputSelect `json:"outputs,omitempty"`
}

type v2OutputSelect struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type v2Output struct {
	Name     string          `json:"name"`
	Shape    []int64         `json:"shape"`
	Datatype string          `json:"datatype"`
	Data     json.RawMessage `json:"data"`
}

type v2InferResponse struct {
	ModelName string     `json:"model_name"`
	Outputs   []v2Output `json:"outputs"`
}

// NewKServeClient 创建 KServe v2 客户端
func NewKServeClient(opts Options) (*KServeClient, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("kserve: base_url is required")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("kserve: model is required")
	}
	input := opts.Input
	if input == "" {
		input = "input"
	}
	output := opts.Output
	if output == "" {
		output = "output"
	}
	return &KServeClient{
		baseURL: trimBase(opts.BaseURL),
		model:   opts.Model,
		input:   input,
		output:  output,
		client:  newRestyClient(opts),
	}, nil
}

// Provider implements Handle
func (c *KServeClient) Provider() string { return providerKServe }

// Close implements Handle
func (c *KServeClient) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}

// Ready GET /v2/models/{model}/ready
func (c *KServeClient) Ready(ctx context.Context) error {
	resp, err := c.client.R().SetContext(ctx).Get(c.modelURL() + "/ready")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: model %s not ready (%d)", ErrBackendUnavailable, c.model, resp.StatusCode())
	}
	return nil
}

// Classify 文本以 BYTES 张量发送，并请求 classification 扩展返回 top-1
func (c *KServeClient) Classify(ctx context.Context, text string) (Prediction, error) {
	out, err := c.infer(ctx, v2Tensor{
		Name: c.input, Shape: []int64{1}, Datatype: "BYTES", Data: []string{text},
	}, true)
	if err != nil {
		return Prediction{}, err
	}
	return parseClassification(out)
}

// Logits 返回输出张量的全部 FP32 值
func (c *KServeClient) Logits(ctx context.Context, input Tensor) ([]float32, error) {
	out, err := c.infer(ctx, fp32Tensor(c.input, input), false)
	if err != nil {
		return nil, err
	}
	var logits []float32
	if err := json.Unmarshal(out.Data, &logits); err != nil {
		return nil, fmt.Errorf("%w: output %q is not numeric: %w", ErrBackendProtocol, out.Name, err)
	}
	if len(logits) == 0 {
		return nil, fmt.Errorf("%w: output %q is empty", ErrBackendProtocol, out.Name)
	}
	return logits, nil
}

// ClassifyTensor 使用模型自带标签表（classification 扩展）
func (c *KServeClient) ClassifyTensor(ctx context.Context, input Tensor) (Prediction, error) {
	out, err := c.infer(ctx, fp32Tensor(c.input, input), true)
	if err != nil {
		return Prediction{}, err
	}
	return parseClassification(out)
}

// Transcribe 以 [1, N] FP32 发送波形，输出为 BYTES 文本
func (c *KServeClient) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	t := fp32Tensor(c.input, Tensor{Shape: []int64{1, int64(len(samples))}, Data: samples})
	t.Parameters = map[string]any{"sample_rate": sampleRate}
	out, err := c.infer(ctx, t, false)
	if err != nil {
		return "", err
	}
	var texts []string
	if err := json.Unmarshal(out.Data, &texts); err != nil {
		return "", fmt.Errorf("%w: output %q is not text: %w", ErrBackendProtocol, out.Name, err)
	}
	if len(texts) == 0 {
		return "", fmt.Errorf("%w: output %q is empty", ErrBackendProtocol, out.Name)
	}
	return texts[0], nil
}

func (c *KServeClient) modelURL() string {
	return c.baseURL + "/v2/models/" + c.model
}

func (c *KServeClient) infer(ctx context.Context, input v2Tensor, classification bool) (v2Output, error) {
	req := v2InferRequest{Inputs: []v2Tensor{input}}
	sel := v2OutputSelect{Name: c.output}
	if classification {
		sel.Parameters = map[string]any{"classification": 1}
	}
	req.Outputs = []v2OutputSelect{sel}

	resp, err := call(ctx, providerKServe, c.model, func(ctx context.Context) (*resty.Response, error) {
		return c.client.R().
			SetContext(ctx).
			SetBody(req).
			Post(c.modelURL() + "/infer")
	})
	if err != nil {
		return v2Output{}, err
	}
	var decoded v2InferResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return v2Output{}, fmt.Errorf("%w: failed to decode kserve response: %w", ErrBackendProtocol, err)
	}
	for _, o := range decoded.Outputs {
		if o.Name == c.output {
			return o, nil
		}
	}
	if len(decoded.Outputs) == 1 {
		return decoded.Outputs[0], nil
	}
	return v2Output{}, fmt.Errorf("%w: response has no output %q", ErrBackendProtocol, c.output)
}

func fp32Tensor(name string, t Tensor) v2Tensor {
	return v2Tensor{Name: name, Shape: t.Shape, Datatype: "FP32", Data: t.Data}
}

// parseClassification 解析 Triton classification 输出 "score:index[:label]"
func parseClassification(out v2Output) (Prediction, error) {
	var entries []string
	if err := json.Unmarshal(out.Data, &entries); err != nil {
		return Prediction{}, fmt.Errorf("%w: classification output is not BYTES: %w", ErrBackendProtocol, err)
	}
	if len(entries) == 0 {
		return Prediction{}, fmt.Errorf("%w: classification output is empty", ErrBackendProtocol)
	}
	parts := strings.SplitN(entries[0], ":", 3)
	if len(parts) < 2 {
		return Prediction{}, fmt.Errorf("%w: malformed classification entry %q", ErrBackendProtocol, entries[0])
	}
	score, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: malformed classification score %q", ErrBackendProtocol, parts[0])
	}
	label := parts[1]
	if len(parts) == 3 && parts[2] != "" {
		label = parts[2]
	}
	return Prediction{Label: label, Score: score}, nil
}
