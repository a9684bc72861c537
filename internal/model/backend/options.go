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
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"media-inference/pkg/tracing"
)

// Options 构造后端客户端所需参数（由 config.BackendConfig 转换，APIKey 已解析）
type Options struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
	Retries int
	Command string // bridge 子进程命令行
	Input   string // kserve 输入张量名
	Output  string // kserve 输出张量名
}

// Checker 可探测就绪状态的后端
type Checker interface {
	Ready(ctx context.Context) error
}

func newRestyClient(opts Options) *resty.Client {
	client := resty.New()
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.Retries > 0 {
		client.SetRetryCount(opts.Retries)
		client.SetRetryWaitTime(500 * time.Millisecond)
		client.SetRetryMaxWaitTime(5 * time.Second)
		client.AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500 || r.StatusCode() == 429
		})
	}
	if opts.APIKey != "" {
		client.SetAuthToken(opts.APIKey)
	}
	client.SetHeader("Content-Type", "application/json")
	return client
}

// call 执行一次带 span 的后端请求，把传输错误与非 2xx 归类为哨兵错误
func call(ctx context.Context, provider, model string, do func(ctx context.Context) (*resty.Response, error)) (resp *resty.Response, err error) {
	ctx, span := tracing.StartBackendSpan(ctx, provider, model)
	defer func() { tracing.EndSpan(span, err) }()

	resp, err = do(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, ctxErr)
		}
		return nil, fmt.Errorf("%w: %s request failed: %w", ErrBackendUnavailable, provider, err)
	}
	if resp.IsError() {
		kind := ErrBackendInference
		switch resp.StatusCode() {
		case 404, 502, 503, 504:
			kind = ErrBackendUnavailable
		}
		return nil, fmt.Errorf("%w: %s returned %d: %s", kind, provider, resp.StatusCode(), errorText(resp.Body()))
	}
	return resp, nil
}

// errorText 取出常见的 {"error": "..."} 错误体，否则返回截断后的原文
func errorText(body []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
		return envelope.Error
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 256 {
		return s[:256] + "..."
	}
	return s
}

func trimBase(u string) string {
	return strings.TrimSuffix(u, "/")
}
