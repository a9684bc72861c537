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

package model

import (
	"context"
)

// Result 推理结果：ok 时携带值，否则携带错误信息，二者必居其一
type Result struct {
	ok    bool
	value any
	msg   string
}

// OK 构造成功结果
func OK(v any) Result {
	return Result{ok: true, value: v}
}

// Failed 构造失败结果；空信息记为 "unknown error"
func Failed(msg string) Result {
	if msg == "" {
		msg = "unknown error"
	}
	return Result{msg: msg}
}

// IsOK 是否成功
func (r Result) IsOK() bool { return r.ok }

// Value 成功时的值
func (r Result) Value() any { return r.value }

// Message 失败时的错误信息；零值 Result 视为失败
func (r Result) Message() string {
	if r.ok {
		return ""
	}
	if r.msg == "" {
		return "no result"
	}
	return r.msg
}

// Payload 序列化到响应体的内容：成功为值本身，失败为 {"error": message}
func (r Result) Payload() any {
	if r.ok {
		return r.value
	}
	return map[string]string{"error": r.Message()}
}

// TextModel 文本模态适配器
type TextModel interface {
	Infer(ctx context.Context, text string) Result
}

// MediaModel 二进制上传模态适配器（image/audio/video）
type MediaModel interface {
	Infer(ctx context.Context, payload []byte) Result
}

// TextModelFunc 函数形式的 TextModel
type TextModelFunc func(ctx context.Context, text string) Result

// Infer implements TextModel
func (f TextModelFunc) Infer(ctx context.Context, text string) Result { return f(ctx, text) }

// MediaModelFunc 函数形式的 MediaModel
type MediaModelFunc func(ctx context.Context, payload []byte) Result

// Infer implements MediaModel
func (f MediaModelFunc) Infer(ctx context.Context, payload []byte) Result { return f(ctx, payload) }
