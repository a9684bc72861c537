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
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"media-inference/pkg/errors"
	"media-inference/pkg/metrics"
	"media-inference/pkg/tracing"
)

// Guard 执行一次推理：返回的 error 与 panic 都转为 Failed，并记录耗时、计数与 span
func Guard(ctx context.Context, modality, provider string, fn func(ctx context.Context) (any, error)) (res Result) {
	start := time.Now()
	ctx, span := tracing.StartInferenceSpan(ctx, modality, provider)

	defer func() {
		outcome := "ok"
		var spanErr error
		if r := recover(); r != nil {
			outcome = "panic"
			spanErr = fmt.Errorf("panic: %v", r)
			slog.ErrorContext(ctx, "inference panic recovered",
				"modality", modality,
				"provider", provider,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			res = Failed(fmt.Sprint(r))
		} else if !res.IsOK() {
			outcome = "error"
			spanErr = fmt.Errorf("%s", res.Message())
		}
		metrics.InferenceDuration.WithLabelValues(modality).Observe(time.Since(start).Seconds())
		metrics.InferenceTotal.WithLabelValues(modality, outcome).Inc()
		tracing.EndSpan(span, spanErr)
	}()

	v, err := fn(ctx)
	if err != nil {
		slog.WarnContext(ctx, "inference failed", "modality", modality, "provider", provider, "error", err)
		return Failed(errors.Message(err))
	}
	return OK(v)
}
