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

package tone

import (
	"context"

	"media-inference/internal/model"
	"media-inference/internal/model/backend"
)

// Modality 模态名
const Modality = "tone"

// Adapter 文本情感分析：文本原样交给后端，返回 top-1 {label, score}
type Adapter struct {
	classifier backend.TextClassifier
}

// NewAdapter 创建 tone adapter
func NewAdapter(classifier backend.TextClassifier) *Adapter {
	return &Adapter{classifier: classifier}
}

// Infer implements model.TextModel
func (a *Adapter) Infer(ctx context.Context, text string) model.Result {
	return model.Guard(ctx, Modality, a.classifier.Provider(), func(ctx context.Context) (any, error) {
		return a.classifier.Classify(ctx, text)
	})
}
