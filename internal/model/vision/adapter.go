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

package vision

import (
	"context"

	"media-inference/internal/model"
	"media-inference/internal/model/backend"
)

// Modality 模态名
const Modality = "image"

// Adapter 图像分类：预处理后取 logits 的 argmax 并查标签表
type Adapter struct {
	classifier backend.TensorClassifier
	prep       Preprocessor
	labels     LabelTable
}

// NewAdapter 创建 image adapter
func NewAdapter(classifier backend.TensorClassifier, prep Preprocessor, labels LabelTable) *Adapter {
	return &Adapter{classifier: classifier, prep: prep, labels: labels}
}

// Infer implements model.MediaModel
func (a *Adapter) Infer(ctx context.Context, payload []byte) model.Result {
	return model.Guard(ctx, Modality, a.classifier.Provider(), func(ctx context.Context) (any, error) {
		img, err := Decode(payload)
		if err != nil {
			return nil, err
		}
		input, err := a.prep.Tensor(img)
		if err != nil {
			return nil, err
		}
		logits, err := a.classifier.Logits(ctx, input)
		if err != nil {
			return nil, err
		}
		return a.labels.Lookup(Argmax(logits))
	})
}
