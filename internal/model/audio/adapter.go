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

package audio

import (
	"context"
	"fmt"

	"media-inference/internal/model"
	"media-inference/internal/model/backend"
)

// Modality 模态名
const Modality = "audio"

// Adapter 语音转写：解码、混为单声道、重采样后交给后端
type Adapter struct {
	recognizer backend.SpeechRecognizer
	sampleRate int
}

// NewAdapter sampleRate 为模型期望采样率（wav2vec2 为 16000）
func NewAdapter(recognizer backend.SpeechRecognizer, sampleRate int) *Adapter {
	return &Adapter{recognizer: recognizer, sampleRate: sampleRate}
}

// Infer implements model.MediaModel
func (a *Adapter) Infer(ctx context.Context, payload []byte) model.Result {
	return model.Guard(ctx, Modality, a.recognizer.Provider(), func(ctx context.Context) (any, error) {
		w, err := DecodeWAV(payload)
		if err != nil {
			return nil, err
		}
		if len(w.Samples) == 0 {
			return nil, fmt.Errorf("wav file contains no samples")
		}
		w = Resample(w, a.sampleRate)
		return a.recognizer.Transcribe(ctx, w.Samples, w.SampleRate)
	})
}
