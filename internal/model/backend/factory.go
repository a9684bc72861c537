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
	"media-inference/pkg/errors"
)

// NewTextClassifier 按 provider 创建文本分类后端
func NewTextClassifier(provider string, opts Options) (TextClassifier, error) {
	switch provider {
	case "", providerStub:
		return NewStubClient(0), nil
	case providerHuggingFace:
		return handle[TextClassifier](NewHuggingFaceClient(opts))
	case providerKServe:
		return handle[TextClassifier](NewKServeClient(opts))
	case providerBridge:
		return handle[TextClassifier](NewBridgeClient(opts))
	default:
		return nil, unsupported("text classification", provider)
	}
}

// NewTensorClassifier 按 provider 创建返回 logits 的后端
func NewTensorClassifier(provider string, opts Options, numClasses int) (TensorClassifier, error) {
	switch provider {
	case "", providerStub:
		return NewStubClient(numClasses), nil
	case providerKServe:
		return handle[TensorClassifier](NewKServeClient(opts))
	case providerBridge:
		return handle[TensorClassifier](NewBridgeClient(opts))
	default:
		return nil, unsupported("tensor classification", provider)
	}
}

// NewLabeledClassifier 按 provider 创建自带标签表的后端
func NewLabeledClassifier(provider string, opts Options) (LabeledClassifier, error) {
	switch provider {
	case "", providerStub:
		return NewStubClient(0), nil
	case providerKServe:
		return handle[LabeledClassifier](NewKServeClient(opts))
	case providerBridge:
		return handle[LabeledClassifier](NewBridgeClient(opts))
	default:
		return nil, unsupported("labeled classification", provider)
	}
}

// NewSpeechRecognizer 按 provider 创建语音识别后端
func NewSpeechRecognizer(provider string, opts Options) (SpeechRecognizer, error) {
	switch provider {
	case "", providerStub:
		return NewStubClient(0), nil
	case providerHuggingFace:
		return handle[SpeechRecognizer](NewHuggingFaceClient(opts))
	case providerKServe:
		return handle[SpeechRecognizer](NewKServeClient(opts))
	case providerBridge:
		return handle[SpeechRecognizer](NewBridgeClient(opts))
	default:
		return nil, unsupported("speech recognition", provider)
	}
}

func unsupported(task, provider string) error {
	return errors.Wrapf(errors.ErrUnsupported, "%s provider %q", task, provider)
}

// handle 避免构造失败时把 typed nil 装进接口
func handle[I any, C Handle](c C, err error) (I, error) {
	var zero I
	if err != nil {
		return zero, err
	}
	return any(c).(I), nil
}
