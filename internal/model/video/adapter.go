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

package video

import (
	"context"
	"fmt"
	"os"
	"sort"

	"media-inference/internal/model"
	"media-inference/internal/model/backend"
	"media-inference/internal/model/vision"
)

// Modality 模态名
const Modality = "video"

// Options 采样参数
type Options struct {
	NumFrames int
	FrameSize int
	TempDir   string
}

// Adapter 视频动作分类：落盘、等距采样帧、组装 [1,n,3,size,size] 张量
type Adapter struct {
	classifier backend.LabeledClassifier
	source     FrameSource
	opts       Options
}

// NewAdapter 创建 video adapter
func NewAdapter(classifier backend.LabeledClassifier, source FrameSource, opts Options) *Adapter {
	return &Adapter{classifier: classifier, source: source, opts: opts}
}

// Infer implements model.MediaModel
func (a *Adapter) Infer(ctx context.Context, payload []byte) model.Result {
	return model.Guard(ctx, Modality, a.classifier.Provider(), func(ctx context.Context) (any, error) {
		input, err := a.tensor(ctx, payload)
		if err != nil {
			return nil, err
		}
		pred, err := a.classifier.ClassifyTensor(ctx, input)
		if err != nil {
			return nil, err
		}
		return pred.Label, nil
	})
}

func (a *Adapter) tensor(ctx context.Context, payload []byte) (backend.Tensor, error) {
	f, err := os.CreateTemp(a.opts.TempDir, "upload-*.mp4")
	if err != nil {
		return backend.Tensor{}, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(payload); err != nil {
		f.Close()
		return backend.Tensor{}, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return backend.Tensor{}, fmt.Errorf("write temp file: %w", err)
	}

	info, err := a.source.Probe(ctx, path)
	if err != nil {
		return backend.Tensor{}, err
	}
	if info.Frames <= 0 {
		return backend.Tensor{}, fmt.Errorf("video has no frames")
	}

	indices := Linspace(info.Frames-1, a.opts.NumFrames)
	frames, err := a.source.ReadFrames(ctx, path, info, Unique(indices))
	if err != nil {
		return backend.Tensor{}, err
	}

	size := a.opts.FrameSize
	plane := size * size
	data := make([]float32, 0, len(indices)*3*plane)
	used := 0
	for _, idx := range indices {
		frame, ok := frames[idx]
		if !ok {
			continue
		}
		resized := vision.Resize(frame, size, size)
		chw := make([]float32, 3*plane)
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				off := resized.PixOffset(x, y)
				i := y*size + x
				for c := 0; c < 3; c++ {
					chw[c*plane+i] = float32(resized.Pix[off+c]) / 255
				}
			}
		}
		data = append(data, chw...)
		used++
	}
	if used == 0 {
		return backend.Tensor{}, fmt.Errorf("no frames could be decoded")
	}
	s := int64(size)
	return backend.Tensor{Shape: []int64{1, int64(used), 3, s, s}, Data: data}, nil
}

// Linspace n 个 [0, last] 上的等距点，截断为整数
func Linspace(last, n int) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	if n == 1 {
		return out
	}
	for i := range out {
		out[i] = int(float64(i) * float64(last) / float64(n-1))
	}
	return out
}

// Unique 去重并升序
func Unique(indices []int) []int {
	seen := make(map[int]struct{}, len(indices))
	out := make([]int, 0, len(indices))
	for _, idx := range indices {
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
