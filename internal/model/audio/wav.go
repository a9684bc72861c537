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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/wav"
)

// WAV format tag
const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE
)

// Waveform 单声道、[-1,1] 归一化的采样
type Waveform struct {
	Samples    []float32
	SampleRate int
}

// DecodeWAV 解码 PCM 或 IEEE float WAV（任意声道数），多声道取平均
func DecodeWAV(payload []byte) (Waveform, error) {
	dec := wav.NewDecoder(bytes.NewReader(payload))
	if !dec.IsValidFile() {
		return Waveform{}, fmt.Errorf("invalid wav file")
	}
	switch dec.WavAudioFormat {
	case wavFormatPCM, wavFormatExtensible:
	case wavFormatFloat:
		return decodeFloatWAV(dec)
	default:
		return Waveform{}, fmt.Errorf("unsupported wav format tag %d", dec.WavAudioFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Waveform{}, fmt.Errorf("decode wav: %w", err)
	}
	channels := int(dec.NumChans)
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}
	if channels <= 0 {
		return Waveform{}, fmt.Errorf("wav has no channels")
	}
	bitDepth := int(dec.BitDepth)
	if bitDepth <= 0 || bitDepth > 32 {
		return Waveform{}, fmt.Errorf("unsupported wav bit depth %d", bitDepth)
	}

	frames := len(buf.Data) / channels
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += normalize(buf.Data[i*channels+c], bitDepth)
		}
		samples[i] = float32(sum / float64(channels))
	}
	return Waveform{Samples: samples, SampleRate: int(dec.SampleRate)}, nil
}

// decodeFloatWAV 直接读取 data chunk 中的 32/64 位小端浮点采样
func decodeFloatWAV(dec *wav.Decoder) (Waveform, error) {
	channels := int(dec.NumChans)
	if channels <= 0 {
		return Waveform{}, fmt.Errorf("wav has no channels")
	}
	width := int(dec.BitDepth) / 8
	if width != 4 && width != 8 {
		return Waveform{}, fmt.Errorf("unsupported float wav bit depth %d", dec.BitDepth)
	}
	if !dec.WasPCMAccessed() {
		if err := dec.FwdToPCM(); err != nil {
			return Waveform{}, fmt.Errorf("decode wav: %w", err)
		}
	}
	if dec.PCMChunk == nil {
		return Waveform{}, fmt.Errorf("decode wav: data chunk not found")
	}
	raw, err := io.ReadAll(io.LimitReader(dec.PCMChunk.R, int64(dec.PCMChunk.Size)))
	if err != nil {
		return Waveform{}, fmt.Errorf("decode wav: %w", err)
	}

	frames := len(raw) / (width * channels)
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			off := (i*channels + c) * width
			if width == 4 {
				sum += float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[off:])))
			} else {
				sum += math.Float64frombits(binary.LittleEndian.Uint64(raw[off:]))
			}
		}
		samples[i] = clamp(float32(sum / float64(channels)))
	}
	return Waveform{Samples: samples, SampleRate: int(dec.SampleRate)}, nil
}

func clamp(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	case v != v:
		return 0
	}
	return v
}

// normalize 8-bit PCM 为无符号，其余为有符号
func normalize(v, bitDepth int) float64 {
	if bitDepth == 8 {
		return (float64(v) - 128) / 128
	}
	return float64(v) / float64(int64(1)<<(bitDepth-1))
}

// Resample 线性插值重采样
func Resample(w Waveform, target int) Waveform {
	if w.SampleRate == target || w.SampleRate <= 0 || len(w.Samples) == 0 {
		return Waveform{Samples: w.Samples, SampleRate: target}
	}
	ratio := float64(w.SampleRate) / float64(target)
	n := int(float64(len(w.Samples)) / ratio)
	out := make([]float32, n)
	last := len(w.Samples) - 1
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= last {
			out[i] = w.Samples[last]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = w.Samples[j]*(1-frac) + w.Samples[j+1]*frac
	}
	return Waveform{Samples: out, SampleRate: target}
}
