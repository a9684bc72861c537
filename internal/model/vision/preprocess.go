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
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"media-inference/internal/model/backend"
)

// ImageNet 归一化参数
var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Preprocessor 与 torchvision Resize(256) + CenterCrop(224) + ToTensor + Normalize 等价
type Preprocessor struct {
	ResizeTo int
	CropSize int
}

// Decode 解码图像字节（jpeg/png/bmp/webp）
func Decode(payload []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("cannot identify image file: %w", err)
	}
	return img, nil
}

// Tensor 输出 NCHW [1,3,crop,crop]
func (p Preprocessor) Tensor(img image.Image) (backend.Tensor, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return backend.Tensor{}, fmt.Errorf("image has zero size")
	}
	resized := ResizeShorter(img, p.ResizeTo)
	crop := CenterCrop(resized, p.CropSize)

	n := p.CropSize * p.CropSize
	data := make([]float32, 3*n)
	for y := 0; y < p.CropSize; y++ {
		for x := 0; x < p.CropSize; x++ {
			off := crop.PixOffset(x, y)
			i := y*p.CropSize + x
			for c := 0; c < 3; c++ {
				v := float32(crop.Pix[off+c]) / 255
				data[c*n+i] = (v - imagenetMean[c]) / imagenetStd[c]
			}
		}
	}
	size := int64(p.CropSize)
	return backend.Tensor{Shape: []int64{1, 3, size, size}, Data: data}, nil
}

// ResizeShorter 等比缩放使短边为 target（双线性）
func ResizeShorter(img image.Image, target int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	var nw, nh int
	if w <= h {
		nw, nh = target, h*target/w
	} else {
		nw, nh = w*target/h, target
	}
	return Resize(img, nw, nh)
}

// Resize 缩放到 w×h（双线性），同时转换为 RGBA
func Resize(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// CenterCrop 裁剪中心 size×size；源图小于 size 时以黑边补齐
func CenterCrop(img *image.RGBA, size int) *image.RGBA {
	b := img.Bounds()
	x0 := b.Min.X + (b.Dx()-size)/2
	y0 := b.Min.Y + (b.Dy()-size)/2
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), img, image.Pt(x0, y0), draw.Src)
	return dst
}
