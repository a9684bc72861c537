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

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"unicode/utf8"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"media-inference/internal/media"
	"media-inference/internal/model"
	"media-inference/pkg/metrics"
)

// 上传字段名；file 作为兼容回退
const (
	uploadField         = "body"
	fallbackUploadField = "file"
)

// Models 已启用模态的 adapter，未启用为 nil
type Models struct {
	Tone  model.TextModel
	Image model.MediaModel
	Audio model.MediaModel
	Video model.MediaModel
}

// HandlerOptions 请求校验参数
type HandlerOptions struct {
	ToneMinLength int
	ImageType     string
	AudioType     string
	VideoType     string
}

// Handler HTTP 处理器
type Handler struct {
	registry *model.Registry
	models   Models
	opts     HandlerOptions
}

// NewHandler 创建新的 HTTP 处理器
func NewHandler(registry *model.Registry, models Models, opts HandlerOptions) *Handler {
	return &Handler{registry: registry, models: models, opts: opts}
}

// ListModels GET / 返回 modality -> description
func (h *Handler) ListModels(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, h.registry.ListModalities())
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(ctx context.Context, c *app.RequestContext) {
	names := make([]string, 0, 4)
	for _, d := range h.registry.Descriptors() {
		names = append(names, d.Name)
	}
	c.JSON(consts.StatusOK, utils.H{
		"status":     "ok",
		"modalities": names,
	})
}

// Metrics Prometheus 文本格式
func (h *Handler) Metrics(ctx context.Context, c *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"detail": err.Error()})
		return
	}
	c.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}

type toneRequest struct {
	Text *string `json:"text"`
}

// Tone POST /tone/ {"text": "..."}
func (h *Handler) Tone(ctx context.Context, c *app.RequestContext) {
	var req toneRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		reject(c, "tone", "malformed", consts.StatusUnprocessableEntity, "Invalid JSON body")
		return
	}
	if req.Text == nil {
		reject(c, "tone", "malformed", consts.StatusUnprocessableEntity, "Field 'text' is required")
		return
	}
	if n := utf8.RuneCountInString(*req.Text); n < h.opts.ToneMinLength {
		reject(c, "tone", "min_length", consts.StatusUnprocessableEntity,
			fmt.Sprintf("Text must be at least %d characters long", h.opts.ToneMinLength))
		return
	}
	res := h.models.Tone.Infer(ctx, *req.Text)
	c.JSON(consts.StatusOK, res.Payload())
}

// uploadHandler image/audio/video 共用：取出上传部分、校验声明类型、读入内存后调用 adapter
func (h *Handler) uploadHandler(modality, expectedType string, infer model.MediaModel) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		fh, err := formFile(c)
		if err != nil {
			reject(c, modality, "malformed", consts.StatusUnprocessableEntity,
				fmt.Sprintf("Field '%s' with an uploaded file is required", uploadField))
			return
		}
		payload, err := media.ReadUpload(fh, expectedType)
		if err != nil {
			if errors.Is(err, media.ErrRejectedMediaType) {
				reject(c, modality, "content_type", consts.StatusBadRequest, err.Error())
				return
			}
			reject(c, modality, "malformed", consts.StatusBadRequest, err.Error())
			return
		}
		res := infer.Infer(ctx, payload)
		c.JSON(consts.StatusOK, res.Payload())
	}
}

func formFile(c *app.RequestContext) (*multipart.FileHeader, error) {
	fh, err := c.FormFile(uploadField)
	if err == nil {
		return fh, nil
	}
	if fb, fbErr := c.FormFile(fallbackUploadField); fbErr == nil {
		return fb, nil
	}
	return nil, err
}

func reject(c *app.RequestContext, modality, reason string, status int, detail string) {
	metrics.RejectedTotal.WithLabelValues(modality, reason).Inc()
	c.JSON(status, utils.H{"detail": detail})
}
