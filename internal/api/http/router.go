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
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"

	"media-inference/internal/api/http/middleware"
)

// RouterOptions 路由与服务端参数
type RouterOptions struct {
	MaxBodyBytes   int
	CORS           bool
	AllowOrigins   []string
	RateLimit      bool
	RateLimitRPS   float64
	RateLimitBurst int
	Prometheus     bool
}

// Router HTTP 路由器
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
	opts       RouterOptions
	global     []app.HandlerFunc
}

// NewRouter 创建新的路由器
func NewRouter(handler *Handler, middleware *middleware.Middleware, opts RouterOptions) *Router {
	return &Router{handler: handler, middleware: middleware, opts: opts}
}

// Use 追加全局中间件（如链路追踪），须在 Build 之前调用
func (r *Router) Use(mw ...app.HandlerFunc) {
	r.global = append(r.global, mw...)
}

// Build 创建 Hertz 实例并注册路由；extra 用于注入 tracer 等服务端选项
func (r *Router) Build(addr string, extra ...config.Option) *server.Hertz {
	opts := []config.Option{server.WithHostPorts(addr)}
	if r.opts.MaxBodyBytes > 0 {
		opts = append(opts, server.WithMaxRequestBodySize(r.opts.MaxBodyBytes))
	}
	opts = append(opts, extra...)
	h := server.Default(opts...)

	h.Use(r.global...)
	h.Use(r.middleware.RequestID(), r.middleware.AccessLog())
	if r.opts.CORS {
		h.Use(r.middleware.CORS(r.opts.AllowOrigins))
	}
	if r.opts.RateLimit {
		h.Use(r.middleware.RateLimit(r.opts.RateLimitRPS, r.opts.RateLimitBurst))
	}

	r.setupRoutes(h)
	return h
}

func (r *Router) setupRoutes(h *server.Hertz) {
	hd := r.handler
	h.GET("/", hd.ListModels)
	h.GET("/health", hd.HealthCheck)
	if r.opts.Prometheus {
		h.GET("/metrics", hd.Metrics)
	}

	if hd.models.Tone != nil {
		h.POST("/tone/", hd.Tone)
	}
	if hd.models.Image != nil {
		h.POST("/image/", hd.uploadHandler("image", hd.opts.ImageType, hd.models.Image))
	}
	if hd.models.Audio != nil {
		h.POST("/audio/", hd.uploadHandler("audio", hd.opts.AudioType, hd.models.Audio))
	}
	if hd.models.Video != nil {
		h.POST("/video/", hd.uploadHandler("video", hd.opts.VideoType, hd.models.Video))
	}
}
