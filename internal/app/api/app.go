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

package api

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	"media-inference/internal/api/http"
	"media-inference/internal/api/http/middleware"
	"media-inference/internal/app"
	"media-inference/pkg/tracing"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用：持有 Bootstrap 构造好的模型句柄与 Hertz 实例
type App struct {
	bootstrap    *app.Bootstrap
	router       *http.Router
	hertz        *server.Hertz
	otelProvider otelProviderShutdown
}

// NewApp 基于 Bootstrap 组装 Handler 与 Router
func NewApp(bootstrap *app.Bootstrap) (*App, error) {
	if bootstrap == nil || bootstrap.Registry == nil {
		return nil, fmt.Errorf("bootstrap 未初始化")
	}
	cfg := bootstrap.Config
	m := bootstrap.Models

	handler := http.NewHandler(bootstrap.Registry, http.Models{
		Tone:  m.Tone,
		Image: m.Image,
		Audio: m.Audio,
		Video: m.Video,
	}, http.HandlerOptions{
		ToneMinLength: cfg.Models.Tone.MinLength,
		ImageType:     cfg.Models.Image.ExpectedContentType,
		AudioType:     cfg.Models.Audio.ExpectedContentType,
		VideoType:     cfg.Models.Video.ExpectedContentType,
	})

	mw := middleware.NewMiddleware(bootstrap.Logger.Logger)
	router := http.NewRouter(handler, mw, http.RouterOptions{
		MaxBodyBytes:   cfg.API.MaxBodyBytes,
		CORS:           cfg.API.CORS.Enable,
		AllowOrigins:   cfg.API.CORS.AllowOrigins,
		RateLimit:      cfg.API.Middleware.RateLimit,
		RateLimitRPS:   cfg.API.Middleware.RateLimitRPS,
		RateLimitBurst: cfg.API.Middleware.RateLimitBurst,
		Prometheus:     cfg.Monitoring.Prometheus.Enable,
	})

	return &App{bootstrap: bootstrap, router: router}, nil
}

// Build 创建 Hertz 实例（含 Hertz 日志与可选链路追踪），不启动监听
func (a *App) Build(addr string) (*server.Hertz, error) {
	logger := a.bootstrap.Logger
	cfg := a.bootstrap.Config

	// 使用 Hertz slog 扩展，与业务日志共用输出与级别
	hlog.SetLogger(hertzslog.NewLogger(
		hertzslog.WithOutput(logger.Output()),
		hertzslog.WithLevel(logger.Level()),
	))

	var extra []config.Option
	tc := cfg.Monitoring.Tracing
	if tc.Enable {
		endpoint := tc.ExportEndpoint
		if endpoint == "" {
			endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		}
		switch {
		case endpoint == "":
			logger.Warn("链路追踪已开启但未配置 export_endpoint，跳过")
		case tc.Exporter == "otlp-http":
			tp, err := tracing.InitTracer(tracing.OTelConfig{
				ServiceName:    tc.ServiceName,
				ExportEndpoint: endpoint,
				Insecure:       tc.Insecure,
			})
			if err != nil {
				return nil, fmt.Errorf("初始化 OTLP/HTTP tracer 失败: %w", err)
			}
			a.otelProvider = tp
		default:
			opts := []provider.Option{
				provider.WithServiceName(tc.ServiceName),
				provider.WithExportEndpoint(endpoint),
			}
			if tc.Insecure {
				opts = append(opts, provider.WithInsecure())
			}
			a.otelProvider = provider.NewOpenTelemetryProvider(opts...)
		}
		if a.otelProvider != nil {
			tracerOpt, tracerCfg := hertztracing.NewServerTracer()
			extra = append(extra, tracerOpt)
			a.router.Use(hertztracing.ServerMiddleware(tracerCfg))
			logger.Info("链路追踪已启用", "exporter", tc.Exporter, "service_name", tc.ServiceName, "endpoint", endpoint)
		}
	}

	a.hertz = a.router.Build(addr, extra...)
	return a.hertz, nil
}

// Run 启动 HTTP 服务，addr 如 ":9000"
func (a *App) Run(addr string) error {
	h, err := a.Build(addr)
	if err != nil {
		return err
	}
	a.bootstrap.Logger.Info("API 服务启动", "addr", addr, "modalities", a.bootstrap.Registry.ListModalities())
	return h.Run()
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error
	if a.hertz != nil {
		firstErr = a.hertz.Shutdown(ctx)
	}
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	if err := a.bootstrap.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
