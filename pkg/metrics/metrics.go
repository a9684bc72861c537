package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		InferenceDuration, InferenceTotal,
		RejectedTotal, HTTPRequestsTotal,
		CacheLookupsTotal,
	)
}

// InferenceDuration 单次推理耗时（秒，含预处理）
var InferenceDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "media_inference_duration_seconds",
		Help:    "单次推理耗时（秒，含解码与预处理）",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
	[]string{"modality"},
)

// InferenceTotal 推理次数（按结果）
var InferenceTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "media_inference_total",
		Help: "推理次数（按结果）",
	},
	[]string{"modality", "outcome"}, // ok | error | panic
)

// RejectedTotal 校验失败、未进入模型的请求数
var RejectedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "media_inference_rejected_total",
		Help: "校验失败、未调用模型的请求数",
	},
	[]string{"modality", "reason"}, // content_type | min_length | malformed
)

// HTTPRequestsTotal HTTP 请求数
var HTTPRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "media_inference_http_requests_total",
		Help: "HTTP 请求数",
	},
	[]string{"method", "path", "status"},
)

// CacheLookupsTotal 推理结果缓存查询数
var CacheLookupsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "media_inference_cache_lookups_total",
		Help: "推理结果缓存查询数",
	},
	[]string{"modality", "result"}, // hit | miss
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
