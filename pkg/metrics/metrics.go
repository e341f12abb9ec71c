// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集 HTTP、上传、读取与过期清理相关指标.
//
// Example:
//
//	import "github.com/yeisme/filehost/pkg/metrics"
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	metrics.UploadsTotal.WithLabelValues(metrics.ResultOK).Inc()
package metrics

import (
	"net/http/pprof"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/filehost/pkg/configs"
)

const namespace = "filehost"

// 指标标签取值.
const (
	ResultOK       = "ok"
	ResultTooLarge = "too_large"
	ResultBad      = "bad_request"
	ResultNotFound = "not_found"
	ResultGone     = "gone"
	ResultError    = "error"

	ReasonExpired = "expired"
	ReasonAdmin   = "admin"
)

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// UploadsTotal 上传结果计数.
	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Uploads by result",
		},
		[]string{"result"},
	)

	// UploadBytesTotal 成功写入的字节数.
	UploadBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Bytes written by successful uploads",
		},
	)

	// RetrievalsTotal 读取结果计数.
	RetrievalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "File retrievals by result",
		},
		[]string{"result"},
	)

	// PurgedFilesTotal 被清除的文件数.
	PurgedFilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purged_files_total",
			Help:      "Files removed by the reaper or an admin purge",
		},
		[]string{"reason"},
	)

	// BreakerState HTTP 熔断器状态：0 closed，1 half-open，2 open.
	BreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_breaker_state",
			Help:      "State of the HTTP circuit breaker",
		},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()

	registerOnce sync.Once
)

// InitMetrics 初始化Metrics，重复调用只注册一次.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	registerOnce.Do(func() {
		// 注册标准收集器
		if config.RuntimeMetrics {
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		registry.MustRegister(
			RequestCounter, RequestDuration,
			UploadsTotal, UploadBytesTotal, RetrievalsTotal, PurgedFilesTotal,
			BreakerState,
		)
	})

	return nil
}

// StartMetricsServer 在给定引擎上挂载指标与 pprof 端点.
func StartMetricsServer(config configs.MetricsConfig, engine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	path := config.Path
	if path == "" {
		path = "/metrics"
	}

	// gorm 插件的连接池指标注册在默认注册表上
	gatherers := prometheus.Gatherers{registry, prometheus.DefaultGatherer}
	engine.GET(path, gin.WrapH(promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{Registry: registry})))

	if config.Pprof {
		engine.GET("/debug/pprof/", gin.WrapF(pprof.Index))
		engine.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
		engine.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
		engine.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
		engine.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
		engine.GET("/debug/pprof/:name", func(c *gin.Context) {
			pprof.Handler(c.Param("name")).ServeHTTP(c.Writer, c.Request)
		})
	}

	return nil
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
