package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TileRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sealevel_tile_requests_total",
		Help: "Total tile resolutions by result kind",
	}, []string{"kind"})
	TileResolveDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sealevel_tile_resolve_duration_ms",
		Help:    "Tile resolution duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	TileDeriveFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sealevel_tile_derive_fail_total",
		Help: "Total derived tiles that could not be produced",
	})
	TileCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sealevel_tile_cache_hits_total",
		Help: "Derived tile cache hits",
	})
	TileCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sealevel_tile_cache_misses_total",
		Help: "Derived tile cache misses",
	})
	DatasetSyncTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sealevel_dataset_sync_total",
		Help: "Dataset requests by outcome (ready, failed, cancelled, noop)",
	}, []string{"outcome"})
	DatasetSyncDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sealevel_dataset_sync_duration_ms",
		Help:    "Dataset download+extract+load duration in milliseconds",
		Buckets: []float64{100, 500, 1000, 5000, 10000, 30000, 60000, 300000},
	})
	DownloadBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sealevel_download_bytes_total",
		Help: "Bytes transferred for region packages",
	})
	SyncProgress = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sealevel_sync_progress_ratio",
		Help: "Progress fraction of the active dataset request",
	})
	IndexRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sealevel_index_records",
		Help: "Records in the currently loaded elevation index",
	})
	IndexReloadFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sealevel_index_reload_fail_total",
		Help: "Elevation index reloads that kept the previous index",
	})
)

func init() {
	prometheus.MustRegister(TileRequestsTotal)
	prometheus.MustRegister(TileResolveDurationMs)
	prometheus.MustRegister(TileDeriveFailTotal)
	prometheus.MustRegister(TileCacheHitsTotal)
	prometheus.MustRegister(TileCacheMissesTotal)
	prometheus.MustRegister(DatasetSyncTotal)
	prometheus.MustRegister(DatasetSyncDurationMs)
	prometheus.MustRegister(DownloadBytesTotal)
	prometheus.MustRegister(SyncProgress)
	prometheus.MustRegister(IndexRecords)
	prometheus.MustRegister(IndexReloadFailTotal)
}

// 文档注释：返回 Prometheus 指标处理器，在主入口挂载到 /metrics
func Handler() http.Handler { return promhttp.Handler() }
