package elevation

import (
	"errors"
	"log/slog"
	"sealevel/internal/logger"
	"sealevel/internal/metrics"
	"sync/atomic"
)

// ErrEmptyIndex：解码结果没有任何记录，拒绝用空索引替换现有索引
var ErrEmptyIndex = errors.New("elevation: index has no records")

type loaded struct {
	region string
	ix     *Index
}

// 文档注释：当前索引的原子持有者
// 背景：通过 atomic.Pointer 无锁读写切换；读者只会看到旧索引或完整的新索引。
// 约束：Store/Reload 只替换指针，不修改已发布的 Index。
type Holder struct {
	v   atomic.Pointer[loaded]
	log *slog.Logger
}

func NewHolder(l *slog.Logger) *Holder {
	return &Holder{log: logger.Component(l, "elevation")}
}

// Index：当前索引，未加载时返回 nil（查询均未命中）
func (h *Holder) Index() *Index {
	if x := h.v.Load(); x != nil {
		return x.ix
	}
	return nil
}

// Region：当前索引所属区域标识
func (h *Holder) Region() string {
	if x := h.v.Load(); x != nil {
		return x.region
	}
	return ""
}

// MaximumElevation：委托给当前索引
func (h *Holder) MaximumElevation(z, x, y int) (uint16, bool) {
	return h.Index().MaximumElevation(z, x, y)
}

// Store：发布已构建好的索引
func (h *Holder) Store(region string, ix *Index) {
	h.v.Store(&loaded{region: region, ix: ix})
	metrics.IndexRecords.Set(float64(ix.Len()))
}

// 文档注释：从文件重新加载并原子替换
// 背景：尾部截断时已解析记录仍有效，照常替换并返回 DecodeError 供记录；
// 文件缺失、不可读或解析后为空时保留旧索引。
// 返回：替换是否发生，以及解码过程中的错误。
func (h *Holder) Reload(region, path string) (bool, error) {
	ix, err := Load(path)
	return h.Offer(region, path, ix, err)
}

// Offer：发布已由 Load 解析的结果，规则同 Reload；供需要在锁内提交的调用方使用
func (h *Holder) Offer(region, path string, ix *Index, loadErr error) (bool, error) {
	err := loadErr
	if ix.Len() == 0 {
		if err == nil {
			err = &DecodeError{Path: path, Err: ErrEmptyIndex}
		}
		metrics.IndexReloadFailTotal.Inc()
		h.log.Warn("index_reload_kept_previous", "region", region, "path", path, "previous", h.Region(), "err", err)
		return false, err
	}
	h.Store(region, ix)
	if err != nil {
		h.log.Warn("index_reload_partial", "region", region, "records", ix.Len(), "err", err)
	} else {
		h.log.Info("index_reload_ok", "region", region, "records", ix.Len())
	}
	return true, err
}
