package tile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sealevel/internal/logger"
	"sealevel/internal/metrics"
	"time"

	"github.com/paulmach/orb/maptile"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMinZoom       maptile.Zoom = 9
	DefaultMaxNativeZoom maptile.Zoom = 13
	// MaxZoom：可请求的最高级别；相对原生级别的缩放差可超过像素边长
	MaxZoom  maptile.Zoom = 22
	MaxScale              = 3
)

// Kind 解析结果类型
type Kind int

const (
	KindClear Kind = iota
	KindSolid
	KindNative
	KindDerived
)

func (k Kind) String() string {
	switch k {
	case KindSolid:
		return "solid"
	case KindNative:
		return "native"
	case KindDerived:
		return "derived"
	default:
		return "clear"
	}
}

// Placeholder 是否为共享占位图
func (k Kind) Placeholder() bool { return k == KindClear || k == KindSolid }

// Request：单次瓦片请求，Level 为海平面阈值（米），Scale 为内容缩放系数
type Request struct {
	Tile  maptile.Tile
	Level int
	Scale int
}

type Result struct {
	Kind   Kind
	Data   []byte
	Region string
}

// ElevationLookup：高程索引查询，*elevation.Holder 满足该接口
type ElevationLookup interface {
	MaximumElevation(z, x, y int) (uint16, bool)
}

// CurrentRegion：当前就绪区域，*dataset.Synchronizer 满足该接口
type CurrentRegion interface {
	CurrentID() string
}

type Options struct {
	MinZoom       maptile.Zoom
	MaxNativeZoom maptile.Zoom
	Cache         Cache
	Logger        *slog.Logger
}

// 文档注释：瓦片解析器
// 背景：按“索引判定 → 原生资源 → 透明兜底”顺序决定每个瓦片；超过原生级别时由祖先瓦片派生。
// 约束：区域目录缺失或文件不可读降级为透明瓦片；仅派生路径返回错误。
type Resolver struct {
	index   ElevationLookup
	current CurrentRegion
	src     Source
	minZ    maptile.Zoom
	maxZ    maptile.Zoom
	cache   Cache
	group   singleflight.Group
	log     *slog.Logger
}

func NewResolver(index ElevationLookup, current CurrentRegion, src Source, opts Options) *Resolver {
	if opts.MaxNativeZoom == 0 {
		opts.MaxNativeZoom = DefaultMaxNativeZoom
	}
	if opts.MinZoom > opts.MaxNativeZoom {
		opts.MinZoom = opts.MaxNativeZoom
	}
	return &Resolver{
		index:   index,
		current: current,
		src:     src,
		minZ:    opts.MinZoom,
		maxZ:    opts.MaxNativeZoom,
		cache:   opts.Cache,
		log:     logger.Component(opts.Logger, "tile"),
	}
}

// MaxNativeZoom 原生瓦片最高级别
func (r *Resolver) MaxNativeZoom() maptile.Zoom { return r.maxZ }

// MinZoom 覆盖层最低级别
func (r *Resolver) MinZoom() maptile.Zoom { return r.minZ }

// 文档注释：解析一个瓦片请求
// 返回：Result.Data 始终为可直接输出的 PNG；派生失败时返回 *DerivationError，调用方不绘制该瓦片。
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	t0 := time.Now()
	res, err := r.resolve(ctx, req)
	metrics.TileResolveDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	if err != nil {
		metrics.TileDeriveFailTotal.Inc()
		return res, err
	}
	metrics.TileRequestsTotal.WithLabelValues(res.Kind.String()).Inc()
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, req Request) (Result, error) {
	region := ""
	if r.current != nil {
		region = r.current.CurrentID()
	}
	t := req.Tile
	if t.Z < r.minZ {
		return Result{Kind: KindClear, Data: Clear(), Region: region}, nil
	}
	if t.Z <= r.maxZ {
		return r.resolveNative(ctx, region, t, req.Level), nil
	}

	ancestor := AncestorAt(t, r.maxZ)
	base := r.resolveNative(ctx, region, ancestor, req.Level)
	if base.Kind.Placeholder() {
		return base, nil
	}
	edge := Size * clampScale(req.Scale)
	key := fmt.Sprintf("%s/%d/%d/%d/e%d@%d", region, t.Z, t.X, t.Y, req.Level, edge)
	if r.cache != nil {
		if b, ok := r.cache.Get(ctx, key); ok {
			metrics.TileCacheHitsTotal.Inc()
			return Result{Kind: KindDerived, Data: b, Region: region}, nil
		}
		metrics.TileCacheMissesTotal.Inc()
	}

	ch := r.group.DoChan(key, func() (any, error) {
		b, err := DerivePNG(base.Data, ancestor, t, edge)
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			r.cache.Set(context.WithoutCancel(ctx), key, b)
		}
		return b, nil
	})
	select {
	case <-ctx.Done():
		return Result{Region: region}, &DerivationError{Ancestor: ancestor, Target: t, Err: ctx.Err()}
	case out := <-ch:
		if out.Err != nil {
			r.log.Debug("tile_derive_error", "region", region, "z", t.Z, "x", t.X, "y", t.Y, "err", out.Err)
			var de *DerivationError
			if errors.As(out.Err, &de) {
				return Result{Region: region}, out.Err
			}
			return Result{Region: region}, &DerivationError{Ancestor: ancestor, Target: t, Err: out.Err}
		}
		return Result{Kind: KindDerived, Data: out.Val.([]byte), Region: region}, nil
	}
}

// resolveNative：原生级别内的判定，不返回错误
func (r *Resolver) resolveNative(ctx context.Context, region string, t maptile.Tile, level int) Result {
	if r.index != nil {
		if maxE, ok := r.index.MaximumElevation(int(t.Z), int(t.X), int(t.Y)); ok && level >= int(maxE) {
			return Result{Kind: KindSolid, Data: Solid(), Region: region}
		}
	}
	if r.src != nil && region != "" {
		b, err := r.src.Read(ctx, region, t, level)
		if err == nil && len(b) > 0 {
			return Result{Kind: KindNative, Data: b, Region: region}
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			r.log.Debug("tile_read_error", "region", region, "z", t.Z, "x", t.X, "y", t.Y, "err", err)
		}
	}
	return Result{Kind: KindClear, Data: Clear(), Region: region}
}

func clampScale(s int) int {
	if s < 1 {
		return 1
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}
