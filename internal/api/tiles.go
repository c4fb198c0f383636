package api

import (
	"errors"
	"net/http"
	"sealevel/internal/tile"
	"strconv"
	"strings"

	"github.com/paulmach/orb/maptile"
)

var errBadTile = errors.New("bad tile coordinates")

// parseTile：解析 {z}/{x}/{y}，y 可带 .png 后缀
func parseTile(zs, xs, ys string) (maptile.Tile, error) {
	ys = strings.TrimSuffix(ys, ".png")
	z, err1 := strconv.ParseUint(zs, 10, 8)
	x, err2 := strconv.ParseUint(xs, 10, 32)
	y, err3 := strconv.ParseUint(ys, 10, 32)
	if err1 != nil || err2 != nil || err3 != nil || z > uint64(tile.MaxZoom) {
		return maptile.Tile{}, errBadTile
	}
	n := uint64(1) << z
	if x >= n || y >= n {
		return maptile.Tile{}, errBadTile
	}
	return maptile.New(uint32(x), uint32(y), maptile.Zoom(z)), nil
}

// 文档注释：瓦片接口
// 参数：level 为海平面阈值（米，默认 0）；scale 为内容缩放系数（1–3，默认 1）。
// 返回：PNG；派生失败返回 204，客户端不绘制该瓦片。
func (h *handlers) tile(w http.ResponseWriter, r *http.Request) {
	t, err := parseTile(r.PathValue("z"), r.PathValue("x"), r.PathValue("y"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	level := 0
	if s := q.Get("level"); s != "" {
		if level, err = strconv.Atoi(s); err != nil || level < 0 {
			writeError(w, http.StatusBadRequest, "level must be a non-negative integer")
			return
		}
	}
	scale := 1
	if s := q.Get("scale"); s != "" {
		if scale, err = strconv.Atoi(s); err != nil || scale < 1 {
			writeError(w, http.StatusBadRequest, "scale must be a positive integer")
			return
		}
	}

	res, err := h.Resolver.Resolve(r.Context(), tile.Request{Tile: t, Level: level, Scale: scale})
	if err != nil {
		h.log.Debug("tile_not_drawn", "z", t.Z, "x", t.X, "y", t.Y, "level", level, "err", err)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("content-type", "image/png")
	w.Header().Set("x-tile-kind", res.Kind.String())
	if res.Region != "" {
		w.Header().Set("x-tile-region", res.Region)
	}
	if res.Kind.Placeholder() {
		w.Header().Set("cache-control", "public, max-age=60")
	} else {
		w.Header().Set("cache-control", "public, max-age=300")
	}
	w.Header().Set("content-length", strconv.Itoa(len(res.Data)))
	_, _ = w.Write(res.Data)
}
